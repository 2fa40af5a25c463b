package usecase

// Pagination defaults for listing endpoints.
const (
	DefaultPageSize = 50
	MaxPageSize     = 500
)

// Cache key prefixes for derived-state reads.
const (
	cacheKeyVaultState   = "vault_state:"
	cacheKeyUserHolding  = "user_holding:"
	cacheKeyAssetHolding = "asset_holding:"
)
