package domain

// ScopeKind identifies which aggregate a scope addresses.
type ScopeKind string

const (
	ScopeKindVault ScopeKind = "vault"
	ScopeKindUser  ScopeKind = "user"
	ScopeKindAsset ScopeKind = "asset"
)

// Scope is the grouping key over which derived aggregates are computed and
// recomputation is serialized.
type Scope struct {
	Kind    ScopeKind
	VaultID string
	UserID  string
	Asset   string
	Account string
}

// VaultScope addresses the whole-vault aggregate.
func VaultScope(vaultID string) Scope {
	return Scope{Kind: ScopeKindVault, VaultID: vaultID}
}

// UserScope addresses a single user's holding within a vault.
func UserScope(vaultID, userID string) Scope {
	return Scope{Kind: ScopeKindUser, VaultID: vaultID, UserID: userID}
}

// AssetScope addresses one asset position held in one account.
func AssetScope(vaultID, asset, account string) Scope {
	return Scope{Kind: ScopeKindAsset, VaultID: vaultID, Asset: asset, Account: account}
}

// Key returns the lock key for the scope. Distinct scopes yield distinct
// keys, so only operations on the same scope contend.
func (s Scope) Key() string {
	switch s.Kind {
	case ScopeKindUser:
		return "vault:" + s.VaultID + ":user:" + s.UserID
	case ScopeKindAsset:
		return "vault:" + s.VaultID + ":asset:" + s.Asset + ":" + s.Account
	default:
		return "vault:" + s.VaultID
	}
}

// ScopesOf returns the scopes whose aggregates an entry affects.
func ScopesOf(e *LedgerEntry) []Scope {
	scopes := []Scope{VaultScope(e.VaultID)}
	if e.UserID != "" {
		scopes = append(scopes, UserScope(e.VaultID, e.UserID))
	}
	if e.HasAssetLeg() {
		scopes = append(scopes, AssetScope(e.VaultID, e.Asset, e.Account))
	}
	return scopes
}
