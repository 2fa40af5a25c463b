package middleware

import "testing"

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/health", "/health"},
		{"/api/v1/vaults/vault-1/entries", "/api/v1/vaults/:id/entries"},
		{"/api/v1/vaults/vault-1/state", "/api/v1/vaults/:id/state"},
		{"/api/v1/vaults/vault-1/reconciliation", "/api/v1/vaults/:id/reconciliation"},
		{"/api/v1/vaults/vault-1/users/user-1/holding", "/api/v1/vaults/:id/users/:id/holding"},
		{"/api/v1/vaults/vault-1/assets/BTC/holding", "/api/v1/vaults/:id/assets/:id/holding"},
		{"/api/v1/entries/01J9ZK3V", "/api/v1/entries/:id"},
		{"/api/v1/entries/01J9ZK3V/reverse", "/api/v1/entries/:id/reverse"},
		{"/api/v1/vaults/", "/api/v1/vaults/"},
		{"/api/v1/entries/", "/api/v1/entries/"},
	}

	for _, tt := range tests {
		if got := normalizePath(tt.path); got != tt.want {
			t.Errorf("normalizePath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
