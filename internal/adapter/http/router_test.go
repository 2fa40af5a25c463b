package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/finvault/vaultledger/internal/adapter/http/handler"
	apimiddleware "github.com/finvault/vaultledger/internal/adapter/http/middleware"
	"github.com/finvault/vaultledger/internal/adapter/repository/memory"
	"github.com/finvault/vaultledger/internal/usecase"
	"github.com/finvault/vaultledger/internal/usecase/mocks"
)

type stubIdempotencyStore struct {
	checkCalled bool
}

func (s *stubIdempotencyStore) CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	s.checkCalled = true
	return false, nil, nil
}

func (s *stubIdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	return nil
}

func newRouterConfig(opts ...func(cfg *RouterConfig)) RouterConfig {
	store := memory.NewStore()
	ledgerUC := usecase.NewLedgerUseCase(store, store, store, store, mocks.NewMockIDGenerator("entry-"))
	queryUC := usecase.NewQueryUseCase(store, store)
	reconcileUC := usecase.NewReconciliationUseCase(store, store)

	cfg := RouterConfig{
		EntryHandler:  handler.NewEntryHandler(ledgerUC, queryUC),
		VaultHandler:  handler.NewVaultHandler(queryUC, reconcileUC),
		HealthHandler: handler.NewHealthHandler(nil, nil),
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	return cfg
}

func TestNewRouter_HealthEndpointAvailable(t *testing.T) {
	router := NewRouter(newRouterConfig())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected /health to return 200, got %d", rec.Code)
	}
}

func TestNewRouter_AppendThenQueryState(t *testing.T) {
	router := NewRouter(newRouterConfig())

	body := `{"user_id":"user-1","entry_type":"deposit","amount_usd":"1000","shares":"1000"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/vaults/vault-1/entries", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected append to return 201, got %d: %s", rec.Code, rec.Body)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/vaults/vault-1/state", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected state to return 200, got %d: %s", rec.Code, rec.Body)
	}

	var state map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatalf("invalid state body: %v", err)
	}
	if state["total_aum"] != "1000" {
		t.Fatalf("total_aum = %v, want 1000", state["total_aum"])
	}
}

func TestNewRouter_UpdateAndDeleteRejected(t *testing.T) {
	router := NewRouter(newRouterConfig())

	for _, method := range []string{http.MethodPut, http.MethodDelete} {
		req := httptest.NewRequest(method, "/api/v1/entries/entry-00000001", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected %s on an entry to return 409, got %d", method, rec.Code)
		}
	}
}

func TestNewRouter_IdempotencyMiddlewareInvokesStore(t *testing.T) {
	store := &stubIdempotencyStore{}
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.IdempotencyStore = store
	}))

	body := `{"user_id":"user-1","entry_type":"deposit","amount_usd":"100","shares":"100"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/vaults/vault-1/entries", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(apimiddleware.IdempotencyKeyHeader, "key-123")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if !store.checkCalled {
		t.Fatal("expected idempotency store to be used")
	}
}

func TestNewRouter_UnknownRoute(t *testing.T) {
	router := NewRouter(newRouterConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/unknown", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected unknown route to return 404, got %d", rec.Code)
	}
}
