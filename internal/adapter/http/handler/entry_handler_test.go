package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/finvault/vaultledger/internal/domain"
	"github.com/finvault/vaultledger/internal/usecase"
)

type stubLedgerService struct {
	appendFunc  func(ctx context.Context, input usecase.AppendEntryInput) (*domain.LedgerEntry, error)
	reverseFunc func(ctx context.Context, input usecase.ReverseEntryInput) (*domain.LedgerEntry, error)
}

func (s *stubLedgerService) Append(ctx context.Context, input usecase.AppendEntryInput) (*domain.LedgerEntry, error) {
	return s.appendFunc(ctx, input)
}

func (s *stubLedgerService) ReverseEntry(ctx context.Context, input usecase.ReverseEntryInput) (*domain.LedgerEntry, error) {
	return s.reverseFunc(ctx, input)
}

type stubEntryQueryService struct {
	getFunc  func(ctx context.Context, id string) (*domain.LedgerEntry, error)
	listFunc func(ctx context.Context, input usecase.ListEntriesInput) ([]*domain.LedgerEntry, error)
}

func (s *stubEntryQueryService) GetEntry(ctx context.Context, id string) (*domain.LedgerEntry, error) {
	return s.getFunc(ctx, id)
}

func (s *stubEntryQueryService) ListEntries(ctx context.Context, input usecase.ListEntriesInput) ([]*domain.LedgerEntry, error) {
	return s.listFunc(ctx, input)
}

func entryRouter(h *EntryHandler) http.Handler {
	r := chi.NewRouter()
	r.Post("/api/v1/vaults/{vaultID}/entries", h.Append)
	r.Get("/api/v1/vaults/{vaultID}/entries", h.ListByVault)
	r.Get("/api/v1/entries/{id}", h.Get)
	r.Post("/api/v1/entries/{id}/reverse", h.Reverse)
	r.Put("/api/v1/entries/{id}", h.Reject)
	r.Delete("/api/v1/entries/{id}", h.Reject)
	return r
}

func TestEntryHandler_Append(t *testing.T) {
	t.Run("valid request", func(t *testing.T) {
		var got usecase.AppendEntryInput
		ledger := &stubLedgerService{
			appendFunc: func(ctx context.Context, input usecase.AppendEntryInput) (*domain.LedgerEntry, error) {
				got = input
				return &domain.LedgerEntry{ID: "entry-1", VaultID: input.VaultID, Type: input.Type}, nil
			},
		}
		h := NewEntryHandler(ledger, &stubEntryQueryService{})

		body := `{"user_id":"user-1","entry_type":"deposit","amount_usd":"100","shares":"100"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/vaults/vault-1/entries", strings.NewReader(body))
		rec := httptest.NewRecorder()
		entryRouter(h).ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want %d, body %s", rec.Code, http.StatusCreated, rec.Body)
		}
		if got.VaultID != "vault-1" {
			t.Fatalf("vault ID from URL = %q, want vault-1", got.VaultID)
		}
		if got.Type != domain.EntryTypeDeposit {
			t.Fatalf("entry type = %q, want deposit", got.Type)
		}
		if !got.AmountUSD.Equal(decimal.NewFromInt(100)) {
			t.Fatalf("amount = %s, want 100", got.AmountUSD)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		h := NewEntryHandler(&stubLedgerService{}, &stubEntryQueryService{})

		req := httptest.NewRequest(http.MethodPost, "/api/v1/vaults/vault-1/entries", strings.NewReader("{not json"))
		rec := httptest.NewRecorder()
		entryRouter(h).ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
		}
	})

	t.Run("validation error maps to 400", func(t *testing.T) {
		ledger := &stubLedgerService{
			appendFunc: func(ctx context.Context, input usecase.AppendEntryInput) (*domain.LedgerEntry, error) {
				return nil, domain.ErrNegativeAmount
			},
		}
		h := NewEntryHandler(ledger, &stubEntryQueryService{})

		body := `{"entry_type":"deposit","amount_usd":"-5"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/vaults/vault-1/entries", strings.NewReader(body))
		rec := httptest.NewRecorder()
		entryRouter(h).ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
		}
	})

	t.Run("retrier wraps the append", func(t *testing.T) {
		calls := 0
		ledger := &stubLedgerService{
			appendFunc: func(ctx context.Context, input usecase.AppendEntryInput) (*domain.LedgerEntry, error) {
				calls++
				if calls == 1 {
					return nil, domain.ErrConcurrencyTimeout
				}
				return &domain.LedgerEntry{ID: "entry-1"}, nil
			},
		}
		h := NewEntryHandler(ledger, &stubEntryQueryService{}).WithRetrier(retryOnce{})

		body := `{"entry_type":"deposit","amount_usd":"100"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/vaults/vault-1/entries", strings.NewReader(body))
		rec := httptest.NewRecorder()
		entryRouter(h).ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusCreated)
		}
		if calls != 2 {
			t.Fatalf("append called %d times, want 2", calls)
		}
	})
}

// retryOnce retries a failed operation exactly once.
type retryOnce struct{}

func (retryOnce) Retry(ctx context.Context, operation func() error) error {
	if err := operation(); err != nil {
		return operation()
	}
	return nil
}

func TestEntryHandler_Reverse(t *testing.T) {
	t.Run("with body", func(t *testing.T) {
		var got usecase.ReverseEntryInput
		ledger := &stubLedgerService{
			reverseFunc: func(ctx context.Context, input usecase.ReverseEntryInput) (*domain.LedgerEntry, error) {
				got = input
				return &domain.LedgerEntry{ID: "entry-2", IsReversal: true}, nil
			},
		}
		h := NewEntryHandler(ledger, &stubEntryQueryService{})

		body := `{"reason":"posted twice","created_by":"ops"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/entries/entry-1/reverse", strings.NewReader(body))
		rec := httptest.NewRecorder()
		entryRouter(h).ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want %d, body %s", rec.Code, http.StatusCreated, rec.Body)
		}
		if got.EntryID != "entry-1" || got.Reason != "posted twice" {
			t.Fatalf("input = %+v", got)
		}
	})

	t.Run("empty body is allowed", func(t *testing.T) {
		ledger := &stubLedgerService{
			reverseFunc: func(ctx context.Context, input usecase.ReverseEntryInput) (*domain.LedgerEntry, error) {
				return &domain.LedgerEntry{ID: "entry-2", IsReversal: true}, nil
			},
		}
		h := NewEntryHandler(ledger, &stubEntryQueryService{})

		req := httptest.NewRequest(http.MethodPost, "/api/v1/entries/entry-1/reverse", nil)
		rec := httptest.NewRecorder()
		entryRouter(h).ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusCreated)
		}
	})

	t.Run("double reversal maps to 409", func(t *testing.T) {
		ledger := &stubLedgerService{
			reverseFunc: func(ctx context.Context, input usecase.ReverseEntryInput) (*domain.LedgerEntry, error) {
				return nil, domain.ErrReversalConflict
			},
		}
		h := NewEntryHandler(ledger, &stubEntryQueryService{})

		req := httptest.NewRequest(http.MethodPost, "/api/v1/entries/entry-1/reverse", nil)
		rec := httptest.NewRecorder()
		entryRouter(h).ServeHTTP(rec, req)

		if rec.Code != http.StatusConflict {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusConflict)
		}
	})
}

func TestEntryHandler_Reject(t *testing.T) {
	h := NewEntryHandler(&stubLedgerService{}, &stubEntryQueryService{})

	for _, method := range []string{http.MethodPut, http.MethodDelete} {
		req := httptest.NewRequest(method, "/api/v1/entries/entry-1", nil)
		rec := httptest.NewRecorder()
		entryRouter(h).ServeHTTP(rec, req)

		if rec.Code != http.StatusConflict {
			t.Fatalf("%s status = %d, want %d", method, rec.Code, http.StatusConflict)
		}
	}
}

func TestEntryHandler_Get(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		query := &stubEntryQueryService{
			getFunc: func(ctx context.Context, id string) (*domain.LedgerEntry, error) {
				return &domain.LedgerEntry{ID: id, VaultID: "vault-1", Type: domain.EntryTypeDeposit}, nil
			},
		}
		h := NewEntryHandler(&stubLedgerService{}, query)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/entries/entry-1", nil)
		rec := httptest.NewRecorder()
		entryRouter(h).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}

		var body map[string]any
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("invalid response body: %v", err)
		}
		if body["id"] != "entry-1" {
			t.Fatalf("id = %v, want entry-1", body["id"])
		}
	})

	t.Run("missing maps to 404", func(t *testing.T) {
		query := &stubEntryQueryService{
			getFunc: func(ctx context.Context, id string) (*domain.LedgerEntry, error) {
				return nil, domain.ErrEntryNotFound
			},
		}
		h := NewEntryHandler(&stubLedgerService{}, query)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/entries/missing", nil)
		rec := httptest.NewRecorder()
		entryRouter(h).ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
		}
	})
}

func TestEntryHandler_ListByVault(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		wantScope domain.Scope
		wantInput func(t *testing.T, input usecase.ListEntriesInput)
	}{
		{
			name:      "vault scope",
			url:       "/api/v1/vaults/vault-1/entries",
			wantScope: domain.VaultScope("vault-1"),
		},
		{
			name:      "user scope",
			url:       "/api/v1/vaults/vault-1/entries?user_id=user-1",
			wantScope: domain.UserScope("vault-1", "user-1"),
		},
		{
			name:      "asset scope",
			url:       "/api/v1/vaults/vault-1/entries?asset=BTC&account=custody",
			wantScope: domain.AssetScope("vault-1", "BTC", "custody"),
		},
		{
			name:      "pagination and reversals",
			url:       "/api/v1/vaults/vault-1/entries?limit=5&offset=10&include_reversals=true",
			wantScope: domain.VaultScope("vault-1"),
			wantInput: func(t *testing.T, input usecase.ListEntriesInput) {
				if input.Limit != 5 || input.Offset != 10 || !input.IncludeReversals {
					t.Fatalf("input = %+v", input)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got usecase.ListEntriesInput
			query := &stubEntryQueryService{
				listFunc: func(ctx context.Context, input usecase.ListEntriesInput) ([]*domain.LedgerEntry, error) {
					got = input
					return []*domain.LedgerEntry{{ID: "e1", VaultID: "vault-1"}}, nil
				},
			}
			h := NewEntryHandler(&stubLedgerService{}, query)

			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			rec := httptest.NewRecorder()
			entryRouter(h).ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
			}
			if got.Scope != tt.wantScope {
				t.Fatalf("scope = %+v, want %+v", got.Scope, tt.wantScope)
			}
			if tt.wantInput != nil {
				tt.wantInput(t, got)
			}
		})
	}
}
