package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"github.com/finvault/vaultledger/internal/usecase/mocks"
)

func idempotencyTestHandler(calls *int, status int, body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		w.WriteHeader(status)
		w.Write([]byte(body))
	})
}

func TestIdempotencyMiddleware(t *testing.T) {
	t.Run("first request stores the response", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := mocks.NewMockIdempotencyStore(ctrl)

		store.EXPECT().
			CheckAndSet(gomock.Any(), "key-1", gomock.Nil(), 24*time.Hour).
			Return(false, nil, nil)
		store.EXPECT().
			Update(gomock.Any(), "key-1", []byte(`{"id":"entry-1"}`), 24*time.Hour).
			Return(nil)

		calls := 0
		h := NewIdempotencyMiddleware(store).Wrap(idempotencyTestHandler(&calls, http.StatusCreated, `{"id":"entry-1"}`))

		req := httptest.NewRequest(http.MethodPost, "/api/v1/vaults/v1/entries", nil)
		req.Header.Set(IdempotencyKeyHeader, "key-1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if calls != 1 {
			t.Fatalf("handler called %d times, want 1", calls)
		}
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusCreated)
		}
	})

	t.Run("replayed key short-circuits", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := mocks.NewMockIdempotencyStore(ctrl)

		store.EXPECT().
			CheckAndSet(gomock.Any(), "key-1", gomock.Nil(), 24*time.Hour).
			Return(true, []byte(`{"id":"entry-1"}`), nil)

		calls := 0
		h := NewIdempotencyMiddleware(store).Wrap(idempotencyTestHandler(&calls, http.StatusCreated, "unused"))

		req := httptest.NewRequest(http.MethodPost, "/api/v1/vaults/v1/entries", nil)
		req.Header.Set(IdempotencyKeyHeader, "key-1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if calls != 0 {
			t.Fatalf("handler called %d times, want 0", calls)
		}
		if rec.Header().Get("X-Idempotency-Replay") != "true" {
			t.Fatal("missing replay header")
		}
		if rec.Body.String() != `{"id":"entry-1"}` {
			t.Fatalf("body = %s, want cached response", rec.Body)
		}
	})

	t.Run("failed responses are not stored", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := mocks.NewMockIdempotencyStore(ctrl)

		store.EXPECT().
			CheckAndSet(gomock.Any(), "key-1", gomock.Nil(), 24*time.Hour).
			Return(false, nil, nil)

		calls := 0
		h := NewIdempotencyMiddleware(store).Wrap(idempotencyTestHandler(&calls, http.StatusBadRequest, `{"error":"bad"}`))

		req := httptest.NewRequest(http.MethodPost, "/api/v1/vaults/v1/entries", nil)
		req.Header.Set(IdempotencyKeyHeader, "key-1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if calls != 1 {
			t.Fatalf("handler called %d times, want 1", calls)
		}
	})

	t.Run("requests without a key pass through", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := mocks.NewMockIdempotencyStore(ctrl)

		calls := 0
		h := NewIdempotencyMiddleware(store).Wrap(idempotencyTestHandler(&calls, http.StatusCreated, "{}"))

		req := httptest.NewRequest(http.MethodPost, "/api/v1/vaults/v1/entries", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if calls != 1 {
			t.Fatalf("handler called %d times, want 1", calls)
		}
	})

	t.Run("GET requests are never deduplicated", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := mocks.NewMockIdempotencyStore(ctrl)

		calls := 0
		h := NewIdempotencyMiddleware(store).Wrap(idempotencyTestHandler(&calls, http.StatusOK, "{}"))

		req := httptest.NewRequest(http.MethodGet, "/api/v1/entries/e1", nil)
		req.Header.Set(IdempotencyKeyHeader, "key-1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if calls != 1 {
			t.Fatalf("handler called %d times, want 1", calls)
		}
	})
}
