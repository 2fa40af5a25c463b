package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/finvault/vaultledger/internal/domain"
)

func TestRetrierRetriesContention(t *testing.T) {
	r := NewRetrier(zerolog.Nop())
	r.initialInterval = 1
	r.maxInterval = 1

	calls := 0
	err := r.Retry(context.Background(), func() error {
		calls++
		if calls < 3 {
			return domain.ErrConcurrencyTimeout
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Retry() = %v, want nil", err)
	}
	if calls != 3 {
		t.Fatalf("operation ran %d times, want 3", calls)
	}
}

func TestRetrierStopsAfterMaxRetries(t *testing.T) {
	r := NewRetrier(zerolog.Nop())
	r.initialInterval = 1
	r.maxInterval = 1

	calls := 0
	err := r.Retry(context.Background(), func() error {
		calls++
		return domain.ErrConcurrencyTimeout
	})

	if !errors.Is(err, domain.ErrConcurrencyTimeout) {
		t.Fatalf("Retry() = %v, want ErrConcurrencyTimeout", err)
	}
	// Initial attempt plus maxRetries.
	if calls != r.maxRetries+1 {
		t.Fatalf("operation ran %d times, want %d", calls, r.maxRetries+1)
	}
}

func TestRetrierPermanentErrors(t *testing.T) {
	r := NewRetrier(zerolog.Nop())

	calls := 0
	err := r.Retry(context.Background(), func() error {
		calls++
		return domain.ErrReversalConflict
	})

	if !errors.Is(err, domain.ErrReversalConflict) {
		t.Fatalf("Retry() = %v, want ErrReversalConflict", err)
	}
	if calls != 1 {
		t.Fatalf("permanent error retried %d times, want 1 call", calls)
	}
}

func TestRetrierHonorsContext(t *testing.T) {
	r := NewRetrier(zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.Retry(ctx, func() error {
		return domain.ErrConcurrencyTimeout
	})

	if err == nil {
		t.Fatal("Retry() = nil, want error after context cancellation")
	}
}
