package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finvault/vaultledger/internal/domain"
	"github.com/finvault/vaultledger/internal/usecase"
)

func testEntry(id string, ts time.Time) *domain.LedgerEntry {
	return &domain.LedgerEntry{
		ID:        id,
		VaultID:   "vault-1",
		UserID:    "user-1",
		Type:      domain.EntryTypeDeposit,
		AmountUSD: decimal.NewFromInt(100),
		Shares:    decimal.NewFromInt(100),
		Timestamp: ts,
	}
}

func mustBegin(t *testing.T, s *Store) usecase.Transaction {
	t.Helper()
	tx, err := s.Begin(context.Background())
	if err != nil {
		t.Fatalf("Begin() = %v", err)
	}
	return tx
}

func TestStoreStagingVisibility(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	now := time.Now()

	tx := mustBegin(t, store)
	if err := store.Insert(ctx, tx, testEntry("e1", now)); err != nil {
		t.Fatalf("Insert() = %v", err)
	}

	// Staged writes are invisible outside the transaction.
	if _, err := store.GetByID(ctx, "e1"); !errors.Is(err, domain.ErrEntryNotFound) {
		t.Fatalf("GetByID before commit = %v, want ErrEntryNotFound", err)
	}

	// But visible through ListByScopeTx.
	entries, err := store.ListByScopeTx(ctx, tx, domain.VaultScope("vault-1"), true)
	if err != nil {
		t.Fatalf("ListByScopeTx() = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("ListByScopeTx() returned %d entries, want 1", len(entries))
	}

	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("Commit() = %v", err)
	}

	if _, err := store.GetByID(ctx, "e1"); err != nil {
		t.Fatalf("GetByID after commit = %v", err)
	}
}

func TestStoreRollbackDiscards(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	tx := mustBegin(t, store)
	if err := store.Insert(ctx, tx, testEntry("e1", time.Now())); err != nil {
		t.Fatalf("Insert() = %v", err)
	}
	if err := store.ReplaceVaultState(ctx, tx, &domain.VaultState{VaultID: "vault-1"}); err != nil {
		t.Fatalf("ReplaceVaultState() = %v", err)
	}

	if err := tx.Rollback(ctx); err != nil {
		t.Fatalf("Rollback() = %v", err)
	}

	if _, err := store.GetByID(ctx, "e1"); !errors.Is(err, domain.ErrEntryNotFound) {
		t.Fatalf("GetByID after rollback = %v, want ErrEntryNotFound", err)
	}
	if _, err := store.GetVaultState(ctx, "vault-1"); !errors.Is(err, domain.ErrVaultStateNotFound) {
		t.Fatalf("GetVaultState after rollback = %v, want ErrVaultStateNotFound", err)
	}
}

func TestStoreReversalUniqueness(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	now := time.Now()

	tx := mustBegin(t, store)
	if err := store.Insert(ctx, tx, testEntry("e1", now)); err != nil {
		t.Fatalf("Insert() = %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("Commit() = %v", err)
	}

	target := "e1"
	reversal := func(id string) *domain.LedgerEntry {
		r := testEntry(id, now.Add(time.Minute))
		r.IsReversal = true
		r.ReversalOfID = &target
		return r
	}

	tx = mustBegin(t, store)
	if err := store.Insert(ctx, tx, reversal("r1")); err != nil {
		t.Fatalf("Insert(r1) = %v", err)
	}
	// A second reversal in the same transaction conflicts with the staged one.
	if err := store.Insert(ctx, tx, reversal("r2")); !errors.Is(err, domain.ErrReversalConflict) {
		t.Fatalf("Insert(r2) = %v, want ErrReversalConflict", err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("Commit() = %v", err)
	}

	// And a committed reversal conflicts with any later attempt.
	tx = mustBegin(t, store)
	if err := store.Insert(ctx, tx, reversal("r3")); !errors.Is(err, domain.ErrReversalConflict) {
		t.Fatalf("Insert(r3) = %v, want ErrReversalConflict", err)
	}
	_ = tx.Rollback(ctx)

	missing := "nope"
	tx = mustBegin(t, store)
	bad := testEntry("r4", now)
	bad.IsReversal = true
	bad.ReversalOfID = &missing
	if err := store.Insert(ctx, tx, bad); !errors.Is(err, domain.ErrEntryNotFound) {
		t.Fatalf("Insert(missing target) = %v, want ErrEntryNotFound", err)
	}
	_ = tx.Rollback(ctx)
}

func TestStoreLockReleasedOnCommitAndRollback(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	acquire := func(end func(usecase.Transaction)) {
		tx := mustBegin(t, store)
		if err := store.Lock(ctx, tx, "vault:vault-1"); err != nil {
			t.Fatalf("Lock() = %v", err)
		}
		end(tx)
	}

	acquire(func(tx usecase.Transaction) { _ = tx.Commit(ctx) })
	acquire(func(tx usecase.Transaction) { _ = tx.Rollback(ctx) })

	// If either path leaked the mutex this relock would block forever.
	done := make(chan struct{})
	go func() {
		acquire(func(tx usecase.Transaction) { _ = tx.Commit(ctx) })
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scope lock was not released")
	}
}

func TestStoreLockSerializesWriters(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	tx1 := mustBegin(t, store)
	if err := store.Lock(ctx, tx1, "vault:vault-1"); err != nil {
		t.Fatalf("Lock() = %v", err)
	}

	entered := make(chan struct{})
	go func() {
		tx2 := mustBegin(t, store)
		_ = store.Lock(ctx, tx2, "vault:vault-1")
		close(entered)
		_ = tx2.Commit(ctx)
	}()

	select {
	case <-entered:
		t.Fatal("second writer acquired a held scope lock")
	case <-time.After(50 * time.Millisecond):
	}

	_ = tx1.Commit(ctx)

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("second writer never acquired the lock")
	}
}

func TestStoreListOrdering(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	tx := mustBegin(t, store)
	// Inserted out of timestamp order on purpose.
	if err := store.Insert(ctx, tx, testEntry("e2", base.Add(time.Minute))); err != nil {
		t.Fatalf("Insert() = %v", err)
	}
	if err := store.Insert(ctx, tx, testEntry("e1", base)); err != nil {
		t.Fatalf("Insert() = %v", err)
	}
	if err := store.Insert(ctx, tx, testEntry("e3", base.Add(time.Minute))); err != nil {
		t.Fatalf("Insert() = %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("Commit() = %v", err)
	}

	entries, err := store.ListByScope(ctx, domain.VaultScope("vault-1"), true)
	if err != nil {
		t.Fatalf("ListByScope() = %v", err)
	}

	got := []string{entries[0].ID, entries[1].ID, entries[2].ID}
	want := []string{"e1", "e2", "e3"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestStoreCopyOnRead(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	tx := mustBegin(t, store)
	if err := store.Insert(ctx, tx, testEntry("e1", time.Now())); err != nil {
		t.Fatalf("Insert() = %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("Commit() = %v", err)
	}

	read, err := store.GetByID(ctx, "e1")
	if err != nil {
		t.Fatalf("GetByID() = %v", err)
	}
	read.AmountUSD = decimal.NewFromInt(999999)

	again, err := store.GetByID(ctx, "e1")
	if err != nil {
		t.Fatalf("GetByID() = %v", err)
	}
	if !again.AmountUSD.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("committed entry mutated through a read copy: %s", again.AmountUSD)
	}
}

func TestStoreOutboxLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	tx := mustBegin(t, store)
	for _, id := range []string{"ev1", "ev2"} {
		if err := store.Create(ctx, tx, &domain.OutboxEvent{ID: id, EventType: domain.EventTypeEntryAppended}); err != nil {
			t.Fatalf("Create(%s) = %v", id, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("Commit() = %v", err)
	}

	events, err := store.GetUnpublished(ctx, 10)
	if err != nil {
		t.Fatalf("GetUnpublished() = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("GetUnpublished() returned %d events, want 2", len(events))
	}

	publishedAt := time.Now()
	if err := store.MarkPublished(ctx, "ev1", publishedAt); err != nil {
		t.Fatalf("MarkPublished() = %v", err)
	}

	events, err = store.GetUnpublished(ctx, 10)
	if err != nil {
		t.Fatalf("GetUnpublished() = %v", err)
	}
	if len(events) != 1 || events[0].ID != "ev2" {
		t.Fatalf("GetUnpublished() after publish = %v, want only ev2", events)
	}

	if err := store.DeletePublished(ctx, publishedAt.Add(time.Second)); err != nil {
		t.Fatalf("DeletePublished() = %v", err)
	}
	if _, ok := store.events["ev1"]; ok {
		t.Fatal("published event survived DeletePublished")
	}
}

func TestStoreRejectsForeignTransaction(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	if err := store.Insert(ctx, nil, testEntry("e1", time.Now())); err == nil {
		t.Fatal("Insert(nil tx) = nil, want error")
	}
}
