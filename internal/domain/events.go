package domain

import "time"

// Event types
const (
	EventTypeEntryAppended   = "entry.appended"
	EventTypeEntryReversed   = "entry.reversed"
	EventTypeVaultRecomputed = "vault.recomputed"
)

// Aggregate types
const (
	AggregateTypeEntry = "entry"
	AggregateTypeVault = "vault"
)

// OutboxEvent represents an event written in the same transaction as the
// ledger mutation it describes, to be published asynchronously.
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}
