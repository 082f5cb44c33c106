// Package port defines the interfaces between the service layer and its
// collaborators (stores, event publishers). Services depend on these,
// never on concrete backends.
package port

import (
	"context"

	"github.com/boddenberg/cardpay-ledger-go/internal/domain"
	"github.com/boddenberg/cardpay-ledger-go/internal/storage"
)

// SnapshotStore is a single-writer store over the whole ledger snapshot.
//
// Update serializes all mutations: fn receives the current snapshot,
// mutates it in memory, and the result is persisted atomically when fn
// returns nil. If fn returns an error nothing is persisted. Every View
// observes the last completed update, never an intermediate state.
type SnapshotStore interface {
	// View runs fn against the committed snapshot. fn must not mutate it.
	View(ctx context.Context, fn func(snap *storage.Snapshot) error) error

	// Update runs fn against a working copy of the snapshot and commits
	// the copy if fn returns nil.
	Update(ctx context.Context, fn func(snap *storage.Snapshot) error) error

	Close() error
}

// EventPublisher emits ledger events to an external broker. Publishing
// is best-effort: the ledger commit has already happened when Publish is
// called, and failures are surfaced to the caller for logging only.
type EventPublisher interface {
	PublishTransactionCompleted(ctx context.Context, evt domain.TransactionCompletedEvent) error
	Close() error
}
