// Package memory provides an in-process SnapshotStore. It is used by
// tests and by ephemeral runs where durability is not needed.
package memory

import (
	"context"
	"sync"

	"github.com/boddenberg/cardpay-ledger-go/internal/port"
	"github.com/boddenberg/cardpay-ledger-go/internal/storage"
)

// Store holds the snapshot in memory behind a single writer lock.
type Store struct {
	mu   sync.RWMutex
	snap *storage.Snapshot
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{snap: storage.NewSnapshot()}
}

// View runs fn against the committed snapshot.
func (s *Store) View(ctx context.Context, fn func(snap *storage.Snapshot) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.snap)
}

// Update runs fn against a copy and swaps it in only if fn succeeds, so
// a failed update leaves the committed snapshot untouched.
func (s *Store) Update(ctx context.Context, fn func(snap *storage.Snapshot) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.snap.Clone()
	if err := fn(work); err != nil {
		return err
	}
	s.snap = work
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error { return nil }

var _ port.SnapshotStore = (*Store)(nil)
