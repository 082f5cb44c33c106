// Package file provides the default SnapshotStore: a single JSON file
// holding the whole ledger snapshot. Saves are atomic: the snapshot is
// written to a temp file and renamed over the previous one, so a crash
// mid-write never corrupts the committed state.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/boddenberg/cardpay-ledger-go/internal/domain"
	"github.com/boddenberg/cardpay-ledger-go/internal/port"
	"github.com/boddenberg/cardpay-ledger-go/internal/storage"
)

// Store keeps the committed snapshot in memory and mirrors every update
// to disk. All updates are serialized through one writer lock.
type Store struct {
	path string

	mu   sync.RWMutex
	snap *storage.Snapshot
}

// wire types: the durable layout. Accounts need the password hash
// persisted, which the domain model deliberately excludes from JSON.

type wireAccount struct {
	ID           string          `json:"id"`
	Email        string          `json:"email"`
	FirstName    string          `json:"firstName"`
	LastName     string          `json:"lastName"`
	Balance      json.RawMessage `json:"balance"`
	PasswordHash string          `json:"password_hash"`
	CreatedAt    time.Time       `json:"createdAt"`
}

type wireTransaction struct {
	ID          string          `json:"id"`
	AccountID   string          `json:"userId"`
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
	Amount      json.RawMessage `json:"amount"`
	Kind        string          `json:"type"`
	Category    string          `json:"category"`
	Recipient   string          `json:"recipient"`
	Status      string          `json:"status"`
}

type wireSnapshot struct {
	Users        map[string]wireAccount `json:"users"`
	Cards        []domain.Card          `json:"cards"`
	Transactions []wireTransaction      `json:"transactions"`
	SavedAt      time.Time              `json:"saved_at"`
}

// NewStore opens (or creates) the snapshot file at path. A missing file
// yields a default-empty snapshot which is persisted immediately, so the
// first load and every later one observe the same contract.
func NewStore(path string) (*Store, error) {
	s := &Store{path: path}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	snap, err := load(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("load snapshot: %w", err)
		}
		snap = storage.NewSnapshot()
		if err := save(path, snap); err != nil {
			return nil, fmt.Errorf("persist empty snapshot: %w", err)
		}
	}
	s.snap = snap
	return s, nil
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

// Update runs fn against a working copy, persists the copy, and only
// then makes it the committed snapshot. An error from fn or from the
// save leaves both the file and the in-memory state untouched.
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
	if err := save(s.path, work); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	s.snap = work
	return nil
}

// Close is a no-op: every update is already on disk.
func (s *Store) Close() error { return nil }

func load(path string) (*storage.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var ws wireSnapshot
	if err := json.NewDecoder(f).Decode(&ws); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return fromWire(&ws)
}

func save(path string, snap *storage.Snapshot) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(toWire(snap)); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func toWire(snap *storage.Snapshot) *wireSnapshot {
	ws := &wireSnapshot{
		Users:        make(map[string]wireAccount, len(snap.Accounts)),
		Cards:        snap.Cards,
		Transactions: make([]wireTransaction, 0, len(snap.Transactions)),
		SavedAt:      time.Now().UTC(),
	}
	for id, acc := range snap.Accounts {
		ws.Users[id] = wireAccount{
			ID:           acc.ID,
			Email:        acc.Email,
			FirstName:    acc.FirstName,
			LastName:     acc.LastName,
			Balance:      json.RawMessage(acc.Balance.String()),
			PasswordHash: acc.PasswordHash,
			CreatedAt:    acc.CreatedAt,
		}
	}
	for _, tx := range snap.Transactions {
		ws.Transactions = append(ws.Transactions, wireTransaction{
			ID:          tx.ID,
			AccountID:   tx.AccountID,
			Date:        tx.Date,
			Description: tx.Description,
			Amount:      json.RawMessage(tx.Amount.String()),
			Kind:        tx.Kind,
			Category:    tx.Category,
			Recipient:   tx.Recipient,
			Status:      tx.Status,
		})
	}
	return ws
}

func fromWire(ws *wireSnapshot) (*storage.Snapshot, error) {
	snap := storage.NewSnapshot()
	for id, wa := range ws.Users {
		balance, err := parseDecimal(wa.Balance)
		if err != nil {
			return nil, fmt.Errorf("account %s balance: %w", id, err)
		}
		snap.Accounts[id] = domain.Account{
			ID:           wa.ID,
			Email:        wa.Email,
			FirstName:    wa.FirstName,
			LastName:     wa.LastName,
			Balance:      balance,
			PasswordHash: wa.PasswordHash,
			CreatedAt:    wa.CreatedAt,
		}
	}
	if ws.Cards != nil {
		snap.Cards = ws.Cards
	}
	for _, wt := range ws.Transactions {
		amount, err := parseDecimal(wt.Amount)
		if err != nil {
			return nil, fmt.Errorf("transaction %s amount: %w", wt.ID, err)
		}
		snap.Transactions = append(snap.Transactions, domain.Transaction{
			ID:          wt.ID,
			AccountID:   wt.AccountID,
			Date:        wt.Date,
			Description: wt.Description,
			Amount:      amount,
			Kind:        wt.Kind,
			Category:    wt.Category,
			Recipient:   wt.Recipient,
			Status:      wt.Status,
		})
	}
	return snap, nil
}

// parseDecimal accepts both bare JSON numbers and quoted decimals, so
// data files written by older builds remain loadable.
func parseDecimal(raw json.RawMessage) (decimal.Decimal, error) {
	var d decimal.Decimal
	if err := json.Unmarshal(raw, &d); err != nil {
		return decimal.Decimal{}, err
	}
	return d, nil
}

var _ port.SnapshotStore = (*Store)(nil)
