// Package sqlite provides a SnapshotStore backed by an embedded SQLite
// database. It keeps the same whole-snapshot contract as the file store:
// each update reads the full state, mutates it, and replaces it, with the
// replacement happening inside a single transaction so a crash can never
// leave a half-written snapshot behind.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/boddenberg/cardpay-ledger-go/internal/domain"
	"github.com/boddenberg/cardpay-ledger-go/internal/port"
	"github.com/boddenberg/cardpay-ledger-go/internal/storage"
)

// Store serializes all snapshot updates through one writer lock on top
// of SQLite transactions.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewStore opens the database at dbPath, creating it and running the
// embedded migrations if needed.
func NewStore(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// View loads the committed snapshot in a read transaction and runs fn.
func (s *Store) View(ctx context.Context, fn func(snap *storage.Snapshot) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return fmt.Errorf("begin read tx: %w", err)
	}
	defer tx.Rollback()

	snap, err := loadSnapshot(ctx, tx)
	if err != nil {
		return err
	}
	return fn(snap)
}

// Update loads the snapshot, runs fn, and writes the mutated snapshot
// back, all inside one transaction.
func (s *Store) Update(ctx context.Context, fn func(snap *storage.Snapshot) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin write tx: %w", err)
	}
	defer tx.Rollback()

	snap, err := loadSnapshot(ctx, tx)
	if err != nil {
		return err
	}
	if err := fn(snap); err != nil {
		return err
	}
	if err := replaceSnapshot(ctx, tx, snap); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) Close() error {
	return s.db.Close()
}

func loadSnapshot(ctx context.Context, tx *sql.Tx) (*storage.Snapshot, error) {
	snap := storage.NewSnapshot()

	rows, err := tx.QueryContext(ctx,
		`SELECT id, email, first_name, last_name, balance, password_hash, created_at FROM accounts`)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var acc domain.Account
		var balance, createdAt string
		if err := rows.Scan(&acc.ID, &acc.Email, &acc.FirstName, &acc.LastName, &balance, &acc.PasswordHash, &createdAt); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		if acc.Balance, err = decimal.NewFromString(balance); err != nil {
			return nil, fmt.Errorf("account %s balance: %w", acc.ID, err)
		}
		if acc.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("account %s created_at: %w", acc.ID, err)
		}
		snap.Accounts[acc.ID] = acc
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	cardRows, err := tx.QueryContext(ctx,
		`SELECT id, account_id, card_number, card_holder, expiry_date, cvv, card_type, is_default
		 FROM cards ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query cards: %w", err)
	}
	defer cardRows.Close()
	for cardRows.Next() {
		var c domain.Card
		if err := cardRows.Scan(&c.ID, &c.AccountID, &c.CardNumber, &c.CardHolder, &c.ExpiryDate, &c.CVV, &c.CardType, &c.IsDefault); err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		snap.Cards = append(snap.Cards, c)
	}
	if err := cardRows.Err(); err != nil {
		return nil, err
	}

	txRows, err := tx.QueryContext(ctx,
		`SELECT id, account_id, date, description, amount, kind, category, recipient, status
		 FROM transactions ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer txRows.Close()
	for txRows.Next() {
		var t domain.Transaction
		var date, amount string
		if err := txRows.Scan(&t.ID, &t.AccountID, &date, &t.Description, &amount, &t.Kind, &t.Category, &t.Recipient, &t.Status); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if t.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("transaction %s amount: %w", t.ID, err)
		}
		if t.Date, err = time.Parse(time.RFC3339Nano, date); err != nil {
			return nil, fmt.Errorf("transaction %s date: %w", t.ID, err)
		}
		snap.Transactions = append(snap.Transactions, t)
	}
	return snap, txRows.Err()
}

// replaceSnapshot implements the atomic whole-snapshot replacement: the
// previous rows are dropped and the mutated snapshot inserted, all
// within the caller's transaction.
func replaceSnapshot(ctx context.Context, tx *sql.Tx, snap *storage.Snapshot) error {
	for _, table := range []string{"transactions", "cards", "accounts"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for _, acc := range snap.Accounts {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO accounts (id, email, first_name, last_name, balance, password_hash, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			acc.ID, acc.Email, acc.FirstName, acc.LastName, acc.Balance.String(), acc.PasswordHash,
			acc.CreatedAt.UTC().Format(time.RFC3339Nano)); err != nil {
			return fmt.Errorf("insert account %s: %w", acc.ID, err)
		}
	}
	for _, c := range snap.Cards {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO cards (id, account_id, card_number, card_holder, expiry_date, cvv, card_type, is_default)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.AccountID, c.CardNumber, c.CardHolder, c.ExpiryDate, c.CVV, c.CardType, c.IsDefault); err != nil {
			return fmt.Errorf("insert card %s: %w", c.ID, err)
		}
	}
	for _, t := range snap.Transactions {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO transactions (id, account_id, date, description, amount, kind, category, recipient, status)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.AccountID, t.Date.UTC().Format(time.RFC3339Nano), t.Description, t.Amount.String(),
			t.Kind, t.Category, t.Recipient, t.Status); err != nil {
			return fmt.Errorf("insert transaction %s: %w", t.ID, err)
		}
	}
	return nil
}

var _ port.SnapshotStore = (*Store)(nil)
