package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/boddenberg/cardpay-ledger-go/internal/domain"
	"github.com/boddenberg/cardpay-ledger-go/internal/storage"
	"github.com/boddenberg/cardpay-ledger-go/internal/storage/sqlite"
)

func TestMigrateAndRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	ctx := context.Background()

	store, err := sqlite.NewStore(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	err = store.Update(ctx, func(snap *storage.Snapshot) error {
		snap.Accounts["user-1"] = domain.Account{
			ID:           "user-1",
			Email:        "alice@example.com",
			FirstName:    "Alice",
			LastName:     "Aldrin",
			Balance:      decimal.RequireFromString("2540.75"),
			PasswordHash: "$2a$12$somethinghashed",
			CreatedAt:    now,
		}
		snap.Cards = append(snap.Cards, domain.Card{
			ID: "card-1", AccountID: "user-1", CardNumber: "4532123456789012",
			CardHolder: "Alice Aldrin", ExpiryDate: "12/27", CVV: "123",
			CardType: "visa", IsDefault: true,
		})
		snap.Transactions = append(snap.Transactions, domain.Transaction{
			ID: "txn-1", AccountID: "user-1", Date: now,
			Description: "Sent to Bob Barker", Amount: decimal.RequireFromString("-60"),
			Kind: domain.KindDebit, Category: domain.CategoryTransfer,
			Recipient: "Bob Barker", Status: domain.StatusCompleted,
		})
		return nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := sqlite.NewStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	err = reopened.View(ctx, func(snap *storage.Snapshot) error {
		acc, ok := snap.Accounts["user-1"]
		if !ok {
			t.Fatal("account missing after reopen")
		}
		if !acc.Balance.Equal(decimal.RequireFromString("2540.75")) {
			t.Errorf("balance lost precision: %s", acc.Balance)
		}
		if acc.PasswordHash != "$2a$12$somethinghashed" {
			t.Error("password hash not persisted")
		}
		if !acc.CreatedAt.Equal(now) {
			t.Errorf("created_at drifted: %s vs %s", acc.CreatedAt, now)
		}
		if len(snap.Cards) != 1 || snap.Cards[0].CVV != "123" {
			t.Errorf("cards did not survive: %+v", snap.Cards)
		}
		if len(snap.Transactions) != 1 || snap.Transactions[0].Category != domain.CategoryTransfer {
			t.Errorf("transactions did not survive: %+v", snap.Transactions)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
}

func TestUpdatePreservesInsertionOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	ctx := context.Background()

	store, err := sqlite.NewStore(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer store.Close()

	ids := []string{"txn-1", "txn-2", "txn-3"}
	for _, id := range ids {
		id := id
		if err := store.Update(ctx, func(snap *storage.Snapshot) error {
			snap.Transactions = append(snap.Transactions, domain.Transaction{
				ID: id, AccountID: "user-1", Date: time.Now().UTC(),
				Amount: decimal.RequireFromString("1"), Kind: domain.KindCredit,
				Status: domain.StatusCompleted,
			})
			return nil
		}); err != nil {
			t.Fatalf("update %s: %v", id, err)
		}
	}

	err = store.View(ctx, func(snap *storage.Snapshot) error {
		if len(snap.Transactions) != len(ids) {
			t.Fatalf("expected %d records, got %d", len(ids), len(snap.Transactions))
		}
		for i, id := range ids {
			if snap.Transactions[i].ID != id {
				t.Errorf("record %d: expected %s, got %s", i, id, snap.Transactions[i].ID)
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
}

func TestFailedUpdateRollsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	ctx := context.Background()

	store, err := sqlite.NewStore(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer store.Close()

	boom := errors.New("boom")
	err = store.Update(ctx, func(snap *storage.Snapshot) error {
		snap.Accounts["user-1"] = domain.Account{
			ID: "user-1", Email: "a@example.com",
			Balance: decimal.Zero, CreatedAt: time.Now().UTC(),
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	err = store.View(ctx, func(snap *storage.Snapshot) error {
		if len(snap.Accounts) != 0 {
			t.Error("failed update was committed")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
}

func TestUniqueEmailConstraint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	ctx := context.Background()

	store, err := sqlite.NewStore(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer store.Close()

	add := func(id string) error {
		return store.Update(ctx, func(snap *storage.Snapshot) error {
			snap.Accounts[id] = domain.Account{
				ID: id, Email: "same@example.com",
				Balance: decimal.Zero, CreatedAt: time.Now().UTC(),
			}
			return nil
		})
	}

	if err := add("user-1"); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if err := add("user-2"); err == nil {
		t.Fatal("expected unique email constraint to reject the second account")
	}
}
