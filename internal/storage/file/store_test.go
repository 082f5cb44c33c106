package file_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/boddenberg/cardpay-ledger-go/internal/domain"
	"github.com/boddenberg/cardpay-ledger-go/internal/storage"
	"github.com/boddenberg/cardpay-ledger-go/internal/storage/file"
)

func TestNewStoreCreatesEmptySnapshotFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")

	store, err := file.NewStore(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("snapshot file not created: %v", err)
	}

	err = store.View(context.Background(), func(snap *storage.Snapshot) error {
		if len(snap.Accounts) != 0 || len(snap.Cards) != 0 || len(snap.Transactions) != 0 {
			t.Error("expected a default-empty snapshot")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	ctx := context.Background()

	store, err := file.NewStore(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	err = store.Update(ctx, func(snap *storage.Snapshot) error {
		snap.Accounts["user-1"] = domain.Account{
			ID:           "user-1",
			Email:        "alice@example.com",
			FirstName:    "Alice",
			LastName:     "Aldrin",
			Balance:      decimal.RequireFromString("123.45"),
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
			Description: "ATM Withdrawal", Amount: decimal.RequireFromString("-60"),
			Kind: domain.KindDebit, Category: domain.CategoryWithdrawal,
			Recipient: "Card ending in 9012", Status: domain.StatusCompleted,
		})
		return nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	store.Close()

	// Reopen and verify everything survived, password hash included.
	reopened, err := file.NewStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	err = reopened.View(ctx, func(snap *storage.Snapshot) error {
		acc, ok := snap.Accounts["user-1"]
		if !ok {
			t.Fatal("account missing after reload")
		}
		if !acc.Balance.Equal(decimal.RequireFromString("123.45")) {
			t.Errorf("balance lost precision: %s", acc.Balance)
		}
		if acc.PasswordHash != "$2a$12$somethinghashed" {
			t.Error("password hash not persisted")
		}
		if len(snap.Cards) != 1 || snap.Cards[0].CardNumber != "4532123456789012" {
			t.Errorf("cards did not survive reload: %+v", snap.Cards)
		}
		if len(snap.Transactions) != 1 || !snap.Transactions[0].Amount.Equal(decimal.RequireFromString("-60")) {
			t.Errorf("transactions did not survive reload: %+v", snap.Transactions)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
}

func TestFailedUpdateRollsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	ctx := context.Background()

	store, err := file.NewStore(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer store.Close()

	if err := store.Update(ctx, func(snap *storage.Snapshot) error {
		snap.Accounts["user-1"] = domain.Account{ID: "user-1", Balance: decimal.RequireFromString("10")}
		return nil
	}); err != nil {
		t.Fatalf("setup: %v", err)
	}

	boom := errors.New("boom")
	err = store.Update(ctx, func(snap *storage.Snapshot) error {
		snap.Accounts["user-2"] = domain.Account{ID: "user-2"}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	// Neither memory nor disk should hold user-2.
	err = store.View(ctx, func(snap *storage.Snapshot) error {
		if _, ok := snap.Accounts["user-2"]; ok {
			t.Error("failed update leaked into memory")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}

	reopened, err := file.NewStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	err = reopened.View(ctx, func(snap *storage.Snapshot) error {
		if _, ok := snap.Accounts["user-2"]; ok {
			t.Error("failed update leaked onto disk")
		}
		if _, ok := snap.Accounts["user-1"]; !ok {
			t.Error("committed state lost")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
}

func TestLoadRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := file.NewStore(path); err == nil {
		t.Fatal("expected error for corrupt snapshot file")
	}
}
