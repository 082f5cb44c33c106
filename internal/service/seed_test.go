package service_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/boddenberg/cardpay-ledger-go/internal/service"
	"github.com/boddenberg/cardpay-ledger-go/internal/storage"
	"github.com/boddenberg/cardpay-ledger-go/internal/storage/memory"
)

func TestSeedDemoData(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	if err := service.SeedDemoData(ctx, store, zap.NewNop()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	err := store.View(ctx, func(snap *storage.Snapshot) error {
		acc, ok := snap.AccountByEmail("john@example.com")
		if !ok {
			t.Fatal("demo account missing")
		}
		if !acc.Balance.Equal(decimal.RequireFromString("2540.75")) {
			t.Errorf("unexpected demo balance: %s", acc.Balance)
		}
		if len(snap.Cards) != 1 || !snap.Cards[0].IsDefault {
			t.Errorf("expected one default demo card, got %+v", snap.Cards)
		}
		if len(snap.Transactions) != 2 {
			t.Errorf("expected 2 demo transactions, got %d", len(snap.Transactions))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
}

func TestSeedDemoDataSkipsNonEmptyStore(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	seedAccount(t, store, "user-x", "x@example.com", "Xavier", "Xu", "1")

	if err := service.SeedDemoData(ctx, store, zap.NewNop()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	err := store.View(ctx, func(snap *storage.Snapshot) error {
		if len(snap.Accounts) != 1 {
			t.Errorf("seed ran against a non-empty store: %d accounts", len(snap.Accounts))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
}
