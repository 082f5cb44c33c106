package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/boddenberg/cardpay-ledger-go/internal/domain"
	"github.com/boddenberg/cardpay-ledger-go/internal/storage"
	"github.com/boddenberg/cardpay-ledger-go/internal/storage/memory"
)

func TestUpdateCommits(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	err := store.Update(ctx, func(snap *storage.Snapshot) error {
		snap.Accounts["user-1"] = domain.Account{ID: "user-1", Balance: decimal.RequireFromString("10")}
		return nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	err = store.View(ctx, func(snap *storage.Snapshot) error {
		if _, ok := snap.Accounts["user-1"]; !ok {
			t.Error("committed account missing")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
}

func TestFailedUpdateLeavesStateUntouched(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	if err := store.Update(ctx, func(snap *storage.Snapshot) error {
		snap.Accounts["user-1"] = domain.Account{ID: "user-1", Balance: decimal.RequireFromString("10")}
		return nil
	}); err != nil {
		t.Fatalf("setup: %v", err)
	}

	boom := errors.New("boom")
	err := store.Update(ctx, func(snap *storage.Snapshot) error {
		acc := snap.Accounts["user-1"]
		acc.Balance = decimal.RequireFromString("999")
		snap.Accounts["user-1"] = acc
		snap.Transactions = append(snap.Transactions, domain.Transaction{ID: "txn-x"})
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	err = store.View(ctx, func(snap *storage.Snapshot) error {
		if !snap.Accounts["user-1"].Balance.Equal(decimal.RequireFromString("10")) {
			t.Errorf("balance mutated by failed update: %s", snap.Accounts["user-1"].Balance)
		}
		if len(snap.Transactions) != 0 {
			t.Errorf("records leaked from failed update: %d", len(snap.Transactions))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
}

func TestUpdateRespectsCancelledContext(t *testing.T) {
	store := memory.NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.Update(ctx, func(*storage.Snapshot) error {
		t.Error("fn must not run with a cancelled context")
		return nil
	})
	if err == nil {
		t.Fatal("expected context error")
	}
}
