package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/boddenberg/cardpay-ledger-go/internal/domain"
	"github.com/boddenberg/cardpay-ledger-go/internal/port"
	"github.com/boddenberg/cardpay-ledger-go/internal/storage"
)

// SeedDemoData loads a demo account with a card and some history into
// an empty store. Enabled via DEV_SEED; a store that already holds
// accounts is left untouched so restarts never duplicate the data.
func SeedDemoData(ctx context.Context, store port.SnapshotStore, logger *zap.Logger) error {
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash demo password: %w", err)
	}

	seeded := false
	err = store.Update(ctx, func(snap *storage.Snapshot) error {
		if len(snap.Accounts) > 0 {
			return nil
		}

		now := time.Now().UTC()
		account := domain.Account{
			ID:           "user-1",
			Email:        "john@example.com",
			FirstName:    "John",
			LastName:     "Doe",
			Balance:      decimal.RequireFromString("2540.75"),
			PasswordHash: string(hash),
			CreatedAt:    now,
		}
		snap.Accounts[account.ID] = account

		snap.Cards = append(snap.Cards, domain.Card{
			ID:         "card-1",
			AccountID:  account.ID,
			CardNumber: "4532123456789012",
			CardHolder: "John Doe",
			ExpiryDate: "12/27",
			CVV:        "123",
			CardType:   "visa",
			IsDefault:  true,
		})

		snap.Transactions = append(snap.Transactions,
			domain.Transaction{
				ID:          "txn-1",
				AccountID:   account.ID,
				Date:        now.Add(-48 * time.Hour),
				Description: "Received from Jane Smith",
				Amount:      decimal.RequireFromString("250.00"),
				Kind:        domain.KindCredit,
				Category:    domain.CategoryTransfer,
				Recipient:   "Jane Smith",
				Status:      domain.StatusCompleted,
			},
			domain.Transaction{
				ID:          "txn-2",
				AccountID:   account.ID,
				Date:        now.Add(-24 * time.Hour),
				Description: "ATM Withdrawal",
				Amount:      decimal.RequireFromString("-60.00"),
				Kind:        domain.KindDebit,
				Category:    domain.CategoryWithdrawal,
				Recipient:   "Card ending in 9012",
				Status:      domain.StatusCompleted,
			},
		)

		seeded = true
		return nil
	})
	if err != nil {
		return err
	}

	if seeded {
		logger.Info("demo data seeded", zap.String("email", "john@example.com"))
	}
	return nil
}
