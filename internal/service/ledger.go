// Package service implements the ledger, auth and card operations.
// LedgerService owns every balance mutation and the
// transaction records that describe them. All mutations of one logical
// operation (a transfer's debit, credit and both records; a withdrawal's
// debit and record) run inside a single store update, so they commit or
// fail as one unit and every record's amount equals the delta applied to
// its account's balance at the moment of recording.
package service

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/cardpay-ledger-go/internal/domain"
	"github.com/boddenberg/cardpay-ledger-go/internal/infra/observability"
	"github.com/boddenberg/cardpay-ledger-go/internal/port"
	"github.com/boddenberg/cardpay-ledger-go/internal/storage"
)

var ledgerTracer = otel.Tracer("service/ledger")

// LedgerService orchestrates transfers and withdrawals.
type LedgerService struct {
	store     port.SnapshotStore
	publisher port.EventPublisher
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// NewLedgerService creates a new ledger service.
func NewLedgerService(store port.SnapshotStore, publisher port.EventPublisher, metrics *observability.Metrics, logger *zap.Logger) *LedgerService {
	return &LedgerService{
		store:     store,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
	}
}

// ============================================================
// Transfer: POST /api/send-money
// ============================================================

// Transfer moves amount from the sender to the account registered under
// recipientEmail: one debit and one credit, each with its own record.
// Returns the sender's record and post-transfer balance.
func (s *LedgerService) Transfer(ctx context.Context, senderID, recipientEmail string, amount decimal.Decimal, note string) (*domain.MutationResponse, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.Transfer")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", senderID))

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("transfer", time.Since(start)) }()

	if !amount.IsPositive() {
		return nil, &domain.ErrValidation{Field: "amount", Message: "must be positive"}
	}
	// Accounts are registered under normalized emails; resolve the
	// recipient the same way login does.
	recipientEmail = normalizeEmail(recipientEmail)
	if recipientEmail == "" {
		return nil, &domain.ErrValidation{Field: "recipientEmail", Message: "required"}
	}

	var (
		senderRecord    domain.Transaction
		recipientRecord domain.Transaction
		newBalance      decimal.Decimal
	)

	err := s.store.Update(ctx, func(snap *storage.Snapshot) error {
		sender, ok := snap.Accounts[senderID]
		if !ok {
			return &domain.ErrNotFound{Resource: "sender", ID: senderID}
		}
		recipient, ok := snap.AccountByEmail(recipientEmail)
		if !ok {
			return &domain.ErrNotFound{Resource: "recipient", ID: recipientEmail}
		}
		if sender.Balance.LessThan(amount) {
			return &domain.ErrInsufficientFunds{
				Available: sender.Balance.String(),
				Required:  amount.String(),
			}
		}

		if _, err := applyDelta(snap, sender.ID, amount.Neg()); err != nil {
			return err
		}
		if _, err := applyDelta(snap, recipient.ID, amount); err != nil {
			return err
		}
		// Re-read after both legs: a self-transfer credits the sender
		// back, so the debit leg's result is not the final balance.
		newBalance = snap.Accounts[sender.ID].Balance

		now := time.Now().UTC()
		senderRecord = appendRecord(snap, recordParams{
			AccountID:   sender.ID,
			Amount:      amount.Neg(),
			Kind:        domain.KindDebit,
			Description: "Sent to " + recipient.FullName(),
			Recipient:   recipient.FullName(),
			Category:    domain.CategoryTransfer,
			Date:        now,
		})
		recipientRecord = appendRecord(snap, recordParams{
			AccountID:   recipient.ID,
			Amount:      amount,
			Kind:        domain.KindCredit,
			Description: "Received from " + sender.FullName(),
			Recipient:   sender.FullName(),
			Category:    domain.CategoryTransfer,
			Date:        now,
		})
		return nil
	})
	if err != nil {
		s.metrics.IncrOperation("transfer", "error")
		return nil, err
	}

	s.metrics.IncrOperation("transfer", "success")
	s.metrics.IncrSnapshotSave()
	s.metrics.IncrRecord(domain.KindDebit)
	s.metrics.IncrRecord(domain.KindCredit)

	s.publishRecord(ctx, senderRecord)
	s.publishRecord(ctx, recipientRecord)

	s.logger.Info("transfer completed",
		zap.String("sender_id", senderID),
		zap.String("recipient_email", recipientEmail),
		zap.String("amount", amount.String()),
	)

	return &domain.MutationResponse{
		Success:     true,
		Transaction: &senderRecord,
		NewBalance:  newBalance,
	}, nil
}

// ============================================================
// Withdraw: POST /api/withdraw
// ============================================================

// Withdraw debits the account after validating that the named card is
// bound to it. The record's counterparty is derived from the card's
// last four digits.
func (s *LedgerService) Withdraw(ctx context.Context, accountID string, amount decimal.Decimal, cardID string) (*domain.MutationResponse, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.Withdraw")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID))

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("withdraw", time.Since(start)) }()

	if !amount.IsPositive() {
		return nil, &domain.ErrValidation{Field: "amount", Message: "must be positive"}
	}
	if cardID == "" {
		return nil, &domain.ErrValidation{Field: "cardId", Message: "required"}
	}

	var (
		record     domain.Transaction
		newBalance decimal.Decimal
	)

	err := s.store.Update(ctx, func(snap *storage.Snapshot) error {
		account, ok := snap.Accounts[accountID]
		if !ok {
			return &domain.ErrNotFound{Resource: "account", ID: accountID}
		}
		if account.Balance.LessThan(amount) {
			return &domain.ErrInsufficientFunds{
				Available: account.Balance.String(),
				Required:  amount.String(),
			}
		}

		var card *domain.Card
		for i := range snap.Cards {
			if snap.Cards[i].ID == cardID && snap.Cards[i].AccountID == accountID {
				card = &snap.Cards[i]
				break
			}
		}
		if card == nil {
			return &domain.ErrNotFound{Resource: "card", ID: cardID}
		}

		var err error
		if newBalance, err = applyDelta(snap, accountID, amount.Neg()); err != nil {
			return err
		}

		record = appendRecord(snap, recordParams{
			AccountID:   accountID,
			Amount:      amount.Neg(),
			Kind:        domain.KindDebit,
			Description: "ATM Withdrawal",
			Recipient:   "Card ending in " + card.Last4(),
			Category:    domain.CategoryWithdrawal,
			Date:        time.Now().UTC(),
		})
		return nil
	})
	if err != nil {
		s.metrics.IncrOperation("withdraw", "error")
		return nil, err
	}

	s.metrics.IncrOperation("withdraw", "success")
	s.metrics.IncrSnapshotSave()
	s.metrics.IncrRecord(domain.KindDebit)

	s.publishRecord(ctx, record)

	s.logger.Info("withdrawal completed",
		zap.String("account_id", accountID),
		zap.String("card_id", cardID),
		zap.String("amount", amount.String()),
	)

	return &domain.MutationResponse{
		Success:     true,
		Transaction: &record,
		NewBalance:  newBalance,
	}, nil
}

// ============================================================
// Transaction history: GET /api/transactions/{userID}
// ============================================================

// ListTransactions returns the account's records, newest first.
func (s *LedgerService) ListTransactions(ctx context.Context, accountID string) ([]domain.Transaction, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.ListTransactions")
	defer span.End()

	records := make([]domain.Transaction, 0)
	err := s.store.View(ctx, func(snap *storage.Snapshot) error {
		for _, tx := range snap.Transactions {
			if tx.AccountID == accountID {
				records = append(records, tx)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Date.After(records[j].Date)
	})
	return records, nil
}

// ============================================================
// Ledger internals
// ============================================================

// applyDelta adds delta to the account's balance inside an open update
// and returns the resulting balance. It enforces nothing about the
// sign of the result; sufficiency checks belong to the orchestration
// that computed the delta.
func applyDelta(snap *storage.Snapshot, accountID string, delta decimal.Decimal) (decimal.Decimal, error) {
	acc, ok := snap.Accounts[accountID]
	if !ok {
		return decimal.Decimal{}, &domain.ErrNotFound{Resource: "account", ID: accountID}
	}
	acc.Balance = acc.Balance.Add(delta)
	snap.Accounts[accountID] = acc
	return acc.Balance, nil
}

type recordParams struct {
	AccountID   string
	Amount      decimal.Decimal
	Kind        string
	Description string
	Recipient   string
	Category    string
	Date        time.Time
}

// appendRecord appends an immutable transaction record to the open
// update. The amount must already carry the sign matching its kind; the
// callers in this package construct both from the same delta.
func appendRecord(snap *storage.Snapshot, p recordParams) domain.Transaction {
	record := domain.Transaction{
		ID:          "txn-" + uuid.New().String(),
		AccountID:   p.AccountID,
		Date:        p.Date,
		Description: p.Description,
		Amount:      p.Amount,
		Kind:        p.Kind,
		Category:    p.Category,
		Recipient:   p.Recipient,
		Status:      domain.StatusCompleted,
	}
	snap.Transactions = append(snap.Transactions, record)
	return record
}

// publishRecord emits a transaction-completed event. The snapshot is
// already committed; publish failures are counted and logged, never
// propagated.
func (s *LedgerService) publishRecord(ctx context.Context, record domain.Transaction) {
	evt := domain.TransactionCompletedEvent{
		TransactionID: record.ID,
		AccountID:     record.AccountID,
		Amount:        record.Amount,
		Kind:          record.Kind,
		Category:      record.Category,
		OccurredAt:    record.Date,
	}
	if err := s.publisher.PublishTransactionCompleted(ctx, evt); err != nil {
		s.metrics.IncrEventPublished("error")
		s.logger.Warn("event publish failed",
			zap.String("transaction_id", record.ID),
			zap.Error(err),
		)
		return
	}
	s.metrics.IncrEventPublished("success")
}
