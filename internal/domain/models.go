// Package domain defines the core business entities for the CardPay
// ledger. These models are independent of transport and storage and
// represent the canonical data structures used throughout the service.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Accounts
// ============================================================

// Account is a user's identity plus monetary balance record.
// PasswordHash is the bcrypt hash of the login password and is never
// serialized to clients.
type Account struct {
	ID           string          `json:"id"`
	Email        string          `json:"email"`
	FirstName    string          `json:"firstName"`
	LastName     string          `json:"lastName"`
	Balance      decimal.Decimal `json:"balance"`
	PasswordHash string          `json:"-"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// FullName returns the display name used in transfer descriptions.
func (a Account) FullName() string {
	return a.FirstName + " " + a.LastName
}

// ============================================================
// Transactions
// ============================================================

// Transaction kinds. A debit record carries a negative amount, a credit
// record a positive one; the amount always equals the delta applied to
// the owning account's balance at the moment of recording.
const (
	KindCredit = "credit"
	KindDebit  = "debit"
)

// Transaction categories produced by the ledger orchestration.
const (
	CategoryTransfer   = "Transfer"
	CategoryWithdrawal = "Withdrawal"
)

// StatusCompleted is the terminal status of every record the ledger
// writes: operations either complete or fail before recording.
const StatusCompleted = "completed"

// Transaction is an immutable log entry describing one signed balance
// change. Records are append-only; nothing edits or removes them.
type Transaction struct {
	ID          string          `json:"id"`
	AccountID   string          `json:"userId"`
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Kind        string          `json:"type"`
	Category    string          `json:"category"`
	Recipient   string          `json:"recipient"`
	Status      string          `json:"status"`
}

// TransactionCompletedEvent is published after a transaction record has
// been committed to the store.
type TransactionCompletedEvent struct {
	TransactionID string          `json:"transaction_id"`
	AccountID     string          `json:"account_id"`
	Amount        decimal.Decimal `json:"amount"`
	Kind          string          `json:"kind"`
	Category      string          `json:"category"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// ============================================================
// Cards
// ============================================================

// Card is a payment card bound to an account. Cards are created and
// deleted, never mutated.
type Card struct {
	ID         string `json:"id"`
	AccountID  string `json:"userId"`
	CardNumber string `json:"cardNumber"`
	CardHolder string `json:"cardHolder"`
	ExpiryDate string `json:"expiryDate"` // MM/YY
	CVV        string `json:"cvv"`
	CardType   string `json:"type"`
	IsDefault  bool   `json:"isDefault"`
}

// Last4 returns the last four characters of the card number.
func (c Card) Last4() string {
	if len(c.CardNumber) < 4 {
		return c.CardNumber
	}
	return c.CardNumber[len(c.CardNumber)-4:]
}

// ============================================================
// Auth: request / response types (matches frontend API contract)
// ============================================================

// RegisterRequest is the body for POST /api/auth/register.
type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// LoginRequest is the body for POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	User  *Account `json:"user"`
	Token string   `json:"token"`
}

// ============================================================
// Ledger: request / response types
// ============================================================

// SendMoneyRequest is the body for POST /api/send-money.
type SendMoneyRequest struct {
	RecipientEmail string          `json:"recipientEmail"`
	Amount         decimal.Decimal `json:"amount"`
	Note           string          `json:"note,omitempty"`
}

// WithdrawRequest is the body for POST /api/withdraw.
type WithdrawRequest struct {
	Amount decimal.Decimal `json:"amount"`
	CardID string          `json:"cardId"`
}

// MutationResponse is returned by send-money and withdraw: the caller's
// transaction record plus the caller's post-operation balance.
type MutationResponse struct {
	Success     bool            `json:"success"`
	Transaction *Transaction    `json:"transaction"`
	NewBalance  decimal.Decimal `json:"newBalance"`
}

// AddCardRequest is the body for POST /api/cards.
type AddCardRequest struct {
	CardNumber  string `json:"cardNumber"`
	CardHolder  string `json:"cardHolder"`
	ExpiryMonth string `json:"expiryMonth"`
	ExpiryYear  string `json:"expiryYear"`
	CVV         string `json:"cvv"`
}

// SuccessResponse wraps operations with no entity payload.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// ============================================================
// Ops: GET /api/stats
// ============================================================

// LedgerStats is a snapshot of operational counters, read back from the
// Prometheus registry for the stats endpoint.
type LedgerStats struct {
	TransfersTotal    int64   `json:"transfersTotal"`
	WithdrawalsTotal  int64   `json:"withdrawalsTotal"`
	DebitsRecorded    int64   `json:"debitsRecorded"`
	CreditsRecorded   int64   `json:"creditsRecorded"`
	OperationErrors   int64   `json:"operationErrors"`
	EventsPublished   int64   `json:"eventsPublished"`
	EventPublishFails int64   `json:"eventPublishFails"`
	ErrorRate         float64 `json:"errorRate"`
}
