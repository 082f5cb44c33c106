// Package storage defines the snapshot model shared by all store
// backends: the complete state of the ledger (accounts keyed by id,
// cards and transactions as ordered sequences) at one point in time.
package storage

import "github.com/boddenberg/cardpay-ledger-go/internal/domain"

// Snapshot is the full ledger state. Every mutation in the system runs
// against a snapshot inside a store update and commits as one unit.
type Snapshot struct {
	Accounts     map[string]domain.Account
	Cards        []domain.Card
	Transactions []domain.Transaction
}

// NewSnapshot returns an empty snapshot with initialized collections.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Accounts:     make(map[string]domain.Account),
		Cards:        make([]domain.Card, 0),
		Transactions: make([]domain.Transaction, 0),
	}
}

// Clone deep-copies the snapshot so a failed update never leaks partial
// mutations into committed state.
func (s *Snapshot) Clone() *Snapshot {
	c := &Snapshot{
		Accounts:     make(map[string]domain.Account, len(s.Accounts)),
		Cards:        make([]domain.Card, len(s.Cards)),
		Transactions: make([]domain.Transaction, len(s.Transactions)),
	}
	for id, acc := range s.Accounts {
		c.Accounts[id] = acc
	}
	copy(c.Cards, s.Cards)
	copy(c.Transactions, s.Transactions)
	return c
}

// AccountByEmail scans for an account with the given email. Emails are
// compared exactly as stored.
func (s *Snapshot) AccountByEmail(email string) (domain.Account, bool) {
	for _, acc := range s.Accounts {
		if acc.Email == email {
			return acc, true
		}
	}
	return domain.Account{}, false
}

// CardsByAccount returns the cards bound to the given account, in
// insertion order.
func (s *Snapshot) CardsByAccount(accountID string) []domain.Card {
	cards := make([]domain.Card, 0)
	for _, c := range s.Cards {
		if c.AccountID == accountID {
			cards = append(cards, c)
		}
	}
	return cards
}
