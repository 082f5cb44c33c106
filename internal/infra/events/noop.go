// Package events provides the no-op publisher used when no broker is
// configured.
package events

import (
	"context"

	"github.com/boddenberg/cardpay-ledger-go/internal/domain"
	"github.com/boddenberg/cardpay-ledger-go/internal/port"
)

// NoopPublisher discards all events.
type NoopPublisher struct{}

func (NoopPublisher) PublishTransactionCompleted(context.Context, domain.TransactionCompletedEvent) error {
	return nil
}

func (NoopPublisher) Close() error { return nil }

var _ port.EventPublisher = NoopPublisher{}
