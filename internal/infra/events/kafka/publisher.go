// Package kafka publishes ledger events to a Kafka topic. Publishing
// happens after the snapshot commit and is wrapped in retry + circuit
// breaker so a slow or dead broker cannot stall ledger operations
// beyond the configured backoff budget.
package kafka

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/boddenberg/cardpay-ledger-go/internal/domain"
	"github.com/boddenberg/cardpay-ledger-go/internal/infra/resilience"
	"github.com/boddenberg/cardpay-ledger-go/internal/port"
)

// Publisher writes transaction-completed events to a single topic.
type Publisher struct {
	writer *kafka.Writer
	cb     *gobreaker.CircuitBreaker
	cfg    resilience.Config
	logger *zap.Logger
}

// NewPublisher creates a publisher for the given brokers and topic.
func NewPublisher(brokers []string, topic string, cfg resilience.Config, logger *zap.Logger) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
		cb:     resilience.NewCircuitBreaker("kafka"),
		cfg:    cfg,
		logger: logger,
	}
}

// PublishTransactionCompleted emits one event per committed transaction
// record, keyed by account so per-account ordering survives partitioning.
func (p *Publisher) PublishTransactionCompleted(ctx context.Context, evt domain.TransactionCompletedEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	_, err = p.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, p.cfg, func() error {
			return p.writer.WriteMessages(ctx, kafka.Message{
				Key:   []byte(evt.AccountID),
				Value: data,
			})
		})
	})
	if err != nil {
		p.logger.Warn("kafka publish failed",
			zap.String("transaction_id", evt.TransactionID),
			zap.Error(err),
		)
	}
	return err
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

var _ port.EventPublisher = (*Publisher)(nil)
