package service

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/cardpay-ledger-go/internal/domain"
	"github.com/boddenberg/cardpay-ledger-go/internal/infra/observability"
	"github.com/boddenberg/cardpay-ledger-go/internal/port"
	"github.com/boddenberg/cardpay-ledger-go/internal/storage"
)

var cardsTracer = otel.Tracer("service/cards")

// CardService manages the cards bound to an account.
type CardService struct {
	store           port.SnapshotStore
	metrics         *observability.Metrics
	logger          *zap.Logger
	reelectOnRemove bool
}

// NewCardService creates a new card service. When reelectOnRemove is
// set, removing the default card promotes the account's oldest
// remaining card; otherwise the account is simply left without a
// default.
func NewCardService(store port.SnapshotStore, metrics *observability.Metrics, reelectOnRemove bool, logger *zap.Logger) *CardService {
	return &CardService{
		store:           store,
		metrics:         metrics,
		logger:          logger,
		reelectOnRemove: reelectOnRemove,
	}
}

// ============================================================
// List cards: GET /api/cards/{userID}
// ============================================================

func (s *CardService) ListCards(ctx context.Context, accountID string) ([]domain.Card, error) {
	ctx, span := cardsTracer.Start(ctx, "CardService.ListCards")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID))

	var cards []domain.Card
	err := s.store.View(ctx, func(snap *storage.Snapshot) error {
		cards = snap.CardsByAccount(accountID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cards, nil
}

// ============================================================
// Add card: POST /api/cards
// ============================================================

// AddCard binds a new card to the account. The first card an account
// registers becomes its default.
func (s *CardService) AddCard(ctx context.Context, accountID string, req *domain.AddCardRequest) (*domain.Card, error) {
	ctx, span := cardsTracer.Start(ctx, "CardService.AddCard")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID))

	if req.CardNumber == "" {
		return nil, &domain.ErrValidation{Field: "cardNumber", Message: "required"}
	}
	if req.CardHolder == "" {
		return nil, &domain.ErrValidation{Field: "cardHolder", Message: "required"}
	}
	if req.ExpiryMonth == "" || req.ExpiryYear == "" {
		return nil, &domain.ErrValidation{Field: "expiry", Message: "month and year required"}
	}

	card := domain.Card{
		ID:         "card-" + uuid.New().String(),
		AccountID:  accountID,
		CardNumber: req.CardNumber,
		CardHolder: req.CardHolder,
		ExpiryDate: req.ExpiryMonth + "/" + req.ExpiryYear,
		CVV:        req.CVV,
		CardType:   "visa",
	}

	err := s.store.Update(ctx, func(snap *storage.Snapshot) error {
		if _, ok := snap.Accounts[accountID]; !ok {
			return &domain.ErrNotFound{Resource: "user", ID: accountID}
		}
		card.IsDefault = len(snap.CardsByAccount(accountID)) == 0
		snap.Cards = append(snap.Cards, card)
		return nil
	})
	if err != nil {
		s.metrics.IncrOperation("add_card", "error")
		return nil, err
	}

	s.metrics.IncrOperation("add_card", "success")
	s.metrics.IncrSnapshotSave()
	s.logger.Info("card added",
		zap.String("account_id", accountID),
		zap.String("card_id", card.ID),
		zap.Bool("is_default", card.IsDefault),
	)
	return &card, nil
}

// ============================================================
// Remove card: DELETE /api/cards/{cardID}
// ============================================================

func (s *CardService) RemoveCard(ctx context.Context, accountID, cardID string) error {
	ctx, span := cardsTracer.Start(ctx, "CardService.RemoveCard")
	defer span.End()
	span.SetAttributes(attribute.String("card.id", cardID))

	err := s.store.Update(ctx, func(snap *storage.Snapshot) error {
		idx := -1
		for i := range snap.Cards {
			if snap.Cards[i].ID == cardID && snap.Cards[i].AccountID == accountID {
				idx = i
				break
			}
		}
		if idx == -1 {
			return &domain.ErrNotFound{Resource: "card", ID: cardID}
		}

		removed := snap.Cards[idx]
		snap.Cards = append(snap.Cards[:idx], snap.Cards[idx+1:]...)

		if removed.IsDefault && s.reelectOnRemove {
			for i := range snap.Cards {
				if snap.Cards[i].AccountID == accountID {
					snap.Cards[i].IsDefault = true
					break
				}
			}
		}
		return nil
	})
	if err != nil {
		s.metrics.IncrOperation("remove_card", "error")
		return err
	}

	s.metrics.IncrOperation("remove_card", "success")
	s.metrics.IncrSnapshotSave()
	s.logger.Info("card removed",
		zap.String("account_id", accountID),
		zap.String("card_id", cardID),
	)
	return nil
}
