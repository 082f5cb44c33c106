package handler

import (
	"encoding/json"
	"net/http"

	"github.com/boddenberg/cardpay-ledger-go/internal/domain"
	"github.com/boddenberg/cardpay-ledger-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Cards: GET /api/cards/{userId}, POST /api/cards,
//         DELETE /api/cards/{cardId}
// ============================================================

func listCardsHandler(cardSvc *service.CardService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/cards/{userId}")
		defer span.End()

		userID := chi.URLParam(r, "userId")
		span.SetAttributes(attribute.String("account.id", userID))

		cards, err := cardSvc.ListCards(ctx, userID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, cards)
	}
}

func addCardHandler(cardSvc *service.CardService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /api/cards")
		defer span.End()

		accountID := AccountIDFromContext(ctx)

		var req domain.AddCardRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		card, err := cardSvc.AddCard(ctx, accountID, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, card)
	}
}

func removeCardHandler(cardSvc *service.CardService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /api/cards/{cardId}")
		defer span.End()

		accountID := AccountIDFromContext(ctx)
		cardID := chi.URLParam(r, "cardId")
		span.SetAttributes(attribute.String("card.id", cardID))

		if err := cardSvc.RemoveCard(ctx, accountID, cardID); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, domain.SuccessResponse{Success: true})
	}
}
