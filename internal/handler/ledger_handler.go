package handler

import (
	"encoding/json"
	"net/http"

	"github.com/boddenberg/cardpay-ledger-go/internal/domain"
	"github.com/boddenberg/cardpay-ledger-go/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Transfer: POST /api/send-money
// ============================================================

func sendMoneyHandler(ledgerSvc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /api/send-money")
		defer span.End()

		senderID := AccountIDFromContext(ctx)

		var req domain.SendMoneyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		resp, err := ledgerSvc.Transfer(ctx, senderID, req.RecipientEmail, req.Amount, req.Note)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

// ============================================================
// Withdraw: POST /api/withdraw
// ============================================================

func withdrawHandler(ledgerSvc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /api/withdraw")
		defer span.End()

		accountID := AccountIDFromContext(ctx)

		var req domain.WithdrawRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		resp, err := ledgerSvc.Withdraw(ctx, accountID, req.Amount, req.CardID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, resp)
	}
}
