package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/markjakearzadon/apostas-gobackend/internal/models"
)

// BetLookup is implemented by services.PaymentService.
type BetLookup interface {
	PaymentStatus(ctx context.Context, paymentID string) (*models.PaymentStatus, error)
	BetsByPhone(ctx context.Context, phone string) ([]models.Bet, error)
}

// BetHandler serves the status and bet lookup endpoints.
type BetHandler struct {
	lookup BetLookup
	log    *zap.Logger
}

// NewBetHandler creates a BetHandler.
func NewBetHandler(lookup BetLookup, log *zap.Logger) *BetHandler {
	return &BetHandler{lookup: lookup, log: log}
}

// PaymentStatus handles GET /status-pagamento/{paymentId}.
func (h *BetHandler) PaymentStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.lookup.PaymentStatus(r.Context(), mux.Vars(r)["paymentId"])
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			h.log.Error("failed to read payment status", zap.Error(err))
			writeError(w, status, "Erro ao consultar pagamento")
			return
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// ListByPhone handles GET /consultar-apostas/{telefone}.
func (h *BetHandler) ListByPhone(w http.ResponseWriter, r *http.Request) {
	bets, err := h.lookup.BetsByPhone(r.Context(), mux.Vars(r)["telefone"])
	if err != nil {
		status := statusFor(err)
		switch status {
		case http.StatusNotFound:
			writeError(w, status, "Nenhuma aposta encontrada para este telefone.")
		case http.StatusBadRequest:
			writeError(w, status, "Telefone inválido.")
		default:
			h.log.Error("failed to list bets", zap.Error(err))
			writeError(w, status, "Erro ao consultar apostas.")
		}
		return
	}
	writeJSON(w, http.StatusOK, bets)
}
