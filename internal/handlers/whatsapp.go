package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/markjakearzadon/apostas-gobackend/internal/models"
	"github.com/markjakearzadon/apostas-gobackend/internal/services"
)

// WhatsAppHandler serves the message sending endpoint.
type WhatsAppHandler struct {
	service *services.WhatsAppService
	log     *zap.Logger
}

// NewWhatsAppHandler creates a WhatsAppHandler.
func NewWhatsAppHandler(service *services.WhatsAppService, log *zap.Logger) *WhatsAppHandler {
	return &WhatsAppHandler{service: service, log: log}
}

// Send handles POST /enviar-whatsapp.
func (h *WhatsAppHandler) Send(w http.ResponseWriter, r *http.Request) {
	var msg models.WhatsAppMessage
	if err := decodeBody(w, r, &msg); err != nil {
		writeError(w, http.StatusBadRequest, "corpo da requisição inválido")
		return
	}

	sent, err := h.service.Send(r.Context(), msg)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			h.log.Error("failed to send whatsapp message", zap.Error(err))
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sent)
}
