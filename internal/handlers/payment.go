package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/markjakearzadon/apostas-gobackend/internal/services"
)

// PaymentHandler serves payment creation and Mercado Pago notifications.
type PaymentHandler struct {
	service       *services.PaymentService
	webhookSecret string
	log           *zap.Logger
}

// NewPaymentHandler builds the handler. An empty webhookSecret disables
// signature checks on notifications.
func NewPaymentHandler(service *services.PaymentService, webhookSecret string, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{service: service, webhookSecret: webhookSecret, log: log}
}

// CreateCheckout handles POST /criar-pagamento.
func (h *PaymentHandler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	var sub services.BetSubmission
	if err := decodeBody(w, r, &sub); err != nil {
		writeError(w, http.StatusBadRequest, "corpo da requisição inválido")
		return
	}

	out, err := h.service.CreateCheckout(r.Context(), sub)
	if err != nil {
		h.creationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// CreatePix handles POST /gerar-pagamento.
func (h *PaymentHandler) CreatePix(w http.ResponseWriter, r *http.Request) {
	var sub services.BetSubmission
	if err := decodeBody(w, r, &sub); err != nil {
		writeError(w, http.StatusBadRequest, "corpo da requisição inválido")
		return
	}

	out, err := h.service.CreatePix(r.Context(), sub)
	if err != nil {
		h.creationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *PaymentHandler) creationError(w http.ResponseWriter, err error) {
	if errors.Is(err, services.ErrInvalidRequest) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, "Erro ao criar pagamento: "+err.Error())
}

// notificationBody covers both the current {"type","data":{"id"}} shape
// and the legacy {"topic","resource"} one.
type notificationBody struct {
	Type     string `json:"type"`
	Topic    string `json:"topic"`
	Action   string `json:"action"`
	Resource string `json:"resource"`
	Data     struct {
		ID flexibleID `json:"id"`
	} `json:"data"`
}

// flexibleID accepts a JSON string or number.
type flexibleID string

func (f *flexibleID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexibleID(n.String())
	return nil
}

func parseNotification(r *http.Request) services.Notification {
	q := r.URL.Query()
	n := services.Notification{
		PaymentID: firstNonEmpty(q.Get("data.id"), q.Get("id")),
		Topic:     firstNonEmpty(q.Get("type"), q.Get("topic")),
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil || len(strings.TrimSpace(string(raw))) == 0 {
		return n
	}
	var body notificationBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return n
	}
	if n.PaymentID == "" {
		n.PaymentID = firstNonEmpty(string(body.Data.ID), lastSegment(body.Resource))
	}
	if n.Topic == "" {
		n.Topic = firstNonEmpty(body.Type, body.Topic)
	}
	return n
}

// Webhook handles POST /webhook and /notificacao. It answers 500 only when
// the notification must be redelivered.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	n := parseNotification(r)

	if h.webhookSecret != "" {
		if !services.VerifySignature(h.webhookSecret, r.Header.Get("x-signature"), r.Header.Get("x-request-id"), n.PaymentID) {
			h.log.Warn("rejected notification with bad signature", zap.String("id", n.PaymentID))
			writeError(w, http.StatusUnauthorized, "assinatura inválida")
			return
		}
	}

	outcome, err := h.service.HandleNotification(r.Context(), n)
	if err != nil {
		h.log.Error("notification processing failed", zap.String("id", n.PaymentID), zap.Error(err))
		http.Error(w, "Erro ao processar pagamento", http.StatusInternalServerError)
		return
	}

	h.log.Debug("notification processed", zap.String("id", n.PaymentID), zap.String("outcome", outcome))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func lastSegment(resource string) string {
	resource = strings.TrimRight(resource, "/")
	if i := strings.LastIndex(resource, "/"); i >= 0 {
		return resource[i+1:]
	}
	return resource
}
