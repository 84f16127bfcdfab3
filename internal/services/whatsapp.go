package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/markjakearzadon/apostas-gobackend/internal/logger"
	"github.com/markjakearzadon/apostas-gobackend/internal/models"
)

const maxMessageLength = 4096

// WhatsAppService sends text messages through the WhatsApp Cloud API.
type WhatsAppService struct {
	token   string
	phoneID string
	baseURL string
	client  *http.Client
	log     *zap.Logger
}

// NewWhatsAppService creates the sender. Without token or phoneID every
// Send returns ErrDisabled.
func NewWhatsAppService(token, phoneID, baseURL string, log *zap.Logger) *WhatsAppService {
	return &WhatsAppService{
		token:   token,
		phoneID: phoneID,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     log,
	}
}

type whatsAppTextRequest struct {
	MessagingProduct string `json:"messaging_product"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Text             struct {
		Body string `json:"body"`
	} `json:"text"`
}

// Send delivers msg as a text message and returns the message ID.
func (s *WhatsAppService) Send(ctx context.Context, msg models.WhatsAppMessage) (*models.SentMessage, error) {
	if s.token == "" || s.phoneID == "" {
		return nil, ErrDisabled
	}
	msg.Phone = strings.TrimSpace(msg.Phone)
	msg.Message = strings.TrimSpace(msg.Message)
	if !ValidPhone(msg.Phone) {
		return nil, fmt.Errorf("%w: telefone must have 11 to 13 digits", ErrInvalidRequest)
	}
	if msg.Message == "" || len(msg.Message) > maxMessageLength {
		return nil, fmt.Errorf("%w: mensagem must have 1 to %d characters", ErrInvalidRequest, maxMessageLength)
	}

	body := whatsAppTextRequest{MessagingProduct: "whatsapp", To: msg.Phone, Type: "text"}
	body.Text.Body = msg.Message
	b, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/"+s.phoneID+"/messages", bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		s.log.Error("whatsapp request failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		s.log.Error("whatsapp api error", zap.Int("status", resp.StatusCode), zap.ByteString("body", detail))
		return nil, fmt.Errorf("%w: whatsapp api status %d: %s", ErrUpstream, resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var out struct {
		Messages []struct {
			ID string `json:"id"`
		} `json:"messages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode whatsapp response: %v", ErrUpstream, err)
	}
	if len(out.Messages) == 0 {
		return nil, fmt.Errorf("%w: whatsapp response without message id", ErrUpstream)
	}

	s.log.Info("whatsapp message sent", zap.String("telefone", logger.MaskPhone(msg.Phone)), zap.String("message_id", out.Messages[0].ID))
	return &models.SentMessage{MessageID: out.Messages[0].ID, Phone: msg.Phone}, nil
}
