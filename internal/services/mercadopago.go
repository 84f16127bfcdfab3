package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// PreferenceItem is one line of a checkout preference.
type PreferenceItem struct {
	Title      string  `json:"title"`
	UnitPrice  float64 `json:"unit_price"`
	Quantity   int     `json:"quantity"`
	CurrencyID string  `json:"currency_id,omitempty"`
}

// PreferencePayer carries the bettor contact sent with a preference.
type PreferencePayer struct {
	Phone struct {
		Number string `json:"number"`
	} `json:"phone"`
}

// BackURLs are where the hosted checkout sends the buyer afterwards.
type BackURLs struct {
	Success string `json:"success"`
	Failure string `json:"failure"`
	Pending string `json:"pending"`
}

// PreferenceRequest is the body of POST /checkout/preferences.
type PreferenceRequest struct {
	Items             []PreferenceItem `json:"items"`
	Payer             *PreferencePayer `json:"payer,omitempty"`
	ExternalReference string           `json:"external_reference"`
	NotificationURL   string           `json:"notification_url,omitempty"`
	BackURLs          *BackURLs        `json:"back_urls,omitempty"`
	AutoReturn        string           `json:"auto_return,omitempty"`
}

// PreferenceResponse holds the fields of a created preference this service returns.
type PreferenceResponse struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
}

// PixPaymentRequest is the body of POST /v1/payments for a PIX charge.
type PixPaymentRequest struct {
	TransactionAmount float64 `json:"transaction_amount"`
	Description       string  `json:"description"`
	PaymentMethodID   string  `json:"payment_method_id"`
	ExternalReference string  `json:"external_reference"`
	NotificationURL   string  `json:"notification_url,omitempty"`
	Payer             struct {
		Email string `json:"email"`
	} `json:"payer"`
}

// ProcessorPayment is the subset of a Mercado Pago payment this service reads.
type ProcessorPayment struct {
	ID                 int64   `json:"id"`
	Status             string  `json:"status"`
	StatusDetail       string  `json:"status_detail"`
	TransactionAmount  float64 `json:"transaction_amount"`
	ExternalReference  string  `json:"external_reference"`
	PointOfInteraction struct {
		TransactionData struct {
			QRCode       string `json:"qr_code"`
			QRCodeBase64 string `json:"qr_code_base64"`
			TicketURL    string `json:"ticket_url"`
		} `json:"transaction_data"`
	} `json:"point_of_interaction"`
}

// IDString is the payment ID in the form used as a document key.
func (p ProcessorPayment) IDString() string {
	return strconv.FormatInt(p.ID, 10)
}

// PaymentStatusApproved is the only status that confirms a bet.
const PaymentStatusApproved = "approved"

// MercadoPagoClient talks to the Mercado Pago REST API with an access token.
type MercadoPagoClient struct {
	accessToken string
	baseURL     string
	client      *http.Client
}

// NewMercadoPagoClient creates a client authenticated with accessToken.
// timeout bounds every request.
func NewMercadoPagoClient(accessToken, baseURL string, timeout time.Duration) *MercadoPagoClient {
	return &MercadoPagoClient{
		accessToken: accessToken,
		baseURL:     strings.TrimRight(baseURL, "/"),
		client:      &http.Client{Timeout: timeout},
	}
}

// CreatePreference creates a hosted checkout preference.
func (c *MercadoPagoClient) CreatePreference(ctx context.Context, pref PreferenceRequest) (*PreferenceResponse, error) {
	var out PreferenceResponse
	if err := c.do(ctx, http.MethodPost, "/checkout/preferences", pref, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreatePixPayment creates a PIX payment. idempotencyKey is sent as
// X-Idempotency-Key so a retried request cannot charge twice.
func (c *MercadoPagoClient) CreatePixPayment(ctx context.Context, req PixPaymentRequest, idempotencyKey string) (*ProcessorPayment, error) {
	var out ProcessorPayment
	if err := c.do(ctx, http.MethodPost, "/v1/payments", req, idempotencyKey, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetPayment fetches a payment by ID. The ID is path-escaped.
func (c *MercadoPagoClient) GetPayment(ctx context.Context, paymentID string) (*ProcessorPayment, error) {
	var out ProcessorPayment
	if err := c.do(ctx, http.MethodGet, "/v1/payments/"+url.PathEscape(paymentID), nil, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *MercadoPagoClient) do(ctx context.Context, method, path string, body any, idempotencyKey string, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idempotencyKey != "" {
		req.Header.Set("X-Idempotency-Key", idempotencyKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("mercado pago error: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode mercado pago response: %w", err)
	}
	return nil
}
