package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/markjakearzadon/apostas-gobackend/internal/events"
	"github.com/markjakearzadon/apostas-gobackend/internal/logger"
	"github.com/markjakearzadon/apostas-gobackend/internal/metrics"
	"github.com/markjakearzadon/apostas-gobackend/internal/models"
)

// PaymentProcessor is the part of the Mercado Pago API the payment flow uses.
type PaymentProcessor interface {
	CreatePreference(ctx context.Context, pref PreferenceRequest) (*PreferenceResponse, error)
	CreatePixPayment(ctx context.Context, req PixPaymentRequest, idempotencyKey string) (*ProcessorPayment, error)
	GetPayment(ctx context.Context, paymentID string) (*ProcessorPayment, error)
}

// BetStore is implemented by BetService.
type BetStore interface {
	CreateConfirmed(ctx context.Context, bet *models.Bet) (bool, error)
	ExistsConfirmed(ctx context.Context, paymentID string) (bool, error)
	FindByPhone(ctx context.Context, phone string) ([]models.Bet, error)
	StagePending(ctx context.Context, p *models.PendingBet) error
	GetPending(ctx context.Context, paymentID string) (*models.PendingBet, error)
	DeletePending(ctx context.Context, paymentID string) error
}

// ConfirmationPublisher announces newly confirmed bets.
type ConfirmationPublisher interface {
	PublishBetConfirmed(ctx context.Context, e events.BetConfirmed) error
}

// PaymentConfig holds the settings used to build processor requests.
type PaymentConfig struct {
	// PublicURL is the externally reachable base URL of this service.
	PublicURL  string
	PayerEmail string
}

// Notification is what a webhook delivery is reduced to. Status fields of
// the delivery are never read.
type Notification struct {
	PaymentID string
	Topic     string
}

// Webhook outcomes, also used as metric labels.
const (
	OutcomeIgnored          = "ignored"
	OutcomeNotApproved      = "not_approved"
	OutcomeConfirmed        = "confirmed"
	OutcomeDuplicate        = "duplicate"
	OutcomeMissingReference = "missing_reference"
	OutcomeFailed           = "failed"
)

// Mercado Pago payment IDs are numeric.
var paymentIDPattern = regexp.MustCompile(`^\d+$`)

// PaymentService creates payments and turns approved payment
// notifications into confirmed bets.
type PaymentService struct {
	processor PaymentProcessor
	store     BetStore
	publisher ConfirmationPublisher
	cfg       PaymentConfig
	log       *zap.Logger
	now       func() time.Time
}

// NewPaymentService wires the payment flow. A nil publisher disables
// confirmation events.
func NewPaymentService(processor PaymentProcessor, store BetStore, publisher ConfirmationPublisher, cfg PaymentConfig, log *zap.Logger) *PaymentService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &PaymentService{
		processor: processor,
		store:     store,
		publisher: publisher,
		cfg:       cfg,
		log:       log,
		now:       time.Now,
	}
}

func (s *PaymentService) notificationURL() string {
	if s.cfg.PublicURL == "" {
		return ""
	}
	return s.cfg.PublicURL + "/notificacao"
}

// CreateCheckout creates a Mercado Pago preference and returns the hosted
// checkout page.
func (s *PaymentService) CreateCheckout(ctx context.Context, sub BetSubmission) (*models.CheckoutPayment, error) {
	if err := sub.Validate(); err != nil {
		return nil, err
	}
	ref, err := EncodeReference(Reference{Bet: sub.Bet, Phone: sub.Phone})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	pref := PreferenceRequest{
		Items: []PreferenceItem{{
			Title:      "Aposta: " + sub.Bet,
			UnitPrice:  sub.AmountFloat(),
			Quantity:   1,
			CurrencyID: "BRL",
		}},
		Payer:             &PreferencePayer{},
		ExternalReference: ref,
		NotificationURL:   s.notificationURL(),
	}
	pref.Payer.Phone.Number = sub.Phone
	if s.cfg.PublicURL != "" {
		pref.BackURLs = &BackURLs{
			Success: s.cfg.PublicURL + "/sucesso",
			Failure: s.cfg.PublicURL + "/erro",
			Pending: s.cfg.PublicURL + "/pendente",
		}
		pref.AutoReturn = PaymentStatusApproved
	}

	s.log.Info("creating checkout preference",
		zap.String("telefone", logger.MaskPhone(sub.Phone)),
		zap.Float64("valor", sub.AmountFloat()))

	resp, err := s.processor.CreatePreference(ctx, pref)
	if err != nil {
		metrics.PaymentsCreated.WithLabelValues("checkout", "error").Inc()
		s.log.Error("failed to create preference", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrPaymentCreationFailed, err)
	}
	if resp.ID == "" || resp.InitPoint == "" {
		metrics.PaymentsCreated.WithLabelValues("checkout", "error").Inc()
		s.log.Error("preference response without id or init_point", zap.String("id", resp.ID))
		return nil, fmt.Errorf("%w: preference response without id or init_point", ErrPaymentCreationFailed)
	}

	metrics.PaymentsCreated.WithLabelValues("checkout", "ok").Inc()
	s.log.Info("checkout preference created", zap.String("preference_id", resp.ID))
	return &models.CheckoutPayment{
		ID:               resp.ID,
		InitPoint:        resp.InitPoint,
		SandboxInitPoint: resp.SandboxInitPoint,
	}, nil
}

// CreatePix creates a direct PIX payment and stages a pending bet under
// the returned payment ID.
func (s *PaymentService) CreatePix(ctx context.Context, sub BetSubmission) (*models.PixPayment, error) {
	if err := sub.Validate(); err != nil {
		return nil, err
	}
	ref, err := EncodeReference(Reference{Bet: sub.Bet, Phone: sub.Phone})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	req := PixPaymentRequest{
		TransactionAmount: sub.AmountFloat(),
		Description:       "Aposta: " + sub.Bet,
		PaymentMethodID:   "pix",
		ExternalReference: ref,
		NotificationURL:   s.notificationURL(),
	}
	req.Payer.Email = s.cfg.PayerEmail

	s.log.Info("creating pix payment",
		zap.String("telefone", logger.MaskPhone(sub.Phone)),
		zap.Float64("valor", sub.AmountFloat()))

	p, err := s.processor.CreatePixPayment(ctx, req, uuid.NewString())
	if err != nil {
		metrics.PaymentsCreated.WithLabelValues("pix", "error").Inc()
		s.log.Error("failed to create pix payment", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrPaymentCreationFailed, err)
	}
	td := p.PointOfInteraction.TransactionData
	if p.ID == 0 || (td.QRCode == "" && td.QRCodeBase64 == "") {
		metrics.PaymentsCreated.WithLabelValues("pix", "error").Inc()
		s.log.Error("pix response without payment id or qr code", zap.Int64("payment_id", p.ID))
		return nil, fmt.Errorf("%w: pix response without payment id or qr code", ErrPaymentCreationFailed)
	}

	paymentID := p.IDString()
	pending := &models.PendingBet{
		PaymentID: paymentID,
		Bet:       sub.Bet,
		Phone:     sub.Phone,
		Amount:    sub.AmountFloat(),
		Status:    models.BetStatusPending,
		CreatedAt: s.now(),
	}
	// the payment's external reference still lets the webhook recover the bet
	if err := s.store.StagePending(ctx, pending); err != nil {
		s.log.Error("failed to stage pending bet", zap.String("payment_id", paymentID), zap.Error(err))
	}

	metrics.PaymentsCreated.WithLabelValues("pix", "ok").Inc()
	s.log.Info("pix payment created", zap.String("payment_id", paymentID), zap.String("status", p.Status))
	return &models.PixPayment{
		PaymentID:    paymentID,
		Status:       p.Status,
		QRCode:       td.QRCode,
		QRCodeBase64: td.QRCodeBase64,
		TicketURL:    td.TicketURL,
	}, nil
}

// HandleNotification re-fetches the notified payment and records the bet
// when it is approved. Only ErrNotificationProcessing errors are returned;
// every other problem is logged and acknowledged.
func (s *PaymentService) HandleNotification(ctx context.Context, n Notification) (string, error) {
	topic := strings.ToLower(strings.TrimSpace(n.Topic))
	if topic != "payment" {
		s.log.Info("ignoring notification", zap.String("topic", n.Topic), zap.String("id", n.PaymentID))
		return s.outcome(OutcomeIgnored), nil
	}
	paymentID := strings.TrimSpace(n.PaymentID)
	if paymentID == "" {
		s.log.Warn("payment notification without id")
		return s.outcome(OutcomeIgnored), nil
	}
	if !paymentIDPattern.MatchString(paymentID) {
		s.log.Warn("payment notification with malformed id", zap.String("id", paymentID))
		return s.outcome(OutcomeIgnored), nil
	}

	payment, err := s.processor.GetPayment(ctx, paymentID)
	if err != nil {
		s.log.Error("failed to fetch notified payment", zap.String("payment_id", paymentID), zap.Error(err))
		s.outcome(OutcomeFailed)
		return OutcomeFailed, fmt.Errorf("%w: fetch payment %s: %v", ErrNotificationProcessing, paymentID, err)
	}

	if payment.Status != PaymentStatusApproved {
		s.log.Info("payment not approved",
			zap.String("payment_id", paymentID),
			zap.String("status", payment.Status),
			zap.String("status_detail", payment.StatusDetail))
		return s.outcome(OutcomeNotApproved), nil
	}

	if payment.ID <= 0 {
		s.log.Error("fetched payment without id", zap.String("notified_id", paymentID))
		s.outcome(OutcomeFailed)
		return OutcomeFailed, fmt.Errorf("%w: payment %s fetched without id", ErrNotificationProcessing, paymentID)
	}

	// the fetched ID is the dedup key, never the notified string
	return s.confirm(ctx, payment.IDString(), payment)
}

func (s *PaymentService) confirm(ctx context.Context, paymentID string, payment *ProcessorPayment) (string, error) {
	var ref Reference
	pending, err := s.store.GetPending(ctx, paymentID)
	switch {
	case err == nil:
		ref = Reference{Bet: pending.Bet, Phone: pending.Phone}
	case errors.Is(err, ErrNotFound):
		ref, err = DecodeReference(payment.ExternalReference)
		if err != nil {
			s.log.Error("approved payment without usable reference",
				zap.String("payment_id", paymentID), zap.Error(err))
			return s.outcome(OutcomeMissingReference), nil
		}
	default:
		s.outcome(OutcomeFailed)
		return OutcomeFailed, fmt.Errorf("%w: %v", ErrNotificationProcessing, err)
	}

	bet := &models.Bet{
		ID:        paymentID,
		Bet:       ref.Bet,
		Phone:     ref.Phone,
		Amount:    payment.TransactionAmount,
		PaymentID: paymentID,
		Status:    models.BetStatusPaid,
		CreatedAt: s.now(),
	}
	created, err := s.store.CreateConfirmed(ctx, bet)
	if err != nil {
		s.log.Error("failed to record bet", zap.String("payment_id", paymentID), zap.Error(err))
		s.outcome(OutcomeFailed)
		return OutcomeFailed, fmt.Errorf("%w: %v", ErrNotificationProcessing, err)
	}

	if pending != nil {
		if err := s.store.DeletePending(ctx, paymentID); err != nil {
			s.log.Warn("failed to delete pending bet", zap.String("payment_id", paymentID), zap.Error(err))
		}
	}

	if !created {
		return s.outcome(OutcomeDuplicate), nil
	}

	metrics.BetsConfirmed.Inc()
	s.log.Info("bet confirmed",
		zap.String("payment_id", paymentID),
		zap.String("telefone", logger.MaskPhone(bet.Phone)),
		zap.Float64("valor", bet.Amount))

	if err := s.publisher.PublishBetConfirmed(ctx, events.BetConfirmed{
		PaymentID: paymentID,
		Bet:       bet.Bet,
		Phone:     bet.Phone,
		Amount:    bet.Amount,
	}); err != nil {
		s.log.Warn("failed to publish bet confirmed", zap.String("payment_id", paymentID), zap.Error(err))
	}
	return s.outcome(OutcomeConfirmed), nil
}

func (s *PaymentService) outcome(o string) string {
	metrics.WebhooksReceived.WithLabelValues(o).Inc()
	return o
}

// PaymentStatus reports "approved" once a bet exists for paymentID and
// "pending" otherwise.
func (s *PaymentService) PaymentStatus(ctx context.Context, paymentID string) (*models.PaymentStatus, error) {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return nil, fmt.Errorf("%w: payment id is required", ErrInvalidRequest)
	}
	ok, err := s.store.ExistsConfirmed(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	status := "pending"
	if ok {
		status = PaymentStatusApproved
	}
	return &models.PaymentStatus{PaymentID: paymentID, Status: status}, nil
}

// BetsByPhone lists the confirmed bets of a phone number.
func (s *PaymentService) BetsByPhone(ctx context.Context, phone string) ([]models.Bet, error) {
	if !ValidPhone(phone) {
		return nil, fmt.Errorf("%w: telefone must have 11 to 13 digits", ErrInvalidRequest)
	}
	bets, err := s.store.FindByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}
	if len(bets) == 0 {
		return nil, fmt.Errorf("%w: no bets for this phone", ErrNotFound)
	}
	return bets, nil
}
