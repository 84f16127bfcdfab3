package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// BetConfirmed is emitted once per newly confirmed bet.
type BetConfirmed struct {
	EventID   string  `json:"eventId"`
	PaymentID string  `json:"paymentId"`
	Bet       string  `json:"aposta"`
	Phone     string  `json:"telefone"`
	Amount    float64 `json:"valor"`
	TsUnixMs  int64   `json:"tsUnixMs"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes BetConfirmed events keyed by payment ID.
type KafkaPublisher struct {
	writer messageWriter
	log    *zap.Logger
}

// NewKafkaPublisher creates a publisher writing to topic on brokers.
func NewKafkaPublisher(brokers []string, topic string, log *zap.Logger) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
		ReadTimeout:            10 * time.Second,
		WriteTimeout:           10 * time.Second,
	}
	return &KafkaPublisher{writer: w, log: log}
}

// PublishBetConfirmed writes e, filling its event ID and timestamp when unset.
func (p *KafkaPublisher) PublishBetConfirmed(ctx context.Context, e BetConfirmed) error {
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	if e.TsUnixMs == 0 {
		e.TsUnixMs = time.Now().UnixMilli()
	}
	value, err := json.Marshal(e)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(e.PaymentID),
		Value: value,
		Time:  time.Now(),
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.log.Error("failed to publish bet confirmed", zap.String("payment_id", e.PaymentID), zap.Error(err))
		return err
	}

	p.log.Debug("published bet confirmed", zap.String("payment_id", e.PaymentID))
	return nil
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Nop is used when no brokers are configured.
type Nop struct{}

// PublishBetConfirmed discards e.
func (Nop) PublishBetConfirmed(context.Context, BetConfirmed) error { return nil }
