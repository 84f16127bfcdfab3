package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/markjakearzadon/apostas-gobackend/internal/models"
)

const (
	betsCollection    = "apostas"
	pendingCollection = "apostas_pendentes"
)

// BetService persists confirmed and pending bets in MongoDB. Both
// collections use the Mercado Pago payment ID as _id.
type BetService struct {
	bets    *mongo.Collection
	pending *mongo.Collection
	log     *zap.Logger
}

// NewBetService creates a BetService backed by the apostas and
// apostas_pendentes collections of db.
func NewBetService(db *mongo.Database, log *zap.Logger) *BetService {
	return &BetService{
		bets:    db.Collection(betsCollection),
		pending: db.Collection(pendingCollection),
		log:     log,
	}
}

// EnsureIndexes creates the phone lookup index.
func (s *BetService) EnsureIndexes(ctx context.Context) error {
	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "telefone", Value: 1}, {Key: "created_at", Value: -1}}},
	}
	if _, err := s.bets.Indexes().CreateMany(ctx, indexModels); err != nil {
		s.log.Error("failed to create indexes", zap.Error(err))
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

// CreateConfirmed inserts bet if no bet exists for its payment ID.
// It reports false when the bet was already there.
func (s *BetService) CreateConfirmed(ctx context.Context, bet *models.Bet) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	bet.ID = bet.PaymentID
	if _, err := s.bets.InsertOne(ctx, bet); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			s.log.Info("bet already confirmed", zap.String("payment_id", bet.PaymentID))
			return false, nil
		}
		return false, fmt.Errorf("failed to save bet: %w", err)
	}
	return true, nil
}

// ExistsConfirmed reports whether a bet was recorded for paymentID.
func (s *BetService) ExistsConfirmed(ctx context.Context, paymentID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.FindOne().SetProjection(bson.M{"_id": 1})
	err := s.bets.FindOne(ctx, bson.M{"_id": paymentID}, opts).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to fetch bet %s: %w", paymentID, err)
	}
	return true, nil
}

// FindByPhone returns the confirmed bets of a phone number, newest first.
func (s *BetService) FindByPhone(ctx context.Context, phone string) ([]models.Bet, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cur, err := s.bets.Find(ctx, bson.M{"telefone": phone}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch bets: %w", err)
	}
	defer cur.Close(ctx)

	var bets []models.Bet
	if err := cur.All(ctx, &bets); err != nil {
		return nil, fmt.Errorf("failed to decode bets: %w", err)
	}
	return bets, nil
}

// StagePending stores p. Staging the same payment twice is a no-op.
func (s *BetService) StagePending(ctx context.Context, p *models.PendingBet) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := s.pending.InsertOne(ctx, p); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("failed to stage pending bet: %w", err)
	}
	return nil
}

// GetPending returns ErrNotFound when nothing is staged for paymentID.
func (s *BetService) GetPending(ctx context.Context, paymentID string) (*models.PendingBet, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var p models.PendingBet
	if err := s.pending.FindOne(ctx, bson.M{"_id": paymentID}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch pending bet %s: %w", paymentID, err)
	}
	return &p, nil
}

// DeletePending removes the staged bet of paymentID, if any.
func (s *BetService) DeletePending(ctx context.Context, paymentID string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := s.pending.DeleteOne(ctx, bson.M{"_id": paymentID}); err != nil {
		return fmt.Errorf("failed to delete pending bet %s: %w", paymentID, err)
	}
	return nil
}
