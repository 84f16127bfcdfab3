package models

import (
	"time"
)

// Status values stored with bets.
const (
	BetStatusPaid    = "pago"
	BetStatusPending = "pendente"
)

// Bet is a confirmed, paid bet. The document _id is the Mercado Pago
// payment ID, so a payment can never produce two bets.
type Bet struct {
	ID        string    `bson:"_id" json:"id"`
	Bet       string    `bson:"aposta" json:"aposta"`
	Phone     string    `bson:"telefone" json:"telefone"`
	Amount    float64   `bson:"valor" json:"valor"`
	PaymentID string    `bson:"payment_id" json:"paymentId"`
	Status    string    `bson:"status" json:"status"`
	CreatedAt time.Time `bson:"created_at" json:"timestamp"`
}

// PendingBet is staged when a direct PIX payment is generated and removed
// once the payment is confirmed.
type PendingBet struct {
	PaymentID string    `bson:"_id" json:"paymentId"`
	Bet       string    `bson:"aposta" json:"aposta"`
	Phone     string    `bson:"telefone" json:"telefone"`
	Amount    float64   `bson:"valor" json:"valor"`
	Status    string    `bson:"status" json:"status"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
