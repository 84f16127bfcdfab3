package services

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// phonePattern accepts a Brazilian mobile number with area code, with or
// without the 55 country prefix.
var phonePattern = regexp.MustCompile(`^\d{11,13}$`)

// ValidPhone reports whether phone is 11 to 13 digits.
func ValidPhone(phone string) bool {
	return phonePattern.MatchString(phone)
}

// BetSubmission is the body of the payment creation endpoints.
type BetSubmission struct {
	Bet    string          `json:"aposta"`
	Phone  string          `json:"telefone"`
	Amount decimal.Decimal `json:"valor"`
}

// Validate trims the text fields and checks the submission.
func (b *BetSubmission) Validate() error {
	b.Bet = strings.TrimSpace(b.Bet)
	b.Phone = strings.TrimSpace(b.Phone)

	if b.Bet == "" || b.Phone == "" || b.Amount.IsZero() {
		return fmt.Errorf("%w: aposta, telefone and valor are required", ErrInvalidRequest)
	}
	if !b.Amount.IsPositive() {
		return fmt.Errorf("%w: valor must be positive", ErrInvalidRequest)
	}
	if !ValidPhone(b.Phone) {
		return fmt.Errorf("%w: telefone must have 11 to 13 digits", ErrInvalidRequest)
	}
	if b.Amount.Round(2).IsZero() {
		return fmt.Errorf("%w: valor must be at least 0.01", ErrInvalidRequest)
	}
	return nil
}

// AmountFloat is the amount rounded to cents, as the processor expects it.
func (b BetSubmission) AmountFloat() float64 {
	return b.Amount.Round(2).InexactFloat64()
}
