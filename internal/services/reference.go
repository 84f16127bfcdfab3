package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

const referenceVersion = 1

// Reference is the bet context carried through Mercado Pago in the
// payment's external_reference field.
type Reference struct {
	Bet   string
	Phone string
}

type referenceWire struct {
	V     int    `json:"v,omitempty"`
	Bet   string `json:"aposta"`
	Phone string `json:"telefone"`
}

// EncodeReference serializes ref as versioned JSON.
func EncodeReference(ref Reference) (string, error) {
	b, err := json.Marshal(referenceWire{V: referenceVersion, Bet: ref.Bet, Phone: ref.Phone})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeReference parses an external_reference. Unversioned payloads are
// read as version 1. Both fields must be present.
func DecodeReference(s string) (Reference, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Reference{}, fmt.Errorf("%w: empty", ErrInvalidReference)
	}

	var w referenceWire
	dec := json.NewDecoder(strings.NewReader(s))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&w); err != nil {
		return Reference{}, fmt.Errorf("%w: %v", ErrInvalidReference, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Reference{}, fmt.Errorf("%w: trailing data", ErrInvalidReference)
	}
	if w.V != 0 && w.V != referenceVersion {
		return Reference{}, fmt.Errorf("%w: unsupported version %d", ErrInvalidReference, w.V)
	}
	if w.Bet == "" || w.Phone == "" {
		return Reference{}, fmt.Errorf("%w: missing aposta or telefone", ErrInvalidReference)
	}

	return Reference{Bet: w.Bet, Phone: w.Phone}, nil
}
