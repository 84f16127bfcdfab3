package services

import "errors"

var (
	// ErrInvalidRequest marks missing or malformed client input.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrPaymentCreationFailed marks a rejected or malformed processor response on creation.
	ErrPaymentCreationFailed = errors.New("payment creation failed")
	// ErrNotificationProcessing is returned when a webhook must be redelivered.
	ErrNotificationProcessing = errors.New("notification processing failed")
	// ErrNotFound is returned by lookups that match nothing.
	ErrNotFound = errors.New("not found")
	// ErrInvalidReference is returned when an external reference cannot be decoded.
	ErrInvalidReference = errors.New("invalid external reference")
	// ErrUpstream covers failures of the fixtures and messaging APIs.
	ErrUpstream = errors.New("upstream request failed")
	// ErrDisabled is returned by optional integrations that lack credentials.
	ErrDisabled = errors.New("integration not configured")
)
