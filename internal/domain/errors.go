package domain

import "errors"

var (
	// ErrTenantNotFound is returned when no tenant matches an id or shop domain.
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrMissingNaturalKey is returned for a record that carries no platform id.
	ErrMissingNaturalKey = errors.New("record has no platform id")

	// ErrInvalidSignature is returned when a webhook HMAC does not verify.
	ErrInvalidSignature = errors.New("invalid webhook signature")
)
