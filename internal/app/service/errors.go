package service

import "errors"

var (
	// ErrValidation signals missing or malformed required input.
	ErrValidation = errors.New("validation failed")

	// ErrPixelInactive signals an ingestion attempt against a pixel that is
	// neither active nor testing.
	ErrPixelInactive = errors.New("pixel is not active")
)
