// Package services holds the business logic of the translation pipeline:
// credits, cache, history, the language catalog, quality scoring, the
// translation orchestrator and asynchronous bulk jobs.
//
// This file centralizes the service-level error values. Handlers translate
// them into HTTP status codes; services never speak HTTP.
package services

import (
	"errors"
	"fmt"

	"github.com/tbourn/go-translate-backend/internal/domain"
	"github.com/tbourn/go-translate-backend/internal/normalize"
	"github.com/tbourn/go-translate-backend/internal/provider"
)

var (
	// ErrQuotaExceeded is returned when the user's ledger cannot cover the
	// credits a request needs.
	ErrQuotaExceeded = errors.New("translation quota exceeded")

	// ErrProviderUnavailable is returned once provider retries are exhausted.
	ErrProviderUnavailable = provider.ErrUnavailable

	// ErrProviderRejected is returned when the provider refused the request
	// itself (bad credentials, invalid parameters).
	ErrProviderRejected = provider.ErrBadRequest

	// ErrUnprocessableResponse is the root of every UnprocessableError.
	ErrUnprocessableResponse = errors.New("provider response could not be used")

	ErrInvalidTargetLanguage = errors.New("invalid target language")
	ErrInvalidSourceLanguage = errors.New("invalid source language")
	ErrEmptyContent          = errors.New("content is empty")

	ErrEntityNotFound  = errors.New("entity not found")
	ErrHistoryNotFound = errors.New("translation history not found")
	ErrJobNotFound     = errors.New("translation job not found")

	ErrInvalidVerification = domain.ErrInvalidVerification
	ErrAlreadyVerified     = domain.ErrAlreadyVerified
)

// UnprocessableError reports a field whose provider reply normalized to an
// unusable status. The field is left untouched and not charged.
type UnprocessableError struct {
	Status normalize.Status
}

func (e *UnprocessableError) Error() string {
	return fmt.Sprintf("unprocessable provider response: %s", e.Status)
}

func (e *UnprocessableError) Unwrap() error { return ErrUnprocessableResponse }
