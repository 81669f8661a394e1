// Package handlers – error mapping
//
// This file maps service errors to HTTP statuses and stable error codes.
// Unknown errors become 500 with a generic message.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-translate-backend/internal/services"
	"github.com/tbourn/go-translate-backend/internal/tasks"
)

// Error codes returned in ErrorResponse.Code. Clients branch on these, so
// they never change once published.
const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	ErrCodeQuotaExceeded         = "quota_exceeded"
	ErrCodeInvalidTargetLanguage = "invalid_target_language"
	ErrCodeInvalidSourceLanguage = "invalid_source_language"
	ErrCodeEmptyContent          = "empty_content"
	ErrCodeProviderUnavailable   = "provider_unavailable"
	ErrCodeProviderRejected      = "provider_rejected"
	ErrCodeUnprocessable         = "unprocessable_response"
	ErrCodeTimeout               = "timeout"
	ErrCodeQueueUnavailable      = "queue_unavailable"
)

type errorMapping struct {
	target error
	status int
	code   string
}

// First match wins.
var errorTable = []errorMapping{
	{services.ErrQuotaExceeded, http.StatusPaymentRequired, ErrCodeQuotaExceeded},
	{services.ErrInvalidTargetLanguage, http.StatusBadRequest, ErrCodeInvalidTargetLanguage},
	{services.ErrInvalidSourceLanguage, http.StatusBadRequest, ErrCodeInvalidSourceLanguage},
	{services.ErrEmptyContent, http.StatusBadRequest, ErrCodeEmptyContent},
	{services.ErrInvalidEntity, http.StatusBadRequest, ErrCodeBadRequest},
	{services.ErrInvalidVerification, http.StatusBadRequest, ErrCodeBadRequest},
	{services.ErrEntityNotFound, http.StatusNotFound, ErrCodeNotFound},
	{services.ErrHistoryNotFound, http.StatusNotFound, ErrCodeNotFound},
	{services.ErrJobNotFound, http.StatusNotFound, ErrCodeNotFound},
	{services.ErrAlreadyVerified, http.StatusConflict, ErrCodeConflict},
	{services.ErrUnprocessableResponse, http.StatusUnprocessableEntity, ErrCodeUnprocessable},
	{services.ErrProviderRejected, http.StatusBadGateway, ErrCodeProviderRejected},
	{services.ErrProviderUnavailable, http.StatusServiceUnavailable, ErrCodeProviderUnavailable},
	{tasks.ErrQueueFull, http.StatusServiceUnavailable, ErrCodeQueueUnavailable},
	{tasks.ErrClosed, http.StatusServiceUnavailable, ErrCodeQueueUnavailable},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, ErrCodeTimeout},
}

// classify maps a service error to its HTTP status and code. Unknown errors
// are internal.
func classify(err error) (int, string) {
	for _, m := range errorTable {
		if errors.Is(err, m.target) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, ErrCodeInternal
}

// failErr writes the error envelope for a service error. Internal errors
// carry a generic message; the cause goes to the log.
func failErr(c *gin.Context, err error) {
	status, code := classify(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		msg = "internal server error"
	}
	fail(c, status, code, msg)
}
