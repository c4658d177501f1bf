// Package common holds the error mapping and well-known addresses shared by the transport layers.
package common

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/hxuan190/portfolio-swap/internal/domain"
)

// HttpError is what the HTTP and action endpoints render for a failed request.
type HttpError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *HttpError) Error() string {
	return fmt.Sprintf("HTTP error: %d %s %s", e.StatusCode, e.Code, e.Message)
}

type errorKind struct {
	code       string
	defaultMsg string
}

var errorKinds = map[int]errorKind{
	http.StatusBadRequest:          {"BAD_REQUEST", "Bad request"},
	http.StatusNotFound:            {"NOT_FOUND", "Not found"},
	http.StatusUnprocessableEntity: {"UNPROCESSABLE", "Unprocessable request"},
	http.StatusTooManyRequests:     {"RATE_LIMITED", "Too many requests"},
	http.StatusInternalServerError: {"INTERNAL_SERVER_ERROR", "Internal server error"},
	http.StatusBadGateway:          {"UPSTREAM_FAILURE", "Upstream failure"},
}

// NewHTTPError builds an error for status; an empty msg falls back to the status default.
func NewHTTPError(status int, msg string) *HttpError {
	kind, ok := errorKinds[status]
	if !ok {
		kind = errorKinds[http.StatusInternalServerError]
		status = http.StatusInternalServerError
	}
	if msg == "" {
		msg = kind.defaultMsg
	}
	return &HttpError{StatusCode: status, Code: kind.code, Message: msg}
}

func HTTPErrorBadRequest(msg string) *HttpError {
	return NewHTTPError(http.StatusBadRequest, msg)
}

func HTTPErrorNotFound(msg string) *HttpError {
	return NewHTTPError(http.StatusNotFound, msg)
}

// domainStatus lists sentinel errors by the status they surface as. Unlisted errors are 500s.
var domainStatus = []struct {
	status int
	errs   []error
}{
	{http.StatusBadRequest, []error{
		domain.ErrEmptyPlan,
		domain.ErrInvalidSigner,
		domain.ErrInvalidPlan,
		domain.ErrInvalidAmount,
		domain.ErrInvalidSignature,
		domain.ErrInvalidTransaction,
	}},
	{http.StatusNotFound, []error{domain.ErrPortfolioNotFound}},
	{http.StatusUnprocessableEntity, []error{
		domain.ErrTokenNotHeld,
		domain.ErrInsufficientBalance,
		domain.ErrSlippageExceeded,
	}},
	{http.StatusBadGateway, []error{
		domain.ErrQuoteUnavailable,
		domain.ErrAggregatorUnavailable,
		domain.ErrInstructionResolutionFailed,
		domain.ErrMalformedInstruction,
		domain.ErrSubmissionExhausted,
	}},
}

// FromDomainError maps pipeline and validation errors onto HTTP errors.
func FromDomainError(err error) *HttpError {
	var httpErr *HttpError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	for _, group := range domainStatus {
		for _, target := range group.errs {
			if errors.Is(err, target) {
				return NewHTTPError(group.status, err.Error())
			}
		}
	}
	return NewHTTPError(http.StatusInternalServerError, err.Error())
}
