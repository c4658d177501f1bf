package domain

import "errors"

// Pipeline failures. Callers match these with errors.Is; context is attached with %w.
var (
	ErrQuoteUnavailable            = errors.New("no route available for swap leg")
	ErrAggregatorUnavailable       = errors.New("aggregator request failed")
	ErrInstructionResolutionFailed = errors.New("failed to resolve swap instructions")
	ErrMalformedInstruction        = errors.New("malformed instruction")
	ErrSlippageExceeded            = errors.New("slippage tolerance exceeded")
	ErrSubmissionExhausted         = errors.New("failed to send transaction")
	ErrBuildFailed                 = errors.New("failed to build swap transaction")
)

// Boundary failures raised before the pipeline runs.
var (
	ErrEmptyPlan           = errors.New("swap plan has no valid legs")
	ErrInvalidSigner       = errors.New("invalid signer address")
	ErrInvalidPlan         = errors.New("invalid transaction plan")
	ErrPortfolioNotFound   = errors.New("portfolio not found")
	ErrTokenNotHeld        = errors.New("selected token not found in wallet")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidAmount       = errors.New("amount must be greater than 0")
	ErrInvalidSignature    = errors.New("invalid message signature")
	ErrInvalidTransaction  = errors.New("invalid wire transaction")
)
