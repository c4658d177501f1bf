package domain

import "time"

type SubmissionStatus string

const (
	SubmissionPending   SubmissionStatus = "pending"
	SubmissionConfirmed SubmissionStatus = "confirmed"
	SubmissionFailed    SubmissionStatus = "failed"
)

// SubmissionAttempt records one send-and-confirm try of an already signed transaction.
type SubmissionAttempt struct {
	Signature     string           `json:"signature"`
	Status        SubmissionStatus `json:"status"`
	AttemptNumber int              `json:"attemptNumber"`
	Error         string           `json:"error,omitempty"`
	StartedAt     time.Time        `json:"startedAt"`
	FinishedAt    time.Time        `json:"finishedAt,omitempty"`
}

type SubmissionResult struct {
	Signature string              `json:"signature"`
	Attempts  []SubmissionAttempt `json:"attempts"`
}
