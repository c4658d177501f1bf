package messaging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hxuan190/portfolio-swap/internal/domain"
)

func TestSubject(t *testing.T) {
	assert.Equal(t, "swaps.confirmed", Subject("swaps", domain.SubmissionConfirmed))
	assert.Equal(t, "swaps.failed", Subject("swaps", domain.SubmissionFailed))
}

func TestNoopPublisher(t *testing.T) {
	var p NoopPublisher
	assert.NoError(t, p.PublishSubmission(context.Background(), SubmissionEvent{Signature: "sig"}))
	assert.NoError(t, p.Close())
}
