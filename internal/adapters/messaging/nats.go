package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/portfolio-swap/internal/domain"
)

const (
	StreamName      = "SWAP_SUBMISSIONS"
	StreamRetention = 7 * 24 * time.Hour
)

// SubmissionEvent is the terminal outcome of one signed transaction.
type SubmissionEvent struct {
	Signature string                  `json:"signature"`
	Status    domain.SubmissionStatus `json:"status"`
	Attempts  int                     `json:"attempts"`
	Error     string                  `json:"error,omitempty"`
	Timestamp time.Time               `json:"timestamp"`
}

// Subject is "<prefix>.<status>".
func Subject(prefix string, status domain.SubmissionStatus) string {
	return fmt.Sprintf("%s.%s", prefix, status)
}

// JetStreamPublisher publishes submission outcomes to NATS JetStream.
type JetStreamPublisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	prefix string
}

// NewJetStreamPublisher connects to NATS and ensures the stream exists.
func NewJetStreamPublisher(natsURL, prefix string) (*JetStreamPublisher, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name("portfolio-swap"),
		nats.Timeout(10*time.Second),
		nats.ReconnectWait(1*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	p := &JetStreamPublisher{nc: nc, js: js, prefix: prefix}
	if err := p.ensureStream(); err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to ensure stream exists: %w", err)
	}

	log.Info().Str("url", natsURL).Str("stream", StreamName).Msg("[NATSPublisher] initialized")
	return p, nil
}

func (p *JetStreamPublisher) ensureStream() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := p.js.Stream(ctx, StreamName); err == nil {
		return nil
	}

	_, err := p.js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Description: "Terminal outcomes of submitted swap transactions",
		Subjects:    []string{p.prefix + ".*"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      StreamRetention,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}
	log.Info().Str("stream", StreamName).Msg("[NATSPublisher] stream created")
	return nil
}

func (p *JetStreamPublisher) PublishSubmission(ctx context.Context, event SubmissionEvent) error {
	data, err := sonic.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal submission event: %w", err)
	}

	subject := Subject(p.prefix, event.Status)
	if _, err := p.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to publish submission event: %w", err)
	}

	log.Debug().Str("subject", subject).Str("signature", event.Signature).Msg("[NATSPublisher] published")
	return nil
}

func (p *JetStreamPublisher) Close() error {
	if p.nc != nil {
		p.nc.Close()
	}
	return nil
}

// NoopPublisher is used when NATS is not configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishSubmission(context.Context, SubmissionEvent) error { return nil }

func (NoopPublisher) Close() error { return nil }
