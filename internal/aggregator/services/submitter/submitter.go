package submitter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/hxuan190/portfolio-swap/internal/adapters/messaging"
	"github.com/hxuan190/portfolio-swap/internal/adapters/persistence"
	"github.com/hxuan190/portfolio-swap/internal/aggregator/adapters/blockchain"
	"github.com/hxuan190/portfolio-swap/internal/aggregator/services/builder"
	"github.com/hxuan190/portfolio-swap/internal/config"
	"github.com/hxuan190/portfolio-swap/internal/domain"
	"github.com/hxuan190/portfolio-swap/internal/metrics"
	"github.com/hxuan190/portfolio-swap/internal/services"
	container "github.com/thehyperflames/dicontainer-go"
)

const (
	SUBMITTER_SERVICE = "submitter-svc"

	DefaultMaxRetries     = 3
	DefaultConfirmTimeout = 60 * time.Second
)

var ErrBlockhashExpired = errors.New("blockhash expired")

type TableResolver interface {
	Resolve(ctx context.Context, addresses []solana.PublicKey) (map[solana.PublicKey]solana.PublicKeySlice, error)
}

type AttemptRecorder interface {
	SaveAttempt(attempt domain.SubmissionAttempt) error
	Attempts(signature string) ([]domain.SubmissionAttempt, error)
}

type Publisher interface {
	PublishSubmission(ctx context.Context, event messaging.SubmissionEvent) error
	Close() error
}

// decoded is a signed transaction in the Decoded state.
type decoded struct {
	tx        *solana.Transaction
	signature solana.Signature
	lifetime  blockchain.Lifetime
	tables    map[solana.PublicKey]solana.PublicKeySlice
}

// Submitter drives an already signed wire transaction to confirmation with a
// bounded number of fresh sends. It never re-signs or re-assembles.
type Submitter struct {
	container.BaseDIInstance

	logger     *services.ServiceLogger
	sender     blockchain.Sender
	validator  blockchain.BlockhashValidator
	waiter     ConfirmationWaiter
	tables     TableResolver
	recorder   AttemptRecorder
	publisher  Publisher
	maxRetries int
	timeout    time.Duration

	store *persistence.SubmissionStore
	now   func() time.Time
}

type Option func(*Submitter)

func WithRecorder(r AttemptRecorder) Option { return func(s *Submitter) { s.recorder = r } }

func WithPublisher(p Publisher) Option { return func(s *Submitter) { s.publisher = p } }

func WithTableResolver(t TableResolver) Option { return func(s *Submitter) { s.tables = t } }

func WithBlockhashValidator(v blockchain.BlockhashValidator) Option {
	return func(s *Submitter) { s.validator = v }
}

func NewSubmitter(sender blockchain.Sender, waiter ConfirmationWaiter, maxRetries int, timeout time.Duration, opts ...Option) *Submitter {
	s := &Submitter{
		sender:     sender,
		waiter:     waiter,
		maxRetries: maxRetries,
		timeout:    timeout,
		publisher:  messaging.NoopPublisher{},
		now:        time.Now,
	}
	if s.maxRetries < 1 {
		s.maxRetries = DefaultMaxRetries
	}
	if s.timeout <= 0 {
		s.timeout = DefaultConfirmTimeout
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = services.NewServiceLogger(s)
	return s
}

func (s *Submitter) ID() string {
	return SUBMITTER_SERVICE
}

func (s *Submitter) Configure(c container.IContainer) error {
	rpcConfig := c.GetConfig(config.RPC_CONFIG_KEY).(*config.RPCConfig)
	subConfig := c.GetConfig(config.SUBMITTER_CONFIG_KEY).(*config.SubmitterConfig)
	natsConfig := c.GetConfig(config.NATS_CONFIG_KEY).(*config.NATSConfig)
	builderSvc := c.Instance(builder.BUILDER_SERVICE_NAME).(*builder.BuilderService)

	client := rpc.New(rpcConfig.RPCUrl)
	s.logger = services.NewServiceLogger(s)
	s.sender = client
	s.validator = client
	s.tables = builderSvc.TableResolver()
	s.maxRetries = subConfig.MaxRetries
	s.timeout = subConfig.ConfirmTimeout
	s.now = time.Now

	if rpcConfig.WSUrl != "" {
		s.waiter = NewSubscriptionWaiter(rpcConfig.WSUrl, client)
	} else {
		s.waiter = NewPollingWaiter(client, DefaultPollInterval)
	}

	if subConfig.PersistenceEnabled {
		store, err := persistence.NewSubmissionStore(subConfig.DBPath)
		if err != nil {
			return err
		}
		s.store = store
		s.recorder = store
	}

	s.publisher = messaging.NoopPublisher{}
	if natsConfig.Enabled() {
		pub, err := messaging.NewJetStreamPublisher(natsConfig.URL, natsConfig.SubjectPrefix)
		if err != nil {
			s.logger.Warn().Err(err).Msg("[Submitter] NATS unavailable, outcomes will not be published")
		} else {
			s.publisher = pub
		}
	}
	return nil
}

func (s *Submitter) Start() error {
	s.logger.Info().
		Int("maxRetries", s.maxRetries).
		Dur("confirmTimeout", s.timeout).
		Bool("persistence", s.recorder != nil).
		Msg("[Submitter] started")
	return nil
}

func (s *Submitter) Stop() error {
	if s.publisher != nil {
		_ = s.publisher.Close()
	}
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

// Attempts returns the recorded attempts of a signature.
func (s *Submitter) Attempts(signature string) ([]domain.SubmissionAttempt, error) {
	if s.recorder == nil {
		return []domain.SubmissionAttempt{}, nil
	}
	return s.recorder.Attempts(signature)
}

// Submit decodes a signed base64 transaction and runs it through the state
// machine. On exhaustion the returned result still lists every attempt.
func (s *Submitter) Submit(ctx context.Context, wire string) (*domain.SubmissionResult, error) {
	d, err := s.decode(ctx, wire)
	if err != nil {
		return nil, err
	}

	sig := d.signature.String()
	result := &domain.SubmissionResult{Signature: sig, Attempts: make([]domain.SubmissionAttempt, 0, s.maxRetries)}
	logger := s.logger.WithSignature(sig)
	logger.Info().Int("maxRetries", s.maxRetries).Msg("[Submitter] submitting")

	state := StateSubmitting
	var lastErr error
	for attempt := 1; !state.Terminal(); attempt++ {
		record := domain.SubmissionAttempt{
			Signature:     sig,
			Status:        domain.SubmissionPending,
			AttemptNumber: attempt,
			StartedAt:     s.now(),
		}
		s.record(record)

		lastErr = s.sendAndConfirm(ctx, d)
		record.FinishedAt = s.now()

		state, record = s.transition(attempt, lastErr, record)
		result.Attempts = append(result.Attempts, record)
		s.record(record)
		metrics.SubmissionAttempts.WithLabelValues(string(record.Status)).Inc()

		if lastErr != nil {
			logger.Warn().Err(lastErr).Int("attempt", attempt).Msg("[Submitter] attempt failed")
			if ctx.Err() != nil {
				state = StateFailed
			}
		}
	}

	status := domain.SubmissionConfirmed
	if state == StateFailed {
		status = domain.SubmissionFailed
	}
	metrics.SubmissionOutcomes.WithLabelValues(string(status)).Inc()
	s.publish(ctx, result, status, lastErr)

	if state == StateFailed {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, fmt.Errorf("%w after %d attempts: %w", domain.ErrSubmissionExhausted, len(result.Attempts), ctxErr)
		}
		logger.Error().Err(lastErr).Int("attempts", len(result.Attempts)).Msg("[Submitter] giving up")
		return result, fmt.Errorf("%w after %d attempts: %w", domain.ErrSubmissionExhausted, len(result.Attempts), lastErr)
	}

	logger.Info().Int("attempts", len(result.Attempts)).Msg("[Submitter] confirmed")
	return result, nil
}

// transition applies the outcome of one attempt. A failure loops back to
// Submitting until the attempt budget is spent.
func (s *Submitter) transition(attempt int, err error, record domain.SubmissionAttempt) (State, domain.SubmissionAttempt) {
	if err == nil {
		record.Status = domain.SubmissionConfirmed
		return StateConfirmed, record
	}
	record.Status = domain.SubmissionFailed
	record.Error = err.Error()
	if attempt >= s.maxRetries {
		return StateFailed, record
	}
	return StateSubmitting, record
}

func (s *Submitter) sendAndConfirm(ctx context.Context, d *decoded) error {
	start := time.Now()
	sig, err := s.sender.SendTransactionWithOpts(ctx, d.tx, rpc.TransactionOpts{
		SkipPreflight:       true,
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.waiter.WaitForConfirmation(waitCtx, sig); err != nil {
		return fmt.Errorf("confirm: %w", err)
	}
	metrics.ConfirmationDuration.Observe(time.Since(start).Seconds())
	return nil
}

// decode is the Decoded state: parse the wire bytes, check the signatures,
// reattach the lookup tables and the blockhash lifetime.
func (s *Submitter) decode(ctx context.Context, wire string) (*decoded, error) {
	tx, err := solana.TransactionFromBase64(wire)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidTransaction, err)
	}
	if len(tx.Signatures) == 0 {
		return nil, fmt.Errorf("%w: transaction is not signed", domain.ErrInvalidTransaction)
	}
	if err := tx.VerifySignatures(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidTransaction, err)
	}

	d := &decoded{
		tx:        tx,
		signature: tx.Signatures[0],
		lifetime:  blockchain.Lifetime{Blockhash: tx.Message.RecentBlockhash},
	}

	if lookups := tx.Message.GetAddressTableLookups(); len(lookups) > 0 && s.tables != nil {
		ids := lookups.GetTableIDs()
		tables, err := s.tables.Resolve(ctx, ids)
		if err != nil {
			return nil, err
		}
		d.tables = tables
		if len(tables) == len(ids) {
			if err := tx.Message.SetAddressTables(tables); err == nil {
				if err := tx.Message.ResolveLookups(); err != nil {
					s.logger.Warn().Err(err).Msg("[Submitter] lookup tables do not cover the message")
				}
			}
		} else {
			s.logger.Warn().Int("referenced", len(ids)).Int("resolved", len(tables)).Msg("[Submitter] some lookup tables could not be loaded")
		}
	}

	if s.validator != nil {
		res, err := s.validator.IsBlockhashValid(ctx, d.lifetime.Blockhash, rpc.CommitmentProcessed)
		switch {
		case err != nil:
			s.logger.Warn().Err(err).Msg("[Submitter] could not check blockhash validity")
		case res != nil && !res.Value:
			return nil, fmt.Errorf("%w: %w: %s", domain.ErrInvalidTransaction, ErrBlockhashExpired, d.lifetime.Blockhash)
		}
	}
	return d, nil
}

func (s *Submitter) record(attempt domain.SubmissionAttempt) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.SaveAttempt(attempt); err != nil {
		s.logger.WithSignature(attempt.Signature).Warn().Err(err).Int("attempt", attempt.AttemptNumber).Msg("[Submitter] failed to persist attempt")
	}
}

func (s *Submitter) publish(ctx context.Context, result *domain.SubmissionResult, status domain.SubmissionStatus, err error) {
	event := messaging.SubmissionEvent{
		Signature: result.Signature,
		Status:    status,
		Attempts:  len(result.Attempts),
		Timestamp: s.now(),
	}
	if err != nil && status == domain.SubmissionFailed {
		event.Error = err.Error()
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.publisher.PublishSubmission(pubCtx, event); err != nil {
		s.logger.WithSignature(result.Signature).Warn().Err(err).Msg("[Submitter] failed to publish outcome")
	}
}
