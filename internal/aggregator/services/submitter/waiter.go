package submitter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/ws"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/portfolio-swap/internal/aggregator/adapters/blockchain"
)

const DefaultPollInterval = 700 * time.Millisecond

var ErrTransactionFailed = errors.New("transaction failed on chain")

// ConfirmationWaiter blocks until sig reaches confirmed commitment, fails on
// chain, or ctx is done.
type ConfirmationWaiter interface {
	WaitForConfirmation(ctx context.Context, sig solana.Signature) error
}

// PollingWaiter polls getSignatureStatuses on a fixed interval.
type PollingWaiter struct {
	statuses blockchain.StatusFetcher
	interval time.Duration
}

func NewPollingWaiter(statuses blockchain.StatusFetcher, interval time.Duration) *PollingWaiter {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &PollingWaiter{statuses: statuses, interval: interval}
}

func (w *PollingWaiter) WaitForConfirmation(ctx context.Context, sig solana.Signature) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		done, err := checkStatus(ctx, w.statuses, sig)
		if done {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// checkStatus reports done once the signature is confirmed or failed. Lookup
// errors are not terminal; the caller keeps waiting.
func checkStatus(ctx context.Context, statuses blockchain.StatusFetcher, sig solana.Signature) (bool, error) {
	res, err := statuses.GetSignatureStatuses(ctx, false, sig)
	if err != nil {
		if !errors.Is(err, rpc.ErrNotFound) {
			log.Debug().Err(err).Str("signature", sig.String()).Msg("[Submitter] status lookup failed")
		}
		return false, nil
	}
	if res == nil || len(res.Value) == 0 || res.Value[0] == nil {
		return false, nil
	}

	status := res.Value[0]
	if status.Err != nil {
		return true, fmt.Errorf("%w: %v", ErrTransactionFailed, status.Err)
	}
	switch status.ConfirmationStatus {
	case rpc.ConfirmationStatusConfirmed, rpc.ConfirmationStatusFinalized:
		return true, nil
	}
	return false, nil
}

// SubscriptionWaiter waits on a signatureSubscribe notification. It checks the
// status once after subscribing so an already confirmed signature is not missed.
type SubscriptionWaiter struct {
	wsURL    string
	statuses blockchain.StatusFetcher
}

func NewSubscriptionWaiter(wsURL string, statuses blockchain.StatusFetcher) *SubscriptionWaiter {
	return &SubscriptionWaiter{wsURL: wsURL, statuses: statuses}
}

func (w *SubscriptionWaiter) WaitForConfirmation(ctx context.Context, sig solana.Signature) error {
	client, err := ws.Connect(ctx, w.wsURL)
	if err != nil {
		return fmt.Errorf("connect websocket: %w", err)
	}
	defer client.Close()

	sub, err := client.SignatureSubscribe(sig, rpc.CommitmentConfirmed)
	if err != nil {
		return fmt.Errorf("subscribe signature: %w", err)
	}
	defer sub.Unsubscribe()

	if done, err := checkStatus(ctx, w.statuses, sig); done {
		return err
	}

	res, err := sub.Recv(ctx)
	if err != nil {
		return err
	}
	if res.Value.Err != nil {
		return fmt.Errorf("%w: %v", ErrTransactionFailed, res.Value.Err)
	}
	return nil
}
