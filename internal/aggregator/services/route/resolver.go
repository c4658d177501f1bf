// Package route resolves swap legs into aggregator instructions.
package route

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/hxuan190/portfolio-swap/internal/aggregator/services/codec"
	"github.com/hxuan190/portfolio-swap/internal/config"
	"github.com/hxuan190/portfolio-swap/internal/domain"
	"github.com/hxuan190/portfolio-swap/internal/metrics"
	container "github.com/thehyperflames/dicontainer-go"
)

const ROUTE_SERVICE = "route-svc"

// Route is one resolved leg: its instructions in execution order and the
// lookup tables they reference.
type Route struct {
	Leg          domain.SwapLeg
	OutAmount    string
	Instructions []*domain.ResolvedInstruction
	LookupTables []solana.PublicKey
}

// Resolver asks the aggregator for a quote and the matching instruction set of
// each leg. It never retries; the caller owns retry policy.
type Resolver struct {
	container.BaseDIInstance

	aggregator Aggregator
}

func NewResolver(aggregator Aggregator) *Resolver {
	return &Resolver{aggregator: aggregator}
}

func (r *Resolver) ID() string {
	return ROUTE_SERVICE
}

func (r *Resolver) Configure(c container.IContainer) error {
	cfg := c.GetConfig(config.AGGREGATOR_CONFIG_KEY).(*config.AggregatorConfig)
	r.aggregator = NewJupiterClient(cfg.APIUrl, cfg.APIKey, cfg.Timeout)
	return nil
}

func (r *Resolver) Start() error {
	return nil
}

func (r *Resolver) Stop() error {
	return nil
}

func (r *Resolver) ResolveLeg(ctx context.Context, signer solana.PublicKey, leg domain.SwapLeg) (*Route, error) {
	start := time.Now()
	route, err := r.resolveLeg(ctx, signer, leg)
	metrics.RouteDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RouteRequests.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.RouteRequests.WithLabelValues("success").Inc()
	return route, nil
}

func (r *Resolver) resolveLeg(ctx context.Context, signer solana.PublicKey, leg domain.SwapLeg) (*Route, error) {
	quote, err := r.aggregator.Quote(ctx, leg)
	if err != nil {
		return nil, err
	}

	set, err := r.aggregator.SwapInstructions(ctx, quote, signer)
	if err != nil {
		return nil, err
	}

	raws, err := flatten(set)
	if err != nil {
		return nil, err
	}

	instructions, err := codec.DecodeAll(raws)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInstructionResolutionFailed, err)
	}

	tables := make([]solana.PublicKey, 0, len(set.AddressLookupTableAddresses))
	for _, raw := range set.AddressLookupTableAddresses {
		addr, err := solana.PublicKeyFromBase58(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: lookup table %q: %v", domain.ErrInstructionResolutionFailed, raw, err)
		}
		tables = append(tables, addr)
	}

	return &Route{
		Leg:          leg,
		OutAmount:    quote.OutAmount,
		Instructions: instructions,
		LookupTables: tables,
	}, nil
}

// ResolveBatch resolves every leg concurrently. Routes come back in leg order;
// the first failure cancels the rest and fails the whole batch.
func (r *Resolver) ResolveBatch(ctx context.Context, signer solana.PublicKey, legs []domain.SwapLeg) ([]*Route, error) {
	routes := make([]*Route, len(legs))
	g, gctx := errgroup.WithContext(ctx)

	for i, leg := range legs {
		g.Go(func() error {
			route, err := r.ResolveLeg(gctx, signer, leg)
			if err != nil {
				log.Error().Err(err).
					Int("leg", i).
					Str("input", leg.InputToken.String()).
					Str("output", leg.OutputToken.String()).
					Msg("[Resolver] leg resolution failed")
				return fmt.Errorf("leg %d: %w", i, err)
			}
			routes[i] = route
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return routes, nil
}

// flatten orders an instruction set as setup, swap, cleanup. A response with
// neither a combined list nor a swap instruction is malformed.
func flatten(set *SwapInstructions) ([]domain.RawInstruction, error) {
	if len(set.Instructions) > 0 {
		return set.Instructions, nil
	}
	if set.SwapInstruction == nil {
		return nil, fmt.Errorf("%w: response has no swapInstruction", domain.ErrInstructionResolutionFailed)
	}

	out := make([]domain.RawInstruction, 0, len(set.SetupInstructions)+2)
	out = append(out, set.SetupInstructions...)
	out = append(out, *set.SwapInstruction)
	if set.CleanupInstruction != nil {
		out = append(out, *set.CleanupInstruction)
	}
	return out, nil
}

// TableAddresses collects the lookup tables of all routes, deduplicated in first-seen order.
func TableAddresses(routes []*Route) []solana.PublicKey {
	seen := make(map[solana.PublicKey]struct{})
	var out []solana.PublicKey
	for _, r := range routes {
		for _, addr := range r.LookupTables {
			if _, ok := seen[addr]; ok {
				continue
			}
			seen[addr] = struct{}{}
			out = append(out, addr)
		}
	}
	return out
}
