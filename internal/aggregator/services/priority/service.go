// Package priority estimates compute budgets: the unit limit from simulation and
// the unit price from a priority fee oracle.
package priority

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog/log"
	container "github.com/thehyperflames/dicontainer-go"
	"golang.org/x/sync/errgroup"

	"github.com/hxuan190/portfolio-swap/internal/config"
	"github.com/hxuan190/portfolio-swap/internal/domain"
	"github.com/hxuan190/portfolio-swap/internal/metrics"
)

const PRIORITY_SERVICE = "priority-svc"

const DefaultPriorityFee = 10_000

// Service provides compute unit estimation and priority fee lookup.
type Service struct {
	container.BaseDIInstance

	cuEstimator *CUEstimator
	oracle      FeeOracle
	defaultFee  uint64
	minFee      uint64
}

func NewService(cuEstimator *CUEstimator, oracle FeeOracle, defaultFee, minFee uint64) *Service {
	return &Service{
		cuEstimator: cuEstimator,
		oracle:      oracle,
		defaultFee:  defaultFee,
		minFee:      minFee,
	}
}

func (s *Service) ID() string {
	return PRIORITY_SERVICE
}

func (s *Service) Configure(c container.IContainer) error {
	rpcConfig := c.GetConfig(config.RPC_CONFIG_KEY).(*config.RPCConfig)
	budgetConfig := c.GetConfig(config.COMPUTE_BUDGET_CONFIG_KEY).(*config.ComputeBudgetConfig)

	rpcClient := rpc.New(rpcConfig.RPCUrl)
	s.cuEstimator = NewCUEstimator(rpcClient, budgetConfig.DefaultUnits, budgetConfig.MaxUnits, budgetConfig.Margin)
	s.defaultFee = budgetConfig.DefaultPriorityFee
	s.minFee = budgetConfig.MinPriorityFee

	if rpcConfig.PriorityFeeURL == "" {
		s.oracle = NewRecentFeesOracle(rpcClient, 75)
		return nil
	}
	oracle, err := NewHTTPFeeOracle(rpcConfig.PriorityFeeURL, rpcConfig.PriorityFeeQuery, 0)
	if err != nil {
		return err
	}
	s.oracle = oracle
	return nil
}

func (s *Service) Start() error {
	log.Info().
		Uint64("defaultFee", s.defaultFee).
		Uint64("minFee", s.minFee).
		Msg("[PriorityService] started")
	return nil
}

func (s *Service) Stop() error {
	return nil
}

// Estimate runs simulation and the fee lookup concurrently against the same
// provisional transaction. Only a slippage failure or cancellation is returned
// as an error; everything else degrades to defaults.
func (s *Service) Estimate(ctx context.Context, tx *solana.Transaction, wire string) (domain.ComputeBudgetParams, error) {
	var (
		units uint32
		fee   uint64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := s.cuEstimator.EstimateCU(gctx, tx)
		if err != nil {
			return err
		}
		units = res.UnitsWithBuffer
		return nil
	})
	g.Go(func() error {
		fee = s.priorityFee(gctx, tx, wire)
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.ComputeBudgetParams{}, err
	}

	metrics.ComputeUnits.Observe(float64(units))
	metrics.PriorityFee.Observe(float64(fee))
	return domain.ComputeBudgetParams{UnitLimit: units, MicroLamportsPerUnit: fee}, nil
}

func (s *Service) priorityFee(ctx context.Context, tx *solana.Transaction, wire string) uint64 {
	if s.oracle == nil {
		return max(s.defaultFee, s.minFee)
	}

	estimate, err := s.oracle.EstimatePriorityFee(ctx, tx, wire)
	if err != nil {
		metrics.PriorityFeeFallbacks.Inc()
		log.Warn().Err(err).Uint64("default", s.defaultFee).Msg("[PriorityService] priority fee estimate failed, using default")
		estimate = s.defaultFee
	}
	return max(estimate, s.minFee)
}

// BudgetInstructions returns the unit limit and unit price instructions, in that order.
func BudgetInstructions(params domain.ComputeBudgetParams) ([]solana.Instruction, error) {
	limitIx, err := computebudget.NewSetComputeUnitLimitInstruction(params.UnitLimit).ValidateAndBuild()
	if err != nil {
		return nil, fmt.Errorf("build compute unit limit: %w", err)
	}
	priceIx, err := computebudget.NewSetComputeUnitPriceInstruction(params.MicroLamportsPerUnit).ValidateAndBuild()
	if err != nil {
		return nil, fmt.Errorf("build compute unit price: %w", err)
	}
	return []solana.Instruction{limitIx, priceIx}, nil
}

// PlaceholderParams is the budget used on the provisional transaction before estimation.
func (s *Service) PlaceholderParams() domain.ComputeBudgetParams {
	units := uint32(DefaultComputeUnits)
	if s.cuEstimator != nil {
		units = s.cuEstimator.maxUnits
	}
	return domain.ComputeBudgetParams{UnitLimit: units, MicroLamportsPerUnit: max(s.defaultFee, s.minFee)}
}
