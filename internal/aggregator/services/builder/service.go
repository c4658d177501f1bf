package builder

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/portfolio-swap/internal/aggregator/adapters/blockchain"
	"github.com/hxuan190/portfolio-swap/internal/aggregator/services/market"
	"github.com/hxuan190/portfolio-swap/internal/aggregator/services/priority"
	"github.com/hxuan190/portfolio-swap/internal/aggregator/services/route"
	"github.com/hxuan190/portfolio-swap/internal/config"
	"github.com/hxuan190/portfolio-swap/internal/domain"
	"github.com/hxuan190/portfolio-swap/internal/metrics"
	"github.com/hxuan190/portfolio-swap/internal/services"
	container "github.com/thehyperflames/dicontainer-go"
)

const BUILDER_SERVICE_NAME = "BuilderService"

type RouteResolver interface {
	ResolveBatch(ctx context.Context, signer solana.PublicKey, legs []domain.SwapLeg) ([]*route.Route, error)
}

type TableResolver interface {
	Resolve(ctx context.Context, addresses []solana.PublicKey) (AddressTables, error)
	StaticTables() AddressTables
}

type BudgetEstimator interface {
	Estimate(ctx context.Context, tx *solana.Transaction, wire string) (domain.ComputeBudgetParams, error)
	PlaceholderParams() domain.ComputeBudgetParams
}

// BuilderService turns a swap plan into one unsigned, compute budgeted,
// lookup table compressed transaction plus a continuation for legs that did not fit.
type BuilderService struct {
	container.BaseDIInstance

	logger    *services.ServiceLogger
	resolver  RouteResolver
	fees      *FeeInstructionBuilder
	luts      TableResolver
	lutMgr    *LUTManager
	estimator BudgetEstimator
	assembler *Assembler
	batchSize int

	stopRefresh context.CancelFunc
}

func NewBuilderService(
	resolver RouteResolver,
	fees *FeeInstructionBuilder,
	luts TableResolver,
	estimator BudgetEstimator,
	assembler *Assembler,
	batchSize int,
) *BuilderService {
	svc := &BuilderService{
		resolver:  resolver,
		fees:      fees,
		luts:      luts,
		estimator: estimator,
		assembler: assembler,
		batchSize: batchSize,
	}
	svc.logger = services.NewServiceLogger(svc)
	return svc
}

func (svc *BuilderService) ID() string {
	return BUILDER_SERVICE_NAME
}

func (svc *BuilderService) Configure(c container.IContainer) error {
	rpcConfig := c.GetConfig(config.RPC_CONFIG_KEY).(*config.RPCConfig)
	aggConfig := c.GetConfig(config.AGGREGATOR_CONFIG_KEY).(*config.AggregatorConfig)
	feeConfig := c.GetConfig(config.FEE_CONFIG_KEY).(*config.FeeConfig)
	lutConfig := c.GetConfig(config.LUT_CONFIG_KEY).(*config.LUTConfig)

	lutAddresses := make([]solana.PublicKey, 0, len(lutConfig.Addresses))
	for _, addr := range lutConfig.Addresses {
		pk, err := solana.PublicKeyFromBase58(addr)
		if err != nil {
			return fmt.Errorf("invalid LUT address %q: %w", addr, err)
		}
		lutAddresses = append(lutAddresses, pk)
	}

	svc.logger = services.NewServiceLogger(svc)
	svc.resolver = c.Instance(route.ROUTE_SERVICE).(*route.Resolver)
	svc.estimator = c.Instance(priority.PRIORITY_SERVICE).(*priority.Service)
	svc.assembler = NewAssembler(c.Instance(blockchain.BLOCKHASH_SERVICE).(*blockchain.BlockhashService))
	svc.fees = NewFeeInstructionBuilder(feeConfig.Collector, c.Instance(market.ServiceName).(*market.Service))
	svc.lutMgr = NewLUTManager(rpc.New(rpcConfig.RPCUrl), lutAddresses, lutConfig.RefreshInterval)
	svc.luts = svc.lutMgr
	svc.batchSize = aggConfig.BatchSize
	return nil
}

func (svc *BuilderService) Start() error {
	if svc.lutMgr != nil {
		ctx, cancel := context.WithCancel(context.Background())
		svc.stopRefresh = cancel
		svc.lutMgr.Start(ctx)
	}
	return nil
}

func (svc *BuilderService) Stop() error {
	if svc.stopRefresh != nil {
		svc.stopRefresh()
	}
	return nil
}

// TableResolver exposes lookup table resolution to the submitter.
func (svc *BuilderService) TableResolver() TableResolver {
	return svc.luts
}

// Build runs the whole pipeline for the first batch of plan. Every call fetches
// fresh blockhashes, so two builds of the same plan differ only in lifetime.
func (svc *BuilderService) Build(ctx context.Context, plan domain.SwapPlan) (*domain.BuildResult, error) {
	start := time.Now()
	result, err := svc.build(ctx, plan)

	status := "success"
	if err != nil {
		status = "error"
		if errors.Is(err, domain.ErrSlippageExceeded) {
			status = "slippage"
		}
	}
	metrics.BuildRequests.WithLabelValues(status).Inc()
	metrics.BuildDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
	return result, err
}

func (svc *BuilderService) build(ctx context.Context, plan domain.SwapPlan) (*domain.BuildResult, error) {
	if plan.Signer.IsZero() {
		return nil, domain.ErrInvalidSigner
	}
	if len(plan.Legs) == 0 {
		return nil, domain.ErrEmptyPlan
	}

	batch := SplitPlan(plan, svc.batchSize)
	metrics.LegsPerBuild.Observe(float64(len(batch.Legs)))

	routes, err := svc.resolver.ResolveBatch(ctx, plan.Signer, batch.Legs)
	if err != nil {
		return nil, err
	}

	body := make([]solana.Instruction, 0, 1+len(routes)*3)
	if svc.fees != nil {
		feeIx, err := svc.fees.Build(ctx, plan.Signer, batch.Legs[0].InputToken, plan.FeeAmount)
		if err != nil {
			return nil, fmt.Errorf("%w: fee instruction: %w", domain.ErrBuildFailed, err)
		}
		if feeIx != nil {
			body = append(body, feeIx)
		}
	}
	for _, r := range routes {
		for _, ix := range r.Instructions {
			body = append(body, ix)
		}
	}

	referenced := route.TableAddresses(routes)
	resolved, err := svc.luts.Resolve(ctx, referenced)
	if err != nil {
		return nil, fmt.Errorf("%w: lookup tables: %w", domain.ErrBuildFailed, err)
	}
	tables := MergeTables(svc.luts.StaticTables(), resolved)

	provisional, err := svc.assembleWithBudget(ctx, plan.Signer, svc.estimator.PlaceholderParams(), body, tables)
	if err != nil {
		return nil, err
	}

	params, err := svc.estimator.Estimate(ctx, provisional.Tx, provisional.Wire)
	if err != nil {
		return nil, err
	}

	final, err := svc.assembleWithBudget(ctx, plan.Signer, params, body, tables)
	if err != nil {
		return nil, err
	}

	result := &domain.BuildResult{
		Transaction:          final.Wire,
		Blockhash:            final.Lifetime.Blockhash.String(),
		LastValidBlockHeight: final.Lifetime.LastValidBlockHeight,
		ComputeBudget:        params,
		Legs:                 batch.Legs,
		LookupTables:         tableKeys(tables),
	}
	if len(batch.Remainder) > 0 {
		metrics.Continuations.Inc()
		result.Continuation = &domain.Continuation{
			RemainingLegs: batch.Remainder,
			Signer:        plan.Signer,
			SlippageBps:   plan.SlippageBps,
		}
	}

	svc.logger.WithFields(map[string]any{"signer": plan.Signer.String()}).Info().
		Int("legs", len(batch.Legs)).
		Int("remaining", len(batch.Remainder)).
		Int("tables", len(tables)).
		Uint32("units", params.UnitLimit).
		Uint64("microLamports", params.MicroLamportsPerUnit).
		Msg("[BuilderService] transaction built")

	return result, nil
}

func (svc *BuilderService) assembleWithBudget(
	ctx context.Context,
	payer solana.PublicKey,
	params domain.ComputeBudgetParams,
	body []solana.Instruction,
	tables AddressTables,
) (*AssembledTransaction, error) {
	budget, err := priority.BudgetInstructions(params)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrBuildFailed, err)
	}

	instructions := make([]solana.Instruction, 0, len(budget)+len(body))
	instructions = append(instructions, budget...)
	instructions = append(instructions, body...)

	assembled, err := svc.assembler.Assemble(ctx, payer, instructions, tables)
	if err != nil {
		log.Error().Err(err).Str("payer", payer.String()).Msg("[BuilderService] assembly failed")
		return nil, err
	}
	return assembled, nil
}

func tableKeys(tables AddressTables) []string {
	if len(tables) == 0 {
		return nil
	}
	keys := make([]string, 0, len(tables))
	for k := range tables {
		keys = append(keys, k.String())
	}
	slices.Sort(keys)
	return keys
}
