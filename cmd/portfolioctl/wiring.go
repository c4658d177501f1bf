package main

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/hxuan190/portfolio-swap/internal/adapters/messaging"
	"github.com/hxuan190/portfolio-swap/internal/adapters/persistence"
	"github.com/hxuan190/portfolio-swap/internal/aggregator"
	"github.com/hxuan190/portfolio-swap/internal/aggregator/adapters/blockchain"
	"github.com/hxuan190/portfolio-swap/internal/aggregator/services/builder"
	"github.com/hxuan190/portfolio-swap/internal/aggregator/services/market"
	"github.com/hxuan190/portfolio-swap/internal/aggregator/services/portfolio"
	"github.com/hxuan190/portfolio-swap/internal/aggregator/services/priority"
	"github.com/hxuan190/portfolio-swap/internal/aggregator/services/route"
	"github.com/hxuan190/portfolio-swap/internal/aggregator/services/submitter"
	"github.com/hxuan190/portfolio-swap/internal/config"
)

type loader interface {
	Load() error
	Validate() error
}

func loadConfigs(cfgs ...loader) error {
	for _, cfg := range cfgs {
		if err := cfg.Load(); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// loadRegistry needs no network access.
func loadRegistry() (*portfolio.Registry, error) {
	var pc config.PortfolioConfig
	if err := loadConfigs(&pc); err != nil {
		return nil, err
	}
	registry, err := portfolio.NewRegistry(portfolio.Builtin()...)
	if err != nil {
		return nil, err
	}
	if pc.File != "" {
		if err := registry.LoadFile(pc.File); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// runtime is the service graph the server builds through the container, wired by hand.
type runtime struct {
	aggregator *aggregator.Service
	stop       func()
}

func newRuntime(ctx context.Context, withStore bool) (*runtime, error) {
	var (
		rpcCfg    config.RPCConfig
		aggCfg    config.AggregatorConfig
		lutCfg    config.LUTConfig
		budgetCfg config.ComputeBudgetConfig
		feeCfg    config.FeeConfig
		marketCfg config.MarketConfig
		subCfg    config.SubmitterConfig
		natsCfg   config.NATSConfig
	)
	if err := loadConfigs(&rpcCfg, &aggCfg, &lutCfg, &budgetCfg, &feeCfg, &marketCfg, &subCfg, &natsCfg); err != nil {
		return nil, err
	}

	registry, err := loadRegistry()
	if err != nil {
		return nil, err
	}

	client := rpc.New(rpcCfg.RPCUrl)
	marketSvc := market.NewService(client, market.NewBirdeyeClient(marketCfg.BirdeyeURL, marketCfg.BirdeyeAPIKey), &marketCfg)

	var oracle priority.FeeOracle = priority.NewRecentFeesOracle(client, 75)
	if rpcCfg.PriorityFeeURL != "" {
		httpOracle, err := priority.NewHTTPFeeOracle(rpcCfg.PriorityFeeURL, rpcCfg.PriorityFeeQuery, 0)
		if err != nil {
			return nil, err
		}
		oracle = httpOracle
	}
	cu := priority.NewCUEstimator(client, budgetCfg.DefaultUnits, budgetCfg.MaxUnits, budgetCfg.Margin)
	prio := priority.NewService(cu, oracle, budgetCfg.DefaultPriorityFee, budgetCfg.MinPriorityFee)

	lutAddresses := make([]solana.PublicKey, 0, len(lutCfg.Addresses))
	for _, addr := range lutCfg.Addresses {
		pk, err := solana.PublicKeyFromBase58(addr)
		if err != nil {
			return nil, fmt.Errorf("invalid LUT address %q: %w", addr, err)
		}
		lutAddresses = append(lutAddresses, pk)
	}
	lutMgr := builder.NewLUTManager(client, lutAddresses, lutCfg.RefreshInterval)
	lutCtx, cancelLUT := context.WithCancel(ctx)
	lutMgr.Start(lutCtx)

	builderSvc := builder.NewBuilderService(
		route.NewResolver(route.NewJupiterClient(aggCfg.APIUrl, aggCfg.APIKey, aggCfg.Timeout)),
		builder.NewFeeInstructionBuilder(feeCfg.Collector, marketSvc),
		lutMgr,
		prio,
		builder.NewAssembler(blockchain.NewBlockhashService(client)),
		aggCfg.BatchSize,
	)

	var waiter submitter.ConfirmationWaiter = submitter.NewPollingWaiter(client, submitter.DefaultPollInterval)
	if rpcCfg.WSUrl != "" {
		waiter = submitter.NewSubscriptionWaiter(rpcCfg.WSUrl, client)
	}

	var closers []func() error
	stop := func() {
		cancelLUT()
		for _, closeFn := range closers {
			_ = closeFn()
		}
	}
	opts := []submitter.Option{
		submitter.WithTableResolver(lutMgr),
		submitter.WithBlockhashValidator(client),
	}
	if withStore && subCfg.PersistenceEnabled {
		store, err := persistence.NewSubmissionStore(subCfg.DBPath)
		if err != nil {
			stop()
			return nil, err
		}
		opts = append(opts, submitter.WithRecorder(store))
		closers = append(closers, store.Close)
	}
	if natsCfg.Enabled() {
		pub, err := messaging.NewJetStreamPublisher(natsCfg.URL, natsCfg.SubjectPrefix)
		if err != nil {
			stop()
			return nil, err
		}
		opts = append(opts, submitter.WithPublisher(pub))
		closers = append(closers, pub.Close)
	}
	sub := submitter.NewSubmitter(client, waiter, subCfg.MaxRetries, subCfg.ConfirmTimeout, opts...)

	var feeBps uint16
	if feeCfg.Enabled() {
		feeBps = feeCfg.Bps
	}

	return &runtime{
		aggregator: aggregator.NewService(builderSvc, sub, marketSvc, registry, feeBps),
		stop:       stop,
	}, nil
}
