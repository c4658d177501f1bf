package main

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	container "github.com/thehyperflames/dicontainer-go"

	"github.com/hxuan190/portfolio-swap/internal/aggregator"
	"github.com/hxuan190/portfolio-swap/internal/aggregator/adapters/blockchain"
	"github.com/hxuan190/portfolio-swap/internal/aggregator/services/builder"
	"github.com/hxuan190/portfolio-swap/internal/aggregator/services/market"
	"github.com/hxuan190/portfolio-swap/internal/aggregator/services/portfolio"
	"github.com/hxuan190/portfolio-swap/internal/aggregator/services/priority"
	"github.com/hxuan190/portfolio-swap/internal/aggregator/services/route"
	"github.com/hxuan190/portfolio-swap/internal/aggregator/services/submitter"
	"github.com/hxuan190/portfolio-swap/internal/config"
	"github.com/hxuan190/portfolio-swap/internal/http"
)

// @title Portfolio Swap API
// @version 1.0
// @description Swap any token into a diversified portfolio with a single signed transaction.
// @description
// @description ## Flow
// @description 1. `GET /api/actions/portfolio-swap/{id}` returns the connect action
// @description 2. The wallet signs the connect message and posts it to `verify-signature`
// @description 3. The user picks a held token and amount, `transaction` returns an unsigned v0 transaction
// @description 4. Plans with more legs than fit in one transaction return a continuation for `/api/v1/swap/continue`
// @description 5. Signed transactions may be relayed through `/api/v1/transactions/submit`
// @description
// @description Amounts on /api/v1 are base units. Action amounts are UI units.
// @BasePath /
// @schemes https http
// @tag.name actions
// @tag.description Wallet action endpoints
// @tag.name swap
// @tag.description Build unsigned swap transactions from raw plans
// @tag.name transactions
// @tag.description Submit signed transactions and inspect attempts
// @tag.name portfolios
// @tag.description Portfolio registry and wallet balances

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("no .env file loaded, using process environment")
	}

	general := &config.GeneralConfig{}
	if err := general.Load(); err != nil {
		log.Error().Err(err).Msg("invalid general config")
		return
	}
	setLogLevel(general.LogLevel)

	// di container config
	conf := container.NewConf(
		general,
		&config.RPCConfig{},
		&config.AggregatorConfig{},
		&config.LUTConfig{},
		&config.ComputeBudgetConfig{},
		&config.FeeConfig{},
		&config.MarketConfig{},
		&config.SubmitterConfig{},
		&config.NATSConfig{},
		&config.PortfolioConfig{},
	)

	// di container; services are configured in this order, dependencies first
	dic, err := container.New(
		conf,

		&blockchain.BlockhashService{},
		&market.Service{},
		&route.Resolver{},
		&priority.Service{},
		&builder.BuilderService{},
		&portfolio.Registry{},
		&submitter.Submitter{},
		&aggregator.Service{},

		&http.HTTPService{},
	)
	if err != nil {
		log.Error().Err(err).Msg("failed to create di container")
		return
	}

	// Run blocks until SIGINT/SIGTERM
	if err := dic.Run(); err != nil {
		log.Error().Err(err).Msg("failed to run di container")
		return
	}

	log.Info().Msg("Shutting down services...")
	if err := dic.Stop(); err != nil {
		log.Error().Err(err).Msg("error during shutdown")
	}
	log.Info().Msg("Shutdown complete")
}

func setLogLevel(level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}
