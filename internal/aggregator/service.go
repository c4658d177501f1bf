package aggregator

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/hxuan190/portfolio-swap/internal/aggregator/services/builder"
	"github.com/hxuan190/portfolio-swap/internal/aggregator/services/market"
	"github.com/hxuan190/portfolio-swap/internal/aggregator/services/portfolio"
	"github.com/hxuan190/portfolio-swap/internal/aggregator/services/submitter"
	"github.com/hxuan190/portfolio-swap/internal/config"
	"github.com/hxuan190/portfolio-swap/internal/domain"
	"github.com/hxuan190/portfolio-swap/internal/services"
	container "github.com/thehyperflames/dicontainer-go"
)

const AGGREGATOR_SERVICE = "aggregator-service"

const DefaultSlippageBps = 100

type PlanBuilder interface {
	Build(ctx context.Context, plan domain.SwapPlan) (*domain.BuildResult, error)
}

type TransactionSubmitter interface {
	Submit(ctx context.Context, wire string) (*domain.SubmissionResult, error)
	Attempts(signature string) ([]domain.SubmissionAttempt, error)
}

type WalletReader interface {
	GetWalletTokens(ctx context.Context, owner solana.PublicKey) ([]domain.WalletToken, error)
}

type PortfolioSource interface {
	Get(id string) (domain.Portfolio, error)
	List() []domain.Portfolio
}

// PortfolioSwapRequest swaps Amount (UI units) of InputToken into a portfolio.
type PortfolioSwapRequest struct {
	Signer      solana.PublicKey
	PortfolioID string
	InputToken  solana.PublicKey
	Amount      decimal.Decimal
	SlippageBps uint16
}

type PortfolioSwapResult struct {
	*domain.BuildResult
	Message string `json:"message"`
}

// Service is the entry point used by the HTTP layer and the CLI.
type Service struct {
	container.BaseDIInstance
	logger *services.ServiceLogger

	builder    PlanBuilder
	submitter  TransactionSubmitter
	wallets    WalletReader
	portfolios PortfolioSource
	feeBps     uint16
}

func NewService(planBuilder PlanBuilder, txSubmitter TransactionSubmitter, wallets WalletReader, portfolios PortfolioSource, feeBps uint16) *Service {
	svc := &Service{
		builder:    planBuilder,
		submitter:  txSubmitter,
		wallets:    wallets,
		portfolios: portfolios,
		feeBps:     feeBps,
	}
	svc.logger = services.NewServiceLogger(svc)
	return svc
}

func (svc *Service) ID() string {
	return AGGREGATOR_SERVICE
}

func (svc *Service) Configure(c container.IContainer) error {
	svc.logger = services.NewServiceLogger(svc)
	feeConfig := c.GetConfig(config.FEE_CONFIG_KEY).(*config.FeeConfig)

	svc.builder = c.Instance(builder.BUILDER_SERVICE_NAME).(*builder.BuilderService)
	svc.submitter = c.Instance(submitter.SUBMITTER_SERVICE).(*submitter.Submitter)
	svc.wallets = c.Instance(market.ServiceName).(*market.Service)
	svc.portfolios = c.Instance(portfolio.REGISTRY_SERVICE).(*portfolio.Registry)
	if feeConfig.Enabled() {
		svc.feeBps = feeConfig.Bps
	}
	return nil
}

func (svc *Service) Start() error {
	svc.logger.Info().Uint16("feeBps", svc.feeBps).Msg("[AggregatorService] started")
	return nil
}

func (svc *Service) Stop() error {
	return nil
}

// BuildPlan resolves a boundary plan into a swap plan and builds its first batch.
func (svc *Service) BuildPlan(ctx context.Context, p domain.TransactionPlan) (*domain.BuildResult, error) {
	plan, err := domain.ResolvePlan(p)
	if err != nil {
		return nil, err
	}
	return svc.builder.Build(ctx, plan)
}

// BuildContinuation builds the next batch of a plan that did not fit. No fee is charged.
func (svc *Service) BuildContinuation(ctx context.Context, c domain.Continuation) (*domain.BuildResult, error) {
	if c.Signer.IsZero() {
		return nil, domain.ErrInvalidSigner
	}
	plan := c.Plan()
	if len(plan.Legs) == 0 {
		return nil, domain.ErrEmptyPlan
	}
	return svc.builder.Build(ctx, plan)
}

// BuildPortfolioSwap checks the signer holds enough of the input token, splits
// the amount over the portfolio weights and builds the first batch.
func (svc *Service) BuildPortfolioSwap(ctx context.Context, req PortfolioSwapRequest) (*PortfolioSwapResult, error) {
	if req.Signer.IsZero() {
		return nil, domain.ErrInvalidSigner
	}
	if !req.Amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	if req.SlippageBps == 0 {
		req.SlippageBps = DefaultSlippageBps
	}
	if req.SlippageBps > domain.MaxSlippageBps {
		return nil, fmt.Errorf("%w: slippage %d bps", domain.ErrInvalidPlan, req.SlippageBps)
	}

	p, err := svc.portfolios.Get(req.PortfolioID)
	if err != nil {
		return nil, err
	}

	tokens, err := svc.wallets.GetWalletTokens(ctx, req.Signer)
	if err != nil {
		return nil, err
	}
	var held *domain.WalletToken
	for i := range tokens {
		if tokens[i].Mint.Equals(req.InputToken) {
			held = &tokens[i]
			break
		}
	}
	if held == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrTokenNotHeld, req.InputToken)
	}
	if req.Amount.GreaterThan(held.Amount) {
		return nil, fmt.Errorf("%w: have %s, want %s", domain.ErrInsufficientBalance, held.Amount, req.Amount)
	}

	total, err := ToBaseUnits(req.Amount, held.Decimals)
	if err != nil {
		return nil, err
	}
	legs := SplitLegs(req.InputToken, total, req.SlippageBps, p.Tokens)
	if len(legs) == 0 {
		return nil, domain.ErrEmptyPlan
	}
	fee := PlatformFee(legs, svc.feeBps)
	// the fee transfer runs before the swaps and draws from the same balance
	if debit := legsTotal(legs); debit > heldRaw(held) || fee > heldRaw(held)-debit {
		return nil, fmt.Errorf("%w: have %s, want %s plus a %d base unit fee",
			domain.ErrInsufficientBalance, held.Amount, req.Amount, fee)
	}

	log.Debug().
		Str("portfolio", p.ID).
		Str("signer", req.Signer.String()).
		Int("legs", len(legs)).
		Uint64("fee", fee).
		Msg("[AggregatorService] building portfolio swap")

	result, err := svc.BuildPlan(ctx, domain.MultiSwapPlan{
		Signer:      req.Signer,
		Legs:        legs,
		SlippageBps: req.SlippageBps,
		FeeAmount:   fee,
	})
	if err != nil {
		return nil, err
	}
	return &PortfolioSwapResult{BuildResult: result, Message: SwapMessage(req.Amount, p)}, nil
}

func (svc *Service) Submit(ctx context.Context, wire string) (*domain.SubmissionResult, error) {
	return svc.submitter.Submit(ctx, wire)
}

func (svc *Service) Attempts(signature string) ([]domain.SubmissionAttempt, error) {
	if _, err := solana.SignatureFromBase58(signature); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidSignature, err)
	}
	return svc.submitter.Attempts(signature)
}

func (svc *Service) Portfolios() []domain.Portfolio {
	return svc.portfolios.List()
}

func (svc *Service) Portfolio(id string) (domain.Portfolio, error) {
	return svc.portfolios.Get(id)
}

func (svc *Service) WalletTokens(ctx context.Context, owner solana.PublicKey) ([]domain.WalletToken, error) {
	return svc.wallets.GetWalletTokens(ctx, owner)
}

// VerifySignature checks a base58 ed25519 signature of message by account.
func (svc *Service) VerifySignature(account, signature, message string) (solana.PublicKey, error) {
	owner, err := solana.PublicKeyFromBase58(account)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w: %w", domain.ErrInvalidSigner, err)
	}
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w: %w", domain.ErrInvalidSignature, err)
	}
	if !sig.Verify(owner, []byte(message)) {
		return solana.PublicKey{}, domain.ErrInvalidSignature
	}
	return owner, nil
}

func legsTotal(legs []domain.SwapLeg) uint64 {
	var total uint64
	for _, leg := range legs {
		total += leg.Amount
	}
	return total
}

// heldRaw prefers the on-chain base unit balance and derives it from the UI
// amount when only that is known.
func heldRaw(t *domain.WalletToken) uint64 {
	if t.Raw > 0 {
		return t.Raw
	}
	raw, err := ToBaseUnits(t.Amount, t.Decimals)
	if err != nil {
		return 0
	}
	return raw
}
