package market

import (
	"context"
	"fmt"
	"slices"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/hxuan190/portfolio-swap/internal/aggregator/adapters/blockchain"
	"github.com/hxuan190/portfolio-swap/internal/common"
	"github.com/hxuan190/portfolio-swap/internal/config"
	"github.com/hxuan190/portfolio-swap/internal/domain"
	"github.com/hxuan190/portfolio-swap/internal/metrics"
	container "github.com/thehyperflames/dicontainer-go"
)

const (
	ServiceName = "MarketService"

	// Mint owner programs never change, so they are cached far longer than prices.
	mintInfoTTL     = 30 * 24 * time.Hour
	mintInfoMaxSize = 10000

	maxAccountsPerCall = 100
)

// ChainReader is the slice of the RPC client the market service reads from.
type ChainReader interface {
	blockchain.AccountsFetcher
	blockchain.TokenAccountsFetcher
}

type mintInfo struct {
	Program  solana.PublicKey
	Decimals uint8
}

// Service answers mint, price and wallet balance questions, caching every
// answer it gets from the chain or the price API.
type Service struct {
	container.BaseDIInstance

	rpcClient ChainReader
	prices    PriceSource

	mintCache     *TTLCache[solana.PublicKey, mintInfo]
	priceCache    *TTLCache[string, decimal.Decimal]
	metadataCache *TTLCache[string, domain.TokenMetadata]

	minValueUSD     decimal.Decimal
	maxWalletTokens int
}

func NewService(client ChainReader, prices PriceSource, cfg *config.MarketConfig) *Service {
	svc := &Service{
		rpcClient: client,
		prices:    prices,
	}
	svc.init(cfg)
	return svc
}

func (svc *Service) init(cfg *config.MarketConfig) {
	svc.mintCache = NewTTLCache[solana.PublicKey, mintInfo](mintInfoMaxSize, mintInfoTTL)
	svc.priceCache = NewTTLCache[string, decimal.Decimal](cfg.CacheMaxEntries, cfg.CacheTTL)
	svc.metadataCache = NewTTLCache[string, domain.TokenMetadata](cfg.CacheMaxEntries, cfg.CacheTTL)
	svc.minValueUSD = cfg.MinTokenValueUSD
	svc.maxWalletTokens = cfg.MaxWalletTokens
}

func (svc *Service) ID() string {
	return ServiceName
}

func (svc *Service) Configure(c container.IContainer) error {
	rpcConfig := c.GetConfig(config.RPC_CONFIG_KEY).(*config.RPCConfig)
	marketConfig := c.GetConfig(config.MARKET_CONFIG_KEY).(*config.MarketConfig)

	svc.rpcClient = rpc.New(rpcConfig.RPCUrl)
	svc.prices = NewBirdeyeClient(marketConfig.BirdeyeURL, marketConfig.BirdeyeAPIKey)
	svc.init(marketConfig)
	return nil
}

func (svc *Service) Start() error {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		svc.WarmMintCache(ctx)
	}()
	return nil
}

func (svc *Service) Stop() error {
	return nil
}

// WarmMintCache preloads mint info for the well known portfolio tokens.
func (svc *Service) WarmMintCache(ctx context.Context) {
	mints := []solana.PublicKey{common.USDCMint, common.MSOLMint, common.BONKMint}
	if _, err := svc.loadMints(ctx, mints); err != nil {
		log.Warn().Err(err).Msg("[MarketService] failed to warm mint cache")
		return
	}
	log.Info().Int("mints", svc.mintCache.Len()).Msg("[MarketService] mint cache warmed")
}

// GetMintTokenProgram reports which token program owns mint. Native SOL and
// mints that do not exist resolve to the classic token program.
func (svc *Service) GetMintTokenProgram(ctx context.Context, mint solana.PublicKey) (solana.PublicKey, error) {
	if common.IsNative(mint) {
		return common.TokenProgramID, nil
	}
	infos, err := svc.loadMints(ctx, []solana.PublicKey{mint})
	if err != nil {
		return common.TokenProgramID, err
	}
	return infos[mint].Program, nil
}

func (svc *Service) GetMintTokenProgramsBatch(ctx context.Context, mints []solana.PublicKey) ([]solana.PublicKey, error) {
	infos, err := svc.loadMints(ctx, mints)
	if err != nil {
		return nil, err
	}
	results := make([]solana.PublicKey, len(mints))
	for i, mint := range mints {
		if common.IsNative(mint) {
			results[i] = common.TokenProgramID
			continue
		}
		results[i] = infos[mint].Program
	}
	return results, nil
}

func (svc *Service) GetMintDecimals(ctx context.Context, mint solana.PublicKey) (uint8, error) {
	if common.IsNative(mint) {
		return common.NativeDecimals, nil
	}
	infos, err := svc.loadMints(ctx, []solana.PublicKey{mint})
	if err != nil {
		return 0, err
	}
	info, ok := infos[mint]
	if !ok {
		return 0, fmt.Errorf("mint %s not found", mint)
	}
	return info.Decimals, nil
}

// loadMints returns cached info and fetches the rest in chunks. Accounts that
// are missing or not mints are left out of the result.
func (svc *Service) loadMints(ctx context.Context, mints []solana.PublicKey) (map[solana.PublicKey]mintInfo, error) {
	out := make(map[solana.PublicKey]mintInfo, len(mints))
	missing := make([]solana.PublicKey, 0, len(mints))
	for _, mint := range mints {
		if common.IsNative(mint) {
			continue
		}
		if info, _, ok := svc.mintCache.Get(mint); ok {
			out[mint] = info
			metrics.CacheHits.WithLabelValues("mint").Inc()
			continue
		}
		if !slices.Contains(missing, mint) {
			missing = append(missing, mint)
		}
	}
	if len(missing) == 0 {
		return out, nil
	}
	metrics.CacheMisses.WithLabelValues("mint").Add(float64(len(missing)))

	for chunk := range slices.Chunk(missing, maxAccountsPerCall) {
		res, err := svc.rpcClient.GetMultipleAccounts(ctx, chunk...)
		if err != nil {
			return out, fmt.Errorf("get mint accounts: %w", err)
		}
		for i, acc := range res.Value {
			if i >= len(chunk) || acc == nil || acc.Data == nil {
				continue
			}
			var mint token.Mint
			if err := bin.NewBinDecoder(acc.Data.GetBinary()).Decode(&mint); err != nil {
				log.Debug().Err(err).Str("mint", chunk[i].String()).Msg("[MarketService] account is not a mint")
				continue
			}
			program := common.TokenProgramID
			if acc.Owner.Equals(common.Token2022ID) {
				program = common.Token2022ID
			}
			info := mintInfo{Program: program, Decimals: mint.Decimals}
			svc.mintCache.Set(chunk[i], info)
			out[chunk[i]] = info
		}
	}
	return out, nil
}

// GetPrices returns USD prices, reading through the cache. Mints the price API
// knows nothing about are absent from the result.
func (svc *Service) GetPrices(ctx context.Context, mints []string) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(mints))
	missing := make([]string, 0, len(mints))
	for _, mint := range mints {
		if price, _, ok := svc.priceCache.Get(mint); ok {
			out[mint] = price
			metrics.CacheHits.WithLabelValues("price").Inc()
			continue
		}
		missing = append(missing, mint)
	}
	if len(missing) == 0 {
		return out, nil
	}
	metrics.CacheMisses.WithLabelValues("price").Add(float64(len(missing)))

	fetched, err := svc.prices.Prices(ctx, missing)
	if err != nil {
		return nil, fmt.Errorf("fetch prices: %w", err)
	}
	for mint, price := range fetched {
		svc.priceCache.Set(mint, price)
		out[mint] = price
	}
	return out, nil
}

func (svc *Service) GetMetadata(ctx context.Context, mints []string) (map[string]domain.TokenMetadata, error) {
	out := make(map[string]domain.TokenMetadata, len(mints))
	missing := make([]string, 0, len(mints))
	for _, mint := range mints {
		if meta, _, ok := svc.metadataCache.Get(mint); ok {
			out[mint] = meta
			metrics.CacheHits.WithLabelValues("metadata").Inc()
			continue
		}
		missing = append(missing, mint)
	}
	if len(missing) == 0 {
		return out, nil
	}
	metrics.CacheMisses.WithLabelValues("metadata").Add(float64(len(missing)))

	fetched, err := svc.prices.Metadata(ctx, missing)
	if err != nil {
		return nil, fmt.Errorf("fetch metadata: %w", err)
	}
	for mint, meta := range fetched {
		svc.metadataCache.Set(mint, meta)
		out[mint] = meta
	}
	return out, nil
}

// GetWalletTokens lists the owner's SPL balances worth at least the configured
// minimum, most valuable first, capped at the configured count.
func (svc *Service) GetWalletTokens(ctx context.Context, owner solana.PublicKey) ([]domain.WalletToken, error) {
	programID := common.TokenProgramID
	res, err := svc.rpcClient.GetTokenAccountsByOwner(ctx, owner,
		&rpc.GetTokenAccountsConfig{ProgramId: &programID},
		&rpc.GetTokenAccountsOpts{Encoding: solana.EncodingBase64, Commitment: rpc.CommitmentConfirmed},
	)
	if err != nil {
		return nil, fmt.Errorf("get token accounts: %w", err)
	}

	type holding struct {
		account solana.PublicKey
		state   token.Account
	}
	holdings := make([]holding, 0, len(res.Value))
	for _, ta := range res.Value {
		if ta == nil || ta.Account.Data == nil {
			continue
		}
		var state token.Account
		if err := bin.NewBinDecoder(ta.Account.Data.GetBinary()).Decode(&state); err != nil {
			log.Debug().Err(err).Str("account", ta.Pubkey.String()).Msg("[MarketService] skipping undecodable token account")
			continue
		}
		if state.Amount == 0 {
			continue
		}
		holdings = append(holdings, holding{account: ta.Pubkey, state: state})
	}
	if len(holdings) == 0 {
		return []domain.WalletToken{}, nil
	}

	mintKeys := make([]solana.PublicKey, 0, len(holdings))
	mintStrs := make([]string, 0, len(holdings))
	for _, h := range holdings {
		if !slices.Contains(mintKeys, h.state.Mint) {
			mintKeys = append(mintKeys, h.state.Mint)
			mintStrs = append(mintStrs, h.state.Mint.String())
		}
	}

	infos, err := svc.loadMints(ctx, mintKeys)
	if err != nil {
		return nil, err
	}
	prices, err := svc.GetPrices(ctx, mintStrs)
	if err != nil {
		return nil, err
	}
	meta, err := svc.GetMetadata(ctx, mintStrs)
	if err != nil {
		log.Warn().Err(err).Msg("[MarketService] token metadata unavailable, continuing without symbols")
		meta = map[string]domain.TokenMetadata{}
	}

	tokens := make([]domain.WalletToken, 0, len(holdings))
	for _, h := range holdings {
		mint := h.state.Mint.String()
		info, ok := infos[h.state.Mint]
		if !ok {
			continue
		}
		price, ok := prices[mint]
		if !ok {
			continue
		}
		amount := decimal.NewFromUint64(h.state.Amount).Shift(-int32(info.Decimals))
		value := amount.Mul(price)
		if value.LessThan(svc.minValueUSD) {
			continue
		}
		m := meta[mint]
		tokens = append(tokens, domain.WalletToken{
			Mint:     h.state.Mint,
			Account:  h.account,
			Amount:   amount,
			Raw:      h.state.Amount,
			Decimals: info.Decimals,
			ValueUSD: value,
			Symbol:   m.Symbol,
			Name:     m.Name,
			LogoURI:  m.LogoURI,
		})
	}

	slices.SortStableFunc(tokens, func(a, b domain.WalletToken) int {
		return b.ValueUSD.Cmp(a.ValueUSD)
	})
	if svc.maxWalletTokens > 0 && len(tokens) > svc.maxWalletTokens {
		tokens = tokens[:svc.maxWalletTokens]
	}
	return tokens, nil
}
