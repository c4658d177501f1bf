package portfolio

import (
	"errors"
	"fmt"
	"math"
	"os"
	"slices"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/hxuan190/portfolio-swap/internal/common"
	"github.com/hxuan190/portfolio-swap/internal/config"
	"github.com/hxuan190/portfolio-swap/internal/domain"
	container "github.com/thehyperflames/dicontainer-go"
)

const (
	REGISTRY_SERVICE = "portfolio-registry"

	weightTolerance = 1e-6
)

var ErrInvalidPortfolio = errors.New("invalid portfolio")

// Builtin returns the portfolios available without any configuration.
func Builtin() []domain.Portfolio {
	return []domain.Portfolio{
		{
			ID:          "defi-portfolio",
			Name:        "DeFi Portfolio",
			Description: "Balanced exposure to SOL, USDC and liquid staked SOL",
			Tokens: []domain.TokenWeight{
				{Address: common.NativeMint, Symbol: "SOL", Weight: 0.4},
				{Address: common.USDCMint, Symbol: "USDC", Weight: 0.4},
				{Address: common.MSOLMint, Symbol: "mSOL", Weight: 0.2},
			},
		},
		{
			ID:          "stable-portfolio",
			Name:        "Stable Portfolio",
			Description: "Mostly stablecoins with some SOL",
			Tokens: []domain.TokenWeight{
				{Address: common.USDCMint, Symbol: "USDC", Weight: 0.8},
				{Address: common.NativeMint, Symbol: "SOL", Weight: 0.2},
			},
		},
		{
			ID:          "high-risk",
			Name:        "High Risk Portfolio",
			Description: "SOL and BONK, split evenly",
			Tokens: []domain.TokenWeight{
				{Address: common.NativeMint, Symbol: "SOL", Weight: 0.5},
				{Address: common.BONKMint, Symbol: "BONK", Weight: 0.5},
			},
		},
	}
}

type fileToken struct {
	Address string  `yaml:"address"`
	Symbol  string  `yaml:"symbol"`
	Weight  float64 `yaml:"weight"`
}

type filePortfolio struct {
	ID          string      `yaml:"id"`
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Tokens      []fileToken `yaml:"tokens"`
}

type portfolioFile struct {
	// Replace drops the built-in portfolios instead of extending them.
	Replace    bool            `yaml:"replace"`
	Portfolios []filePortfolio `yaml:"portfolios"`
}

// Registry holds the portfolios users can swap into, in a stable order.
type Registry struct {
	container.BaseDIInstance

	mu         sync.RWMutex
	order      []string
	portfolios map[string]domain.Portfolio
	file       string
}

// NewRegistry validates and indexes portfolios. Later entries replace earlier ones with the same ID.
func NewRegistry(portfolios ...domain.Portfolio) (*Registry, error) {
	r := &Registry{portfolios: make(map[string]domain.Portfolio)}
	if err := r.add(portfolios...); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Registry) ID() string {
	return REGISTRY_SERVICE
}

func (r *Registry) Configure(c container.IContainer) error {
	cfg := c.GetConfig(config.PORTFOLIO_CONFIG_KEY).(*config.PortfolioConfig)
	r.portfolios = make(map[string]domain.Portfolio)
	r.order = nil
	r.file = cfg.File

	if err := r.add(Builtin()...); err != nil {
		return err
	}
	if r.file == "" {
		return nil
	}
	return r.LoadFile(r.file)
}

func (r *Registry) Start() error {
	log.Info().Int("portfolios", len(r.List())).Str("file", r.file).Msg("[PortfolioRegistry] started")
	return nil
}

func (r *Registry) Stop() error {
	return nil
}

// LoadFile reads a YAML portfolio file and merges it into the registry.
func (r *Registry) LoadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read portfolios file: %w", err)
	}
	var file portfolioFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parse portfolios file %s: %w", path, err)
	}

	parsed := make([]domain.Portfolio, 0, len(file.Portfolios))
	for _, fp := range file.Portfolios {
		p, err := fp.toDomain()
		if err != nil {
			return err
		}
		parsed = append(parsed, p)
	}

	if file.Replace {
		r.mu.Lock()
		r.portfolios = make(map[string]domain.Portfolio)
		r.order = nil
		r.mu.Unlock()
	}
	return r.add(parsed...)
}

func (fp filePortfolio) toDomain() (domain.Portfolio, error) {
	p := domain.Portfolio{
		ID:          fp.ID,
		Name:        fp.Name,
		Description: fp.Description,
		Tokens:      make([]domain.TokenWeight, 0, len(fp.Tokens)),
	}
	for _, t := range fp.Tokens {
		addr, err := solana.PublicKeyFromBase58(t.Address)
		if err != nil {
			return domain.Portfolio{}, fmt.Errorf("%w: %s: token %q: %w", ErrInvalidPortfolio, fp.ID, t.Address, err)
		}
		p.Tokens = append(p.Tokens, domain.TokenWeight{Address: addr, Symbol: t.Symbol, Weight: t.Weight})
	}
	return p, nil
}

func (r *Registry) add(portfolios ...domain.Portfolio) error {
	for _, p := range portfolios {
		if err := Validate(p); err != nil {
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range portfolios {
		if _, exists := r.portfolios[p.ID]; !exists {
			r.order = append(r.order, p.ID)
		}
		r.portfolios[p.ID] = p
	}
	return nil
}

// Validate checks a portfolio has an ID, distinct tokens and positive weights summing to 1.
func Validate(p domain.Portfolio) error {
	if p.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidPortfolio)
	}
	if len(p.Tokens) == 0 {
		return fmt.Errorf("%w: %s has no tokens", ErrInvalidPortfolio, p.ID)
	}

	seen := make([]solana.PublicKey, 0, len(p.Tokens))
	var sum float64
	for _, t := range p.Tokens {
		if t.Weight <= 0 {
			return fmt.Errorf("%w: %s: %s weight must be positive", ErrInvalidPortfolio, p.ID, t.Symbol)
		}
		if slices.Contains(seen, t.Address) {
			return fmt.Errorf("%w: %s: duplicate token %s", ErrInvalidPortfolio, p.ID, t.Address)
		}
		seen = append(seen, t.Address)
		sum += t.Weight
	}
	if math.Abs(sum-1) > weightTolerance {
		return fmt.Errorf("%w: %s: weights sum to %g", ErrInvalidPortfolio, p.ID, sum)
	}
	return nil
}

func (r *Registry) Get(id string) (domain.Portfolio, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.portfolios[id]
	if !ok {
		return domain.Portfolio{}, fmt.Errorf("%w: %s", domain.ErrPortfolioNotFound, id)
	}
	return p, nil
}

func (r *Registry) List() []domain.Portfolio {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Portfolio, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.portfolios[id])
	}
	return out
}
