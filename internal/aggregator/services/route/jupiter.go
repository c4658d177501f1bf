package route

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gagliardetto/solana-go"

	"github.com/hxuan190/portfolio-swap/internal/domain"
)

// Aggregator is the external quote and swap-instructions API.
type Aggregator interface {
	Quote(ctx context.Context, leg domain.SwapLeg) (*Quote, error)
	SwapInstructions(ctx context.Context, quote *Quote, user solana.PublicKey) (*SwapInstructions, error)
}

// Quote keeps the aggregator's quote verbatim so it can be handed back unchanged
// when requesting instructions.
type Quote struct {
	InAmount  string
	OutAmount string
	Raw       json.RawMessage
}

type quoteEnvelope struct {
	InAmount  string `json:"inAmount"`
	OutAmount string `json:"outAmount"`
	Error     string `json:"error"`
	ErrorCode string `json:"errorCode"`
}

// SwapInstructions is the instruction set for one quote. Either Instructions is
// set, or the setup/swap/cleanup split is.
type SwapInstructions struct {
	Instructions                []domain.RawInstruction `json:"instructions"`
	SetupInstructions           []domain.RawInstruction `json:"setupInstructions"`
	SwapInstruction             *domain.RawInstruction  `json:"swapInstruction"`
	CleanupInstruction          *domain.RawInstruction  `json:"cleanupInstruction"`
	AddressLookupTableAddresses []string                `json:"addressLookupTableAddresses"`
	Error                       string                  `json:"error"`
}

type swapInstructionsRequest struct {
	QuoteResponse json.RawMessage `json:"quoteResponse"`
	UserPublicKey string          `json:"userPublicKey"`
}

// JupiterClient talks to a Jupiter v6 compatible API.
type JupiterClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewJupiterClient(baseURL, apiKey string, timeout time.Duration) *JupiterClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &JupiterClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *JupiterClient) Quote(ctx context.Context, leg domain.SwapLeg) (*Quote, error) {
	params := url.Values{}
	params.Set("inputMint", leg.InputToken.String())
	params.Set("outputMint", leg.OutputToken.String())
	params.Set("amount", strconv.FormatUint(leg.Amount, 10))
	params.Set("slippageBps", strconv.Itoa(int(leg.SlippageBps)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/quote?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrAggregatorUnavailable, err)
	}

	status, body, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: quote: %w", domain.ErrAggregatorUnavailable, err)
	}

	// Only an explicit error from the aggregator means there is no route. Anything
	// else that went wrong is a failing upstream the caller may retry.
	var env quoteEnvelope
	decodeErr := sonic.Unmarshal(body, &env)
	if decodeErr == nil && env.Error != "" {
		return nil, fmt.Errorf("%w: %s -> %s (status %d): %s %s",
			domain.ErrQuoteUnavailable, leg.InputToken, leg.OutputToken, status, env.ErrorCode, env.Error)
	}
	if status/100 != 2 {
		return nil, fmt.Errorf("%w: quote status %d", domain.ErrAggregatorUnavailable, status)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("%w: decode quote: %v", domain.ErrAggregatorUnavailable, decodeErr)
	}
	if env.OutAmount == "" {
		return nil, fmt.Errorf("%w: quote without outAmount", domain.ErrAggregatorUnavailable)
	}

	return &Quote{
		InAmount:  env.InAmount,
		OutAmount: env.OutAmount,
		Raw:       json.RawMessage(body),
	}, nil
}

func (c *JupiterClient) SwapInstructions(ctx context.Context, quote *Quote, user solana.PublicKey) (*SwapInstructions, error) {
	payload, err := sonic.Marshal(swapInstructionsRequest{
		QuoteResponse: quote.Raw,
		UserPublicKey: user.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %w", domain.ErrInstructionResolutionFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/swap-instructions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInstructionResolutionFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	status, body, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInstructionResolutionFailed, err)
	}

	var out SwapInstructions
	if err := sonic.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", domain.ErrInstructionResolutionFailed, err)
	}
	if status/100 != 2 || out.Error != "" {
		return nil, fmt.Errorf("%w: status %d: %s", domain.ErrInstructionResolutionFailed, status, out.Error)
	}
	return &out, nil
}

func (c *JupiterClient) do(req *http.Request) (int, []byte, error) {
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, body, nil
}
