package market

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/shopspring/decimal"

	"github.com/hxuan190/portfolio-swap/internal/domain"
)

// PriceSource is the external price and token metadata API.
type PriceSource interface {
	Prices(ctx context.Context, mints []string) (map[string]decimal.Decimal, error)
	Metadata(ctx context.Context, mints []string) (map[string]domain.TokenMetadata, error)
}

type birdeyeResponse[T any] struct {
	Data    T    `json:"data"`
	Success bool `json:"success"`
}

type birdeyePrice struct {
	Value          float64 `json:"value"`
	UpdateUnixTime int64   `json:"updateUnixTime"`
}

type BirdeyeClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewBirdeyeClient(baseURL, apiKey string) *BirdeyeClient {
	return &BirdeyeClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Prices returns USD prices; mints without a usable price are left out.
func (c *BirdeyeClient) Prices(ctx context.Context, mints []string) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(mints))
	if len(mints) == 0 {
		return out, nil
	}

	var resp birdeyeResponse[map[string]*birdeyePrice]
	if err := c.get(ctx, "/defi/multi_price", mints, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("birdeye: no price data returned")
	}

	for mint, p := range resp.Data {
		if p != nil && p.Value > 0 {
			out[mint] = decimal.NewFromFloat(p.Value)
		}
	}
	return out, nil
}

func (c *BirdeyeClient) Metadata(ctx context.Context, mints []string) (map[string]domain.TokenMetadata, error) {
	if len(mints) == 0 {
		return map[string]domain.TokenMetadata{}, nil
	}

	var resp birdeyeResponse[map[string]domain.TokenMetadata]
	if err := c.get(ctx, "/defi/v3/token/meta-data/multiple", mints, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("birdeye: no metadata returned")
	}
	return resp.Data, nil
}

func (c *BirdeyeClient) get(ctx context.Context, path string, mints []string, out any) error {
	params := url.Values{}
	params.Set("list_address", strings.Join(mints, ","))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("x-chain", "solana")
	if c.apiKey != "" {
		req.Header.Set("X-API-KEY", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("birdeye %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("birdeye %s: read body: %w", path, err)
	}
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("birdeye %s: status %d", path, resp.StatusCode)
	}
	if err := sonic.Unmarshal(body, out); err != nil {
		return fmt.Errorf("birdeye %s: decode: %w", path, err)
	}
	return nil
}
