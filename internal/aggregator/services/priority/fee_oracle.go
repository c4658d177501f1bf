package priority

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gagliardetto/solana-go"
	"github.com/itchyny/gojq"
)

// DefaultFeeQuery extracts the estimate from a getPriorityFeeEstimate response.
const DefaultFeeQuery = ".result.priorityFeeEstimate"

var ErrMissingFeeEstimate = errors.New("fee oracle response has no estimate")

// FeeOracle returns a unit price in microLamports for the given provisional transaction.
type FeeOracle interface {
	EstimatePriorityFee(ctx context.Context, tx *solana.Transaction, wire string) (uint64, error)
}

type feeEstimateRequest struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      string           `json:"id"`
	Method  string           `json:"method"`
	Params  []feeEstimateArg `json:"params"`
}

type feeEstimateArg struct {
	Transaction string             `json:"transaction"`
	Options     feeEstimateOptions `json:"options"`
}

type feeEstimateOptions struct {
	Recommended         bool   `json:"recommended"`
	TransactionEncoding string `json:"transactionEncoding"`
}

// HTTPFeeOracle posts the wire transaction to a getPriorityFeeEstimate endpoint
// and extracts the estimate with a jq query, so providers with a different
// response shape only need a different query.
type HTTPFeeOracle struct {
	url        string
	query      *gojq.Code
	httpClient *http.Client
}

func NewHTTPFeeOracle(url, query string, timeout time.Duration) (*HTTPFeeOracle, error) {
	if query == "" {
		query = DefaultFeeQuery
	}
	parsed, err := gojq.Parse(query)
	if err != nil {
		return nil, fmt.Errorf("failed to parse fee query %q: %w", query, err)
	}
	code, err := gojq.Compile(parsed)
	if err != nil {
		return nil, fmt.Errorf("failed to compile fee query %q: %w", query, err)
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPFeeOracle{
		url:        url,
		query:      code,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

func (o *HTTPFeeOracle) EstimatePriorityFee(ctx context.Context, _ *solana.Transaction, wire string) (uint64, error) {
	payload, err := sonic.Marshal(feeEstimateRequest{
		JSONRPC: "2.0",
		ID:      "1",
		Method:  "getPriorityFeeEstimate",
		Params: []feeEstimateArg{{
			Transaction: wire,
			Options:     feeEstimateOptions{Recommended: true, TransactionEncoding: "base64"},
		}},
	})
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.url, bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, err
	}
	if resp.StatusCode/100 != 2 {
		return 0, fmt.Errorf("fee oracle status %d", resp.StatusCode)
	}

	var doc any
	if err := sonic.Unmarshal(body, &doc); err != nil {
		return 0, fmt.Errorf("decode fee oracle response: %w", err)
	}
	return o.extract(doc)
}

func (o *HTTPFeeOracle) extract(doc any) (uint64, error) {
	v, ok := o.query.Run(doc).Next()
	if !ok || v == nil {
		return 0, ErrMissingFeeEstimate
	}
	if err, isErr := v.(error); isErr {
		return 0, err
	}

	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case int:
		f = float64(n)
	case string:
		parsed, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrMissingFeeEstimate, n)
		}
		f = parsed
	default:
		return 0, fmt.Errorf("%w: unexpected %T", ErrMissingFeeEstimate, v)
	}
	if f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %v", ErrMissingFeeEstimate, f)
	}
	return uint64(math.Ceil(f)), nil
}
