package priority

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/portfolio-swap/internal/aggregator/adapters/blockchain"
	"github.com/hxuan190/portfolio-swap/internal/common"
	"github.com/hxuan190/portfolio-swap/internal/domain"
	"github.com/hxuan190/portfolio-swap/internal/metrics"
)

const (
	DefaultComputeUnits = 1_400_000
	MaxComputeUnits     = 1_400_000
	ComputeUnitMargin   = 1.1
)

// slippageErrorNames are error names only a slippage check produces, so they
// count whichever program logged them.
var slippageErrorNames = []string{
	"SlippageToleranceExceeded",
	"ExceededSlippage",
}

// slippageErrorCode is the aggregator program's custom error 6001 (0x1771).
// Other programs reuse 6001 for unrelated errors, so the code alone is not enough.
const slippageErrorCode = 6001

// CUEstimator estimates compute units by simulating the provisional transaction
type CUEstimator struct {
	rpcClient    blockchain.Simulator
	defaultUnits uint32
	maxUnits     uint32
	margin       float64

	// programs whose custom error 6001 means slippage
	swapPrograms []solana.PublicKey
}

// NewCUEstimator treats 6001 from swapPrograms as slippage, the Jupiter v6
// program when none are given.
func NewCUEstimator(rpcClient blockchain.Simulator, defaultUnits, maxUnits uint32, margin float64, swapPrograms ...solana.PublicKey) *CUEstimator {
	if defaultUnits == 0 {
		defaultUnits = DefaultComputeUnits
	}
	if maxUnits == 0 {
		maxUnits = MaxComputeUnits
	}
	if margin < 1 {
		margin = ComputeUnitMargin
	}
	if len(swapPrograms) == 0 {
		swapPrograms = []solana.PublicKey{common.JupiterV6ProgramID}
	}
	return &CUEstimator{
		rpcClient:    rpcClient,
		defaultUnits: defaultUnits,
		maxUnits:     maxUnits,
		margin:       margin,
		swapPrograms: swapPrograms,
	}
}

// CUEstimateResult holds the estimation result
type CUEstimateResult struct {
	UnitsConsumed   uint64   // units reported by simulation, or the default
	UnitsWithBuffer uint32   // limit to set on the transaction
	Fallback        bool     // true when the default was used
	SimulationLogs  []string // logs from simulation (for debugging)
}

// EstimateCU simulates tx with signature verification off and blockhash
// replacement on. A slippage failure is returned as ErrSlippageExceeded; every
// other simulation failure falls back to the default unit count. Only
// cancellation of ctx is returned as-is.
func (e *CUEstimator) EstimateCU(ctx context.Context, tx *solana.Transaction) (*CUEstimateResult, error) {
	opts := rpc.SimulateTransactionOpts{
		SigVerify:              false,
		Commitment:             rpc.CommitmentProcessed,
		ReplaceRecentBlockhash: true,
	}

	result, err := e.rpcClient.SimulateTransactionWithOpts(ctx, tx, &opts)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Warn().Err(err).Msg("[CUEstimator] simulation request failed, using default compute units")
		return e.fallback(nil), nil
	}
	if result == nil || result.Value == nil {
		log.Warn().Msg("[CUEstimator] empty simulation response, using default compute units")
		return e.fallback(nil), nil
	}

	if result.Value.Err != nil {
		if IsSlippageError(tx, result.Value.Err, result.Value.Logs, e.swapPrograms) {
			metrics.SimulationOutcomes.WithLabelValues("slippage").Inc()
			return nil, fmt.Errorf("%w: %v", domain.ErrSlippageExceeded, result.Value.Err)
		}
		log.Warn().
			Str("error", fmt.Sprintf("%v", result.Value.Err)).
			Msg("[CUEstimator] simulation failed, using default compute units")
		return e.fallback(result.Value.Logs), nil
	}

	if result.Value.UnitsConsumed == nil || *result.Value.UnitsConsumed == 0 {
		return e.fallback(result.Value.Logs), nil
	}

	consumed := *result.Value.UnitsConsumed
	metrics.SimulationOutcomes.WithLabelValues("success").Inc()
	return &CUEstimateResult{
		UnitsConsumed:   consumed,
		UnitsWithBuffer: e.withMargin(consumed),
		SimulationLogs:  result.Value.Logs,
	}, nil
}

func (e *CUEstimator) fallback(logs []string) *CUEstimateResult {
	metrics.SimulationOutcomes.WithLabelValues("fallback").Inc()
	return &CUEstimateResult{
		UnitsConsumed:   uint64(e.defaultUnits),
		UnitsWithBuffer: e.withMargin(uint64(e.defaultUnits)),
		Fallback:        true,
		SimulationLogs:  logs,
	}
}

// withMargin caps consumption at the platform ceiling, then applies the margin.
func (e *CUEstimator) withMargin(consumed uint64) uint32 {
	capped := min(consumed, uint64(e.maxUnits))
	return uint32(math.Round(float64(capped) * e.margin))
}

// IsSlippageError reports whether a failed simulation of tx was a slippage
// check: a slippage error name anywhere in the error or logs, or custom error
// 6001 raised by one of swapPrograms. The failing program is read from the
// InstructionError index when tx is given, and from the "Program <id> failed"
// log line otherwise.
func IsSlippageError(tx *solana.Transaction, simErr any, logs []string, swapPrograms []solana.PublicKey) bool {
	candidates := make([]string, 0, len(logs)+1)
	if simErr != nil {
		candidates = append(candidates, fmt.Sprintf("%v", simErr))
	}
	candidates = append(candidates, logs...)
	for _, line := range candidates {
		for _, name := range slippageErrorNames {
			if strings.Contains(line, name) {
				return true
			}
		}
	}

	if idx, code, ok := instructionError(simErr); ok && code == slippageErrorCode && tx != nil {
		if idx < len(tx.Message.Instructions) {
			program, err := tx.Message.Program(tx.Message.Instructions[idx].ProgramIDIndex)
			if err == nil {
				return containsKey(swapPrograms, program)
			}
		}
	}

	failed := fmt.Sprintf("failed: custom program error: 0x%x", slippageErrorCode)
	for _, line := range logs {
		rest, ok := strings.CutPrefix(line, "Program ")
		if !ok || !strings.HasSuffix(rest, failed) {
			continue
		}
		id, err := solana.PublicKeyFromBase58(strings.TrimSpace(strings.TrimSuffix(rest, failed)))
		if err == nil && containsKey(swapPrograms, id) {
			return true
		}
	}
	return false
}

// instructionError unpacks {"InstructionError": [index, {"Custom": code}]}.
func instructionError(simErr any) (index int, code int64, ok bool) {
	m, ok := simErr.(map[string]any)
	if !ok {
		return 0, 0, false
	}
	pair, ok := m["InstructionError"].([]any)
	if !ok || len(pair) != 2 {
		return 0, 0, false
	}
	idx, ok := asInt(pair[0])
	if !ok {
		return 0, 0, false
	}
	detail, ok := pair[1].(map[string]any)
	if !ok {
		return 0, 0, false
	}
	code, ok = asInt(detail["Custom"])
	return int(idx), code, ok
}

// asInt accepts the number types a JSON decoder may produce, json.Number included.
func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case uint64:
		return int64(n), true
	case float64:
		return int64(n), true
	case fmt.Stringer:
		i, err := strconv.ParseInt(n.String(), 10, 64)
		return i, err == nil
	}
	return 0, false
}

func containsKey(keys []solana.PublicKey, k solana.PublicKey) bool {
	for _, key := range keys {
		if key.Equals(k) {
			return true
		}
	}
	return false
}
