package priority

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hxuan190/portfolio-swap/internal/common"
	"github.com/hxuan190/portfolio-swap/internal/domain"
)

type fakeSimulator struct {
	resp  *rpc.SimulateTransactionResponse
	err   error
	calls int
	opts  *rpc.SimulateTransactionOpts
}

func (f *fakeSimulator) SimulateTransactionWithOpts(_ context.Context, _ *solana.Transaction, opts *rpc.SimulateTransactionOpts) (*rpc.SimulateTransactionResponse, error) {
	f.calls++
	f.opts = opts
	return f.resp, f.err
}

func simResult(units *uint64, simErr any, logs ...string) *rpc.SimulateTransactionResponse {
	return &rpc.SimulateTransactionResponse{
		Value: &rpc.SimulateTransactionResult{
			Err:           simErr,
			Logs:          logs,
			UnitsConsumed: units,
		},
	}
}

func u64(v uint64) *uint64 { return &v }

func TestEstimateCU_Success(t *testing.T) {
	sim := &fakeSimulator{resp: simResult(u64(200_000), nil)}
	est := NewCUEstimator(sim, 0, 0, 0)

	res, err := est.EstimateCU(context.Background(), &solana.Transaction{})
	require.NoError(t, err)
	assert.Equal(t, uint64(200_000), res.UnitsConsumed)
	assert.Equal(t, uint32(220_000), res.UnitsWithBuffer)
	assert.False(t, res.Fallback)

	require.NotNil(t, sim.opts)
	assert.False(t, sim.opts.SigVerify)
	assert.True(t, sim.opts.ReplaceRecentBlockhash)
}

func TestEstimateCU_FallbackOnNonSlippageError(t *testing.T) {
	tests := []struct {
		name string
		sim  *fakeSimulator
	}{
		{"rpc error", &fakeSimulator{err: errors.New("connection reset")}},
		{"program error", &fakeSimulator{resp: simResult(u64(12345), map[string]any{"InstructionError": []any{2, "InvalidAccountData"}}, "Program log: Error: invalid account")}},
		{"missing units", &fakeSimulator{resp: simResult(nil, nil)}},
		{"zero units", &fakeSimulator{resp: simResult(u64(0), nil)}},
		{"empty response", &fakeSimulator{resp: &rpc.SimulateTransactionResponse{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			est := NewCUEstimator(tt.sim, DefaultComputeUnits, MaxComputeUnits, ComputeUnitMargin)
			res, err := est.EstimateCU(context.Background(), &solana.Transaction{})
			require.NoError(t, err)
			assert.True(t, res.Fallback)
			assert.Equal(t, uint32(1_540_000), res.UnitsWithBuffer)
			assert.NotZero(t, res.UnitsWithBuffer)
		})
	}
}

// swapTx places the Jupiter program at instruction 3 and another program everywhere else.
func swapTx(other solana.PublicKey) *solana.Transaction {
	return &solana.Transaction{Message: solana.Message{
		AccountKeys: solana.PublicKeySlice{solana.NewWallet().PublicKey(), other, common.JupiterV6ProgramID},
		Instructions: []solana.CompiledInstruction{
			{ProgramIDIndex: 1}, {ProgramIDIndex: 1}, {ProgramIDIndex: 1}, {ProgramIDIndex: 2},
		},
	}}
}

func customErr(index int, code any) map[string]any {
	return map[string]any{"InstructionError": []any{index, map[string]any{"Custom": code}}}
}

func TestEstimateCU_SlippageFailsFast(t *testing.T) {
	jup := common.JupiterV6ProgramID.String()
	tests := []struct {
		name   string
		simErr any
		logs   []string
	}{
		{"custom 6001 from swap program", customErr(3, 6001), nil},
		{"json number code", customErr(3, json.Number("6001")), nil},
		{"hex code in swap program log", "InstructionError", []string{"Program " + jup + " failed: custom program error: 0x1771"}},
		{"anchor name in logs", "InstructionError", []string{"Program log: AnchorError occurred. Error Code: SlippageToleranceExceeded."}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := &fakeSimulator{resp: simResult(u64(90_000), tt.simErr, tt.logs...)}
			_, err := NewCUEstimator(sim, 0, 0, 0).EstimateCU(context.Background(), swapTx(common.TokenProgramID))
			assert.ErrorIs(t, err, domain.ErrSlippageExceeded)
		})
	}
}

func TestEstimateCU_UnrelatedErrorsFallBack(t *testing.T) {
	other := solana.NewWallet().PublicKey()
	tests := []struct {
		name   string
		simErr any
		logs   []string
	}{
		{"slippage setting in logs", customErr(3, 1), []string{"Program log: slippage_bps=50"}},
		{"6001 from another program", customErr(1, 6001), []string{"Program " + other.String() + " failed: custom program error: 0x1771"}},
		{"6001 log without program id", "InstructionError", []string{"custom program error: 0x1771"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := &fakeSimulator{resp: simResult(u64(90_000), tt.simErr, tt.logs...)}
			res, err := NewCUEstimator(sim, 0, 0, 0).EstimateCU(context.Background(), swapTx(other))
			require.NoError(t, err)
			assert.True(t, res.Fallback)
			assert.Equal(t, uint32(1_540_000), res.UnitsWithBuffer)
		})
	}
}

func TestEstimateCU_CustomSwapPrograms(t *testing.T) {
	router := solana.NewWallet().PublicKey()
	sim := &fakeSimulator{resp: simResult(nil, "InstructionError", "Program "+router.String()+" failed: custom program error: 0x1771")}

	_, err := NewCUEstimator(sim, 0, 0, 0, router).EstimateCU(context.Background(), &solana.Transaction{})
	assert.ErrorIs(t, err, domain.ErrSlippageExceeded)

	res, err := NewCUEstimator(sim, 0, 0, 0).EstimateCU(context.Background(), &solana.Transaction{})
	require.NoError(t, err)
	assert.True(t, res.Fallback)
}

func TestEstimateCU_CapsBeforeMargin(t *testing.T) {
	sim := &fakeSimulator{resp: simResult(u64(5_000_000), nil)}
	res, err := NewCUEstimator(sim, 0, 1_400_000, 1.1).EstimateCU(context.Background(), &solana.Transaction{})
	require.NoError(t, err)
	assert.Equal(t, uint32(1_540_000), res.UnitsWithBuffer)
}

func TestEstimateCU_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sim := &fakeSimulator{err: context.Canceled}
	_, err := NewCUEstimator(sim, 0, 0, 0).EstimateCU(ctx, &solana.Transaction{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFeePercentile(t *testing.T) {
	samples := []uint64{500, 0, 100, 300, 200, 0, 400}
	cases := map[int]uint64{0: 100, 50: 300, 75: 400, 100: 500, 150: 500, 90: 460}
	for p, want := range cases {
		got, ok := feePercentile(samples, p)
		assert.True(t, ok)
		assert.Equal(t, want, got, "p%d", p)
	}

	_, ok := feePercentile([]uint64{0, 0}, 50)
	assert.False(t, ok)
	_, ok = feePercentile(nil, 50)
	assert.False(t, ok)
}
