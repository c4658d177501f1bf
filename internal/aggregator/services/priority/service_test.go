package priority

import (
	"context"
	"encoding/binary"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hxuan190/portfolio-swap/internal/common"
	"github.com/hxuan190/portfolio-swap/internal/domain"
)

type fakeOracle struct {
	fee  uint64
	err  error
	wire string
}

func (f *fakeOracle) EstimatePriorityFee(_ context.Context, _ *solana.Transaction, wire string) (uint64, error) {
	f.wire = wire
	return f.fee, f.err
}

func TestService_Estimate(t *testing.T) {
	sim := &fakeSimulator{resp: simResult(u64(300_000), nil)}
	oracle := &fakeOracle{fee: 50_000}
	svc := NewService(NewCUEstimator(sim, 0, 0, 0), oracle, 10_000, 10_000)

	params, err := svc.Estimate(context.Background(), &solana.Transaction{}, "AQID")
	require.NoError(t, err)
	assert.Equal(t, uint32(330_000), params.UnitLimit)
	assert.Equal(t, uint64(50_000), params.MicroLamportsPerUnit)
	assert.Equal(t, "AQID", oracle.wire)
}

func TestService_FeeFloorAndFallback(t *testing.T) {
	sim := &fakeSimulator{resp: simResult(u64(100_000), nil)}

	low := NewService(NewCUEstimator(sim, 0, 0, 0), &fakeOracle{fee: 5}, 10_000, 10_000)
	params, err := low.Estimate(context.Background(), &solana.Transaction{}, "")
	require.NoError(t, err)
	assert.Equal(t, uint64(10_000), params.MicroLamportsPerUnit)

	failing := NewService(NewCUEstimator(sim, 0, 0, 0), &fakeOracle{err: errors.New("503")}, 25_000, 10_000)
	params, err = failing.Estimate(context.Background(), &solana.Transaction{}, "")
	require.NoError(t, err)
	assert.Equal(t, uint64(25_000), params.MicroLamportsPerUnit)
}

func TestService_SlippagePropagates(t *testing.T) {
	sim := &fakeSimulator{resp: simResult(nil, "err", "Program "+common.JupiterV6ProgramID.String()+" failed: custom program error: 0x1771")}
	svc := NewService(NewCUEstimator(sim, 0, 0, 0), &fakeOracle{fee: 1}, 10_000, 10_000)

	_, err := svc.Estimate(context.Background(), &solana.Transaction{}, "")
	assert.ErrorIs(t, err, domain.ErrSlippageExceeded)
}

func TestBudgetInstructions_Layout(t *testing.T) {
	ixs, err := BudgetInstructions(domain.ComputeBudgetParams{UnitLimit: 1_540_000, MicroLamportsPerUnit: 10_000})
	require.NoError(t, err)
	require.Len(t, ixs, 2)

	for _, ix := range ixs {
		assert.Equal(t, solana.ComputeBudget, ix.ProgramID())
	}

	limit, err := ixs[0].Data()
	require.NoError(t, err)
	require.Len(t, limit, 5)
	assert.Equal(t, byte(2), limit[0])
	assert.Equal(t, uint32(1_540_000), binary.LittleEndian.Uint32(limit[1:]))

	price, err := ixs[1].Data()
	require.NoError(t, err)
	require.Len(t, price, 9)
	assert.Equal(t, byte(3), price[0])
	assert.Equal(t, uint64(10_000), binary.LittleEndian.Uint64(price[1:]))
}

func TestHTTPFeeOracle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":"1","result":{"priorityFeeEstimate":12345.6}}`))
	}))
	defer srv.Close()

	oracle, err := NewHTTPFeeOracle(srv.URL, "", time.Second)
	require.NoError(t, err)

	fee, err := oracle.EstimatePriorityFee(context.Background(), nil, "AQID")
	require.NoError(t, err)
	assert.Equal(t, uint64(12346), fee)
}

func TestHTTPFeeOracle_MissingField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":"1","result":{}}`))
	}))
	defer srv.Close()

	oracle, err := NewHTTPFeeOracle(srv.URL, "", time.Second)
	require.NoError(t, err)

	_, err = oracle.EstimatePriorityFee(context.Background(), nil, "AQID")
	assert.ErrorIs(t, err, ErrMissingFeeEstimate)
}

func TestHTTPFeeOracle_CustomQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"fees":{"high":"777"}}}`))
	}))
	defer srv.Close()

	oracle, err := NewHTTPFeeOracle(srv.URL, ".data.fees.high", time.Second)
	require.NoError(t, err)

	fee, err := oracle.EstimatePriorityFee(context.Background(), nil, "")
	require.NoError(t, err)
	assert.Equal(t, uint64(777), fee)
}
