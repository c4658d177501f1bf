package builder

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hxuan190/portfolio-swap/internal/common"
	"github.com/hxuan190/portfolio-swap/internal/domain"
)

type pipeline struct {
	svc       *BuilderService
	resolver  *fakeResolver
	tables    *fakeTables
	estimator *fakeEstimator
	blockhash *fakeBlockhash
	collector solana.PublicKey
}

func newPipeline() *pipeline {
	p := &pipeline{
		resolver:  &fakeResolver{program: solana.MustPublicKeyFromBase58("JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4")},
		tables:    &fakeTables{},
		estimator: &fakeEstimator{params: domain.ComputeBudgetParams{UnitLimit: 330_000, MicroLamportsPerUnit: 25_000}},
		blockhash: &fakeBlockhash{},
		collector: solana.NewWallet().PublicKey(),
	}
	p.svc = NewBuilderService(
		p.resolver,
		NewFeeInstructionBuilder(p.collector, nil),
		p.tables,
		p.estimator,
		NewAssembler(p.blockhash),
		DefaultBatchSize,
	)
	return p
}

type decodedIx struct {
	program  solana.PublicKey
	accounts []solana.PublicKey
	data     []byte
}

func decodeWire(t *testing.T, wire string) (*solana.Transaction, []decodedIx) {
	t.Helper()
	tx, err := solana.TransactionFromBase64(wire)
	require.NoError(t, err)

	keys := tx.Message.AccountKeys
	out := make([]decodedIx, len(tx.Message.Instructions))
	for i, ci := range tx.Message.Instructions {
		accounts := make([]solana.PublicKey, len(ci.Accounts))
		for j, idx := range ci.Accounts {
			if int(idx) < len(keys) {
				accounts[j] = keys[idx]
			}
		}
		out[i] = decodedIx{program: keys[ci.ProgramIDIndex], accounts: accounts, data: ci.Data}
	}
	return tx, out
}

func legsTo(n int, input solana.PublicKey) []domain.SwapLeg {
	legs := make([]domain.SwapLeg, n)
	for i := range legs {
		legs[i] = domain.SwapLeg{
			InputToken:  input,
			OutputToken: solana.NewWallet().PublicKey(),
			Amount:      1_000_000,
			SlippageBps: 100,
		}
	}
	return legs
}

func TestBuild_SingleLegNoFee(t *testing.T) {
	p := newPipeline()
	signer := solana.NewWallet().PublicKey()
	plan := domain.NewSwapPlan(signer, legsTo(1, common.USDCMint), 100, 0)

	res, err := p.svc.Build(context.Background(), plan)
	require.NoError(t, err)
	assert.Nil(t, res.Continuation)
	assert.Equal(t, plan.Legs, res.Legs)

	tx, ixs := decodeWire(t, res.Transaction)
	require.Len(t, ixs, 3)
	assert.Equal(t, solana.ComputeBudget, ixs[0].program)
	assert.Equal(t, byte(2), ixs[0].data[0])
	assert.Equal(t, uint32(330_000), binary.LittleEndian.Uint32(ixs[0].data[1:]))
	assert.Equal(t, solana.ComputeBudget, ixs[1].program)
	assert.Equal(t, byte(3), ixs[1].data[0])
	assert.Equal(t, uint64(25_000), binary.LittleEndian.Uint64(ixs[1].data[1:]))
	assert.Equal(t, p.resolver.program, ixs[2].program)

	for _, ix := range ixs {
		assert.NotEqual(t, solana.SystemProgramID, ix.program, "no fee transfer expected")
	}

	assert.Equal(t, signer, tx.Message.AccountKeys[0], "fee payer is the signer")
	assert.Equal(t, uint8(1), tx.Message.Header.NumRequiredSignatures)
	assert.Len(t, tx.Signatures, 1)
	assert.Equal(t, solana.MessageVersionV0, tx.Message.GetVersion())
}

func TestBuild_FiveLegsReturnsContinuation(t *testing.T) {
	p := newPipeline()
	signer := solana.NewWallet().PublicKey()
	plan := domain.NewSwapPlan(signer, legsTo(5, common.USDCMint), 50, 0)

	res, err := p.svc.Build(context.Background(), plan)
	require.NoError(t, err)
	require.NotNil(t, res.Continuation)
	assert.Equal(t, plan.Legs[3:5], res.Continuation.RemainingLegs)
	assert.Equal(t, signer, res.Continuation.Signer)
	assert.Equal(t, uint16(50), res.Continuation.SlippageBps)

	require.Len(t, p.resolver.legs, 1)
	assert.Equal(t, plan.Legs[:3], p.resolver.legs[0])

	_, ixs := decodeWire(t, res.Transaction)
	assert.Len(t, ixs, 2+3)

	next, err := p.svc.Build(context.Background(), res.Continuation.Plan())
	require.NoError(t, err)
	assert.Nil(t, next.Continuation)
	assert.Equal(t, plan.Legs[3:5], next.Legs)
}

func TestBuild_NativeFeeIsFirstAfterBudget(t *testing.T) {
	p := newPipeline()
	signer := solana.NewWallet().PublicKey()
	plan := domain.NewSwapPlan(signer, legsTo(2, common.NativeMint), 100, 5000)

	res, err := p.svc.Build(context.Background(), plan)
	require.NoError(t, err)

	_, ixs := decodeWire(t, res.Transaction)
	require.Len(t, ixs, 2+1+2)
	fee := ixs[2]
	assert.Equal(t, solana.SystemProgramID, fee.program)
	require.Len(t, fee.data, 12)
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(fee.data[:4]), "system transfer")
	assert.Equal(t, uint64(5000), binary.LittleEndian.Uint64(fee.data[4:]))
	require.Len(t, fee.accounts, 2)
	assert.Equal(t, signer, fee.accounts[0])
	assert.Equal(t, p.collector, fee.accounts[1])
}

func TestBuild_TokenFeeUsesAssociatedAccounts(t *testing.T) {
	p := newPipeline()
	signer := solana.NewWallet().PublicKey()
	plan := domain.NewSwapPlan(signer, legsTo(1, common.USDCMint), 100, 2500)

	res, err := p.svc.Build(context.Background(), plan)
	require.NoError(t, err)

	_, ixs := decodeWire(t, res.Transaction)
	fee := ixs[2]
	assert.Equal(t, solana.TokenProgramID, fee.program)

	source, _, err := GetATAAddressForMint(signer, common.USDCMint, common.TokenProgramID)
	require.NoError(t, err)
	dest, _, err := GetATAAddressForMint(p.collector, common.USDCMint, common.TokenProgramID)
	require.NoError(t, err)
	require.Len(t, fee.accounts, 3)
	assert.Equal(t, source, fee.accounts[0])
	assert.Equal(t, dest, fee.accounts[1])
	assert.Equal(t, signer, fee.accounts[2])
	assert.Equal(t, byte(3), fee.data[0], "token transfer")
	assert.Equal(t, uint64(2500), binary.LittleEndian.Uint64(fee.data[1:]))
}

func TestBuild_FreshBlockhashPerAssembly(t *testing.T) {
	p := newPipeline()
	plan := domain.NewSwapPlan(solana.NewWallet().PublicKey(), legsTo(1, common.USDCMint), 100, 0)

	res, err := p.svc.Build(context.Background(), plan)
	require.NoError(t, err)
	assert.Equal(t, int32(2), p.blockhash.calls.Load(), "provisional and final assembly each fetch a blockhash")
	require.Len(t, p.estimator.wires, 1)
	assert.NotEqual(t, p.estimator.wires[0], res.Transaction)
	assert.Equal(t, uint64(1002), res.LastValidBlockHeight)
}

func TestBuild_CompressesAgainstLookupTables(t *testing.T) {
	p := newPipeline()
	signer := solana.NewWallet().PublicKey()
	plan := domain.NewSwapPlan(signer, legsTo(2, common.USDCMint), 100, 0)

	table := solana.NewWallet().PublicKey()
	p.resolver.tables = []solana.PublicKey{table}
	p.tables.resolved = AddressTables{table: {plan.Legs[0].OutputToken, plan.Legs[1].OutputToken}}

	res, err := p.svc.Build(context.Background(), plan)
	require.NoError(t, err)
	assert.Equal(t, []string{table.String()}, res.LookupTables)

	require.Len(t, p.tables.calls, 1)
	assert.Equal(t, []solana.PublicKey{table}, p.tables.calls[0], "referenced tables are deduplicated across legs")

	tx, err := solana.TransactionFromBase64(res.Transaction)
	require.NoError(t, err)
	require.Len(t, tx.Message.AddressTableLookups, 1)
	assert.Equal(t, table, tx.Message.AddressTableLookups[0].AccountKey)
	assert.Len(t, tx.Message.AddressTableLookups[0].WritableIndexes, 2)
	assert.NotContains(t, tx.Message.AccountKeys, plan.Legs[0].OutputToken)
}

func TestBuild_Errors(t *testing.T) {
	p := newPipeline()

	_, err := p.svc.Build(context.Background(), domain.SwapPlan{Legs: legsTo(1, common.USDCMint)})
	assert.ErrorIs(t, err, domain.ErrInvalidSigner)

	_, err = p.svc.Build(context.Background(), domain.SwapPlan{Signer: solana.NewWallet().PublicKey()})
	assert.ErrorIs(t, err, domain.ErrEmptyPlan)

	p.resolver.err = domain.ErrQuoteUnavailable
	_, err = p.svc.Build(context.Background(), domain.NewSwapPlan(solana.NewWallet().PublicKey(), legsTo(1, common.USDCMint), 100, 0))
	assert.ErrorIs(t, err, domain.ErrQuoteUnavailable)

	p.resolver.err = nil
	p.estimator.err = domain.ErrSlippageExceeded
	_, err = p.svc.Build(context.Background(), domain.NewSwapPlan(solana.NewWallet().PublicKey(), legsTo(1, common.USDCMint), 100, 0))
	assert.ErrorIs(t, err, domain.ErrSlippageExceeded)
}
