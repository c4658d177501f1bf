package domain

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePlan_MultiSwapKeepsLegSlippage(t *testing.T) {
	signer := solana.NewWallet().PublicKey()
	in := solana.NewWallet().PublicKey()
	a, b := solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey()

	legs := []SwapLeg{
		{InputToken: in, OutputToken: a, Amount: 10, SlippageBps: 0},
		{InputToken: in, OutputToken: b, Amount: 20, SlippageBps: 75},
	}
	plan, err := ResolvePlan(MultiSwapPlan{Signer: signer, Legs: legs, SlippageBps: 100})
	require.NoError(t, err)
	require.Len(t, plan.Legs, 2)
	assert.Equal(t, uint16(0), plan.Legs[0].SlippageBps)
	assert.Equal(t, uint16(75), plan.Legs[1].SlippageBps)
	assert.Equal(t, uint16(100), plan.SlippageBps)

	plan.Legs[0].Amount = 99
	assert.Equal(t, uint64(10), legs[0].Amount)
}

func TestResolvePlan_Transfer(t *testing.T) {
	signer := solana.NewWallet().PublicKey()
	in, out := solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey()

	plan, err := ResolvePlan(TransferPlan{Signer: signer, InputToken: in, OutputToken: out, Amount: 5, SlippageBps: 30, FeeAmount: 1})
	require.NoError(t, err)
	require.Len(t, plan.Legs, 1)
	assert.Equal(t, SwapLeg{InputToken: in, OutputToken: out, Amount: 5, SlippageBps: 30}, plan.Legs[0])
	assert.Equal(t, uint64(1), plan.FeeAmount)

	_, err = ResolvePlan(TransferPlan{Signer: signer, InputToken: in, OutputToken: in, Amount: 5})
	assert.ErrorIs(t, err, ErrEmptyPlan)

	_, err = ResolvePlan(TransferPlan{InputToken: in, OutputToken: out, Amount: 5})
	assert.ErrorIs(t, err, ErrInvalidSigner)

	_, err = ResolvePlan(nil)
	assert.ErrorIs(t, err, ErrInvalidPlan)
}
