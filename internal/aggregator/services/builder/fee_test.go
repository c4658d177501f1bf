package builder

import (
	"context"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hxuan190/portfolio-swap/internal/common"
)

type staticMints map[solana.PublicKey]solana.PublicKey

func (s staticMints) GetMintTokenProgram(_ context.Context, mint solana.PublicKey) (solana.PublicKey, error) {
	if p, ok := s[mint]; ok {
		return p, nil
	}
	return solana.PublicKey{}, errors.New("unknown mint")
}

func TestFeeBuilder_NothingToCharge(t *testing.T) {
	signer := solana.NewWallet().PublicKey()

	ix, err := NewFeeInstructionBuilder(solana.NewWallet().PublicKey(), nil).Build(context.Background(), signer, common.NativeMint, 0)
	require.NoError(t, err)
	assert.Nil(t, ix)

	ix, err = NewFeeInstructionBuilder(solana.PublicKey{}, nil).Build(context.Background(), signer, common.NativeMint, 5000)
	require.NoError(t, err)
	assert.Nil(t, ix)
}

func TestFeeBuilder_Token2022(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	signer := solana.NewWallet().PublicKey()
	collector := solana.NewWallet().PublicKey()
	b := NewFeeInstructionBuilder(collector, staticMints{mint: common.Token2022ID})

	ix, err := b.Build(context.Background(), signer, mint, 777)
	require.NoError(t, err)
	require.NotNil(t, ix)
	assert.Equal(t, common.Token2022ID, ix.ProgramID())

	source, _, err := GetATAAddressForMint(signer, mint, common.Token2022ID)
	require.NoError(t, err)
	accounts := ix.Accounts()
	require.Len(t, accounts, 3)
	assert.Equal(t, source, accounts[0].PublicKey)
	assert.True(t, accounts[2].IsSigner)

	data, err := ix.Data()
	require.NoError(t, err)
	assert.Equal(t, byte(3), data[0])
	assert.Equal(t, uint64(777), binary.LittleEndian.Uint64(data[1:]))
}

func TestFeeBuilder_UnknownMintFails(t *testing.T) {
	b := NewFeeInstructionBuilder(solana.NewWallet().PublicKey(), staticMints{})
	_, err := b.Build(context.Background(), solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(), 1)
	assert.Error(t, err)
}
