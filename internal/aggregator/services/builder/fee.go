package builder

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"

	"github.com/hxuan190/portfolio-swap/internal/common"
)

// MintProgramResolver tells which token program owns a mint.
type MintProgramResolver interface {
	GetMintTokenProgram(ctx context.Context, mint solana.PublicKey) (solana.PublicKey, error)
}

// FeeInstructionBuilder produces the platform fee transfer drawn from the first leg's input token.
type FeeInstructionBuilder struct {
	collector solana.PublicKey
	mints     MintProgramResolver
}

func NewFeeInstructionBuilder(collector solana.PublicKey, mints MintProgramResolver) *FeeInstructionBuilder {
	return &FeeInstructionBuilder{collector: collector, mints: mints}
}

func (b *FeeInstructionBuilder) Enabled() bool {
	return !b.collector.IsZero()
}

// Build returns nil without error when there is nothing to charge.
func (b *FeeInstructionBuilder) Build(ctx context.Context, signer, asset solana.PublicKey, amount uint64) (solana.Instruction, error) {
	if amount == 0 || !b.Enabled() {
		return nil, nil
	}

	if common.IsNative(asset) {
		ix, err := system.NewTransferInstruction(amount, signer, b.collector).ValidateAndBuild()
		if err != nil {
			return nil, fmt.Errorf("build native fee transfer: %w", err)
		}
		return ix, nil
	}

	tokenProgram := common.TokenProgramID
	if b.mints != nil {
		program, err := b.mints.GetMintTokenProgram(ctx, asset)
		if err != nil {
			return nil, fmt.Errorf("resolve token program for %s: %w", asset, err)
		}
		tokenProgram = program
	}

	source, _, err := GetATAAddressForMint(signer, asset, tokenProgram)
	if err != nil {
		return nil, fmt.Errorf("derive signer token account: %w", err)
	}
	destination, _, err := GetATAAddressForMint(b.collector, asset, tokenProgram)
	if err != nil {
		return nil, fmt.Errorf("derive collector token account: %w", err)
	}

	ix, err := token.NewTransferInstruction(amount, source, destination, signer, nil).ValidateAndBuild()
	if err != nil {
		return nil, fmt.Errorf("build token fee transfer: %w", err)
	}
	if tokenProgram.Equals(common.TokenProgramID) {
		return ix, nil
	}

	// Token-2022 shares the transfer layout; only the program id differs.
	data, err := ix.Data()
	if err != nil {
		return nil, fmt.Errorf("encode token fee transfer: %w", err)
	}
	return solana.NewInstruction(tokenProgram, ix.Accounts(), data), nil
}
