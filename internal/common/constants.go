// Package common contains constants and helpers shared across services
package common

import "github.com/gagliardetto/solana-go"

var (
	TokenProgramID  = solana.TokenProgramID
	Token2022ID     = solana.MustPublicKeyFromBase58("TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb")
	ATAProgramID    = solana.SPLAssociatedTokenAccountProgramID
	SystemProgramID = solana.SystemProgramID
	ComputeBudgetID = solana.ComputeBudget

	// JupiterV6ProgramID is the swap program behind the default aggregator API.
	JupiterV6ProgramID = solana.MustPublicKeyFromBase58("JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QUNtTaV4")

	// NativeMint stands for SOL in swap legs and fee transfers.
	NativeMint = solana.SolMint

	USDCMint = solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	MSOLMint = solana.MustPublicKeyFromBase58("mSoLzYCxHdYgdzU16g5QSh3i5K3z3KZK7ytfqcJm7So")
	BONKMint = solana.MustPublicKeyFromBase58("DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263")
)

const (
	NativeDecimals = 9

	ActionVersion      = "2.1.3"
	ActionBlockchainID = "solana:5eykt4UsFv8P8NJdTREpY1vzqKqZKvdp"
	ActionConnectMsg   = "Connect your wallet to swap tokens into a diversified portfolio"
)

// IsNative reports whether mint denotes SOL rather than an SPL token.
func IsNative(mint solana.PublicKey) bool {
	return mint.Equals(NativeMint) || mint.IsZero()
}
