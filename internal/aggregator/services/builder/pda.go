package builder

import (
	"github.com/gagliardetto/solana-go"

	"github.com/hxuan190/portfolio-swap/internal/common"
)

// GetATAAddressForMint derives the associated token account of wallet for mint
// under the given token program (Token or Token-2022).
func GetATAAddressForMint(wallet, mint, tokenProgram solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(
		[][]byte{
			wallet[:],
			tokenProgram[:],
			mint[:],
		},
		common.ATAProgramID,
	)
}
