package builder

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/hxuan190/portfolio-swap/internal/aggregator/adapters/blockchain"
	"github.com/hxuan190/portfolio-swap/internal/domain"
)

type BlockhashSource interface {
	Latest(ctx context.Context) (blockchain.Lifetime, error)
}

// AssembledTransaction is a compiled v0 transaction with placeholder signatures.
type AssembledTransaction struct {
	Tx       *solana.Transaction
	Wire     string
	Lifetime blockchain.Lifetime
}

// Assembler turns an ordered instruction list into a wire transaction. The
// blockhash is fetched on every call and never reused between calls.
type Assembler struct {
	blockhash BlockhashSource
}

func NewAssembler(blockhash BlockhashSource) *Assembler {
	return &Assembler{blockhash: blockhash}
}

func (a *Assembler) Assemble(ctx context.Context, payer solana.PublicKey, instructions []solana.Instruction, tables AddressTables) (*AssembledTransaction, error) {
	if payer.IsZero() {
		return nil, domain.ErrInvalidSigner
	}
	if len(instructions) == 0 {
		return nil, fmt.Errorf("%w: no instructions", domain.ErrBuildFailed)
	}

	lifetime, err := a.blockhash.Latest(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrBuildFailed, err)
	}

	tx, err := CompileV0(payer, lifetime.Blockhash, instructions, tables)
	if err != nil {
		return nil, err
	}

	wire, err := EncodeTransaction(tx)
	if err != nil {
		return nil, err
	}

	return &AssembledTransaction{
		Tx:       tx,
		Wire:     wire,
		Lifetime: lifetime,
	}, nil
}

// CompileV0 compiles a version 0 message. Accounts found in tables are
// referenced by index instead of being embedded in the static key list.
func CompileV0(payer solana.PublicKey, blockhash solana.Hash, instructions []solana.Instruction, tables AddressTables) (*solana.Transaction, error) {
	if tables == nil {
		tables = AddressTables{}
	}
	tx, err := solana.NewTransaction(
		instructions,
		blockhash,
		solana.TransactionPayer(payer),
		solana.TransactionAddressTables(tables),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: compile message: %w", domain.ErrBuildFailed, err)
	}
	tx.Message.SetVersion(solana.MessageVersionV0)
	return tx, nil
}

// EncodeTransaction serializes tx with zeroed signature slots for every
// required signer and base64 encodes it.
func EncodeTransaction(tx *solana.Transaction) (string, error) {
	required := int(tx.Message.Header.NumRequiredSignatures)
	if len(tx.Signatures) != required {
		tx.Signatures = make([]solana.Signature, required)
	}

	raw, err := tx.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("%w: serialize transaction: %w", domain.ErrBuildFailed, err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}
