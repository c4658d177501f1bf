// Package codec converts aggregator instruction payloads into typed instructions and back.
package codec

import (
	"encoding/base64"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/hxuan190/portfolio-swap/internal/domain"
)

// Decode validates a raw instruction and converts it to its typed form.
// A missing program id, account list or payload is ErrMalformedInstruction,
// as is any address or payload that fails to parse.
func Decode(raw *domain.RawInstruction) (*domain.ResolvedInstruction, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: nil instruction", domain.ErrMalformedInstruction)
	}
	if raw.ProgramID == "" {
		return nil, fmt.Errorf("%w: missing programId", domain.ErrMalformedInstruction)
	}
	if raw.Accounts == nil {
		return nil, fmt.Errorf("%w: missing accounts", domain.ErrMalformedInstruction)
	}
	if raw.Data == nil {
		return nil, fmt.Errorf("%w: missing data", domain.ErrMalformedInstruction)
	}

	programID, err := solana.PublicKeyFromBase58(raw.ProgramID)
	if err != nil {
		return nil, fmt.Errorf("%w: programId %q: %v", domain.ErrMalformedInstruction, raw.ProgramID, err)
	}

	payload, err := base64.StdEncoding.DecodeString(*raw.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: data: %v", domain.ErrMalformedInstruction, err)
	}

	metas := make([]domain.ResolvedAccount, len(raw.Accounts))
	for i, acc := range raw.Accounts {
		addr, err := solana.PublicKeyFromBase58(acc.Pubkey)
		if err != nil {
			return nil, fmt.Errorf("%w: account %d %q: %v", domain.ErrMalformedInstruction, i, acc.Pubkey, err)
		}
		metas[i] = domain.ResolvedAccount{
			Address: addr,
			Role:    domain.RoleFromFlags(acc.IsSigner, acc.IsWritable),
		}
	}

	return &domain.ResolvedInstruction{
		ProgramAddress: programID,
		Metas:          metas,
		Payload:        payload,
	}, nil
}

// DecodeAll decodes in order and stops at the first malformed instruction.
func DecodeAll(raws []domain.RawInstruction) ([]*domain.ResolvedInstruction, error) {
	out := make([]*domain.ResolvedInstruction, 0, len(raws))
	for i := range raws {
		ix, err := Decode(&raws[i])
		if err != nil {
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}
		out = append(out, ix)
	}
	return out, nil
}

// Encode is the inverse of Decode.
func Encode(ix *domain.ResolvedInstruction) domain.RawInstruction {
	accounts := make([]domain.RawAccountMeta, len(ix.Metas))
	for i, acc := range ix.Metas {
		accounts[i] = domain.RawAccountMeta{
			Pubkey:     acc.Address.String(),
			IsSigner:   acc.Role.IsSigner(),
			IsWritable: acc.Role.IsWritable(),
		}
	}
	data := base64.StdEncoding.EncodeToString(ix.Payload)
	return domain.RawInstruction{
		ProgramID: ix.ProgramAddress.String(),
		Accounts:  accounts,
		Data:      &data,
	}
}
