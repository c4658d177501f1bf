package domain

import (
	"github.com/gagliardetto/solana-go"
)

// AccountRole is the closed set of account permissions inside an instruction.
type AccountRole uint8

const (
	RoleReadonly AccountRole = iota
	RoleWritable
	RoleReadonlySigner
	RoleWritableSigner
)

type roleFlags struct {
	signer   bool
	writable bool
}

// RoleFromFlags maps the (isSigner, isWritable) pair onto a role. Every combination has its own role.
func RoleFromFlags(isSigner, isWritable bool) AccountRole {
	switch (roleFlags{signer: isSigner, writable: isWritable}) {
	case roleFlags{signer: true, writable: true}:
		return RoleWritableSigner
	case roleFlags{signer: true, writable: false}:
		return RoleReadonlySigner
	case roleFlags{signer: false, writable: true}:
		return RoleWritable
	default:
		return RoleReadonly
	}
}

func (r AccountRole) IsSigner() bool {
	return r == RoleReadonlySigner || r == RoleWritableSigner
}

func (r AccountRole) IsWritable() bool {
	return r == RoleWritable || r == RoleWritableSigner
}

func (r AccountRole) String() string {
	switch r {
	case RoleReadonly:
		return "readonly"
	case RoleWritable:
		return "writable"
	case RoleReadonlySigner:
		return "readonly-signer"
	case RoleWritableSigner:
		return "writable-signer"
	default:
		return "unknown"
	}
}

// RawAccountMeta and RawInstruction mirror the aggregator's JSON instruction shape.
type RawAccountMeta struct {
	Pubkey     string `json:"pubkey"`
	IsSigner   bool   `json:"isSigner"`
	IsWritable bool   `json:"isWritable"`
}

// RawInstruction keeps Data as a pointer so an absent field can be told apart from an empty payload.
type RawInstruction struct {
	ProgramID string           `json:"programId"`
	Accounts  []RawAccountMeta `json:"accounts"`
	Data      *string          `json:"data"`
}

type ResolvedAccount struct {
	Address solana.PublicKey
	Role    AccountRole
}

// ResolvedInstruction is the typed instruction form. It satisfies solana.Instruction.
type ResolvedInstruction struct {
	ProgramAddress solana.PublicKey
	Metas          []ResolvedAccount
	Payload        []byte
}

func (ix *ResolvedInstruction) ProgramID() solana.PublicKey {
	return ix.ProgramAddress
}

func (ix *ResolvedInstruction) Accounts() []*solana.AccountMeta {
	metas := make([]*solana.AccountMeta, len(ix.Metas))
	for i, acc := range ix.Metas {
		metas[i] = solana.NewAccountMeta(acc.Address, acc.Role.IsWritable(), acc.Role.IsSigner())
	}
	return metas
}

func (ix *ResolvedInstruction) Data() ([]byte, error) {
	return ix.Payload, nil
}
