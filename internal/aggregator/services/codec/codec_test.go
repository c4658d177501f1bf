package codec

import (
	"encoding/base64"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hxuan190/portfolio-swap/internal/domain"
)

func strPtr(s string) *string { return &s }

func sampleRaw() domain.RawInstruction {
	return domain.RawInstruction{
		ProgramID: "JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4",
		Accounts: []domain.RawAccountMeta{
			{Pubkey: solana.NewWallet().PublicKey().String(), IsSigner: true, IsWritable: true},
			{Pubkey: solana.NewWallet().PublicKey().String(), IsSigner: true, IsWritable: false},
			{Pubkey: solana.NewWallet().PublicKey().String(), IsSigner: false, IsWritable: true},
			{Pubkey: solana.NewWallet().PublicKey().String(), IsSigner: false, IsWritable: false},
		},
		Data: strPtr(base64.StdEncoding.EncodeToString([]byte{0xe5, 0x17, 0xcb, 0x97, 1, 2, 3})),
	}
}

func TestDecode_RoleMappingIsTotalAndInjective(t *testing.T) {
	cases := []struct {
		signer, writable bool
		want             domain.AccountRole
	}{
		{true, true, domain.RoleWritableSigner},
		{true, false, domain.RoleReadonlySigner},
		{false, true, domain.RoleWritable},
		{false, false, domain.RoleReadonly},
	}

	seen := make(map[domain.AccountRole]bool)
	for _, tc := range cases {
		role := domain.RoleFromFlags(tc.signer, tc.writable)
		assert.Equal(t, tc.want, role)
		assert.Equal(t, tc.signer, role.IsSigner())
		assert.Equal(t, tc.writable, role.IsWritable())
		seen[role] = true
	}
	assert.Len(t, seen, 4)
}

func TestDecode_Valid(t *testing.T) {
	raw := sampleRaw()
	ix, err := Decode(&raw)
	require.NoError(t, err)

	assert.Equal(t, raw.ProgramID, ix.ProgramID().String())
	require.Len(t, ix.Metas, 4)
	assert.Equal(t, domain.RoleWritableSigner, ix.Metas[0].Role)
	assert.Equal(t, domain.RoleReadonlySigner, ix.Metas[1].Role)
	assert.Equal(t, domain.RoleWritable, ix.Metas[2].Role)
	assert.Equal(t, domain.RoleReadonly, ix.Metas[3].Role)

	data, err := ix.Data()
	require.NoError(t, err)
	assert.Equal(t, []byte{0xe5, 0x17, 0xcb, 0x97, 1, 2, 3}, data)

	metas := ix.Accounts()
	require.Len(t, metas, 4)
	assert.True(t, metas[0].IsSigner)
	assert.True(t, metas[0].IsWritable)
	assert.False(t, metas[3].IsSigner)
	assert.False(t, metas[3].IsWritable)
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *domain.RawInstruction)
	}{
		{"missing program id", func(r *domain.RawInstruction) { r.ProgramID = "" }},
		{"missing accounts", func(r *domain.RawInstruction) { r.Accounts = nil }},
		{"missing data", func(r *domain.RawInstruction) { r.Data = nil }},
		{"bad program id", func(r *domain.RawInstruction) { r.ProgramID = "not-base58!" }},
		{"bad account", func(r *domain.RawInstruction) { r.Accounts[0].Pubkey = "0OIl" }},
		{"bad payload", func(r *domain.RawInstruction) { r.Data = strPtr("***") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := sampleRaw()
			tt.mutate(&raw)
			_, err := Decode(&raw)
			assert.ErrorIs(t, err, domain.ErrMalformedInstruction)
		})
	}

	_, err := Decode(nil)
	assert.ErrorIs(t, err, domain.ErrMalformedInstruction)
}

func TestDecode_EmptyAccountsAndPayloadAreAllowed(t *testing.T) {
	raw := domain.RawInstruction{
		ProgramID: solana.ComputeBudget.String(),
		Accounts:  []domain.RawAccountMeta{},
		Data:      strPtr(""),
	}
	ix, err := Decode(&raw)
	require.NoError(t, err)
	assert.Empty(t, ix.Metas)
	assert.Empty(t, ix.Payload)
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	raw := sampleRaw()
	first, err := Decode(&raw)
	require.NoError(t, err)

	encoded := Encode(first)
	second, err := Decode(&encoded)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, raw, encoded)
}

func TestDecodeAll_StopsAtFirstMalformed(t *testing.T) {
	good := sampleRaw()
	bad := sampleRaw()
	bad.Data = nil

	out, err := DecodeAll([]domain.RawInstruction{good, good})
	require.NoError(t, err)
	assert.Len(t, out, 2)

	_, err = DecodeAll([]domain.RawInstruction{good, bad})
	assert.ErrorIs(t, err, domain.ErrMalformedInstruction)
	assert.Contains(t, err.Error(), "instruction 1")
}
