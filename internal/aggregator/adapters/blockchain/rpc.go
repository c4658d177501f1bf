package blockchain

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// Narrow views of *rpc.Client. Each consumer depends only on the calls it makes
// so tests can count and fail them individually.

type BlockhashFetcher interface {
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
}

type AccountsFetcher interface {
	GetMultipleAccounts(ctx context.Context, accounts ...solana.PublicKey) (*rpc.GetMultipleAccountsResult, error)
}

type Simulator interface {
	SimulateTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts *rpc.SimulateTransactionOpts) (*rpc.SimulateTransactionResponse, error)
}

type Sender interface {
	SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error)
}

type StatusFetcher interface {
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, sigs ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
}

type BlockhashValidator interface {
	IsBlockhashValid(ctx context.Context, blockHash solana.Hash, commitment rpc.CommitmentType) (*rpc.IsValidBlockhashResult, error)
}

type TokenAccountsFetcher interface {
	GetTokenAccountsByOwner(ctx context.Context, owner solana.PublicKey, conf *rpc.GetTokenAccountsConfig, opts *rpc.GetTokenAccountsOpts) (*rpc.GetTokenAccountsResult, error)
}

var (
	_ BlockhashFetcher     = (*rpc.Client)(nil)
	_ AccountsFetcher      = (*rpc.Client)(nil)
	_ Simulator            = (*rpc.Client)(nil)
	_ Sender               = (*rpc.Client)(nil)
	_ StatusFetcher        = (*rpc.Client)(nil)
	_ TokenAccountsFetcher = (*rpc.Client)(nil)
	_ BlockhashValidator   = (*rpc.Client)(nil)
)
