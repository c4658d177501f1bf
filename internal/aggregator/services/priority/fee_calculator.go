package priority

import (
	"context"
	"errors"
	"slices"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

var ErrNoRecentFees = errors.New("no recent prioritization fees")

// RecentFeesOracle estimates the unit price from the node's recent
// prioritization fees on the transaction's writable accounts. It is used when
// no dedicated fee oracle endpoint is configured.
type RecentFeesOracle struct {
	rpcClient  *rpc.Client
	percentile int
}

func NewRecentFeesOracle(rpcClient *rpc.Client, percentile int) *RecentFeesOracle {
	if percentile <= 0 {
		percentile = 75
	}
	return &RecentFeesOracle{rpcClient: rpcClient, percentile: percentile}
}

func (o *RecentFeesOracle) EstimatePriorityFee(ctx context.Context, tx *solana.Transaction, _ string) (uint64, error) {
	recentFees, err := o.rpcClient.GetRecentPrioritizationFees(ctx, extractWritableAccounts(tx))
	if err != nil {
		return 0, err
	}
	samples := make([]uint64, len(recentFees))
	for i, fee := range recentFees {
		samples[i] = fee.PrioritizationFee
	}
	price, ok := feePercentile(samples, o.percentile)
	if !ok {
		return 0, ErrNoRecentFees
	}
	return price, nil
}

// feePercentile interpolates the p-th percentile of the non-zero samples.
// Slots where nobody paid for priority are ignored.
func feePercentile(samples []uint64, p int) (uint64, bool) {
	paid := make([]uint64, 0, len(samples))
	for _, v := range samples {
		if v > 0 {
			paid = append(paid, v)
		}
	}
	if len(paid) == 0 {
		return 0, false
	}
	slices.Sort(paid)

	p = min(max(p, 0), 100)
	rank := float64(p) / 100 * float64(len(paid)-1)
	lo := int(rank)
	hi := min(lo+1, len(paid)-1)
	frac := rank - float64(lo)
	return uint64(float64(paid[lo]) + (float64(paid[hi])-float64(paid[lo]))*frac), true
}

// extractWritableAccounts returns up to 8 writable static accounts of tx.
func extractWritableAccounts(tx *solana.Transaction) []solana.PublicKey {
	accounts := make([]solana.PublicKey, 0, 8)
	if tx == nil {
		return accounts
	}

	for _, acc := range tx.Message.AccountKeys {
		isWritable, err := tx.Message.IsWritable(acc)
		if err == nil && isWritable {
			accounts = append(accounts, acc)
		}
		if len(accounts) == 8 {
			break
		}
	}
	return accounts
}
