package builder

import (
	"context"
	"sync/atomic"

	"github.com/gagliardetto/solana-go"

	"github.com/hxuan190/portfolio-swap/internal/aggregator/adapters/blockchain"
	"github.com/hxuan190/portfolio-swap/internal/aggregator/services/route"
	"github.com/hxuan190/portfolio-swap/internal/domain"
)

type fakeBlockhash struct {
	calls atomic.Int32
}

func (f *fakeBlockhash) Latest(_ context.Context) (blockchain.Lifetime, error) {
	n := f.calls.Add(1)
	var h solana.Hash
	h[0] = byte(n)
	h[31] = 0xaa
	return blockchain.Lifetime{Blockhash: h, LastValidBlockHeight: 1000 + uint64(n)}, nil
}

// fakeResolver returns one swap instruction per leg, with the leg's output mint
// as a writable account so tests can tell legs apart.
type fakeResolver struct {
	program solana.PublicKey
	tables  []solana.PublicKey
	legs    [][]domain.SwapLeg
	err     error
}

func (f *fakeResolver) ResolveBatch(_ context.Context, signer solana.PublicKey, legs []domain.SwapLeg) ([]*route.Route, error) {
	f.legs = append(f.legs, legs)
	if f.err != nil {
		return nil, f.err
	}
	routes := make([]*route.Route, len(legs))
	for i, leg := range legs {
		routes[i] = &route.Route{
			Leg: leg,
			Instructions: []*domain.ResolvedInstruction{{
				ProgramAddress: f.program,
				Metas: []domain.ResolvedAccount{
					{Address: signer, Role: domain.RoleWritableSigner},
					{Address: leg.OutputToken, Role: domain.RoleWritable},
				},
				Payload: []byte{0xe5, byte(i)},
			}},
			LookupTables: f.tables,
		}
	}
	return routes, nil
}

type fakeTables struct {
	static   AddressTables
	resolved AddressTables
	calls    [][]solana.PublicKey
}

func (f *fakeTables) Resolve(_ context.Context, addrs []solana.PublicKey) (AddressTables, error) {
	f.calls = append(f.calls, addrs)
	if f.resolved == nil {
		return AddressTables{}, nil
	}
	return f.resolved, nil
}

func (f *fakeTables) StaticTables() AddressTables {
	if f.static == nil {
		return AddressTables{}
	}
	return f.static
}

type fakeEstimator struct {
	params domain.ComputeBudgetParams
	err    error
	wires  []string
}

func (f *fakeEstimator) Estimate(_ context.Context, _ *solana.Transaction, wire string) (domain.ComputeBudgetParams, error) {
	f.wires = append(f.wires, wire)
	return f.params, f.err
}

func (f *fakeEstimator) PlaceholderParams() domain.ComputeBudgetParams {
	return domain.ComputeBudgetParams{UnitLimit: 1_400_000, MicroLamportsPerUnit: 10_000}
}
