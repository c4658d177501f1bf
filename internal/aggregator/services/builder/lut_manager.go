package builder

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/gagliardetto/solana-go"
	addresslookuptable "github.com/gagliardetto/solana-go/programs/address-lookup-table"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/portfolio-swap/internal/aggregator/adapters/blockchain"
	"github.com/hxuan190/portfolio-swap/internal/metrics"
)

// getMultipleAccounts accepts at most 100 keys per call.
const maxAccountsPerCall = 100

// AddressTables maps a lookup table address to its member addresses.
type AddressTables = map[solana.PublicKey]solana.PublicKeySlice

// LUTManager resolves address lookup tables referenced by a build and keeps the
// configured static tables warm in the background. Static tables are read
// lock-free through atomic.Value.
type LUTManager struct {
	rpcClient    blockchain.AccountsFetcher
	lutAddresses []solana.PublicKey
	tables       atomic.Value // AddressTables
	interval     time.Duration
}

// NewLUTManager creates a new LUT manager. With no static addresses StaticTables
// is always empty and only aggregator referenced tables compress transactions.
func NewLUTManager(rpcClient blockchain.AccountsFetcher, lutAddresses []solana.PublicKey, refreshInterval time.Duration) *LUTManager {
	m := &LUTManager{
		rpcClient:    rpcClient,
		lutAddresses: lutAddresses,
		interval:     refreshInterval,
	}
	m.tables.Store(make(AddressTables))
	return m
}

// Start fetches static LUT states immediately, then refreshes in the background.
func (m *LUTManager) Start(ctx context.Context) {
	if len(m.lutAddresses) == 0 {
		log.Info().Msg("[LUTManager] no static LUT addresses configured")
		return
	}

	m.refresh(ctx)
	if m.interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.refresh(ctx)
			}
		}
	}()
}

// StaticTables returns the last refreshed static tables. Callers must not mutate the map.
func (m *LUTManager) StaticTables() AddressTables {
	return m.tables.Load().(AddressTables)
}

// Resolve fetches every referenced table in as few RPC calls as possible.
// An empty input returns an empty map without touching the network. Tables that
// are missing, deactivated or undecodable are left out, and an RPC failure
// yields whatever was fetched so far: compression is an optimization, so only
// cancellation of ctx is reported as an error.
func (m *LUTManager) Resolve(ctx context.Context, addresses []solana.PublicKey) (AddressTables, error) {
	unique := DedupeAddresses(addresses)
	tables := make(AddressTables, len(unique))
	if len(unique) == 0 {
		return tables, nil
	}

	metrics.LUTResolutions.Inc()
	for start := 0; start < len(unique); start += maxAccountsPerCall {
		chunk := unique[start:min(start+maxAccountsPerCall, len(unique))]

		res, err := m.rpcClient.GetMultipleAccounts(ctx, chunk...)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn().Err(err).Int("tables", len(chunk)).Msg("[LUTManager] failed to fetch lookup tables, continuing without them")
			metrics.LUTOmissions.Add(float64(len(chunk)))
			continue
		}

		for i, addr := range chunk {
			if res == nil || i >= len(res.Value) || res.Value[i] == nil || res.Value[i].Data == nil {
				log.Warn().Str("lut", addr.String()).Msg("[LUTManager] lookup table account not found, skipping")
				metrics.LUTOmissions.Inc()
				continue
			}

			state, err := addresslookuptable.DecodeAddressLookupTableState(res.Value[i].Data.GetBinary())
			if err != nil {
				log.Warn().Err(err).Str("lut", addr.String()).Msg("[LUTManager] failed to decode lookup table, skipping")
				metrics.LUTOmissions.Inc()
				continue
			}
			if !state.IsActive() {
				log.Warn().Str("lut", addr.String()).Msg("[LUTManager] lookup table is deactivated, skipping")
				metrics.LUTOmissions.Inc()
				continue
			}
			tables[addr] = state.Addresses
		}
	}

	return tables, nil
}

func (m *LUTManager) refresh(ctx context.Context) {
	tables, err := m.Resolve(ctx, m.lutAddresses)
	if err != nil {
		return
	}

	m.tables.Store(tables)
	log.Info().Int("tables", len(tables)).Msg("[LUTManager] static refresh complete")
}

// DedupeAddresses drops zero and repeated keys, keeping first occurrence order.
func DedupeAddresses(addresses []solana.PublicKey) []solana.PublicKey {
	seen := make(map[solana.PublicKey]struct{}, len(addresses))
	out := make([]solana.PublicKey, 0, len(addresses))
	for _, addr := range addresses {
		if addr.IsZero() {
			continue
		}
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	}
	return out
}

// MergeTables returns a new map holding the entries of every input; later maps win.
func MergeTables(sets ...AddressTables) AddressTables {
	out := make(AddressTables)
	for _, set := range sets {
		for k, v := range set {
			out[k] = v
		}
	}
	return out
}
