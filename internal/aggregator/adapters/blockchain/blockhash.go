package blockchain

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/portfolio-swap/internal/config"
	container "github.com/thehyperflames/dicontainer-go"
)

const BLOCKHASH_SERVICE = "blockhash-svc"

// Lifetime is the blockhash a message is anchored to plus the last block height
// at which it is still accepted.
type Lifetime struct {
	Blockhash            solana.Hash
	LastValidBlockHeight uint64
}

// BlockhashService hands out the latest finalized blockhash. Every call goes to
// the node: a blockhash is bound to exactly one assembly attempt.
type BlockhashService struct {
	container.BaseDIInstance

	rpcClient BlockhashFetcher
}

func NewBlockhashService(client BlockhashFetcher) *BlockhashService {
	return &BlockhashService{rpcClient: client}
}

func (svc *BlockhashService) ID() string {
	return BLOCKHASH_SERVICE
}

func (svc *BlockhashService) Configure(c container.IContainer) error {
	rpcConfig := c.GetConfig(config.RPC_CONFIG_KEY).(*config.RPCConfig)
	svc.rpcClient = rpc.New(rpcConfig.RPCUrl)
	return nil
}

func (svc *BlockhashService) Start() error {
	log.Info().Msg("[BlockhashService] started")
	return nil
}

func (svc *BlockhashService) Stop() error {
	return nil
}

func (svc *BlockhashService) Latest(ctx context.Context) (Lifetime, error) {
	res, err := svc.rpcClient.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return Lifetime{}, fmt.Errorf("get latest blockhash: %w", err)
	}
	if res == nil || res.Value == nil {
		return Lifetime{}, fmt.Errorf("get latest blockhash: empty response")
	}
	return Lifetime{
		Blockhash:            res.Value.Blockhash,
		LastValidBlockHeight: res.Value.LastValidBlockHeight,
	}, nil
}
