package config

import (
	"errors"
	"os"
	"strings"
)

type RPCConfig struct {
	RPCUrl string
	// WSUrl enables confirmation by signature subscription. Empty falls back to status polling.
	WSUrl     string
	RPCApiKey string
	// PriorityFeeURL is the JSON-RPC endpoint serving getPriorityFeeEstimate.
	PriorityFeeURL string
	// PriorityFeeQuery is a jq expression locating the estimate in the oracle response.
	PriorityFeeQuery string
}

func (r *RPCConfig) Key() string {
	return RPC_CONFIG_KEY
}

func (r *RPCConfig) Load() error {
	r.RPCUrl = os.Getenv("RPC_URL")
	r.WSUrl = os.Getenv("WS_URL")
	r.RPCApiKey = os.Getenv("RPC_KEY")
	r.PriorityFeeURL = os.Getenv("PRIORITY_FEE_URL")
	r.PriorityFeeQuery = os.Getenv("PRIORITY_FEE_QUERY")
	if r.PriorityFeeURL == "" && r.RPCApiKey != "" {
		r.PriorityFeeURL = "https://mainnet.helius-rpc.com/?api-key=" + r.RPCApiKey
	}
	return nil
}

func (r *RPCConfig) Validate() error {
	if r.RPCUrl == "" {
		return errors.New("invalid rpc config: RPC_URL is required")
	}
	if r.WSUrl != "" && !strings.HasPrefix(r.WSUrl, "ws") {
		return errors.New("invalid rpc config: WS_URL must be a ws:// or wss:// url")
	}
	return nil
}
