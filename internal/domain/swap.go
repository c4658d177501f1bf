package domain

import (
	"github.com/gagliardetto/solana-go"
)

// MaxSlippageBps is 100%.
const MaxSlippageBps = 10000

// SwapLeg is one input to output conversion inside a plan. Amount is in base units.
type SwapLeg struct {
	InputToken  solana.PublicKey `json:"inputToken"`
	OutputToken solana.PublicKey `json:"outputToken"`
	Amount      uint64           `json:"amount"`
	SlippageBps uint16           `json:"slippageBps"`
}

// Valid reports whether the leg may enter a batch.
func (l SwapLeg) Valid() bool {
	return l.Amount > 0 &&
		l.SlippageBps <= MaxSlippageBps &&
		!l.InputToken.IsZero() &&
		!l.OutputToken.IsZero() &&
		!l.InputToken.Equals(l.OutputToken)
}

// SwapPlan is immutable once built; use NewSwapPlan so invalid legs are dropped up front.
type SwapPlan struct {
	Signer      solana.PublicKey `json:"signer"`
	Legs        []SwapLeg        `json:"legs"`
	SlippageBps uint16           `json:"slippageBps"`
	FeeAmount   uint64           `json:"feeAmount,omitempty"`
}

func NewSwapPlan(signer solana.PublicKey, legs []SwapLeg, slippageBps uint16, feeAmount uint64) SwapPlan {
	kept := make([]SwapLeg, 0, len(legs))
	for _, leg := range legs {
		if leg.Valid() {
			kept = append(kept, leg)
		}
	}
	return SwapPlan{
		Signer:      signer,
		Legs:        kept,
		SlippageBps: slippageBps,
		FeeAmount:   feeAmount,
	}
}

// SwapBatch holds at most one batch worth of legs plus the untouched remainder, both in plan order.
type SwapBatch struct {
	Legs      []SwapLeg
	Remainder []SwapLeg
}

// Continuation is handed back to the caller when a plan did not fit into one transaction.
type Continuation struct {
	RemainingLegs []SwapLeg        `json:"remainingLegs"`
	Signer        solana.PublicKey `json:"signer"`
	SlippageBps   uint16           `json:"slippageBps"`
}

// Plan rebuilds a swap plan from the continuation. Fees are only charged on the first batch.
func (c Continuation) Plan() SwapPlan {
	return NewSwapPlan(c.Signer, c.RemainingLegs, c.SlippageBps, 0)
}

type ComputeBudgetParams struct {
	UnitLimit            uint32 `json:"unitLimit"`
	MicroLamportsPerUnit uint64 `json:"microLamportsPerUnit"`
}

// BuildResult is the produced artifact: an unsigned, base64 encoded v0 transaction.
type BuildResult struct {
	Transaction          string              `json:"transaction"`
	Blockhash            string              `json:"blockhash"`
	LastValidBlockHeight uint64              `json:"lastValidBlockHeight"`
	ComputeBudget        ComputeBudgetParams `json:"computeBudget"`
	Legs                 []SwapLeg           `json:"legs"`
	LookupTables         []string            `json:"lookupTables,omitempty"`
	Continuation         *Continuation       `json:"continuation,omitempty"`
}
