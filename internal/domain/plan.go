package domain

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// TransactionPlan is the closed set of request shapes accepted at the boundary.
// ResolvePlan turns every variant into a SwapPlan so the pipeline only ever sees one shape.
type TransactionPlan interface {
	planSigner() solana.PublicKey
	isTransactionPlan()
}

// TransferPlan converts a single input token into a single output token.
type TransferPlan struct {
	Signer      solana.PublicKey
	InputToken  solana.PublicKey
	OutputToken solana.PublicKey
	Amount      uint64
	SlippageBps uint16
	FeeAmount   uint64
}

// MultiSwapPlan carries an already expanded list of legs. Each leg keeps its own
// slippage, 0 included; SlippageBps is the plan level value reported back in a
// continuation.
type MultiSwapPlan struct {
	Signer      solana.PublicKey
	Legs        []SwapLeg
	SlippageBps uint16
	FeeAmount   uint64
}

func (p TransferPlan) planSigner() solana.PublicKey { return p.Signer }
func (TransferPlan) isTransactionPlan() {}
func (p MultiSwapPlan) planSigner() solana.PublicKey { return p.Signer }
func (MultiSwapPlan) isTransactionPlan() {}

func ResolvePlan(p TransactionPlan) (SwapPlan, error) {
	if p == nil {
		return SwapPlan{}, ErrInvalidPlan
	}
	if p.planSigner().IsZero() {
		return SwapPlan{}, ErrInvalidSigner
	}

	var plan SwapPlan
	switch v := p.(type) {
	case TransferPlan:
		leg := SwapLeg{
			InputToken:  v.InputToken,
			OutputToken: v.OutputToken,
			Amount:      v.Amount,
			SlippageBps: v.SlippageBps,
		}
		plan = NewSwapPlan(v.Signer, []SwapLeg{leg}, v.SlippageBps, v.FeeAmount)
	case MultiSwapPlan:
		legs := make([]SwapLeg, len(v.Legs))
		copy(legs, v.Legs)
		plan = NewSwapPlan(v.Signer, legs, v.SlippageBps, v.FeeAmount)
	default:
		return SwapPlan{}, fmt.Errorf("%w: %T", ErrInvalidPlan, p)
	}

	if len(plan.Legs) == 0 {
		return SwapPlan{}, ErrEmptyPlan
	}
	return plan, nil
}
