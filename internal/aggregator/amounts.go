package aggregator

import (
	"fmt"
	"math"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"github.com/hxuan190/portfolio-swap/internal/domain"
)

const (
	BasisPoints = 10_000

	// Weights are applied in parts per million so the split stays integral.
	weightScale = 1_000_000
)

// ToBaseUnits converts a UI amount to base units, rounding down.
func ToBaseUnits(amount decimal.Decimal, decimals uint8) (uint64, error) {
	raw := amount.Shift(int32(decimals)).Floor()
	if raw.Sign() <= 0 {
		return 0, domain.ErrInvalidAmount
	}
	if !raw.BigInt().IsUint64() {
		return 0, fmt.Errorf("%w: %s overflows base units", domain.ErrInvalidAmount, amount)
	}
	return raw.BigInt().Uint64(), nil
}

// SplitLegs spreads total over the portfolio weights. Legs that round to zero
// or would swap a token into itself are dropped.
func SplitLegs(input solana.PublicKey, total uint64, slippageBps uint16, tokens []domain.TokenWeight) []domain.SwapLeg {
	legs := make([]domain.SwapLeg, 0, len(tokens))
	totalInt := uint256.NewInt(total)
	scale := uint256.NewInt(weightScale)

	for _, t := range tokens {
		if t.Address.Equals(input) {
			continue
		}
		ppm := uint64(math.Round(t.Weight * weightScale))
		amount, overflow := new(uint256.Int).MulDivOverflow(totalInt, uint256.NewInt(ppm), scale)
		if overflow || !amount.IsUint64() || amount.IsZero() {
			continue
		}
		legs = append(legs, domain.SwapLeg{
			InputToken:  input,
			OutputToken: t.Address,
			Amount:      amount.Uint64(),
			SlippageBps: slippageBps,
		})
	}
	return legs
}

// PlatformFee is legsTotal × bps / 10000, rounded down.
func PlatformFee(legs []domain.SwapLeg, bps uint16) uint64 {
	if bps == 0 || len(legs) == 0 {
		return 0
	}
	total := new(uint256.Int)
	for _, leg := range legs {
		total.Add(total, uint256.NewInt(leg.Amount))
	}
	fee, overflow := new(uint256.Int).MulDivOverflow(total, uint256.NewInt(uint64(bps)), uint256.NewInt(BasisPoints))
	if overflow || !fee.IsUint64() {
		return 0
	}
	return fee.Uint64()
}

// SwapMessage renders "Swapping X tokens to <name>: 40.0% SOL, ...".
func SwapMessage(amount decimal.Decimal, p domain.Portfolio) string {
	parts := make([]string, 0, len(p.Tokens))
	for _, t := range p.Tokens {
		parts = append(parts, fmt.Sprintf("%.1f%% %s", t.Weight*100, t.Symbol))
	}
	return fmt.Sprintf("Swapping %s tokens to %s: %s", amount.String(), p.Name, strings.Join(parts, ", "))
}
