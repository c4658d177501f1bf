package builder

import "github.com/hxuan190/portfolio-swap/internal/domain"

// DefaultBatchSize keeps setup, swap and cleanup instructions of every leg inside
// one transaction's size and compute ceilings.
const DefaultBatchSize = 3

// SplitPlan takes the first size legs of the plan and returns the rest untouched.
// Both halves are fresh slices in plan order, so the plan itself is never aliased.
func SplitPlan(plan domain.SwapPlan, size int) domain.SwapBatch {
	if size <= 0 {
		size = DefaultBatchSize
	}

	n := min(size, len(plan.Legs))
	batch := domain.SwapBatch{
		Legs:      append([]domain.SwapLeg(nil), plan.Legs[:n]...),
		Remainder: append([]domain.SwapLeg{}, plan.Legs[n:]...),
	}
	return batch
}
