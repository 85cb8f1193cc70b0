package extract

import "quotedraft/internal/domain"

// Refinement gate thresholds. missAllRatio catches structurally unreadable
// tables (rows with no amount and no computable qty×unitPrice); the looser
// missAmountRatio catches sparse ones. Tunable, not load-bearing.
const (
	refineMissAllRatio    = 0.25
	refineMissAmountRatio = 0.55
)

// ShouldRefine decides whether a heuristic extraction is trustworthy enough
// to skip the AI collaborator. Refine when nothing was extracted, when no
// positive total is known, or when too many items lack usable amounts.
func ShouldRefine(items []domain.LineItem, total *float64) bool {
	if len(items) == 0 {
		return true
	}
	if !IsPositive(total) {
		return true
	}

	missAmount := 0
	missAll := 0
	for _, it := range items {
		hasAmt := it.Amount != nil && *it.Amount >= 0
		hasCalc := it.Qty != nil && it.UnitPrice != nil
		if !hasAmt {
			missAmount++
			if !hasCalc {
				missAll++
			}
		}
	}

	n := float64(len(items))
	if float64(missAll)/n > refineMissAllRatio {
		return true
	}
	if float64(missAmount)/n > refineMissAmountRatio {
		return true
	}
	return false
}
