package extract

import "quotedraft/internal/domain"

// Candidates gathers totals evidence from every source that can state an
// aggregate, in descending precedence: AI response fields, values scanned
// from footer cells or document text, and classified summary rows.
type Candidates struct {
	AIShipping    *float64
	AIDiscount    *float64
	AIStatedTotal *float64

	Hints domain.TotalsHints // scanned footer/label evidence

	SummaryShipping *float64 // accumulated from classified rows
	SummaryDiscount *float64
}

// ItemAmount resolves a single item's contribution to the subtotal:
// the stated amount when present, qty*unitPrice when both are known,
// otherwise zero.
func ItemAmount(it domain.LineItem) float64 {
	if it.Amount != nil {
		return *it.Amount
	}
	if it.Qty != nil && it.UnitPrice != nil {
		return *it.Qty * *it.UnitPrice
	}
	return 0
}

// ItemsSubtotal sums resolved per-item amounts, collapsed to nil when ≤ 0.
func ItemsSubtotal(items []domain.LineItem) *float64 {
	var sum float64
	for _, it := range items {
		sum += ItemAmount(it)
	}
	return PositiveOrNil(sum)
}

// firstPositive returns the first strictly positive candidate.
func firstPositive(candidates ...*float64) *float64 {
	for _, c := range candidates {
		if IsPositive(c) {
			return c
		}
	}
	return nil
}

// ResolveTotals reconciles the final totals breakdown from the remaining
// items and the gathered candidates. Shipping and discount each resolve by
// precedence (AI > scanned > summary rows); the subtotal prefers a scanned
// post-discount subtotal, then pre-discount minus discount, then the sum of
// item amounts. The grand total uses a stated value when one exists and is
// otherwise derived as subtotal + shipping - discount. The stated value is
// returned separately so callers can detect disagreement with the derived
// figure.
func ResolveTotals(items []domain.LineItem, c Candidates) (domain.Totals, *float64) {
	shipping := firstPositive(c.AIShipping, c.Hints.Shipping, c.SummaryShipping)
	discount := firstPositive(c.AIDiscount, c.Hints.Discount, c.SummaryDiscount)

	// discountNet tracks whether the resolved subtotal already absorbed the
	// discount (post-discount footer subtotals), so the derivation below
	// does not subtract it twice.
	var subtotal *float64
	discountNet := false
	switch {
	case IsPositive(c.Hints.SubtotalAfter):
		subtotal = c.Hints.SubtotalAfter
		discountNet = true
	case IsPositive(c.Hints.SubtotalBefore) && IsPositive(discount):
		subtotal = PositiveOrNil(*c.Hints.SubtotalBefore - *discount)
		discountNet = true
	default:
		subtotal = ItemsSubtotal(items)
	}

	stated := firstPositive(c.AIStatedTotal, c.Hints.GrandTotal)

	grand := stated
	if grand == nil {
		var sum float64
		if subtotal != nil {
			sum += *subtotal
		}
		if shipping != nil {
			sum += *shipping
		}
		if discount != nil && !discountNet {
			sum -= *discount
		}
		grand = PositiveOrNil(sum)
	}

	return domain.Totals{
		ItemsSubtotal: subtotal,
		Shipping:      shipping,
		Discount:      discount,
		GrandTotal:    grand,
	}, stated
}
