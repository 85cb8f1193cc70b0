package extract

import (
	"regexp"

	"quotedraft/internal/domain"
)

// Summary-row patterns. Anchored labels are pure aggregate rows; the
// shipping/discount patterns match anywhere in the row name.
var (
	summaryLabelRe = regexp.MustCompile(`^(합계|총계|총\s*합계|총\s*금액|결제\s*금액)$`)
	shippingRe     = regexp.MustCompile(`배송|선결제`)
	discountRe     = regexp.MustCompile(`할인|쿠폰|프로모션`)
)

// BuildItems walks the rows after headerIdx and builds candidate line items
// from the mapped columns. Rows whose name, spec, qty, unit price, and
// amount cells are all empty are skipped outright.
func BuildItems(rows domain.RawTable, headerIdx int, cols domain.ColumnMap) []domain.LineItem {
	var items []domain.LineItem
	for i := headerIdx + 1; i < len(rows); i++ {
		name := collapseSpaces(rows.Cell(i, cols.Name))
		spec := collapseSpaces(rows.Cell(i, cols.Spec))
		qtyCell := rows.Cell(i, cols.Qty)
		unitCell := rows.Cell(i, cols.UnitPrice)
		amountCell := rows.Cell(i, cols.Amount)
		note := collapseSpaces(rows.Cell(i, cols.Note))

		if name == "" && spec == "" && qtyCell == "" && unitCell == "" && amountCell == "" {
			continue
		}
		items = append(items, domain.LineItem{
			Name:      name,
			Spec:      spec,
			Qty:       ToNumber(qtyCell),
			UnitPrice: ToNumber(unitCell),
			Amount:    ToNumber(amountCell),
			Note:      note,
		})
	}
	return items
}

// SplitSummaryRows separates aggregate rows from purchasable items. Pure
// total rows (합계, 결제금액, ...) are dropped; shipping and discount rows
// are removed from the item list and their amounts accumulate into the
// returned sums, summed rather than overwritten so multiple shipping lines
// survive. Every input row ends up exactly once: kept, accumulated, or
// dropped as a label-only total.
func SplitSummaryRows(items []domain.LineItem) (kept []domain.LineItem, shipping, discount *float64) {
	kept = make([]domain.LineItem, 0, len(items))
	var shipSum, discSum float64

	for _, it := range items {
		name := collapseSpaces(it.Name)
		if summaryLabelRe.MatchString(name) {
			continue
		}
		if it.Amount != nil && *it.Amount >= 0 {
			if shippingRe.MatchString(name) {
				shipSum += *it.Amount
				continue
			}
			if discountRe.MatchString(name) {
				discSum += *it.Amount
				continue
			}
		}
		kept = append(kept, it)
	}

	return kept, PositiveOrNil(shipSum), PositiveOrNil(discSum)
}
