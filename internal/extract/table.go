package extract

import "quotedraft/internal/domain"

// TableResult is the outcome of the heuristic pass over one raw table:
// normalized purchasable items plus the shipping/discount sums that were
// classified out of the item rows.
type TableResult struct {
	Items           []domain.LineItem
	SummaryShipping *float64
	SummaryDiscount *float64
}

// FromTable runs the full heuristic pipeline over a raw table: header
// detection within maxScan rows, column mapping, item building, then
// normalization and summary-row splitting. Returns
// domain.ErrHeaderNotFound when no row qualifies as a header.
func FromTable(rows domain.RawTable, maxScan int) (TableResult, error) {
	if len(rows) == 0 {
		return TableResult{}, domain.ErrHeaderNotFound
	}
	headerIdx := FindHeaderRow(rows, maxScan)
	if headerIdx < 0 {
		return TableResult{}, domain.ErrHeaderNotFound
	}

	cols := MapColumns(rows[headerIdx])
	raw := BuildItems(rows, headerIdx, cols)
	items, shipping, discount := SplitSummaryRows(NormalizeItems(raw))

	return TableResult{
		Items:           items,
		SummaryShipping: shipping,
		SummaryDiscount: discount,
	}, nil
}

// CountItemRows counts rows after the header that would survive the
// all-empty skip. Used by table scoring, not extraction.
func CountItemRows(rows domain.RawTable, headerIdx int, cols domain.ColumnMap) int {
	n := 0
	for i := headerIdx + 1; i < len(rows); i++ {
		name := rows.Cell(i, cols.Name)
		spec := rows.Cell(i, cols.Spec)
		unit := ToNumber(rows.Cell(i, cols.UnitPrice))
		amount := ToNumber(rows.Cell(i, cols.Amount))
		if name == "" && spec == "" && unit == nil && amount == nil {
			continue
		}
		n++
	}
	return n
}
