package extract

import (
	"strings"

	"quotedraft/internal/domain"
)

// Default scan windows for header detection. Marketplace HTML exports bury
// the item table under hundreds of layout rows, so the tabular paths widen
// the window.
const (
	DefaultHeaderScanRows = 60
	WideHeaderScanRows    = 400
)

// Minimum cells for a row to qualify as a header.
const minHeaderCells = 4

// Loose-variant threshold: a row with this many keyword hits qualifies even
// without the name/money split.
const looseKeywordHits = 2

// nameKeywords marks columns that carry the product description.
var nameKeywords = []string{"상품명", "품목", "항목", "내용", "내역", "상품"}

// qtyMoneyKeywords marks columns that carry quantities or amounts.
var qtyMoneyKeywords = []string{
	"수량", "주문수량", "구매수량",
	"단가", "판매가",
	"금액", "공급가액", "공급합계", "합계", "총액", "총금액", "결제금액",
}

// looseKeywords is the combined set for the loosened sparse-header rule.
var looseKeywords = []string{
	"품목", "항목", "내용", "규격", "옵션",
	"수량", "주문수량", "구매수량", "단가", "판매가",
	"금액", "합계", "합계금액", "주문금액", "결제금액",
}

// Column keyword lists, each scanned left-to-right for the first matching
// header cell. The amount list deliberately puts post-discount line-total
// labels (공급합계, 결제금액) ahead of generic amount labels so discounted
// exports resolve to the payable column.
var (
	nameColKeywords      = []string{"품목", "항목", "내용", "제품", "서비스", "내역", "상품명", "상품", "상품정보"}
	specColKeywords      = []string{"규격", "사양", "옵션", "모델", "모델명", "spec", "SPEC"}
	qtyColKeywords       = []string{"수량", "수 량", "qty", "QTY", "주문수량", "구매수량"}
	unitPriceColKeywords = []string{"단가", "단 가", "판매가", "판매 단가", "unit", "price", "단위금액", "단위 금액"}
	amountColKeywords    = []string{"공급합계", "공급 합계", "결제금액", "총액", "총금액", "합계금액", "합계 금액", "금액", "공급가액", "공급가", "주문금액", "amount"}
	noteColKeywords      = []string{"비고", "설명", "note"}
)

// FindHeaderRow scans at most maxScan rows for one that looks like a column
// header: at least minHeaderCells cells containing both a name keyword and a
// quantity/money keyword. A looser rule (any looseKeywordHits keyword hits)
// is tried on the same pass for marketplace exports with sparse headers.
// Returns -1 when nothing qualifies; the caller must then treat the table as
// unusable for heuristic extraction.
func FindHeaderRow(rows domain.RawTable, maxScan int) int {
	if maxScan <= 0 {
		maxScan = DefaultHeaderScanRows
	}
	if maxScan > len(rows) {
		maxScan = len(rows)
	}
	loose := -1
	for i := 0; i < maxScan; i++ {
		cells := rows[i]
		if len(cells) < minHeaderCells {
			continue
		}
		joined := collapseSpaces(strings.Join(cells, " "))
		if containsAny(joined, nameKeywords) && containsAny(joined, qtyMoneyKeywords) {
			return i
		}
		if loose < 0 {
			hits := 0
			for _, k := range looseKeywords {
				if strings.Contains(joined, k) {
					hits++
				}
			}
			if hits >= looseKeywordHits {
				loose = i
			}
		}
	}
	return loose
}

// MapColumns maps header cells to semantic columns. Categories are resolved
// in a fixed precedence (name, spec, qty, unitPrice, amount, note); a cell
// matching several keyword lists is assigned to whichever category claims it
// first and is skipped by the rest.
func MapColumns(header []string) domain.ColumnMap {
	cells := make([]string, len(header))
	for i, c := range header {
		cells[i] = strings.TrimSpace(c)
	}

	claimed := make(map[int]bool)
	// Keyword-major scan: earlier keywords in a column's list outrank later
	// ones, so e.g. 공급합계 (post-discount line total) wins over a generic
	// 금액 cell that appears further left.
	pick := func(keys []string) int {
		for _, k := range keys {
			for i, c := range cells {
				if claimed[i] {
					continue
				}
				if strings.Contains(c, k) {
					claimed[i] = true
					return i
				}
			}
		}
		return -1
	}

	return domain.ColumnMap{
		Name:      pick(nameColKeywords),
		Spec:      pick(specColKeywords),
		Qty:       pick(qtyColKeywords),
		UnitPrice: pick(unitPriceColKeywords),
		Amount:    pick(amountColKeywords),
		Note:      pick(noteColKeywords),
	}
}

func containsAny(s string, keys []string) bool {
	for _, k := range keys {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
