package tabular

import (
	"bytes"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"quotedraft/internal/domain"
	"quotedraft/internal/extract"
)

// Fallback keyword list for scoring tables where no header row was found.
var tableScoreKeywords = []string{
	"상품명", "품목", "항목", "내용", "규격", "수량",
	"단가", "판매가", "공급가액", "공급합계", "금액", "합계", "총액",
}

// Label sets for the document-text totals scan.
var (
	grandTotalLabels = []string{"총 구매금액", "총구매금액", "결제금액", "최종견적금액", "합계 금액", "합계금액", "총액", "총 금액"}
	shippingLabels   = []string{"배송비"}
	discountLabels   = []string{"할인금액", "할인 금액"}
)

// ParseHTML parses an HTML-disguised export into a goquery document.
func ParseHTML(data []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("tabular: parse html: %w", err)
	}
	return doc, nil
}

// tableRows flattens a <table> selection into a raw table, collapsing
// whitespace per cell and dropping rows where every cell is empty.
func tableRows(table *goquery.Selection) domain.RawTable {
	var rows domain.RawTable
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var cells []string
		any := false
		tr.Find("th,td").Each(func(_ int, td *goquery.Selection) {
			c := collapseText(td.Text())
			if c != "" {
				any = true
			}
			cells = append(cells, c)
		})
		if any {
			rows = append(rows, cells)
		}
	})
	return rows
}

// PickBestTable scores every table in the document and returns the rows of
// the most item-list-like one. A table with a recognizable header row is
// strongly preferred; the score then rewards earlier headers and more data
// rows. Tables without a header fall back to keyword density. Returns nil
// when the document has no usable table.
func PickBestTable(doc *goquery.Document) domain.RawTable {
	var best domain.RawTable
	bestScore := -1

	doc.Find("table").Each(func(_ int, t *goquery.Selection) {
		rows := tableRows(t)
		if len(rows) < 2 {
			return
		}

		score := 0
		headerIdx := extract.FindHeaderRow(rows, extract.WideHeaderScanRows)
		if headerIdx >= 0 {
			score += 1000
			if headerIdx < 200 {
				score += 200 - headerIdx
			}
			cols := extract.MapColumns(rows[headerIdx])
			itemCount := extract.CountItemRows(rows, headerIdx, cols)
			if itemCount > 300 {
				itemCount = 300
			}
			score += itemCount * 10
		} else {
			var b strings.Builder
			for i := 0; i < len(rows) && i < 200; i++ {
				b.WriteString(strings.Join(rows[i], " "))
				b.WriteByte(' ')
			}
			joined := b.String()
			for _, k := range tableScoreKeywords {
				if strings.Contains(joined, k) {
					score += 2
				}
			}
		}

		maxCols := 0
		for _, r := range rows {
			if len(r) > maxCols {
				maxCols = len(r)
			}
		}
		if n := len(rows); n < 20 {
			score += n
		} else {
			score += 20
		}
		if maxCols < 10 {
			score += maxCols
		} else {
			score += 10
		}

		if score > bestScore {
			bestScore = score
			best = rows
		}
	})
	return best
}

// ScanTotals gathers totals evidence from the document outside the item
// table: labeled amounts anywhere in the body text, plus the structured
// footer some marketplace formats carry.
func ScanTotals(doc *goquery.Document) domain.TotalsHints {
	hints := scanLabeledTotals(doc)
	footer := scanListFooterTotals(doc)
	hints.Merge(&footer)
	return hints
}

// scanLabeledTotals regex-scans the collapsed body text for KRW amounts
// following known labels. The same label can appear several times (order
// summary, receipt block), so the maximum candidate wins per label.
func scanLabeledTotals(doc *goquery.Document) domain.TotalsHints {
	text := collapseText(doc.Find("body").Text())
	if text == "" {
		text = collapseText(doc.Text())
	}

	findMax := func(labels []string, abs bool) *float64 {
		var best *float64
		for _, label := range labels {
			re := regexp.MustCompile(regexp.QuoteMeta(label) + `\s*(-?[0-9][0-9,]*)\s*(?:원)?`)
			for _, m := range re.FindAllStringSubmatch(text, -1) {
				n := extract.ToNumber(m[1])
				if n == nil {
					continue
				}
				v := *n
				if abs {
					v = math.Abs(v)
				}
				if best == nil || v > *best {
					best = &v
				}
			}
		}
		return best
	}

	return domain.TotalsHints{
		GrandTotal: findMax(grandTotalLabels, false),
		Shipping:   findMax(shippingLabels, false),
		Discount:   findMax(discountLabels, true),
	}
}

// scanListFooterTotals handles the Auction/Gmarket HTML "xls" layout where
// a table.list footer row carries [합계, supply subtotal, discount,
// post-discount subtotal] without per-cell labels. The last three
// non-negative numbers in the footer map to subtotalBefore, discount and
// subtotalAfter in that order.
func scanListFooterTotals(doc *goquery.Document) domain.TotalsHints {
	var best *goquery.Selection
	bestScore := -1
	doc.Find("table.list").Each(func(_ int, t *goquery.Selection) {
		score := t.Find("tbody tr").Length()*10 + t.Find("thead th").Length()
		if score > bestScore {
			bestScore = score
			best = t
		}
	})
	if best == nil {
		return domain.TotalsHints{}
	}

	tr := best.Find("tfoot tr").First()
	if tr.Length() == 0 {
		return domain.TotalsHints{}
	}

	var nums []float64
	tr.Find("th,td").Each(func(_ int, td *goquery.Selection) {
		if n := extract.ToNumber(collapseText(td.Text())); n != nil && *n >= 0 {
			nums = append(nums, *n)
		}
	})
	if len(nums) < 3 {
		return domain.TotalsHints{}
	}

	last3 := nums[len(nums)-3:]
	return domain.TotalsHints{
		SubtotalBefore: &last3[0],
		Discount:       &last3[1],
		SubtotalAfter:  &last3[2],
	}
}

func collapseText(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.Join(strings.Fields(s), " ")
}
