// Package csvexport renders extraction results as Excel-friendly CSV.
package csvexport

import (
	"encoding/csv"
	"io"
	"strconv"

	"quotedraft/internal/domain"
)

// UTF-8 BOM bytes for Excel compatibility on Windows.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// columns defines the CSV header row.
var columns = []string{"품명", "규격", "수량", "단가", "금액", "비고"}

// Writer wraps csv.Writer for exporting extraction results as CSV.
type Writer struct {
	csv *csv.Writer
}

// NewWriter creates a Writer that writes CSV to w. Callers that need Excel
// compatibility should write BOM to w first.
func NewWriter(w io.Writer) *Writer {
	return &Writer{csv: csv.NewWriter(w)}
}

// WriteHeader writes the column header row.
func (w *Writer) WriteHeader() error {
	return w.csv.Write(columns)
}

// WriteResult writes the items of an extraction followed by its totals
// breakdown rows.
func (w *Writer) WriteResult(res domain.ExtractionResult) error {
	for _, it := range res.Items {
		row := []string{
			it.Name,
			it.Spec,
			formatNumber(it.Qty),
			formatNumber(it.UnitPrice),
			formatNumber(it.Amount),
			it.Note,
		}
		if err := w.csv.Write(row); err != nil {
			return err
		}
	}
	return w.writeTotals(res.Totals)
}

func (w *Writer) writeTotals(t domain.Totals) error {
	rows := []struct {
		label string
		value *float64
	}{
		{"소계", t.ItemsSubtotal},
		{"배송비", t.Shipping},
		{"할인", t.Discount},
		{"총액", t.GrandTotal},
	}
	for _, r := range rows {
		if r.value == nil {
			continue
		}
		if err := w.csv.Write([]string{r.label, "", "", "", formatNumber(r.value), ""}); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes the underlying csv.Writer buffer.
func (w *Writer) Flush() {
	w.csv.Flush()
}

// Error returns any error from the underlying csv.Writer.
func (w *Writer) Error() error {
	return w.csv.Error()
}

func formatNumber(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
