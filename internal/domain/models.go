package domain

// LineItem is one purchasable row of a quotation. Monetary fields are nil
// when the source document does not state them; Amount is the preferred
// truth and Qty*UnitPrice is only a derivation fallback.
type LineItem struct {
	Name      string   `json:"name"`
	Spec      string   `json:"spec"`
	Qty       *float64 `json:"qty"`
	UnitPrice *float64 `json:"unitPrice"`
	Amount    *float64 `json:"amount"`
	Note      string   `json:"note"`
}

// Totals is the reconciled totals breakdown for an extraction. Every field
// is nil or strictly positive; zero and negative aggregates collapse to nil
// because the source formats never legitimately show a zero line.
type Totals struct {
	ItemsSubtotal *float64 `json:"itemsSubtotal"`
	Shipping      *float64 `json:"shipping"`
	Discount      *float64 `json:"discount"`
	GrandTotal    *float64 `json:"grandTotal"`
}

// RawTable is an ordered sequence of rows of cell strings. Rows may be
// ragged; use Cell for padded access.
type RawTable [][]string

// Cell returns the cell at (row, col), or "" when the row is shorter than
// col or col is negative (absent column mapping).
func (t RawTable) Cell(row, col int) string {
	if row < 0 || row >= len(t) || col < 0 || col >= len(t[row]) {
		return ""
	}
	return t[row][col]
}

// ColumnMap maps semantic columns to indices in a detected header row.
// An index of -1 means the column is absent.
type ColumnMap struct {
	Name      int
	Spec      int
	Qty       int
	UnitPrice int
	Amount    int
	Note      int
}

// TotalsHints carries totals evidence scanned from outside the item rows
// (HTML footer cells, labeled amounts in document text). Values follow the
// positive-or-nil rule.
type TotalsHints struct {
	Shipping       *float64
	Discount       *float64
	GrandTotal     *float64
	SubtotalBefore *float64 // pre-discount subtotal (공급가액 합)
	SubtotalAfter  *float64 // post-discount subtotal (공급합계 합)
}

// Merge overlays non-nil fields of other onto h.
func (h *TotalsHints) Merge(other *TotalsHints) {
	if other == nil {
		return
	}
	if other.Shipping != nil {
		h.Shipping = other.Shipping
	}
	if other.Discount != nil {
		h.Discount = other.Discount
	}
	if other.GrandTotal != nil {
		h.GrandTotal = other.GrandTotal
	}
	if other.SubtotalBefore != nil {
		h.SubtotalBefore = other.SubtotalBefore
	}
	if other.SubtotalAfter != nil {
		h.SubtotalAfter = other.SubtotalAfter
	}
}

// ExtractionResult is the per-file (or aggregated) output contract.
// StatedTotal preserves a grand total stated by the document or the AI
// response so callers can audit disagreement with the derived value.
type ExtractionResult struct {
	Source      Source     `json:"source"`
	Mode        Mode       `json:"mode"`
	Items       []LineItem `json:"items"`
	Totals      Totals     `json:"totals"`
	StatedTotal *float64   `json:"statedTotal"`
	RawText     string     `json:"rawText,omitempty"`
}

// QuoteMeta is the user-entered metadata for the drafting collaborator.
type QuoteMeta struct {
	Subject string `json:"subject"`
	DocDate string `json:"docDate"`
	Purpose string `json:"purpose"`
	Notes   string `json:"notes"`
}

// QuoteBody is the quote section of a QuotePayload.
type QuoteBody struct {
	Source   Source     `json:"source"`
	Currency string     `json:"currency"`
	Items    []LineItem `json:"items"`
	Total    *float64   `json:"total"`
	RawText  string     `json:"rawText"`
}

// QuotePayload is the exact shape the outline/document drafting service
// consumes.
type QuotePayload struct {
	Meta  QuoteMeta `json:"meta"`
	Quote QuoteBody `json:"quote"`
}
