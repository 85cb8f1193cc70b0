// Package extract implements the deterministic quotation extraction engine:
// cell normalization, header/column detection, item-vs-summary row
// classification, totals reconciliation, and the AI refinement gate.
package extract

import (
	"math"
	"strconv"
	"strings"

	"quotedraft/internal/domain"
)

// MaxFieldLen caps item string fields before they reach the output contract
// or the AI request payload.
const MaxFieldLen = 200

// ToNumber coerces a raw cell string into a currency number. Every character
// except digits, '.' and '-' is stripped first, so "10,000원" and "₩10000"
// both parse. Returns nil for empty or non-finite results; never fails.
func ToNumber(s string) *float64 {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	t := b.String()
	if t == "" {
		return nil
	}
	n, err := strconv.ParseFloat(t, 64)
	if err != nil || math.IsInf(n, 0) || math.IsNaN(n) {
		return nil
	}
	return &n
}

// ClampString trims nothing and truncates s to at most maxLen runes, with no
// ellipsis. Used to bound displayed values and AI payload sizes.
func ClampString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen])
}

// PositiveOrNil reports a computed monetary value, collapsing anything ≤ 0
// to nil. A zero aggregate is indistinguishable from "not stated" in the
// source formats, so it is treated as absence of data.
func PositiveOrNil(v float64) *float64 {
	if v <= 0 || math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return &v
}

// IsPositive reports whether p holds a strictly positive value.
func IsPositive(p *float64) bool {
	return p != nil && *p > 0
}

// NormalizeItems clamps string fields, falls back to Note for a missing
// Spec, and drops rows carrying no name, spec, amount, or unit price.
// Pure and idempotent: normalizing twice yields the same slice.
func NormalizeItems(items []domain.LineItem) []domain.LineItem {
	out := make([]domain.LineItem, 0, len(items))
	for _, it := range items {
		spec := it.Spec
		if spec == "" {
			spec = it.Note
		}
		n := domain.LineItem{
			Name:      ClampString(it.Name, MaxFieldLen),
			Spec:      ClampString(spec, MaxFieldLen),
			Qty:       it.Qty,
			UnitPrice: it.UnitPrice,
			Amount:    it.Amount,
			Note:      ClampString(it.Note, MaxFieldLen),
		}
		if n.Name == "" && n.Spec == "" && n.Amount == nil && n.UnitPrice == nil {
			continue
		}
		out = append(out, n)
	}
	return out
}

// collapseSpaces replaces non-breaking spaces, folds runs of whitespace into
// single spaces, and trims.
func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(s, "\u00a0", " ")), " ")
}
