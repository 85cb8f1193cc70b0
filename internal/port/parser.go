package port

import (
	"context"

	"quotedraft/internal/domain"
)

// ParseInput carries everything one AI extraction call may need. Rows,
// RawText and PageImages are alternative evidence surfaces; InitialItems is
// the heuristic extraction offered to the model as a correction hint.
type ParseInput struct {
	Source       string
	Filename     string
	Rows         domain.RawTable
	RawText      string
	PageImages   []string
	InitialItems []domain.LineItem
}

// ParseOutput contains the structured result from an AI parser. Aggregate
// fields are nil when the model did not state them.
type ParseOutput struct {
	Items       []domain.LineItem
	Shipping    *float64
	Discount    *float64
	StatedTotal *float64
	ModelUsed   string
}

// QuoteParser abstracts AI-based quotation extraction and refinement.
type QuoteParser interface {
	Parse(ctx context.Context, input ParseInput) (*ParseOutput, error)
}
