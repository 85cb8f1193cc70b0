package parser

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quotedraft/internal/port"
)

// stubParser returns a fixed output or error and records calls.
type stubParser struct {
	out   *port.ParseOutput
	err   error
	calls int
}

func (s *stubParser) Parse(_ context.Context, _ port.ParseInput) (*port.ParseOutput, error) {
	s.calls++
	return s.out, s.err
}

func stubOutput(model string) *port.ParseOutput {
	return &port.ParseOutput{ModelUsed: model}
}

func TestFallbackParser_FirstSucceeds(t *testing.T) {
	p1 := &stubParser{out: stubOutput("primary")}
	p2 := &stubParser{out: stubOutput("secondary")}

	fp := NewFallbackParser([]port.QuoteParser{p1, p2}, []string{"primary", "secondary"})

	out, err := fp.Parse(context.Background(), port.ParseInput{Source: "pdf"})
	require.NoError(t, err)
	assert.Equal(t, "primary", out.ModelUsed)
	assert.Zero(t, p2.calls)
}

func TestFallbackParser_GenericErrorFallsThrough(t *testing.T) {
	p1 := &stubParser{err: errors.New("boom")}
	p2 := &stubParser{out: stubOutput("secondary")}

	fp := NewFallbackParser([]port.QuoteParser{p1, p2}, []string{"primary", "secondary"})

	out, err := fp.Parse(context.Background(), port.ParseInput{})
	require.NoError(t, err)
	assert.Equal(t, "secondary", out.ModelUsed)
}

func TestFallbackParser_RateLimitOpensCircuit(t *testing.T) {
	p1 := &stubParser{err: NewRateLimitError("primary", errors.New("429"), 60)}
	p2 := &stubParser{out: stubOutput("secondary")}

	fp := NewFallbackParser([]port.QuoteParser{p1, p2}, []string{"primary", "secondary"})

	out, err := fp.Parse(context.Background(), port.ParseInput{})
	require.NoError(t, err)
	assert.Equal(t, "secondary", out.ModelUsed)
	assert.Equal(t, 1, p1.calls)

	// Second request inside the backoff window must skip the limited parser.
	out, err = fp.Parse(context.Background(), port.ParseInput{})
	require.NoError(t, err)
	assert.Equal(t, "secondary", out.ModelUsed)
	assert.Equal(t, 1, p1.calls)
}

func TestFallbackParser_AllRateLimited(t *testing.T) {
	p1 := &stubParser{err: NewRateLimitError("primary", errors.New("429"), 60)}
	p2 := &stubParser{err: NewRateLimitError("secondary", errors.New("429"), 30)}

	fp := NewFallbackParser([]port.QuoteParser{p1, p2}, []string{"primary", "secondary"})

	_, err := fp.Parse(context.Background(), port.ParseInput{})
	var rlErr *RateLimitError
	require.ErrorAs(t, err, &rlErr)
	assert.Equal(t, "all", rlErr.Provider)
}

func TestFallbackParser_AllFail(t *testing.T) {
	p1 := &stubParser{err: errors.New("error 1")}
	p2 := &stubParser{err: errors.New("error 2")}

	fp := NewFallbackParser([]port.QuoteParser{p1, p2}, []string{"primary", "secondary"})

	_, err := fp.Parse(context.Background(), port.ParseInput{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all parsers failed")
}
