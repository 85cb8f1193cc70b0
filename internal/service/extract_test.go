package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quotedraft/internal/config"
	"quotedraft/internal/domain"
	"quotedraft/internal/port"
)

func f(v float64) *float64 { return &v }

type stubParser struct {
	out   *port.ParseOutput
	err   error
	calls []port.ParseInput
}

func (s *stubParser) Parse(_ context.Context, in port.ParseInput) (*port.ParseOutput, error) {
	s.calls = append(s.calls, in)
	if s.err != nil {
		return nil, s.err
	}
	return s.out, nil
}

func testCfg() config.ExtractConfig {
	return config.ExtractConfig{
		MaxFileSizeMB:         25,
		MaxFiles:              10,
		ChunkPages:            4,
		ChunkPagesConstrained: 2,
	}
}

func quoteRows() domain.RawTable {
	return domain.RawTable{
		{"상품명", "규격", "수량", "단가", "금액"},
		{"키보드", "기계식", "2", "10,000", "20,000"},
		{"배송비", "", "", "", "3,000"},
		{"합계", "", "", "", "23,000"},
	}
}

func TestExtractFile_HeuristicTable(t *testing.T) {
	svc := NewExtractService(nil, testCfg())

	res, err := svc.ExtractFile(context.Background(), FileInput{
		Filename: "견적.xlsx",
		Rows:     quoteRows(),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.SourceXLSX, res.Source)
	assert.Equal(t, domain.ModeHeuristic, res.Mode)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "키보드", res.Items[0].Name)
	assert.Equal(t, 3000.0, *res.Totals.Shipping)
	assert.Equal(t, 23000.0, *res.Totals.GrandTotal)
}

func TestExtractFile_UnsupportedFormat(t *testing.T) {
	svc := NewExtractService(nil, testCfg())

	_, err := svc.ExtractFile(context.Background(), FileInput{
		Filename: "문서.docx",
		Data:     []byte("x"),
	})
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
}

func TestExtractFile_HeaderNotFound(t *testing.T) {
	svc := NewExtractService(nil, testCfg())

	_, err := svc.ExtractFile(context.Background(), FileInput{
		Filename: "안내.xlsx",
		Rows: domain.RawTable{
			{"공지", "안내", "링크", "기타"},
		},
	})
	assert.ErrorIs(t, err, domain.ErrHeaderNotFound)
}

func TestExtractFile_FileTooLarge(t *testing.T) {
	cfg := testCfg()
	cfg.MaxFileSizeMB = 1
	svc := NewExtractService(nil, cfg)

	_, err := svc.ExtractFile(context.Background(), FileInput{
		Filename: "큰파일.xlsx",
		Data:     make([]byte, 2*1024*1024),
	})
	assert.ErrorIs(t, err, domain.ErrPayloadTooLarge)
}

func TestExtractFile_GoodExtractionSkipsAI(t *testing.T) {
	stub := &stubParser{out: &port.ParseOutput{}}
	svc := NewExtractService(stub, testCfg())

	res, err := svc.ExtractFile(context.Background(), FileInput{
		Filename: "견적.xlsx",
		Rows:     quoteRows(),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ModeHeuristic, res.Mode)
	assert.Empty(t, stub.calls)
}

func TestExtractFile_RefineGate(t *testing.T) {
	// Most rows lack amounts, so the gate must hand the heuristic items to
	// the parser as a correction hint.
	rows := domain.RawTable{
		{"상품명", "규격", "수량", "단가", "금액"},
		{"키보드", "", "", "", "20,000"},
		{"마우스", "", "", "", ""},
		{"패드", "", "", "", ""},
		{"케이블", "", "", "", ""},
	}
	stub := &stubParser{out: &port.ParseOutput{
		Items: []domain.LineItem{
			{Name: "키보드", Amount: f(20000)},
			{Name: "마우스", Amount: f(8000)},
			{Name: "패드", Amount: f(3000)},
			{Name: "케이블", Amount: f(2000)},
		},
		Shipping:  f(3000),
		ModelUsed: "test-model",
	}}
	svc := NewExtractService(stub, testCfg())

	res, err := svc.ExtractFile(context.Background(), FileInput{Filename: "주문.xlsx", Rows: rows})
	require.NoError(t, err)

	require.Len(t, stub.calls, 1)
	assert.NotEmpty(t, stub.calls[0].InitialItems)
	assert.Equal(t, domain.ModeAIRefine, res.Mode)
	assert.Equal(t, domain.SourceAI, res.Source)
	require.Len(t, res.Items, 4)
	assert.Equal(t, 33000.0, *res.Totals.ItemsSubtotal)
	assert.Equal(t, 3000.0, *res.Totals.Shipping)
	assert.Equal(t, 36000.0, *res.Totals.GrandTotal)
}

func TestExtractFile_AIFailureFallsBackToHeuristic(t *testing.T) {
	rows := domain.RawTable{
		{"상품명", "규격", "수량", "단가", "금액"},
		{"키보드", "", "", "", "20,000"},
		{"마우스", "", "", "", ""},
		{"패드", "", "", "", ""},
	}
	stub := &stubParser{err: errors.New("provider down")}
	svc := NewExtractService(stub, testCfg())

	res, err := svc.ExtractFile(context.Background(), FileInput{Filename: "주문.xlsx", Rows: rows})
	require.NoError(t, err)
	require.Len(t, stub.calls, 1)
	assert.Equal(t, domain.ModeHeuristic, res.Mode)
	require.Len(t, res.Items, 3)
}

func TestExtractFile_TextPDFUsesAI(t *testing.T) {
	stub := &stubParser{out: &port.ParseOutput{
		Items:       []domain.LineItem{{Name: "모니터", Amount: f(150000)}},
		StatedTotal: f(153000),
	}}
	svc := NewExtractService(stub, testCfg())

	text := strings.Repeat("견적 내용 ", 50)
	res, err := svc.ExtractFile(context.Background(), FileInput{Filename: "견적.pdf", RawText: text})
	require.NoError(t, err)

	require.Len(t, stub.calls, 1)
	assert.Equal(t, text, stub.calls[0].RawText)
	assert.Equal(t, domain.ModeAI, res.Mode)
	assert.Equal(t, 153000.0, *res.Totals.GrandTotal)
	assert.Equal(t, 153000.0, *res.StatedTotal)
}

func TestExtractFile_TextPDFWithoutParser(t *testing.T) {
	svc := NewExtractService(nil, testCfg())

	_, err := svc.ExtractFile(context.Background(), FileInput{
		Filename: "견적.pdf",
		RawText:  strings.Repeat("본문 ", 100),
	})
	assert.ErrorIs(t, err, domain.ErrNoItemsExtracted)
}

func TestExtractFile_ScannedPDFNeedsImages(t *testing.T) {
	stub := &stubParser{out: &port.ParseOutput{}}
	svc := NewExtractService(stub, testCfg())

	// 40 significant characters of text: classified as scanned.
	_, err := svc.ExtractFile(context.Background(), FileInput{
		Filename: "스캔.pdf",
		RawText:  strings.Repeat("a", 40),
	})
	assert.ErrorIs(t, err, domain.ErrNoItemsExtracted)
	assert.Empty(t, stub.calls)
}

func TestExtractFile_ScannedPDFChunks(t *testing.T) {
	stub := &stubParser{out: &port.ParseOutput{
		Items:    []domain.LineItem{{Name: "페이지 품목", Amount: f(10000)}},
		Shipping: f(2500),
	}}
	svc := NewExtractService(stub, testCfg())

	imgs := []string{
		"data:image/jpeg;base64,AAAA",
		"data:image/jpeg;base64,BBBB",
		"data:image/jpeg;base64,CCCC",
		"data:image/jpeg;base64,DDDD",
		"data:image/jpeg;base64,EEEE",
	}
	res, err := svc.ExtractFile(context.Background(), FileInput{
		Filename:    "스캔.pdf",
		PageImages:  imgs,
		Constrained: true,
	})
	require.NoError(t, err)

	// Constrained chunking: 5 images in chunks of 2 means 3 calls.
	require.Len(t, stub.calls, 3)
	assert.Len(t, stub.calls[0].PageImages, 2)
	assert.Len(t, stub.calls[2].PageImages, 1)

	assert.Equal(t, domain.ModeAI, res.Mode)
	require.Len(t, res.Items, 3)
	// Shipping repeats per chunk; max wins over sum.
	assert.Equal(t, 2500.0, *res.Totals.Shipping)
	assert.Equal(t, 32500.0, *res.Totals.GrandTotal)
}

func TestExtractBatch(t *testing.T) {
	svc := NewExtractService(nil, testCfg())

	batch, err := svc.ExtractBatch(context.Background(), []FileInput{
		{Filename: "a.xlsx", Rows: quoteRows()},
		{Filename: "b.xlsx", Rows: domain.RawTable{
			{"상품명", "규격", "수량", "단가", "금액"},
			{"모니터", "", "1", "150,000", "150,000"},
		}},
		{Filename: "c.docx", Data: []byte("x")},
	})
	require.NoError(t, err)

	require.Len(t, batch.Files, 2)
	require.Len(t, batch.Failures, 1)
	assert.Equal(t, "c.docx", batch.Failures[0].Filename)
	assert.Contains(t, batch.Failures[0].Hint, "지원 형식")

	combined := batch.Combined
	assert.Equal(t, domain.SourceMulti, combined.Source)
	require.Len(t, combined.Items, 2)
	// Summed per-file grand totals (23000 + 150000) win over recomputing.
	assert.Equal(t, 173000.0, *combined.Totals.GrandTotal)
	assert.Equal(t, 3000.0, *combined.Totals.Shipping)
}

func TestExtractBatch_AllFailed(t *testing.T) {
	svc := NewExtractService(nil, testCfg())

	batch, err := svc.ExtractBatch(context.Background(), []FileInput{
		{Filename: "c.docx", Data: []byte("x")},
	})
	assert.ErrorIs(t, err, domain.ErrNoItemsExtracted)
	assert.Len(t, batch.Failures, 1)
}

func TestExtractBatch_TooManyFiles(t *testing.T) {
	cfg := testCfg()
	cfg.MaxFiles = 1
	svc := NewExtractService(nil, cfg)

	_, err := svc.ExtractBatch(context.Background(), []FileInput{
		{Filename: "a.xlsx", Rows: quoteRows()},
		{Filename: "b.xlsx", Rows: quoteRows()},
	})
	assert.ErrorIs(t, err, domain.ErrPayloadTooLarge)
}

func TestExtractBatch_SingleFilePassesThrough(t *testing.T) {
	svc := NewExtractService(nil, testCfg())

	batch, err := svc.ExtractBatch(context.Background(), []FileInput{
		{Filename: "a.xlsx", Rows: quoteRows()},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.SourceXLSX, batch.Combined.Source)
	assert.Equal(t, domain.ModeHeuristic, batch.Combined.Mode)
}

func TestCombineResults_RawTextSeparators(t *testing.T) {
	combined := combineResults([]FileResult{
		{Filename: "a.pdf", Result: domain.ExtractionResult{RawText: "본문 A", Mode: domain.ModeAI}},
		{Filename: "b.pdf", Result: domain.ExtractionResult{RawText: "본문 B", Mode: domain.ModeHeuristic}},
	})
	assert.Contains(t, combined.RawText, "----- a.pdf -----\n본문 A")
	assert.Contains(t, combined.RawText, "----- b.pdf -----\n본문 B")
	assert.Equal(t, domain.ModeAI, combined.Mode)
}

func TestBuildQuotePayload(t *testing.T) {
	res := domain.ExtractionResult{
		Source:  domain.SourceXLSX,
		Items:   []domain.LineItem{{Name: "키보드", Amount: f(20000)}},
		Totals:  domain.Totals{GrandTotal: f(23000)},
		RawText: "원문",
	}
	meta := domain.QuoteMeta{Subject: "8월 구매건"}

	p := BuildQuotePayload(meta, res)
	assert.Equal(t, "8월 구매건", p.Meta.Subject)
	assert.Equal(t, "KRW", p.Quote.Currency)
	assert.Equal(t, 23000.0, *p.Quote.Total)
	assert.Equal(t, "원문", p.Quote.RawText)
}
