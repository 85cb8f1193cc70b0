// Package service orchestrates the extraction pipeline: format dispatch,
// heuristic extraction, the AI refinement gate, and multi-file aggregation.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"quotedraft/internal/config"
	"quotedraft/internal/domain"
	"quotedraft/internal/extract"
	"quotedraft/internal/pageimage"
	"quotedraft/internal/pdftext"
	"quotedraft/internal/port"
	"quotedraft/internal/tabular"
)

// FileInput is one file (or pre-parsed document) submitted for extraction.
// Data carries raw upload bytes; the JSON API instead supplies Rows, RawText
// and PageImages directly. Constrained requests use the smaller scanned-PDF
// chunk size.
type FileInput struct {
	Filename    string
	Source      domain.Source
	Data        []byte
	Rows        domain.RawTable
	RawText     string
	PageImages  []string
	Constrained bool
}

// FileResult pairs a successful extraction with its originating filename.
type FileResult struct {
	Filename string                  `json:"filename"`
	Result   domain.ExtractionResult `json:"result"`
}

// FileFailure describes one failed file with a remediation hint.
type FileFailure struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
	Hint     string `json:"hint"`
}

// BatchResult is the outcome of a multi-file request: per-file results,
// per-file failures, and the aggregate over the successes.
type BatchResult struct {
	Files    []FileResult            `json:"files"`
	Failures []FileFailure           `json:"failures"`
	Combined domain.ExtractionResult `json:"combined"`
}

// ExtractService runs the extraction pipeline. The parser may be nil, in
// which case every path stays fully heuristic.
type ExtractService struct {
	parser port.QuoteParser
	cfg    config.ExtractConfig
}

// NewExtractService creates the extraction orchestrator.
func NewExtractService(parser port.QuoteParser, cfg config.ExtractConfig) *ExtractService {
	return &ExtractService{parser: parser, cfg: cfg}
}

// ExtractFile runs the full pipeline for a single file.
func (s *ExtractService) ExtractFile(ctx context.Context, in FileInput) (domain.ExtractionResult, error) {
	if max := s.cfg.MaxFileSizeMB * 1024 * 1024; max > 0 && int64(len(in.Data)) > max {
		return domain.ExtractionResult{}, fmt.Errorf("%w: file is %d bytes", domain.ErrPayloadTooLarge, len(in.Data))
	}

	switch s.classify(in) {
	case domain.FileTypeXLS, domain.FileTypeXLSX:
		return s.extractTabular(ctx, in)
	case domain.FileTypePDF:
		return s.extractPDF(ctx, in)
	default:
		return domain.ExtractionResult{}, fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, in.Filename)
	}
}

// classify resolves the processing path: uploaded bytes go by extension,
// pre-parsed requests go by declared source, and as a last resort the
// presence of rows decides.
func (s *ExtractService) classify(in FileInput) domain.FileType {
	if len(in.Data) > 0 || in.Filename != "" {
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(in.Filename), "."))
		if ft, ok := domain.AllowedExtensions[ext]; ok {
			return ft
		}
		if len(in.Data) > 0 {
			return ""
		}
	}
	switch in.Source {
	case domain.SourceXLSX:
		return domain.FileTypeXLSX
	case domain.SourcePDF:
		return domain.FileTypePDF
	}
	if len(in.Rows) > 0 {
		return domain.FileTypeXLSX
	}
	if in.RawText != "" || len(in.PageImages) > 0 {
		return domain.FileTypePDF
	}
	return ""
}

func (s *ExtractService) extractTabular(ctx context.Context, in FileInput) (domain.ExtractionResult, error) {
	rows := in.Rows
	var hints domain.TotalsHints
	if len(in.Data) > 0 {
		var err error
		rows, hints, err = tabular.ReadTable(in.Data)
		if err != nil {
			return domain.ExtractionResult{}, err
		}
	}

	var items []domain.LineItem
	cand := extract.Candidates{Hints: hints}
	tr, tableErr := extract.FromTable(rows, extract.WideHeaderScanRows)
	if tableErr == nil {
		items = tr.Items
		cand.SummaryShipping = tr.SummaryShipping
		cand.SummaryDiscount = tr.SummaryDiscount
	}
	totals, stated := extract.ResolveTotals(items, cand)

	res := domain.ExtractionResult{
		Source:      domain.SourceXLSX,
		Mode:        domain.ModeHeuristic,
		Items:       items,
		Totals:      totals,
		StatedTotal: stated,
		RawText:     in.RawText,
	}

	if s.parser != nil && extract.ShouldRefine(items, totals.GrandTotal) {
		refined, ok := s.refine(ctx, in, rows, hints, items)
		if ok {
			refined.RawText = in.RawText
			res = refined
		}
	}

	if len(res.Items) == 0 {
		if tableErr != nil {
			return domain.ExtractionResult{}, tableErr
		}
		return domain.ExtractionResult{}, fmt.Errorf("%w: %s", domain.ErrNoItemsExtracted, in.Filename)
	}
	return res, nil
}

func (s *ExtractService) extractPDF(ctx context.Context, in FileInput) (domain.ExtractionResult, error) {
	text := in.RawText
	if len(in.Data) > 0 {
		extracted, err := pdftext.Extract(in.Data)
		if err != nil {
			if len(in.PageImages) == 0 {
				return domain.ExtractionResult{}, err
			}
			log.Printf("service.Extract: pdf text extraction failed, treating as scanned: %v", err)
		} else {
			text = extracted
		}
	}

	if pdftext.IsScanned(text) {
		return s.extractScanned(ctx, in)
	}

	// Text-layer PDFs have no grid to run heuristics on; the AI parser is
	// the only item source.
	if s.parser == nil {
		return domain.ExtractionResult{}, fmt.Errorf("%w: %s", domain.ErrNoItemsExtracted, in.Filename)
	}
	out, err := s.parser.Parse(ctx, port.ParseInput{
		Source:   string(domain.SourcePDF),
		Filename: in.Filename,
		RawText:  text,
	})
	if err != nil {
		return domain.ExtractionResult{}, fmt.Errorf("%w: %v", domain.ErrAIService, err)
	}

	res := s.reconcile(out.Items, extract.Candidates{
		AIShipping:    out.Shipping,
		AIDiscount:    out.Discount,
		AIStatedTotal: out.StatedTotal,
	})
	res.Mode = domain.ModeAI
	res.RawText = text
	if len(res.Items) == 0 {
		return domain.ExtractionResult{}, fmt.Errorf("%w: %s", domain.ErrNoItemsExtracted, in.Filename)
	}
	return res, nil
}

// extractScanned runs chunked AI extraction over rendered page images.
// Aggregates stated by several chunks combine via max, which avoids double
// counting totals repeated on every page.
func (s *ExtractService) extractScanned(ctx context.Context, in FileInput) (domain.ExtractionResult, error) {
	if s.parser == nil || len(in.PageImages) == 0 {
		return domain.ExtractionResult{}, fmt.Errorf("%w: scanned pdf requires page images and an AI provider", domain.ErrNoItemsExtracted)
	}

	chunk := s.cfg.ChunkPages
	if in.Constrained && s.cfg.ChunkPagesConstrained > 0 {
		chunk = s.cfg.ChunkPagesConstrained
	}
	if chunk <= 0 {
		chunk = 4
	}

	var allItems []domain.LineItem
	var shipping, discount, stated *float64
	maxOf := func(cur, cand *float64) *float64 {
		if !extract.IsPositive(cand) {
			return cur
		}
		if cur == nil || *cand > *cur {
			return cand
		}
		return cur
	}

	for start := 0; start < len(in.PageImages); start += chunk {
		end := start + chunk
		if end > len(in.PageImages) {
			end = len(in.PageImages)
		}
		imgs := pageimage.Normalize(in.PageImages[start:end])
		if len(imgs) == 0 {
			continue
		}

		out, err := s.parser.Parse(ctx, port.ParseInput{
			Source:     string(domain.SourcePDF),
			Filename:   in.Filename,
			PageImages: imgs,
		})
		if err != nil {
			return domain.ExtractionResult{}, fmt.Errorf("%w: %v", domain.ErrAIService, err)
		}

		allItems = append(allItems, out.Items...)
		shipping = maxOf(shipping, out.Shipping)
		discount = maxOf(discount, out.Discount)
		stated = maxOf(stated, out.StatedTotal)
	}

	res := s.reconcile(allItems, extract.Candidates{
		AIShipping:    shipping,
		AIDiscount:    discount,
		AIStatedTotal: stated,
	})
	res.Mode = domain.ModeAI
	if len(res.Items) == 0 {
		return domain.ExtractionResult{}, fmt.Errorf("%w: %s", domain.ErrNoItemsExtracted, in.Filename)
	}
	return res, nil
}

// refine asks the AI parser to correct a weak heuristic extraction. Any
// parser failure falls back silently to the heuristic result.
func (s *ExtractService) refine(ctx context.Context, in FileInput, rows domain.RawTable, hints domain.TotalsHints, initial []domain.LineItem) (domain.ExtractionResult, bool) {
	out, err := s.parser.Parse(ctx, port.ParseInput{
		Source:       string(domain.SourceXLSX),
		Filename:     in.Filename,
		Rows:         rows,
		RawText:      in.RawText,
		InitialItems: initial,
	})
	if err != nil {
		log.Printf("service.Extract: ai refinement failed, keeping heuristic result: %v", err)
		return domain.ExtractionResult{}, false
	}

	res := s.reconcile(out.Items, extract.Candidates{
		AIShipping:    out.Shipping,
		AIDiscount:    out.Discount,
		AIStatedTotal: out.StatedTotal,
		Hints:         hints,
	})
	if len(res.Items) == 0 {
		return domain.ExtractionResult{}, false
	}
	if len(initial) > 0 {
		res.Mode = domain.ModeAIRefine
	} else {
		res.Mode = domain.ModeAI
	}
	return res, true
}

// reconcile pushes AI-provided items back through the same normalization,
// summary-row classification and totals resolution as heuristic items, so
// both paths honor the same invariants.
func (s *ExtractService) reconcile(raw []domain.LineItem, cand extract.Candidates) domain.ExtractionResult {
	items, sumShip, sumDisc := extract.SplitSummaryRows(extract.NormalizeItems(raw))
	cand.SummaryShipping = sumShip
	cand.SummaryDiscount = sumDisc
	totals, stated := extract.ResolveTotals(items, cand)
	return domain.ExtractionResult{
		Source:      domain.SourceAI,
		Items:       items,
		Totals:      totals,
		StatedTotal: stated,
	}
}

// ExtractBatch processes files sequentially, collecting per-file failures
// instead of aborting, then aggregates the successes.
func (s *ExtractService) ExtractBatch(ctx context.Context, files []FileInput) (BatchResult, error) {
	if max := s.cfg.MaxFiles; max > 0 && len(files) > max {
		return BatchResult{}, fmt.Errorf("%w: %d files (max %d)", domain.ErrPayloadTooLarge, len(files), max)
	}

	var batch BatchResult
	for _, f := range files {
		res, err := s.ExtractFile(ctx, f)
		if err != nil {
			log.Printf("service.Extract: %s failed: %v", f.Filename, err)
			batch.Failures = append(batch.Failures, FileFailure{
				Filename: f.Filename,
				Error:    err.Error(),
				Hint:     remediationHint(f.Filename, err),
			})
			continue
		}
		batch.Files = append(batch.Files, FileResult{Filename: f.Filename, Result: res})
	}

	if len(batch.Files) == 0 {
		if len(batch.Failures) > 0 {
			return batch, fmt.Errorf("%w: all %d files failed", domain.ErrNoItemsExtracted, len(batch.Failures))
		}
		return batch, fmt.Errorf("%w: no files submitted", domain.ErrNoItemsExtracted)
	}

	batch.Combined = combineResults(batch.Files)
	return batch, nil
}

// combineResults aggregates per-file extractions: items concatenate in
// submission order, component totals sum under the positive-or-nil rule, and
// the grand total prefers the sum of per-file grand totals (which already
// include shipping and discounts) over recomputing from merged items.
func combineResults(files []FileResult) domain.ExtractionResult {
	if len(files) == 1 {
		return files[0].Result
	}

	var items []domain.LineItem
	var shipping, discount, subtotal, grand float64
	var rawParts []string
	mode := domain.ModeHeuristic

	for _, f := range files {
		r := f.Result
		items = append(items, r.Items...)
		if r.Totals.Shipping != nil {
			shipping += *r.Totals.Shipping
		}
		if r.Totals.Discount != nil {
			discount += *r.Totals.Discount
		}
		if r.Totals.ItemsSubtotal != nil {
			subtotal += *r.Totals.ItemsSubtotal
		}
		if r.Totals.GrandTotal != nil {
			grand += *r.Totals.GrandTotal
		}
		if r.RawText != "" {
			rawParts = append(rawParts, fmt.Sprintf("----- %s -----\n%s", f.Filename, r.RawText))
		}
		if r.Mode != domain.ModeHeuristic {
			mode = r.Mode
		}
	}

	computed := extract.ItemsSubtotal(items)
	grandTotal := extract.PositiveOrNil(grand)
	if grandTotal == nil {
		grandTotal = computed
	}
	subtotalOut := extract.PositiveOrNil(subtotal)
	if subtotalOut == nil {
		subtotalOut = computed
	}

	return domain.ExtractionResult{
		Source: domain.SourceMulti,
		Mode:   mode,
		Items:  items,
		Totals: domain.Totals{
			ItemsSubtotal: subtotalOut,
			Shipping:      extract.PositiveOrNil(shipping),
			Discount:      extract.PositiveOrNil(discount),
			GrandTotal:    grandTotal,
		},
		RawText: strings.Join(rawParts, "\n\n"),
	}
}

// BuildQuotePayload shapes an extraction into the exact structure the
// outline drafting collaborator consumes.
func BuildQuotePayload(meta domain.QuoteMeta, res domain.ExtractionResult) domain.QuotePayload {
	return domain.QuotePayload{
		Meta: meta,
		Quote: domain.QuoteBody{
			Source:   res.Source,
			Currency: "KRW",
			Items:    res.Items,
			Total:    res.Totals.GrandTotal,
			RawText:  res.RawText,
		},
	}
}

// remediationHint gives the user a format-specific next step for a failed
// file.
func remediationHint(filename string, err error) string {
	name := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(name, ".pdf"):
		if errors.Is(err, domain.ErrNoItemsExtracted) {
			return "해결: 스캔본이면 해상도(권장 300dpi)를 높이거나, 표가 포함된 페이지가 있는지 확인해 주세요."
		}
		return "해결: 스캔본/이미지 PDF일 수 있어요. 글자가 선명한 PDF로 다시 저장하면 정확도가 올라갑니다."
	case strings.HasSuffix(name, ".xls"), strings.HasSuffix(name, ".xlsx"):
		if errors.Is(err, domain.ErrHeaderNotFound) {
			return "해결: 표의 헤더(내용/수량/단가/금액)가 포함되도록 하거나, 제공된 업로드 양식을 사용해 주세요."
		}
		return "해결: 첫 시트에 품목 표가 있는지 확인해 주세요. 가능하면 제공된 업로드 양식을 사용해 주세요."
	default:
		return "해결: 지원 형식(.xls, .xlsx, .pdf)인지 확인해 주세요."
	}
}
