package handler

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"quotedraft/internal/csvexport"
	"quotedraft/internal/domain"
	"quotedraft/internal/service"
)

// ExtractHandler handles extraction endpoints.
type ExtractHandler struct {
	extractService *service.ExtractService
}

// NewExtractHandler creates a new ExtractHandler.
func NewExtractHandler(extractService *service.ExtractService) *ExtractHandler {
	return &ExtractHandler{extractService: extractService}
}

// extractRequest is the JSON request body: either a list of pre-parsed
// documents or a single document in the flat legacy shape.
type extractRequest struct {
	Files []extractFileRequest `json:"files"`
	Meta  domain.QuoteMeta     `json:"meta"`

	extractFileRequest // single-document shape
}

type extractFileRequest struct {
	Source      domain.Source   `json:"source"`
	Filename    string          `json:"filename"`
	Rows        domain.RawTable `json:"rows"`
	RawText     string          `json:"rawText"`
	PageImages  []string        `json:"pageImages"`
	Constrained bool            `json:"constrained"`
}

func (r extractFileRequest) toInput() service.FileInput {
	return service.FileInput{
		Filename:    r.Filename,
		Source:      r.Source,
		Rows:        r.Rows,
		RawText:     r.RawText,
		PageImages:  r.PageImages,
		Constrained: r.Constrained,
	}
}

// extractResponse wraps the batch outcome together with the drafting
// payload built from the aggregate.
type extractResponse struct {
	service.BatchResult
	Payload domain.QuotePayload `json:"payload"`
}

// Extract handles POST /api/v1/extract. Accepts multipart uploads
// (files field, repeated) or a JSON body with pre-parsed rows, raw text and
// page images.
func (h *ExtractHandler) Extract(c *gin.Context) {
	batch, meta, err := h.runExtraction(c)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, extractResponse{
		BatchResult: batch,
		Payload:     service.BuildQuotePayload(meta, batch.Combined),
	})
}

// ExtractCSV handles POST /api/v1/extract/csv. Same inputs as Extract; the
// aggregate result is rendered as an Excel-friendly CSV attachment.
func (h *ExtractHandler) ExtractCSV(c *gin.Context) {
	batch, _, err := h.runExtraction(c)
	if err != nil {
		HandleError(c, err)
		return
	}

	filename := fmt.Sprintf("quote-items-%s.csv", time.Now().Format("20060102-150405"))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Status(http.StatusOK)

	if _, err := c.Writer.Write(csvexport.BOM); err != nil {
		return
	}
	w := csvexport.NewWriter(c.Writer)
	if err := w.WriteHeader(); err != nil {
		return
	}
	if err := w.WriteResult(batch.Combined); err != nil {
		return
	}
	w.Flush()
}

func (h *ExtractHandler) runExtraction(c *gin.Context) (service.BatchResult, domain.QuoteMeta, error) {
	var meta domain.QuoteMeta

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		inputs, err := readMultipartFiles(c)
		if err != nil {
			return service.BatchResult{}, meta, err
		}
		meta = domain.QuoteMeta{
			Subject: c.PostForm("subject"),
			DocDate: c.PostForm("docDate"),
			Purpose: c.PostForm("purpose"),
			Notes:   c.PostForm("notes"),
		}
		batch, err := h.extractService.ExtractBatch(c.Request.Context(), inputs)
		return batch, meta, err
	}

	var req extractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return service.BatchResult{}, meta, fmt.Errorf("%w: %v", domain.ErrUnsupportedFormat, err)
	}
	meta = req.Meta

	inputs := make([]service.FileInput, 0, len(req.Files))
	for _, f := range req.Files {
		inputs = append(inputs, f.toInput())
	}
	if len(inputs) == 0 {
		inputs = append(inputs, req.extractFileRequest.toInput())
	}

	batch, err := h.extractService.ExtractBatch(c.Request.Context(), inputs)
	return batch, meta, err
}

func readMultipartFiles(c *gin.Context) ([]service.FileInput, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnsupportedFormat, err)
	}

	headers := form.File["files"]
	if len(headers) == 0 {
		headers = form.File["file"]
	}
	if len(headers) == 0 {
		return nil, fmt.Errorf("%w: no files in request", domain.ErrNoItemsExtracted)
	}

	constrained := c.PostForm("constrained") == "true"
	inputs := make([]service.FileInput, 0, len(headers))
	for _, hdr := range headers {
		data, err := readUpload(hdr)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, service.FileInput{
			Filename:    hdr.Filename,
			Data:        data,
			Constrained: constrained,
		})
	}
	return inputs, nil
}

func readUpload(hdr *multipart.FileHeader) ([]byte, error) {
	f, err := hdr.Open()
	if err != nil {
		return nil, fmt.Errorf("opening upload %s: %w", hdr.Filename, err)
	}
	defer func() { _ = f.Close() }()
	return io.ReadAll(f)
}
