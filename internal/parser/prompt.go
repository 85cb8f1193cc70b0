package parser

import (
	"encoding/json"
	"fmt"
	"strings"

	"quotedraft/internal/domain"
	"quotedraft/internal/extract"
	"quotedraft/internal/port"
)

// Payload caps. The model does not need the whole document; bounding the
// request keeps token cost flat and prevents abuse via giant uploads.
const (
	MaxPromptRows    = 220
	MaxPromptCols    = 18
	MaxRawTextChars  = 9000
	MaxInitialItems  = 60
	MaxResponseItems = 80

	maxSourceChars   = 40
	maxFilenameChars = 120
)

// Instructions is the system prompt for quotation extraction.
var Instructions = strings.Join([]string{
	"You extract line items from Korean marketplace quotation/order exports (XLS/XLSX/PDF text).",
	"If page images are provided (scanned PDF / image-only tables), use them as the primary source of truth.",
	"If initialItems are provided, treat them as a hint but correct any missing/wrong qty/unitPrice/amount.",
	"Return ONLY valid JSON with this schema:",
	"{",
	`  "items": [{"name": string, "spec": string, "qty": number|null, "unitPrice": number|null, "amount": number|null, "note": string}],`,
	`  "shipping": number|null,`,
	`  "discount": number|null,`,
	`  "statedTotal": number|null`,
	"}",
	"Rules:",
	"- Do not invent numbers. If missing, use null.",
	"- Prefer amount; else compute amount=qty*unitPrice when both exist.",
	"- Do NOT include shipping/discount/summary lines in items; put them into shipping/discount/statedTotal.",
	fmt.Sprintf("- Keep items <= %d.", MaxResponseItems),
	"- Currency is KRW unless explicitly stated otherwise.",
}, "\n")

// pageImageMeta is what the prompt text says about images; the images
// themselves travel as separate multimodal inputs.
type pageImageMeta struct {
	Count int `json:"count"`
}

type promptPayload struct {
	Source       string            `json:"source"`
	Filename     string            `json:"filename"`
	Rows         [][]string        `json:"rows,omitempty"`
	RawText      string            `json:"rawText,omitempty"`
	PageImages   *pageImageMeta    `json:"pageImages,omitempty"`
	InitialItems []domain.LineItem `json:"initialItems,omitempty"`
}

// BuildPromptPayload bounds the parse input and renders it as the JSON text
// block of the model request.
func BuildPromptPayload(input port.ParseInput) ([]byte, error) {
	p := promptPayload{
		Source:   extract.ClampString(input.Source, maxSourceChars),
		Filename: extract.ClampString(input.Filename, maxFilenameChars),
		RawText:  extract.ClampString(input.RawText, MaxRawTextChars),
	}

	if len(input.Rows) > 0 {
		rows := input.Rows
		if len(rows) > MaxPromptRows {
			rows = rows[:MaxPromptRows]
		}
		bounded := make([][]string, len(rows))
		for i, r := range rows {
			if len(r) > MaxPromptCols {
				r = r[:MaxPromptCols]
			}
			bounded[i] = r
		}
		p.Rows = bounded
	}

	if n := len(input.PageImages); n > 0 {
		p.PageImages = &pageImageMeta{Count: n}
	}

	if len(input.InitialItems) > 0 {
		items := input.InitialItems
		if len(items) > MaxInitialItems {
			items = items[:MaxInitialItems]
		}
		p.InitialItems = items
	}

	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshaling prompt payload: %w", err)
	}
	return data, nil
}
