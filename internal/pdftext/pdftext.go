// Package pdftext extracts the text layer of quotation PDFs and classifies
// documents with no usable layer as scanned.
package pdftext

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
)

// scannedTextFloor is the whitespace-collapsed length under which a PDF is
// treated as scanned. Real text-layer quotes carry far more than this even
// when short; image-only exports yield nothing or OCR crumbs.
const scannedTextFloor = 80

// Extract pulls the plain text of every page, pages joined with a newline.
// A page whose text cannot be decoded contributes an empty string rather
// than failing the document.
func Extract(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("pdftext: open document: %w", err)
	}

	var pages []string
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		pages = append(pages, text)
	}
	return strings.Join(pages, "\n"), nil
}

// CollapsedLen counts the non-whitespace runes of s.
func CollapsedLen(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}

// IsScanned reports whether extracted text is too thin to represent a real
// text layer.
func IsScanned(text string) bool {
	return CollapsedLen(text) < scannedTextFloor
}
