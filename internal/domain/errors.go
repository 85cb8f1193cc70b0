package domain

import "errors"

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrHeaderNotFound    = errors.New("item table header not found")
	ErrNoItemsExtracted  = errors.New("no items extracted")
	ErrAIService         = errors.New("ai extraction service failed")
	ErrPayloadTooLarge   = errors.New("payload exceeds size guardrail")
)
