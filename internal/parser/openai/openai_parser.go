// Package openai implements port.QuoteParser on the OpenAI Responses API
// with strict structured output.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"quotedraft/internal/config"
	"quotedraft/internal/domain"
	"quotedraft/internal/parser"
	"quotedraft/internal/port"
)

const (
	apiURL       = "https://api.openai.com/v1/responses"
	defaultModel = "gpt-5.2"
)

func init() {
	parser.RegisterProvider("openai", func(cfg *config.ParserProviderConfig) (port.QuoteParser, error) {
		return NewParser(cfg), nil
	})
}

// Parser implements port.QuoteParser using the OpenAI Responses API.
type Parser struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// NewParser creates an OpenAI-based quote parser from a provider config.
func NewParser(cfg *config.ParserProviderConfig) *Parser {
	return newParser(cfg, apiURL)
}

// NewParserWithEndpoint creates a parser pointing at a custom API endpoint (for testing).
func NewParserWithEndpoint(cfg *config.ParserProviderConfig, endpoint string) *Parser {
	return newParser(cfg, endpoint)
}

func newParser(cfg *config.ParserProviderConfig, endpoint string) *Parser {
	model := cfg.DefaultModel
	if model == "" {
		model = defaultModel
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &Parser{
		apiKey:   cfg.APIKey,
		model:    model,
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

func (p *Parser) Parse(ctx context.Context, input port.ParseInput) (*port.ParseOutput, error) {
	payload, err := parser.BuildPromptPayload(input)
	if err != nil {
		return nil, err
	}

	content := []map[string]interface{}{
		{"type": "input_text", "text": string(payload)},
	}
	for _, img := range input.PageImages {
		content = append(content, map[string]interface{}{
			"type":      "input_image",
			"image_url": img,
		})
	}

	reqBody := map[string]interface{}{
		"model":        p.model,
		"instructions": parser.Instructions,
		"input": []map[string]interface{}{
			{
				"role":    "user",
				"content": content,
			},
		},
		"text": map[string]interface{}{
			"format": map[string]interface{}{
				"type":        "json_schema",
				"name":        "extract_items",
				"description": "Extract estimate line items and totals as strict JSON.",
				"schema":      parser.ResponseSchema,
				"strict":      true,
			},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling openai API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		baseErr := fmt.Errorf("openai API error (status %d): %s", resp.StatusCode, apiErrorMessage(respBody))
		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter := parser.ParseRetryAfterHeader(resp.Header.Get("Retry-After"))
			return nil, parser.NewRateLimitError("openai", baseErr, retryAfter)
		}
		return nil, baseErr
	}

	return parseResponse(respBody, p.model)
}

// apiResponse models the Responses API envelope. output_text is the
// convenience field; older responses nest the text under output blocks.
type apiResponse struct {
	OutputText string `json:"output_text"`
	Output     []struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
}

func parseResponse(body []byte, model string) (*port.ParseOutput, error) {
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshaling response: %w", err)
	}

	text := resp.OutputText
	if text == "" {
		var parts []string
		for _, o := range resp.Output {
			for _, c := range o.Content {
				if c.Type == "output_text" && c.Text != "" {
					parts = append(parts, c.Text)
				}
			}
		}
		text = strings.Join(parts, "\n")
	}
	if text == "" {
		return nil, fmt.Errorf("empty response from API: no output text")
	}

	if err := parser.ValidateResponse([]byte(text)); err != nil {
		return nil, fmt.Errorf("invalid model output: %w", err)
	}

	var parsed struct {
		Items       []domain.LineItem `json:"items"`
		Shipping    *float64          `json:"shipping"`
		Discount    *float64          `json:"discount"`
		StatedTotal *float64          `json:"statedTotal"`
	}
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, fmt.Errorf("parsing model JSON output: %w", err)
	}

	items := parsed.Items
	if len(items) > parser.MaxResponseItems {
		items = items[:parser.MaxResponseItems]
	}

	return &port.ParseOutput{
		Items:       items,
		Shipping:    parsed.Shipping,
		Discount:    parsed.Discount,
		StatedTotal: parsed.StatedTotal,
		ModelUsed:   model,
	}, nil
}

// apiErrorMessage pulls the provider's error message out of an error body,
// falling back to a bounded slice of the raw payload. API keys never appear
// in either shape.
func apiErrorMessage(body []byte) string {
	var e struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err == nil && e.Error.Message != "" {
		return e.Error.Message
	}
	s := string(body)
	if len(s) > 500 {
		s = s[:500] + "..."
	}
	return s
}
