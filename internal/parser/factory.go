package parser

import (
	"fmt"

	"quotedraft/internal/config"
	"quotedraft/internal/port"
)

// ProviderFactory is a function that creates a QuoteParser from a provider config.
type ProviderFactory func(cfg *config.ParserProviderConfig) (port.QuoteParser, error)

// registry of parser provider factories, populated explicitly via RegisterProvider.
var providers = map[string]ProviderFactory{}

// RegisterProvider registers a parser provider factory by name.
func RegisterProvider(name string, factory ProviderFactory) {
	providers[name] = factory
}

// NewParser creates a QuoteParser from a provider config using the registered factory.
func NewParser(cfg *config.ParserProviderConfig) (port.QuoteParser, error) {
	factory, ok := providers[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown parser provider: %s", cfg.Provider)
	}
	return factory(cfg)
}

// BuildChain assembles the configured provider chain in priority order.
// Returns nil (and no error) when no provider is configured, which keeps
// extraction fully heuristic.
func BuildChain(cfg *config.ParserConfig) (port.QuoteParser, error) {
	var parsers []port.QuoteParser
	var names []string
	for _, pc := range []*config.ParserProviderConfig{cfg.PrimaryConfig(), cfg.SecondaryConfig(), cfg.TertiaryConfig()} {
		if pc == nil {
			continue
		}
		p, err := NewParser(pc)
		if err != nil {
			return nil, err
		}
		parsers = append(parsers, p)
		names = append(names, pc.Provider)
	}
	switch len(parsers) {
	case 0:
		return nil, nil
	case 1:
		return parsers[0], nil
	default:
		return NewFallbackParser(parsers, names), nil
	}
}
