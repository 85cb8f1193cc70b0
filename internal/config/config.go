package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig
	Log     LogConfig
	CORS    CORSConfig
	Parser  ParserConfig
	Extract ExtractConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// ParserProviderConfig holds settings for a single AI parser provider.
type ParserProviderConfig struct {
	Provider     string `mapstructure:"provider"`
	APIKey       string `mapstructure:"api_key"`
	DefaultModel string `mapstructure:"default_model"`
	MaxRetries   int    `mapstructure:"max_retries"`
	TimeoutSecs  int    `mapstructure:"timeout_secs"`
}

// ParserConfig holds AI extraction parser settings with multi-provider
// fallback support. Extraction stays fully heuristic when no provider is
// configured.
type ParserConfig struct {
	Primary   ParserProviderConfig `mapstructure:"primary"`
	Secondary ParserProviderConfig `mapstructure:"secondary"`
	Tertiary  ParserProviderConfig `mapstructure:"tertiary"`
}

// PrimaryConfig returns the primary parser provider config, or nil if not configured.
func (p *ParserConfig) PrimaryConfig() *ParserProviderConfig {
	if p.Primary.Provider != "" {
		return &p.Primary
	}
	return nil
}

// SecondaryConfig returns the secondary parser provider config, or nil if not configured.
func (p *ParserConfig) SecondaryConfig() *ParserProviderConfig {
	if p.Secondary.Provider != "" {
		return &p.Secondary
	}
	return nil
}

// TertiaryConfig returns the tertiary parser provider config, or nil if not configured.
func (p *ParserConfig) TertiaryConfig() *ParserProviderConfig {
	if p.Tertiary.Provider != "" {
		return &p.Tertiary
	}
	return nil
}

// ExtractConfig holds extraction pipeline settings.
type ExtractConfig struct {
	MaxFileSizeMB         int64 `mapstructure:"max_file_size_mb"`
	MaxFiles              int   `mapstructure:"max_files"`
	ChunkPages            int   `mapstructure:"chunk_pages"`
	ChunkPagesConstrained int   `mapstructure:"chunk_pages_constrained"`
}

// Load reads configuration from an optional config.yaml and environment
// variables with the QUOTEDRAFT_ prefix. Environment variables win.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("QUOTEDRAFT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "180s")
	v.SetDefault("server.environment", "development")

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	// CORS defaults (localhost origins for development)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000,http://localhost:5173,http://127.0.0.1:5173")

	// Parser provider defaults
	v.SetDefault("parser.primary.provider", "")
	v.SetDefault("parser.primary.api_key", "")
	v.SetDefault("parser.primary.default_model", "")
	v.SetDefault("parser.primary.max_retries", 2)
	v.SetDefault("parser.primary.timeout_secs", 120)
	v.SetDefault("parser.secondary.provider", "")
	v.SetDefault("parser.secondary.api_key", "")
	v.SetDefault("parser.secondary.default_model", "")
	v.SetDefault("parser.secondary.max_retries", 2)
	v.SetDefault("parser.secondary.timeout_secs", 120)
	v.SetDefault("parser.tertiary.provider", "")
	v.SetDefault("parser.tertiary.api_key", "")
	v.SetDefault("parser.tertiary.default_model", "")
	v.SetDefault("parser.tertiary.max_retries", 2)
	v.SetDefault("parser.tertiary.timeout_secs", 120)

	// Extract defaults
	v.SetDefault("extract.max_file_size_mb", 25)
	v.SetDefault("extract.max_files", 10)
	v.SetDefault("extract.chunk_pages", 4)
	v.SetDefault("extract.chunk_pages_constrained", 2)

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":                    "QUOTEDRAFT_SERVER_PORT",
		"server.read_timeout":            "QUOTEDRAFT_SERVER_READ_TIMEOUT",
		"server.write_timeout":           "QUOTEDRAFT_SERVER_WRITE_TIMEOUT",
		"server.environment":             "QUOTEDRAFT_SERVER_ENVIRONMENT",
		"log.level":                      "QUOTEDRAFT_LOG_LEVEL",
		"log.format":                     "QUOTEDRAFT_LOG_FORMAT",
		"cors.allowed_origins":           "QUOTEDRAFT_CORS_ALLOWED_ORIGINS",
		"parser.primary.provider":        "QUOTEDRAFT_PARSER_PRIMARY_PROVIDER",
		"parser.primary.api_key":         "QUOTEDRAFT_PARSER_PRIMARY_API_KEY",
		"parser.primary.default_model":   "QUOTEDRAFT_PARSER_PRIMARY_DEFAULT_MODEL",
		"parser.primary.max_retries":     "QUOTEDRAFT_PARSER_PRIMARY_MAX_RETRIES",
		"parser.primary.timeout_secs":    "QUOTEDRAFT_PARSER_PRIMARY_TIMEOUT_SECS",
		"parser.secondary.provider":      "QUOTEDRAFT_PARSER_SECONDARY_PROVIDER",
		"parser.secondary.api_key":       "QUOTEDRAFT_PARSER_SECONDARY_API_KEY",
		"parser.secondary.default_model": "QUOTEDRAFT_PARSER_SECONDARY_DEFAULT_MODEL",
		"parser.secondary.max_retries":   "QUOTEDRAFT_PARSER_SECONDARY_MAX_RETRIES",
		"parser.secondary.timeout_secs":  "QUOTEDRAFT_PARSER_SECONDARY_TIMEOUT_SECS",
		"parser.tertiary.provider":       "QUOTEDRAFT_PARSER_TERTIARY_PROVIDER",
		"parser.tertiary.api_key":        "QUOTEDRAFT_PARSER_TERTIARY_API_KEY",
		"parser.tertiary.default_model":  "QUOTEDRAFT_PARSER_TERTIARY_DEFAULT_MODEL",
		"parser.tertiary.max_retries":    "QUOTEDRAFT_PARSER_TERTIARY_MAX_RETRIES",
		"parser.tertiary.timeout_secs":   "QUOTEDRAFT_PARSER_TERTIARY_TIMEOUT_SECS",
		"extract.max_file_size_mb":       "QUOTEDRAFT_EXTRACT_MAX_FILE_SIZE_MB",
		"extract.max_files":              "QUOTEDRAFT_EXTRACT_MAX_FILES",
		"extract.chunk_pages":            "QUOTEDRAFT_EXTRACT_CHUNK_PAGES",
		"extract.chunk_pages_constrained": "QUOTEDRAFT_EXTRACT_CHUNK_PAGES_CONSTRAINED",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if QUOTEDRAFT_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("QUOTEDRAFT_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}

	// Parse CORS allowed origins from comma-separated string
	var corsOrigins []string
	for _, o := range strings.Split(v.GetString("cors.allowed_origins"), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			corsOrigins = append(corsOrigins, o)
		}
	}
	cfg.CORS = CORSConfig{
		AllowedOrigins: corsOrigins,
	}

	cfg.Parser = ParserConfig{
		Primary: ParserProviderConfig{
			Provider:     v.GetString("parser.primary.provider"),
			APIKey:       v.GetString("parser.primary.api_key"),
			DefaultModel: v.GetString("parser.primary.default_model"),
			MaxRetries:   v.GetInt("parser.primary.max_retries"),
			TimeoutSecs:  v.GetInt("parser.primary.timeout_secs"),
		},
		Secondary: ParserProviderConfig{
			Provider:     v.GetString("parser.secondary.provider"),
			APIKey:       v.GetString("parser.secondary.api_key"),
			DefaultModel: v.GetString("parser.secondary.default_model"),
			MaxRetries:   v.GetInt("parser.secondary.max_retries"),
			TimeoutSecs:  v.GetInt("parser.secondary.timeout_secs"),
		},
		Tertiary: ParserProviderConfig{
			Provider:     v.GetString("parser.tertiary.provider"),
			APIKey:       v.GetString("parser.tertiary.api_key"),
			DefaultModel: v.GetString("parser.tertiary.default_model"),
			MaxRetries:   v.GetInt("parser.tertiary.max_retries"),
			TimeoutSecs:  v.GetInt("parser.tertiary.timeout_secs"),
		},
	}

	cfg.Extract = ExtractConfig{
		MaxFileSizeMB:         v.GetInt64("extract.max_file_size_mb"),
		MaxFiles:              v.GetInt("extract.max_files"),
		ChunkPages:            v.GetInt("extract.chunk_pages"),
		ChunkPagesConstrained: v.GetInt("extract.chunk_pages_constrained"),
	}

	return cfg, nil
}
