package config

import "github.com/ziadkadry99/qnagen/internal/telemetry"

// ProviderType identifies an LLM provider.
type ProviderType string

const (
	ProviderGoogle ProviderType = "google"
	ProviderOpenAI ProviderType = "openai"
)

// Config is the top-level qnagen configuration, corresponding to .qnagen.yml.
type Config struct {
	Provider           ProviderType     `yaml:"provider" koanf:"provider"`
	Models             ModelsConfig     `yaml:"models" koanf:"models"`
	FallbackDelayMS    int              `yaml:"fallback_delay_ms" koanf:"fallback_delay_ms"`
	CallTimeoutSeconds int              `yaml:"call_timeout_seconds" koanf:"call_timeout_seconds"`
	RequestsPerMinute  int              `yaml:"requests_per_minute" koanf:"requests_per_minute"`
	MaxTokens          int              `yaml:"max_tokens" koanf:"max_tokens"`
	Temperature        float64          `yaml:"temperature" koanf:"temperature"`
	Currency           string           `yaml:"currency" koanf:"currency"`
	Pricing            PricingConfig    `yaml:"pricing" koanf:"pricing"`
	Search             SearchConfig     `yaml:"search" koanf:"search"`
	Conversion         ConversionConfig `yaml:"conversion" koanf:"conversion"`
	Server             ServerConfig     `yaml:"server" koanf:"server"`
	DataDir            string           `yaml:"data_dir" koanf:"data_dir"`
	UsageQueueSize     int              `yaml:"usage_queue_size" koanf:"usage_queue_size"`
	Log                LogConfig        `yaml:"log" koanf:"log"`
}

// ModelsConfig maps each tier to a provider model.
type ModelsConfig struct {
	Lite    string `yaml:"lite" koanf:"lite"`
	Premium string `yaml:"premium" koanf:"premium"`
}

// PricingConfig holds per-tier token prices in the configured currency.
type PricingConfig struct {
	Lite    telemetry.Rate `yaml:"lite" koanf:"lite"`
	Premium telemetry.Rate `yaml:"premium" koanf:"premium"`
}

// SearchConfig controls search augmentation.
type SearchConfig struct {
	Enabled     bool    `yaml:"enabled" koanf:"enabled"`
	MaxResults  int     `yaml:"max_results" koanf:"max_results"`
	IntervalMS  int     `yaml:"interval_ms" koanf:"interval_ms"`
	CostPerCall float64 `yaml:"cost_per_call" koanf:"cost_per_call"`
}

// ConversionConfig holds explicit currency conversion rates.
type ConversionConfig struct {
	KRWPerUSD float64 `yaml:"krw_per_usd" koanf:"krw_per_usd"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         int  `yaml:"port" koanf:"port"`
	AllowAllCORS bool `yaml:"allow_all_cors" koanf:"allow_all_cors"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `yaml:"level" koanf:"level"`
	Format string `yaml:"format" koanf:"format"`
}
