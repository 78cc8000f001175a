package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/ziadkadry99/qnagen/internal/llm"
	"github.com/ziadkadry99/qnagen/internal/telemetry"
)

// DefaultPath is the config file looked up in the working directory.
const DefaultPath = ".qnagen.yml"

const envPrefix = "QNAGEN_"

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (QNAGEN_*).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	// Overlay environment variables: QNAGEN_PROVIDER -> provider,
	// QNAGEN_SEARCH__ENABLED -> search.enabled.
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// validProviders is the set of recognized provider values.
var validProviders = map[ProviderType]bool{
	ProviderGoogle: true,
	ProviderOpenAI: true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.Provider == "" {
		return fmt.Errorf("provider is required")
	}
	if !validProviders[c.Provider] {
		return fmt.Errorf("invalid provider %q: must be one of google, openai", c.Provider)
	}

	if c.Models.Lite == "" || c.Models.Premium == "" {
		return fmt.Errorf("models.lite and models.premium are required")
	}

	if c.FallbackDelayMS < 0 {
		return fmt.Errorf("fallback_delay_ms must be non-negative")
	}
	if c.CallTimeoutSeconds < 0 {
		return fmt.Errorf("call_timeout_seconds must be non-negative")
	}
	if c.RequestsPerMinute < 0 {
		return fmt.Errorf("requests_per_minute must be non-negative")
	}

	if strings.TrimSpace(c.Currency) == "" {
		return fmt.Errorf("currency is required")
	}
	for name, r := range map[string]telemetry.Rate{"lite": c.Pricing.Lite, "premium": c.Pricing.Premium} {
		if r.PromptPerMillion < 0 || r.CompletionPerMillion < 0 {
			return fmt.Errorf("pricing.%s must be non-negative", name)
		}
	}

	if c.Search.MaxResults < 0 || c.Search.MaxResults > 100 {
		return fmt.Errorf("search.max_results must be between 0 and 100")
	}
	if c.Search.CostPerCall < 0 {
		return fmt.Errorf("search.cost_per_call must be non-negative")
	}
	if c.Conversion.KRWPerUSD < 0 {
		return fmt.Errorf("conversion.krw_per_usd must be non-negative")
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be a valid port")
	}

	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}

	if c.UsageQueueSize < 0 {
		return fmt.Errorf("usage_queue_size must be non-negative")
	}

	return nil
}

// ModelMap returns the tier to model mapping used by the gateway.
func (c *Config) ModelMap() map[llm.Tier]string {
	return map[llm.Tier]string{
		llm.TierLite:    c.Models.Lite,
		llm.TierPremium: c.Models.Premium,
	}
}

// PricingTable returns the cost pricing built from the configured rates.
func (c *Config) PricingTable() telemetry.Pricing {
	return telemetry.Pricing{
		Currency: strings.ToUpper(c.Currency),
		Rates: telemetry.RateTable{
			llm.TierLite:    c.Pricing.Lite,
			llm.TierPremium: c.Pricing.Premium,
		},
		SearchPerCall: c.Search.CostPerCall,
	}
}

// FallbackDelay returns the base wait between tier fallbacks.
func (c *Config) FallbackDelay() time.Duration {
	return time.Duration(c.FallbackDelayMS) * time.Millisecond
}

// CallTimeout returns the per-call provider deadline; zero disables it.
func (c *Config) CallTimeout() time.Duration {
	return time.Duration(c.CallTimeoutSeconds) * time.Second
}

// SearchInterval returns the spacing between search calls.
func (c *Config) SearchInterval() time.Duration {
	return time.Duration(c.Search.IntervalMS) * time.Millisecond
}

// UsageDBPath returns the SQLite file holding the usage log.
func (c *Config) UsageDBPath() string {
	return filepath.Join(c.DataDir, "usage.db")
}

// APIKeyEnvVar returns the conventional environment variable name for
// the API key of the given provider.
func APIKeyEnvVar(provider ProviderType) string {
	switch provider {
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderGoogle:
		return "GOOGLE_API_KEY"
	default:
		return ""
	}
}
