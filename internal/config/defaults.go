package config

import (
	"github.com/ziadkadry99/qnagen/internal/llm"
	"github.com/ziadkadry99/qnagen/internal/telemetry"
)

// modelPresets maps each provider to its lite/premium model choices.
var modelPresets = map[ProviderType]ModelsConfig{
	ProviderGoogle: {Lite: "gemini-2.5-flash", Premium: "gemini-2.5-pro"},
	ProviderOpenAI: {Lite: "gpt-4o-mini", Premium: "gpt-4o"},
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Provider:           ProviderGoogle,
		Models:             modelPresets[ProviderGoogle],
		FallbackDelayMS:    1000,
		CallTimeoutSeconds: 120,
		MaxTokens:          4096,
		Temperature:        0.8,
		Currency:           "USD",
		Pricing: PricingConfig{
			Lite:    telemetry.DefaultRates[llm.TierLite],
			Premium: telemetry.DefaultRates[llm.TierPremium],
		},
		Search: SearchConfig{
			Enabled:    true,
			MaxResults: 5,
			IntervalMS: 200,
		},
		Conversion: ConversionConfig{KRWPerUSD: 1400},
		Server: ServerConfig{
			Port: 8080,
		},
		DataDir:        ".qnagen",
		UsageQueueSize: 64,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// GetPreset returns the model preset for the given provider.
// Returns the Google preset if the provider is unknown.
func GetPreset(provider ProviderType) ModelsConfig {
	if preset, ok := modelPresets[provider]; ok {
		return preset
	}
	return modelPresets[ProviderGoogle]
}
