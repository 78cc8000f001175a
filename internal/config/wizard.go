package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to .qnagen.yml.
func RunWizard() (*Config, error) {
	fmt.Println("Welcome to qnagen! Let's configure content generation.")
	fmt.Println()

	// 1. Provider selection.
	providerPrompt := promptui.Select{
		Label: "Select LLM provider",
		Items: []string{"google", "openai"},
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	provider := ProviderType(providerStr)
	preset := GetPreset(provider)

	// 2. Models per tier.
	litePrompt := promptui.Prompt{
		Label:   "Lite model (questions, customer turns)",
		Default: preset.Lite,
	}
	lite, err := litePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("lite model: %w", err)
	}
	premiumPrompt := promptui.Prompt{
		Label:   "Premium model (answers, advisor turns)",
		Default: preset.Premium,
	}
	premium, err := premiumPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("premium model: %w", err)
	}

	// 3. Search augmentation.
	searchPrompt := promptui.Select{
		Label: "Use Naver blog search for reference context?",
		Items: []string{"yes", "no"},
	}
	searchIdx, _, err := searchPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("search selection: %w", err)
	}

	// 4. Currency conversion rate.
	ratePrompt := promptui.Prompt{
		Label:    "KRW per USD for cost reports",
		Default:  "1400",
		Validate: validatePositiveFloat,
	}
	rateStr, err := ratePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("conversion rate: %w", err)
	}
	rate, _ := strconv.ParseFloat(rateStr, 64)

	cfg := DefaultConfig()
	cfg.Provider = provider
	cfg.Models = ModelsConfig{Lite: lite, Premium: premium}
	cfg.Search.Enabled = searchIdx == 0
	cfg.Conversion.KRWPerUSD = rate

	// Check for API keys.
	if envVar := APIKeyEnvVar(provider); envVar != "" && os.Getenv(envVar) == "" {
		fmt.Printf("\nNote: Set %s in your environment before running qnagen generate.\n", envVar)
	}
	if cfg.Search.Enabled && (os.Getenv("NAVER_CLIENT_ID") == "" || os.Getenv("NAVER_CLIENT_SECRET") == "") {
		fmt.Println("Note: Set NAVER_CLIENT_ID and NAVER_CLIENT_SECRET to enable search.")
	}

	if err := cfg.Save(DefaultPath); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", DefaultPath)
	return cfg, nil
}

func validatePositiveFloat(s string) error {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("not a number")
	}
	if v <= 0 {
		return fmt.Errorf("must be positive")
	}
	return nil
}
