package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard, saves the result to
// path and returns it.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to docqa! Let's configure document Q&A.")
	fmt.Println()

	cfg := DefaultConfig()

	providerPrompt := promptui.Select{
		Label: "Select generation provider",
		Items: []string{"google", "openai", "ollama"},
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	cfg.Provider = ProviderType(providerStr)
	cfg.EmbeddingProvider = cfg.Provider

	preset := GetPreset(cfg.Provider)
	cfg.EmbeddingModel = preset.EmbeddingModel
	cfg.EmbeddingDims = preset.EmbeddingDims
	if cfg.Provider != ProviderGoogle {
		cfg.FallbackModels = nil
	}

	modelPrompt := promptui.Prompt{
		Label:   "Generation model",
		Default: preset.Model,
	}
	if cfg.Model, err = modelPrompt.Run(); err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}

	dataPrompt := promptui.Prompt{
		Label:   "Data directory (database, uploads, index cache)",
		Default: cfg.DataDir,
	}
	if cfg.DataDir, err = dataPrompt.Run(); err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}

	historyPrompt := promptui.Prompt{
		Label:   "Conversation turns included in each prompt",
		Default: strconv.Itoa(cfg.Answer.HistoryTurns),
		Validate: func(s string) error {
			n, err := strconv.Atoi(strings.TrimSpace(s))
			if err != nil || n < 0 {
				return fmt.Errorf("enter a non-negative number")
			}
			return nil
		},
	}
	historyStr, err := historyPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("history turns: %w", err)
	}
	cfg.Answer.HistoryTurns, _ = strconv.Atoi(strings.TrimSpace(historyStr))

	if envVar := APIKeyEnvVar(cfg.Provider); envVar != "" && cfg.APIKeyFor(cfg.Provider) == "" {
		fmt.Printf("\nNote: Set %s (or API_KEY in .env) before running docqa.\n", envVar)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}
