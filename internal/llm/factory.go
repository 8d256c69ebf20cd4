package llm

import (
	"fmt"

	"github.com/ajramos/wareply/internal/config"
)

// NewProviderFromConfig creates a Provider from the llm config block.
func NewProviderFromConfig(cfg *config.LLMConfig) (Provider, error) {
	switch cfg.Provider {
	case "gemini-cli", "":
		return NewGeminiCLI(cfg.Command, cfg.Model), nil
	case "ollama":
		return NewClient(cfg.Endpoint, cfg.Model), nil
	case "bedrock":
		return NewBedrock(cfg.Region, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown llm provider %q (want gemini-cli, ollama or bedrock)", cfg.Provider)
	}
}
