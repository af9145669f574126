package providers

import (
	"context"
	"fmt"
	"strings"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Options selects and credentials a backend. Zero-valued model fields fall
// back to the adapter defaults.
type Options struct {
	Provider     string
	GeminiAPIKey string
	OpenAIAPIKey string
	ChatModel    string
	ImageModel   string
}

// NormalizeProviderName lowercases and defaults the backend name.
func NormalizeProviderName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return ProviderGemini
	}
	return name
}

// NewProvider constructs the configured backend. Missing credentials abort
// construction with ErrMissingAPIKey wrapped; nothing here retries.
func NewProvider(ctx context.Context, opts Options) (Provider, error) {
	switch NormalizeProviderName(opts.Provider) {
	case ProviderGemini:
		return NewGeminiProvider(ctx, opts.GeminiAPIKey, opts.ChatModel, opts.ImageModel)
	case ProviderOpenAI:
		return NewOpenAIProvider(opts.OpenAIAPIKey, opts.ChatModel, opts.ImageModel)
	default:
		return nil, fmt.Errorf("unsupported provider %q: supported providers are %s, %s", opts.Provider, ProviderGemini, ProviderOpenAI)
	}
}
