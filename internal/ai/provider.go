// Package ai suggests display names for face clusters using a vision model.
package ai

import (
	"context"
	"errors"

	"github.com/kozaktomas/chronoface/internal/config"
)

// ErrNoProvider is returned when no AI backend is configured.
var ErrNoProvider = errors.New("no AI provider configured")

// NameSuggestion is the model's proposal for a cluster's display name.
type NameSuggestion struct {
	// Name is a short human-readable label, e.g. "Grandma" or "Tomáš".
	Name string `json:"name"`
	// Confidence 0-1 for the suggestion.
	Confidence float64 `json:"confidence"`
	// Reasoning for the suggestion.
	Reasoning string `json:"reasoning"`
}

// Provider defines the interface for name-suggestion backends.
type Provider interface {
	Name() string
	SuggestClusterName(
		ctx context.Context,
		faceImages [][]byte,
		existingNames []string,
	) (*NameSuggestion, error)
}

// NewFromConfig picks a provider from the configured credentials, preferring
// OpenAI when both are present.
func NewFromConfig(ctx context.Context, cfg *config.Config) (Provider, error) {
	if cfg.OpenAI.Token != "" {
		return NewOpenAIProvider(cfg.OpenAI.Token), nil
	}
	if cfg.Gemini.APIKey != "" {
		return NewGeminiProvider(ctx, cfg.Gemini.APIKey)
	}
	return nil, ErrNoProvider
}
