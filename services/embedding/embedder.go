package embedding

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"

	OpenAIDimensions = 1536
)

// New returns the embedder for the configured provider together with the
// vector dimension the search index must use.
func New(ctx context.Context, provider, openaiAPIKey, geminiAPIKey string) (embeddings.Embedder, int32, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "", ProviderOpenAI:
		log.Printf("[INFO] Using OpenAI embeddings")
		if openaiAPIKey == "" {
			return nil, 0, fmt.Errorf("OPENAI_API_KEY is required for openai embeddings")
		}

		llm, err := openai.New(
			openai.WithModel("gpt-4o-mini"),
			openai.WithToken(openaiAPIKey),
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to create OpenAI client: %w", err)
		}

		embedder, err := embeddings.NewEmbedder(llm)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to create embedder: %w", err)
		}
		return embedder, OpenAIDimensions, nil

	case ProviderGemini:
		log.Printf("[INFO] Using Gemini embeddings (%s)", GeminiModel)
		embedder, err := NewGeminiEmbedder(ctx, geminiAPIKey)
		if err != nil {
			return nil, 0, err
		}
		return embedder, GeminiDimensions, nil

	default:
		return nil, 0, fmt.Errorf("unknown embedding provider %q", provider)
	}
}
