package services

import (
	"os"
	"sync"

	"github.com/sashabaranov/go-openai"
)

var (
	mistralClient *openai.Client
	mistralOnce   sync.Once
)

// DefaultMistralClient returns a singleton Mistral client speaking the
// OpenAI-compatible API.
func DefaultMistralClient() *openai.Client {
	mistralOnce.Do(func() {
		apiKey := os.Getenv("MISTRAL_API_KEY")
		if apiKey == "" {
			panic("MISTRAL_API_KEY environment variable is not set")
		}

		baseURL := os.Getenv("MISTRAL_API_BASE")
		if baseURL == "" {
			baseURL = "https://api.mistral.ai/v1"
		}

		config := openai.DefaultConfig(apiKey)
		config.BaseURL = baseURL

		mistralClient = openai.NewClientWithConfig(config)
	})
	return mistralClient
}
