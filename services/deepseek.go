package services

import (
	"os"
	"sync"

	"github.com/sashabaranov/go-openai"
)

var (
	deepseekClient *openai.Client
	deepseekOnce   sync.Once
)

// DefaultDeepseekClient returns a singleton DeepSeek client speaking the
// OpenAI-compatible API.
func DefaultDeepseekClient() *openai.Client {
	deepseekOnce.Do(func() {
		apiKey := os.Getenv("DEEPSEEK_API_KEY")
		if apiKey == "" {
			panic("DEEPSEEK_API_KEY environment variable is not set")
		}

		baseURL := os.Getenv("DEEPSEEK_API_BASE")
		if baseURL == "" {
			baseURL = "https://api.deepseek.com/v1"
		}

		config := openai.DefaultConfig(apiKey)
		config.BaseURL = baseURL

		deepseekClient = openai.NewClientWithConfig(config)
	})
	return deepseekClient
}
