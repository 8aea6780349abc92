package services

import (
	"os"
	"sync"

	"github.com/sashabaranov/go-openai"
)

// DefaultOpenAIClient is the shared OpenAI client, used for both chat
// translation and translation-memory embeddings. OPENAI_BASE_URL redirects
// it to a compatible gateway.
var DefaultOpenAIClient = sync.OnceValue(func() *openai.Client {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		panic("OPENAI_API_KEY is not set; the openai provider cannot start without it")
	}

	config := openai.DefaultConfig(apiKey)
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		config.BaseURL = baseURL
	}

	return openai.NewClientWithConfig(config)
})
