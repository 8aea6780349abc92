package services

import (
	"context"
	"fmt"
	"os"
	"sync"

	"google.golang.org/genai"
)

var DefaultGeminiClient = sync.OnceValue(func() *genai.Client {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		panic("GEMINI_API_KEY is not set; the gemini provider cannot start without it")
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		panic(fmt.Sprintf("failed to create Gemini client: %v", err))
	}

	return client
})
