package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chatRequest struct {
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func chatResponse(content string) string {
	payload, _ := json.Marshal(map[string]interface{}{
		"id":     "cmpl-test",
		"object": "chat.completion",
		"choices": []map[string]interface{}{
			{"index": 0, "message": map[string]string{"role": "assistant", "content": content}},
		},
	})
	return string(payload)
}

func newStubProvider(t *testing.T, handler http.HandlerFunc) *ChatProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"
	return NewChatProvider("openai", "gpt-4o", openai.NewClientWithConfig(cfg))
}

func TestBatchTranslateStructuredSingleCall(t *testing.T) {
	var requests []chatRequest
	provider := newStubProvider(t, func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		requests = append(requests, req)
		fmt.Fprint(w, chatResponse(`["Bonjour","Monde"]`))
	})

	results, err := provider.BatchTranslate(context.Background(),
		[]string{"Hello", "World"}, "en", "fr", BatchInstruction("fr"))
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "Bonjour", results[0].TranslatedText)
	assert.Equal(t, "Monde", results[1].TranslatedText)
	assert.Equal(t, "structured", results[0].Metadata["batch_mode"])

	// The whole batch went out as one completion carrying a JSON array.
	require.Len(t, requests, 1)
	require.Len(t, requests[0].Messages, 2)
	assert.JSONEq(t, `["Hello","World"]`, requests[0].Messages[1].Content)

	// The shared instruction must not single out any one item's text.
	system := requests[0].Messages[0].Content
	assert.NotContains(t, system, "exact text segment")
	assert.NotContains(t, system, "'Hello'")
}

func TestBatchTranslateFallsBackToFanOut(t *testing.T) {
	var batchCalls, unitCalls int
	provider := newStubProvider(t, func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		user := req.Messages[len(req.Messages)-1].Content
		if strings.HasPrefix(user, "[") {
			// Structured batch attempt: respond with too few items.
			batchCalls++
			fmt.Fprint(w, chatResponse(`["solo"]`))
			return
		}
		unitCalls++
		fmt.Fprint(w, chatResponse("übersetzt: "+user))
	})

	results, err := provider.BatchTranslate(context.Background(),
		[]string{"one", "two"}, "en", "de", "")
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, 1, batchCalls)
	assert.Equal(t, 2, unitCalls)
	assert.Equal(t, "übersetzt: one", results[0].TranslatedText)
	assert.Equal(t, "übersetzt: two", results[1].TranslatedText)
}
