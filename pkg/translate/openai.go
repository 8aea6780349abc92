package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

// chunkTokenBudget is the per-request budget above which long fields are
// split into sentence-aligned chunks.
const chunkTokenBudget = 1500

// ChatProvider translates through any OpenAI-compatible chat completion API.
// OpenAI, DeepSeek and Mistral all speak this protocol; the client's BaseURL
// selects the vendor.
type ChatProvider struct {
	name   string
	model  string
	client *openai.Client
	logger *logrus.Logger
}

// NewChatProvider wraps an OpenAI-compatible client as a Translator.
func NewChatProvider(name, model string, client *openai.Client) *ChatProvider {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	return &ChatProvider{
		name:   name,
		model:  model,
		client: client,
		logger: logger,
	}
}

func (p *ChatProvider) Name() string { return p.name }

// SupportsLanguagePair accepts any distinct pair of non-empty codes; the
// underlying chat models are multilingual.
func (p *ChatProvider) SupportsLanguagePair(sourceLang, targetLang string) bool {
	return sourceLang != "" && targetLang != "" && sourceLang != targetLang
}

func (p *ChatProvider) Translate(ctx context.Context, text, sourceLang, targetLang, instruction string) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return Result{}, ErrEmptyText
	}
	if !p.SupportsLanguagePair(sourceLang, targetLang) {
		return Result{}, errors.Wrapf(ErrUnsupportedLanguagePair, "%s->%s", sourceLang, targetLang)
	}

	chunks, _ := SplitIntoChunks(text, chunkTokenBudget)
	translated := make([]string, len(chunks))

	for i, chunk := range chunks {
		out, err := p.complete(ctx, chunk, sourceLang, targetLang, instruction)
		if err != nil {
			return Result{}, errors.Wrapf(err, "%s translation failed", p.name)
		}
		translated[i] = out
	}

	full := strings.Join(translated, " ")
	if len(chunks) == 1 {
		full = translated[0]
	}

	return Result{
		TranslatedText: full,
		ProviderUsed:   p.name,
		SourceLang:     sourceLang,
		TargetLang:     targetLang,
		QualityScore:   AssessQuality(text, full, sourceLang, targetLang),
		Metadata: map[string]interface{}{
			"model_used":         p.model,
			"language_direction": string(DirectionOf(targetLang)),
			"chunks":             len(chunks),
			"prompt_tokens_est":  CountTokens(text),
		},
	}, nil
}

// BatchTranslate first tries a single structured completion covering the
// whole batch; when that fails or the batch is too large it fans out one
// concurrent request per text and fans results back in by index. Any single
// fan-out failure fails the whole batch; callers fall back to sequential
// per-field translation.
func (p *ChatProvider) BatchTranslate(ctx context.Context, texts []string, sourceLang, targetLang, instruction string) ([]Result, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	if CountTokens(strings.Join(texts, " ")) <= chunkTokenBudget {
		results, err := p.batchComplete(ctx, texts, sourceLang, targetLang, instruction)
		if err == nil {
			return results, nil
		}
		p.logger.WithError(err).WithField("provider", p.name).
			Warn("Structured batch failed, fanning out per item")
	}

	results := make([]Result, len(texts))
	failures := make(chan error, len(texts))
	var wg sync.WaitGroup

	for i, text := range texts {
		wg.Add(1)
		go func(idx int, t string) {
			defer wg.Done()
			r, err := p.Translate(ctx, t, sourceLang, targetLang, instruction)
			if err != nil {
				failures <- errors.Wrapf(err, "batch item %d", idx)
				return
			}
			results[idx] = r
		}(i, text)
	}

	wg.Wait()
	close(failures)

	if err := <-failures; err != nil {
		return nil, err
	}
	return results, nil
}

// batchComplete translates all texts in one completion: the texts go out as
// a JSON array and the response is recovered with ParseBatchResponse. A
// response that leaves any item empty is an error so the caller can fall
// back to the fan-out path.
func (p *ChatProvider) batchComplete(ctx context.Context, texts []string, sourceLang, targetLang, instruction string) ([]Result, error) {
	payload, err := json.Marshal(texts)
	if err != nil {
		return nil, errors.Wrap(err, "encode batch payload")
	}

	system := fmt.Sprintf(
		"You are a professional translator. The user message is a JSON array of texts. "+
			"Translate each text from %s to %s and respond with only a JSON array of the "+
			"translations in the same order, nothing else.",
		sourceLang, targetLang)
	if instruction != "" {
		system += "\n" + instruction
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: string(payload)},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, errors.Errorf("no completion returned by %s", p.name)
	}

	translated := ParseBatchResponse(resp.Choices[0].Message.Content, len(texts))
	results := make([]Result, len(texts))
	for i, out := range translated {
		if strings.TrimSpace(out) == "" {
			return nil, errors.Errorf("batch response missing item %d", i)
		}
		results[i] = Result{
			TranslatedText: out,
			ProviderUsed:   p.name,
			SourceLang:     sourceLang,
			TargetLang:     targetLang,
			QualityScore:   AssessQuality(texts[i], out, sourceLang, targetLang),
			Metadata: map[string]interface{}{
				"model_used":         p.model,
				"language_direction": string(DirectionOf(targetLang)),
				"batch_mode":         "structured",
			},
		}
	}
	return results, nil
}

func (p *ChatProvider) complete(ctx context.Context, text, sourceLang, targetLang, instruction string) (string, error) {
	system := fmt.Sprintf(
		"You are a professional translator. Translate from %s to %s. "+
			"Respond with only the translation, nothing else.",
		sourceLang, targetLang)
	if instruction != "" {
		system += "\n" + instruction
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		Temperature: 0.3,
	})
	if err != nil {
		p.logger.WithError(err).WithField("provider", p.name).Error("Chat completion failed")
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.Errorf("no completion returned by %s", p.name)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
