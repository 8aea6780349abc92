package translate

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"google.golang.org/genai"
)

// GeminiProvider translates through the Gemini API.
type GeminiProvider struct {
	model  string
	client *genai.Client
	logger *logrus.Logger
}

// NewGeminiProvider wraps a genai client as a Translator.
func NewGeminiProvider(model string, client *genai.Client) *GeminiProvider {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	return &GeminiProvider{
		model:  model,
		client: client,
		logger: logger,
	}
}

func (p *GeminiProvider) Name() string { return "gemini" }

func (p *GeminiProvider) SupportsLanguagePair(sourceLang, targetLang string) bool {
	return sourceLang != "" && targetLang != "" && sourceLang != targetLang
}

func (p *GeminiProvider) Translate(ctx context.Context, text, sourceLang, targetLang, instruction string) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return Result{}, ErrEmptyText
	}
	if !p.SupportsLanguagePair(sourceLang, targetLang) {
		return Result{}, errors.Wrapf(ErrUnsupportedLanguagePair, "%s->%s", sourceLang, targetLang)
	}

	prompt := fmt.Sprintf(
		"Translate the following text from %s to %s. Respond with only the translation, nothing else.",
		sourceLang, targetLang)
	if instruction != "" {
		prompt += "\n" + instruction
	}
	prompt += "\n\n" + text

	resp, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text(prompt), nil)
	if err != nil {
		p.logger.WithError(err).Error("Gemini generation failed")
		return Result{}, errors.Wrap(err, "gemini translation failed")
	}

	translated := extractGeminiText(resp)
	if translated == "" {
		return Result{}, errors.New("no completion returned by gemini")
	}

	return Result{
		TranslatedText: translated,
		ProviderUsed:   p.Name(),
		SourceLang:     sourceLang,
		TargetLang:     targetLang,
		QualityScore:   AssessQuality(text, translated, sourceLang, targetLang),
		Metadata: map[string]interface{}{
			"model_used":         p.model,
			"language_direction": string(DirectionOf(targetLang)),
		},
	}, nil
}

func (p *GeminiProvider) BatchTranslate(ctx context.Context, texts []string, sourceLang, targetLang, instruction string) ([]Result, error) {
	if len(texts) == 0 {
		return nil, nil
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

func extractGeminiText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		sb.WriteString(part.Text)
	}
	return strings.TrimSpace(sb.String())
}
