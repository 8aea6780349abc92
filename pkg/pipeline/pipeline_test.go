package pipeline

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jneaimi/locplat/pkg/cache"
	"github.com/jneaimi/locplat/pkg/fieldmap"
	"github.com/jneaimi/locplat/pkg/translate"
)

// upperProvider uppercases whatever it is given, failing on texts listed in
// failOn. It remembers the last instruction each entry point received.
type upperProvider struct {
	failOn           map[string]bool
	calls            int
	batchInstruction string
}

func (u *upperProvider) Name() string { return "upper" }

func (u *upperProvider) SupportsLanguagePair(src, dst string) bool { return src != dst }

func (u *upperProvider) Translate(_ context.Context, text, src, dst, _ string) (translate.Result, error) {
	u.calls++
	if u.failOn[text] {
		return translate.Result{}, errors.New("provider unavailable")
	}
	return translate.Result{
		TranslatedText: strings.ToUpper(text),
		ProviderUsed:   "upper",
		SourceLang:     src,
		TargetLang:     dst,
		QualityScore:   1.0,
	}, nil
}

func (u *upperProvider) BatchTranslate(ctx context.Context, texts []string, src, dst, instruction string) ([]translate.Result, error) {
	u.batchInstruction = instruction
	results := make([]translate.Result, len(texts))
	for i, text := range texts {
		r, err := u.Translate(ctx, text, src, dst, instruction)
		if err != nil {
			return nil, err
		}
		results[i] = r
	}
	return results, nil
}

func newTestPipeline(t *testing.T, provider translate.Translator, cfg *fieldmap.Config) *Pipeline {
	t.Helper()
	service := translate.NewService()
	service.Register(provider)

	store := NewMemoryConfigStore()
	if cfg != nil {
		require.NoError(t, store.SaveConfig(context.Background(), cfg))
	}
	return New(store, service)
}

func batchConfig() *fieldmap.Config {
	cfg := fieldmap.DefaultConfig("acme", "articles")
	cfg.FieldPaths = []string{"t1", "t2", "t3", "rich"}
	cfg.FieldTypes = map[string]fieldmap.FieldType{"rich": fieldmap.FieldTypeWysiwyg}
	cfg.BatchProcessing = true
	cfg.TranslationPattern = fieldmap.PatternMergeInPlace
	return cfg
}

func TestTranslateBatchMergeInPlace(t *testing.T) {
	pipeline := newTestPipeline(t, &upperProvider{}, batchConfig())

	outcome, err := pipeline.Translate(context.Background(), Request{
		Content: map[string]interface{}{
			"t1": "a", "t2": "b", "t3": "c", "rich": "<i>d</i>",
		},
		ClientID:   "acme",
		Collection: "articles",
		SourceLang: "en",
		TargetLang: "fr",
		Provider:   "upper",
	})
	require.NoError(t, err)

	doc := outcome.TranslatedContent
	assert.Equal(t, "A", doc["t1"])
	assert.Equal(t, "B", doc["t2"])
	assert.Equal(t, "C", doc["t3"])
	assert.Contains(t, doc["rich"], "<i>D</i>")

	assert.Contains(t, doc, "_translation_metadata")
	assert.Equal(t, true, outcome.Metadata["batch_processing"])
	assert.Equal(t, 4, outcome.Metadata["fields_translated"])
}

func TestBatchInstructionIsTextAgnostic(t *testing.T) {
	provider := &upperProvider{}
	pipeline := newTestPipeline(t, provider, batchConfig())

	_, err := pipeline.Translate(context.Background(), Request{
		Content: map[string]interface{}{
			"t1": "first text", "t2": "second text", "t3": "third text", "rich": "plain",
		},
		ClientID:   "acme",
		Collection: "articles",
		SourceLang: "en",
		TargetLang: "fr",
		Provider:   "upper",
	})
	require.NoError(t, err)

	// Every batch item carries its own content, so the shared instruction
	// must not embed any single item's text.
	assert.Equal(t, translate.BatchInstruction("fr"), provider.batchInstruction)
	assert.NotContains(t, provider.batchInstruction, "first text")
	assert.NotContains(t, provider.batchInstruction, "exact text segment")
}

func TestPreviewConsultsExtractionCache(t *testing.T) {
	cfg := batchConfig()
	configCache := cache.NewConfigCache(cache.NewMemoryStore(), time.Hour, time.Hour)
	pipeline := newTestPipeline(t, &upperProvider{}, cfg).WithExtractionCache(configCache)

	doc := map[string]interface{}{"t1": "live value"}
	cached := &fieldmap.Extraction{
		Fields: map[string]fieldmap.ExtractedField{
			"t1": {Path: "t1", Value: "cached value", Type: fieldmap.FieldTypeText},
		},
	}
	require.NoError(t, configCache.PutExtraction(context.Background(), doc, cfg.Hash(), "fr", cached))

	fields, err := pipeline.Preview(context.Background(), doc, "acme", "articles", "fr")
	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.Equal(t, "cached value", fields[0].Value)

	// A different config hash misses the cache and re-extracts.
	changed := batchConfig()
	changed.FieldPaths = []string{"t1"}
	store := NewMemoryConfigStore()
	require.NoError(t, store.SaveConfig(context.Background(), changed))
	fresh := New(store, translate.NewService()).WithExtractionCache(configCache)

	fields, err = fresh.Preview(context.Background(), doc, "acme", "articles", "fr")
	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.Equal(t, "live value", fields[0].Value)
}

func TestTranslatePassThroughWithoutConfig(t *testing.T) {
	pipeline := newTestPipeline(t, &upperProvider{}, nil)

	original := map[string]interface{}{"title": "hello"}
	outcome, err := pipeline.Translate(context.Background(), Request{
		Content:    original,
		ClientID:   "acme",
		Collection: "unconfigured",
		SourceLang: "en",
		TargetLang: "fr",
		Provider:   "upper",
	})
	require.NoError(t, err)

	assert.Equal(t, "hello", outcome.TranslatedContent["title"])
	assert.Contains(t, outcome.Metadata, "warning")
	assert.Equal(t, 0, outcome.Metadata["fields_translated"])
}

func TestTranslateRejectsUnknownProvider(t *testing.T) {
	pipeline := newTestPipeline(t, &upperProvider{}, batchConfig())

	_, err := pipeline.Translate(context.Background(), Request{
		Content:    map[string]interface{}{"t1": "a"},
		ClientID:   "acme",
		Collection: "articles",
		SourceLang: "en",
		TargetLang: "fr",
		Provider:   "nonexistent",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, translate.ErrUnknownProvider)
}

func TestTranslateRejectsSameLanguagePair(t *testing.T) {
	pipeline := newTestPipeline(t, &upperProvider{}, batchConfig())

	_, err := pipeline.Translate(context.Background(), Request{
		Content:    map[string]interface{}{"t1": "a"},
		ClientID:   "acme",
		Collection: "articles",
		SourceLang: "en",
		TargetLang: "en",
		Provider:   "upper",
	})
	assert.ErrorIs(t, err, translate.ErrUnsupportedLanguagePair)
}

func TestTranslateFieldFailureKeepsOriginal(t *testing.T) {
	cfg := fieldmap.DefaultConfig("acme", "articles")
	cfg.FieldPaths = []string{"title", "summary"}
	cfg.TranslationPattern = fieldmap.PatternMergeInPlace

	provider := &upperProvider{failOn: map[string]bool{"bad": true}}
	pipeline := newTestPipeline(t, provider, cfg)

	outcome, err := pipeline.Translate(context.Background(), Request{
		Content:    map[string]interface{}{"title": "bad", "summary": "good"},
		ClientID:   "acme",
		Collection: "articles",
		SourceLang: "en",
		TargetLang: "fr",
		Provider:   "upper",
	})
	require.NoError(t, err)

	assert.Equal(t, "bad", outcome.TranslatedContent["title"], "failed field keeps its original text")
	assert.Equal(t, "GOOD", outcome.TranslatedContent["summary"])
	assert.Equal(t, float64(0), outcome.FieldTranslations["title"].QualityScore)
}

func TestTranslateUsesResponseCache(t *testing.T) {
	cfg := fieldmap.DefaultConfig("acme", "articles")
	cfg.FieldPaths = []string{"title"}
	cfg.TranslationPattern = fieldmap.PatternMergeInPlace

	provider := &upperProvider{}
	pipeline := newTestPipeline(t, provider, cfg).
		WithResponseCache(cache.NewResponseCache(cache.NewMemoryStore(), 0))

	req := Request{
		Content:    map[string]interface{}{"title": "hello"},
		ClientID:   "acme",
		Collection: "articles",
		SourceLang: "en",
		TargetLang: "fr",
		Provider:   "upper",
	}

	first, err := pipeline.Translate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "HELLO", first.TranslatedContent["title"])
	callsAfterFirst := provider.calls

	second, err := pipeline.Translate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "HELLO", second.TranslatedContent["title"])
	assert.Equal(t, callsAfterFirst, provider.calls, "second call should be served from cache")
	assert.Equal(t, 1, second.Metadata["cache_hits"])
}

func TestTranslateIdempotentOnIdentity(t *testing.T) {
	cfg := batchConfig()

	identity := &identityProvider{}
	service := translate.NewService()
	service.Register(identity)
	store := NewMemoryConfigStore()
	require.NoError(t, store.SaveConfig(context.Background(), cfg))
	pipeline := New(store, service)

	req := Request{
		Content: map[string]interface{}{
			"t1": "a", "t2": "b", "t3": "c", "rich": "<i>d</i>",
		},
		ClientID:   "acme",
		Collection: "articles",
		SourceLang: "en",
		TargetLang: "fr",
		Provider:   "identity",
	}

	first, err := pipeline.Translate(context.Background(), req)
	require.NoError(t, err)

	req.Content = first.TranslatedContent
	second, err := pipeline.Translate(context.Background(), req)
	require.NoError(t, err)

	for _, key := range []string{"t1", "t2", "t3", "rich"} {
		assert.Equal(t, first.TranslatedContent[key], second.TranslatedContent[key])
	}
}

type identityProvider struct{}

func (identityProvider) Name() string                          { return "identity" }
func (identityProvider) SupportsLanguagePair(src, dst string) bool { return src != dst }

func (identityProvider) Translate(_ context.Context, text, src, dst, _ string) (translate.Result, error) {
	return translate.Result{TranslatedText: text, ProviderUsed: "identity", SourceLang: src, TargetLang: dst, QualityScore: 1}, nil
}

func (p identityProvider) BatchTranslate(ctx context.Context, texts []string, src, dst, instruction string) ([]translate.Result, error) {
	results := make([]translate.Result, len(texts))
	for i, text := range texts {
		results[i], _ = p.Translate(ctx, text, src, dst, instruction)
	}
	return results, nil
}

func TestPreviewListsFieldsWithoutTranslating(t *testing.T) {
	provider := &upperProvider{}
	pipeline := newTestPipeline(t, provider, batchConfig())

	fields, err := pipeline.Preview(context.Background(),
		map[string]interface{}{"t1": "a", "t2": "b", "t3": "c", "rich": "<i>d</i>"},
		"acme", "articles", "fr")
	require.NoError(t, err)

	assert.Len(t, fields, 4)
	assert.Equal(t, 0, provider.calls)

	batched := 0
	for _, f := range fields {
		if f.Batched {
			batched++
		}
	}
	assert.Equal(t, 3, batched)
}
