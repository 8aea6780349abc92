package translate

import (
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider translates by uppercasing and can be told to fail specific
// texts or the whole batch path.
type fakeProvider struct {
	name       string
	failTexts  map[string]bool
	failBatch  bool
	batchCalls int
	unitCalls  int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) SupportsLanguagePair(src, dst string) bool {
	return src != "" && dst != "" && src != dst
}

func (f *fakeProvider) Translate(_ context.Context, text, src, dst, _ string) (Result, error) {
	f.unitCalls++
	if f.failTexts[text] {
		return Result{}, errors.New("unit failure")
	}
	return Result{
		TranslatedText: strings.ToUpper(text),
		ProviderUsed:   f.name,
		SourceLang:     src,
		TargetLang:     dst,
		QualityScore:   0.9,
	}, nil
}

func (f *fakeProvider) BatchTranslate(ctx context.Context, texts []string, src, dst, instruction string) ([]Result, error) {
	f.batchCalls++
	if f.failBatch {
		return nil, errors.New("batch failure")
	}
	results := make([]Result, len(texts))
	for i, t := range texts {
		r, err := f.Translate(ctx, t, src, dst, instruction)
		if err != nil {
			return nil, err
		}
		results[i] = r
	}
	return results, nil
}

func newTestService(p Translator) *Service {
	s := NewService()
	s.Register(p)
	return s
}

func TestServiceTranslate(t *testing.T) {
	s := newTestService(&fakeProvider{name: "openai"})

	r, err := s.Translate(context.Background(), "openai", "hello", "en", "fr", "")
	require.NoError(t, err)
	assert.Equal(t, "HELLO", r.TranslatedText)
	assert.Equal(t, "openai", r.ProviderUsed)
}

func TestServiceUnknownProvider(t *testing.T) {
	s := NewService()
	_, err := s.Translate(context.Background(), "nope", "x", "en", "fr", "")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestServiceRejectsSameLanguagePair(t *testing.T) {
	s := newTestService(&fakeProvider{name: "openai"})
	_, err := s.Translate(context.Background(), "openai", "x", "en", "en", "")
	assert.ErrorIs(t, err, ErrUnsupportedLanguagePair)
}

func TestBatchTranslatePreservesOrder(t *testing.T) {
	s := newTestService(&fakeProvider{name: "openai"})

	results, err := s.BatchTranslate(context.Background(), "openai", []string{"a", "b", "c"}, "en", "fr", "")
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "A", results[0].TranslatedText)
	assert.Equal(t, "B", results[1].TranslatedText)
	assert.Equal(t, "C", results[2].TranslatedText)
}

func TestBatchFailureFallsBackToSequential(t *testing.T) {
	p := &fakeProvider{name: "openai", failBatch: true}
	s := newTestService(p)

	results, err := s.BatchTranslate(context.Background(), "openai", []string{"a", "b"}, "en", "fr", "")
	require.NoError(t, err)
	assert.Equal(t, 1, p.batchCalls)
	assert.Equal(t, "A", results[0].TranslatedText)
	assert.Equal(t, "B", results[1].TranslatedText)
}

func TestSequentialFallbackKeepsOriginalOnUnitFailure(t *testing.T) {
	p := &fakeProvider{name: "openai", failBatch: true, failTexts: map[string]bool{"b": true}}
	s := newTestService(p)

	results, err := s.BatchTranslate(context.Background(), "openai", []string{"a", "b", "c"}, "en", "fr", "")
	require.NoError(t, err)
	assert.Equal(t, "A", results[0].TranslatedText)
	assert.Equal(t, "b", results[1].TranslatedText)
	assert.Equal(t, float64(0), results[1].QualityScore)
	assert.Equal(t, "C", results[2].TranslatedText)
}

func TestFragmentInstruction(t *testing.T) {
	rtl := FragmentInstruction("Hello", "ar", "")
	assert.Contains(t, rtl, "natural ar word order")
	assert.Contains(t, rtl, "right to left")

	ltr := FragmentInstruction("Hello", "fr", "")
	assert.Contains(t, ltr, "exact text segment")
	assert.NotContains(t, ltr, "right to left")

	withCtx := FragmentInstruction("Hello", "fr", "# Title")
	assert.Contains(t, withCtx, "# Title")
}

func TestDirectionOf(t *testing.T) {
	assert.Equal(t, DirectionRTL, DirectionOf("ar"))
	assert.Equal(t, DirectionLTR, DirectionOf("de"))
}
