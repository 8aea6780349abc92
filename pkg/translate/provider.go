package translate

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/jneaimi/locplat/pkg/fieldmap"
)

var (
	// ErrEmptyText is returned when a provider is asked to translate nothing.
	ErrEmptyText = errors.New("empty text provided for translation")
	// ErrUnknownProvider is returned for provider names the service does not know.
	ErrUnknownProvider = errors.New("unknown translation provider")
	// ErrUnsupportedLanguagePair is returned when a provider cannot serve a pair.
	ErrUnsupportedLanguagePair = errors.New("unsupported language pair")
)

// Direction is the text direction of a target language.
type Direction string

const (
	DirectionLTR Direction = "ltr"
	DirectionRTL Direction = "rtl"
)

// DirectionOf returns the text direction for a language code.
func DirectionOf(lang string) Direction {
	if fieldmap.IsRTLLanguage(lang) {
		return DirectionRTL
	}
	return DirectionLTR
}

// Result is one translated unit with provider metadata.
type Result struct {
	TranslatedText string                 `json:"translated_text"`
	ProviderUsed   string                 `json:"provider_used"`
	SourceLang     string                 `json:"source_lang"`
	TargetLang     string                 `json:"target_lang"`
	QualityScore   float64                `json:"quality_score"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// Translator is the single capability the pipeline depends on. BatchTranslate
// must preserve input order in its results.
type Translator interface {
	Name() string
	Translate(ctx context.Context, text, sourceLang, targetLang, instruction string) (Result, error)
	BatchTranslate(ctx context.Context, texts []string, sourceLang, targetLang, instruction string) ([]Result, error)
	SupportsLanguagePair(sourceLang, targetLang string) bool
}

// BatchInstruction builds the shared instruction for a multi-text batch
// call. Unlike FragmentInstruction it names no particular text; every item
// in the batch carries its own content.
func BatchInstruction(targetLang string) string {
	if DirectionOf(targetLang) == DirectionRTL {
		return fmt.Sprintf(
			"Use natural %s word order and sentence flow that reads naturally from right to left. "+
				"Do not add any additional words, explanations, or content.",
			targetLang)
	}
	return "Do not add any additional words, explanations, or content. " +
		"Preserve the exact meaning and length of each text."
}

// FragmentInstruction builds the provider instruction for a single HTML text
// run. RTL targets ask for natural phrase order with nothing added; LTR
// targets ask for the exact fragment only. contextMD, when non-empty, gives
// the provider the surrounding document rendered as markdown.
func FragmentInstruction(text, targetLang, contextMD string) string {
	var instruction string
	if DirectionOf(targetLang) == DirectionRTL {
		instruction = fmt.Sprintf(
			"HTML fragment translation to %s. Translate ONLY this exact text segment: '%s'. "+
				"Use natural %s word order and sentence flow that reads naturally from right to left. "+
				"Do not add any additional words, explanations, or content.",
			targetLang, text, targetLang)
	} else {
		instruction = fmt.Sprintf(
			"HTML fragment translation. Translate ONLY this exact text segment: '%s'. "+
				"Do not add any additional words, explanations, or content. "+
				"Preserve the exact meaning and length.",
			text)
	}
	if contextMD != "" {
		instruction += fmt.Sprintf("\n\nSurrounding document for context:\n%s", contextMD)
	}
	return instruction
}
