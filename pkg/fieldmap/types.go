package fieldmap

import (
	"regexp"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

// FieldType classifies how a field's value is handled during translation.
type FieldType string

const (
	FieldTypeText     FieldType = "text"
	FieldTypeString   FieldType = "string"
	FieldTypeTextarea FieldType = "textarea"
	FieldTypeWysiwyg  FieldType = "wysiwyg"
	FieldTypeMarkdown FieldType = "markdown"
	FieldTypeJSON     FieldType = "json"
	FieldTypeRelation FieldType = "relation"
)

// Pattern selects the CMS output shape for reconstructed translations.
type Pattern string

const (
	PatternMergeInPlace           Pattern = "merge_in_place"
	PatternCollectionTranslations Pattern = "collection_translations"
	PatternLanguageCollections    Pattern = "language_collections"
)

var rtlLanguages = mapset.NewSet("ar", "he", "fa", "ur")

// IsRTLLanguage reports whether a language code uses right-to-left text.
func IsRTLLanguage(lang string) bool {
	return rtlLanguages.Contains(strings.ToLower(lang))
}

var htmlTagPattern = regexp.MustCompile(`<[^>]+>`)

// IsHTML reports whether text contains markup.
func IsHTML(text string) bool {
	return htmlTagPattern.MatchString(text)
}

// DetectFieldType auto-classifies a value when the config carries no
// explicit mapping: markup wins over newlines, maps are structured JSON,
// everything else is plain text.
func DetectFieldType(value interface{}) FieldType {
	switch v := value.(type) {
	case string:
		if IsHTML(v) {
			return FieldTypeWysiwyg
		}
		if strings.Contains(v, "\n") {
			return FieldTypeTextarea
		}
		return FieldTypeText
	case map[string]interface{}:
		return FieldTypeJSON
	default:
		return FieldTypeString
	}
}

// IsBatchable reports whether a field type joins the plain-text batch group.
func (t FieldType) IsBatchable() bool {
	switch t {
	case FieldTypeText, FieldTypeString, FieldTypeTextarea:
		return true
	default:
		return false
	}
}
