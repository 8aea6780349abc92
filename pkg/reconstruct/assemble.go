package reconstruct

import (
	"strings"
	"time"

	"github.com/jneaimi/locplat/pkg/content"
	"github.com/jneaimi/locplat/pkg/fieldmap"
	"github.com/jneaimi/locplat/pkg/translate"
)

// Assemble writes translated field values back into one of the supported CMS
// output shapes. The caller's original document is never mutated.
func Assemble(original map[string]interface{}, translations map[string]translate.Result, cfg *fieldmap.Config, targetLang string) map[string]interface{} {
	switch cfg.TranslationPattern {
	case fieldmap.PatternCollectionTranslations:
		return assembleCollectionTranslations(original, translations, cfg, targetLang)
	case fieldmap.PatternLanguageCollections:
		return assembleLanguageCollections(original, translations)
	default:
		return assembleMergeInPlace(original, translations, targetLang)
	}
}

// assembleMergeInPlace overwrites the translated paths in a deep copy of the
// original and appends a non-destructive metadata block.
func assembleMergeInPlace(original map[string]interface{}, translations map[string]translate.Result, targetLang string) map[string]interface{} {
	out := content.DeepCopy(original)

	paths := make([]string, 0, len(translations))
	var qualitySum float64
	for path, result := range translations {
		content.Set(out, path, result.TranslatedText)
		paths = append(paths, path)
		qualitySum += result.QualityScore
	}

	meta := map[string]interface{}{
		"translated_at":     time.Now().UTC().Format(time.RFC3339),
		"target_language":   targetLang,
		"fields_translated": paths,
	}
	if len(translations) > 0 {
		meta["avg_quality"] = qualitySum / float64(len(translations))
	}
	out["_translation_metadata"] = meta

	return out
}

// assembleCollectionTranslations produces a translation-table row referencing
// the original record. Field paths collapse to their leaf segment, which is
// lossy when two parents share a leaf name.
func assembleCollectionTranslations(original map[string]interface{}, translations map[string]translate.Result, cfg *fieldmap.Config, targetLang string) map[string]interface{} {
	out := map[string]interface{}{
		"id":             nil,
		"languages_code": targetLang,
	}
	out[cfg.PrimaryCollection+"_id"] = original["id"]
	for path, result := range translations {
		out[leafName(path)] = result.TranslatedText
	}
	return out
}

// assembleLanguageCollections produces a same-id record for a per-language
// collection.
func assembleLanguageCollections(original map[string]interface{}, translations map[string]translate.Result) map[string]interface{} {
	out := map[string]interface{}{
		"id": original["id"],
	}
	for path, result := range translations {
		out[leafName(path)] = result.TranslatedText
	}
	return out
}

func leafName(path string) string {
	parts := strings.Split(path, ".")
	leaf := parts[len(parts)-1]
	if i := strings.IndexByte(leaf, '['); i > 0 {
		leaf = leaf[:i]
	}
	return leaf
}
