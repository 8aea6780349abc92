package fieldmap

import (
	"encoding/json"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Config describes which fields of a collection are translatable and how
// translated values are written back. Configs are supplied by the host and
// treated as read-only per call.
type Config struct {
	ClientID           string               `json:"client_id"`
	CollectionName     string               `json:"collection_name"`
	FieldPaths         []string             `json:"field_paths"`
	FieldTypes         map[string]FieldType `json:"field_types,omitempty"`
	RTLFieldMapping    map[string][]string  `json:"rtl_field_mapping,omitempty"`
	BatchProcessing    bool                 `json:"batch_processing"`
	PreserveHTML       bool                 `json:"preserve_html_structure"`
	ContentSanitize    bool                 `json:"content_sanitization"`
	TranslationPattern Pattern              `json:"translation_pattern"`
	PrimaryCollection  string               `json:"primary_collection,omitempty"`
}

// DefaultConfig is returned when no configuration exists for a
// client/collection pair. Its empty FieldPaths make translation a
// pass-through.
func DefaultConfig(clientID, collection string) *Config {
	return &Config{
		ClientID:           clientID,
		CollectionName:     collection,
		FieldPaths:         []string{},
		FieldTypes:         map[string]FieldType{},
		RTLFieldMapping:    map[string][]string{},
		PreserveHTML:       true,
		ContentSanitize:    true,
		TranslationPattern: PatternCollectionTranslations,
	}
}

// Hash returns a short content hash of the config, used to detect staleness
// of cached results derived from it. xxhash is key-shortening only, not a
// security boundary.
func (c *Config) Hash() string {
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Sprintf("%s:%s", c.ClientID, c.CollectionName)
	}
	return fmt.Sprintf("%016x", xxhash.Sum64(raw))
}

// PathsFor returns the field paths effective for a target language,
// substituting the RTL override list when one is configured.
func (c *Config) PathsFor(language string) []string {
	if language != "" && IsRTLLanguage(language) {
		if override, ok := c.RTLFieldMapping[language]; ok && len(override) > 0 {
			return override
		}
	}
	return c.FieldPaths
}

// TypeFor returns the configured type for a path, falling back to
// auto-detection from the value.
func (c *Config) TypeFor(path string, value interface{}) FieldType {
	if t, ok := c.FieldTypes[path]; ok {
		return t
	}
	return DetectFieldType(value)
}
