package fieldmap

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/jneaimi/locplat/pkg/content"
	"github.com/jneaimi/locplat/pkg/htmlcodec"
)

var (
	extractionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "fieldmap_extraction_duration_seconds",
			Help: "Time spent extracting translatable fields",
		},
		[]string{"status"},
	)

	fieldsExtracted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fieldmap_fields_extracted_total",
			Help: "Number of fields extracted per type",
		},
		[]string{"field_type"},
	)
)

func init() {
	prometheus.MustRegister(extractionDuration)
	prometheus.MustRegister(fieldsExtracted)
}

// ExtractedField is one translatable value located in a document.
type ExtractedField struct {
	Path       string                 `json:"path"`
	Value      interface{}            `json:"value"`
	Type       FieldType              `json:"type"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	BatchIndex int                    `json:"batch_index"`
}

// BatchRef locates a field's slot inside the batch text list.
type BatchRef struct {
	Index int       `json:"index"`
	Type  FieldType `json:"type"`
}

// BatchGroup bundles the plain-text fields of one extraction so a single
// provider call can replace N individual calls. Texts keeps the configured
// field-path order.
type BatchGroup struct {
	Texts   []string            `json:"text"`
	Mapping map[string]BatchRef `json:"mapping"`
}

// Extraction is the result of walking a field-mapping config over a document.
type Extraction struct {
	Fields map[string]ExtractedField `json:"fields"`
	Batch  *BatchGroup               `json:"batch,omitempty"`
}

// SanitizeFunc cleans a text value before translation.
type SanitizeFunc func(text string, maxLen int) string

// Extractor walks field-mapping configurations over generic documents.
type Extractor struct {
	logger   *logrus.Logger
	sanitize SanitizeFunc
}

// NewExtractor creates an extractor with the markup-aware default sanitizer.
func NewExtractor() *Extractor {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	return &Extractor{
		logger:   logger,
		sanitize: htmlcodec.Sanitize,
	}
}

// SetSanitizer swaps the sanitization hook.
func (e *Extractor) SetSanitizer(fn SanitizeFunc) {
	if fn != nil {
		e.sanitize = fn
	}
}

// Extract resolves the configured field paths against a document. Explicit
// type mappings win over auto-detection; unresolved paths are skipped. When
// batching is enabled, plain-text fields are grouped into one ordered batch.
// An RTL target language with a configured override substitutes its field
// paths for this call only.
func (e *Extractor) Extract(doc map[string]interface{}, cfg *Config, language string) *Extraction {
	start := time.Now()

	paths := cfg.PathsFor(language)
	result := &Extraction{Fields: make(map[string]ExtractedField, len(paths))}

	for _, path := range paths {
		value := content.Get(doc, path)
		if value == nil {
			continue
		}

		fieldType := cfg.TypeFor(path, value)
		fieldsExtracted.WithLabelValues(string(fieldType)).Inc()

		if cfg.BatchProcessing && fieldType.IsBatchable() {
			if text, ok := value.(string); ok {
				if result.Batch == nil {
					result.Batch = &BatchGroup{Mapping: map[string]BatchRef{}}
				}
				result.Batch.Mapping[path] = BatchRef{Index: len(result.Batch.Texts), Type: fieldType}
				result.Batch.Texts = append(result.Batch.Texts, text)
				continue
			}
		}

		result.Fields[path] = ExtractedField{
			Path:       path,
			Value:      value,
			Type:       fieldType,
			Metadata:   e.metadata(value, fieldType),
			BatchIndex: -1,
		}
	}

	extractionDuration.WithLabelValues("success").Observe(time.Since(start).Seconds())
	e.logger.WithFields(logrus.Fields{
		"client_id":   cfg.ClientID,
		"collection":  cfg.CollectionName,
		"fields":      len(result.Fields),
		"batched":     result.Batch != nil,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("Field extraction completed")

	return result
}

// Sanitize cleans the extracted values in place when the config enables
// content sanitization. Only markup-bearing values change.
func (e *Extractor) Sanitize(ex *Extraction, cfg *Config, maxLen int) {
	if !cfg.ContentSanitize || ex == nil {
		return
	}

	for path, field := range ex.Fields {
		if field.Type != FieldTypeWysiwyg {
			continue
		}
		if text, ok := field.Value.(string); ok {
			field.Value = e.sanitize(text, maxLen)
			ex.Fields[path] = field
		}
	}

	if ex.Batch != nil {
		for i, text := range ex.Batch.Texts {
			if IsHTML(text) {
				ex.Batch.Texts[i] = e.sanitize(text, maxLen)
			}
		}
	}
}

func (e *Extractor) metadata(value interface{}, fieldType FieldType) map[string]interface{} {
	if fieldType != FieldTypeWysiwyg {
		return nil
	}
	text, ok := value.(string)
	if !ok {
		return nil
	}
	return map[string]interface{}{
		"html_tags": htmlcodec.Structure(text),
	}
}
