package pipeline

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"

	"github.com/jneaimi/locplat/pkg/cache"
	"github.com/jneaimi/locplat/pkg/content"
	"github.com/jneaimi/locplat/pkg/fieldmap"
	"github.com/jneaimi/locplat/pkg/htmlcodec"
	"github.com/jneaimi/locplat/pkg/reconstruct"
	"github.com/jneaimi/locplat/pkg/tmemory"
	"github.com/jneaimi/locplat/pkg/translate"
)

var pipelineDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name: "locplat_pipeline_duration_seconds",
		Help: "End-to-end structured translation time",
	},
	[]string{"collection", "status"},
)

const (
	// sanitizeMaxLen bounds field values fed to providers.
	sanitizeMaxLen = 50000

	// memoryMinScore is the similarity floor for reusing a translation
	// memory hit instead of calling a provider.
	memoryMinScore = 0.92
)

// Request is one structured translation call.
type Request struct {
	Content    map[string]interface{}
	ClientID   string
	Collection string
	SourceLang string
	TargetLang string
	Provider   string
	Model      string
}

func (r Request) cacheModel() string {
	if r.Model == "" {
		return "default"
	}
	return r.Model
}

// Outcome is the best-effort result of a structured translation. Metadata
// describes partial degradation instead of surfacing it as an error.
type Outcome struct {
	TranslatedContent map[string]interface{}
	FieldTranslations map[string]translate.Result
	Metadata          map[string]interface{}
}

// Pipeline wires extraction, the HTML codec, cached provider calls, and
// reconstruction into one structured translation flow.
type Pipeline struct {
	configs     ConfigStore
	extractor   *fieldmap.Extractor
	service     *translate.Service
	responses   *cache.ResponseCache
	extractions *cache.ConfigCache
	memory      *tmemory.Memory
	logger      *logrus.Logger
}

// New creates a pipeline. The response cache and translation memory are
// optional accelerators, attached with the With* methods.
func New(configs ConfigStore, service *translate.Service) *Pipeline {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	return &Pipeline{
		configs:   configs,
		extractor: fieldmap.NewExtractor(),
		service:   service,
		logger:    logger,
	}
}

// WithResponseCache attaches a response cache.
func (p *Pipeline) WithResponseCache(c *cache.ResponseCache) *Pipeline {
	p.responses = c
	return p
}

// WithExtractionCache attaches the extraction-result cache. Entries are
// keyed on the config hash, so a config re-save never serves a stale
// extraction.
func (p *Pipeline) WithExtractionCache(c *cache.ConfigCache) *Pipeline {
	p.extractions = c
	return p
}

// WithTranslationMemory attaches a similarity-based translation memory.
func (p *Pipeline) WithTranslationMemory(m *tmemory.Memory) *Pipeline {
	p.memory = m
	return p
}

// Translate runs the full structured translation flow. A missing field
// configuration is a pass-through with a warning, not an error; only invalid
// input (unknown provider, unsupported language pair) fails the call.
func (p *Pipeline) Translate(ctx context.Context, req Request) (*Outcome, error) {
	start := time.Now()

	cfg, err := p.configs.GetConfig(ctx, req.ClientID, req.Collection)
	if err != nil {
		return nil, err
	}

	if len(cfg.PathsFor(req.TargetLang)) == 0 {
		p.logger.WithFields(logrus.Fields{
			"client_id":  req.ClientID,
			"collection": req.Collection,
		}).Warn("No field paths configured, passing content through")
		pipelineDuration.WithLabelValues(req.Collection, "passthrough").Observe(time.Since(start).Seconds())

		return &Outcome{
			TranslatedContent: content.DeepCopy(req.Content),
			FieldTranslations: map[string]translate.Result{},
			Metadata: map[string]interface{}{
				"warning":           "no field paths configured for collection",
				"fields_translated": 0,
				"target_language":   req.TargetLang,
			},
		}, nil
	}

	// Fail fast on an invalid provider/pair before any extraction work.
	provider, err := p.service.Provider(req.Provider)
	if err != nil {
		return nil, err
	}
	if !provider.SupportsLanguagePair(req.SourceLang, req.TargetLang) {
		return nil, translate.ErrUnsupportedLanguagePair
	}

	extraction := p.extract(ctx, req.Content, cfg, req.TargetLang)
	p.extractor.Sanitize(extraction, cfg, sanitizeMaxLen)

	translations := make(map[string]translate.Result)
	cacheHits := 0

	if extraction.Batch != nil {
		hits := p.translateBatch(ctx, req, extraction.Batch, translations)
		cacheHits += hits
	}

	for path, field := range extraction.Fields {
		result, hit, ok := p.translateField(ctx, req, path, field)
		if !ok {
			continue
		}
		if hit {
			cacheHits++
		}
		translations[path] = result
	}

	translated := reconstruct.Assemble(req.Content, translations, cfg, req.TargetLang)

	pipelineDuration.WithLabelValues(req.Collection, "success").Observe(time.Since(start).Seconds())

	return &Outcome{
		TranslatedContent: translated,
		FieldTranslations: translations,
		Metadata: map[string]interface{}{
			"fields_translated":  len(translations),
			"batch_processing":   extraction.Batch != nil,
			"cache_hits":         cacheHits,
			"processing_time_ms": time.Since(start).Milliseconds(),
			"target_language":    req.TargetLang,
			"language_direction": string(translate.DirectionOf(req.TargetLang)),
			"average_quality":    averageQuality(translations),
			"provider":           req.Provider,
		},
	}, nil
}

// PreviewField describes one field Translate would process.
type PreviewField struct {
	Path     string                 `json:"path"`
	Type     fieldmap.FieldType     `json:"type"`
	Value    interface{}            `json:"value"`
	Batched  bool                   `json:"batched"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Preview extracts the translatable fields of a document without calling any
// provider.
func (p *Pipeline) Preview(ctx context.Context, doc map[string]interface{}, clientID, collection, targetLang string) ([]PreviewField, error) {
	cfg, err := p.configs.GetConfig(ctx, clientID, collection)
	if err != nil {
		return nil, err
	}

	extraction := p.extract(ctx, doc, cfg, targetLang)

	fields := make([]PreviewField, 0, len(extraction.Fields))
	for path, field := range extraction.Fields {
		fields = append(fields, PreviewField{
			Path:     path,
			Type:     field.Type,
			Value:    field.Value,
			Metadata: field.Metadata,
		})
	}
	if extraction.Batch != nil {
		for path, ref := range extraction.Batch.Mapping {
			fields = append(fields, PreviewField{
				Path:    path,
				Type:    ref.Type,
				Value:   extraction.Batch.Texts[ref.Index],
				Batched: true,
			})
		}
	}
	return fields, nil
}

// extract runs field extraction, going through the extraction-result cache
// when one is attached. Cache reads return a fresh copy, so the sanitizer
// may mutate the result freely.
func (p *Pipeline) extract(ctx context.Context, doc map[string]interface{}, cfg *fieldmap.Config, targetLang string) *fieldmap.Extraction {
	if p.extractions == nil {
		return p.extractor.Extract(doc, cfg, targetLang)
	}

	hash := cfg.Hash()
	if ex, found := p.extractions.GetExtraction(ctx, doc, hash, targetLang); found {
		return ex
	}

	ex := p.extractor.Extract(doc, cfg, targetLang)
	if err := p.extractions.PutExtraction(ctx, doc, hash, targetLang, ex); err != nil {
		p.logger.WithError(err).Debug("Extraction cache write failed")
	}
	return ex
}

// translateBatch resolves the batch group: cached texts are filled directly,
// the rest go through one provider batch call (with the service's sequential
// fallback). Returns the number of cache hits.
func (p *Pipeline) translateBatch(ctx context.Context, req Request, batch *fieldmap.BatchGroup, translations map[string]translate.Result) int {
	results := make([]translate.Result, len(batch.Texts))
	resolved := make([]bool, len(batch.Texts))
	hits := 0

	for i, text := range batch.Texts {
		if result, ok := p.lookupCached(ctx, req, text); ok {
			results[i] = result
			resolved[i] = true
			hits++
		}
	}

	var missingTexts []string
	var missingIdx []int
	for i := range batch.Texts {
		if !resolved[i] {
			missingTexts = append(missingTexts, batch.Texts[i])
			missingIdx = append(missingIdx, i)
		}
	}

	if len(missingTexts) > 0 {
		instruction := translate.BatchInstruction(req.TargetLang)
		batchResults, err := p.service.BatchTranslate(ctx, req.Provider, missingTexts, req.SourceLang, req.TargetLang, instruction)
		if err != nil {
			p.logger.WithError(err).Warn("Batch translation unavailable, keeping originals")
			for _, i := range missingIdx {
				results[i] = originalResult(req, batch.Texts[i])
			}
		} else {
			for j, i := range missingIdx {
				results[i] = batchResults[j]
				p.storeCached(ctx, req, batch.Texts[i], batchResults[j])
			}
		}
	}

	for path, ref := range batch.Mapping {
		translations[path] = results[ref.Index]
	}
	return hits
}

// translateField translates one non-batched field. Rich text is routed
// through the HTML codec; a value that cannot be translated is skipped so
// reconstruction keeps the original.
func (p *Pipeline) translateField(ctx context.Context, req Request, path string, field fieldmap.ExtractedField) (translate.Result, bool, bool) {
	text, ok := field.Value.(string)
	if !ok {
		return translate.Result{}, false, false
	}

	if field.Type == fieldmap.FieldTypeWysiwyg {
		return p.translateFragment(ctx, req, path, text)
	}

	if result, hit := p.lookupCached(ctx, req, text); hit {
		return result, true, true
	}

	instruction := translate.FragmentInstruction(text, req.TargetLang, "")
	result, err := p.service.Translate(ctx, req.Provider, text, req.SourceLang, req.TargetLang, instruction)
	if err != nil {
		p.logger.WithError(err).WithField("path", path).Warn("Field translation failed, keeping original")
		return originalResult(req, text), false, true
	}
	p.storeCached(ctx, req, text, result)
	return result, false, true
}

// translateFragment translates the text runs of an HTML fragment and
// reassembles the markup. A fragment that fails to decode is treated as
// opaque text; a run that fails to translate keeps its original text.
func (p *Pipeline) translateFragment(ctx context.Context, req Request, path, fragment string) (translate.Result, bool, bool) {
	nodes, err := htmlcodec.Decode(fragment)
	if err != nil || len(nodes) == 0 {
		if err != nil {
			p.logger.WithError(err).WithField("path", path).Warn("HTML decode failed, translating as plain text")
		}
		if result, hit := p.lookupCached(ctx, req, fragment); hit {
			return result, true, true
		}
		result, terr := p.service.Translate(ctx, req.Provider, fragment, req.SourceLang, req.TargetLang,
			translate.FragmentInstruction(fragment, req.TargetLang, ""))
		if terr != nil {
			return originalResult(req, fragment), false, true
		}
		p.storeCached(ctx, req, fragment, result)
		return result, false, true
	}

	contextMD := htmlcodec.ContextMarkdown(fragment)

	nodeTranslations := make(map[string]string, len(nodes))
	var qualitySum float64
	var qualityCount int
	anyHit := false

	for _, node := range nodes {
		if _, done := nodeTranslations[node.Text]; done {
			continue
		}

		if result, hit := p.lookupCached(ctx, req, node.Text); hit {
			nodeTranslations[node.Text] = result.TranslatedText
			qualitySum += result.QualityScore
			qualityCount++
			anyHit = true
			continue
		}

		instruction := translate.FragmentInstruction(node.Text, req.TargetLang, contextMD)
		result, terr := p.service.Translate(ctx, req.Provider, node.Text, req.SourceLang, req.TargetLang, instruction)
		if terr != nil {
			p.logger.WithError(terr).WithField("path", path).Warn("Text run translation failed, keeping original")
			nodeTranslations[node.Text] = node.Text
			qualityCount++
			continue
		}

		nodeTranslations[node.Text] = result.TranslatedText
		qualitySum += result.QualityScore
		qualityCount++
		p.storeCached(ctx, req, node.Text, result)
	}

	encoded, err := htmlcodec.Encode(fragment, nodeTranslations)
	if err != nil {
		p.logger.WithError(err).WithField("path", path).Warn("HTML encode failed, keeping original markup")
		return originalResult(req, fragment), false, true
	}

	quality := 0.0
	if qualityCount > 0 {
		quality = qualitySum / float64(qualityCount)
	}

	return translate.Result{
		TranslatedText: encoded,
		ProviderUsed:   req.Provider,
		SourceLang:     req.SourceLang,
		TargetLang:     req.TargetLang,
		QualityScore:   quality,
		Metadata: map[string]interface{}{
			"html_preserved": true,
			"text_runs":      len(nodeTranslations),
		},
	}, anyHit, true
}

// lookupCached consults the translation memory and the response cache, in
// that order. Both are best-effort; failures are misses.
func (p *Pipeline) lookupCached(ctx context.Context, req Request, text string) (translate.Result, bool) {
	if p.memory != nil {
		if match, found, err := p.memory.Lookup(ctx, req.SourceLang, req.TargetLang, text, memoryMinScore); err == nil && found {
			return translate.Result{
				TranslatedText: match.TranslatedText,
				ProviderUsed:   req.Provider,
				SourceLang:     req.SourceLang,
				TargetLang:     req.TargetLang,
				QualityScore:   float64(match.Score),
				Metadata:       map[string]interface{}{"translation_memory": true},
			}, true
		}
	}

	if p.responses == nil {
		return translate.Result{}, false
	}
	cached, found := p.responses.Get(ctx, cache.Request{
		Prompt:         text,
		Provider:       req.Provider,
		Model:          req.cacheModel(),
		Collection:     req.Collection,
		TargetLanguage: req.TargetLang,
	})
	if !found {
		return translate.Result{}, false
	}
	return translate.Result{
		TranslatedText: cached,
		ProviderUsed:   req.Provider,
		SourceLang:     req.SourceLang,
		TargetLang:     req.TargetLang,
		QualityScore:   1.0,
		Metadata:       map[string]interface{}{"cached": true},
	}, true
}

// storeCached records a fresh provider result in the response cache and the
// translation memory, both best-effort.
func (p *Pipeline) storeCached(ctx context.Context, req Request, text string, result translate.Result) {
	if p.responses != nil {
		p.responses.Put(ctx, cache.Request{
			Prompt:         text,
			Provider:       req.Provider,
			Model:          req.cacheModel(),
			Collection:     req.Collection,
			TargetLanguage: req.TargetLang,
		}, result.TranslatedText, "standard", result.QualityScore)
	}
	if p.memory != nil {
		if err := p.memory.Store(ctx, req.SourceLang, req.TargetLang, text, result.TranslatedText); err != nil {
			p.logger.WithError(err).Debug("Translation memory store failed")
		}
	}
}

func originalResult(req Request, text string) translate.Result {
	return translate.Result{
		TranslatedText: text,
		ProviderUsed:   req.Provider,
		SourceLang:     req.SourceLang,
		TargetLang:     req.TargetLang,
		QualityScore:   0,
		Metadata:       map[string]interface{}{"fallback_original": true},
	}
}

func averageQuality(translations map[string]translate.Result) float64 {
	if len(translations) == 0 {
		return 0
	}
	var sum float64
	for _, r := range translations {
		sum += r.QualityScore
	}
	return sum / float64(len(translations))
}
