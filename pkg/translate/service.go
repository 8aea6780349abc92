package translate

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

var (
	translationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "translate_request_duration_seconds",
			Help: "Time spent in provider translation calls",
		},
		[]string{"provider", "status"},
	)

	unitsTranslated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "translate_units_total",
			Help: "Number of translation units processed",
		},
		[]string{"provider", "status"},
	)
)

func init() {
	prometheus.MustRegister(translationDuration)
	prometheus.MustRegister(unitsTranslated)
}

// Service routes translation calls to a named provider.
type Service struct {
	mu        sync.RWMutex
	providers map[string]Translator
	logger    *logrus.Logger
}

// NewService creates an empty provider registry.
func NewService() *Service {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	return &Service{
		providers: make(map[string]Translator),
		logger:    logger,
	}
}

// Register adds a provider under its own name.
func (s *Service) Register(t Translator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.providers[t.Name()] = t
}

// Providers lists registered provider names.
func (s *Service) Providers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.providers))
	for name := range s.providers {
		names = append(names, name)
	}
	return names
}

// Provider returns a registered translator by name.
func (s *Service) Provider(name string) (Translator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.providers[name]
	if !ok {
		return nil, errors.Wrap(ErrUnknownProvider, name)
	}
	return t, nil
}

// Translate translates one text with the named provider.
func (s *Service) Translate(ctx context.Context, provider, text, sourceLang, targetLang, instruction string) (Result, error) {
	t, err := s.Provider(provider)
	if err != nil {
		return Result{}, err
	}
	if !t.SupportsLanguagePair(sourceLang, targetLang) {
		return Result{}, errors.Wrapf(ErrUnsupportedLanguagePair, "%s: %s->%s", provider, sourceLang, targetLang)
	}

	start := time.Now()
	result, err := t.Translate(ctx, text, sourceLang, targetLang, instruction)
	status := "success"
	if err != nil {
		status = "error"
	}
	translationDuration.WithLabelValues(provider, status).Observe(time.Since(start).Seconds())
	unitsTranslated.WithLabelValues(provider, status).Inc()

	if err != nil {
		s.logger.WithError(err).WithField("provider", provider).Error("Translation failed")
		return Result{}, err
	}
	return result, nil
}

// BatchTranslate translates texts with the named provider, preserving order.
// When the concurrent batch path fails it is abandoned and each text is
// retried sequentially; a text that still fails keeps its original value
// with a zero quality score rather than failing the call.
func (s *Service) BatchTranslate(ctx context.Context, provider string, texts []string, sourceLang, targetLang, instruction string) ([]Result, error) {
	t, err := s.Provider(provider)
	if err != nil {
		return nil, err
	}
	if !t.SupportsLanguagePair(sourceLang, targetLang) {
		return nil, errors.Wrapf(ErrUnsupportedLanguagePair, "%s: %s->%s", provider, sourceLang, targetLang)
	}

	start := time.Now()
	results, err := t.BatchTranslate(ctx, texts, sourceLang, targetLang, instruction)
	if err == nil {
		translationDuration.WithLabelValues(provider, "success").Observe(time.Since(start).Seconds())
		return results, nil
	}

	translationDuration.WithLabelValues(provider, "batch_fallback").Observe(time.Since(start).Seconds())
	s.logger.WithError(err).WithField("provider", provider).
		Warn("Batch translation failed, falling back to sequential")

	results = make([]Result, len(texts))
	for i, text := range texts {
		r, terr := t.Translate(ctx, text, sourceLang, targetLang, instruction)
		if terr != nil {
			unitsTranslated.WithLabelValues(provider, "error").Inc()
			results[i] = Result{
				TranslatedText: text,
				ProviderUsed:   provider,
				SourceLang:     sourceLang,
				TargetLang:     targetLang,
				QualityScore:   0,
				Metadata:       map[string]interface{}{"fallback_original": true},
			}
			continue
		}
		unitsTranslated.WithLabelValues(provider, "success").Inc()
		results[i] = r
	}
	return results, nil
}
