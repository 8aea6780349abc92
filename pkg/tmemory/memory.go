package tmemory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

// embeddingDimensions maps supported embedding models to their vector size.
var embeddingDimensions = map[openai.EmbeddingModel]uint64{
	openai.AdaEmbeddingV2:  1536,
	openai.SmallEmbedding3: 512,
	openai.LargeEmbedding3: 2048,
}

// DefaultModel is used when no embedding model is configured.
const DefaultModel = openai.SmallEmbedding3

// Memory is a similarity-based translation memory: previously produced
// translations are stored as embedding points and reused when a new source
// text is close enough to a known one. It is an accelerator in front of the
// providers; every failure is treated as a miss by callers.
type Memory struct {
	qdrant     *qdrant.Client
	embedder   *openai.Client
	collection string
	model      openai.EmbeddingModel
	logger     *logrus.Logger
}

// Match is one reusable translation found by Lookup.
type Match struct {
	SourceText     string
	TranslatedText string
	Score          float32
}

// New creates a translation memory over a Qdrant collection.
func New(qdrantClient *qdrant.Client, embedder *openai.Client, collection string) *Memory {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	return &Memory{
		qdrant:     qdrantClient,
		embedder:   embedder,
		collection: collection,
		model:      DefaultModel,
		logger:     logger,
	}
}

// SetModel overrides the embedding model. Unknown models are rejected.
func (m *Memory) SetModel(model openai.EmbeddingModel) error {
	if _, ok := embeddingDimensions[model]; !ok {
		return fmt.Errorf("unsupported embedding model: %s", model)
	}
	m.model = model
	return nil
}

// EnsureCollection creates the backing collection if it does not exist.
func (m *Memory) EnsureCollection(ctx context.Context) error {
	info, err := m.qdrant.GetCollectionInfo(ctx, m.collection)
	if err == nil && info != nil {
		return nil
	}

	err = m.qdrant.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: m.collection,
		VectorsConfig: &qdrant.VectorsConfig{
			Config: &qdrant.VectorsConfig_Params{
				Params: &qdrant.VectorParams{
					Size:     embeddingDimensions[m.model],
					Distance: qdrant.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %v", err)
	}
	return nil
}

func (m *Memory) embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := m.embedder.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: m.model,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings: %v", err)
	}
	return resp.Data[0].Embedding, nil
}

// Store upserts one translation pair. The point id is derived from the
// language pair and source text, so re-storing the same pair overwrites in
// place instead of accumulating duplicates.
func (m *Memory) Store(ctx context.Context, sourceLang, targetLang, sourceText, translatedText string) error {
	vector, err := m.embed(ctx, sourceText)
	if err != nil {
		return err
	}

	pointID := uuid.NewSHA1(uuid.NameSpaceURL,
		[]byte(sourceLang+":"+targetLang+":"+sourceText)).String()

	waitUpsert := true
	_, err = m.qdrant.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: m.collection,
		Wait:           &waitUpsert,
		Points: []*qdrant.PointStruct{
			{
				Id:      qdrant.NewIDUUID(pointID),
				Vectors: qdrant.NewVectors(vector...),
				Payload: qdrant.NewValueMap(map[string]any{
					"source_text":     sourceText,
					"translated_text": translatedText,
					"source_lang":     sourceLang,
					"target_lang":     targetLang,
					"model":           string(m.model),
				}),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to upsert translation point: %v", err)
	}
	return nil
}

func languageFilter(sourceLang, targetLang string) *qdrant.Filter {
	match := func(key, value string) *qdrant.Condition {
		return &qdrant.Condition{
			ConditionOneOf: &qdrant.Condition_Field{
				Field: &qdrant.FieldCondition{
					Key: key,
					Match: &qdrant.Match{
						MatchValue: &qdrant.Match_Text{Text: value},
					},
				},
			},
		}
	}
	return &qdrant.Filter{
		Must: []*qdrant.Condition{
			match("source_lang", sourceLang),
			match("target_lang", targetLang),
		},
	}
}

// Lookup searches for a reusable translation of text. It returns the best
// match at or above minScore, or found=false.
func (m *Memory) Lookup(ctx context.Context, sourceLang, targetLang, text string, minScore float32) (*Match, bool, error) {
	vector, err := m.embed(ctx, text)
	if err != nil {
		return nil, false, err
	}

	limit := uint64(1)
	hits, err := m.qdrant.Query(ctx, &qdrant.QueryPoints{
		CollectionName: m.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		ScoreThreshold: &minScore,
		Filter:         languageFilter(sourceLang, targetLang),
		WithPayload: &qdrant.WithPayloadSelector{
			SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true},
		},
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to search translation memory: %v", err)
	}
	if len(hits) == 0 {
		return nil, false, nil
	}

	hit := hits[0]
	match := &Match{
		SourceText:     hit.Payload["source_text"].GetStringValue(),
		TranslatedText: hit.Payload["translated_text"].GetStringValue(),
		Score:          hit.Score,
	}
	m.logger.WithFields(logrus.Fields{
		"score":       match.Score,
		"source_lang": sourceLang,
		"target_lang": targetLang,
	}).Debug("Translation memory hit")
	return match, true, nil
}
