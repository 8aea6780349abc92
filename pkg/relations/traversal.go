package relations

import (
	"context"
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/jneaimi/locplat/pkg/content"
)

var (
	itemsTraversed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "locplat_relationship_items_traversed_total",
			Help: "Items visited during relationship-aware translation",
		},
		[]string{"collection"},
	)
	traversalCutoffs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "locplat_relationship_traversal_cutoffs_total",
			Help: "Traversal branches stopped by a cycle or depth bound",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(itemsTraversed)
	prometheus.MustRegister(traversalCutoffs)
}

// DefaultMaxDepth bounds traversal when the caller does not choose one.
const DefaultMaxDepth = 3

// ItemTranslator translates the own fields of one item. The traversal engine
// supplies each visited item to it and assembles the relationship tree around
// the results. Implementations must return a document distinct from doc; the
// engine attaches relationship keys to the returned map.
type ItemTranslator func(ctx context.Context, doc map[string]interface{}, collection string) (map[string]interface{}, error)

// Engine walks a document's relationship tree, translating every reachable
// item while honoring cycle and depth bounds.
type Engine struct {
	catalog   Catalog
	translate ItemTranslator
	logger    *logrus.Logger
}

// NewEngine creates a traversal engine over a schema catalog.
func NewEngine(catalog Catalog, translate ItemTranslator) *Engine {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	return &Engine{
		catalog:   catalog,
		translate: translate,
		logger:    logger,
	}
}

type traversalState struct {
	visited  mapset.Set[string]
	depth    int
	maxDepth int
}

func itemKey(collection string, doc map[string]interface{}) string {
	id, ok := doc["id"]
	if !ok {
		id = "unknown"
	}
	return fmt.Sprintf("%s:%v", collection, id)
}

// Translate translates a document and its embedded related items. A depth of
// zero or less falls back to DefaultMaxDepth. The caller's document is never
// mutated.
func (e *Engine) Translate(ctx context.Context, doc map[string]interface{}, collection string, maxDepth int) (map[string]interface{}, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	state := &traversalState{
		visited:  mapset.NewSet[string](),
		maxDepth: maxDepth,
	}
	return e.walk(ctx, doc, collection, state)
}

func (e *Engine) walk(ctx context.Context, doc map[string]interface{}, collection string, state *traversalState) (map[string]interface{}, error) {
	id, ok := doc["id"]
	if !ok {
		id = "unknown"
	}
	key := itemKey(collection, doc)

	if state.visited.Contains(key) {
		traversalCutoffs.WithLabelValues("cycle").Inc()
		return map[string]interface{}{
			"_circular_reference": true,
			"collection":          collection,
			"id":                  id,
		}, nil
	}
	if state.depth >= state.maxDepth {
		traversalCutoffs.WithLabelValues("depth").Inc()
		return map[string]interface{}{
			"_max_depth_reached": true,
			"collection":         collection,
			"id":                 id,
		}, nil
	}

	// Membership is branch-scoped: an item blocks its own descendants but
	// stays reachable from independent sibling subtrees.
	state.visited.Add(key)
	defer state.visited.Remove(key)

	itemsTraversed.WithLabelValues(collection).Inc()

	translated, err := e.translate(ctx, doc, collection)
	if err != nil {
		e.logger.WithFields(logrus.Fields{
			"collection": collection,
			"id":         id,
		}).WithError(err).Warn("Item translation failed, keeping original")
		translated = content.DeepCopy(doc)
		translated["_translation_error"] = err.Error()
	}

	edges, err := e.catalog.Relationships(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve relationships for %s: %w", collection, err)
	}

	for _, edge := range edges {
		if !edge.TranslateRelated {
			continue
		}

		switch edge.Cardinality {
		case ManyToOne, OneToOne:
			if err := e.walkManyToOne(ctx, translated, edge, state); err != nil {
				return nil, err
			}
		case OneToMany:
			if err := e.walkOneToMany(ctx, translated, edge, state); err != nil {
				return nil, err
			}
		case ManyToMany:
			if err := e.walkManyToMany(ctx, translated, edge, state); err != nil {
				return nil, err
			}
		}
	}

	return translated, nil
}

// walkManyToOne follows a foreign-key field. An embedded object recurses; a
// bare id gets an unexpanded placeholder.
func (e *Engine) walkManyToOne(ctx context.Context, doc map[string]interface{}, edge Edge, state *traversalState) error {
	value, ok := doc[edge.SourceField]
	if !ok || value == nil {
		return nil
	}

	switch related := value.(type) {
	case map[string]interface{}:
		child := &traversalState{visited: state.visited, depth: state.depth + 1, maxDepth: state.maxDepth}
		translated, err := e.walk(ctx, related, edge.TargetCollection, child)
		if err != nil {
			return err
		}
		doc[edge.SourceField+"_translated"] = translated
	case string, int, int64, float64:
		doc[edge.SourceField+"_translated"] = map[string]interface{}{
			"id":             related,
			"collection":     edge.TargetCollection,
			"_relation_type": string(edge.Cardinality),
			"_not_expanded":  true,
		}
	}
	return nil
}

// walkOneToMany follows a reverse foreign key. Children are expected under
// "<target>_items"; when the host did not expand them a zero-count
// placeholder is attached instead.
func (e *Engine) walkOneToMany(ctx context.Context, doc map[string]interface{}, edge Edge, state *traversalState) error {
	fieldName := edge.TargetCollection + "_items"

	value, ok := doc[fieldName]
	if !ok {
		doc[fieldName+"_translated"] = map[string]interface{}{
			"_relation_type":     string(OneToMany),
			"_target_collection": edge.TargetCollection,
			"_not_expanded":      true,
			"count":              0,
		}
		return nil
	}

	items, ok := value.([]interface{})
	if !ok {
		return nil
	}

	translated := make([]interface{}, 0, len(items))
	for _, item := range items {
		childDoc, ok := item.(map[string]interface{})
		if !ok {
			translated = append(translated, item)
			continue
		}
		child := &traversalState{visited: state.visited, depth: state.depth + 1, maxDepth: state.maxDepth}
		result, err := e.walk(ctx, childDoc, edge.TargetCollection, child)
		if err != nil {
			return err
		}
		translated = append(translated, result)
	}

	doc[fieldName+"_translated"] = translated
	return nil
}

// walkManyToMany follows a junction field. Junction envelopes {id, item:{...}}
// are unwrapped for translation and re-wrapped with an item_translated key.
func (e *Engine) walkManyToMany(ctx context.Context, doc map[string]interface{}, edge Edge, state *traversalState) error {
	value, ok := doc[edge.SourceField]
	if !ok {
		return nil
	}

	items, ok := value.([]interface{})
	if !ok {
		return nil
	}

	translated := make([]interface{}, 0, len(items))
	for _, item := range items {
		envelope, ok := item.(map[string]interface{})
		if !ok {
			translated = append(translated, item)
			continue
		}

		child := &traversalState{visited: state.visited, depth: state.depth + 1, maxDepth: state.maxDepth}

		if inner, isJunction := envelope["item"].(map[string]interface{}); edge.JunctionCollection != "" && isJunction {
			result, err := e.walk(ctx, inner, edge.TargetCollection, child)
			if err != nil {
				return err
			}
			wrapped := content.DeepCopy(envelope)
			wrapped["item_translated"] = result
			translated = append(translated, wrapped)
			continue
		}

		result, err := e.walk(ctx, envelope, edge.TargetCollection, child)
		if err != nil {
			return err
		}
		translated = append(translated, result)
	}

	doc[edge.SourceField+"_translated"] = translated
	return nil
}
