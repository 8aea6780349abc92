package relations

import (
	"context"
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
)

// Analysis describes the translation cost of a collection's relationship
// structure. Advisory only.
type Analysis struct {
	Collection          string              `json:"collection"`
	DirectRelationships int                 `json:"direct_relationships"`
	RelationshipTypes   map[Cardinality]int `json:"relationship_types"`
	CircularReferences  []string            `json:"circular_references"`
	MaxDepthFound       int                 `json:"max_depth_found"`
	ComplexityScore     int                 `json:"complexity_score"`
	Recommendations     []string            `json:"recommendations"`
}

// Analyze walks the schema graph from a collection and scores its
// relationship complexity. It inspects edges only, never data.
func (e *Engine) Analyze(ctx context.Context, collection string, maxDepth int) (*Analysis, error) {
	if maxDepth <= 0 {
		maxDepth = 5
	}

	edges, err := e.catalog.Relationships(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve relationships for %s: %w", collection, err)
	}

	analysis := &Analysis{
		Collection:          collection,
		DirectRelationships: len(edges),
		RelationshipTypes:   make(map[Cardinality]int),
		CircularReferences:  []string{},
	}
	for _, edge := range edges {
		analysis.RelationshipTypes[edge.Cardinality]++
	}

	if err := e.analyzeDepth(ctx, collection, 0, maxDepth, mapset.NewSet[string](), analysis); err != nil {
		return nil, err
	}

	analysis.ComplexityScore = complexityScore(analysis)
	analysis.Recommendations = recommendations(analysis)
	return analysis, nil
}

func (e *Engine) analyzeDepth(ctx context.Context, collection string, depth, maxDepth int, visited mapset.Set[string], analysis *Analysis) error {
	if visited.Contains(collection) {
		analysis.CircularReferences = append(analysis.CircularReferences, collection)
		return nil
	}
	if depth >= maxDepth {
		return nil
	}

	visited.Add(collection)
	if depth > analysis.MaxDepthFound {
		analysis.MaxDepthFound = depth
	}

	edges, err := e.catalog.Relationships(ctx, collection)
	if err != nil {
		return err
	}
	for _, edge := range edges {
		// Each branch walks its own copy so siblings can share targets
		// without being reported as cycles.
		if err := e.analyzeDepth(ctx, edge.TargetCollection, depth+1, maxDepth, visited.Clone(), analysis); err != nil {
			return err
		}
	}
	return nil
}

func complexityScore(analysis *Analysis) int {
	score := analysis.DirectRelationships * 10
	for cardinality, count := range analysis.RelationshipTypes {
		score += cardinalityWeights[cardinality] * count
	}
	score += analysis.MaxDepthFound * 20
	score += len(analysis.CircularReferences) * 50
	return score
}

func recommendations(analysis *Analysis) []string {
	recs := []string{}

	switch {
	case analysis.ComplexityScore < 50:
		recs = append(recs, "Low complexity - standard translation settings recommended")
	case analysis.ComplexityScore < 150:
		recs = append(recs, "Medium complexity - consider limiting relationship depth to 2-3 levels")
	default:
		recs = append(recs, "High complexity - limit relationship depth to 1-2 levels for performance")
	}

	if len(analysis.CircularReferences) > 0 {
		recs = append(recs, "Circular references detected - ensure proper cycle detection is enabled")
	}
	if analysis.RelationshipTypes[ManyToMany] > 3 {
		recs = append(recs, "Many many-to-many relationships - consider selective translation")
	}
	if analysis.RelationshipTypes[OneToMany] > 5 {
		recs = append(recs, "Many one-to-many relationships - use batch processing for better performance")
	}
	if analysis.MaxDepthFound > 4 {
		recs = append(recs, "Deep nesting detected - consider flattening structure or limiting depth")
	}

	return recs
}
