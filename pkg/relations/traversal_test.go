package relations

import (
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jneaimi/locplat/pkg/content"
)

// upperTranslator uppercases the title field, standing in for the full
// pipeline.
func upperTranslator(calls *[]string) ItemTranslator {
	return func(_ context.Context, doc map[string]interface{}, collection string) (map[string]interface{}, error) {
		if calls != nil {
			*calls = append(*calls, itemKey(collection, doc))
		}
		out := content.DeepCopy(doc)
		if title, ok := out["title"].(string); ok {
			out["title"] = strings.ToUpper(title)
		}
		return out, nil
	}
}

func articleCategoryCatalog() *MemoryCatalog {
	catalog := NewMemoryCatalog()
	catalog.Add(
		Edge{
			SourceCollection: "articles",
			SourceField:      "category_id",
			TargetCollection: "categories",
			TargetField:      "id",
			Cardinality:      ManyToOne,
			TranslateRelated: true,
		},
		Edge{
			SourceCollection: "categories",
			SourceField:      "featured_article",
			TargetCollection: "articles",
			TargetField:      "id",
			Cardinality:      ManyToOne,
			TranslateRelated: true,
		},
	)
	return catalog
}

func TestTranslateDetectsCycle(t *testing.T) {
	engine := NewEngine(articleCategoryCatalog(), upperTranslator(nil))

	doc := map[string]interface{}{
		"id":    1,
		"title": "hello",
		"category_id": map[string]interface{}{
			"id":    9,
			"title": "news",
			"featured_article": map[string]interface{}{
				"id":    1,
				"title": "hello",
			},
		},
	}

	result, err := engine.Translate(context.Background(), doc, "articles", 3)
	require.NoError(t, err)

	assert.Equal(t, "HELLO", result["title"])

	category, ok := result["category_id_translated"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "NEWS", category["title"])

	marker, ok := category["featured_article_translated"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, marker["_circular_reference"])
	assert.Equal(t, "articles", marker["collection"])
	assert.Equal(t, 1, marker["id"])
}

func TestTranslateStopsAtMaxDepth(t *testing.T) {
	catalog := NewMemoryCatalog()
	catalog.Add(Edge{
		SourceCollection: "categories",
		SourceField:      "parent_id",
		TargetCollection: "categories",
		TargetField:      "id",
		Cardinality:      ManyToOne,
		TranslateRelated: true,
	})
	engine := NewEngine(catalog, upperTranslator(nil))

	doc := map[string]interface{}{
		"id":    1,
		"title": "a",
		"parent_id": map[string]interface{}{
			"id":    2,
			"title": "b",
			"parent_id": map[string]interface{}{
				"id":    3,
				"title": "c",
			},
		},
	}

	result, err := engine.Translate(context.Background(), doc, "categories", 2)
	require.NoError(t, err)

	level1 := result["parent_id_translated"].(map[string]interface{})
	assert.Equal(t, "B", level1["title"])

	marker := level1["parent_id_translated"].(map[string]interface{})
	assert.Equal(t, true, marker["_max_depth_reached"])
	assert.Equal(t, 3, marker["id"])
}

func TestTranslateSiblingsMayRevisit(t *testing.T) {
	catalog := NewMemoryCatalog()
	catalog.Add(
		Edge{
			SourceCollection: "articles",
			SourceField:      "category_id",
			TargetCollection: "categories",
			TargetField:      "id",
			Cardinality:      ManyToOne,
			TranslateRelated: true,
		},
		Edge{
			SourceCollection: "articles",
			SourceField:      "secondary_category",
			TargetCollection: "categories",
			TargetField:      "id",
			Cardinality:      ManyToOne,
			TranslateRelated: true,
		},
	)

	var calls []string
	engine := NewEngine(catalog, upperTranslator(&calls))

	shared := map[string]interface{}{"id": 9, "title": "news"}
	doc := map[string]interface{}{
		"id":                 1,
		"title":              "hello",
		"category_id":        shared,
		"secondary_category": content.DeepCopy(shared),
	}

	result, err := engine.Translate(context.Background(), doc, "articles", 3)
	require.NoError(t, err)

	first := result["category_id_translated"].(map[string]interface{})
	second := result["secondary_category_translated"].(map[string]interface{})
	assert.Equal(t, "NEWS", first["title"])
	assert.Equal(t, "NEWS", second["title"], "sibling branches may visit the same item")

	visits := 0
	for _, call := range calls {
		if call == "categories:9" {
			visits++
		}
	}
	assert.Equal(t, 2, visits)
}

func TestTranslateManyToOnePlaceholder(t *testing.T) {
	engine := NewEngine(articleCategoryCatalog(), upperTranslator(nil))

	doc := map[string]interface{}{
		"id":          1,
		"title":       "hello",
		"category_id": 9,
	}

	result, err := engine.Translate(context.Background(), doc, "articles", 3)
	require.NoError(t, err)

	placeholder, ok := result["category_id_translated"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 9, placeholder["id"])
	assert.Equal(t, "categories", placeholder["collection"])
	assert.Equal(t, true, placeholder["_not_expanded"])
}

func TestTranslateOneToMany(t *testing.T) {
	catalog := NewMemoryCatalog()
	catalog.Add(Edge{
		SourceCollection: "articles",
		SourceField:      "id",
		TargetCollection: "comments",
		TargetField:      "article_id",
		Cardinality:      OneToMany,
		TranslateRelated: true,
	})
	engine := NewEngine(catalog, upperTranslator(nil))

	t.Run("expanded children are translated", func(t *testing.T) {
		doc := map[string]interface{}{
			"id":    1,
			"title": "hello",
			"comments_items": []interface{}{
				map[string]interface{}{"id": 11, "title": "first"},
				map[string]interface{}{"id": 12, "title": "second"},
			},
		}

		result, err := engine.Translate(context.Background(), doc, "articles", 3)
		require.NoError(t, err)

		items := result["comments_items_translated"].([]interface{})
		require.Len(t, items, 2)
		assert.Equal(t, "FIRST", items[0].(map[string]interface{})["title"])
		assert.Equal(t, "SECOND", items[1].(map[string]interface{})["title"])
	})

	t.Run("missing children get a placeholder", func(t *testing.T) {
		doc := map[string]interface{}{"id": 1, "title": "hello"}

		result, err := engine.Translate(context.Background(), doc, "articles", 3)
		require.NoError(t, err)

		placeholder := result["comments_items_translated"].(map[string]interface{})
		assert.Equal(t, true, placeholder["_not_expanded"])
		assert.Equal(t, 0, placeholder["count"])
	})
}

func TestTranslateManyToManyJunction(t *testing.T) {
	catalog := NewMemoryCatalog()
	catalog.Add(Edge{
		SourceCollection:   "articles",
		SourceField:        "tags",
		TargetCollection:   "tags",
		TargetField:        "id",
		Cardinality:        ManyToMany,
		JunctionCollection: "articles_tags",
		TranslateRelated:   true,
	})
	engine := NewEngine(catalog, upperTranslator(nil))

	doc := map[string]interface{}{
		"id":    1,
		"title": "hello",
		"tags": []interface{}{
			map[string]interface{}{
				"id":   100,
				"item": map[string]interface{}{"id": 7, "title": "golang"},
			},
		},
	}

	result, err := engine.Translate(context.Background(), doc, "articles", 3)
	require.NoError(t, err)

	tags := result["tags_translated"].([]interface{})
	require.Len(t, tags, 1)

	envelope := tags[0].(map[string]interface{})
	assert.Equal(t, 100, envelope["id"], "junction envelope is preserved")

	inner := envelope["item_translated"].(map[string]interface{})
	assert.Equal(t, "GOLANG", inner["title"])
}

func TestTranslateItemFailureIsIsolated(t *testing.T) {
	catalog := NewMemoryCatalog()
	catalog.Add(Edge{
		SourceCollection: "articles",
		SourceField:      "id",
		TargetCollection: "comments",
		TargetField:      "article_id",
		Cardinality:      OneToMany,
		TranslateRelated: true,
	})

	failing := func(_ context.Context, doc map[string]interface{}, collection string) (map[string]interface{}, error) {
		if collection == "comments" {
			if id, _ := doc["id"].(int); id == 11 {
				return nil, errors.New("provider timeout")
			}
		}
		out := content.DeepCopy(doc)
		if title, ok := out["title"].(string); ok {
			out["title"] = strings.ToUpper(title)
		}
		return out, nil
	}
	engine := NewEngine(catalog, failing)

	doc := map[string]interface{}{
		"id":    1,
		"title": "hello",
		"comments_items": []interface{}{
			map[string]interface{}{"id": 11, "title": "first"},
			map[string]interface{}{"id": 12, "title": "second"},
		},
	}

	result, err := engine.Translate(context.Background(), doc, "articles", 3)
	require.NoError(t, err)

	items := result["comments_items_translated"].([]interface{})
	require.Len(t, items, 2)

	failed := items[0].(map[string]interface{})
	assert.Equal(t, "first", failed["title"], "failed item keeps its original text")
	assert.Contains(t, failed["_translation_error"], "provider timeout")

	ok := items[1].(map[string]interface{})
	assert.Equal(t, "SECOND", ok["title"], "siblings continue after a failure")
}

func TestTranslateDoesNotMutateCaller(t *testing.T) {
	engine := NewEngine(articleCategoryCatalog(), upperTranslator(nil))

	doc := map[string]interface{}{
		"id":          1,
		"title":       "hello",
		"category_id": 9,
	}

	_, err := engine.Translate(context.Background(), doc, "articles", 3)
	require.NoError(t, err)

	assert.Equal(t, "hello", doc["title"])
	_, leaked := doc["category_id_translated"]
	assert.False(t, leaked)
}

func TestTranslateSkipsUnflaggedEdges(t *testing.T) {
	catalog := NewMemoryCatalog()
	catalog.Add(Edge{
		SourceCollection: "articles",
		SourceField:      "category_id",
		TargetCollection: "categories",
		TargetField:      "id",
		Cardinality:      ManyToOne,
		TranslateRelated: false,
	})
	engine := NewEngine(catalog, upperTranslator(nil))

	doc := map[string]interface{}{"id": 1, "title": "hello", "category_id": 9}

	result, err := engine.Translate(context.Background(), doc, "articles", 3)
	require.NoError(t, err)

	_, attached := result["category_id_translated"]
	assert.False(t, attached)
}
