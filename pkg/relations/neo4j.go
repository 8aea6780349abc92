package relations

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v4/neo4j"
)

// Neo4jCatalog persists the schema graph as
// (:Collection)-[:RELATES]->(:Collection), one relationship per edge.
type Neo4jCatalog struct {
	driver  neo4j.Driver
	uri     string
	auth    neo4j.AuthToken
	session neo4j.Session
}

// NewNeo4jCatalog creates a catalog backed by a Neo4j instance.
func NewNeo4jCatalog(uri, username, password string) (*Neo4jCatalog, error) {
	auth := neo4j.BasicAuth(username, password, "")
	driver, err := neo4j.NewDriver(uri, auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create Neo4j driver: %v", err)
	}

	return &Neo4jCatalog{
		driver: driver,
		uri:    uri,
		auth:   auth,
	}, nil
}

// Connect opens the working session.
func (c *Neo4jCatalog) Connect(ctx context.Context) error {
	c.session = c.driver.NewSession(neo4j.SessionConfig{})
	return nil
}

// Close releases the session and driver.
func (c *Neo4jCatalog) Close() error {
	if c.session != nil {
		c.session.Close()
	}
	if c.driver != nil {
		return c.driver.Close()
	}
	return nil
}

// AddEdge stores one schema edge, creating the collection nodes on demand.
func (c *Neo4jCatalog) AddEdge(ctx context.Context, edge Edge) error {
	query := `
		MERGE (src:Collection {name: $source})
		MERGE (dst:Collection {name: $target})
		CREATE (src)-[r:RELATES {
			source_field: $sourceField,
			target_field: $targetField,
			cardinality: $cardinality,
			junction_collection: $junction,
			translate_related: $translateRelated
		}]->(dst)
	`

	params := map[string]interface{}{
		"source":           edge.SourceCollection,
		"target":           edge.TargetCollection,
		"sourceField":      edge.SourceField,
		"targetField":      edge.TargetField,
		"cardinality":      string(edge.Cardinality),
		"junction":         edge.JunctionCollection,
		"translateRelated": edge.TranslateRelated,
	}

	_, err := c.session.Run(query, params)
	return err
}

// Relationships implements Catalog.
func (c *Neo4jCatalog) Relationships(ctx context.Context, collection string) ([]Edge, error) {
	query := `
		MATCH (src:Collection {name: $name})-[r:RELATES]->(dst:Collection)
		RETURN r, dst.name
	`

	result, err := c.session.Run(query, map[string]interface{}{"name": collection})
	if err != nil {
		return nil, err
	}

	edges := make([]Edge, 0)
	for result.Next() {
		record := result.Record()
		rel := record.Values[0].(neo4j.Relationship)
		target, _ := record.Values[1].(string)

		edge := Edge{
			SourceCollection: collection,
			TargetCollection: target,
		}
		if v, ok := rel.Props["source_field"].(string); ok {
			edge.SourceField = v
		}
		if v, ok := rel.Props["target_field"].(string); ok {
			edge.TargetField = v
		}
		if v, ok := rel.Props["cardinality"].(string); ok {
			edge.Cardinality = Cardinality(v)
		}
		if v, ok := rel.Props["junction_collection"].(string); ok {
			edge.JunctionCollection = v
		}
		if v, ok := rel.Props["translate_related"].(bool); ok {
			edge.TranslateRelated = v
		}
		edges = append(edges, edge)
	}

	return edges, nil
}

// DeleteCollection removes a collection node and every edge touching it.
func (c *Neo4jCatalog) DeleteCollection(ctx context.Context, collection string) error {
	query := `
		MATCH (src:Collection {name: $name})
		DETACH DELETE src
	`

	_, err := c.session.Run(query, map[string]interface{}{"name": collection})
	return err
}
