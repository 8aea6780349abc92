package services

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/jneaimi/locplat/pkg/relations"
)

var DefaultRelationCatalog = sync.OnceValue(func() *relations.Neo4jCatalog {
	uri := os.Getenv("NEO4J_URI")
	username := os.Getenv("NEO4J_USERNAME")
	password := os.Getenv("NEO4J_PASSWORD")
	if uri == "" || username == "" || password == "" {
		panic("NEO4J_URI, NEO4J_USERNAME, or NEO4J_PASSWORD is not set; the relationship catalog cannot start without them")
	}

	catalog, err := relations.NewNeo4jCatalog(uri, username, password)
	if err != nil {
		panic(fmt.Sprintf("failed to create Neo4j catalog: %v", err))
	}
	if err := catalog.Connect(context.Background()); err != nil {
		panic(fmt.Sprintf("failed to connect to Neo4j: %v", err))
	}

	return catalog
})
