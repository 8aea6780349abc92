package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"

	"github.com/jneaimi/locplat/pkg/relations"
	"github.com/sirupsen/logrus"
)

var (
	edgesFile = flag.String("edges", "", "JSON file containing relationship edges to seed")
	neo4jURI  = flag.String("uri", os.Getenv("NEO4J_URI"), "Neo4j connection URI")
	username  = flag.String("username", os.Getenv("NEO4J_USERNAME"), "Neo4j username")
	password  = flag.String("password", os.Getenv("NEO4J_PASSWORD"), "Neo4j password")
	reset     = flag.Bool("reset", false, "Delete existing edges for each source collection before seeding")
	logLevel  = flag.String("log-level", "info", "Logging level (debug, info, warn, error)")
)

func main() {
	flag.Parse()

	logger := logrus.New()
	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		logger.Fatalf("Invalid log level: %v", err)
	}
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	if *edgesFile == "" {
		logger.Fatal("Edges file must be specified")
	}
	if *neo4jURI == "" {
		logger.Fatal("Neo4j URI must be specified (flag or NEO4J_URI)")
	}

	data, err := os.ReadFile(*edgesFile)
	if err != nil {
		logger.Fatalf("Failed to read edges file: %v", err)
	}

	var edges []relations.Edge
	if err := json.Unmarshal(data, &edges); err != nil {
		logger.Fatalf("Failed to parse edges file: %v", err)
	}
	if len(edges) == 0 {
		logger.Fatal("No edges found in input file")
	}

	catalog, err := relations.NewNeo4jCatalog(*neo4jURI, *username, *password)
	if err != nil {
		logger.Fatalf("Failed to create Neo4j catalog: %v", err)
	}
	defer catalog.Close()

	ctx := context.Background()
	if err := catalog.Connect(ctx); err != nil {
		logger.Fatalf("Failed to connect to Neo4j: %v", err)
	}

	if *reset {
		seen := map[string]bool{}
		for _, edge := range edges {
			if seen[edge.SourceCollection] {
				continue
			}
			seen[edge.SourceCollection] = true
			if err := catalog.DeleteCollection(ctx, edge.SourceCollection); err != nil {
				logger.Fatalf("Failed to reset collection %s: %v", edge.SourceCollection, err)
			}
			logger.Infof("Cleared existing edges for collection %s", edge.SourceCollection)
		}
	}

	seeded := 0
	for _, edge := range edges {
		if err := catalog.AddEdge(ctx, edge); err != nil {
			logger.Errorf("Failed to seed edge %s.%s -> %s: %v",
				edge.SourceCollection, edge.SourceField, edge.TargetCollection, err)
			continue
		}
		seeded++
	}

	logger.Infof("Seeded %d of %d relationship edges", seeded, len(edges))
}
