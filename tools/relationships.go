package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jneaimi/locplat/pkg/pipeline"
	"github.com/jneaimi/locplat/pkg/relations"
	"github.com/jneaimi/locplat/services"
	"github.com/jneaimi/locplat/util"
)

// relationCatalog loads the schema graph from Neo4j when configured, falling
// back to an in-process catalog seeded from RELATIONSHIP_EDGES (a JSON array
// of edges).
var relationCatalog = sync.OnceValue(func() relations.Catalog {
	if os.Getenv("NEO4J_URI") != "" {
		return services.DefaultRelationCatalog()
	}

	catalog := relations.NewMemoryCatalog()
	if raw := os.Getenv("RELATIONSHIP_EDGES"); raw != "" {
		var edges []relations.Edge
		if err := json.Unmarshal([]byte(raw), &edges); err != nil {
			panic(fmt.Sprintf("RELATIONSHIP_EDGES is not a valid edge list: %v", err))
		}
		catalog.Add(edges...)
	}
	return catalog
})

// RegisterRelationshipTools exposes relationship-aware translation and
// schema analysis.
func RegisterRelationshipTools(s *server.MCPServer) {
	translateTool := mcp.NewTool("translate_with_relationships",
		mcp.WithDescription("Translate a document and its embedded related items, following the collection's relationship edges with cycle and depth bounds"),
		mcp.WithString("content", mcp.Required(), mcp.Description("The document to translate, as a JSON object")),
		mcp.WithString("client_id", mcp.Required(), mcp.Description("Client identifier owning the field configurations")),
		mcp.WithString("collection", mcp.Required(), mcp.Description("Collection name of the root document")),
		mcp.WithString("source_lang", mcp.Required(), mcp.Description("Source language code")),
		mcp.WithString("target_lang", mcp.Required(), mcp.Description("Target language code")),
		mcp.WithString("provider", mcp.Required(), mcp.Description("Translation provider: openai, deepseek, mistral, or gemini")),
		mcp.WithNumber("max_depth", mcp.Description("Maximum traversal depth (default 3)")),
	)

	analyzeTool := mcp.NewTool("analyze_relationships",
		mcp.WithDescription("Score the relationship complexity of a collection's schema and recommend traversal settings"),
		mcp.WithString("collection", mcp.Required(), mcp.Description("Collection name to analyze")),
		mcp.WithNumber("max_depth", mcp.Description("Maximum schema depth to walk (default 5)")),
	)

	s.AddTool(translateTool, util.ErrorGuard(translateWithRelationshipsHandler))
	s.AddTool(analyzeTool, util.ErrorGuard(analyzeRelationshipsHandler))
}

func argInt(arguments map[string]interface{}, key string, fallback int) int {
	if v, ok := arguments[key].(float64); ok {
		return int(v)
	}
	return fallback
}

func translateWithRelationshipsHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	arguments := request.Params.Arguments

	doc, err := argDocument(arguments, "content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	base := pipeline.Request{
		ClientID:   argString(arguments, "client_id"),
		SourceLang: argString(arguments, "source_lang"),
		TargetLang: argString(arguments, "target_lang"),
		Provider:   argString(arguments, "provider"),
	}
	engine := relations.NewEngine(relationCatalog(), translationPipeline().ItemTranslator(base))

	result, err := engine.Translate(ctx, doc,
		argString(arguments, "collection"),
		argInt(arguments, "max_depth", relations.DefaultMaxDepth))
	if err != nil {
		return nil, fmt.Errorf("relationship translation failed: %v", err)
	}

	return jsonResult(result)
}

func analyzeRelationshipsHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	arguments := request.Params.Arguments

	engine := relations.NewEngine(relationCatalog(), nil)
	analysis, err := engine.Analyze(ctx,
		argString(arguments, "collection"),
		argInt(arguments, "max_depth", 5))
	if err != nil {
		return nil, fmt.Errorf("relationship analysis failed: %v", err)
	}

	return jsonResult(analysis)
}
