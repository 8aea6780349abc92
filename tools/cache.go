package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jneaimi/locplat/pkg/cache"
	"github.com/jneaimi/locplat/util"
)

// RegisterCacheTools exposes response-cache maintenance.
func RegisterCacheTools(s *server.MCPServer) {
	invalidateTool := mcp.NewTool("invalidate_translation_cache",
		mcp.WithDescription("Delete cached translation responses matching any subset of provider, model, language, and collection; omit all to flush everything"),
		mcp.WithString("provider", mcp.Description("Provider to invalidate")),
		mcp.WithString("model", mcp.Description("Model to invalidate")),
		mcp.WithString("language", mcp.Description("Target language to invalidate")),
		mcp.WithString("collection", mcp.Description("Collection scope to invalidate")),
	)

	statsTool := mcp.NewTool("translation_cache_stats",
		mcp.WithDescription("Report cache hit/miss counters for a provider/model pair"),
		mcp.WithString("provider", mcp.Required(), mcp.Description("Provider name")),
		mcp.WithString("model", mcp.Description("Model name (default: default)")),
	)

	s.AddTool(invalidateTool, util.ErrorGuard(invalidateCacheHandler))
	s.AddTool(statsTool, util.ErrorGuard(util.AdaptLegacyHandler(cacheStatsHandler)))
}

func invalidateCacheHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	arguments := request.Params.Arguments

	filter := cache.InvalidationFilter{
		Provider:   argString(arguments, "provider"),
		Model:      argString(arguments, "model"),
		Language:   argString(arguments, "language"),
		Collection: argString(arguments, "collection"),
	}

	if filter == (cache.InvalidationFilter{}) {
		deleted, err := responseCache().Flush(ctx)
		if err != nil {
			return nil, fmt.Errorf("cache flush failed: %v", err)
		}
		return mcp.NewToolResultText(fmt.Sprintf("Flushed %d cached responses", deleted)), nil
	}

	deleted, err := responseCache().Invalidate(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("cache invalidation failed: %v", err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("Invalidated %d cached responses", deleted)), nil
}

func cacheStatsHandler(arguments map[string]interface{}) (*mcp.CallToolResult, error) {
	provider := argString(arguments, "provider")
	model := argString(arguments, "model")
	if model == "" {
		model = "default"
	}

	hits, misses := responseCache().Stats(context.Background(), provider, model)

	total := hits + misses
	hitRate := 0.0
	if total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return jsonResult(map[string]interface{}{
		"provider": provider,
		"model":    model,
		"hits":     hits,
		"misses":   misses,
		"hit_rate": hitRate,
	})
}
