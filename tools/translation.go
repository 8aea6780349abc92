package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jneaimi/locplat/pkg/cache"
	"github.com/jneaimi/locplat/pkg/fieldmap"
	"github.com/jneaimi/locplat/pkg/pipeline"
	"github.com/jneaimi/locplat/pkg/tmemory"
	"github.com/jneaimi/locplat/pkg/translate"
	"github.com/jneaimi/locplat/services"
	"github.com/jneaimi/locplat/util"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// translationService registers every provider whose credentials are
// configured.
var translationService = sync.OnceValue(func() *translate.Service {
	service := translate.NewService()

	if os.Getenv("OPENAI_API_KEY") != "" {
		model := envOr("OPENAI_MODEL", "gpt-4o")
		service.Register(translate.NewChatProvider("openai", model, services.DefaultOpenAIClient()))
	}
	if os.Getenv("DEEPSEEK_API_KEY") != "" {
		model := envOr("DEEPSEEK_MODEL", "deepseek-chat")
		service.Register(translate.NewChatProvider("deepseek", model, services.DefaultDeepseekClient()))
	}
	if os.Getenv("MISTRAL_API_KEY") != "" {
		model := envOr("MISTRAL_MODEL", "mistral-large")
		service.Register(translate.NewChatProvider("mistral", model, services.DefaultMistralClient()))
	}
	if os.Getenv("GEMINI_API_KEY") != "" {
		model := envOr("GEMINI_MODEL", "gemini-1.5-flash")
		service.Register(translate.NewGeminiProvider(model, services.DefaultGeminiClient()))
	}

	return service
})

// cacheStore prefers Redis when configured and falls back to the in-process
// store.
var cacheStore = sync.OnceValue(func() cache.Store {
	if os.Getenv("REDIS_ADDR") != "" {
		return cache.NewRedisStore(services.DefaultRedisClient())
	}
	return cache.NewMemoryStore()
})

var responseCache = sync.OnceValue(func() *cache.ResponseCache {
	return cache.NewResponseCache(cacheStore(), time.Hour)
})

var configCache = sync.OnceValue(func() *cache.ConfigCache {
	return cache.NewConfigCache(cacheStore(), time.Hour, 30*time.Minute)
})

var configStore = sync.OnceValue(func() pipeline.ConfigStore {
	return pipeline.NewCachingConfigStore(pipeline.NewMemoryConfigStore(), configCache())
})

var translationPipeline = sync.OnceValue(func() *pipeline.Pipeline {
	p := pipeline.New(configStore(), translationService()).
		WithResponseCache(responseCache()).
		WithExtractionCache(configCache())

	if os.Getenv("QDRANT_HOST") != "" && os.Getenv("OPENAI_API_KEY") != "" {
		collection := envOr("TRANSLATION_MEMORY_COLLECTION", "translation_memory")
		memory := tmemory.New(services.DefaultQdrantClient(), services.DefaultOpenAIClient(), collection)
		if err := memory.EnsureCollection(context.Background()); err == nil {
			p.WithTranslationMemory(memory)
		}
	}

	return p
})

// RegisterTranslationTools exposes structured content translation.
func RegisterTranslationTools(s *server.MCPServer) {
	translateTool := mcp.NewTool("translate_content",
		mcp.WithDescription("Translate a structured CMS document field-by-field, preserving its shape and HTML markup"),
		mcp.WithString("content", mcp.Required(), mcp.Description("The document to translate, as a JSON object")),
		mcp.WithString("client_id", mcp.Required(), mcp.Description("Client identifier owning the field configuration")),
		mcp.WithString("collection", mcp.Required(), mcp.Description("Collection name of the document")),
		mcp.WithString("source_lang", mcp.Required(), mcp.Description("Source language code, e.g. en")),
		mcp.WithString("target_lang", mcp.Required(), mcp.Description("Target language code, e.g. fr or ar")),
		mcp.WithString("provider", mcp.Required(), mcp.Description("Translation provider: openai, deepseek, mistral, or gemini")),
		mcp.WithString("model", mcp.Description("Provider model override")),
	)

	previewTool := mcp.NewTool("preview_translation",
		mcp.WithDescription("List the fields that translate_content would process for a document, without calling any provider"),
		mcp.WithString("content", mcp.Required(), mcp.Description("The document to inspect, as a JSON object")),
		mcp.WithString("client_id", mcp.Required(), mcp.Description("Client identifier owning the field configuration")),
		mcp.WithString("collection", mcp.Required(), mcp.Description("Collection name of the document")),
		mcp.WithString("target_lang", mcp.Required(), mcp.Description("Target language code")),
	)

	configTool := mcp.NewTool("configure_field_mapping",
		mcp.WithDescription("Save the field-mapping configuration for a client/collection pair"),
		mcp.WithString("config", mcp.Required(), mcp.Description("Field-mapping configuration as a JSON object (client_id, collection_name, field_paths, field_types, translation_pattern, ...)")),
	)

	s.AddTool(translateTool, util.ErrorGuard(translateContentHandler))
	s.AddTool(previewTool, util.ErrorGuard(previewTranslationHandler))
	s.AddTool(configTool, util.ErrorGuard(util.AdaptLegacyHandler(configureFieldMappingHandler)))
}

func argString(arguments map[string]interface{}, key string) string {
	v, _ := arguments[key].(string)
	return v
}

// argDocument accepts a JSON object either inline or as a JSON-encoded
// string, since clients differ in how they pass structured arguments.
func argDocument(arguments map[string]interface{}, key string) (map[string]interface{}, error) {
	switch v := arguments[key].(type) {
	case map[string]interface{}:
		return v, nil
	case string:
		var doc map[string]interface{}
		if err := json.Unmarshal([]byte(v), &doc); err != nil {
			return nil, fmt.Errorf("%s is not a valid JSON object: %v", key, err)
		}
		return doc, nil
	default:
		return nil, fmt.Errorf("%s must be a JSON object", key)
	}
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %v", err)
	}
	return mcp.NewToolResultText(string(raw)), nil
}

func translateContentHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	arguments := request.Params.Arguments

	doc, err := argDocument(arguments, "content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	outcome, err := translationPipeline().Translate(ctx, pipeline.Request{
		Content:    doc,
		ClientID:   argString(arguments, "client_id"),
		Collection: argString(arguments, "collection"),
		SourceLang: argString(arguments, "source_lang"),
		TargetLang: argString(arguments, "target_lang"),
		Provider:   argString(arguments, "provider"),
		Model:      argString(arguments, "model"),
	})
	if err != nil {
		return nil, fmt.Errorf("translation failed: %v", err)
	}

	return jsonResult(map[string]interface{}{
		"translated_content": outcome.TranslatedContent,
		"metadata":           outcome.Metadata,
	})
}

func previewTranslationHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	arguments := request.Params.Arguments

	doc, err := argDocument(arguments, "content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	fields, err := translationPipeline().Preview(ctx, doc,
		argString(arguments, "client_id"),
		argString(arguments, "collection"),
		argString(arguments, "target_lang"))
	if err != nil {
		return nil, fmt.Errorf("preview failed: %v", err)
	}

	return jsonResult(map[string]interface{}{
		"fields": fields,
		"count":  len(fields),
	})
}

func configureFieldMappingHandler(arguments map[string]interface{}) (*mcp.CallToolResult, error) {
	raw, err := argDocument(arguments, "config")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to re-encode config: %v", err)
	}
	var cfg fieldmap.Config
	if err := json.Unmarshal(encoded, &cfg); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid field configuration: %v", err)), nil
	}
	if cfg.ClientID == "" || cfg.CollectionName == "" {
		return mcp.NewToolResultError("client_id and collection_name are required"), nil
	}

	if err := configStore().SaveConfig(context.Background(), &cfg); err != nil {
		return nil, fmt.Errorf("failed to save config: %v", err)
	}

	return mcp.NewToolResultText(fmt.Sprintf(
		"Saved field configuration for %s/%s (%d field paths, hash %s)",
		cfg.ClientID, cfg.CollectionName, len(cfg.FieldPaths), cfg.Hash())), nil
}
