package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func RegisterTranslationPrompts(s *server.MCPServer) {
	review := mcp.NewPrompt("translation_review",
		mcp.WithPromptDescription("Review a translated document against its source"),
		mcp.WithArgument("target_language", mcp.ArgumentDescription("Language the content was translated into")),
		mcp.WithArgument("collection", mcp.ArgumentDescription("CMS collection the content belongs to")),
	)
	s.AddPrompt(review, translationReviewHandler)
}

func translationReviewHandler(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	targetLanguage := request.Params.Arguments["target_language"]
	collection := request.Params.Arguments["collection"]

	scope := "the document"
	if collection != "" {
		scope = fmt.Sprintf("the %s item", collection)
	}

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Translation review for %s content", targetLanguage),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf("Use translate_content with preview first, then review %s translated into %s: check that HTML structure is preserved, placeholders and brand names are untouched, and flag any field where the translation drifted from the source meaning", scope, targetLanguage),
				},
			},
		},
	}, nil
}
