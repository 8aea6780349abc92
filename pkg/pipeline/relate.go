package pipeline

import (
	"context"

	"github.com/jneaimi/locplat/pkg/relations"
)

// ItemTranslator adapts the pipeline for the relationship traversal engine:
// each visited item runs through the full structured flow under its own
// collection's configuration.
func (p *Pipeline) ItemTranslator(base Request) relations.ItemTranslator {
	return func(ctx context.Context, doc map[string]interface{}, collection string) (map[string]interface{}, error) {
		req := base
		req.Content = doc
		req.Collection = collection

		outcome, err := p.Translate(ctx, req)
		if err != nil {
			return nil, err
		}
		return outcome.TranslatedContent, nil
	}
}
