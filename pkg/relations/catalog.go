package relations

import (
	"context"
	"sync"
)

// Catalog resolves the relationship edges of a collection. Edges are static
// and cacheable for the lifetime of a schema version.
type Catalog interface {
	Relationships(ctx context.Context, collection string) ([]Edge, error)
}

// MemoryCatalog is an in-process Catalog fed by the host at startup.
type MemoryCatalog struct {
	mu    sync.RWMutex
	edges map[string][]Edge
}

// NewMemoryCatalog creates an empty catalog.
func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{edges: make(map[string][]Edge)}
}

// Add registers edges under their source collection.
func (c *MemoryCatalog) Add(edges ...Edge) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, edge := range edges {
		c.edges[edge.SourceCollection] = append(c.edges[edge.SourceCollection], edge)
	}
}

// Relationships implements Catalog. Unknown collections have no edges.
func (c *MemoryCatalog) Relationships(_ context.Context, collection string) ([]Edge, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	edges := c.edges[collection]
	out := make([]Edge, len(edges))
	copy(out, edges)
	return out, nil
}
