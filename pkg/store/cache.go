package store

import (
	"sync"

	"github.com/obsidianmd/obsidian-clipper-sub001/pkg/template"
)

// ParseCache memoizes parsed template ASTs, keyed by source text. It is
// owned by the caller and injected where needed; there is no package-level
// instance. Safe for concurrent use.
type ParseCache struct {
	mu      sync.RWMutex
	entries map[string][]template.Node
}

func NewParseCache() *ParseCache {
	return &ParseCache{entries: make(map[string][]template.Node)}
}

// Get returns the cached AST for a template source.
func (c *ParseCache) Get(src string) ([]template.Node, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	nodes, ok := c.entries[src]
	return nodes, ok
}

// Put stores the parsed AST for a template source. Only structurally valid
// templates should be cached; parse failures are cheap to repeat and their
// diagnostics should stay fresh.
func (c *ParseCache) Put(src string, nodes []template.Node) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[src] = nodes
}

// Invalidate drops a single entry.
func (c *ParseCache) Invalidate(src string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, src)
}

// Reset drops every entry.
func (c *ParseCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string][]template.Node)
}

// Len reports the number of cached templates.
func (c *ParseCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
