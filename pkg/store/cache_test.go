package store

import (
	"sync"
	"testing"

	"github.com/obsidianmd/obsidian-clipper-sub001/pkg/template"
)

func TestParseCache(t *testing.T) {
	c := NewParseCache()
	src := "Hello {{ name }}"

	if _, ok := c.Get(src); ok {
		t.Fatalf("empty cache returned a hit")
	}

	nodes, errs := template.Parse(src)
	if len(errs) > 0 {
		t.Fatalf("parse: %v", errs)
	}
	c.Put(src, nodes)

	got, ok := c.Get(src)
	if !ok || len(got) != len(nodes) {
		t.Fatalf("Get after Put: ok=%v len=%d", ok, len(got))
	}
	if c.Len() != 1 {
		t.Fatalf("Len: %d", c.Len())
	}

	c.Invalidate(src)
	if _, ok := c.Get(src); ok {
		t.Fatalf("entry survived Invalidate")
	}

	c.Put(src, nodes)
	c.Put("other", nil)
	c.Reset()
	if c.Len() != 0 {
		t.Fatalf("Len after Reset: %d", c.Len())
	}
}

func TestParseCacheConcurrent(t *testing.T) {
	c := NewParseCache()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Put("{{ a }}", nil)
				c.Get("{{ a }}")
				c.Len()
			}
		}()
	}
	wg.Wait()
}
