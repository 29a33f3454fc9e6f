package main

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/obsidianmd/obsidian-clipper-sub001/pkg/filters"
	"github.com/obsidianmd/obsidian-clipper-sub001/pkg/store"
	"github.com/obsidianmd/obsidian-clipper-sub001/pkg/template"
)

func testRenderContext(vars map[string]any) *template.RenderContext {
	rc := template.NewRenderContext(vars, "")
	rc.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	rc.Filters = filters.NewRegistry(rc.Logger)
	return rc
}

func TestRenderThroughCachesParsedTemplates(t *testing.T) {
	cache := store.NewParseCache()
	rc := testRenderContext(map[string]any{"name": "Ada"})
	src := "Hello {{ name }}"

	for i := 0; i < 3; i++ {
		res, err := renderThrough(context.Background(), cache, src, rc)
		if err != nil {
			t.Fatalf("pass %d: %v", i, err)
		}
		if res.Output != "Hello Ada" {
			t.Fatalf("pass %d: got %q want %q", i, res.Output, "Hello Ada")
		}
	}
	if cache.Len() != 1 {
		t.Fatalf("cache holds %d entries, want 1", cache.Len())
	}
}

func TestRenderThroughDistinctSources(t *testing.T) {
	cache := store.NewParseCache()
	rc := testRenderContext(map[string]any{"name": "Ada"})

	if _, err := renderThrough(context.Background(), cache, "{{ name }}", rc); err != nil {
		t.Fatal(err)
	}
	if _, err := renderThrough(context.Background(), cache, "{{ name|upper }}", rc); err != nil {
		t.Fatal(err)
	}
	if cache.Len() != 2 {
		t.Fatalf("cache holds %d entries, want 2", cache.Len())
	}
}

func TestRenderThroughSkipsBrokenTemplates(t *testing.T) {
	cache := store.NewParseCache()
	rc := testRenderContext(nil)

	_, err := renderThrough(context.Background(), cache, "{% if x %}no end", rc)
	if err == nil {
		t.Fatal("expected a parse error")
	}
	if cache.Len() != 0 {
		t.Fatalf("broken template was cached, cache holds %d entries", cache.Len())
	}
}
