package template

import (
	"context"
	"log/slog"
)

// DeferredKind identifies which collaborator resolves a deferred value.
type DeferredKind int

const (
	DeferredSelector DeferredKind = iota // selector: content lookup
	DeferredSchema                       // schema: structured-metadata lookup
	DeferredPrompt                       // prompt: or bare quoted string
)

func (k DeferredKind) String() string {
	switch k {
	case DeferredSelector:
		return "selector"
	case DeferredSchema:
		return "schema"
	case DeferredPrompt:
		return "prompt"
	}
	return "unknown"
}

// Deferred describes a value the renderer could not compute synchronously.
type Deferred struct {
	Kind DeferredKind
	// Name is the payload after the reserved prefix: the CSS selector, the
	// schema key, or the prompt text.
	Name string
	// Raw is the full expression text as written inside the delimiters,
	// including any filter chain.
	Raw string
}

// Resolver resolves reserved-prefix values during the first render pass.
// The bool result reports whether the resolver handled the value; an
// unhandled value is re-emitted in its surface syntax for the post-processor.
type Resolver interface {
	Resolve(ctx context.Context, d Deferred) (string, bool, error)
}

// FilterFunc transforms a value with an optional parameter string. Filters
// are total: implementations return the input unchanged when they cannot
// interpret it.
type FilterFunc func(value, param, currentURL string) (string, error)

// FilterInvoker dispatches a filter by name. The bool result reports whether
// the name was known; unknown filters pass the value through unchanged.
type FilterInvoker interface {
	Apply(name, value, param, currentURL string) (string, bool)
}

// RenderContext carries everything a render pass needs. It is created once
// per top-level render call; loop iterations derive shallow copies and never
// mutate their parent.
type RenderContext struct {
	Variables  map[string]any
	CurrentURL string
	TabID      int

	// Resolver, when non-nil, handles reserved-prefix values synchronously
	// from the renderer's point of view (it may block on I/O).
	Resolver Resolver

	// FilterOverrides take priority over Filters for matching names.
	FilterOverrides map[string]FilterFunc

	// Filters is the built-in registry. When nil, every filter is a pass-through.
	Filters FilterInvoker

	Logger *slog.Logger
}

// NewRenderContext returns a context over the given variable map.
func NewRenderContext(vars map[string]any, currentURL string) *RenderContext {
	if vars == nil {
		vars = map[string]any{}
	}
	return &RenderContext{Variables: vars, CurrentURL: currentURL}
}

func (rc *RenderContext) logger() *slog.Logger {
	if rc.Logger != nil {
		return rc.Logger
	}
	return slog.Default()
}

// derive returns a copy of rc with a shallow copy of the variable map, used
// for loop scopes. Writes to the child map are invisible to the parent.
func (rc *RenderContext) derive() *RenderContext {
	child := *rc
	child.Variables = make(map[string]any, len(rc.Variables)+4)
	for k, v := range rc.Variables {
		child.Variables[k] = v
	}
	return &child
}

// Set writes a variable into the current scope.
func (rc *RenderContext) Set(name string, value any) {
	rc.Variables[name] = value
}
