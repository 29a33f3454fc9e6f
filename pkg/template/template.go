package template

import (
	"context"
	"log/slog"
	"strings"

	"github.com/obsidianmd/obsidian-clipper-sub001/pkg/filters"
)

// ParseErrors aggregates parse failures into a single error value.
type ParseErrors []*ParseError

func (e ParseErrors) Error() string {
	var b strings.Builder
	for i, pe := range e {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(pe.Error())
	}
	return b.String()
}

// Validate parses src and reports structural errors without rendering.
func Validate(src string) error {
	if _, errs := Parse(src); len(errs) > 0 {
		return ParseErrors(errs)
	}
	return nil
}

// RenderString parses and renders src in one call. A structurally broken
// template yields a zero Result and the parse errors as the returned error;
// nothing partial is produced.
func RenderString(ctx context.Context, src string, rc *RenderContext) (Result, error) {
	nodes, errs := Parse(src)
	if len(errs) > 0 {
		return Result{}, ParseErrors(errs)
	}
	return Render(ctx, nodes, rc)
}

// RenderTemplate is the fire-and-forget wrapper: errors are logged and
// discarded, and whatever output was produced comes back. The built-in
// filter set is active; callers needing overrides or a resolver use
// RenderString with a configured RenderContext.
func RenderTemplate(ctx context.Context, src string, vars map[string]any, currentURL string) string {
	rc := NewRenderContext(vars, currentURL)
	rc.Filters = filters.NewRegistry(nil)
	res, err := RenderString(ctx, src, rc)
	if err != nil {
		slog.Error("template did not parse", "error", err)
		return ""
	}
	for _, re := range res.Errors {
		slog.Warn("template render error", "error", re)
	}
	return res.Output
}
