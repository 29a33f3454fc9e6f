// Package postprocess runs the second resolution pass over rendered output.
// The renderer re-emits placeholders it cannot resolve synchronously
// (selector lookups, schema lookups, prompt placeholders); this pass scans
// for them, dispatches to collaborator-supplied resolvers, re-applies any
// attached filter chain, and splices the results back in.
package postprocess

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/obsidianmd/obsidian-clipper-sub001/pkg/filters"
)

// SelectorResolver looks up page content by CSS selector.
type SelectorResolver interface {
	ResolveSelector(ctx context.Context, selector string, tabID int) (string, error)
}

// SchemaResolver looks up structured metadata (e.g. schema.org values) by key.
type SchemaResolver interface {
	ResolveSchema(ctx context.Context, key, currentURL string) (string, error)
}

// PromptResolver turns prompt text into a final string, typically after a
// round trip to a language model.
type PromptResolver interface {
	ResolvePrompt(ctx context.Context, prompt string) (string, error)
}

// Processor holds the external resolvers and the filter registry used to
// finish a render. Zero-value resolvers are allowed; their placeholders
// resolve to empty, mirroring unresolved-variable semantics.
type Processor struct {
	Selectors SelectorResolver
	Schemas   SchemaResolver
	Prompts   PromptResolver
	Filters   *filters.Registry
	Logger    *slog.Logger
	TabID     int
}

var placeholderRe = regexp.MustCompile(`(?s)\{\{(.+?)\}\}`)

// Process resolves every surviving placeholder in text. Placeholders that do
// not carry a reserved prefix are left untouched; reserved ones that cannot
// be resolved become empty strings. The returned error is non-nil only when
// ctx is done.
func (p *Processor) Process(ctx context.Context, text, currentURL string) (string, error) {
	matches := placeholderRe.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text, nil
	}
	var b strings.Builder
	prev := 0
	for _, m := range matches {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		b.WriteString(text[prev:m[0]])
		prev = m[1]
		inner := strings.TrimSpace(text[m[2]:m[3]])
		replaced, ok := p.resolveOne(ctx, inner, currentURL)
		if ok {
			b.WriteString(replaced)
		} else {
			b.WriteString(text[m[0]:m[1]])
		}
	}
	b.WriteString(text[prev:])
	return b.String(), nil
}

// resolveOne handles a single placeholder body. The bool result is false for
// placeholders that are not in deferred surface syntax.
func (p *Processor) resolveOne(ctx context.Context, inner, currentURL string) (string, bool) {
	parts := filters.SplitPipes(inner)
	head := parts[0]

	var value string
	var err error
	switch {
	case strings.HasPrefix(head, "selector:"):
		sel := strings.TrimSpace(strings.TrimPrefix(head, "selector:"))
		if p.Selectors == nil {
			p.logger().Debug("no selector resolver configured", "selector", sel)
			return "", true
		}
		value, err = p.Selectors.ResolveSelector(ctx, sel, p.TabID)
	case strings.HasPrefix(head, "schema:"):
		key := strings.TrimSpace(strings.TrimPrefix(head, "schema:"))
		if p.Schemas == nil {
			p.logger().Debug("no schema resolver configured", "key", key)
			return "", true
		}
		value, err = p.Schemas.ResolveSchema(ctx, key, currentURL)
	case strings.HasPrefix(head, "prompt:"), isQuoted(head):
		prompt := strings.TrimSpace(strings.TrimPrefix(head, "prompt:"))
		prompt = filters.Unquote(prompt)
		if p.Prompts == nil {
			p.logger().Debug("no prompt resolver configured")
			return "", true
		}
		value, err = p.Prompts.ResolvePrompt(ctx, prompt)
	default:
		return "", false
	}
	if err != nil {
		p.logger().Warn("placeholder resolution failed", "placeholder", head, "error", err)
		return "", true
	}
	return p.applyChain(parts[1:], value, currentURL), true
}

func (p *Processor) applyChain(chain []string, value, currentURL string) string {
	if p.Filters == nil {
		return value
	}
	for _, seg := range chain {
		name := seg
		param := ""
		if i := strings.IndexByte(seg, ':'); i >= 0 {
			name, param = seg[:i], seg[i+1:]
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		out, known := p.Filters.Apply(name, value, param, currentURL)
		if !known {
			p.logger().Debug("unknown filter in deferred chain", "filter", name)
			continue
		}
		value = out
	}
	return value
}

func isQuoted(s string) bool {
	if len(s) < 2 {
		return false
	}
	q := s[0]
	return (q == '\'' || q == '"') && s[len(s)-1] == q
}

func (p *Processor) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}
