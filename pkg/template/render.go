package template

import (
	"context"
	"strings"
)

// Result is the outcome of one render pass.
type Result struct {
	Output string
	// Errors are node-local render failures; the rest of the template still
	// rendered normally.
	Errors []*RenderError
	// HasDeferred reports that at least one placeholder was re-emitted for
	// the post-processor. Callers may skip the second pass when false.
	HasDeferred bool
}

// Render evaluates a parsed AST against the render context. Nodes render
// strictly in document order; the only suspension point is the context's
// Resolver. The returned error is non-nil only when ctx is done.
func Render(ctx context.Context, nodes []Node, rc *RenderContext) (Result, error) {
	r := &renderer{}
	out := &output{}
	if err := r.renderNodes(ctx, nodes, rc, out); err != nil {
		return Result{}, err
	}
	return Result{Output: string(out.buf), Errors: r.errs, HasDeferred: r.deferred}, nil
}

type renderer struct {
	errs     []*RenderError
	deferred bool
}

// output accumulates rendered text and carries the pending trim-right flag
// between adjacent nodes.
type output struct {
	buf         []byte
	pendingTrim bool
}

func (o *output) emit(s string) {
	if s == "" {
		return
	}
	if o.pendingTrim {
		o.pendingTrim = false
		s = trimAfterTag(s)
	}
	o.buf = append(o.buf, s...)
}

// trimTail strips trailing spaces/tabs, at most one line terminator, and the
// spaces/tabs preceding it from the accumulated output, implementing
// trim-left.
func (o *output) trimTail() {
	i := len(o.buf)
	for i > 0 && (o.buf[i-1] == ' ' || o.buf[i-1] == '\t') {
		i--
	}
	if i > 0 && o.buf[i-1] == '\n' {
		i--
		if i > 0 && o.buf[i-1] == '\r' {
			i--
		}
		for i > 0 && (o.buf[i-1] == ' ' || o.buf[i-1] == '\t') {
			i--
		}
	}
	o.buf = o.buf[:i]
}

func (r *renderer) report(err *RenderError) {
	if err != nil {
		r.errs = append(r.errs, err)
	}
}

func (r *renderer) renderNodes(ctx context.Context, nodes []Node, rc *RenderContext, out *output) error {
	for _, n := range nodes {
		if err := ctx.Err(); err != nil {
			return err
		}
		switch t := n.(type) {
		case *TextNode:
			out.emit(t.Text)
		case *VariableNode:
			if t.TrimLeft {
				out.trimTail()
			}
			s, deferred := r.evalVariable(ctx, t, rc)
			if deferred {
				r.deferred = true
				out.emit("{{" + t.Raw + "}}")
			} else {
				out.emit(s)
			}
			if t.TrimRight {
				out.pendingTrim = true
			}
		case *SetNode:
			if t.TrimLeft {
				out.trimTail()
			}
			if t.Value != nil && t.Name != "" {
				v, err := evalExpr(ctx, t.Value, rc)
				if err != nil {
					r.report(err)
				} else {
					if _, ok := v.(deferredValue); ok {
						v = ""
					}
					rc.Set(t.Name, v)
				}
			}
			if t.TrimRight {
				out.pendingTrim = true
			}
		case *IfNode:
			if t.TrimLeft {
				out.trimTail()
			}
			if err := r.renderIf(ctx, t, rc, out); err != nil {
				return err
			}
			if t.TrimRight {
				out.pendingTrim = true
			}
		case *ForNode:
			if t.TrimLeft {
				out.trimTail()
			}
			if err := r.renderFor(ctx, t, rc, out); err != nil {
				return err
			}
			if t.TrimRight {
				out.pendingTrim = true
			}
		}
	}
	return nil
}

func (r *renderer) renderIf(ctx context.Context, n *IfNode, rc *RenderContext, out *output) error {
	branch, ok := r.pickBranch(ctx, n, rc)
	if !ok {
		return nil
	}
	return r.renderNodes(ctx, branch, rc, out)
}

// pickBranch evaluates conditions in source order; the first truthy one wins
// and else is the fallback. No match yields no output for the construct.
func (r *renderer) pickBranch(ctx context.Context, n *IfNode, rc *RenderContext) ([]Node, bool) {
	if n.Cond != nil {
		v, err := evalExpr(ctx, n.Cond, rc)
		if err != nil {
			r.report(err)
			return nil, false
		}
		if truthy(v) {
			return n.Then, true
		}
	}
	for _, e := range n.Elifs {
		if e.Cond == nil {
			continue
		}
		v, err := evalExpr(ctx, e.Cond, rc)
		if err != nil {
			r.report(err)
			return nil, false
		}
		if truthy(v) {
			return e.Body, true
		}
	}
	if n.Else != nil {
		return n.Else, true
	}
	return nil, false
}

func (r *renderer) renderFor(ctx context.Context, n *ForNode, rc *RenderContext, out *output) error {
	if n.Iterable == nil || n.Target == "" {
		return nil
	}
	v, rerr := evalExpr(ctx, n.Iterable, rc)
	if rerr != nil {
		r.report(rerr)
		return nil
	}
	items, ok := iterate(v)
	if !ok {
		r.report(renderErrorf(n.Pos, "for iterable is not a sequence (got %T)", v))
		return nil
	}
	if len(items) == 0 {
		return nil
	}
	pieces := make([]string, 0, len(items))
	for idx, item := range items {
		// Loop bindings live in a derived scope discarded after the
		// iteration; writes there never reach the parent context.
		child := rc.derive()
		child.Set(n.Target, item)
		child.Set(n.Target+"_index", int64(idx+1))
		child.Set("loop", map[string]any{
			"index":  int64(idx + 1),
			"index0": int64(idx),
			"first":  idx == 0,
			"last":   idx == len(items)-1,
			"length": int64(len(items)),
		})
		sub := &output{}
		if err := r.renderNodes(ctx, n.Body, child, sub); err != nil {
			return err
		}
		pieces = append(pieces, strings.TrimSpace(string(sub.buf)))
	}
	out.emit(strings.Join(pieces, "\n"))
	return nil
}

// evalVariable renders one interpolation. The second result reports that the
// value is deferred and the caller must re-emit the original placeholder.
func (r *renderer) evalVariable(ctx context.Context, n *VariableNode, rc *RenderContext) (string, bool) {
	if n.Expr == nil {
		return "", false
	}
	// A bare quoted string (optionally filtered) in variable position is a
	// prompt placeholder, not literal output.
	if base, chain := unwrapFilters(n.Expr); isPromptLiteral(base) {
		d := Deferred{Kind: DeferredPrompt, Name: base.(*Literal).Value.(string), Raw: n.Raw}
		if rc.Resolver != nil {
			resolved, handled, err := rc.Resolver.Resolve(ctx, d)
			if err != nil {
				r.report(renderErrorf(n.Pos, "resolving prompt: %v", err))
				return "", false
			}
			if handled {
				return applyChain(ctx, chain, resolved, rc), false
			}
		}
		return "", true
	}
	v, rerr := evalExpr(ctx, n.Expr, rc)
	if rerr != nil {
		r.report(rerr)
		return "", false
	}
	if _, ok := v.(deferredValue); ok {
		return "", true
	}
	return stringify(v), false
}

// unwrapFilters peels a filter chain off an expression, returning the base
// and the filters in application order.
func unwrapFilters(e Expr) (Expr, []*FilterExpr) {
	var chain []*FilterExpr
	for {
		f, ok := e.(*FilterExpr)
		if !ok {
			break
		}
		chain = append([]*FilterExpr{f}, chain...)
		e = f.Value
	}
	return e, chain
}

func isPromptLiteral(e Expr) bool {
	lit, ok := e.(*Literal)
	if !ok || !lit.Quoted {
		return false
	}
	_, isStr := lit.Value.(string)
	return isStr
}

func applyChain(ctx context.Context, chain []*FilterExpr, value string, rc *RenderContext) string {
	for _, f := range chain {
		value = applyFilter(ctx, f, value, rc)
	}
	return value
}
