package template

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
)

// deferredValue is the in-band marker for a value that could not be resolved
// synchronously. It stringifies to empty and is falsy, so a deferred value in
// a condition or loop behaves like an unresolved variable.
type deferredValue struct {
	d Deferred
}

// evalExpr evaluates an expression against the render context. A returned
// *RenderError is node-local: the caller records it and substitutes empty
// output.
func evalExpr(ctx context.Context, e Expr, rc *RenderContext) (any, *RenderError) {
	switch t := e.(type) {
	case *Literal:
		return t.Value, nil
	case *Identifier:
		return evalIdentifier(ctx, t, rc)
	case *Member:
		return evalMember(ctx, t, rc)
	case *Group:
		return evalExpr(ctx, t.Inner, rc)
	case *Unary:
		v, err := evalExpr(ctx, t.Operand, rc)
		if err != nil {
			return nil, err
		}
		return !truthy(v), nil
	case *Binary:
		return evalBinary(ctx, t, rc)
	case *FilterExpr:
		v, err := evalExpr(ctx, t.Value, rc)
		if err != nil {
			return nil, err
		}
		if dv, ok := v.(deferredValue); ok {
			// Filters on a deferred value run in the second pass.
			return dv, nil
		}
		return applyFilter(ctx, t, stringify(v), rc), nil
	}
	return nil, renderErrorf(e.Position(), "unsupported expression %T", e)
}

func evalIdentifier(ctx context.Context, id *Identifier, rc *RenderContext) (any, *RenderError) {
	if prefix, ok := reservedPrefix(id.Name); ok {
		d := Deferred{
			Kind: kindForPrefix(prefix),
			Name: strings.TrimSpace(strings.TrimPrefix(id.Name, prefix)),
			Raw:  id.Name,
		}
		if rc.Resolver != nil {
			resolved, handled, err := rc.Resolver.Resolve(ctx, d)
			if err != nil {
				return nil, renderErrorf(id.Pos, "resolving %s value: %v", d.Kind, err)
			}
			if handled {
				return resolved, nil
			}
		}
		return deferredValue{d: d}, nil
	}
	if v, ok := rc.Variables[id.Name]; ok {
		return v, nil
	}
	// Unresolved plain names are not errors; they render as empty.
	return nil, nil
}

func kindForPrefix(prefix string) DeferredKind {
	switch prefix {
	case "selector:":
		return DeferredSelector
	case "schema:":
		return DeferredSchema
	}
	return DeferredPrompt
}

func evalMember(ctx context.Context, m *Member, rc *RenderContext) (any, *RenderError) {
	// Exact match on the written path wins over traversal, so a variable
	// literally named "author.name" shadows nested lookup.
	if path, ok := memberPath(m); ok {
		if v, exact := rc.Variables[path]; exact {
			return v, nil
		}
	}
	obj, err := evalExpr(ctx, m.Object, rc)
	if err != nil {
		return nil, err
	}
	key, err := evalExpr(ctx, m.Property, rc)
	if err != nil {
		return nil, err
	}
	return lookupProperty(obj, key), nil
}

// memberPath reconstructs a dotted/bracketed path for exact-match lookup.
func memberPath(e Expr) (string, bool) {
	switch t := e.(type) {
	case *Identifier:
		if _, reserved := reservedPrefix(t.Name); reserved {
			return "", false
		}
		return t.Name, true
	case *Member:
		base, ok := memberPath(t.Object)
		if !ok {
			return "", false
		}
		if lit, isLit := t.Property.(*Literal); isLit {
			if t.Computed {
				return base + "[" + stringify(lit.Value) + "]", true
			}
			if s, isStr := lit.Value.(string); isStr {
				return base + "." + s, true
			}
		}
	}
	return "", false
}

// lookupProperty resolves one step of member access. A string value that
// holds JSON is decoded first, matching the engine-wide convention that
// structured values travel as JSON text.
func lookupProperty(obj, key any) any {
	switch o := obj.(type) {
	case nil:
		return nil
	case deferredValue:
		return nil
	case string:
		var decoded any
		s := strings.TrimSpace(o)
		if len(s) > 0 && (s[0] == '[' || s[0] == '{') && json.Unmarshal([]byte(s), &decoded) == nil {
			return lookupProperty(decoded, key)
		}
		return nil
	case map[string]any:
		return o[stringify(key)]
	case []any:
		idx, ok := toIndex(key)
		if !ok || idx < 0 || idx >= len(o) {
			return nil
		}
		return o[idx]
	case []string:
		idx, ok := toIndex(key)
		if !ok || idx < 0 || idx >= len(o) {
			return nil
		}
		return o[idx]
	}
	return nil
}

func toIndex(key any) (int, bool) {
	switch k := key.(type) {
	case int64:
		return int(k), true
	case float64:
		return int(k), true
	case string:
		n, err := strconv.Atoi(k)
		return n, err == nil
	}
	return 0, false
}

func evalBinary(ctx context.Context, b *Binary, rc *RenderContext) (any, *RenderError) {
	left, err := evalExpr(ctx, b.Left, rc)
	if err != nil {
		return nil, err
	}
	// ?? is the only short-circuiting operator: the right side is skipped
	// when the left is truthy.
	if b.Op == "??" {
		if truthy(left) {
			return left, nil
		}
		return evalExpr(ctx, b.Right, rc)
	}
	right, err := evalExpr(ctx, b.Right, rc)
	if err != nil {
		return nil, err
	}
	switch b.Op {
	case "and":
		return truthy(left) && truthy(right), nil
	case "or":
		return truthy(left) || truthy(right), nil
	case "==":
		return looseEqual(left, right), nil
	case "!=":
		return !looseEqual(left, right), nil
	case ">", "<", ">=", "<=":
		return compareOrdered(b.Op, left, right), nil
	case "contains":
		return containsValue(left, right), nil
	}
	return nil, renderErrorf(b.Pos, "unsupported operator %q", b.Op)
}

// looseEqual compares numerically when both sides look numeric, otherwise by
// string form.
func looseEqual(a, b any) bool {
	if fa, aok := toNumber(a); aok {
		if fb, bok := toNumber(b); bok {
			return fa == fb
		}
	}
	return stringify(a) == stringify(b)
}

func compareOrdered(op string, a, b any) bool {
	fa, aok := toNumber(a)
	fb, bok := toNumber(b)
	if aok && bok {
		switch op {
		case ">":
			return fa > fb
		case "<":
			return fa < fb
		case ">=":
			return fa >= fb
		case "<=":
			return fa <= fb
		}
	}
	sa, sb := stringify(a), stringify(b)
	switch op {
	case ">":
		return sa > sb
	case "<":
		return sa < sb
	case ">=":
		return sa >= sb
	case "<=":
		return sa <= sb
	}
	return false
}

// containsValue implements the contains operator: case-insensitive substring
// on strings, per-element match on sequences, false for anything else.
func containsValue(haystack, needle any) bool {
	switch h := haystack.(type) {
	case string:
		if items, ok := jsonArray(h); ok {
			return sliceContains(items, needle)
		}
		return strings.Contains(strings.ToLower(h), strings.ToLower(stringify(needle)))
	case []any:
		return sliceContains(h, needle)
	case []string:
		items := make([]any, len(h))
		for i, s := range h {
			items[i] = s
		}
		return sliceContains(items, needle)
	}
	return false
}

func sliceContains(items []any, needle any) bool {
	for _, it := range items {
		is, iok := it.(string)
		ns, nok := needle.(string)
		if iok && nok {
			if strings.EqualFold(is, ns) {
				return true
			}
			continue
		}
		if looseEqual(it, needle) {
			return true
		}
	}
	return false
}

// applyFilter stringifies evaluated arguments back into a parameter string
// and dispatches the invoker. Context-registered overrides win over the
// registry; an unknown name passes the value through with a diagnostic.
func applyFilter(ctx context.Context, f *FilterExpr, value string, rc *RenderContext) string {
	param := reconstructParams(ctx, f.Args, rc)
	if fn, ok := rc.FilterOverrides[f.Name]; ok {
		out, err := fn(value, param, rc.CurrentURL)
		if err != nil {
			rc.logger().Debug("filter override failed", "filter", f.Name, "error", err)
			return value
		}
		return out
	}
	if rc.Filters != nil {
		if out, known := rc.Filters.Apply(f.Name, value, param, rc.CurrentURL); known {
			return out
		}
	}
	rc.logger().Debug("unknown filter", "filter", f.Name)
	return value
}

func reconstructParams(ctx context.Context, args []Expr, rc *RenderContext) string {
	if len(args) == 0 {
		return ""
	}
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		switch a := arg.(type) {
		case *Literal:
			if a.Quoted {
				parts = append(parts, quoteParam(stringify(a.Value)))
			} else {
				parts = append(parts, stringify(a.Value))
			}
		case *Identifier:
			if v, ok := rc.Variables[a.Name]; ok {
				parts = append(parts, quoteParam(stringify(v)))
			} else {
				// Bare tokens that are not variables are taken verbatim,
				// e.g. date:YYYY-MM-DD.
				parts = append(parts, a.Name)
			}
		default:
			v, err := evalExpr(ctx, arg, rc)
			if err != nil {
				parts = append(parts, "")
				continue
			}
			parts = append(parts, stringify(v))
		}
	}
	return strings.Join(parts, ",")
}

// quoteParam wraps a parameter in double quotes so the filter-side splitter
// recovers the exact text, including commas and quote characters.
func quoteParam(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		if s[i] == '"' || s[i] == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	b.WriteByte('"')
	return b.String()
}

func jsonArray(s string) ([]any, bool) {
	t := strings.TrimSpace(s)
	if len(t) == 0 || t[0] != '[' {
		return nil, false
	}
	var items []any
	if err := json.Unmarshal([]byte(t), &items); err != nil {
		return nil, false
	}
	return items, true
}
