package filters

import (
	"encoding/json"
	"strings"
)

// SplitParams splits a filter parameter string on top-level commas. Commas
// inside quotes or brackets do not split; a backslash escapes the following
// character; matched single or double quotes are stripped after splitting.
func SplitParams(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := splitTop(s, ',')
	for i, p := range parts {
		parts[i] = Unquote(strings.TrimSpace(p))
	}
	return parts
}

// SplitPipes splits a raw expression on top-level '|' characters, used by
// the post-processor to separate a placeholder from its filter chain.
func SplitPipes(s string) []string {
	parts := splitTop(s, '|')
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

func splitTop(s string, sep byte) []string {
	var parts []string
	var b strings.Builder
	depth := 0
	var inStr byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\\' && i+1 < len(s) {
			b.WriteByte(c)
			b.WriteByte(s[i+1])
			i++
			continue
		}
		if inStr != 0 {
			b.WriteByte(c)
			if c == inStr {
				inStr = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			inStr = c
			b.WriteByte(c)
		case '(', '[', '{':
			depth++
			b.WriteByte(c)
		case ')', ']', '}':
			if depth > 0 {
				depth--
			}
			b.WriteByte(c)
		case sep:
			if depth == 0 {
				parts = append(parts, b.String())
				b.Reset()
			} else {
				b.WriteByte(c)
			}
		default:
			b.WriteByte(c)
		}
	}
	parts = append(parts, b.String())
	return parts
}

// Unquote strips one layer of matched quotes and resolves backslash escapes.
func Unquote(s string) string {
	if len(s) >= 2 {
		if q := s[0]; (q == '\'' || q == '"') && s[len(s)-1] == q {
			s = s[1 : len(s)-1]
		}
	}
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			b.WriteByte(s[i+1])
			i++
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// pairs interprets a parameter string as search/replacement pairs: either
// alternating arguments ("a","b") or parenthesized tuples ("a","b"),("c","d").
func pairs(param string) [][2]string {
	raw := splitTop(strings.TrimSpace(param), ',')
	var out [][2]string
	i := 0
	for i < len(raw) {
		p := strings.TrimSpace(raw[i])
		if strings.HasPrefix(p, "(") && strings.HasSuffix(p, ")") {
			inner := SplitParams(p[1 : len(p)-1])
			if len(inner) >= 2 {
				out = append(out, [2]string{inner[0], inner[1]})
			} else if len(inner) == 1 {
				out = append(out, [2]string{inner[0], ""})
			}
			i++
			continue
		}
		if i+1 < len(raw) {
			out = append(out, [2]string{Unquote(p), Unquote(strings.TrimSpace(raw[i+1]))})
			i += 2
			continue
		}
		out = append(out, [2]string{Unquote(p), ""})
		i++
	}
	return out
}

// asArray decodes a JSON-encoded array. Filters that operate on sequences
// try this first and fall back to scalar behavior when it fails.
func asArray(value string) ([]any, bool) {
	t := strings.TrimSpace(value)
	if len(t) == 0 || t[0] != '[' {
		return nil, false
	}
	var items []any
	if err := json.Unmarshal([]byte(t), &items); err != nil {
		return nil, false
	}
	return items, true
}

func asObject(value string) (map[string]any, bool) {
	t := strings.TrimSpace(value)
	if len(t) == 0 || t[0] != '{' {
		return nil, false
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(t), &obj); err != nil {
		return nil, false
	}
	return obj, true
}

// reserialize re-encodes a transformed sequence back to the wire form.
func reserialize(items []any) string {
	b, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// itemString renders one array element as a scalar string.
func itemString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case float64:
		b, _ := json.Marshal(t)
		return string(b)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
