package filters

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

func (r *Registry) registerText() {
	r.Register("upper", func(value, _, _ string) (string, error) {
		return mapScalar(value, strings.ToUpper), nil
	})
	r.Register("lower", func(value, _, _ string) (string, error) {
		return mapScalar(value, strings.ToLower), nil
	})
	r.Register("trim", func(value, _, _ string) (string, error) {
		return mapScalar(value, strings.TrimSpace), nil
	})
	r.Register("title", func(value, _, _ string) (string, error) {
		return mapScalar(value, titleCase), nil
	})
	r.Register("capitalize", func(value, _, _ string) (string, error) {
		return mapScalar(value, capitalize), nil
	})
	r.Register("camel", func(value, _, _ string) (string, error) {
		return mapScalar(value, camelCase), nil
	})
	r.Register("pascal", func(value, _, _ string) (string, error) {
		return mapScalar(value, pascalCase), nil
	})
	r.Register("kebab", func(value, _, _ string) (string, error) {
		return mapScalar(value, func(s string) string { return delimCase(s, "-") }), nil
	})
	r.Register("snake", func(value, _, _ string) (string, error) {
		return mapScalar(value, func(s string) string { return delimCase(s, "_") }), nil
	})
	r.Register("replace", filterReplace)
	r.Register("slice", filterSlice)
	r.Register("split", filterSplit)
	r.Register("length", filterLength)
	r.Register("truncate", filterTruncate)
	r.Register("strip_tags", filterStripTags)
	r.Register("strip_md", filterStripMD)
	r.Register("safe_name", filterSafeName)
}

// mapScalar applies f to a scalar value, or to every string element of a
// JSON-encoded array.
func mapScalar(value string, f func(string) string) string {
	if items, ok := asArray(value); ok {
		for i, it := range items {
			if s, isStr := it.(string); isStr {
				items[i] = f(s)
			}
		}
		return reserialize(items)
	}
	return f(value)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(strings.ToLower(s))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = capitalize(w)
	}
	return strings.Join(words, " ")
}

// splitWords breaks an identifier-ish string into lowercase words on
// non-alphanumerics and lower-to-upper case boundaries.
func splitWords(s string) []string {
	var words []string
	var b strings.Builder
	flush := func() {
		if b.Len() > 0 {
			words = append(words, strings.ToLower(b.String()))
			b.Reset()
		}
	}
	prevLower := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if prevLower && unicode.IsUpper(r) {
				flush()
			}
			b.WriteRune(r)
			prevLower = unicode.IsLower(r) || unicode.IsDigit(r)
		default:
			flush()
			prevLower = false
		}
	}
	flush()
	return words
}

func camelCase(s string) string {
	words := splitWords(s)
	for i := 1; i < len(words); i++ {
		words[i] = capitalize(words[i])
	}
	return strings.Join(words, "")
}

func pascalCase(s string) string {
	words := splitWords(s)
	for i := range words {
		words[i] = capitalize(words[i])
	}
	return strings.Join(words, "")
}

func delimCase(s, delim string) string {
	return strings.Join(splitWords(s), delim)
}

func filterReplace(value, param, _ string) (string, error) {
	ps := pairs(param)
	if len(ps) == 0 {
		return value, fmt.Errorf("replace needs search and replacement")
	}
	apply := func(s string) string {
		for _, p := range ps {
			s = strings.ReplaceAll(s, p[0], p[1])
		}
		return s
	}
	return mapScalar(value, apply), nil
}

// filterSlice takes start[,end] with Python-style negative indexing. On a
// JSON array it slices elements; on plain text it slices runes.
func filterSlice(value, param, _ string) (string, error) {
	params := SplitParams(param)
	if len(params) == 0 {
		return value, fmt.Errorf("slice needs at least a start index")
	}
	start, err := strconv.Atoi(params[0])
	if err != nil {
		return value, fmt.Errorf("slice start %q: %w", params[0], err)
	}
	end := 0
	hasEnd := false
	if len(params) > 1 && params[1] != "" {
		end, err = strconv.Atoi(params[1])
		if err != nil {
			return value, fmt.Errorf("slice end %q: %w", params[1], err)
		}
		hasEnd = true
	}
	if items, ok := asArray(value); ok {
		lo, hi := sliceBounds(len(items), start, end, hasEnd)
		return reserialize(items[lo:hi]), nil
	}
	runes := []rune(value)
	lo, hi := sliceBounds(len(runes), start, end, hasEnd)
	return string(runes[lo:hi]), nil
}

func sliceBounds(n, start, end int, hasEnd bool) (int, int) {
	norm := func(i int) int {
		if i < 0 {
			i += n
		}
		if i < 0 {
			return 0
		}
		if i > n {
			return n
		}
		return i
	}
	lo := norm(start)
	hi := n
	if hasEnd {
		hi = norm(end)
	}
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

func filterSplit(value, param, _ string) (string, error) {
	sep := ","
	if params := SplitParams(param); len(params) > 0 {
		sep = params[0]
	}
	var parts []string
	if sep == "" {
		for _, r := range value {
			parts = append(parts, string(r))
		}
	} else {
		parts = strings.Split(value, sep)
	}
	items := make([]any, len(parts))
	for i, p := range parts {
		items[i] = p
	}
	return reserialize(items), nil
}

func filterLength(value, _, _ string) (string, error) {
	if items, ok := asArray(value); ok {
		return strconv.Itoa(len(items)), nil
	}
	if obj, ok := asObject(value); ok {
		return strconv.Itoa(len(obj)), nil
	}
	return strconv.Itoa(len([]rune(value))), nil
}

func filterTruncate(value, param, _ string) (string, error) {
	params := SplitParams(param)
	if len(params) == 0 {
		return value, fmt.Errorf("truncate needs a length")
	}
	n, err := strconv.Atoi(params[0])
	if err != nil || n < 0 {
		return value, fmt.Errorf("truncate length %q", params[0])
	}
	ellipsis := "..."
	if len(params) > 1 {
		ellipsis = params[1]
	}
	runes := []rune(value)
	if len(runes) <= n {
		return value, nil
	}
	return string(runes[:n]) + ellipsis, nil
}

var tagRe = regexp.MustCompile(`</?[a-zA-Z][^>]*>|<!--.*?-->`)

func filterStripTags(value, param, _ string) (string, error) {
	keep := map[string]bool{}
	for _, t := range SplitParams(param) {
		keep[strings.ToLower(strings.Trim(t, "<>"))] = true
	}
	return tagRe.ReplaceAllStringFunc(value, func(tag string) string {
		name := strings.ToLower(strings.TrimFunc(tag, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		}))
		if i := strings.IndexFunc(name, func(r rune) bool { return r == ' ' }); i >= 0 {
			name = name[:i]
		}
		if keep[name] {
			return tag
		}
		return ""
	}), nil
}

var mdPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?m)^#{1,6}\s+`),        // headings
	regexp.MustCompile(`(?m)^>\s?`),             // blockquotes
	regexp.MustCompile(`\*\*([^*]*)\*\*`),       // bold
	regexp.MustCompile(`\*([^*]*)\*`),           // italics
	regexp.MustCompile("`([^`]*)`"),             // inline code
	regexp.MustCompile(`!?\[([^\]]*)\]\([^)]*\)`), // links and images
}

func filterStripMD(value, _, _ string) (string, error) {
	out := value
	for i, re := range mdPatterns {
		if i < 2 {
			out = re.ReplaceAllString(out, "")
		} else {
			out = re.ReplaceAllString(out, "$1")
		}
	}
	return out, nil
}

var unsafeNameRe = regexp.MustCompile(`[\\/:*?"<>|#^\[\]]+`)

func filterSafeName(value, _, _ string) (string, error) {
	s := unsafeNameRe.ReplaceAllString(value, "-")
	s = strings.Trim(s, " -.")
	return s, nil
}
