package filters

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

func (r *Registry) registerMarkup() {
	r.Register("link", filterLink)
	r.Register("image", filterImage)
	r.Register("wikilink", filterWikilink)
	r.Register("callout", filterCallout)
	r.Register("blockquote", filterBlockquote)
	r.Register("footnote", filterFootnote)
	r.Register("date", filterDate)
}

// absolutize resolves a relative URL against the page the template renders
// for. Absolute URLs and non-URL text come back untouched.
func absolutize(raw, currentURL string) string {
	if raw == "" || currentURL == "" {
		return raw
	}
	ref, err := url.Parse(raw)
	if err != nil || ref.IsAbs() {
		return raw
	}
	base, err := url.Parse(currentURL)
	if err != nil {
		return raw
	}
	return base.ResolveReference(ref).String()
}

func filterLink(value, param, currentURL string) (string, error) {
	text := ""
	if params := SplitParams(param); len(params) > 0 {
		text = params[0]
	}
	render := func(u string) string {
		label := text
		if label == "" {
			label = u
		}
		return fmt.Sprintf("[%s](%s)", label, absolutize(u, currentURL))
	}
	return mapScalar(value, render), nil
}

func filterImage(value, param, currentURL string) (string, error) {
	alt := ""
	if params := SplitParams(param); len(params) > 0 {
		alt = params[0]
	}
	render := func(u string) string {
		return fmt.Sprintf("![%s](%s)", alt, absolutize(u, currentURL))
	}
	return mapScalar(value, render), nil
}

func filterWikilink(value, param, _ string) (string, error) {
	alias := ""
	if params := SplitParams(param); len(params) > 0 {
		alias = params[0]
	}
	render := func(s string) string {
		if s == "" {
			return ""
		}
		if alias != "" {
			return fmt.Sprintf("[[%s|%s]]", s, alias)
		}
		return fmt.Sprintf("[[%s]]", s)
	}
	return mapScalar(value, render), nil
}

// filterCallout wraps the value in an Obsidian callout block:
// callout:type[,title,folded].
func filterCallout(value, param, _ string) (string, error) {
	kind := "note"
	title := ""
	fold := ""
	params := SplitParams(param)
	if len(params) > 0 && params[0] != "" {
		kind = params[0]
	}
	if len(params) > 1 {
		title = params[1]
	}
	if len(params) > 2 {
		switch strings.ToLower(params[2]) {
		case "true", "folded", "-":
			fold = "-"
		case "+":
			fold = "+"
		}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "> [!%s]%s %s", kind, fold, title)
	for _, line := range strings.Split(value, "\n") {
		b.WriteString("\n> ")
		b.WriteString(line)
	}
	return b.String(), nil
}

func filterBlockquote(value, _, _ string) (string, error) {
	lines := strings.Split(value, "\n")
	for i, line := range lines {
		lines[i] = "> " + line
	}
	return strings.Join(lines, "\n"), nil
}

// filterFootnote renders footnote definitions; an array becomes a numbered
// set of them.
func filterFootnote(value, _, _ string) (string, error) {
	if items, ok := asArray(value); ok {
		var b strings.Builder
		for i, it := range items {
			if i > 0 {
				b.WriteString("\n\n")
			}
			fmt.Fprintf(&b, "[^%d]: %s", i+1, itemString(it))
		}
		return b.String(), nil
	}
	return fmt.Sprintf("[^1]: %s", value), nil
}

// dateTokens maps day.js-style tokens to Go reference layout fragments,
// longest first so MM does not match inside MMMM.
var dateTokens = []struct{ from, to string }{
	{"YYYY", "2006"},
	{"YY", "06"},
	{"MMMM", "January"},
	{"MMM", "Jan"},
	{"MM", "01"},
	{"M", "1"},
	{"DD", "02"},
	{"D", "2"},
	{"dddd", "Monday"},
	{"ddd", "Mon"},
	{"HH", "15"},
	{"hh", "03"},
	{"h", "3"},
	{"mm", "04"},
	{"m", "4"},
	{"ss", "05"},
	{"s", "5"},
	{"A", "PM"},
	{"a", "pm"},
	{"ZZ", "-0700"},
	{"Z", "-07:00"},
}

func toGoLayout(format string) string {
	var b strings.Builder
	for i := 0; i < len(format); {
		matched := false
		for _, tok := range dateTokens {
			if strings.HasPrefix(format[i:], tok.from) {
				b.WriteString(tok.to)
				i += len(tok.from)
				matched = true
				break
			}
		}
		if !matched {
			b.WriteByte(format[i])
			i++
		}
	}
	return b.String()
}

var dateInputLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
	"January 2, 2006",
	"Jan 2, 2006",
	time.RFC1123,
	time.RFC822,
}

// filterDate reformats a date: date:outputFormat[,inputFormat]. Formats use
// day.js-style tokens (YYYY-MM-DD).
func filterDate(value, param, _ string) (string, error) {
	params := SplitParams(param)
	if len(params) == 0 || params[0] == "" {
		return value, fmt.Errorf("date needs an output format")
	}
	in := strings.TrimSpace(value)
	var t time.Time
	var err error
	if len(params) > 1 && params[1] != "" {
		t, err = time.Parse(toGoLayout(params[1]), in)
		if err != nil {
			return value, fmt.Errorf("parsing %q with format %q: %w", in, params[1], err)
		}
	} else {
		parsed := false
		for _, layout := range dateInputLayouts {
			if t, err = time.Parse(layout, in); err == nil {
				parsed = true
				break
			}
		}
		if !parsed {
			return value, fmt.Errorf("unrecognized date %q", in)
		}
	}
	return t.Format(toGoLayout(params[0])), nil
}
