package filters

import (
	"io"
	"log/slog"
	"sort"
	"strings"
	"testing"
)

func testRegistry() *Registry {
	return NewRegistry(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func apply(t *testing.T, r *Registry, name, value, param string) string {
	t.Helper()
	out, known := r.Apply(name, value, param, "")
	if !known {
		t.Fatalf("filter %q not registered", name)
	}
	return out
}

func TestTextFilters(t *testing.T) {
	r := testRegistry()
	cases := []struct {
		filter, value, param, want string
	}{
		{"upper", "hello", "", "HELLO"},
		{"lower", "HeLLo", "", "hello"},
		{"trim", "  x  ", "", "x"},
		{"title", "hello wide world", "", "Hello Wide World"},
		{"capitalize", "hELLO", "", "Hello"},
		{"camel", "hello world", "", "helloWorld"},
		{"pascal", "hello-world", "", "HelloWorld"},
		{"kebab", "Hello World", "", "hello-world"},
		{"snake", "helloWorld", "", "hello_world"},
		{"replace", "banana", `"a","o"`, "bonono"},
		{"replace", "a b", `("a","x"),("b","y")`, "x y"},
		{"slice", "abcdef", "1,4", "bcd"},
		{"slice", "abcdef", "-2", "ef"},
		{"split", "a,b,c", "", `["a","b","c"]`},
		{"split", "a-b", `"-"`, `["a","b"]`},
		{"length", "abcd", "", "4"},
		{"length", `["a","b"]`, "", "2"},
		{"length", `{"a":1,"b":2}`, "", "2"},
		{"truncate", "abcdefgh", "5", "abcde..."},
		{"truncate", "abcdefgh", `5,"~"`, "abcde~"},
		{"truncate", "abc", "5", "abc"},
		{"strip_tags", "<p>Hi <b>there</b></p>", "", "Hi there"},
		{"strip_tags", "<p>Hi <b>there</b></p>", "b", "Hi <b>there</b>"},
		{"strip_md", "# Title\n**bold** and [link](u)", "", "Title\nbold and link"},
		{"safe_name", `a/b:c*d?`, "", "a-b-c-d"},
	}
	for _, tc := range cases {
		if got := apply(t, r, tc.filter, tc.value, tc.param); got != tc.want {
			t.Errorf("%s(%q, %q): got %q want %q", tc.filter, tc.value, tc.param, got, tc.want)
		}
	}
}

func TestScalarFiltersMapOverArrays(t *testing.T) {
	r := testRegistry()
	got := apply(t, r, "upper", `["a","b"]`, "")
	if got != `["A","B"]` {
		t.Fatalf("got %q", got)
	}
}

func TestListFilters(t *testing.T) {
	r := testRegistry()
	cases := []struct {
		filter, value, param, want string
	}{
		{"first", `["a","b","c"]`, "", "a"},
		{"last", `["a","b","c"]`, "", "c"},
		{"first", "scalar", "", "scalar"},
		{"nth", `["a","b","c"]`, "2", "b"},
		{"nth", `["a","b","c"]`, "1,3", `["a","c"]`},
		{"join", `["a","b"]`, "", "a,b"},
		{"join", `["a","b"]`, `", "`, "a, b"},
		{"unique", `["a","b","a"]`, "", `["a","b"]`},
		{"reverse", `["a","b","c"]`, "", `["c","b","a"]`},
		{"sort", `[3,1,2]`, "", `[1,2,3]`},
		{"sort", `["b","a"]`, "", `["a","b"]`},
		{"sort", `[1,3,2]`, "desc", `[3,2,1]`},
		{"list", `["a","b"]`, "", "- a\n- b"},
		{"list", `["a","b"]`, "numbered", "1. a\n2. b"},
		{"list", `["a"]`, "task", "- [ ] a"},
	}
	for _, tc := range cases {
		if got := apply(t, r, tc.filter, tc.value, tc.param); got != tc.want {
			t.Errorf("%s(%q, %q): got %q want %q", tc.filter, tc.value, tc.param, got, tc.want)
		}
	}
}

func TestTableFilter(t *testing.T) {
	r := testRegistry()
	got := apply(t, r, "table", `[{"name":"Ada","year":1815},{"name":"Grace","year":1906}]`, "")
	want := strings.Join([]string{
		"| name | year |",
		"| --- | --- |",
		"| Ada | 1815 |",
		"| Grace | 1906 |",
	}, "\n")
	if got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}

	got = apply(t, r, "table", `["a","b"]`, "")
	want = "| Value |\n| --- |\n| a |\n| b |"
	if got != want {
		t.Fatalf("scalar table: got:\n%s", got)
	}
}

func TestNumberFilters(t *testing.T) {
	r := testRegistry()
	cases := []struct {
		filter, value, param, want string
	}{
		{"calc", "21", "*2", "42"},
		{"calc", "10", "+5", "15"},
		{"calc", "10", "-3", "7"},
		{"calc", "10", "/4", "2.5"},
		{"round", "3.14159", "2", "3.14"},
		{"round", "2.5", "", "3"},
		{"number_format", "1234567.891", "2", "1,234,567.89"},
		{"number_format", "1234", `0,",","."`, "1.234"},
	}
	for _, tc := range cases {
		if got := apply(t, r, tc.filter, tc.value, tc.param); got != tc.want {
			t.Errorf("%s(%q, %q): got %q want %q", tc.filter, tc.value, tc.param, got, tc.want)
		}
	}
}

func TestCalcFailSoft(t *testing.T) {
	r := testRegistry()
	// Division by zero and non-numeric input keep the value unchanged.
	if got := apply(t, r, "calc", "10", "/0"); got != "10" {
		t.Fatalf("got %q", got)
	}
	if got := apply(t, r, "calc", "not a number", "+1"); got != "not a number" {
		t.Fatalf("got %q", got)
	}
}

func TestMarkupFilters(t *testing.T) {
	r := testRegistry()
	base := "https://example.com/post/page"
	cases := []struct {
		filter, value, param, url, want string
	}{
		{"link", "/img/x.png", "Pic", base, "[Pic](https://example.com/img/x.png)"},
		{"link", "https://other.org/a", "", "", "[https://other.org/a](https://other.org/a)"},
		{"image", "/img/x.png", "alt text", base, "![alt text](https://example.com/img/x.png)"},
		{"wikilink", "My Note", "", "", "[[My Note]]"},
		{"wikilink", "My Note", "alias", "", "[[My Note|alias]]"},
		{"blockquote", "a\nb", "", "", "> a\n> b"},
		{"callout", "body", "info,Heads up,true", "", "> [!info]- Heads up\n> body"},
		{"callout", "body", "", "", "> [!note] \n> body"},
		{"footnote", "a note", "", "", "[^1]: a note"},
		{"footnote", `["x","y"]`, "", "", "[^1]: x\n\n[^2]: y"},
	}
	for _, tc := range cases {
		got, known := r.Apply(tc.filter, tc.value, tc.param, tc.url)
		if !known {
			t.Fatalf("filter %q not registered", tc.filter)
		}
		if got != tc.want {
			t.Errorf("%s(%q, %q): got %q want %q", tc.filter, tc.value, tc.param, got, tc.want)
		}
	}
}

func TestDateFilter(t *testing.T) {
	r := testRegistry()
	cases := []struct {
		value, param, want string
	}{
		{"2024-03-09", "DD/MM/YYYY", "09/03/2024"},
		{"2024-03-09", `"MMM D, YYYY"`, "Mar 9, 2024"},
		{"2024-03-09T10:30:00Z", "YYYY-MM-DD HH:mm", "2024-03-09 10:30"},
		{"09.03.2024", "YYYY-MM-DD,DD.MM.YYYY", "2024-03-09"},
		// Unparseable input comes back unchanged.
		{"not a date", "YYYY", "not a date"},
	}
	for _, tc := range cases {
		if got := apply(t, r, "date", tc.value, tc.param); got != tc.want {
			t.Errorf("date(%q, %q): got %q want %q", tc.value, tc.param, got, tc.want)
		}
	}
}

func TestUnknownFilter(t *testing.T) {
	r := testRegistry()
	out, known := r.Apply("no_such_filter", "v", "", "")
	if known {
		t.Fatalf("unknown filter reported as known")
	}
	if out != "v" {
		t.Fatalf("got %q want %q", out, "v")
	}
}

func TestRegisterReplaces(t *testing.T) {
	r := testRegistry()
	r.Register("upper", func(value, _, _ string) (string, error) {
		return "custom", nil
	})
	if got := apply(t, r, "upper", "x", ""); got != "custom" {
		t.Fatalf("got %q", got)
	}
}

func TestPanickingFilterIsContained(t *testing.T) {
	r := testRegistry()
	r.Register("boom", func(_, _, _ string) (string, error) {
		panic("boom")
	})
	out, known := r.Apply("boom", "safe", "", "")
	if !known || out != "safe" {
		t.Fatalf("got out=%q known=%v", out, known)
	}
}

func TestNames(t *testing.T) {
	names := testRegistry().Names()
	if !sort.StringsAreSorted(names) {
		t.Fatalf("names not sorted: %v", names)
	}
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	for _, want := range []string{"upper", "join", "date", "calc", "table"} {
		if !set[want] {
			t.Fatalf("missing built-in filter %q", want)
		}
	}
}
