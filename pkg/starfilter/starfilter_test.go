package starfilter

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/obsidianmd/obsidian-clipper-sub001/pkg/template"
)

const script = `
def shout(value):
    return value.upper() + "!"

def tagged(value, param):
    return "[" + param + "] " + value

def linkify(value, param, current_url):
    return value + " <" + current_url + ">"

def _helper(value):
    return value

not_a_function = 42
`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func loadEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := Load("filters.star", script, testLogger())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return e
}

func TestLoadCollectsFunctions(t *testing.T) {
	e := loadEngine(t)
	got := map[string]bool{}
	for _, n := range e.Names() {
		got[n] = true
	}
	for _, want := range []string{"shout", "tagged", "linkify"} {
		if !got[want] {
			t.Fatalf("missing filter %q in %v", want, e.Names())
		}
	}
	if got["_helper"] {
		t.Fatalf("underscore helper exported")
	}
	if got["not_a_function"] {
		t.Fatalf("non-function global exported")
	}
}

func TestOverrideArity(t *testing.T) {
	overrides := loadEngine(t).Overrides()
	cases := []struct {
		filter, value, param, url, want string
	}{
		{"shout", "hey", "ignored", "", "HEY!"},
		{"tagged", "body", "note", "", "[note] body"},
		{"linkify", "see", "", "https://example.com", "see <https://example.com>"},
	}
	for _, tc := range cases {
		fn, ok := overrides[tc.filter]
		if !ok {
			t.Fatalf("override %q missing", tc.filter)
		}
		got, err := fn(tc.value, tc.param, tc.url)
		if err != nil {
			t.Fatalf("%s: %v", tc.filter, err)
		}
		if got != tc.want {
			t.Errorf("%s(%q, %q): got %q want %q", tc.filter, tc.value, tc.param, got, tc.want)
		}
	}
}

func TestOverrideErrorKeepsValue(t *testing.T) {
	e, err := Load("bad.star", "def fail(value):\n    return value[100]\n", testLogger())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	fn := e.Overrides()["fail"]
	got, err := fn("short", "", "")
	if err == nil {
		t.Fatalf("want runtime error")
	}
	if got != "short" {
		t.Fatalf("got %q want input back", got)
	}
}

func TestLoadSyntaxError(t *testing.T) {
	if _, err := Load("broken.star", "def broken(:\n", testLogger()); err == nil {
		t.Fatalf("want load error")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "filters.star")
	if err := os.WriteFile(path, []byte(script), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}
	e, err := LoadFile(path, testLogger())
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(e.Names()) == 0 {
		t.Fatalf("no filters loaded")
	}
}

func TestOverridesInsideTemplate(t *testing.T) {
	rc := template.NewRenderContext(map[string]any{"x": "loud"}, "")
	rc.Logger = testLogger()
	rc.FilterOverrides = loadEngine(t).Overrides()
	res, err := template.RenderString(context.Background(), "{{ x|shout }}", rc)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if res.Output != "LOUD!" {
		t.Fatalf("got %q", res.Output)
	}
}
