// Package starfilter loads user-defined filters written in Starlark. Every
// top-level function in the script becomes a filter override: it receives
// the piped value and the parameter string (plus the current URL if it
// declares a third parameter) and returns the transformed value.
//
//	def shout(value, param):
//	    return value.upper() + "!"
package starfilter

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"go.starlark.net/starlark"

	"github.com/obsidianmd/obsidian-clipper-sub001/pkg/template"
)

// Engine holds the compiled filter functions from one script.
type Engine struct {
	fns    map[string]*starlark.Function
	logger *slog.Logger
}

// Load executes a Starlark script and collects its filter functions.
// Underscore-prefixed globals are private helpers and are skipped.
func Load(filename string, src any, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	thread := &starlark.Thread{
		Name:  "starfilter",
		Print: func(_ *starlark.Thread, msg string) { logger.Info(msg, "source", filename) },
	}
	globals, err := starlark.ExecFile(thread, filename, src, starlark.StringDict{})
	if err != nil {
		return nil, fmt.Errorf("executing filter script: %w", err)
	}
	e := &Engine{fns: map[string]*starlark.Function{}, logger: logger}
	for name, v := range globals {
		if strings.HasPrefix(name, "_") {
			continue
		}
		if fn, ok := v.(*starlark.Function); ok {
			e.fns[name] = fn
		}
	}
	return e, nil
}

// LoadFile reads and executes a filter script from disk.
func LoadFile(path string, logger *slog.Logger) (*Engine, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading filter script: %w", err)
	}
	return Load(path, src, logger)
}

// Names returns the loaded filter names.
func (e *Engine) Names() []string {
	names := make([]string, 0, len(e.fns))
	for name := range e.fns {
		names = append(names, name)
	}
	return names
}

// Overrides wraps the script functions as render-context filter overrides.
// Each invocation runs on a fresh thread, so the map is safe to share across
// renders.
func (e *Engine) Overrides() map[string]template.FilterFunc {
	out := make(map[string]template.FilterFunc, len(e.fns))
	for name, fn := range e.fns {
		out[name] = e.wrap(name, fn)
	}
	return out
}

func (e *Engine) wrap(name string, fn *starlark.Function) template.FilterFunc {
	return func(value, param, currentURL string) (string, error) {
		args := starlark.Tuple{starlark.String(value)}
		if fn.NumParams() >= 2 {
			args = append(args, starlark.String(param))
		}
		if fn.NumParams() >= 3 {
			args = append(args, starlark.String(currentURL))
		}
		thread := &starlark.Thread{Name: "starfilter:" + name}
		result, err := starlark.Call(thread, fn, args, nil)
		if err != nil {
			return value, fmt.Errorf("filter %s: %w", name, err)
		}
		return fromStarlark(result), nil
	}
}

func fromStarlark(v starlark.Value) string {
	switch t := v.(type) {
	case starlark.NoneType:
		return ""
	case starlark.String:
		return string(t)
	case starlark.Bool:
		if bool(t) {
			return "true"
		}
		return "false"
	}
	return v.String()
}
