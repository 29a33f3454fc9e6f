// Package filters implements the built-in filter registry: named, pure
// string transforms applied through the template pipe syntax. Filters are
// total: one that cannot interpret its input returns the input unchanged and
// logs a diagnostic, so a malformed argument never aborts the surrounding
// render.
package filters

import (
	"log/slog"
	"sort"
)

// Func transforms a value with an optional parameter string. currentURL is
// the page the template is rendering for; link-type filters use it to
// absolutize relative paths.
type Func func(value, param, currentURL string) (string, error)

// Registry maps filter names to implementations. Populate it once at startup
// and share it across renders; Apply does not mutate.
type Registry struct {
	logger  *slog.Logger
	filters map[string]Func
}

// NewRegistry returns a registry with the built-in filter set. A nil logger
// falls back to slog.Default.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{logger: logger, filters: make(map[string]Func, 48)}
	r.registerText()
	r.registerList()
	r.registerNumber()
	r.registerMarkup()
	return r
}

// Register adds or replaces a filter.
func (r *Registry) Register(name string, fn Func) {
	r.filters[name] = fn
}

// Names returns the registered filter names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.filters))
	for name := range r.filters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Apply dispatches a filter by name. The bool result reports whether the
// name was known. Errors and panics inside a filter are contained here: the
// value comes back unchanged.
func (r *Registry) Apply(name, value, param, currentURL string) (out string, known bool) {
	fn, ok := r.filters[name]
	if !ok {
		return value, false
	}
	out = value
	known = true
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Debug("filter panicked", "filter", name, "panic", rec)
			out = value
		}
	}()
	result, err := fn(value, param, currentURL)
	if err != nil {
		r.logger.Debug("filter failed", "filter", name, "error", err)
		return value, true
	}
	return result, true
}
