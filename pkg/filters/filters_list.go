package filters

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

func (r *Registry) registerList() {
	r.Register("first", func(value, _, _ string) (string, error) {
		if items, ok := asArray(value); ok && len(items) > 0 {
			return itemString(items[0]), nil
		}
		return value, nil
	})
	r.Register("last", func(value, _, _ string) (string, error) {
		if items, ok := asArray(value); ok && len(items) > 0 {
			return itemString(items[len(items)-1]), nil
		}
		return value, nil
	})
	r.Register("nth", filterNth)
	r.Register("join", filterJoin)
	r.Register("unique", filterUnique)
	r.Register("reverse", filterReverse)
	r.Register("sort", filterSort)
	r.Register("list", filterList)
	r.Register("table", filterTable)
}

// filterNth picks elements by 1-based position. One index returns the
// element itself; several return a JSON array of the picks.
func filterNth(value, param, _ string) (string, error) {
	items, ok := asArray(value)
	if !ok {
		return value, nil
	}
	params := SplitParams(param)
	if len(params) == 0 {
		return value, fmt.Errorf("nth needs at least one index")
	}
	var picks []any
	for _, p := range params {
		n, err := strconv.Atoi(p)
		if err != nil {
			return value, fmt.Errorf("nth index %q: %w", p, err)
		}
		if n < 1 || n > len(items) {
			continue
		}
		picks = append(picks, items[n-1])
	}
	if len(params) == 1 {
		if len(picks) == 0 {
			return "", nil
		}
		return itemString(picks[0]), nil
	}
	return reserialize(picks), nil
}

func filterJoin(value, param, _ string) (string, error) {
	items, ok := asArray(value)
	if !ok {
		return value, nil
	}
	sep := ","
	if params := SplitParams(param); len(params) > 0 {
		sep = params[0]
	}
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = itemString(it)
	}
	return strings.Join(parts, sep), nil
}

func filterUnique(value, _, _ string) (string, error) {
	items, ok := asArray(value)
	if !ok {
		return value, nil
	}
	seen := make(map[string]bool, len(items))
	out := items[:0:0]
	for _, it := range items {
		key := itemString(it)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, it)
	}
	return reserialize(out), nil
}

func filterReverse(value, _, _ string) (string, error) {
	items, ok := asArray(value)
	if !ok {
		return value, nil
	}
	out := make([]any, len(items))
	for i, it := range items {
		out[len(items)-1-i] = it
	}
	return reserialize(out), nil
}

// filterSort orders numerically when every element is a number, otherwise
// lexicographically. Param "desc" reverses.
func filterSort(value, param, _ string) (string, error) {
	items, ok := asArray(value)
	if !ok {
		return value, nil
	}
	out := append([]any(nil), items...)
	numeric := true
	for _, it := range out {
		if _, isNum := it.(float64); !isNum {
			numeric = false
			break
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if numeric {
			return out[i].(float64) < out[j].(float64)
		}
		return itemString(out[i]) < itemString(out[j])
	})
	params := SplitParams(param)
	if len(params) > 0 && strings.EqualFold(params[0], "desc") {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return reserialize(out), nil
}

// filterList renders a markdown list. Params: "numbered" for an ordered
// list, "task" for checkboxes.
func filterList(value, param, _ string) (string, error) {
	items, ok := asArray(value)
	if !ok {
		items = []any{value}
	}
	style := ""
	if params := SplitParams(param); len(params) > 0 {
		style = strings.ToLower(params[0])
	}
	var b strings.Builder
	for i, it := range items {
		if i > 0 {
			b.WriteByte('\n')
		}
		switch style {
		case "numbered":
			fmt.Fprintf(&b, "%d. %s", i+1, itemString(it))
		case "task":
			fmt.Fprintf(&b, "- [ ] %s", itemString(it))
		default:
			fmt.Fprintf(&b, "- %s", itemString(it))
		}
	}
	return b.String(), nil
}

// filterTable renders a markdown table from an array of objects (columns are
// the union of keys in first-seen order), an array of arrays, or a flat
// array (single Value column).
func filterTable(value, _, _ string) (string, error) {
	items, ok := asArray(value)
	if !ok || len(items) == 0 {
		return value, nil
	}
	var b strings.Builder
	switch items[0].(type) {
	case map[string]any:
		var cols []string
		seen := map[string]bool{}
		for _, it := range items {
			obj, isObj := it.(map[string]any)
			if !isObj {
				continue
			}
			var keys []string
			for k := range obj {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				if !seen[k] {
					seen[k] = true
					cols = append(cols, k)
				}
			}
		}
		writeRow(&b, cols)
		writeDivider(&b, len(cols))
		for _, it := range items {
			obj, isObj := it.(map[string]any)
			if !isObj {
				continue
			}
			row := make([]string, len(cols))
			for i, c := range cols {
				row[i] = tableCell(itemString(obj[c]))
			}
			writeRow(&b, row)
		}
	case []any:
		width := 0
		for _, it := range items {
			if row, isRow := it.([]any); isRow && len(row) > width {
				width = len(row)
			}
		}
		header := make([]string, width)
		for i := range header {
			header[i] = fmt.Sprintf("Column %d", i+1)
		}
		writeRow(&b, header)
		writeDivider(&b, width)
		for _, it := range items {
			row, isRow := it.([]any)
			if !isRow {
				continue
			}
			cells := make([]string, width)
			for i := 0; i < width; i++ {
				if i < len(row) {
					cells[i] = tableCell(itemString(row[i]))
				}
			}
			writeRow(&b, cells)
		}
	default:
		writeRow(&b, []string{"Value"})
		writeDivider(&b, 1)
		for _, it := range items {
			writeRow(&b, []string{tableCell(itemString(it))})
		}
	}
	return strings.TrimSuffix(b.String(), "\n"), nil
}

func writeRow(b *strings.Builder, cells []string) {
	b.WriteString("| ")
	b.WriteString(strings.Join(cells, " | "))
	b.WriteString(" |\n")
}

func writeDivider(b *strings.Builder, n int) {
	b.WriteString("|")
	for i := 0; i < n; i++ {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")
}

func tableCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}
