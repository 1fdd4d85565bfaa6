// Package formatting implements the two presentation transforms applied
// to table fragments before they reach a template: column sorting and
// per-cell number formatting.
package formatting

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// SortSpec names one column to sort by and its direction, already
// resolved to a column index.
type SortSpec struct {
	ColumnIndex int
	Descending  bool
}

// ResolveSortSpecs normalises a sort_by parameter value into a list of
// SortSpec, validating every column reference against header (when
// hasHeader) or numCols (otherwise). Accepted raw shapes, each of which
// may also appear as an element of a []any list for multi-column sort:
//
//	string                         column name, ascending, requires header
//	float64                        column index, ascending
//	map[string]any{"column":...,   column name or index, explicit order
//	  "order": "asc"|"desc"}
func ResolveSortSpecs(raw any, header []any, hasHeader bool, numCols int) ([]SortSpec, error) {
	items, ok := raw.([]any)
	if !ok {
		items = []any{raw}
	}

	specs := make([]SortSpec, 0, len(items))
	for _, item := range items {
		spec, err := resolveOne(item, header, hasHeader, numCols)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func resolveOne(item any, header []any, hasHeader bool, numCols int) (SortSpec, error) {
	switch v := item.(type) {
	case string:
		idx, err := columnIndexByName(v, header, hasHeader)
		if err != nil {
			return SortSpec{}, err
		}
		return SortSpec{ColumnIndex: idx}, nil

	case float64:
		idx := int(v)
		if idx < 0 || idx >= numCols {
			return SortSpec{}, fmt.Errorf("column index %d out of range (0-%d)", idx, numCols-1)
		}
		return SortSpec{ColumnIndex: idx}, nil

	case map[string]any:
		colRaw, present := v["column"]
		if !present {
			return SortSpec{}, fmt.Errorf("sort specification must have a 'column' key")
		}
		order := "asc"
		if o, ok := v["order"].(string); ok && o != "" {
			order = strings.ToLower(o)
		}
		if order != "asc" && order != "desc" {
			return SortSpec{}, fmt.Errorf("sort order must be 'asc' or 'desc', got %q", order)
		}
		desc := order == "desc"

		var idx int
		switch col := colRaw.(type) {
		case string:
			i, err := columnIndexByName(col, header, hasHeader)
			if err != nil {
				return SortSpec{}, err
			}
			idx = i
		case float64:
			idx = int(col)
			if idx < 0 || idx >= numCols {
				return SortSpec{}, fmt.Errorf("column index %d out of range (0-%d)", idx, numCols-1)
			}
		default:
			return SortSpec{}, fmt.Errorf("column must be a string or integer, got %T", col)
		}
		return SortSpec{ColumnIndex: idx, Descending: desc}, nil

	default:
		return SortSpec{}, fmt.Errorf("invalid sort specification: %v", item)
	}
}

func columnIndexByName(name string, header []any, hasHeader bool) (int, error) {
	if !hasHeader || header == nil {
		return 0, fmt.Errorf("column name sorting requires a header row")
	}
	for i, h := range header {
		if fmt.Sprint(h) == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("column %q not found in header row", name)
}

// isNumeric reports whether v can be treated as a number: it already is
// one, or it is a string that parses as one once thousands-separator
// commas are stripped.
func isNumeric(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(t), ",", "")
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// sortKey is the composite comparison key for one cell under one
// SortSpec: numeric cells (group 0) always sort before string cells
// (group 1) within the same column, matching the reference
// implementation's tuple-tagged key.
type sortKey struct {
	group      int
	num        float64
	str        string
	strRunes   []rune
	descStr    bool
}

func buildKey(row []any, spec SortSpec) sortKey {
	if spec.ColumnIndex >= len(row) {
		if spec.Descending {
			return sortKey{group: 0, num: math.Inf(1)}
		}
		return sortKey{group: 0, num: 0}
	}

	v := row[spec.ColumnIndex]
	if n, ok := isNumeric(v); ok {
		if spec.Descending {
			n = -n
		}
		return sortKey{group: 0, num: n}
	}

	s := ""
	if v != nil {
		s = strings.ToLower(fmt.Sprint(v))
	}
	if spec.Descending {
		return sortKey{group: 1, descStr: true, strRunes: []rune(s)}
	}
	return sortKey{group: 1, str: s}
}

func compareKeys(a, b sortKey) int {
	if a.group != b.group {
		if a.group < b.group {
			return -1
		}
		return 1
	}
	if a.group == 0 {
		switch {
		case a.num < b.num:
			return -1
		case a.num > b.num:
			return 1
		default:
			return 0
		}
	}
	if a.descStr {
		// Per-character negation: compares as if each rune's code point
		// were negated, so a shared prefix still makes the shorter
		// string the lesser key (it does not additionally reverse the
		// prefix comparison, intentionally matching the reference
		// behaviour rather than a true reversed lexicographic order).
		return compareNegatedRunes(a.strRunes, b.strRunes)
	}
	return strings.Compare(a.str, b.str)
}

func compareNegatedRunes(a, b []rune) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		va, vb := -int(a[i]), -int(b[i])
		if va != vb {
			if va < vb {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) == len(b):
		return 0
	case len(a) < len(b):
		return -1
	default:
		return 1
	}
}

// SortRows stably sorts rows by specs, one comparison tier per spec in
// order, leaving a leading header row (when hasHeader) untouched and in
// place. An empty rows slice, or one with no data rows, is returned as
// given.
func SortRows(rows [][]any, specs []SortSpec, hasHeader bool) [][]any {
	if len(rows) == 0 {
		return rows
	}

	var header []any
	data := rows
	if hasHeader {
		header = rows[0]
		data = rows[1:]
	}
	if len(data) == 0 {
		return rows
	}

	sorted := make([][]any, len(data))
	copy(sorted, data)

	sort.SliceStable(sorted, func(i, j int) bool {
		for _, spec := range specs {
			c := compareKeys(buildKey(sorted[i], spec), buildKey(sorted[j], spec))
			if c != 0 {
				return c < 0
			}
		}
		return false
	})

	if hasHeader {
		out := make([][]any, 0, len(sorted)+1)
		out = append(out, header)
		out = append(out, sorted...)
		return out
	}
	return sorted
}
