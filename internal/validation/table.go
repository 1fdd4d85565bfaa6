package validation

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/docsmith/docsmith/internal/apperr"
	"github.com/docsmith/docsmith/internal/formatting"
	"github.com/docsmith/docsmith/internal/values"
)

var validAlignments = map[string]struct{}{"left": {}, "center": {}, "right": {}}
var validBorderStyles = map[string]struct{}{"full": {}, "horizontal": {}, "minimal": {}, "none": {}}

// TableData is the parameter bag of the built-in table fragment type,
// decoded from its raw parameters and checked against the structural
// rules a ParameterSchema's shallow type check cannot express.
type TableData struct {
	Rows             [][]any           `json:"rows"`
	HasHeader        bool              `json:"has_header"`
	Title            string            `json:"title,omitempty"`
	Width            string            `json:"width"`
	ColumnAlignments []string          `json:"column_alignments,omitempty"`
	BorderStyle      string            `json:"border_style"`
	ZebraStripe      bool              `json:"zebra_stripe,omitempty"`
	Compact          bool              `json:"compact,omitempty"`
	NumberFormat     map[string]string `json:"number_format,omitempty"`
	HeaderColor      string            `json:"header_color,omitempty"`
	StripeColor      string            `json:"stripe_color,omitempty"`
	HighlightRows    map[string]string `json:"highlight_rows,omitempty"`
	HighlightColumns map[string]string `json:"highlight_columns,omitempty"`
	SortBy           any               `json:"sort_by,omitempty"`
	ColumnWidths     map[string]string `json:"column_widths,omitempty"`
}

// DecodeTableData decodes a table fragment's raw parameters into a
// TableData, applying the same defaults the reference model does:
// has_header true, width "auto", border_style "full".
func DecodeTableData(vals values.Map) (*TableData, error) {
	raw, err := json.Marshal(vals)
	if err != nil {
		return nil, err
	}
	td := &TableData{HasHeader: true, Width: "auto", BorderStyle: "full"}
	if err := json.Unmarshal(raw, td); err != nil {
		return nil, err
	}
	return td, nil
}

func (t *TableData) columnCount() int {
	if len(t.Rows) == 0 {
		return 0
	}
	return len(t.Rows[0])
}

func (t *TableData) headerRow() []any {
	if t.HasHeader && len(t.Rows) > 0 {
		return t.Rows[0]
	}
	return nil
}

// parseIndexKey converts a JSON-object string key back to a column or
// row index, matching the reference model's "int dict keys arrive as
// strings over JSON" normalisation.
func parseIndexKey(key string) (int, error) {
	n, err := strconv.Atoi(key)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("index must be a non-negative integer, got %q", key)
	}
	return n, nil
}

// Validate runs every structural check against t, in the same order the
// reference implementation runs its field and model validators, and
// returns the first violation found.
func (t *TableData) Validate() *apperr.Error {
	if len(t.Rows) == 0 {
		return apperr.New(apperr.InvalidTableData, "table rows cannot be empty",
			"provide at least one row")
	}

	if err := t.validateWidth(); err != nil {
		return err
	}
	if err := t.validateColumnAlignmentValues(); err != nil {
		return err
	}
	if err := t.validateBorderStyle(); err != nil {
		return err
	}
	if err := t.validateNumberFormat(); err != nil {
		return err
	}
	if t.HeaderColor != "" && !ValidColor(t.HeaderColor) {
		return apperr.New(apperr.InvalidColor,
			fmt.Sprintf("invalid header color: %s", t.HeaderColor),
			"use a theme color (blue, orange, ...) or a hex color")
	}
	if t.StripeColor != "" && !ValidColor(t.StripeColor) {
		return apperr.New(apperr.InvalidColor,
			fmt.Sprintf("invalid stripe color: %s", t.StripeColor),
			"use a theme color (blue, orange, ...) or a hex color")
	}
	if err := t.validateHighlightColors(t.HighlightRows, "row"); err != nil {
		return err
	}
	if err := t.validateHighlightColors(t.HighlightColumns, "column"); err != nil {
		return err
	}
	if err := t.validateSortByStructure(); err != nil {
		return err
	}
	if err := t.validateColumnWidthsFormat(); err != nil {
		return err
	}

	// Model-level checks, run only once every field is individually
	// well-formed, matching the reference implementation's
	// model_validator(mode="after").
	columnCounts := make(map[int]struct{}, len(t.Rows))
	for _, row := range t.Rows {
		columnCounts[len(row)] = struct{}{}
	}
	if len(columnCounts) > 1 {
		return apperr.New(apperr.InconsistentColumns,
			"all rows must have the same number of columns",
			"make every row (including the header) the same length")
	}

	columnCount := t.columnCount()

	if t.ColumnAlignments != nil && len(t.ColumnAlignments) != columnCount {
		return apperr.New(apperr.InvalidAlignment,
			fmt.Sprintf("number of alignments (%d) must match number of columns (%d)", len(t.ColumnAlignments), columnCount),
			"provide exactly one alignment per column")
	}

	if err := t.validateIndexBounds(t.NumberFormat, columnCount, apperr.InvalidNumberFormat, "column"); err != nil {
		return err
	}
	if err := t.validateIndexBounds(t.HighlightRows, len(t.Rows), apperr.InvalidHighlight, "row"); err != nil {
		return err
	}
	if err := t.validateIndexBounds(t.HighlightColumns, columnCount, apperr.InvalidHighlight, "column"); err != nil {
		return err
	}
	if err := t.validateSortByColumns(columnCount); err != nil {
		return err
	}
	if err := t.validateIndexBounds(t.ColumnWidths, columnCount, apperr.InvalidColumnWidth, "column"); err != nil {
		return err
	}

	return nil
}

func (t *TableData) validateWidth() *apperr.Error {
	w := t.Width
	if w != "auto" && w != "full" && !strings.HasSuffix(w, "%") {
		return apperr.New(apperr.InvalidWidth,
			fmt.Sprintf("width must be 'auto', 'full', or a percentage (e.g. '80%%'). Got: %s", w),
			"use auto, full, or a percentage like 80%")
	}
	if strings.HasSuffix(w, "%") {
		n, err := strconv.Atoi(strings.TrimSuffix(w, "%"))
		if err != nil || n < 1 || n > 100 {
			return apperr.New(apperr.InvalidWidth,
				fmt.Sprintf("invalid percentage value: %s", w),
				"use a whole percentage between 1 and 100")
		}
	}
	return nil
}

func (t *TableData) validateColumnAlignmentValues() *apperr.Error {
	for _, a := range t.ColumnAlignments {
		if _, ok := validAlignments[a]; !ok {
			return apperr.New(apperr.InvalidAlignment,
				fmt.Sprintf("alignment must be one of [left center right]. Got: %s", a),
				"use left, center, or right")
		}
	}
	return nil
}

func (t *TableData) validateBorderStyle() *apperr.Error {
	if _, ok := validBorderStyles[t.BorderStyle]; !ok {
		return apperr.New(apperr.InvalidBorderStyle,
			fmt.Sprintf("border style must be one of [full horizontal minimal none]. Got: %s", t.BorderStyle),
			"use full, horizontal, minimal, or none")
	}
	return nil
}

func (t *TableData) validateNumberFormat() *apperr.Error {
	for colKey, spec := range t.NumberFormat {
		if _, err := parseIndexKey(colKey); err != nil {
			return apperr.New(apperr.InvalidNumberFormat, err.Error(), "use a non-negative integer column index")
		}
		if !formatting.ValidateFormatSpec(spec) {
			return apperr.New(apperr.InvalidNumberFormat,
				fmt.Sprintf("invalid format specification for column %s: %s", colKey, spec),
				"use one of: currency:<ISO>, percent, decimal:<N>, integer, accounting")
		}
	}
	return nil
}

func (t *TableData) validateHighlightColors(m map[string]string, kind string) *apperr.Error {
	for idxKey, color := range m {
		if _, err := parseIndexKey(idxKey); err != nil {
			return apperr.New(apperr.InvalidHighlight, err.Error(), "use a non-negative integer index")
		}
		if !ValidColor(color) {
			return apperr.New(apperr.InvalidColor,
				fmt.Sprintf("invalid color for %s %s: %s", kind, idxKey, color),
				"use a theme color (blue, orange, ...) or a hex color")
		}
	}
	return nil
}

func (t *TableData) validateSortByStructure() *apperr.Error {
	if t.SortBy == nil {
		return nil
	}
	specs, ok := t.SortBy.([]any)
	if !ok {
		specs = []any{t.SortBy}
	}
	for _, spec := range specs {
		switch v := spec.(type) {
		case string:
			// validated against the header at column-existence time.
		case float64:
			if v < 0 {
				return apperr.New(apperr.InvalidSort,
					fmt.Sprintf("sort column index must be non-negative. Got: %v", v),
					"use a non-negative column index")
			}
		case map[string]any:
			colRaw, present := v["column"]
			if !present {
				return apperr.New(apperr.InvalidSort, "sort specification dict must have 'column' key", "include a 'column' key")
			}
			switch col := colRaw.(type) {
			case string:
			case float64:
				if col < 0 {
					return apperr.New(apperr.InvalidSort,
						fmt.Sprintf("sort column index must be non-negative. Got: %v", col),
						"use a non-negative column index")
				}
			default:
				return apperr.New(apperr.InvalidSort,
					fmt.Sprintf("sort column must be string or int. Got: %T", col),
					"use a column name or index")
			}
			if orderRaw, present := v["order"]; present {
				order, _ := orderRaw.(string)
				if order != "asc" && order != "desc" {
					return apperr.New(apperr.InvalidSort,
						fmt.Sprintf("sort order must be 'asc' or 'desc'. Got: %v", orderRaw),
						"use asc or desc")
				}
			}
		default:
			return apperr.New(apperr.InvalidSort,
				fmt.Sprintf("sort specification must be string, int, or object. Got: %T", spec),
				"use a column name, index, or {column, order} object")
		}
	}
	return nil
}

func (t *TableData) validateSortByColumns(columnCount int) *apperr.Error {
	if t.SortBy == nil {
		return nil
	}
	header := t.headerRow()
	specs, ok := t.SortBy.([]any)
	if !ok {
		specs = []any{t.SortBy}
	}
	checkName := func(name string) *apperr.Error {
		if !t.HasHeader || header == nil {
			return apperr.New(apperr.InvalidSort, "sorting by column name requires has_header=true", "use has_header=true or sort by index")
		}
		for _, h := range header {
			if fmt.Sprint(h) == name {
				return nil
			}
		}
		return apperr.New(apperr.InvalidSort, fmt.Sprintf("sort column %q not found in header row", name), "use a column name present in the header row")
	}
	checkIndex := func(idx float64) *apperr.Error {
		if int(idx) >= columnCount {
			return apperr.New(apperr.InvalidSort,
				fmt.Sprintf("sort column index %d exceeds number of columns (%d)", int(idx), columnCount),
				"use a column index within range")
		}
		return nil
	}
	for _, spec := range specs {
		switch v := spec.(type) {
		case string:
			if err := checkName(v); err != nil {
				return err
			}
		case float64:
			if err := checkIndex(v); err != nil {
				return err
			}
		case map[string]any:
			switch col := v["column"].(type) {
			case string:
				if err := checkName(col); err != nil {
					return err
				}
			case float64:
				if err := checkIndex(col); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (t *TableData) validateColumnWidthsFormat() *apperr.Error {
	var total float64
	for colKey, w := range t.ColumnWidths {
		if _, err := parseIndexKey(colKey); err != nil {
			return apperr.New(apperr.InvalidColumnWidth, err.Error(), "use a non-negative integer column index")
		}
		if !strings.HasSuffix(w, "%") {
			return apperr.New(apperr.InvalidColumnWidth,
				fmt.Sprintf("column width must be a percentage string (e.g. '25%%'). Got: %s", w),
				"use a percentage string like 25%")
		}
		pct, err := strconv.ParseFloat(strings.TrimSuffix(w, "%"), 64)
		if err != nil {
			return apperr.New(apperr.InvalidColumnWidth,
				fmt.Sprintf("invalid percentage format: %s", w),
				"use a numeric percentage like 25%")
		}
		if pct <= 0 || pct > 100 {
			return apperr.New(apperr.InvalidColumnWidth,
				fmt.Sprintf("column width percentage must be between 0 and 100. Got: %v%%", pct),
				"use a percentage between 0 and 100")
		}
		total += pct
	}
	if total > 100 {
		return apperr.New(apperr.InvalidColumnWidth,
			fmt.Sprintf("total column widths (%v%%) exceed 100%%", total),
			"make the column widths sum to 100% or less")
	}
	return nil
}

func (t *TableData) validateIndexBounds(m map[string]string, limit int, code apperr.Code, kind string) *apperr.Error {
	for idxKey := range m {
		idx, err := parseIndexKey(idxKey)
		if err != nil {
			return apperr.New(code, err.Error(), fmt.Sprintf("use a non-negative integer %s index", kind))
		}
		if idx >= limit {
			return apperr.New(code,
				fmt.Sprintf("%s index %d exceeds number of %ss (%d)", kind, idx, kind, limit),
				fmt.Sprintf("use a %s index within range", kind))
		}
	}
	return nil
}
