package rendering

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/docsmith/docsmith/internal/apperr"
	"github.com/docsmith/docsmith/internal/formatting"
	"github.com/docsmith/docsmith/internal/validation"
	"github.com/docsmith/docsmith/internal/values"
)

// renderTableFragment builds the HTML for a "table" fragment instance:
// sort, then per-column number formatting, then HTML5 table markup
// carrying alignment/zebra/highlight/border presentation as inline
// styles and classes. parameters is assumed already validated by
// sessionmgr.AddFragment, so decode/structural errors here are
// reported as RENDER_FAILED rather than the original validation code.
func renderTableFragment(parameters values.Map) (string, []string, error) {
	table, err := validation.DecodeTableData(parameters)
	if err != nil {
		return "", nil, apperr.New(apperr.RenderFailed,
			fmt.Sprintf("stored table parameters are no longer decodable: %s", err),
			"remove and re-add the table fragment")
	}

	var header []any
	if table.HasHeader && len(table.Rows) > 0 {
		header = table.Rows[0]
	}
	numCols := 0
	if len(table.Rows) > 0 {
		numCols = len(table.Rows[0])
	}

	rows := table.Rows
	if table.SortBy != nil {
		specs, err := formatting.ResolveSortSpecs(table.SortBy, header, table.HasHeader, numCols)
		if err != nil {
			return "", nil, apperr.New(apperr.RenderFailed,
				fmt.Sprintf("stored sort_by is no longer valid: %s", err), "remove and re-add the table fragment")
		}
		rows = formatting.SortRows(rows, specs, table.HasHeader)
	}

	rows, err = applyNumberFormats(rows, table.HasHeader, table.NumberFormat)
	if err != nil {
		return "", nil, err
	}

	alignments := table.ColumnAlignments
	if alignments == nil {
		alignments = make([]string, numCols)
		for i := range alignments {
			alignments[i] = "left"
		}
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf(`<table class="docsmith-table docsmith-table-%s docsmith-border-%s"%s>`,
		html.EscapeString(widthClass(table.Width)), html.EscapeString(table.BorderStyle), widthStyle(table.Width)))

	if table.Title != "" {
		fmt.Fprintf(&b, `<caption>%s</caption>`, html.EscapeString(table.Title))
	}

	startRow := 0
	if table.HasHeader && len(rows) > 0 {
		b.WriteString("<thead><tr>")
		for col, cell := range rows[0] {
			style := cellStyle(table, col, alignments, true)
			fmt.Fprintf(&b, `<th%s>%s</th>`, style, html.EscapeString(fmt.Sprint(cell)))
		}
		b.WriteString("</tr></thead>")
		startRow = 1
	}

	b.WriteString("<tbody>")
	for rowIdx := startRow; rowIdx < len(rows); rowIdx++ {
		rowClass := ""
		if table.ZebraStripe && (rowIdx-startRow)%2 == 1 {
			rowClass = ` class="docsmith-zebra"`
		}
		rowStyle := ""
		if color, ok := table.HighlightRows[strconv.Itoa(rowIdx)]; ok {
			rowStyle = fmt.Sprintf(` style="background-color:%s"`, html.EscapeString(colorValue(color)))
		}
		fmt.Fprintf(&b, "<tr%s%s>", rowClass, rowStyle)
		for col, cell := range rows[rowIdx] {
			style := cellStyle(table, col, alignments, false)
			fmt.Fprintf(&b, `<td%s>%s</td>`, style, html.EscapeString(fmt.Sprint(cell)))
		}
		b.WriteString("</tr>")
	}
	b.WriteString("</tbody></table>")

	return b.String(), alignments, nil
}

func widthClass(width string) string {
	switch width {
	case "auto", "full":
		return width
	default:
		return "percent"
	}
}

func widthStyle(width string) string {
	if strings.HasSuffix(width, "%") {
		return fmt.Sprintf(` style="width:%s"`, html.EscapeString(width))
	}
	if width == "full" {
		return ` style="width:100%"`
	}
	return ""
}

func cellStyle(table *validation.TableData, col int, alignments []string, isHeader bool) string {
	var decls []string
	if col < len(alignments) && alignments[col] != "" && alignments[col] != "left" {
		decls = append(decls, "text-align:"+alignments[col])
	}
	if color, ok := table.HighlightColumns[strconv.Itoa(col)]; ok {
		decls = append(decls, "background-color:"+colorValue(color))
	}
	if isHeader && table.HeaderColor != "" {
		decls = append(decls, "background-color:"+colorValue(table.HeaderColor))
	}
	if len(decls) == 0 {
		return ""
	}
	return fmt.Sprintf(` style="%s"`, html.EscapeString(strings.Join(decls, ";")))
}

func colorValue(color string) string {
	css, err := validation.CSSColor(color)
	if err != nil {
		return color
	}
	return css
}

func applyNumberFormats(rows [][]any, hasHeader bool, specs map[string]string) ([][]any, error) {
	if len(specs) == 0 {
		return rows, nil
	}
	formatted := make([][]any, len(rows))
	for i, row := range rows {
		if hasHeader && i == 0 {
			formatted[i] = row
			continue
		}
		newRow := make([]any, len(row))
		copy(newRow, row)
		for colKey, spec := range specs {
			col, err := strconv.Atoi(colKey)
			if err != nil || col < 0 || col >= len(newRow) {
				continue
			}
			out, err := formatting.FormatNumber(newRow[col], spec)
			if err != nil {
				return nil, err
			}
			newRow[col] = out
		}
		formatted[i] = newRow
	}
	return formatted, nil
}
