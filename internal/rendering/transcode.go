package rendering

import (
	"fmt"
	"regexp"
	"strings"
)

// StubPDFTranscoder wraps rendered HTML in a minimal, valid
// single-page PDF document. It exists so the PDF render path has a
// default, deterministic implementation to exercise in tests without a
// native PDF engine dependency — a real deployment supplies its own
// PDFTranscoder (e.g. backed by a headless browser or a PDF library)
// and wires it into New in place of this stub.
type StubPDFTranscoder struct{}

// HTMLToPDF renders html as plain text inside a single PDF page. Markup
// is not interpreted; this is a deterministic placeholder, not a layout
// engine.
func (StubPDFTranscoder) HTMLToPDF(htmlContent string) ([]byte, error) {
	text := stripTags(htmlContent)
	lines := wrapLines(text, 90)

	var content strings.Builder
	content.WriteString("BT /F1 10 Tf 50 740 Td 12 TL\n")
	for _, line := range lines {
		content.WriteString("(")
		content.WriteString(escapePDFString(line))
		content.WriteString(") Tj T*\n")
	}
	content.WriteString("ET")
	stream := content.String()

	var buf strings.Builder
	offsets := make([]int, 0, 5)
	write := func(s string) {
		buf.WriteString(s)
	}
	track := func() { offsets = append(offsets, buf.Len()) }

	write("%PDF-1.4\n")
	track()
	write("1 0 obj<</Type/Catalog/Pages 2 0 R>>endobj\n")
	track()
	write("2 0 obj<</Type/Pages/Kids[3 0 R]/Count 1>>endobj\n")
	track()
	write("3 0 obj<</Type/Page/Parent 2 0 R/MediaBox[0 0 612 792]/Resources<</Font<</F1 5 0 R>>>>/Contents 4 0 R>>endobj\n")
	track()
	write(fmt.Sprintf("4 0 obj<</Length %d>>stream\n%s\nendstream endobj\n", len(stream), stream))
	track()
	write("5 0 obj<</Type/Font/Subtype/Type1/BaseFont/Helvetica>>endobj\n")

	xrefStart := buf.Len()
	write("xref\n")
	write(fmt.Sprintf("0 %d\n", len(offsets)+1))
	write("0000000000 65535 f \n")
	for _, off := range offsets {
		write(fmt.Sprintf("%010d 00000 n \n", off))
	}
	write(fmt.Sprintf("trailer<</Size %d/Root 1 0 R>>\n", len(offsets)+1))
	write(fmt.Sprintf("startxref\n%d\n%%%%EOF", xrefStart))

	return []byte(buf.String()), nil
}

func escapePDFString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`)
	return r.Replace(s)
}

func wrapLines(text string, width int) []string {
	var out []string
	for _, raw := range strings.Split(text, "\n") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		for len(raw) > width {
			out = append(out, raw[:width])
			raw = raw[width:]
		}
		out = append(out, raw)
	}
	return out
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

func stripTags(htmlContent string) string {
	return tagPattern.ReplaceAllString(htmlContent, "")
}

// StubMarkdownTranscoder converts the small, predictable subset of
// HTML this module's own templates emit (headings, paragraphs, bold/
// italic, links, images, lists, tables, line breaks) into Markdown. It
// is not a general HTML parser; like StubPDFTranscoder it is the
// default for the "transcoder as external collaborator" boundary.
type StubMarkdownTranscoder struct{}

var (
	headingPattern    = regexp.MustCompile(`(?is)<h([1-6])[^>]*>(.*?)</h[1-6]>`)
	paragraphPattern  = regexp.MustCompile(`(?is)<p[^>]*>(.*?)</p>`)
	strongPattern     = regexp.MustCompile(`(?is)<(strong|b)[^>]*>(.*?)</(strong|b)>`)
	emPattern         = regexp.MustCompile(`(?is)<(em|i)[^>]*>(.*?)</(em|i)>`)
	linkPattern       = regexp.MustCompile(`(?is)<a[^>]*href="([^"]*)"[^>]*>(.*?)</a>`)
	imgPattern        = regexp.MustCompile(`(?is)<img[^>]*src="([^"]*)"[^>]*alt="([^"]*)"[^>]*/?>`)
	listItemPattern   = regexp.MustCompile(`(?is)<li[^>]*>(.*?)</li>`)
	brPattern         = regexp.MustCompile(`(?is)<br\s*/?>`)
	tableRowPattern   = regexp.MustCompile(`(?is)<tr[^>]*>(.*?)</tr>`)
	tableCellPattern  = regexp.MustCompile(`(?is)<t[hd][^>]*>(.*?)</t[hd]>`)
	tableHeaderMarker = regexp.MustCompile(`(?is)<thead>.*?</thead>`)
	anyTagPattern     = regexp.MustCompile(`<[^>]*>`)
)

// HTMLToMarkdown converts htmlContent to Markdown. Table post-processing
// happens separately in applyGFMAlignment since this function has no
// access to the stored column_alignments.
func (StubMarkdownTranscoder) HTMLToMarkdown(htmlContent string) (string, error) {
	out := htmlContent

	out = tableHeaderMarker.ReplaceAllStringFunc(out, func(block string) string {
		return renderMarkdownTableHead(block)
	})
	out = tableRowPattern.ReplaceAllStringFunc(out, renderMarkdownRow)

	out = headingPattern.ReplaceAllStringFunc(out, func(m string) string {
		groups := headingPattern.FindStringSubmatch(m)
		level := len(groups[1])
		return "\n" + strings.Repeat("#", level) + " " + strings.TrimSpace(groups[2]) + "\n"
	})
	out = paragraphPattern.ReplaceAllString(out, "\n$1\n")
	out = strongPattern.ReplaceAllString(out, "**$2**")
	out = emPattern.ReplaceAllString(out, "_$2_")
	out = linkPattern.ReplaceAllString(out, "[$2]($1)")
	out = imgPattern.ReplaceAllString(out, "![$2]($1)")
	out = listItemPattern.ReplaceAllString(out, "- $1\n")
	out = brPattern.ReplaceAllString(out, "\n")
	out = anyTagPattern.ReplaceAllString(out, "")

	lines := strings.Split(out, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	collapsed := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			if blank {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		collapsed = append(collapsed, line)
	}
	return strings.TrimSpace(strings.Join(collapsed, "\n")) + "\n", nil
}

func renderMarkdownTableHead(block string) string {
	rows := tableRowPattern.FindAllStringSubmatch(block, -1)
	if len(rows) == 0 {
		return block
	}
	cells := tableCellPattern.FindAllStringSubmatch(rows[0][1], -1)
	headerLine := "|"
	sepLine := "|"
	for _, c := range cells {
		headerLine += " " + strings.TrimSpace(anyTagPattern.ReplaceAllString(c[1], "")) + " |"
		sepLine += " --- |"
	}
	return "\n" + headerLine + "\n" + sepLine + "\n"
}

func renderMarkdownRow(row string) string {
	groups := tableRowPattern.FindStringSubmatch(row)
	if groups == nil {
		return row
	}
	cells := tableCellPattern.FindAllStringSubmatch(groups[1], -1)
	if len(cells) == 0 {
		return row
	}
	line := "|"
	for _, c := range cells {
		line += " " + strings.TrimSpace(anyTagPattern.ReplaceAllString(c[1], "")) + " |"
	}
	return line + "\n"
}

// applyGFMAlignment rewrites each table's separator row to carry GFM
// alignment markers, consuming alignments in the document order the
// tables were rendered (tableAlignments, one []string per table
// fragment encountered during renderHTML).
func applyGFMAlignment(markdown string, tableAlignments [][]string) string {
	if len(tableAlignments) == 0 {
		return markdown
	}

	lines := strings.Split(markdown, "\n")
	tableIdx := 0
	for i := 1; i < len(lines); i++ {
		if !isMarkdownSeparatorLine(lines[i]) {
			continue
		}
		if !looksLikeTableHeader(lines[i-1]) {
			continue
		}
		if tableIdx >= len(tableAlignments) {
			break
		}
		lines[i] = buildAlignmentSeparator(lines[i], tableAlignments[tableIdx])
		tableIdx++
	}
	return strings.Join(lines, "\n")
}

func isMarkdownSeparatorLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "|") {
		return false
	}
	for _, r := range trimmed {
		if r != '|' && r != '-' && r != ':' && r != ' ' {
			return false
		}
	}
	return strings.Contains(trimmed, "-")
}

func looksLikeTableHeader(line string) bool {
	trimmed := strings.TrimSpace(line)
	return strings.HasPrefix(trimmed, "|") && strings.HasSuffix(trimmed, "|")
}

func buildAlignmentSeparator(original string, alignments []string) string {
	cols := strings.Count(original, "|") - 1
	if cols <= 0 {
		return original
	}
	cells := make([]string, cols)
	for i := range cells {
		align := "left"
		if i < len(alignments) && alignments[i] != "" {
			align = alignments[i]
		}
		switch align {
		case "center":
			cells[i] = ":---:"
		case "right":
			cells[i] = "---:"
		default:
			cells[i] = "---"
		}
	}
	return "| " + strings.Join(cells, " | ") + " |"
}
