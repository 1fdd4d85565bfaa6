package plot

import (
	"context"
	"fmt"
	"html"
	"strings"
	"sync"

	"github.com/docsmith/docsmith/internal/apperr"
)

// GraphRenderer is the pixel-pushing collaborator: given validated,
// normalized params it produces image bytes and their content type.
// A real deployment can wire in a native charting backend; this
// package ships SVGRenderer as the deterministic default.
type GraphRenderer interface {
	Render(ctx context.Context, params GraphParams) (imageBytes []byte, contentType string, err error)
}

// SVGRenderer draws bar/line/scatter charts as hand-built SVG markup.
// Like the reference renderer it wraps, the underlying drawing surface
// is not safe for concurrent use, so every call is serialized through a
// single package-level mutex (§5's "plotting backend mutex" rule).
type SVGRenderer struct{}

var renderMu sync.Mutex

const (
	canvasWidth  = 640
	canvasHeight = 420
	plotLeft     = 60
	plotRight    = 600
	plotTop      = 40
	plotBottom   = 360
)

func (SVGRenderer) Render(ctx context.Context, params GraphParams) (_ []byte, _ string, err error) {
	renderMu.Lock()
	defer renderMu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	theme, ok := ResolveTheme(params.Theme)
	if !ok {
		return nil, "", apperr.New(apperr.InvalidGraphParams,
			fmt.Sprintf("unknown theme %q", params.Theme),
			fmt.Sprintf("use one of: %s", strings.Join(ThemeNames(), ", ")))
	}

	xMin, xMax, yMin, yMax := dataBounds(params.Series)

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`,
		canvasWidth, canvasHeight, canvasWidth, canvasHeight)
	fmt.Fprintf(&b, `<rect width="%d" height="%d" fill="%s"/>`, canvasWidth, canvasHeight, theme.BackgroundColor)

	drawGrid(&b, theme)
	drawAxes(&b, theme)

	if params.Title != "" {
		fmt.Fprintf(&b, `<text x="%d" y="24" text-anchor="middle" font-family="%s" font-size="16" fill="%s">%s</text>`,
			canvasWidth/2, theme.FontFamily, theme.TextColor, html.EscapeString(params.Title))
	}
	fmt.Fprintf(&b, `<text x="%d" y="%d" text-anchor="middle" font-family="%s" font-size="12" fill="%s">%s</text>`,
		canvasWidth/2, canvasHeight-8, theme.FontFamily, theme.TextColor, html.EscapeString(params.XLabel))
	fmt.Fprintf(&b, `<text x="16" y="%d" text-anchor="middle" font-family="%s" font-size="12" fill="%s" transform="rotate(-90 16 %d)">%s</text>`,
		(plotTop+plotBottom)/2, theme.FontFamily, theme.TextColor, (plotTop+plotBottom)/2, html.EscapeString(params.YLabel))

	alpha := 1.0
	if params.Alpha != nil {
		alpha = *params.Alpha
	}

	switch params.Kind {
	case KindBar:
		drawBars(&b, params.Series, theme, xMin, xMax, yMin, yMax, alpha)
	case KindLine:
		drawLines(&b, params.Series, theme, xMin, xMax, yMin, yMax, alpha)
	case KindScatter:
		drawScatter(&b, params.Series, theme, xMin, xMax, yMin, yMax, alpha)
	}

	drawLegend(&b, params.Series, theme)

	b.WriteString("</svg>")
	return []byte(b.String()), "image/svg+xml", nil
}

func dataBounds(series []Series) (xMin, xMax, yMin, yMax float64) {
	first := true
	for _, s := range series {
		for i, y := range s.Y {
			x := s.XValues()[i]
			if first {
				xMin, xMax, yMin, yMax = x, x, y, y
				first = false
				continue
			}
			if x < xMin {
				xMin = x
			}
			if x > xMax {
				xMax = x
			}
			if y < yMin {
				yMin = y
			}
			if y > yMax {
				yMax = y
			}
		}
	}
	if yMin == yMax {
		yMin -= 1
		yMax += 1
	}
	if xMin == xMax {
		xMin -= 1
		xMax += 1
	}
	return xMin, xMax, yMin, yMax
}

func projectX(x, xMin, xMax float64) float64 {
	if xMax == xMin {
		return plotLeft
	}
	return plotLeft + (x-xMin)/(xMax-xMin)*(plotRight-plotLeft)
}

func projectY(y, yMin, yMax float64) float64 {
	if yMax == yMin {
		return plotBottom
	}
	return plotBottom - (y-yMin)/(yMax-yMin)*(plotBottom-plotTop)
}

func drawGrid(b *strings.Builder, theme Theme) {
	for i := 0; i <= 4; i++ {
		y := plotTop + float64(i)*(plotBottom-plotTop)/4
		fmt.Fprintf(b, `<line x1="%d" y1="%.1f" x2="%d" y2="%.1f" stroke="%s" stroke-width="1" opacity="0.5"/>`,
			plotLeft, y, plotRight, y, theme.GridColor)
	}
}

func drawAxes(b *strings.Builder, theme Theme) {
	fmt.Fprintf(b, `<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="%s" stroke-width="1.5"/>`,
		plotLeft, plotTop, plotLeft, plotBottom, theme.TextColor)
	fmt.Fprintf(b, `<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="%s" stroke-width="1.5"/>`,
		plotLeft, plotBottom, plotRight, plotBottom, theme.TextColor)
}

func drawBars(b *strings.Builder, series []Series, theme Theme, xMin, xMax, yMin, yMax, alpha float64) {
	zero := projectY(0, yMin, yMax)
	n := len(series)
	for si, s := range series {
		color := s.Color
		if color == "" {
			color = theme.ColorFor(si)
		}
		count := len(s.Y)
		if count == 0 {
			continue
		}
		slot := (plotRight - plotLeft) / float64(count)
		barWidth := slot / float64(n+1)
		for i, y := range s.Y {
			cx := plotLeft + float64(i)*slot + float64(si+1)*barWidth
			top := projectY(y, yMin, yMax)
			height := zero - top
			if height < 0 {
				top, height = zero, -height
			}
			fmt.Fprintf(b, `<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s" fill-opacity="%.2f"/>`,
				cx, top, barWidth*0.8, height, color, alpha)
		}
	}
}

func drawLines(b *strings.Builder, series []Series, theme Theme, xMin, xMax, yMin, yMax, alpha float64) {
	for si, s := range series {
		color := s.Color
		if color == "" {
			color = theme.ColorFor(si)
		}
		if len(s.Y) == 0 {
			continue
		}
		x := s.XValues()
		var points strings.Builder
		for i, y := range s.Y {
			px := projectX(x[i], xMin, xMax)
			py := projectY(y, yMin, yMax)
			if i > 0 {
				points.WriteString(" ")
			}
			fmt.Fprintf(&points, "%.1f,%.1f", px, py)
		}
		fmt.Fprintf(b, `<polyline points="%s" fill="none" stroke="%s" stroke-width="2" stroke-opacity="%.2f"/>`, points.String(), color, alpha)
	}
}

func drawScatter(b *strings.Builder, series []Series, theme Theme, xMin, xMax, yMin, yMax, alpha float64) {
	for si, s := range series {
		color := s.Color
		if color == "" {
			color = theme.ColorFor(si)
		}
		x := s.XValues()
		for i, y := range s.Y {
			px := projectX(x[i], xMin, xMax)
			py := projectY(y, yMin, yMax)
			fmt.Fprintf(b, `<circle cx="%.1f" cy="%.1f" r="4" fill="%s" fill-opacity="%.2f"/>`, px, py, color, alpha)
		}
	}
}

func drawLegend(b *strings.Builder, series []Series, theme Theme) {
	if len(series) < 2 {
		return
	}
	y := plotTop
	for si, s := range series {
		color := s.Color
		if color == "" {
			color = theme.ColorFor(si)
		}
		fmt.Fprintf(b, `<rect x="%d" y="%d" width="10" height="10" fill="%s"/>`, plotRight+10, y, color)
		fmt.Fprintf(b, `<text x="%d" y="%d" font-family="%s" font-size="11" fill="%s">%s</text>`,
			plotRight+24, y+9, theme.FontFamily, theme.TextColor, html.EscapeString(s.Name))
		y += 16
	}
}
