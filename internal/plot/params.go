// Package plot owns graph parameter validation, theme resolution, and
// storage/retrieval of rendered chart images. The actual pixel-pushing
// is delegated to a GraphRenderer collaborator so the package never
// depends on a native charting library.
package plot

import (
	"fmt"

	"github.com/docsmith/docsmith/internal/apperr"
)

// Kind is a supported chart type.
type Kind string

const (
	KindBar     Kind = "bar"
	KindLine    Kind = "line"
	KindScatter Kind = "scatter"
)

// Series is one named data series within a graph.
type Series struct {
	Name  string    `json:"name"`
	X     []float64 `json:"x,omitempty"`
	Y     []float64 `json:"y"`
	Color string    `json:"color,omitempty"`
}

// GraphParams describes a chart to render. It mirrors the simplified,
// multi-series shape used throughout this module's tool surface rather
// than the five-fixed-dataset (y1..y5) shape of the reference renderer
// it was distilled from.
type GraphParams struct {
	Kind         Kind     `json:"kind"`
	Title        string   `json:"title,omitempty"`
	XLabel       string   `json:"x_label,omitempty"`
	YLabel       string   `json:"y_label,omitempty"`
	Series       []Series `json:"series"`
	Theme        string   `json:"theme,omitempty"`
	Format       string   `json:"format,omitempty"`
	ReturnBase64 bool     `json:"return_base64,omitempty"`
	Proxy        bool     `json:"proxy,omitempty"`
	Alias        string   `json:"alias,omitempty"`
	// Alpha is the fill/stroke opacity of every series mark, in [0, 1].
	// A nil value means "not supplied"; Normalize defaults it to 1.0.
	Alpha *float64 `json:"alpha,omitempty"`
}

// Validate checks structural invariants: a known kind, at least one
// series, non-empty names and y-values, and x/y length agreement when x
// is supplied. It does not resolve theme or format defaults; callers
// should call Normalize first.
func (p *GraphParams) Validate() error {
	switch p.Kind {
	case KindBar, KindLine, KindScatter:
	default:
		return apperr.New(apperr.InvalidGraphParams,
			fmt.Sprintf("unknown chart kind %q", p.Kind),
			"use one of: bar, line, scatter")
	}
	if len(p.Series) == 0 {
		return apperr.New(apperr.InvalidGraphParams,
			"series must contain at least one entry", "add at least one series with a y array")
	}
	for i, s := range p.Series {
		if s.Name == "" {
			return apperr.New(apperr.InvalidGraphParams,
				fmt.Sprintf("series[%d] is missing a name", i), "give every series a non-empty name")
		}
		if len(s.Y) == 0 {
			return apperr.New(apperr.GraphValidationError,
				fmt.Sprintf("series %q has no y values", s.Name), "supply at least one y value per series")
		}
		if s.X != nil && len(s.X) != len(s.Y) {
			return apperr.New(apperr.GraphValidationError,
				fmt.Sprintf("series %q: x has %d values but y has %d", s.Name, len(s.X), len(s.Y)),
				"make x and y the same length, or omit x to use an index axis")
		}
	}
	if p.Alpha != nil && (*p.Alpha < 0.0 || *p.Alpha > 1.0) {
		return apperr.New(apperr.InvalidGraphParams,
			fmt.Sprintf("alpha %v is out of range", *p.Alpha),
			"use an alpha between 0.0 and 1.0")
	}
	return nil
}

// Normalize fills in the documented defaults (xlabel, ylabel, theme,
// format, alpha) in place.
func (p *GraphParams) Normalize() {
	if p.XLabel == "" {
		p.XLabel = "X-axis"
	}
	if p.YLabel == "" {
		p.YLabel = "Y-axis"
	}
	if p.Theme == "" {
		p.Theme = "light"
	}
	if p.Alpha == nil {
		one := 1.0
		p.Alpha = &one
	}
	if p.Format == "" {
		p.Format = "svg"
	}
}

// XValues returns series.X if set, otherwise a 0..len(Y)-1 index axis —
// the Go equivalent of the reference model's get_x_values helper.
func (s Series) XValues() []float64 {
	if s.X != nil {
		return s.X
	}
	out := make([]float64, len(s.Y))
	for i := range out {
		out[i] = float64(i)
	}
	return out
}
