package plot

import "strings"

// Theme is a named palette applied to rendered charts: background/text/
// grid colors, a per-series color cycle, and font hints. Modeled on the
// reference renderer's light/dark/bizlight/bizdark theme table.
type Theme struct {
	Name            string
	BackgroundColor string
	TextColor       string
	GridColor       string
	Colors          []string
	FontFamily      string
	Description     string
}

var themes = map[string]Theme{
	"light": {
		Name:            "light",
		BackgroundColor: "#FFFFFF",
		TextColor:       "#1A1A1A",
		GridColor:       "#DDDDDD",
		Colors: []string{
			"#2E86C1", "#E67E22", "#27AE60", "#C0392B",
			"#8E44AD", "#A04000", "#D35400", "#707B7C",
		},
		FontFamily:  "sans-serif",
		Description: "Default light theme for general-purpose viewing",
	},
	"dark": {
		Name:            "dark",
		BackgroundColor: "#1E1E1E",
		TextColor:       "#E0E0E0",
		GridColor:       "#3A3A3A",
		Colors: []string{
			"#5DADE2", "#F39C12", "#58D68D", "#EC7063",
			"#BB8FCE", "#E59866", "#F1948A", "#AEB6BF",
		},
		FontFamily:  "sans-serif",
		Description: "Dark theme with muted colors designed to reduce eye strain, perfect for extended viewing sessions and low-light environments",
	},
	"bizlight": {
		Name:            "bizlight",
		BackgroundColor: "#FFFFFF",
		TextColor:       "#212529",
		GridColor:       "#E9ECEF",
		Colors: []string{
			"#0B5394", "#990000", "#38761D", "#B45F06",
			"#674EA7", "#45818E", "#A61C00", "#666666",
		},
		FontFamily:  "serif",
		Description: "Conservative light theme for business and financial reporting",
	},
	"bizdark": {
		Name:            "bizdark",
		BackgroundColor: "#14171A",
		TextColor:       "#F2F2F2",
		GridColor:       "#2C3036",
		Colors: []string{
			"#4A90D9", "#D97941", "#5BA55B", "#C75450",
			"#9A7FC7", "#7FA8A0", "#D9A441", "#ABB2B9",
		},
		FontFamily:  "serif",
		Description: "Conservative dark theme for business and financial reporting in low-light settings",
	},
}

// ThemeNames returns the available theme names in a stable order.
func ThemeNames() []string {
	return []string{"light", "dark", "bizlight", "bizdark"}
}

// ResolveTheme looks up name case-insensitively, defaulting to "light"
// when name is empty, and returns the theme plus whether it was found.
func ResolveTheme(name string) (Theme, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = "light"
	}
	th, ok := themes[key]
	return th, ok
}

// ColorFor returns the theme's color for series index i, cycling
// through the palette when there are more series than colors.
func (t Theme) ColorFor(i int) string {
	if len(t.Colors) == 0 {
		return "#000000"
	}
	return t.Colors[i%len(t.Colors)]
}
