// Package validation implements the fragment-parameter business rules
// that sit above the shallow ParameterSchema type checks: table
// structure, color names, and image URL reachability.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// ThemeColors are the color names resolvable to a CSS variable, mixing
// basic names with Bootstrap-style semantic names.
var ThemeColors = map[string]struct{}{
	"blue": {}, "orange": {}, "green": {}, "red": {}, "purple": {}, "brown": {}, "pink": {}, "gray": {},
	"primary": {}, "success": {}, "warning": {}, "danger": {}, "info": {}, "light": {}, "dark": {}, "muted": {},
}

var hexColorPattern = regexp.MustCompile(`^#([0-9a-f]{3}|[0-9a-f]{6})$`)

// ValidColor reports whether color is empty, a known theme name, or a
// 3- or 6-digit hex code.
func ValidColor(color string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(color))
	if trimmed == "" {
		return true
	}
	if _, ok := ThemeColors[trimmed]; ok {
		return true
	}
	if strings.HasPrefix(trimmed, "#") {
		return hexColorPattern.MatchString(trimmed)
	}
	return false
}

// CSSColor resolves color to the value a template should emit: a CSS
// variable reference (with "#" followed by the name as its fallback
// value) for a theme name, or the hex code unchanged.
func CSSColor(color string) (string, error) {
	if !ValidColor(color) {
		return "", fmt.Errorf("invalid color: %s", color)
	}
	trimmed := strings.ToLower(strings.TrimSpace(color))
	if _, ok := ThemeColors[trimmed]; ok {
		return fmt.Sprintf("var(--docsmith-%s, #%s)", trimmed, trimmed), nil
	}
	return color, nil
}
