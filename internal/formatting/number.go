package formatting

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	textnumber "golang.org/x/text/number"

	"github.com/docsmith/docsmith/internal/apperr"
)

var defaultLocale = language.AmericanEnglish

// ParseNumeric converts a cell value to float64 the same way sorting
// does: numbers pass through, strings are trimmed and de-commified,
// anything else fails.
func ParseNumeric(v any) (float64, bool) {
	return isNumeric(v)
}

// ValidateFormatSpec reports whether spec is one of the recognised
// number-format specifications, mirroring FormatNumber's grammar
// without performing any formatting.
func ValidateFormatSpec(spec string) bool {
	if spec == "" {
		return true
	}
	spec = strings.ToLower(strings.TrimSpace(spec))
	switch {
	case strings.HasPrefix(spec, "currency:"):
		code := strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(spec, "currency:")))
		if len(code) != 3 {
			return false
		}
		for _, r := range code {
			if r < 'A' || r > 'Z' {
				return false
			}
		}
		return true
	case strings.HasPrefix(spec, "decimal:"):
		n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(spec, "decimal:")))
		return err == nil && n >= 0
	default:
		return spec == "percent" || spec == "integer" || spec == "accounting"
	}
}

// FormatNumber renders value under formatSpec using locale-aware
// grouping and symbols: "currency:<ISO>", "percent", "decimal:<N>",
// "integer", or "accounting" (negatives in parentheses). A nil or
// empty-string value formats to "". A missing spec returns the value
// unformatted. A value that does not parse as numeric is also returned
// unformatted, since only the format application - not the cell
// content - is this function's concern.
func FormatNumber(value any, formatSpec string) (string, error) {
	if value == nil || value == "" {
		return "", nil
	}
	if formatSpec == "" {
		return fmt.Sprint(value), nil
	}

	num, ok := ParseNumeric(value)
	if !ok {
		return fmt.Sprint(value), nil
	}

	spec := strings.ToLower(strings.TrimSpace(formatSpec))
	p := message.NewPrinter(defaultLocale)

	switch {
	case strings.HasPrefix(spec, "currency:"):
		return formatCurrency(p, num, spec)
	case spec == "percent":
		return p.Sprintf("%v", textnumber.Percent(num)), nil
	case strings.HasPrefix(spec, "decimal:"):
		return formatDecimalSpec(p, num, spec)
	case spec == "integer":
		return p.Sprintf("%v", textnumber.Decimal(num, textnumber.MaxFractionDigits(0), textnumber.MinFractionDigits(0))), nil
	case spec == "accounting":
		return formatAccounting(p, num), nil
	default:
		return "", apperr.New(apperr.InvalidNumberFormat,
			fmt.Sprintf("unknown format specification: %s", formatSpec),
			"use one of: currency:<ISO>, percent, decimal:<N>, integer, accounting")
	}
}

func formatCurrency(p *message.Printer, num float64, spec string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(spec, "currency:")))
	if len(code) != 3 {
		return "", apperr.New(apperr.InvalidNumberFormat,
			fmt.Sprintf("invalid currency code: %s", code),
			"use a 3-letter ISO 4217 currency code, e.g. currency:USD")
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return "", apperr.New(apperr.InvalidNumberFormat,
			fmt.Sprintf("invalid currency code: %s", code),
			"use a 3-letter ISO 4217 currency code, e.g. currency:USD")
	}
	return p.Sprintf("%v", currency.Symbol(unit.Amount(num))), nil
}

func formatDecimalSpec(p *message.Printer, num float64, spec string) (string, error) {
	places, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(spec, "decimal:")))
	if err != nil || places < 0 {
		return "", apperr.New(apperr.InvalidNumberFormat,
			fmt.Sprintf("invalid decimal format: %s", spec),
			"use decimal:<N> with a non-negative integer N")
	}
	return p.Sprintf("%v", textnumber.Decimal(num, textnumber.MaxFractionDigits(places), textnumber.MinFractionDigits(places))), nil
}

func formatAccounting(p *message.Printer, num float64) string {
	if num < 0 {
		formatted := p.Sprintf("%v", textnumber.Decimal(-num, textnumber.MaxFractionDigits(2), textnumber.MinFractionDigits(2)))
		return "(" + formatted + ")"
	}
	return p.Sprintf("%v", textnumber.Decimal(num, textnumber.MaxFractionDigits(2), textnumber.MinFractionDigits(2)))
}
