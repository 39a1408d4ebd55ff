package util

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var printer = message.NewPrinter(language.English)

// PriceDecimals picks the number of fraction digits for a quote of this magnitude.
// Cents from 1 up, four digits down to 0.01, and four significant digits below that.
func PriceDecimals(v float64) int {
	a := math.Abs(v)
	switch {
	case a >= 1 || a == 0 || math.IsNaN(a) || math.IsInf(a, 0):
		return 2
	case a >= 0.01:
		return 4
	default:
		return 4 - int(math.Floor(math.Log10(a)))
	}
}

// FormatPrice renders v with thousands grouping, e.g. 65000 -> "65,000.00".
func FormatPrice(v float64) string {
	return FormatPriceDecimals(v, PriceDecimals(v))
}

// FormatZone renders a low/high band. Equal edges collapse to a single price.
func FormatZone(low, high float64) string {
	if FormatPrice(low) == FormatPrice(high) {
		return FormatPrice(low)
	}
	return FormatPrice(low) + " - " + FormatPrice(high)
}

// ParsePrice reads a price produced by FormatPrice or typed by a user ("$65,000.50").
func ParsePrice(s string) (float64, error) {
	clean := strings.NewReplacer(",", "", "$", "", " ", "").Replace(strings.TrimSpace(s))
	if clean == "" {
		return 0, fmt.Errorf("empty price")
	}
	v, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", s, err)
	}
	return v, nil
}

// ParseZone splits a zone string produced by FormatZone into its edges.
func ParseZone(s string) (float64, float64, error) {
	parts := strings.Split(s, " - ")
	switch len(parts) {
	case 1:
		v, err := ParsePrice(parts[0])
		return v, v, err
	case 2:
		lo, err := ParsePrice(parts[0])
		if err != nil {
			return 0, 0, err
		}
		hi, err := ParsePrice(parts[1])
		if err != nil {
			return 0, 0, err
		}
		return lo, hi, nil
	default:
		return 0, 0, fmt.Errorf("malformed zone %q", s)
	}
}

// RoundTo rounds v to d fraction digits.
func RoundTo(v float64, d int) float64 {
	p := math.Pow(10, float64(d))
	return math.Round(v*p) / p
}

// FormatPriceDecimals renders v with thousands grouping and exactly d fraction digits.
func FormatPriceDecimals(v float64, d int) string {
	return printer.Sprint(number.Decimal(v, number.MinFractionDigits(d), number.MaxFractionDigits(d)))
}
