package util

import (
	"fmt"
	"strconv"
	"strings"
)

// ParsePercent reads a percentage string such as "78%" or "62.5%" and returns 78 or 62.5.
// The value must lie in [0,100] and carry the trailing percent sign.
func ParsePercent(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if !strings.HasSuffix(s, "%") {
		return 0, fmt.Errorf("percentage %q must end with %%", s)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(s, "%")), 64)
	if err != nil {
		return 0, fmt.Errorf("parse percentage %q: %w", s, err)
	}
	if v < 0 || v > 100 {
		return 0, fmt.Errorf("percentage %q out of range", s)
	}
	return v, nil
}

// IsPercent reports whether s is a valid percentage string.
func IsPercent(s string) bool {
	_, err := ParsePercent(s)
	return err == nil
}

// FormatPercent renders v as "78%" or "62.5%".
func FormatPercent(v float64) string {
	return strconv.FormatFloat(RoundTo(v, 1), 'f', -1, 64) + "%"
}
