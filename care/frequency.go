package care

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// frequencyPattern matches "3x/week", "3 x / wk", "3X/Week" and bare "3".
var frequencyPattern = regexp.MustCompile(`(?i)^\s*(\d+)\s*(?:x\s*(?:/|per)\s*(?:week|wk))?\s*$`)

// DefaultWeeklyVisits applies when a patient has no frequency recorded.
const DefaultWeeklyVisits = 1

// ParseFrequency returns visits per week for a pattern like "Nx/week".
// An empty string yields DefaultWeeklyVisits; anything else that does not
// match is ErrInvalidFrequency.
func ParseFrequency(s string) (int, error) {
	if strings.TrimSpace(s) == "" {
		return DefaultWeeklyVisits, nil
	}
	m := frequencyPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidFrequency, s)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidFrequency, s)
	}
	return n, nil
}

// FormatFrequency is the inverse of ParseFrequency.
func FormatFrequency(n int) string {
	return strconv.Itoa(n) + "x/week"
}
