package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseWindowLabel parses a venue window label such as "1M", "10S" or "1D"
// into a duration. The grammar is <digits><unit> with unit one of s, m, h, d,
// case-insensitive. This is the same encoding venues use in dynamic header
// suffixes (x-mbx-used-weight-1m).
func ParseWindowLabel(label string) (time.Duration, error) {
	if len(label) < 2 {
		return 0, fmt.Errorf("window label %q too short", label)
	}

	unit, ok := unitDuration(label[len(label)-1])
	if !ok {
		return 0, fmt.Errorf("window label %q has unknown unit %q", label, label[len(label)-1:])
	}

	n, err := strconv.Atoi(label[:len(label)-1])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("window label %q has invalid interval", label)
	}

	return time.Duration(n) * unit, nil
}

// NormalizeLabel upper-cases a window label so "1m" and "1M" compare equal.
func NormalizeLabel(label string) string {
	return strings.ToUpper(label)
}

// LabelForDuration derives the canonical label for a window duration,
// preferring the largest unit that divides it evenly: 1m -> "1M",
// 10s -> "10S", 24h -> "1D".
func LabelForDuration(d time.Duration) string {
	switch {
	case d >= 24*time.Hour && d%(24*time.Hour) == 0:
		return fmt.Sprintf("%dD", d/(24*time.Hour))
	case d >= time.Hour && d%time.Hour == 0:
		return fmt.Sprintf("%dH", d/time.Hour)
	case d >= time.Minute && d%time.Minute == 0:
		return fmt.Sprintf("%dM", d/time.Minute)
	default:
		return fmt.Sprintf("%dS", d/time.Second)
	}
}

func unitDuration(c byte) (time.Duration, bool) {
	switch c {
	case 's', 'S':
		return time.Second, true
	case 'm', 'M':
		return time.Minute, true
	case 'h', 'H':
		return time.Hour, true
	case 'd', 'D':
		return 24 * time.Hour, true
	default:
		return 0, false
	}
}
