package daemon

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Interval bounds accepted by ParseInterval.
const (
	MinInterval = time.Minute
	MaxInterval = 24 * time.Hour
)

// ParseInterval parses "15m", "1h" or a bare number of minutes. An empty
// string yields DefaultInterval.
func ParseInterval(s string) (time.Duration, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultInterval, nil
	}

	unit := time.Minute
	number := s
	switch {
	case strings.HasSuffix(s, "h"):
		unit = time.Hour
		number = strings.TrimSuffix(s, "h")
	case strings.HasSuffix(s, "m"):
		number = strings.TrimSuffix(s, "m")
	}

	n, err := strconv.Atoi(strings.TrimSpace(number))
	if err != nil {
		return 0, fmt.Errorf("invalid interval %q: use minutes (30), 15m or 1h", s)
	}

	d := time.Duration(n) * unit
	if d < MinInterval || d > MaxInterval {
		return 0, fmt.Errorf("interval %q out of range: must be between %s and %s", s, MinInterval, MaxInterval)
	}
	return d, nil
}
