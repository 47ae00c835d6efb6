package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const secMillis = 1000

var unitMillis = map[byte]int64{
	's': secMillis,
	'm': 60 * secMillis,
	'h': 60 * 60 * secMillis,
	'd': 24 * 60 * 60 * secMillis,
	'w': 7 * 24 * 60 * 60 * secMillis,
}

// TimeRange is a resolved query window in epoch milliseconds.
type TimeRange struct {
	FromMillis    int64
	ToMillis      int64
	TimeZone      string
	ByReceiptTime bool
}

// ParseRange resolves a range expression against now. "<n><unit>" covers the
// last n units up to now; "<n><unit>:<m><unit>" anchors the window end n
// units back and extends it m more units into the past. Units are s, m, h,
// d and w. Leading dashes are ignored, so "-1h" and "1h" are the same.
func ParseRange(expr string, now time.Time) (TimeRange, error) {
	nowMillis := now.Unix() * secMillis
	tr := TimeRange{TimeZone: "UTC"}

	if start, span, ok := strings.Cut(expr, ":"); ok {
		startOffset, err := parseOffset(start)
		if err != nil {
			return tr, err
		}
		spanOffset, err := parseOffset(span)
		if err != nil {
			return tr, err
		}
		tr.ToMillis = nowMillis - startOffset
		tr.FromMillis = tr.ToMillis - spanOffset
		return tr, nil
	}

	offset, err := parseOffset(expr)
	if err != nil {
		return tr, err
	}
	tr.ToMillis = nowMillis
	tr.FromMillis = nowMillis - offset
	return tr, nil
}

func parseOffset(marker string) (int64, error) {
	marker = strings.TrimSpace(strings.ReplaceAll(marker, "-", ""))
	if marker == "" {
		return 0, fmt.Errorf("empty range marker")
	}

	i := 0
	for i < len(marker) && marker[i] >= '0' && marker[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0, fmt.Errorf("range marker %q must start with a number", marker)
	}

	count, err := strconv.ParseInt(marker[:i], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid range count in %q: %w", marker, err)
	}

	unit := marker[i:]
	if len(unit) != 1 {
		return 0, fmt.Errorf("range marker %q needs a single unit out of s, m, h, d, w", marker)
	}
	millis, ok := unitMillis[unit[0]]
	if !ok {
		return 0, fmt.Errorf("unknown range unit %q in %q", unit, marker)
	}

	return count * millis, nil
}
