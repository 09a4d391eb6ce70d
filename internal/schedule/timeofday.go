package schedule

import (
	"strconv"
	"strings"
)

// ParseTimeOfDay converts a schedule time string in HH:MM:SS form into seconds
// since local midnight. Hours are unbounded above 23 so that services running
// past midnight keep increasing timestamps: "25:15:30" yields 90930.
//
// Malformed input (wrong field count, non-numeric or negative components)
// returns ok == false. Callers must treat that as "skip this value", never as
// a zero duration.
func ParseTimeOfDay(s string) (int, bool) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, false
	}

	fields := make([]int, 3)
	for i, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 {
			return 0, false
		}
		fields[i] = n
	}

	return fields[0]*3600 + fields[1]*60 + fields[2], true
}
