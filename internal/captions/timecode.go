package captions

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	msPerSecond = 1_000
	msPerMinute = 60 * msPerSecond
	msPerHour   = 60 * msPerMinute
)

// FormatTimecode renders seconds as an SRT timestamp (HH:MM:SS,mmm).
//
// The value is rounded to whole milliseconds once, before the hour/minute/second
// split, so a fraction that rounds up to 1000ms carries into the seconds field.
// Hours are not capped at 24. Negative and NaN inputs render as zero.
func FormatTimecode(seconds float64) string {
	if math.IsNaN(seconds) || seconds < 0 {
		seconds = 0
	}
	total := int64(math.Round(seconds * msPerSecond))
	hours := total / msPerHour
	total %= msPerHour
	minutes := total / msPerMinute
	total %= msPerMinute
	secs := total / msPerSecond
	millis := total % msPerSecond
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}

// ParseTimecode parses an SRT timestamp back into seconds. A period is accepted
// in place of the comma.
func ParseTimecode(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	value = strings.ReplaceAll(value, ".", ",")
	timeParts := strings.Split(value, ",")
	if len(timeParts) != 2 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(timeParts[0], ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	secs, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(timeParts[1])
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	return float64(hours*3600+minutes*60+secs) + float64(millis)/msPerSecond, nil
}
