package legacy

import (
	"strconv"
	"strings"
	"time"

	"oficina/internal/domain"
)

var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02/01/2006",
}

// parseInt64 coerces anything unreadable to zero.
func parseInt64(raw string) int64 {
	value := strings.TrimSpace(raw)
	if value == "" {
		return 0
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err == nil {
		return n
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return int64(f)
}

// parseFloat accepts a decimal comma as well as a point. Anything
// unreadable is zero.
func parseFloat(raw string) float64 {
	value := strings.TrimSpace(raw)
	if value == "" {
		return 0
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	if f, err := strconv.ParseFloat(strings.ReplaceAll(value, ",", "."), 64); err == nil {
		return f
	}
	return 0
}

func parseOptionalID(raw string) *int64 {
	id := parseInt64(raw)
	if id <= 0 {
		return nil
	}
	return &id
}

// ParseTimestamp reads the timestamp spellings found in legacy rows, in
// local time.
func ParseTimestamp(raw string) (time.Time, bool) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, false
	}
	if parsed, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return parsed, true
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

// NormalizeDate returns raw as YYYY-MM-DD, or "" when it is not a date.
func NormalizeDate(raw string) string {
	parsed, ok := ParseTimestamp(raw)
	if !ok {
		return ""
	}
	return parsed.Format(domain.DateLayout)
}
