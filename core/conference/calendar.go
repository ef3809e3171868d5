package conference

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// CalendarWindow is how far ahead the calendar looks.
const CalendarWindow = 90 * 24 * time.Hour

var (
	// "12–14 мая 2025", "3-5 октября 2024"
	dateRangeRU = regexp.MustCompile(`(\d{1,2})\s*[-–—]\s*(\d{1,2})\s+(\p{L}+)\s+(\d{4})`)

	monthsRU = map[string]time.Month{
		"января":   time.January,
		"февраля":  time.February,
		"марта":    time.March,
		"апреля":   time.April,
		"мая":      time.May,
		"июня":     time.June,
		"июля":     time.July,
		"августа":  time.August,
		"сентября": time.September,
		"октября":  time.October,
		"ноября":   time.November,
		"декабря":  time.December,
	}
)

// EndDate parses the last day of a "D–D month YYYY" russian date range, in UTC.
func EndDate(dateRU string) (time.Time, bool) {
	m := dateRangeRU.FindStringSubmatch(dateRU)
	if m == nil {
		return time.Time{}, false
	}
	month, ok := monthsRU[strings.ToLower(m[3])]
	if !ok {
		return time.Time{}, false
	}
	day, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[4])
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC), true
}

// IsUpcoming reports whether the Conference ends between from and the end of the calendar window.
// The end day counts as a whole day. Conferences without a parsable date are always listed.
func (c Conference) IsUpcoming(from time.Time) bool {
	end, ok := EndDate(c.Date.RU)
	if !ok {
		return true
	}
	return end.AddDate(0, 0, 1).After(from) && !end.After(from.Add(CalendarWindow))
}
