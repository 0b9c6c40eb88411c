package event

import (
	"regexp"
	"strconv"
	"time"
)

// JST is the zone connpass publishes schedules in.
var JST = time.FixedZone("JST", 9*60*60)

const displayLayout = "2006/01/02 15:04"

// scheduleText matches the joined year/date/time parts of a scraped listing,
// e.g. "2025 08/01 19:00〜21:00".
var scheduleText = regexp.MustCompile(`(\d{4})\D+(\d{1,2})/(\d{1,2})(?:\D+?(\d{1,2}):(\d{2}))?`)

// ParseDate attempts to parse a scraped schedule string into a time.Time in JST.
// Returns time.Time{} (zero value) if parsing fails. A missing time of day means midnight.
func ParseDate(dateText string) time.Time {
	m := scheduleText.FindStringSubmatch(dateText)
	if m == nil {
		return time.Time{}
	}

	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}
	}

	hour, minute := 0, 0
	if m[4] != "" {
		hour, _ = strconv.Atoi(m[4])
		minute, _ = strconv.Atoi(m[5])
		if hour > 23 || minute > 59 {
			hour, minute = 0, 0
		}
	}

	return time.Date(year, time.Month(month), day, hour, minute, 0, 0, JST)
}

// Start returns the best known start time of an event.
func (e *Event) Start() (time.Time, bool) {
	if t, ok := e.StartedAt.Get(); ok {
		return t, true
	}
	if s, ok := e.DateText.Get(); ok {
		if t := ParseDate(s); !t.IsZero() {
			return t, true
		}
	}
	return time.Time{}, false
}

// Schedule renders the event's date for display.
// Timestamps win over free text; an empty string means nothing is known.
func (e *Event) Schedule() string {
	start, ok := e.StartedAt.Get()
	if !ok {
		return e.DateText.OrElse("")
	}

	start = start.In(JST)
	text := start.Format(displayLayout)
	if end, ok := e.EndedAt.Get(); ok {
		end = end.In(JST)
		if end.Year() == start.Year() && end.YearDay() == start.YearDay() {
			text += " 〜 " + end.Format("15:04")
		} else {
			text += " 〜 " + end.Format(displayLayout)
		}
	}
	return text
}
