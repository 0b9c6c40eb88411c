package cli

import (
	"sort"
	"strings"

	"github.com/pfrederiksen/connpass-notify/internal/event"
)

// SortOrder represents the available sorting options
type SortOrder string

const (
	SortNone    SortOrder = "none"
	SortByDate  SortOrder = "date"
	SortByTitle SortOrder = "title"
)

// sortEvents sorts a slice of events based on the specified sort order.
// SortNone keeps the source order.
func sortEvents(events []*event.Event, sortOrder SortOrder) {
	switch sortOrder {
	case SortByDate:
		sort.SliceStable(events, func(i, j int) bool {
			return compareByDate(events[i], events[j])
		})
	case SortByTitle:
		sort.SliceStable(events, func(i, j int) bool {
			ti := strings.ToLower(events[i].Title.OrElse(""))
			tj := strings.ToLower(events[j].Title.OrElse(""))
			if ti != tj {
				return ti < tj
			}
			// If titles are equal, sort by date
			return compareByDate(events[i], events[j])
		})
	}
}

// compareByDate compares two events by their start time
// Returns true if event i should come before event j
func compareByDate(i, j *event.Event) bool {
	dateI, okI := i.Start()
	dateJ, okJ := j.Start()

	// If both dates are valid, compare them
	if okI && okJ {
		return dateI.Before(dateJ)
	}

	// If only one date is valid, put the valid one first
	if okI {
		return true
	}
	if okJ {
		return false
	}

	return strings.ToLower(i.Title.OrElse("")) < strings.ToLower(j.Title.OrElse(""))
}
