package event

import "sort"

// DiffResult contains the events not yet present in the notified-ID store.
type DiffResult struct {
	NewEvents []*Event
	Keys      []string // Keys[i] is the identifier of NewEvents[i]
	Unkeyed   int      // events dropped because no identifier could be derived
}

// Diff compares current events against the notified identifiers and returns the new ones.
//
// Duplicates within current are reported once. When every new event carries a numeric
// upstream ID, the result is ordered by ascending ID (oldest listing first); otherwise the
// source order is kept.
func Diff(notified *IDSet, current []*Event) *DiffResult {
	result := &DiffResult{
		NewEvents: make([]*Event, 0),
		Keys:      make([]string, 0),
	}

	if notified == nil {
		notified = NewIDSet()
	}

	seen := make(map[string]bool)
	for _, evt := range current {
		key, ok := Key(evt)
		if !ok {
			result.Unkeyed++
			continue
		}
		if notified.Has(key) || seen[key] {
			continue
		}
		seen[key] = true
		result.NewEvents = append(result.NewEvents, evt)
		result.Keys = append(result.Keys, key)
	}

	if allNumeric(result.NewEvents) {
		sort.Sort(byNumericID{result})
	}

	return result
}

func allNumeric(events []*Event) bool {
	for _, evt := range events {
		if _, ok := evt.NumericID(); !ok {
			return false
		}
	}
	return true
}

// byNumericID sorts NewEvents and Keys together.
type byNumericID struct{ r *DiffResult }

func (b byNumericID) Len() int { return len(b.r.NewEvents) }

func (b byNumericID) Less(i, j int) bool {
	ni, _ := b.r.NewEvents[i].NumericID()
	nj, _ := b.r.NewEvents[j].NumericID()
	return ni < nj
}

func (b byNumericID) Swap(i, j int) {
	b.r.NewEvents[i], b.r.NewEvents[j] = b.r.NewEvents[j], b.r.NewEvents[i]
	b.r.Keys[i], b.r.Keys[j] = b.r.Keys[j], b.r.Keys[i]
}
