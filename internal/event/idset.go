package event

import (
	"sort"
	"strconv"
)

// IDSet is the in-memory form of the notified-ID store.
// It only grows: there is no Remove.
type IDSet struct {
	ids map[string]struct{}
}

// NewIDSet creates a set holding ids.
func NewIDSet(ids ...string) *IDSet {
	s := &IDSet{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts id. Empty identifiers are ignored.
func (s *IDSet) Add(id string) {
	if id == "" {
		return
	}
	s.ids[id] = struct{}{}
}

// Has reports whether id is present.
func (s *IDSet) Has(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of identifiers.
func (s *IDSet) Len() int {
	return len(s.ids)
}

// Sorted returns the identifiers in store order: numeric IDs ascending by value,
// followed by the remaining IDs in lexicographic order.
func (s *IDSet) Sorted() []string {
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool {
		return lessID(out[i], out[j])
	})
	return out
}

func lessID(a, b string) bool {
	na, errA := strconv.ParseUint(a, 10, 64)
	nb, errB := strconv.ParseUint(b, 10, 64)
	switch {
	case errA == nil && errB == nil:
		if na != nb {
			return na < nb
		}
		return a < b
	case errA == nil:
		return true
	case errB == nil:
		return false
	default:
		return a < b
	}
}
