// Package storage persists the notified-ID store.
//
// The store is read in full at the start of a run and written in full at the end.
// FileStore keeps one identifier per line in a sorted, newline-terminated text file
// (notified_event_ids.txt by default). SQLiteStore keeps the same set in a SQLite
// table managed by goose migrations.
//
// Neither backend locks. Two concurrent runs against the same store can re-notify an
// event or drop identifiers recorded by the other run; runs are expected to be
// serialized by whatever schedules them.
package storage
