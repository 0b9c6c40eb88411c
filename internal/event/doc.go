// Package event provides the normalized event record shared by every source.
//
// The event package handles event representation, identification and new-vs-seen
// diffing. Each event is keyed by its upstream numeric ID when the source supplies one,
// or by the SHA-256 hex digest of its resolved URL otherwise, so the notified-ID store
// can track events across runs regardless of which source produced them.
package event
