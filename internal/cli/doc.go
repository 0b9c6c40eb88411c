// Package cli implements the command-line interface for connpass-notify.
//
// The root command runs one notification pass: fetch events, compare them with the
// notified-ID store, post the new ones and record them. Subcommands print search
// results without notifying (search), resolve a page's preview image (preview) and
// list the notified-ID store (ids).
package cli
