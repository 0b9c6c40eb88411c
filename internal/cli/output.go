package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/pfrederiksen/connpass-notify/internal/event"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// OutputResult contains data to be output
type OutputResult struct {
	CheckedAt  time.Time      `json:"checked_at"`
	RunID      string         `json:"run_id,omitempty"`
	Source     string         `json:"source"`
	Fetched    int            `json:"fetched"`
	NewEvents  []*event.Event `json:"new_events"`
	EventCount int            `json:"event_count"`
	Failed     int            `json:"failed,omitempty"`
	ShowAll    bool           `json:"show_all,omitempty"`
	DryRun     bool           `json:"dry_run,omitempty"`
}

// WriteOutput writes the result in the specified format
func WriteOutput(w io.Writer, result *OutputResult, format OutputFormat, verbose bool) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, result)
	case FormatText:
		return writeText(w, result, verbose)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// writeJSON outputs results as JSON
func writeJSON(w io.Writer, result *OutputResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// writeText outputs results as human-readable text
func writeText(w io.Writer, result *OutputResult, verbose bool) error {
	// Determine labels based on ShowAll mode
	eventLabel := "new"
	eventPrefix := "NEW"
	if result.ShowAll {
		eventLabel = "events"
		eventPrefix = ""
	}

	if result.EventCount == 0 {
		if result.ShowAll {
			fmt.Fprintln(w, "No events found.")
		} else {
			fmt.Fprintln(w, "No new events found.")
		}
		return nil
	}

	for _, evt := range result.NewEvents {
		line := evt.Title.OrElse("(untitled)")
		if schedule := evt.Schedule(); schedule != "" {
			line = fmt.Sprintf("%s [%s]", line, schedule)
		}
		if eventPrefix != "" {
			fmt.Fprintf(w, "%s: %s\n", eventPrefix, line)
		} else {
			fmt.Fprintln(w, line)
		}
		if verbose {
			if key, ok := event.Key(evt); ok {
				fmt.Fprintf(w, "     ID: %s\n", key)
			}
			if u, ok := evt.URL.Get(); ok {
				fmt.Fprintf(w, "     URL: %s\n", u)
			}
			if place, ok := evt.Place.Get(); ok {
				fmt.Fprintf(w, "     Place: %s\n", place)
			}
		}
	}

	fmt.Fprintf(w, "\nTotal: %d %s", result.EventCount, eventLabel)
	if result.Failed > 0 {
		fmt.Fprintf(w, " (%d failed to deliver)", result.Failed)
	}
	if result.DryRun {
		fmt.Fprint(w, " (dry run)")
	}
	fmt.Fprintln(w)
	return nil
}
