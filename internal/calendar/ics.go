// Package calendar exports notified events as an iCalendar file.
package calendar

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pfrederiksen/connpass-notify/internal/event"
)

// defaultDuration is used when an event has no end time.
const defaultDuration = 2 * time.Hour

// GenerateICS generates an iCalendar document with one VEVENT per event.
// Events whose start time is unknown are skipped.
func GenerateICS(events []*event.Event, now time.Time) string {
	var ics strings.Builder

	ics.WriteString("BEGIN:VCALENDAR\r\n")
	ics.WriteString("VERSION:2.0\r\n")
	ics.WriteString("PRODID:-//connpass-notify//connpass-notify//JA\r\n")
	ics.WriteString("CALSCALE:GREGORIAN\r\n")
	ics.WriteString("METHOD:PUBLISH\r\n")

	for _, evt := range events {
		writeEvent(&ics, evt, now)
	}

	ics.WriteString("END:VCALENDAR\r\n")
	return ics.String()
}

func writeEvent(ics *strings.Builder, evt *event.Event, now time.Time) {
	key, ok := event.Key(evt)
	if !ok {
		return
	}
	start, ok := evt.Start()
	if !ok {
		return
	}
	end, ok := evt.EndedAt.Get()
	if !ok || !end.After(start) {
		end = start.Add(defaultDuration)
	}

	ics.WriteString("BEGIN:VEVENT\r\n")
	fmt.Fprintf(ics, "UID:%s@connpass.com\r\n", key)
	fmt.Fprintf(ics, "DTSTAMP:%s\r\n", formatICSTime(now))
	fmt.Fprintf(ics, "DTSTART:%s\r\n", formatICSTime(start))
	fmt.Fprintf(ics, "DTEND:%s\r\n", formatICSTime(end))
	fmt.Fprintf(ics, "SUMMARY:%s\r\n", escapeICS(evt.Title.OrElse("connpass event")))

	if loc := location(evt); loc != "" {
		fmt.Fprintf(ics, "LOCATION:%s\r\n", escapeICS(loc))
	}
	if link, ok := evt.URL.Get(); ok {
		fmt.Fprintf(ics, "DESCRIPTION:%s\r\n", escapeICS(link))
		fmt.Fprintf(ics, "URL:%s\r\n", link)
	}

	ics.WriteString("STATUS:CONFIRMED\r\n")
	ics.WriteString("SEQUENCE:0\r\n")
	ics.WriteString("TRANSP:OPAQUE\r\n")
	ics.WriteString("END:VEVENT\r\n")
}

func location(evt *event.Event) string {
	parts := make([]string, 0, 2)
	if place, ok := evt.Place.Get(); ok {
		parts = append(parts, place)
	}
	if address, ok := evt.Address.Get(); ok {
		parts = append(parts, address)
	}
	return strings.Join(parts, ", ")
}

// WriteFile writes the calendar for events to path.
func WriteFile(path string, events []*event.Event, now time.Time) error {
	if err := os.WriteFile(path, []byte(GenerateICS(events, now)), 0644); err != nil {
		return fmt.Errorf("writing calendar: %w", err)
	}
	return nil
}

// formatICSTime formats a time.Time as an iCalendar datetime string
func formatICSTime(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

// escapeICS escapes special characters for iCalendar format
func escapeICS(s string) string {
	// Replace special characters according to RFC 5545
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}
