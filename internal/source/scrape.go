package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/pfrederiksen/connpass-notify/internal/event"
	"github.com/pfrederiksen/connpass-notify/internal/fetch"
	"github.com/pfrederiksen/connpass-notify/internal/logger"
	"github.com/pfrederiksen/connpass-notify/internal/query"
)

const SearchURL = "https://connpass.com/search/"

// Selectors for the search results page.
const (
	containerSelector = "div.event_area.event_closure_list"
	itemSelector      = "div.event_list.vevent"
	titleSelector     = "p.event_title a"
	scheduleSelector  = "div.event_schedule_area"
	placeSelector     = "p.event_place.location span.icon_place"
	thumbnailSelector = "p.event_thumbnail img.photo"
)

// ScrapeSource scrapes the connpass search results page.
type ScrapeSource struct {
	getter  Getter
	baseURL string
	filter  query.Filter
	now     func() time.Time
}

// NewScrapeSource creates a scrape source. An empty baseURL selects SearchURL.
func NewScrapeSource(getter Getter, baseURL string, filter query.Filter) *ScrapeSource {
	if baseURL == "" {
		baseURL = SearchURL
	}
	return &ScrapeSource{
		getter:  getter,
		baseURL: baseURL,
		filter:  filter,
		now:     time.Now,
	}
}

// Name implements Source.
func (s *ScrapeSource) Name() string { return "scrape" }

// Fetch implements Source.
func (s *ScrapeSource) Fetch(ctx context.Context) ([]*event.Event, error) {
	searchURL, err := query.SearchURL(s.baseURL, s.filter, s.now())
	if err != nil {
		return nil, fmt.Errorf("building search URL: %w", err)
	}

	resp, err := s.getter.Get(ctx, searchURL, nil, fetch.AcceptHTML)
	if err != nil {
		return nil, err
	}

	events, found, err := ParseSearchPage(bytes.NewReader(resp.Body), resp.URL)
	if err != nil {
		return nil, err
	}
	if !found {
		logger.Warn("Event list not found on search page", logger.Fields{"url": resp.URL})
		return events, nil
	}

	logger.Debug("Parsed search page", logger.Fields{"url": resp.URL, "items": len(events)})
	return events, nil
}

// ParseSearchPage extracts one record per item block of a search results page.
//
// found is false when the results container is missing, which means the page
// structure changed or there were no results; that is not an error. Items are emitted
// even when their title or link is missing.
func ParseSearchPage(r io.Reader, pageURL string) (events []*event.Event, found bool, err error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, false, decodeError("search page", err)
	}

	base, _ := url.Parse(pageURL)
	events = make([]*event.Event, 0)

	container := doc.Find(containerSelector).First()
	if container.Length() == 0 {
		return events, false, nil
	}

	container.Find(itemSelector).Each(func(_ int, item *goquery.Selection) {
		events = append(events, parseItem(item, base))
	})

	return events, true, nil
}

func parseItem(item *goquery.Selection, base *url.URL) *event.Event {
	evt := &event.Event{Source: "scrape"}

	titleTag := item.Find(titleSelector).First()
	evt.Title = optionalText(titleTag)
	if href, ok := titleTag.Attr("href"); ok && strings.TrimSpace(href) != "" {
		evt.URL = event.Some(resolveURL(base, href))
	}

	evt.DateText = scheduleOf(item.Find(scheduleSelector).First())
	evt.Place = optionalText(item.Find(placeSelector).First())

	if src, ok := item.Find(thumbnailSelector).First().Attr("src"); ok && strings.TrimSpace(src) != "" {
		evt.Thumbnail = event.Some(resolveURL(base, src))
	}

	return evt
}

// scheduleOf joins the year, date and time parts that are present with single spaces.
func scheduleOf(area *goquery.Selection) event.Optional[string] {
	if area.Length() == 0 {
		return event.None[string]()
	}

	parts := make([]string, 0, 3)
	for _, sel := range []string{"p.year", "p.date", "p.time"} {
		if part, ok := optionalText(area.Find(sel).First()).Get(); ok {
			parts = append(parts, part)
		}
	}
	if len(parts) == 0 {
		return event.None[string]()
	}
	return event.Some(strings.Join(parts, " "))
}
