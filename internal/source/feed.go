package source

import (
	"context"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/pfrederiksen/connpass-notify/internal/event"
	"github.com/pfrederiksen/connpass-notify/internal/fetch"
	"github.com/pfrederiksen/connpass-notify/internal/query"
)

// FeedSource reads a connpass group Atom/RSS feed.
// Feeds cannot be queried, so keywords are matched against item titles.
type FeedSource struct {
	getter Getter
	url    string
	filter query.Filter
}

// NewFeedSource creates a feed source.
func NewFeedSource(getter Getter, feedURL string, filter query.Filter) *FeedSource {
	return &FeedSource{getter: getter, url: feedURL, filter: filter}
}

// Name implements Source.
func (s *FeedSource) Name() string { return "feed" }

// Fetch implements Source.
func (s *FeedSource) Fetch(ctx context.Context) ([]*event.Event, error) {
	resp, err := s.getter.Get(ctx, s.url, nil, fetch.AcceptFeed)
	if err != nil {
		return nil, err
	}

	events, err := ParseFeed(resp.Body)
	if err != nil {
		return nil, err
	}
	return MatchKeywords(events, s.filter), nil
}

// ParseFeed decodes an Atom or RSS document into event records.
func ParseFeed(body []byte) ([]*event.Event, error) {
	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, decodeError("feed", err)
	}

	events := make([]*event.Event, 0, len(feed.Items))
	for _, item := range feed.Items {
		evt := &event.Event{
			Title:  event.SomeString(strings.TrimSpace(item.Title)),
			URL:    event.SomeString(strings.TrimSpace(item.Link)),
			Source: "feed",
		}
		if item.Image != nil {
			evt.Thumbnail = event.SomeString(item.Image.URL)
		}
		if !evt.Thumbnail.Valid() {
			evt.Thumbnail = imageEnclosure(item)
		}
		events = append(events, evt)
	}
	return events, nil
}

func imageEnclosure(item *gofeed.Item) event.Optional[string] {
	for _, enc := range item.Enclosures {
		if enc != nil && strings.HasPrefix(enc.Type, "image/") {
			return event.SomeString(enc.URL)
		}
	}
	return event.None[string]()
}

// MatchKeywords keeps the events whose title contains the filter keywords,
// all of them for MatchAll and any of them for MatchAny. No keywords keeps everything.
func MatchKeywords(events []*event.Event, f query.Filter) []*event.Event {
	if len(f.Keywords) == 0 {
		return events
	}

	matchAny := query.KeywordParam(f.Match) == "keyword_or"
	out := make([]*event.Event, 0, len(events))
	for _, evt := range events {
		title := strings.ToLower(evt.Title.OrElse(""))
		hits := 0
		for _, kw := range f.Keywords {
			if strings.Contains(title, strings.ToLower(kw)) {
				hits++
			}
		}
		if (matchAny && hits > 0) || (!matchAny && hits == len(f.Keywords)) {
			out = append(out, evt)
		}
	}
	return out
}
