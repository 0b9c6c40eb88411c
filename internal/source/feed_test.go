package source

import (
	"context"
	"errors"
	"testing"

	"github.com/pfrederiksen/connpass-notify/internal/event"
	"github.com/pfrederiksen/connpass-notify/internal/fetch"
	"github.com/pfrederiksen/connpass-notify/internal/query"
)

func TestParseFeed(t *testing.T) {
	events, err := ParseFeed(loadFixture(t, "group_feed.atom"))
	if err != nil {
		t.Fatalf("ParseFeed() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("ParseFeed() returned %d events, want 2", len(events))
	}

	first := events[0]
	if got := first.Title.OrElse(""); got != "Go Tokyo #60 Generics deep dive" {
		t.Errorf("Title = %q", got)
	}
	if got := first.URL.OrElse(""); got != "https://gotokyo.connpass.com/event/370001/" {
		t.Errorf("URL = %q", got)
	}
	if first.NativeID != "" {
		t.Errorf("feed events should be keyed by URL, got NativeID %q", first.NativeID)
	}
	if key, _ := event.Key(first); key != event.HashURL("https://gotokyo.connpass.com/event/370001/") {
		t.Errorf("Key() = %q, want URL hash", key)
	}
}

func TestParseFeed_Invalid(t *testing.T) {
	if _, err := ParseFeed([]byte("not a feed")); !errors.Is(err, ErrDecode) {
		t.Errorf("ParseFeed() error = %v, want ErrDecode", err)
	}
}

func TestMatchKeywords(t *testing.T) {
	events := []*event.Event{
		{Title: event.Some("Go Tokyo #60 Generics deep dive")},
		{Title: event.Some("Rust Tokyo 合同もくもく会")},
		{Title: event.None[string]()},
	}

	tests := []struct {
		name   string
		filter query.Filter
		want   int
	}{
		{"no keywords keeps all", query.Filter{}, 3},
		{"any", query.Filter{Keywords: []string{"go", "rust"}, Match: query.MatchAny}, 2},
		{"all", query.Filter{Keywords: []string{"tokyo", "generics"}, Match: query.MatchAll}, 1},
		{"none match", query.Filter{Keywords: []string{"python"}, Match: query.MatchAny}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(MatchKeywords(events, tt.filter)); got != tt.want {
				t.Errorf("MatchKeywords() kept %d, want %d", got, tt.want)
			}
		})
	}
}

func TestFeedSource_Fetch(t *testing.T) {
	getter := &fakeGetter{body: loadFixture(t, "group_feed.atom")}
	src := NewFeedSource(getter, "https://gotokyo.connpass.com/ja.atom", query.Filter{Keywords: []string{"Go"}, Match: query.MatchAny})

	events, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(events) != 1 {
		t.Errorf("Fetch() returned %d events, want 1", len(events))
	}
	if getter.accept != fetch.AcceptFeed {
		t.Errorf("accept = %q, want feed", getter.accept)
	}
}
