package source

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/pfrederiksen/connpass-notify/internal/event"
	"github.com/pfrederiksen/connpass-notify/internal/fetch"
	"github.com/pfrederiksen/connpass-notify/internal/query"
)

const (
	APIEndpoint  = "https://connpass.com/api/v1/event/"
	DefaultOrder = 2
	DefaultCount = 50
)

// APISource queries the connpass events API.
type APISource struct {
	getter   Getter
	endpoint string
	filter   query.Filter
	order    int
	count    int
}

// NewAPISource creates an API source. An empty endpoint selects APIEndpoint.
func NewAPISource(getter Getter, endpoint string, filter query.Filter, order, count int) *APISource {
	if endpoint == "" {
		endpoint = APIEndpoint
	}
	if order <= 0 {
		order = DefaultOrder
	}
	if count <= 0 {
		count = DefaultCount
	}
	return &APISource{
		getter:   getter,
		endpoint: endpoint,
		filter:   filter,
		order:    order,
		count:    count,
	}
}

// Name implements Source.
func (s *APISource) Name() string { return "api" }

// Fetch implements Source.
func (s *APISource) Fetch(ctx context.Context) ([]*event.Event, error) {
	resp, err := s.getter.Get(ctx, s.endpoint, query.APIParams(s.filter, s.order, s.count), fetch.AcceptJSON)
	if err != nil {
		return nil, err
	}
	return ParseAPI(resp.Body)
}

// apiResponse covers both the v1 (event_id, event_url) and v2 (id, url, image_url) shapes.
type apiResponse struct {
	Events []apiEvent `json:"events"`
}

type apiEvent struct {
	EventID   json.Number `json:"event_id"`
	ID        json.Number `json:"id"`
	Title     *string     `json:"title"`
	EventURL  *string     `json:"event_url"`
	URL       *string     `json:"url"`
	StartedAt *string     `json:"started_at"`
	EndedAt   *string     `json:"ended_at"`
	Address   *string     `json:"address"`
	Place     *string     `json:"place"`
	ImageURL  *string     `json:"image_url"`
}

// ParseAPI decodes an events API response. A body that is not valid JSON yields an
// error wrapping ErrDecode; a missing events list yields no events.
func ParseAPI(body []byte) ([]*event.Event, error) {
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, decodeError("events response", err)
	}

	events := make([]*event.Event, 0, len(resp.Events))
	for _, raw := range resp.Events {
		events = append(events, raw.toEvent())
	}
	return events, nil
}

func (a apiEvent) toEvent() *event.Event {
	id := a.EventID.String()
	if id == "" {
		id = a.ID.String()
	}

	link := optString(a.EventURL)
	if !link.Valid() {
		link = optString(a.URL)
	}

	return &event.Event{
		NativeID:  id,
		Title:     optString(a.Title),
		URL:       link,
		StartedAt: optTime(a.StartedAt),
		EndedAt:   optTime(a.EndedAt),
		Address:   optString(a.Address),
		Place:     optString(a.Place),
		Thumbnail: optString(a.ImageURL),
		Source:    "api",
	}
}

func optString(s *string) event.Optional[string] {
	if s == nil {
		return event.None[string]()
	}
	return event.SomeString(strings.TrimSpace(*s))
}

func optTime(s *string) event.Optional[time.Time] {
	if s == nil || *s == "" {
		return event.None[time.Time]()
	}
	t, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		return event.None[time.Time]()
	}
	return event.Some(t)
}

