package pipeline

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pfrederiksen/connpass-notify/internal/event"
	"github.com/pfrederiksen/connpass-notify/internal/logger"
	"github.com/pfrederiksen/connpass-notify/internal/metrics"
	"github.com/pfrederiksen/connpass-notify/internal/notifier"
)

type staticSource struct {
	events []*event.Event
	err    error
}

func (s *staticSource) Name() string { return "static" }

func (s *staticSource) Fetch(context.Context) ([]*event.Event, error) {
	return s.events, s.err
}

type memoryStore struct {
	ids     []string
	saves   int
	loadErr error
	saveErr error
}

func (m *memoryStore) Load(context.Context) (*event.IDSet, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return event.NewIDSet(m.ids...), nil
}

func (m *memoryStore) Save(_ context.Context, ids *event.IDSet) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.ids = ids.Sorted()
	return nil
}

func (m *memoryStore) Close() error { return nil }

type sent struct {
	id    string
	image string
}

type recordingNotifier struct {
	sent   []sent
	failOn map[string]error
	cancel context.CancelFunc
}

func (r *recordingNotifier) Notify(_ context.Context, evt *event.Event, image event.Optional[string]) error {
	key, _ := event.Key(evt)
	r.sent = append(r.sent, sent{id: key, image: image.OrElse("")})
	if r.cancel != nil {
		r.cancel()
	}
	return r.failOn[key]
}

func (r *recordingNotifier) ids() []string {
	out := make([]string, 0, len(r.sent))
	for _, s := range r.sent {
		out = append(out, s.id)
	}
	return out
}

func apiEvents(ids ...string) []*event.Event {
	out := make([]*event.Event, 0, len(ids))
	for _, id := range ids {
		out = append(out, &event.Event{
			NativeID: id,
			Title:    event.Some("Event " + id),
			URL:      event.Some("https://connpass.com/event/" + id + "/"),
		})
	}
	return out
}

func quietLogger() *logger.Logger {
	return logger.New(logger.LevelError, &bytes.Buffer{})
}

func newTestPipeline(src *staticSource, store *memoryStore, n notifier.Notifier, opts ...Option) *Pipeline {
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	p := New(src, store, n, opts...)
	p.newRunID = func() string { return "run-1" }
	return p
}

func TestRun_NotifiesOnlyNewEvents(t *testing.T) {
	store := &memoryStore{ids: []string{"1", "2", "3"}}
	n := &recordingNotifier{}
	p := newTestPipeline(&staticSource{events: apiEvents("2", "3", "4", "5")}, store, n)

	result, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"4", "5"}, n.ids())
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, store.ids)
	assert.Equal(t, 4, result.Fetched)
	assert.Len(t, result.Notified, 2)
	assert.Equal(t, 2, result.Recorded)
	assert.Equal(t, "run-1", result.RunID)
}

func TestRun_Idempotent(t *testing.T) {
	store := &memoryStore{}
	n := &recordingNotifier{}
	p := newTestPipeline(&staticSource{events: apiEvents("10", "11")}, store, n)

	_, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, store.saves)
	after := append([]string(nil), store.ids...)

	result, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, n.sent, 2, "second run must not post")
	assert.Empty(t, result.New)
	assert.Equal(t, 1, store.saves, "store must not be rewritten without new events")
	assert.Equal(t, after, store.ids)
}

func TestRun_AscendingIDOrder(t *testing.T) {
	store := &memoryStore{}
	n := &recordingNotifier{}
	p := newTestPipeline(&staticSource{events: apiEvents("101", "100")}, store, n)

	_, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"100", "101"}, n.ids())
	assert.Equal(t, []string{"100", "101"}, store.ids)
}

func TestRun_SourceOrderForURLKeys(t *testing.T) {
	events := []*event.Event{
		{URL: event.Some("https://connpass.com/event/b/")},
		{URL: event.Some("https://connpass.com/event/a/")},
		{Title: event.Some("no link")},
	}
	n := &recordingNotifier{}
	p := newTestPipeline(&staticSource{events: events}, &memoryStore{}, n)

	result, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{
		event.HashURL("https://connpass.com/event/b/"),
		event.HashURL("https://connpass.com/event/a/"),
	}, n.ids())
	assert.Equal(t, 1, result.Unkeyed)
}

func TestRun_DeliveryFailure(t *testing.T) {
	failure := &notifier.DeliveryError{Channel: "slack", StatusCode: 500, Body: "oops"}

	tests := []struct {
		name            string
		requireDelivery bool
		wantStored      []string
		wantRecorded    int
	}{
		{
			name:         "failed delivery still recorded by default",
			wantStored:   []string{"1", "2"},
			wantRecorded: 2,
		},
		{
			name:            "failed delivery retried when delivery is required",
			requireDelivery: true,
			wantStored:      []string{"2"},
			wantRecorded:    1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &memoryStore{}
			n := &recordingNotifier{failOn: map[string]error{"1": failure}}
			m := metrics.New()
			p := newTestPipeline(&staticSource{events: apiEvents("1", "2")}, store, n,
				WithRequireDelivery(tt.requireDelivery), WithMetrics(m))

			result, err := p.Run(context.Background())
			require.NoError(t, err, "delivery errors are not escalated")

			assert.Len(t, n.sent, 2)
			assert.Len(t, result.Failed, 1)
			assert.Len(t, result.Notified, 1)
			assert.Equal(t, tt.wantStored, store.ids)
			assert.Equal(t, tt.wantRecorded, result.Recorded)
		})
	}
}

func TestRun_Errors(t *testing.T) {
	fetchErr := errors.New("connection refused")
	loadErr := errors.New("permission denied")
	saveErr := errors.New("disk full")

	tests := []struct {
		name    string
		source  *staticSource
		store   *memoryStore
		wantErr error
		wantOut int
	}{
		{"fetch error aborts", &staticSource{err: fetchErr}, &memoryStore{}, fetchErr, 0},
		{"load error aborts", &staticSource{events: apiEvents("1")}, &memoryStore{loadErr: loadErr}, loadErr, 0},
		{"save error surfaces", &staticSource{events: apiEvents("1")}, &memoryStore{saveErr: saveErr}, saveErr, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := &recordingNotifier{}
			p := newTestPipeline(tt.source, tt.store, n)

			_, err := p.Run(context.Background())
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Len(t, n.sent, tt.wantOut)
			assert.Equal(t, 0, tt.store.saves)
		})
	}
}

func TestRun_CancelledMidRunSavesDelivered(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := &memoryStore{}
	n := &recordingNotifier{cancel: cancel}
	p := newTestPipeline(&staticSource{events: apiEvents("1", "2", "3")}, store, n)

	_, err := p.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, []string{"1"}, n.ids())
	assert.Equal(t, []string{"1"}, store.ids)
}

type fixedResolver string

func (f fixedResolver) Resolve(context.Context, *event.Event) event.Optional[string] {
	return event.SomeString(string(f))
}

func TestRun_ImageResolver(t *testing.T) {
	events := apiEvents("1", "2")
	events[0].Thumbnail = event.Some("https://img.example/1.png")

	t.Run("thumbnail by default", func(t *testing.T) {
		n := &recordingNotifier{}
		_, err := newTestPipeline(&staticSource{events: events}, &memoryStore{}, n).Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []sent{{"1", "https://img.example/1.png"}, {"2", ""}}, n.sent)
	})

	t.Run("custom resolver", func(t *testing.T) {
		n := &recordingNotifier{}
		p := newTestPipeline(&staticSource{events: events}, &memoryStore{}, n,
			WithImageResolver(fixedResolver("https://img.example/og.png")))
		_, err := p.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "https://img.example/og.png", n.sent[1].image)
	})
}

func TestRun_LogsRunID(t *testing.T) {
	var buf bytes.Buffer
	p := New(&staticSource{events: apiEvents("1")}, &memoryStore{}, &recordingNotifier{},
		WithLogger(logger.New(logger.LevelInfo, &buf)))
	p.newRunID = func() string { return "3f2c9a" }
	p.now = func() time.Time { return time.Unix(0, 0) }

	_, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Contains(t, buf.String(), `"run_id":"3f2c9a"`)
	assert.Contains(t, buf.String(), `"message":"New event found"`)
}
