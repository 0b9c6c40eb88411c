package pipeline

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pfrederiksen/connpass-notify/internal/fetch"
	"github.com/pfrederiksen/connpass-notify/internal/notifier"
	"github.com/pfrederiksen/connpass-notify/internal/query"
	"github.com/pfrederiksen/connpass-notify/internal/source"
	"github.com/pfrederiksen/connpass-notify/internal/storage"
)

// webhook records every payload posted to it.
type webhook struct {
	mu       sync.Mutex
	payloads []notifier.Payload
	server   *httptest.Server
}

func newWebhook(t *testing.T) *webhook {
	t.Helper()
	w := &webhook{}
	w.server = httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var p notifier.Payload
		if err := json.Unmarshal(body, &p); err != nil {
			rw.WriteHeader(http.StatusBadRequest)
			return
		}
		w.mu.Lock()
		w.payloads = append(w.payloads, p)
		w.mu.Unlock()
		_, _ = rw.Write([]byte("ok"))
	}))
	t.Cleanup(w.server.Close)
	return w
}

func fixtureServer(t *testing.T, name, contentType string) *httptest.Server {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "..", "testdata", "fixtures", name))
	require.NoError(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write(data)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestEndToEnd_API(t *testing.T) {
	upstream := fixtureServer(t, "events_api.json", "application/json")
	hook := newWebhook(t)
	storePath := filepath.Join(t.TempDir(), "notified_event_ids.txt")

	client := fetch.New(fetch.WithDelay(0))
	src := source.NewAPISource(client, upstream.URL, query.Filter{Keywords: []string{"Python", "AI"}, Match: query.MatchAny}, 0, 0)
	store, err := storage.NewFileStore(storePath)
	require.NoError(t, err)
	slack, err := notifier.NewSlackNotifier(hook.server.URL, nil)
	require.NoError(t, err)

	p := New(src, store, slack, WithLogger(quietLogger()))

	result, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, result.Notified, 2)

	require.Len(t, hook.payloads, 2)
	assert.Contains(t, hook.payloads[0].Text, "https://ml-lt.connpass.com/event/100/")
	assert.Contains(t, hook.payloads[1].Text, "https://pyconnect.connpass.com/event/101/")
	assert.Contains(t, hook.payloads[0].Text, "*場所*: オンライン")

	data, err := os.ReadFile(storePath)
	require.NoError(t, err)
	assert.Equal(t, "100\n101\n", string(data))

	// Nothing new upstream: no posts and the file is untouched.
	_, err = p.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, hook.payloads, 2)

	again, err := os.ReadFile(storePath)
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func TestEndToEnd_Scrape(t *testing.T) {
	upstream := fixtureServer(t, "search_results.html", "text/html")
	hook := newWebhook(t)

	client := fetch.New(fetch.WithDelay(0))
	src := source.NewScrapeSource(client, upstream.URL+"/search/", query.Filter{Keywords: []string{"Go"}, WindowDays: 14, Region: "tokyo"})
	store, err := storage.NewFileStore(filepath.Join(t.TempDir(), "ids.txt"))
	require.NoError(t, err)
	slack, err := notifier.NewSlackNotifier(hook.server.URL, nil)
	require.NoError(t, err)

	result, err := New(src, store, slack, WithLogger(quietLogger())).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, result.Fetched)
	assert.Equal(t, 1, result.Unkeyed, "item without a link has no identifier")
	require.Len(t, hook.payloads, 2)

	withThumb := hook.payloads[0]
	require.Len(t, withThumb.Blocks, 2)
	assert.Equal(t, "image", withThumb.Blocks[0].Type)
	assert.Equal(t, "https://media.connpass.com/thumbs/gocon.png", withThumb.Blocks[0].ImageURL)
	assert.Equal(t, "section", withThumb.Blocks[1].Type)
	assert.Empty(t, withThumb.Text)

	withoutThumb := hook.payloads[1]
	assert.Empty(t, withoutThumb.Blocks)
	assert.True(t, strings.Contains(withoutThumb.Text, "PdM Meetup #12"))
	assert.Contains(t, withoutThumb.Text, upstream.URL+"/event/358694/")

	ids, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, ids.Len())
}
