package source

import (
	"context"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/pfrederiksen/connpass-notify/internal/event"
	"github.com/pfrederiksen/connpass-notify/internal/fetch"
)

var eventOpts = cmp.AllowUnexported(event.Optional[string]{}, event.Optional[time.Time]{})

// fakeGetter serves a canned body and records the request.
type fakeGetter struct {
	body   []byte
	err    error
	url    string
	params url.Values
	accept fetch.Accept
	calls  int
}

func (f *fakeGetter) Get(_ context.Context, rawURL string, params url.Values, accept fetch.Accept) (*fetch.Response, error) {
	f.calls++
	f.url = rawURL
	f.params = params
	f.accept = accept
	if f.err != nil {
		return nil, f.err
	}
	return &fetch.Response{URL: rawURL, StatusCode: 200, Body: f.body}, nil
}

func loadFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile("../../testdata/fixtures/" + name)
	if err != nil {
		t.Fatalf("read fixture %s: %v", name, err)
	}
	return data
}
