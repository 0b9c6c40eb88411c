package source

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pfrederiksen/connpass-notify/internal/event"
	"github.com/pfrederiksen/connpass-notify/internal/fetch"
)

// ErrDecode marks a response body that could not be decoded.
var ErrDecode = errors.New("decode error")

// Getter performs the single upstream GET of a run.
type Getter interface {
	Get(ctx context.Context, rawURL string, params url.Values, accept fetch.Accept) (*fetch.Response, error)
}

// Source fetches and extracts event records.
type Source interface {
	// Name identifies the source in logs and records.
	Name() string
	// Fetch performs one upstream request and returns the extracted events.
	Fetch(ctx context.Context) ([]*event.Event, error)
}

// textOf returns the trimmed text of sel with internal whitespace runs collapsed.
func textOf(sel *goquery.Selection) string {
	return strings.Join(strings.Fields(sel.Text()), " ")
}

// optionalText returns None when sel matched nothing or holds only whitespace.
func optionalText(sel *goquery.Selection) event.Optional[string] {
	if sel.Length() == 0 {
		return event.None[string]()
	}
	return event.SomeString(textOf(sel))
}

// resolveURL makes ref absolute against base. Unparseable input is returned unchanged.
func resolveURL(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if base == nil || ref == "" {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}

func decodeError(what string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrDecode, what, err)
}
