// Package preview resolves the image shown alongside an event notification.
package preview

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pfrederiksen/connpass-notify/internal/event"
	"github.com/pfrederiksen/connpass-notify/internal/fetch"
	"github.com/pfrederiksen/connpass-notify/internal/logger"
)

// Mode selects where the preview image comes from.
type Mode string

const (
	// ModeNone never attaches an image.
	ModeNone Mode = "none"
	// ModeThumbnail uses the thumbnail the source extracted.
	ModeThumbnail Mode = "thumbnail"
	// ModePage uses the thumbnail when present, otherwise fetches the event page.
	ModePage Mode = "page"
)

// ParseMode maps a configuration value to a Mode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeNone, ModeThumbnail, ModePage:
		return m, nil
	case "":
		return ModeThumbnail, nil
	default:
		return "", fmt.Errorf("unknown preview mode %q", s)
	}
}

// imageHints are the substrings that make an <img> a plausible preview.
var imageHints = []string{"logo", "image", "thumb"}

// Getter fetches an event page.
type Getter interface {
	Get(ctx context.Context, rawURL string, params url.Values, accept fetch.Accept) (*fetch.Response, error)
}

// Resolver picks a preview image for each event.
type Resolver struct {
	mode   Mode
	getter Getter
}

// NewResolver creates a Resolver. getter may be nil unless mode is ModePage.
func NewResolver(mode Mode, getter Getter) *Resolver {
	return &Resolver{mode: mode, getter: getter}
}

// Resolve returns the preview image for evt. Page lookup failures are logged and
// yield None; they never fail the notification.
func (r *Resolver) Resolve(ctx context.Context, evt *event.Event) event.Optional[string] {
	switch r.mode {
	case ModeThumbnail:
		return evt.Thumbnail
	case ModePage:
		if evt.Thumbnail.Valid() {
			return evt.Thumbnail
		}
		pageURL, ok := evt.URL.Get()
		if !ok || r.getter == nil {
			return event.None[string]()
		}
		img, err := r.Page(ctx, pageURL)
		if err != nil {
			logger.Warn("Preview image lookup failed", logger.Fields{"url": pageURL, "error": err.Error()})
			return event.None[string]()
		}
		return img
	default:
		return event.None[string]()
	}
}

// Page fetches pageURL and extracts its preview image.
func (r *Resolver) Page(ctx context.Context, pageURL string) (event.Optional[string], error) {
	if r.getter == nil {
		return event.None[string](), fmt.Errorf("no page fetcher configured")
	}
	resp, err := r.getter.Get(ctx, pageURL, nil, fetch.AcceptHTML)
	if err != nil {
		return event.None[string](), err
	}
	return ExtractImage(bytes.NewReader(resp.Body), resp.URL)
}

// ExtractImage finds a page's representative image: og:image, then twitter:image,
// then the first <img> whose src mentions a logo, image or thumbnail.
func ExtractImage(r io.Reader, pageURL string) (event.Optional[string], error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return event.None[string](), fmt.Errorf("parsing page: %w", err)
	}

	if content := metaContent(doc, `meta[property="og:image"]`); content != "" {
		return event.Some(content), nil
	}
	if content := metaContent(doc, `meta[name="twitter:image"]`); content != "" {
		return event.Some(content), nil
	}

	base, _ := url.Parse(pageURL)
	found := event.None[string]()
	doc.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		src, ok := img.Attr("src")
		if !ok || !hinted(src) {
			return true
		}
		switch {
		case strings.HasPrefix(src, "/"):
			if base == nil {
				return true
			}
			ref, err := url.Parse(src)
			if err != nil {
				return true
			}
			found = event.Some(base.ResolveReference(ref).String())
			return false
		case strings.HasPrefix(src, "http"):
			found = event.Some(src)
			return false
		}
		return true
	})
	return found, nil
}

func metaContent(doc *goquery.Document, selector string) string {
	var content string
	doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		content = strings.TrimSpace(s.AttrOr("content", ""))
		return content == ""
	})
	return content
}

func hinted(src string) bool {
	lower := strings.ToLower(src)
	for _, hint := range imageHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}
