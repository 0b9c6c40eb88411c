package notifier

import (
	"fmt"
	"html"
	"strings"

	"github.com/pfrederiksen/connpass-notify/internal/event"
)

const (
	headline    = "新しいconnpassイベントが公開されました！"
	placeholder = "-"
	altFallback = "connpass event"
)

var mrkdwnEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// FormatMessage renders the Slack mrkdwn text for an event.
func FormatMessage(evt *event.Event) string {
	title := mrkdwnEscaper.Replace(evt.Title.OrElse(placeholder))

	var b strings.Builder
	b.WriteString(headline + " :tada:\n")
	if link, ok := evt.URL.Get(); ok {
		fmt.Fprintf(&b, "*<%s|%s>*\n", link, title)
	} else {
		fmt.Fprintf(&b, "*%s*\n", title)
	}
	fmt.Fprintf(&b, "*日時*: %s\n", orPlaceholder(evt.Schedule()))
	fmt.Fprintf(&b, "*場所*: %s", mrkdwnEscaper.Replace(venue(evt)))
	return b.String()
}

// formatHTML renders the Telegram HTML text for an event.
func formatHTML(evt *event.Event) string {
	title := html.EscapeString(evt.Title.OrElse(placeholder))

	var b strings.Builder
	b.WriteString("<b>" + headline + "</b> 🎉\n")
	if link, ok := evt.URL.Get(); ok {
		fmt.Fprintf(&b, "<a href=\"%s\">%s</a>\n", html.EscapeString(link), title)
	} else {
		fmt.Fprintf(&b, "<b>%s</b>\n", title)
	}
	fmt.Fprintf(&b, "📅 %s\n", html.EscapeString(orPlaceholder(evt.Schedule())))
	fmt.Fprintf(&b, "📍 %s", html.EscapeString(venue(evt)))
	return b.String()
}

// venue renders "address (place)", or whichever of the two is known.
func venue(evt *event.Event) string {
	address, hasAddress := evt.Address.Get()
	place, hasPlace := evt.Place.Get()
	switch {
	case hasAddress && hasPlace:
		return fmt.Sprintf("%s (%s)", address, place)
	case hasAddress:
		return address
	case hasPlace:
		return place
	default:
		return placeholder
	}
}

func orPlaceholder(s string) string {
	if s == "" {
		return placeholder
	}
	return s
}

// Payload is a Slack incoming-webhook body. Exactly one of Text and Blocks is set.
type Payload struct {
	Text   string  `json:"text,omitempty"`
	Blocks []Block `json:"blocks,omitempty"`
}

// Block is a Slack layout block of type "image" or "section".
type Block struct {
	Type     string      `json:"type"`
	ImageURL string      `json:"image_url,omitempty"`
	AltText  string      `json:"alt_text,omitempty"`
	Text     *TextObject `json:"text,omitempty"`
}

// TextObject is the text of a section block.
type TextObject struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// BuildPayload returns a text-only payload, or an image block followed by a section
// block when image is present.
func BuildPayload(evt *event.Event, image event.Optional[string]) Payload {
	text := FormatMessage(evt)

	imageURL, ok := image.Get()
	if !ok || imageURL == "" {
		return Payload{Text: text}
	}

	return Payload{
		Blocks: []Block{
			{
				Type:     "image",
				ImageURL: imageURL,
				AltText:  evt.Title.OrElse(altFallback),
			},
			{
				Type: "section",
				Text: &TextObject{Type: "mrkdwn", Text: text},
			},
		},
	}
}
