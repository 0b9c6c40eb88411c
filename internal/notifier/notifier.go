package notifier

import (
	"context"
	"fmt"

	"github.com/pfrederiksen/connpass-notify/internal/event"
)

// Notifier defines the interface for posting event notifications
type Notifier interface {
	// Notify posts one notification for evt. image is the preview to attach, if any.
	Notify(ctx context.Context, evt *event.Event, image event.Optional[string]) error
}

// DeliveryError reports a notification the channel did not accept.
type DeliveryError struct {
	Channel    string
	StatusCode int    // zero when no response was received
	Body       string // truncated response body
	Err        error
}

func (e *DeliveryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s delivery failed: %v", e.Channel, e.Err)
	}
	return fmt.Sprintf("%s delivery failed with status %d: %s", e.Channel, e.StatusCode, e.Body)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
