package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/pfrederiksen/connpass-notify/internal/event"
)

// DryRunNotifier prints what would be posted without actually posting
type DryRunNotifier struct {
	w     io.Writer
	count int
}

// NewDryRunNotifier creates a new dry-run notifier
func NewDryRunNotifier(w io.Writer) *DryRunNotifier {
	return &DryRunNotifier{w: w}
}

// Notify prints the webhook payload that would be posted
func (n *DryRunNotifier) Notify(_ context.Context, evt *event.Event, image event.Optional[string]) error {
	n.count++
	data, err := json.MarshalIndent(BuildPayload(evt, image), "", "  ")
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}
	_, err = fmt.Fprintf(n.w, "--- Notification %d ---\n%s\n\n", n.count, data)
	return err
}
