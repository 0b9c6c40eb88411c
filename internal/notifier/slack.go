package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/pfrederiksen/connpass-notify/internal/event"
	"github.com/pfrederiksen/connpass-notify/internal/fetch"
	"github.com/pfrederiksen/connpass-notify/internal/logger"
)

// SlackNotifier posts to a Slack incoming webhook
type SlackNotifier struct {
	webhookURL string
	client     fetch.HTTPClient
}

// NewSlackNotifier creates a Slack notifier. A nil client selects one with the fetch timeout.
func NewSlackNotifier(webhookURL string, client fetch.HTTPClient) (*SlackNotifier, error) {
	if webhookURL == "" {
		return nil, fmt.Errorf("slack webhook URL is required")
	}
	if client == nil {
		client = &http.Client{Timeout: fetch.Timeout}
	}
	return &SlackNotifier{webhookURL: webhookURL, client: client}, nil
}

// Notify posts one webhook message for evt.
func (n *SlackNotifier) Notify(ctx context.Context, evt *event.Event, image event.Optional[string]) error {
	body, err := json.Marshal(BuildPayload(evt, image))
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return &DeliveryError{Channel: "slack", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	logger.Debug("Webhook responded", logger.Fields{"status": resp.StatusCode})

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &DeliveryError{
			Channel:    "slack",
			StatusCode: resp.StatusCode,
			Body:       fetch.Preview(string(respBody)),
		}
	}
	return nil
}
