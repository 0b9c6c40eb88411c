package cli

import (
	"fmt"
	"io"

	"github.com/pfrederiksen/connpass-notify/internal/config"
	"github.com/pfrederiksen/connpass-notify/internal/fetch"
	"github.com/pfrederiksen/connpass-notify/internal/notifier"
	"github.com/pfrederiksen/connpass-notify/internal/preview"
	"github.com/pfrederiksen/connpass-notify/internal/source"
)

// newFetchClient builds the client for the primary upstream request.
func newFetchClient(cfg config.Config) *fetch.Client {
	opts := []fetch.Option{
		fetch.WithUserAgent(cfg.HTTP.UserAgent),
		fetch.WithDelay(cfg.HTTP.Delay),
		fetch.WithTimeout(cfg.HTTP.Timeout),
	}
	if cfg.Source == config.SourceAPI {
		opts = append(opts, fetch.WithHeader("X-API-Key", cfg.API.Key))
	}
	return fetch.New(opts...)
}

// newPageClient builds the client for event page lookups. Page lookups follow the
// primary fetch and are not delayed.
func newPageClient(cfg config.Config) *fetch.Client {
	return fetch.New(
		fetch.WithUserAgent(cfg.HTTP.UserAgent),
		fetch.WithDelay(0),
		fetch.WithTimeout(cfg.Preview.Timeout),
	)
}

func buildSource(cfg config.Config) (source.Source, error) {
	client := newFetchClient(cfg)
	filter := cfg.Filter()

	switch cfg.Source {
	case config.SourceAPI:
		return source.NewAPISource(client, cfg.API.Endpoint, filter, cfg.API.Order, cfg.API.Count), nil
	case config.SourceScrape:
		return source.NewScrapeSource(client, cfg.Scrape.BaseURL, filter), nil
	case config.SourceFeed:
		return source.NewFeedSource(client, cfg.Feed.URL, filter), nil
	default:
		return nil, fmt.Errorf("unknown source %q", cfg.Source)
	}
}

func buildNotifier(cfg config.Config, dryRunOut io.Writer) (notifier.Notifier, error) {
	switch cfg.Notify.Kind {
	case config.NotifySlack:
		return notifier.NewSlackNotifier(cfg.Notify.Slack.WebhookURL, nil)
	case config.NotifyTelegram:
		return notifier.NewTelegramNotifier(cfg.Notify.Telegram.Token, cfg.Notify.Telegram.ChatID)
	case config.NotifyDryRun:
		return notifier.NewDryRunNotifier(dryRunOut), nil
	default:
		return nil, fmt.Errorf("unknown notifier %q", cfg.Notify.Kind)
	}
}

func buildResolver(cfg config.Config) (*preview.Resolver, error) {
	mode, err := preview.ParseMode(cfg.Preview.Mode)
	if err != nil {
		return nil, err
	}
	return preview.NewResolver(mode, newPageClient(cfg)), nil
}
