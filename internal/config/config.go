// Package config loads and validates connpass-notify configuration via Viper.
//
// Values come from defaults, an optional config file, and environment variables
// prefixed with CONNPASS_NOTIFY_ (dots become underscores, so notify.kind is
// CONNPASS_NOTIFY_NOTIFY_KIND). SLACK_WEBHOOK_URL is also accepted for the webhook.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pfrederiksen/connpass-notify/internal/fetch"
	"github.com/pfrederiksen/connpass-notify/internal/preview"
	"github.com/pfrederiksen/connpass-notify/internal/query"
	"github.com/pfrederiksen/connpass-notify/internal/source"
	"github.com/pfrederiksen/connpass-notify/internal/storage"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CONNPASS_NOTIFY"

// Source kinds.
const (
	SourceAPI    = "api"
	SourceScrape = "scrape"
	SourceFeed   = "feed"
)

// Notifier kinds.
const (
	NotifySlack    = "slack"
	NotifyTelegram = "telegram"
	NotifyDryRun   = "dryrun"
)

// Config captures every setting of a run.
type Config struct {
	Source  string        `mapstructure:"source"`
	Search  SearchConfig  `mapstructure:"search"`
	API     APIConfig     `mapstructure:"api"`
	Scrape  ScrapeConfig  `mapstructure:"scrape"`
	Feed    FeedConfig    `mapstructure:"feed"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Preview PreviewConfig `mapstructure:"preview"`
	Notify  NotifyConfig  `mapstructure:"notify"`
	Store   StoreConfig   `mapstructure:"store"`
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// SearchConfig is the event filter.
type SearchConfig struct {
	Keywords   []string `mapstructure:"keywords"`
	Match      string   `mapstructure:"match"`
	WindowDays int      `mapstructure:"window_days"`
	Region     string   `mapstructure:"region"`
}

// APIConfig configures the events API source.
type APIConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Order    int    `mapstructure:"order"`
	Count    int    `mapstructure:"count"`
	Key      string `mapstructure:"key"`
}

// ScrapeConfig configures the search page source.
type ScrapeConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

// FeedConfig configures the group feed source.
type FeedConfig struct {
	URL string `mapstructure:"url"`
}

// HTTPConfig configures outbound requests.
type HTTPConfig struct {
	UserAgent string        `mapstructure:"user_agent"`
	Delay     time.Duration `mapstructure:"delay"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// PreviewConfig selects where notification images come from.
type PreviewConfig struct {
	Mode    string        `mapstructure:"mode"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// NotifyConfig selects and configures the delivery channel.
type NotifyConfig struct {
	Kind            string         `mapstructure:"kind"`
	Slack           SlackConfig    `mapstructure:"slack"`
	Telegram        TelegramConfig `mapstructure:"telegram"`
	RequireDelivery bool           `mapstructure:"require_delivery"`
}

// SlackConfig holds the incoming webhook.
type SlackConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
}

// TelegramConfig holds the bot credentials.
type TelegramConfig struct {
	Token  string `mapstructure:"token"`
	ChatID string `mapstructure:"chat_id"`
}

// StoreConfig locates the notified-ID store.
type StoreConfig struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// MetricsConfig configures the textfile export. An empty path disables it.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// Load builds a Config from defaults, the file at path (when set) and the environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.BindEnv("notify.slack.webhook_url", EnvPrefix+"_NOTIFY_SLACK_WEBHOOK_URL", "SLACK_WEBHOOK_URL"); err != nil {
		return Config{}, fmt.Errorf("bind env: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Search.Keywords = splitKeywords(cfg.Search.Keywords)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("source", SourceAPI)
	v.SetDefault("search.keywords", []string{"Python"})
	v.SetDefault("search.match", string(query.MatchAny))
	v.SetDefault("search.window_days", 14)
	v.SetDefault("search.region", "tokyo")
	v.SetDefault("api.endpoint", source.APIEndpoint)
	v.SetDefault("api.order", source.DefaultOrder)
	v.SetDefault("api.count", source.DefaultCount)
	v.SetDefault("api.key", "")
	v.SetDefault("scrape.base_url", source.SearchURL)
	v.SetDefault("feed.url", "")
	v.SetDefault("http.user_agent", fetch.UserAgent)
	v.SetDefault("http.delay", fetch.Delay)
	v.SetDefault("http.timeout", fetch.Timeout)
	v.SetDefault("preview.mode", string(preview.ModeThumbnail))
	v.SetDefault("preview.timeout", fetch.Timeout)
	v.SetDefault("notify.kind", NotifySlack)
	v.SetDefault("notify.slack.webhook_url", "")
	v.SetDefault("notify.telegram.token", "")
	v.SetDefault("notify.telegram.chat_id", "")
	v.SetDefault("notify.require_delivery", false)
	v.SetDefault("store.backend", string(storage.BackendFile))
	v.SetDefault("store.path", storage.DefaultPath)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("metrics.textfile", "")
}

// splitKeywords accepts both list values and comma-separated strings.
func splitKeywords(in []string) []string {
	out := make([]string, 0, len(in))
	for _, kw := range in {
		for _, part := range strings.Split(kw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate checks enumerations and limits. Keyword emptiness and the window sign are
// left to the caller.
func (c Config) Validate() error {
	switch c.Source {
	case SourceAPI, SourceScrape:
	case SourceFeed:
		if c.Feed.URL == "" {
			return fmt.Errorf("feed.url must be set when source is feed")
		}
	default:
		return fmt.Errorf("source must be one of api, scrape, feed; got %q", c.Source)
	}

	switch strings.ToLower(c.Search.Match) {
	case string(query.MatchAll), string(query.MatchAny):
	default:
		return fmt.Errorf("search.match must be and or or; got %q", c.Search.Match)
	}

	if _, err := preview.ParseMode(c.Preview.Mode); err != nil {
		return fmt.Errorf("preview.mode: %w", err)
	}

	switch c.Notify.Kind {
	case NotifySlack, NotifyTelegram, NotifyDryRun:
	default:
		return fmt.Errorf("notify.kind must be one of slack, telegram, dryrun; got %q", c.Notify.Kind)
	}

	switch storage.Backend(c.Store.Backend) {
	case storage.BackendFile, storage.BackendSQLite:
	default:
		return fmt.Errorf("store.backend must be file or sqlite; got %q", c.Store.Backend)
	}

	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("http.timeout must be > 0")
	}
	if c.HTTP.Delay < 0 {
		return fmt.Errorf("http.delay must be >= 0")
	}
	return nil
}

// ValidateNotify checks that the selected channel has its credentials.
func (c Config) ValidateNotify() error {
	switch c.Notify.Kind {
	case NotifySlack:
		if c.Notify.Slack.WebhookURL == "" {
			return fmt.Errorf("notify.slack.webhook_url (or SLACK_WEBHOOK_URL) must be set")
		}
	case NotifyTelegram:
		if c.Notify.Telegram.Token == "" || c.Notify.Telegram.ChatID == "" {
			return fmt.Errorf("notify.telegram.token and notify.telegram.chat_id must be set")
		}
	}
	return nil
}

// Filter returns the search filter.
func (c Config) Filter() query.Filter {
	return query.Filter{
		Keywords:   c.Search.Keywords,
		Match:      query.Match(strings.ToLower(c.Search.Match)),
		WindowDays: c.Search.WindowDays,
		Region:     c.Search.Region,
	}
}
