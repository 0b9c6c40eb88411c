// Package pipeline runs one fetch, diff, notify and persist pass.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pfrederiksen/connpass-notify/internal/event"
	"github.com/pfrederiksen/connpass-notify/internal/logger"
	"github.com/pfrederiksen/connpass-notify/internal/metrics"
	"github.com/pfrederiksen/connpass-notify/internal/notifier"
	"github.com/pfrederiksen/connpass-notify/internal/source"
	"github.com/pfrederiksen/connpass-notify/internal/storage"
)

// ImageResolver picks the preview image for an event.
type ImageResolver interface {
	Resolve(ctx context.Context, evt *event.Event) event.Optional[string]
}

// thumbnailOnly is the default resolver.
type thumbnailOnly struct{}

func (thumbnailOnly) Resolve(_ context.Context, evt *event.Event) event.Optional[string] {
	return evt.Thumbnail
}

// Pipeline wires a source, a store and a notifier.
type Pipeline struct {
	source          source.Source
	store           storage.Store
	notifier        notifier.Notifier
	images          ImageResolver
	metrics         *metrics.Recorder
	log             *logger.Logger
	requireDelivery bool
	now             func() time.Time
	newRunID        func() string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithImageResolver sets how preview images are found. The default uses the event thumbnail.
func WithImageResolver(r ImageResolver) Option {
	return func(p *Pipeline) {
		if r != nil {
			p.images = r
		}
	}
}

// WithMetrics records run counters into m.
func WithMetrics(m *metrics.Recorder) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithLogger replaces the default logger.
func WithLogger(l *logger.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.log = l
		}
	}
}

// WithRequireDelivery leaves events whose delivery failed out of the store so the next
// run retries them. By default every attempted event is recorded.
func WithRequireDelivery(require bool) Option {
	return func(p *Pipeline) { p.requireDelivery = require }
}

// New creates a Pipeline.
func New(src source.Source, store storage.Store, n notifier.Notifier, opts ...Option) *Pipeline {
	p := &Pipeline{
		source:   src,
		store:    store,
		notifier: n,
		images:   thumbnailOnly{},
		log:      logger.Default(),
		now:      time.Now,
		newRunID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Result summarizes a run.
type Result struct {
	RunID    string
	Fetched  int
	Unkeyed  int
	New      []*event.Event // in notification order
	Notified []*event.Event // delivered successfully
	Failed   []*event.Event // delivery attempted and failed
	Recorded int            // identifiers added to the store
}

// Run performs one pass. Fetch, decode and store errors abort the run; delivery
// errors are logged and counted. When ctx is cancelled mid-run, identifiers recorded
// so far are still saved.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	result := &Result{RunID: p.newRunID()}
	log := p.log.With(logger.Fields{"run_id": result.RunID, "source": p.source.Name()})

	started := p.now()
	events, err := p.source.Fetch(ctx)
	p.metrics.ObserveFetch(p.now().Sub(started))
	if err != nil {
		log.Error("Fetch failed", nil, err)
		return result, fmt.Errorf("fetching events: %w", err)
	}
	result.Fetched = len(events)
	p.metrics.Fetched(p.source.Name(), len(events))

	notified, err := p.store.Load(ctx)
	if err != nil {
		log.Error("Loading notified IDs failed", nil, err)
		return result, fmt.Errorf("loading notified IDs: %w", err)
	}

	diff := event.Diff(notified, events)
	result.New = diff.NewEvents
	result.Unkeyed = diff.Unkeyed
	p.metrics.Delta(len(diff.NewEvents), diff.Unkeyed)

	if diff.Unkeyed > 0 {
		log.Warn("Skipped events without ID or URL", logger.Fields{"count": diff.Unkeyed})
	}

	if len(diff.NewEvents) == 0 {
		log.Info("No new events", logger.Fields{"fetched": len(events), "known": notified.Len()})
		p.metrics.Succeeded(p.now())
		return result, nil
	}

	runErr := p.deliver(ctx, log, diff, notified, result)

	// Persist even after cancellation so delivered events are not repeated.
	if err := p.store.Save(context.WithoutCancel(ctx), notified); err != nil {
		log.Error("Saving notified IDs failed", nil, err)
		return result, fmt.Errorf("saving notified IDs: %w", err)
	}

	log.Info("Run complete", logger.Fields{
		"fetched":  result.Fetched,
		"new":      len(result.New),
		"notified": len(result.Notified),
		"failed":   len(result.Failed),
		"recorded": result.Recorded,
	})

	if runErr != nil {
		return result, runErr
	}
	p.metrics.Succeeded(p.now())
	return result, nil
}

func (p *Pipeline) deliver(ctx context.Context, log *logger.Logger, diff *event.DiffResult, notified *event.IDSet, result *Result) error {
	for i, evt := range diff.NewEvents {
		if err := ctx.Err(); err != nil {
			log.Warn("Run interrupted", logger.Fields{"remaining": len(diff.NewEvents) - i})
			return err
		}

		key := diff.Keys[i]
		fields := logger.Fields{"id": key, "title": evt.Title.OrElse("")}
		log.Info("New event found", fields)

		image := p.images.Resolve(ctx, evt)
		err := p.notifier.Notify(ctx, evt, image)
		p.metrics.Notification(err)

		if err != nil && ctx.Err() != nil {
			log.Warn("Run interrupted during delivery", logger.Fields{"id": key})
			return ctx.Err()
		}
		if err != nil {
			var delivery *notifier.DeliveryError
			if errors.As(err, &delivery) && delivery.StatusCode != 0 {
				fields["status"] = delivery.StatusCode
				fields["body"] = delivery.Body
			}
			log.Error("Notification failed", fields, err)
			result.Failed = append(result.Failed, evt)
			if p.requireDelivery {
				continue
			}
		} else {
			result.Notified = append(result.Notified, evt)
		}

		notified.Add(key)
		result.Recorded++
	}
	return nil
}
