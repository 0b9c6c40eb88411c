package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/connpass-notify/internal/config"
	"github.com/pfrederiksen/connpass-notify/internal/preview"
	"github.com/pfrederiksen/connpass-notify/internal/storage"
)

func newSearchCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Print the events the configured source returns, without notifying",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSearch(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.sortOrder, "sort", string(SortNone), "Sort order: none, date or title")
	return cmd
}

func runSearch(cmd *cobra.Command, opts *options) error {
	order := SortOrder(strings.ToLower(opts.sortOrder))
	if order != SortNone && order != SortByDate && order != SortByTitle {
		return fmt.Errorf("invalid sort order: %s (must be 'none', 'date' or 'title')", opts.sortOrder)
	}

	cfg, format, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}

	src, err := buildSource(cfg)
	if err != nil {
		return err
	}
	events, err := src.Fetch(cmd.Context())
	if err != nil {
		return fmt.Errorf("fetching events: %w", err)
	}
	sortEvents(events, order)

	return WriteOutput(cmd.OutOrStdout(), &OutputResult{
		CheckedAt:  time.Now().UTC(),
		Source:     src.Name(),
		Fetched:    len(events),
		NewEvents:  events,
		EventCount: len(events),
		ShowAll:    true,
	}, format, opts.verbose)
}

func newPreviewCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "preview <event-url>",
		Short: "Print the preview image found on an event page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}

			image, err := preview.NewResolver(preview.ModePage, newPageClient(cfg)).Page(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("resolving preview: %w", err)
			}
			if u, ok := image.Get(); ok {
				fmt.Fprintln(cmd.OutOrStdout(), u)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "No preview image found.")
			return nil
		},
	}
}

func newIDsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ids",
		Short: "List the identifiers recorded as notified",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			return listIDs(cmd, cfg, opts.countOnly)
		},
	}
	cmd.Flags().BoolVar(&opts.countOnly, "count", false, "Print only the number of identifiers")
	return cmd
}

func listIDs(cmd *cobra.Command, cfg config.Config, countOnly bool) error {
	store, err := storage.Open(storage.Backend(cfg.Store.Backend), cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer func() { _ = store.Close() }()

	ids, err := store.Load(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if countOnly {
		fmt.Fprintln(out, ids.Len())
		return nil
	}
	for _, id := range ids.Sorted() {
		fmt.Fprintln(out, id)
	}
	return nil
}
