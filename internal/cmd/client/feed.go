package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/corbtastik/incident-visualizer/internal/category"
	cfgpkg "github.com/corbtastik/incident-visualizer/internal/config"
	"github.com/corbtastik/incident-visualizer/internal/cursor"
	"github.com/corbtastik/incident-visualizer/internal/dashboard"
	"github.com/corbtastik/incident-visualizer/internal/feed"
	logpkg "github.com/corbtastik/incident-visualizer/pkg/log"
)

// NewFeedCommand constructs the `feed` command group.
func NewFeedCommand(endpoint EndpointFunc) *cobra.Command {
	feedCmd := &cobra.Command{Use: "feed", Short: "Live feed consumers"}
	feedCmd.AddCommand(newFeedTailCommand(endpoint), newFeedWatchCommand(endpoint))
	return feedCmd
}

// newFeedTailCommand constructs `feed tail`.
func newFeedTailCommand(endpoint EndpointFunc) *cobra.Command {
	tailCmd := &cobra.Command{
		Use:   "tail",
		Short: "Print new records for a category as JSON lines",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ep, _ := cmd.Flags().GetString("endpoint")
			kind, _ := cmd.Flags().GetString("transport")
			cat, _ := cmd.Flags().GetString("category")
			filter, _ := cmd.Flags().GetString("filter")
			interval, _ := cmd.Flags().GetDuration("interval")
			pageSize, _ := cmd.Flags().GetInt("page-size")
			limit, _ := cmd.Flags().GetInt("limit")
			backoff, _ := cmd.Flags().GetBool("backoff")
			if ep == "" {
				ep = endpoint()
			}

			t, err := feed.Dial(ep, kind)
			if err != nil {
				return err
			}
			defer t.Close()

			opts := feed.Options{Category: cat, Interval: interval, PageSize: pageSize, Filter: filter}
			if backoff {
				opts.Backoff = feed.Backoff{Max: 16 * interval}
			}
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return tail(ctx, feed.NewPoller(t, opts, logpkg.NewNop()), limit, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	f := tailCmd.Flags()
	f.String("endpoint", "", "Server endpoint (default $INCIDENTS_ENDPOINT)")
	f.String("transport", "", "Transport: http|grpc (default from endpoint scheme)")
	f.StringP("category", "C", "", "Category to tail")
	f.String("filter", "", "CEL filter (server-side)")
	f.Duration("interval", feed.DefaultInterval, "Poll interval")
	f.Int("page-size", feed.DefaultPageSize, "Records per request")
	f.Int("limit", 0, "Stop after N records (0 = infinite)")
	f.Bool("backoff", false, "Back off exponentially after consecutive failures")
	_ = tailCmd.MarkFlagRequired("category")
	return tailCmd
}

// tail runs p until ctx is done or limit records were printed.
func tail(ctx context.Context, p *feed.Poller, limit int, out, status io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	updates := p.Follow(ctx)
	p.Start(ctx)
	defer p.Stop()

	enc := json.NewEncoder(out)
	printed := 0
	var last feed.State
	for u := range updates {
		if u.State.Status != last.Status || u.State.ErrorMessage != last.ErrorMessage {
			printStatus(status, u.State)
		}
		last = u.State
		for _, ev := range u.Items {
			if err := enc.Encode(ev); err != nil {
				return err
			}
			printed++
			if limit > 0 && printed >= limit {
				return nil
			}
		}
	}
	return nil
}

var (
	okColor    = color.New(color.FgGreen, color.Bold)
	idleColor  = color.New(color.FgHiBlack)
	errorColor = color.New(color.FgRed, color.Bold)
)

func printStatus(w io.Writer, st feed.State) {
	ts := st.UpdatedAt.Format(time.TimeOnly)
	switch st.Status {
	case feed.StatusError:
		errorColor.Fprintf(w, "%s %s error: %s\n", ts, st.Category, st.ErrorMessage)
	case feed.StatusOK:
		okColor.Fprintf(w, "%s %s receiving (total %d)\n", ts, st.Category, st.TotalReceived)
	default:
		cur := "-"
		if !st.Cursor.IsZero() {
			cur = cursor.Encode(st.Cursor)
		}
		idleColor.Fprintf(w, "%s %s idle at %s\n", ts, st.Category, cur)
	}
}

// newFeedWatchCommand constructs `feed watch`.
func newFeedWatchCommand(endpoint EndpointFunc) *cobra.Command {
	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Interactive dashboard over one poller per category",
		RunE: func(cmd *cobra.Command, _ []string) error {
			feeds, err := watchFeeds(cmd, endpoint)
			if err != nil {
				return err
			}
			refresh, _ := cmd.Flags().GetDuration("refresh")

			hub, err := feed.FromConfig(feeds, nil, logpkg.NewNop())
			if err != nil {
				return err
			}
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			hub.Start(ctx)
			defer hub.Stop()
			if path, _ := cmd.Flags().GetString("config"); path != "" {
				go func() {
					_ = cfgpkg.Watch(ctx, path, nil, func(cfg cfgpkg.Config) { _ = hub.Apply(ctx, cfg.Feeds) })
				}()
			}
			return dashboard.Run(ctx, hub, refresh)
		},
	}
	f := watchCmd.Flags()
	f.StringP("config", "c", "", "Config file whose feeds section lists the pollers")
	f.String("endpoint", "", "Server endpoint (default $INCIDENTS_ENDPOINT)")
	f.String("transport", "", "Transport: http|grpc (default from endpoint scheme)")
	f.StringSliceP("category", "C", nil, "Categories to watch (default: all built-in)")
	f.String("filter", "", "CEL filter applied to every feed (server-side)")
	f.Duration("interval", cfgpkg.DefaultFeedInterval, "Poll interval")
	f.Bool("no-lifecycle", false, "Disable the synthetic-TTL live view")
	f.Duration("refresh", time.Second, "Dashboard refresh interval")
	return watchCmd
}

// watchFeeds resolves the feed list from --config or the flags.
func watchFeeds(cmd *cobra.Command, endpoint EndpointFunc) ([]cfgpkg.Feed, error) {
	path, _ := cmd.Flags().GetString("config")
	if path != "" {
		cfg, err := cfgpkg.Load(path)
		if err != nil {
			return nil, err
		}
		if len(cfg.Feeds) == 0 {
			return nil, fmt.Errorf("%s: no feeds configured", path)
		}
		return cfg.Feeds, nil
	}
	ep, _ := cmd.Flags().GetString("endpoint")
	kind, _ := cmd.Flags().GetString("transport")
	cats, _ := cmd.Flags().GetStringSlice("category")
	filter, _ := cmd.Flags().GetString("filter")
	interval, _ := cmd.Flags().GetDuration("interval")
	noLife, _ := cmd.Flags().GetBool("no-lifecycle")
	if ep == "" {
		ep = endpoint()
	}
	if len(cats) == 0 {
		for _, c := range category.Defaults() {
			cats = append(cats, c.Name)
		}
	}
	feeds := make([]cfgpkg.Feed, len(cats))
	for i, c := range cats {
		f := cfgpkg.DefaultFeed(ep, kind, c)
		f.Filter = filter
		f.Interval = interval
		f.Lifecycle.Enabled = !noLife
		feeds[i] = f
	}
	return feeds, nil
}
