package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"feedrelay/internal/config"
	"feedrelay/internal/feed"
	"feedrelay/internal/history"
	"feedrelay/internal/logging"
	"feedrelay/internal/media"
	"feedrelay/internal/metrics"
	"feedrelay/internal/notifications"
	"feedrelay/internal/pipeline"
	"feedrelay/internal/preflight"
	"feedrelay/internal/reddit"
	"feedrelay/internal/workspace"
)

type runOptions struct {
	source     string
	limit      int
	filter     string
	timeRange  string
	dryRun     bool
	skipChecks bool
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run <source>",
		Short: "Relay the top posts of a source to Discord",
		Long: `Fetch a subreddit listing and deliver each post's media to Discord.

The source is either a catalog number (see "feedrelay sources") or a
subreddit name. Names outside the catalog are checked for existence first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.source = args[0]
			return runFeed(cmd, ctx, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Number of posts to relay (defaults to feed.max_posts)")
	cmd.Flags().StringVarP(&opts.filter, "filter", "f", "", "Listing filter: hot, new, top, rising, controversial")
	cmd.Flags().StringVarP(&opts.timeRange, "time-range", "t", "", "Window for top/controversial: hour, day, week, month, year, all")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Classify posts without downloading or delivering anything")
	cmd.Flags().BoolVar(&opts.skipChecks, "skip-checks", false, "Skip readiness checks before the run")
	return cmd
}

func runFeed(cmd *cobra.Command, ctx *commandContext, opts runOptions) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	client, err := ctx.feedClient()
	if err != nil {
		return err
	}
	logger, err := ctx.logger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	runCtx := cmd.Context()
	if runCtx == nil {
		runCtx = context.Background()
	}

	query, err := buildQuery(runCtx, cfg, client, opts)
	if err != nil {
		return err
	}
	notifier := notifications.NewService(cfg)
	posts, err := client.Listing(runCtx, query)
	if err != nil {
		if notifyErr := notifier.NotifyError(runCtx, err, "listing r/"+query.Source); notifyErr != nil {
			logger.Debug("listing error notification failed", logging.Error(notifyErr))
		}
		return fmt.Errorf("fetch r/%s/%s: %w", query.Source, query.Filter, err)
	}

	out := cmd.OutOrStdout()
	if opts.dryRun {
		printClassification(out, posts)
		return nil
	}
	if len(posts) == 0 {
		fmt.Fprintf(out, "No posts returned for r/%s (%s)\n", query.Source, query.Filter)
		return nil
	}

	if err := cfg.ValidateDelivery(); err != nil {
		return err
	}
	if !opts.skipChecks {
		if failed := preflight.Failed(preflight.RunAll(runCtx, cfg, nil)); len(failed) > 0 {
			return checksFailedError(failed)
		}
	}

	outcomes, err := relay(runCtx, ctx, cfg, logger, notifier, query, posts)
	if err != nil {
		return err
	}
	printOutcomes(out, outcomes)

	if err := metrics.WriteTextfile(cfg.Metrics.TextfilePath); err != nil {
		logging.WarnWithContext(logger, "metrics textfile not written", "metrics_write_failed",
			logging.String("path", cfg.Metrics.TextfilePath),
			logging.String(logging.FieldImpact, "node_exporter shows stale values"),
			logging.Error(err),
		)
	}
	return nil
}

// relay wires the workspace, history ledger, media stages, and channel for
// one batch.
func relay(ctx context.Context, cmdCtx *commandContext, cfg *config.Config, logger *slog.Logger, notifier notifications.Service, query feed.Query, posts []media.Post) ([]pipeline.Outcome, error) {
	ws, err := workspace.Open(cfg.Paths.WorkDir)
	if err != nil {
		if errors.Is(err, workspace.ErrLocked) {
			return nil, fmt.Errorf("another feedrelay run is using %s", cfg.Paths.WorkDir)
		}
		return nil, err
	}
	defer ws.Close()
	if swept, err := ws.Sweep(); err != nil {
		logger.Warn("workspace sweep failed", logging.Error(err))
	} else if len(swept) > 0 {
		logger.Info("removed leftover post directories", logging.Int("count", len(swept)))
	}

	var recorder pipeline.Recorder
	if cfg.History.Enabled {
		store, err := history.Open(cfg.HistoryPath())
		if err != nil {
			return nil, fmt.Errorf("open history: %w", err)
		}
		defer store.Close()
		recorder = store
	}

	channel, err := cmdCtx.newChannel(cfg.Discord)
	if err != nil {
		return nil, err
	}
	transcoder, err := media.NewTranscoder(cfg.FFmpegBinary(), cfg.Transcode.CRF)
	if err != nil {
		return nil, err
	}
	fetcher := media.NewFetcher(cfg.FetchTimeout(), media.WithUserAgent(cfg.Reddit.UserAgent))

	p, err := pipeline.New(pipeline.Deps{
		Fetcher:    fetcher,
		Transcoder: transcoder,
		Channel:    channel,
		Workspace:  ws,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}
	runner, err := pipeline.NewRunner(pipeline.RunnerConfig{
		Processor: p,
		Query:     query,
		Notifier:  notifier,
		Recorder:  recorder,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	return runner.Run(ctx, posts), nil
}

func buildQuery(ctx context.Context, cfg *config.Config, client *reddit.Client, opts runOptions) (feed.Query, error) {
	catalog, err := cfg.Catalog()
	if err != nil {
		return feed.Query{}, err
	}
	source, err := resolveSource(ctx, catalog, client, opts.source)
	if err != nil {
		return feed.Query{}, err
	}

	filterValue := opts.filter
	if strings.TrimSpace(filterValue) == "" {
		filterValue = cfg.Feed.DefaultFilter
	}
	filter, err := feed.ParseFilter(filterValue)
	if err != nil {
		return feed.Query{}, err
	}
	limit := cfg.Feed.MaxPosts
	if opts.limit != 0 {
		limit = feed.ClampLimit(opts.limit, cfg.Feed.MaxPosts)
	}
	query := feed.Query{Source: source, Limit: limit, Filter: filter}
	if filter.NeedsTimeRange() {
		rangeValue := opts.timeRange
		if strings.TrimSpace(rangeValue) == "" {
			rangeValue = cfg.Feed.DefaultTimeRange
		}
		if query.TimeRange, err = feed.ParseTimeRange(rangeValue); err != nil {
			return feed.Query{}, err
		}
	}
	return query, query.Validate()
}

// resolveSource accepts a catalog number, a catalog name, or any existing
// subreddit name.
func resolveSource(ctx context.Context, catalog *feed.Catalog, client *reddit.Client, arg string) (string, error) {
	arg = strings.TrimSpace(arg)
	if number, err := strconv.Atoi(arg); err == nil {
		src, ok := catalog.Lookup(number)
		if !ok {
			return "", fmt.Errorf("no source #%d (catalog has %d entries, see `feedrelay sources`)", number, catalog.Len())
		}
		return src.Name, nil
	}
	if src, ok := catalog.Find(arg); ok {
		return src.Name, nil
	}

	name := strings.TrimPrefix(arg, "r/")
	if !feed.ValidSourceName(name) {
		return "", fmt.Errorf("invalid source name %q", arg)
	}
	exists, err := client.SourceExists(ctx, name)
	if err != nil {
		return "", fmt.Errorf("check r/%s: %w", name, err)
	}
	if !exists {
		return "", fmt.Errorf("r/%s does not exist or is private", name)
	}
	return name, nil
}

func printOutcomes(out io.Writer, outcomes []pipeline.Outcome) {
	rows := make([][]string, 0, len(outcomes))
	for _, o := range outcomes {
		rows = append(rows, []string{
			strconv.Itoa(o.Index),
			o.StatusLine(),
			o.Media.Kind.String(),
			shortTitle(o.Post.Title),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"#", "Status", "Kind", "Title"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
	))
	summary := pipeline.Summarize("", outcomes, 0)
	fmt.Fprintf(out, "%d delivered, %d link only, %d skipped, %d failed\n",
		summary.Delivered, summary.LinkOnly, summary.Skipped, summary.Failed)
}

func printClassification(out io.Writer, posts []media.Post) {
	rows := make([][]string, 0, len(posts))
	for i, post := range posts {
		m := media.Classify(post)
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			m.Kind.String(),
			m.Resolved().Kind.String(),
			yesNo(post.NSFW),
			shortTitle(post.Title),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"#", "Kind", "Resolves To", "NSFW", "Title"},
		rows,
		[]columnAlignment{alignRight},
	))
}

func checksFailedError(failed []preflight.Result) error {
	parts := make([]string, 0, len(failed))
	for _, r := range failed {
		parts = append(parts, fmt.Sprintf("%s: %s", r.Name, r.Detail))
	}
	return fmt.Errorf("readiness checks failed (run `feedrelay check` for details): %s", strings.Join(parts, "; "))
}
