package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"instagramdl/internal/downloader"
	"instagramdl/pkg/config"
	"instagramdl/pkg/instagram"
	"instagramdl/pkg/logger"
	"instagramdl/pkg/metadata"
	"instagramdl/pkg/metrics"
	"instagramdl/pkg/ratelimit"
	"instagramdl/pkg/retry"
	"instagramdl/pkg/scheduler"
	"instagramdl/pkg/storage"
	"instagramdl/pkg/ui"
)

var (
	// Get command flags
	sessionKind  string
	outputDir    string
	noDownload   bool
	concurrent   int
	interval     time.Duration
	maxRetries   int
	saveMetadata bool
	headless     bool
	notify       bool
	metricsFile  string
)

// getCmd retrieves one or more posts
var getCmd = &cobra.Command{
	Use:   "get <post-url>...",
	Short: "Retrieve posts and download their media",
	Long: `Retrieve one or more Instagram posts.

URLs are queued in the order given and fetched one at a time, at least
--interval apart. Each post's media is downloaded concurrently into the
output directory under unique names; existing files are never overwritten.
A post that fails does not stop the rest of the batch.`,
	Example: `  # Fetch a post through the public API and save its media here
  instagramdl get https://www.instagram.com/p/C1a2B3c4D5e/

  # Several posts, ten seconds apart, with a JSON sidecar for each
  instagramdl get --interval 10s --save-metadata URL1 URL2 URL3

  # Only print the post, using the server-rendered page
  instagramdl get --session page --no-download URL`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGet,
}

func init() {
	rootCmd.AddCommand(getCmd)

	getCmd.Flags().StringVarP(&sessionKind, "session", "s", "", "fetch technique: api, query, page or browser")
	getCmd.Flags().StringVarP(&outputDir, "output", "o", "", "directory for downloaded media")
	getCmd.Flags().BoolVar(&noDownload, "no-download", false, "print posts without downloading media")
	getCmd.Flags().IntVar(&concurrent, "concurrent", 0, "concurrent media downloads per post")
	getCmd.Flags().DurationVar(&interval, "interval", 0, "minimum time between post fetches")
	getCmd.Flags().IntVar(&maxRetries, "retries", 0, "retry attempts per media download")
	getCmd.Flags().BoolVar(&saveMetadata, "save-metadata", false, "write a metadata sidecar per post")
	getCmd.Flags().BoolVar(&headless, "headless", true, "run the browser session headless")
	getCmd.Flags().BoolVar(&notify, "notify", false, "send a desktop notification when done")
	getCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics to this file when done")
}

// getFlags collects the flags the user actually set.
func getFlags(cmd *cobra.Command) map[string]interface{} {
	flags := commonFlags(cmd)
	changed := cmd.Flags().Changed

	if changed("session") {
		flags["session"] = sessionKind
	}
	if changed("output") {
		flags["output"] = outputDir
	}
	if changed("no-download") {
		flags["download"] = !noDownload
	}
	if changed("concurrent") {
		flags["concurrent"] = concurrent
	}
	if changed("interval") {
		flags["interval"] = interval
	}
	if changed("retries") {
		flags["retries"] = maxRetries
	}
	if changed("save-metadata") {
		flags["save-metadata"] = saveMetadata
	}
	if changed("headless") {
		flags["headless"] = headless
	}
	if changed("metrics-file") {
		flags["metrics-file"] = metricsFile
	}
	return flags
}

// buildScheduler wires the session, downloader and metadata writer that cfg
// asks for. Metrics are registered with reg when it is not nil.
func buildScheduler(cfg *config.Config, log logger.Logger, reg *prometheus.Registry) (*scheduler.Scheduler, error) {
	client := instagram.NewClient(cfg.Instagram.Timeout, log)
	session, err := instagram.NewSession(cfg, client, log)
	if err != nil {
		return nil, err
	}

	opts := scheduler.Options{
		Interval: cfg.Scheduler.MinInterval,
		Logger:   log,
	}
	if reg != nil {
		opts.Metrics = metrics.New(reg)
	}

	if cfg.Download.Enabled {
		store, err := storage.NewManager(cfg.Download.Directory)
		if err != nil {
			return nil, fmt.Errorf("failed to prepare output directory: %w", err)
		}

		media := instagram.NewClient(cfg.Download.Timeout, log)
		if cfg.Instagram.UserAgent != "" {
			media.SetHeader("User-Agent", cfg.Instagram.UserAgent)
		}

		var retryCfg *retry.Config
		if cfg.Download.RetryAttempts > 0 {
			rc := retry.DefaultConfig()
			rc.MaxRetries = uint64(cfg.Download.RetryAttempts)
			rc.Logger = log
			retryCfg = &rc
		}

		opts.Fetcher = downloader.NewFetcher(media, store, downloader.Options{
			Workers: cfg.Download.ConcurrentDownloads,
			Limiter: ratelimit.New(cfg.RateLimit, nil),
			Retry:   retryCfg,
			Logger:  log,
		})

		if cfg.Download.SaveMetadata {
			writer, err := metadata.NewWriter(store, cfg.Download.MetadataFormat)
			if err != nil {
				return nil, err
			}
			opts.Metadata = writer
		}
	}

	return scheduler.New(session, opts), nil
}

func runGet(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, getFlags(cmd))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.GetLogger()
	log.WithFields(map[string]interface{}{
		"version": version,
		"session": cfg.Instagram.Session,
		"posts":   len(args),
	}).Info("instagramdl starting")

	var reg *prometheus.Registry
	if cfg.Metrics.File != "" {
		reg = metrics.NewRegistry()
	}

	s, err := buildScheduler(cfg, log, reg)
	if err != nil {
		return err
	}

	ui.PrintInfo("Session", cfg.Instagram.Session)
	if cfg.Download.Enabled {
		ui.PrintInfo("Output", cfg.Download.Directory)
	}

	tracker := ui.NewStatusTracker(len(args), nil)
	for i, raw := range args {
		postURL := strings.TrimSpace(raw)
		if !instagram.IsPostURL(postURL) {
			ui.PrintWarning("Not an Instagram post URL, trying anyway", postURL)
		}
		s.Submit(postURL, func(res *scheduler.Result, values map[string]any) {
			tracker.Record(res)
			ui.PrintResult(res)
			if len(args) > 1 {
				tracker.PrintProgress()
			}
		}, map[string]any{"index": i})
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	if err := drain(ctx, s); err != nil {
		ui.PrintWarning("Interrupted", fmt.Sprintf("%d posts not fetched", s.Len()))
	}

	fmt.Fprintln(ui.Output)
	tracker.PrintSummary()
	if notify {
		ui.NewNotifier().NotifyBatch(tracker)
	}
	if reg != nil {
		if err := metrics.WriteTextfile(cfg.Metrics.File, reg); err != nil {
			log.WithError(err).Warn("Failed to write metrics")
		}
	}

	if tracker.Failed() {
		return errors.New("some posts could not be retrieved")
	}
	return nil
}

// drain runs queued requests until the queue is empty or ctx ends.
func drain(ctx context.Context, s *scheduler.Scheduler) error {
	for {
		res, err := s.DrainOne(ctx)
		switch {
		case errors.Is(err, scheduler.ErrQueueEmpty):
			return nil
		case res == nil && err != nil:
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}
