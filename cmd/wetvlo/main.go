// Command wetvlo is the supervisor process of SPEC_FULL.md: it loads a
// series configuration, wires the scraping/download/cookie/notify/index
// collaborators per-domain, and runs the Session Scheduler until stopped,
// mirroring the teacher's cmd/webstalk/main.go cobra layout.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/watcherhq/wetvlo/internal/appctx"
	"github.com/watcherhq/wetvlo/internal/config"
	"github.com/watcherhq/wetvlo/internal/console"
	"github.com/watcherhq/wetvlo/internal/cookie"
	"github.com/watcherhq/wetvlo/internal/index"
	"github.com/watcherhq/wetvlo/internal/manager"
	"github.com/watcherhq/wetvlo/internal/media"
	"github.com/watcherhq/wetvlo/internal/notify"
	"github.com/watcherhq/wetvlo/internal/observability"
	"github.com/watcherhq/wetvlo/internal/scrape"
	"github.com/watcherhq/wetvlo/internal/session"
)

const version = "0.1.0"

var (
	cfgFile string
	debug   bool
	once    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "wetvlo",
		Short: "wetvlo — per-queue, cooldown-aware episode watcher and downloader",
		Long: `wetvlo watches streaming-series pages for new episodes on a schedule and
dispatches them to an external downloader, one cooldown-aware lane per
series and per domain.`,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(checkCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the supervisor until stopped",
		RunE:  runSupervisor,
	}
	cmd.Flags().BoolVar(&once, "once", false, "trigger one immediate check of every series, then exit")
	return cmd
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <series-url>",
		Short: "Force one immediate check of a single series",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger()
			reg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if _, err := reg.Resolve(args[0]); err != nil {
				return fmt.Errorf("series not registered: %w", err)
			}

			app, mgr, _, err := wire(reg, logger)
			if err != nil {
				return err
			}
			mgr.Start()
			if err := mgr.AddSeriesCheck(args[0]); err != nil {
				return fmt.Errorf("enqueue check: %w", err)
			}
			waitIdle(mgr)
			mgr.Stop()
			return app.Index.Close()
		},
	}
}

func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the resolved configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			for _, rc := range reg.ListSeries() {
				fmt.Printf("%s (%s)\n", rc.Name, rc.URL)
				fmt.Printf("  schedule:       startTime=%q cron=%q\n", rc.StartTime, rc.Cron)
				fmt.Printf("  check:          count=%d interval=%s types=%v\n", rc.Check.Count, rc.Check.CheckInterval, rc.Check.DownloadTypes)
				fmt.Printf("  download:       dir=%s delay=%s maxRetries=%d initialTimeout=%s\n",
					rc.Download.DownloadDir, rc.Download.DownloadDelay, rc.Download.MaxRetries, rc.Download.InitialTimeout)
				fmt.Printf("  cookies:        file=%q refreshBrowser=%v\n\n", rc.CookieFile, rc.CookieRefreshBrowser)
			}
			global := reg.Global()
			fmt.Printf("storage:   type=%s path=%s\n", global.Storage.Type, global.Storage.Path)
			fmt.Printf("downloader: binary=%s args=%v\n", global.Downloader.Binary, global.Downloader.Args)
			fmt.Printf("metrics:   enabled=%v addr=%s\n", global.Metrics.Enabled, global.Metrics.Addr)
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("wetvlo %s\n", version)
		},
	}
}

func runSupervisor(cmd *cobra.Command, args []string) error {
	logger := setupLogger()

	reg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	app, mgr, metrics, err := wire(reg, logger)
	if err != nil {
		return err
	}
	defer app.Index.Close()

	if global := reg.Global(); global.Metrics.Enabled {
		go func() {
			if err := metrics.ListenAndServe(context.Background(), "", metricsPort(global.Metrics.Addr)); err != nil {
				logger.Error("metrics server stopped", "error", err)
			}
		}()
	}

	onIdle := func(next time.Time, wait time.Duration) {
		logger.Debug("idle", "next_check_at", next, "wait", wait)
	}
	sess := session.New(app, mgr, onIdle, logger)

	watcher, err := config.WatchFile(cfgFile, logger, func(reg *config.Registry, err error) {
		if err != nil {
			logger.Warn("automatic config reload failed", "error", err)
			return
		}
		sess.Reload(reg)
	})
	if err != nil {
		logger.Warn("config file watch disabled", "error", err)
	} else {
		defer watcher.Close()
	}

	sess.Start()

	if once {
		sess.Trigger()
		waitIdle(mgr)
		sess.Stop()
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if isTTY() {
		c := console.New(os.Stdin, os.Stdout, cfgFile, config.Load, sess, mgr, stop, logger)
		go c.Run(ctx)
	}

	<-ctx.Done()
	logger.Info("shutting down...")
	sess.Stop()
	return nil
}

// wire constructs the Application Context and Queue Manager, registering a
// GenericListAdapter per declared domain.
func wire(reg *config.Registry, logger *slog.Logger) (*appctx.Context, *manager.Manager, *observability.PrometheusMetrics, error) {
	global := reg.Global()

	notifier := buildNotifier(global.Notify, logger)

	idx, err := buildIndex(global.Storage, logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("build downloaded-index: %w", err)
	}

	app := appctx.New(reg, notifier, idx)

	var cookieRefresher manager.CookieRefresher
	for _, rc := range reg.ListSeries() {
		if rc.CookieRefreshBrowser {
			cookieRefresher = cookie.NewBrowserRefresher(0, logger)
			break
		}
	}

	metrics := observability.NewPrometheusMetrics()
	downloader := media.NewExecDownloader(global.Downloader.Binary, global.Downloader.Args, reg, nil, logger)

	mgr := manager.New(app, downloader, cookieRefresher, metrics, logger)

	scrapeSelectors := loadScrapeSelectors(cfgFile)
	httpClient := scrape.NewHTTPClient(30*time.Second, nil, logger)
	for _, domain := range reg.ListDomains() {
		selectors, ok := scrapeSelectors[domain]
		if !ok {
			logger.Warn("no scrape selectors configured for domain, series on it will fail checks", "domain", domain)
			continue
		}
		adapter, err := scrape.NewGenericListAdapter(selectors, httpClient, 256, logger)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("build scrape adapter for %s: %w", domain, err)
		}
		mgr.RegisterAdapter(domain, adapter)
	}

	return app, mgr, metrics, nil
}

// waitIdle blocks until the Queue Manager has no queued or in-flight work,
// used by the one-shot "run --once" and "check" modes.
func waitIdle(mgr *manager.Manager) {
	for mgr.HasActiveProcessing() {
		time.Sleep(100 * time.Millisecond)
	}
}

func buildNotifier(cfg config.NotifyConfig, logger *slog.Logger) notify.Notifier {
	threshold := notify.Info
	if debug {
		threshold = notify.Debug
	} else if cfg.Level != "" {
		threshold = parseLevel(cfg.Level)
	}

	sinks := []notify.Notifier{notify.NewConsoleNotifier(threshold)}
	if cfg.SlackWebhookURL != "" {
		sinks = append(sinks, notify.NewSlackNotifier(cfg.SlackWebhookURL, threshold, logger))
	}
	return notify.NewMultiNotifier(sinks...)
}

func parseLevel(s string) notify.Level {
	switch s {
	case "debug":
		return notify.Debug
	case "success":
		return notify.Success
	case "highlight":
		return notify.Highlight
	case "warning":
		return notify.Warning
	case "error":
		return notify.Error
	default:
		return notify.Info
	}
}

func buildIndex(cfg config.StorageConfig, logger *slog.Logger) (index.Index, error) {
	switch cfg.Type {
	case "mongo":
		return index.NewMongoIndex(cfg.MongoURI, cfg.MongoDB, "downloaded_index", logger)
	default:
		return index.NewFileIndex(cfg.Path, logger)
	}
}

// loadScrapeSelectors parses the "scrape" YAML section, keyed by domain,
// into CSS selectors — kept separate from config.Document since selector
// configuration is a scraping-adapter concern, not a scheduling one.
func loadScrapeSelectors(path string) map[string]scrape.Selectors {
	v := viper.New()
	v.SetConfigFile(path)
	out := make(map[string]scrape.Selectors)
	if err := v.ReadInConfig(); err != nil {
		return out
	}
	raw := v.GetStringMap("scrape")
	for domain := range raw {
		var sel scrape.Selectors
		if err := v.UnmarshalKey("scrape."+domain, &sel); err != nil {
			continue
		}
		out[domain] = sel
	}
	return out
}

func setupLogger() *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}

func isTTY() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

func metricsPort(addr string) int {
	port := 9090
	fmt.Sscanf(addr, ":%d", &port)
	return port
}
