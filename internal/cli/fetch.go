package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/egtbills/tbill-yields/internal/browser"
	"github.com/egtbills/tbill-yields/internal/config"
	"github.com/egtbills/tbill-yields/internal/fetch"
	"github.com/egtbills/tbill-yields/internal/logger"
	"github.com/egtbills/tbill-yields/internal/notifier"
	"github.com/egtbills/tbill-yields/internal/scraper"
	"github.com/egtbills/tbill-yields/internal/telegram"
)

// Notification targets for fetch --notify
const (
	NotifyNone     = "none"
	NotifyDryRun   = "dry-run"
	NotifyTwitter  = "twitter"
	NotifyTelegram = "telegram"
)

var (
	flagRetries      int
	flagRetryDelay   time.Duration
	flagTimeout      time.Duration
	flagSkipPrecheck bool
	flagNotify       string
	flagMetrics      bool
	flagQuiet        bool
)

func newFetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch the latest auction results and save new yields",
		Long: `Loads the auction results page in a headless browser, extracts the accepted
yield of every tenor, and saves them when the page shows a session newer than
the stored one. A plain HTTP pre-check skips the browser when nothing changed.

Exits with status 1 when every attempt fails.`,
		Args: cobra.NoArgs,
		RunE: runFetch,
	}

	cmd.Flags().IntVar(&flagRetries, "retries", 0, "Number of attempts (default from config)")
	cmd.Flags().DurationVar(&flagRetryDelay, "retry-delay", 0, "Pause between attempts (default from config)")
	cmd.Flags().DurationVar(&flagTimeout, "timeout", 0, "Navigation timeout per attempt (default from config)")
	cmd.Flags().BoolVar(&flagSkipPrecheck, "skip-precheck", false, "Always load the page in the browser")
	cmd.Flags().StringVar(&flagNotify, "notify", NotifyNone, "Announce new results: none, dry-run, twitter or telegram")
	cmd.Flags().BoolVar(&flagMetrics, "metrics", false, "Include run metrics in the output")
	cmd.Flags().BoolVar(&flagQuiet, "quiet", false, "Do not print progress")

	return cmd
}

func runFetch(cmd *cobra.Command, args []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}
	if err := applyFetchFlags(cmd, &s.cfg); err != nil {
		return err
	}
	if err := s.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// announcements go to stderr when stdout carries JSON
	announceOut := cmd.OutOrStdout()
	if s.format == FormatJSON {
		announceOut = cmd.ErrOrStderr()
	}
	notify, err := newNotifier(flagNotify, s.cfg, announceOut)
	if err != nil {
		return err
	}

	store, err := s.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	orch := newOrchestrator(s.cfg, store, newChrome(s.cfg))
	progress := newProgressPrinter(cmd.ErrOrStderr(), flagQuiet)

	outcome, err := orch.Run(cmd.Context(), progress.update)
	if err != nil {
		if errors.Is(err, fetch.ErrExhausted) {
			logger.IncrCounter("cli.fetch.exhausted")
		}
		return err
	}

	result := newFetchResult(outcome, time.Now().UTC())
	if flagMetrics {
		result.Metrics = logger.GetMetricsSnapshot()
	}
	if err := WriteFetch(cmd.OutOrStdout(), result, s.format); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	if notify != nil && len(outcome.Saved) > 0 {
		if err := notify.Notify(cmd.Context(), outcome.Saved); err != nil {
			// the records are saved; a failed announcement does not fail the run
			logger.Warn("failed to announce new results", logger.Fields{"notifier": flagNotify}, err)
		}
	}
	return nil
}

// applyFetchFlags overrides config values with the flags the user set.
// Durations must be whole seconds to match the config file.
func applyFetchFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("retries") {
		cfg.Retries = flagRetries
	}
	if flags.Changed("retry-delay") {
		secs, err := wholeSeconds("retry-delay", flagRetryDelay)
		if err != nil {
			return err
		}
		cfg.RetryDelaySeconds = secs
	}
	if flags.Changed("timeout") {
		secs, err := wholeSeconds("timeout", flagTimeout)
		if err != nil {
			return err
		}
		cfg.AttemptTimeoutSeconds = secs
	}
	if flagSkipPrecheck {
		cfg.SkipPrecheck = true
	}
	return nil
}

func wholeSeconds(flag string, d time.Duration) (int, error) {
	if d%time.Second != 0 {
		return 0, fmt.Errorf("invalid --%s %s: must be a whole number of seconds", flag, d)
	}
	return int(d / time.Second), nil
}

func newChrome(cfg config.Config) *browser.Chrome {
	return browser.NewChrome(
		browser.WithExecPath(cfg.Chrome.ExecPath),
		browser.WithUserAgent(cfg.UserAgent),
		browser.WithWindowSize(cfg.Chrome.WindowSize),
		browser.WithHeadful(cfg.Chrome.Headful),
	)
}

func newOrchestrator(cfg config.Config, store fetch.Store, b browser.Browser) *fetch.Orchestrator {
	sc := scraper.New(
		scraper.WithURL(cfg.URL),
		scraper.WithUserAgent(cfg.UserAgent),
		scraper.WithTimeout(cfg.PrecheckTimeout()),
		scraper.WithLabels(cfg.Labels()),
		scraper.WithMarkers(cfg.Markers),
	)
	return fetch.New(store, b,
		fetch.WithScraper(sc),
		fetch.WithRetries(cfg.Retries),
		fetch.WithRetryDelay(cfg.RetryDelay()),
		fetch.WithAttemptTimeout(cfg.AttemptTimeout()),
		fetch.WithPrecheckTimeout(cfg.PrecheckTimeout()),
		fetch.WithLandmark(cfg.Page.LandmarkSelector),
		fetch.WithSkipPrecheck(cfg.SkipPrecheck),
	)
}

// newNotifier builds the --notify target. It returns nil for none.
func newNotifier(kind string, cfg config.Config, out io.Writer) (notifier.Notifier, error) {
	switch kind {
	case "", NotifyNone:
		return nil, nil
	case NotifyDryRun:
		return notifier.NewDryRunNotifier(out), nil
	case NotifyTwitter:
		creds, err := config.TwitterFromEnv()
		if err != nil {
			return nil, err
		}
		return notifier.NewTwitterNotifier(creds), nil
	case NotifyTelegram:
		creds, err := config.TelegramFromEnv()
		if err != nil {
			return nil, err
		}
		client, err := telegram.NewClient(creds.BotToken, creds.ChatID)
		if err != nil {
			return nil, fmt.Errorf("creating telegram client: %w", err)
		}
		return notifier.NewTelegramNotifier(client, cfg.URL), nil
	default:
		return nil, fmt.Errorf("invalid notifier: %s (must be 'none', 'dry-run', 'twitter' or 'telegram')", kind)
	}
}
