package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/egtbills/tbill-yields/internal/browser"
	"github.com/egtbills/tbill-yields/internal/logger"
	"github.com/egtbills/tbill-yields/internal/scraper"
	"github.com/egtbills/tbill-yields/internal/yield"
)

var tracer = otel.Tracer("tbill-yields/fetch")

const (
	DefaultRetries         = 3
	DefaultRetryDelay      = 10 * time.Second
	DefaultAttemptTimeout  = 60 * time.Second
	DefaultPrecheckTimeout = 15 * time.Second
	DefaultLandmark        = "h2"
)

// Progress statuses. Failure and retry statuses carry details after these prefixes.
const (
	StatusChecking   = "Checking for new auction results"
	StatusUpToDate   = "Data is already up to date"
	StatusBrowser    = "Setting up browser"
	StatusConnecting = "Connecting to the auction page"
	StatusParsing    = "Parsing auction results"
	StatusSaving     = "Saving new records"
	StatusDone       = "Done"
	StatusFailed     = "Attempt failed"
	StatusRetrying   = "Retrying"
)

// Progress receives human-readable status updates. A nil Progress is ignored.
type Progress func(status string)

func (p Progress) report(status string) {
	if p != nil {
		p(status)
	}
}

// Store is the persistence the orchestrator needs
type Store interface {
	LatestSessionDate(ctx context.Context) (string, bool, error)
	Save(ctx context.Context, records []yield.Record) error
}

// ErrExhausted is matched by the error returned once every attempt has failed
var ErrExhausted = errors.New("all fetch attempts failed")

// ExhaustedError carries the error of the final attempt
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all %d fetch attempts failed, last error: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() []error {
	return []error{ErrExhausted, e.Last}
}

// Outcome describes a finished run
type Outcome struct {
	// Saved holds the records written by this run, sorted by tenor
	Saved []yield.Record
	// UpToDate is set when the store already held the newest session
	UpToDate bool
	// Precheck is set when the pre-check alone decided the run
	Precheck bool
	// SessionDate is the newest session date seen on the page
	SessionDate string
	Attempts    int
	Accepted    int
	Skipped     int
}

// Orchestrator coordinates browser, scraper and store
type Orchestrator struct {
	store           Store
	browser         browser.Browser
	scraper         *scraper.Scraper
	retries         int
	retryDelay      time.Duration
	attemptTimeout  time.Duration
	precheckTimeout time.Duration
	landmark        string
	skipPrecheck    bool
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithScraper replaces the default scraper
func WithScraper(s *scraper.Scraper) Option {
	return func(o *Orchestrator) { o.scraper = s }
}

// WithRetries sets the total number of attempts, at least one
func WithRetries(n int) Option {
	return func(o *Orchestrator) { o.retries = n }
}

// WithRetryDelay sets the constant wait between attempts
func WithRetryDelay(d time.Duration) Option {
	return func(o *Orchestrator) { o.retryDelay = d }
}

// WithAttemptTimeout bounds browser work in a single attempt
func WithAttemptTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.attemptTimeout = d }
}

// WithPrecheckTimeout bounds the plain-HTTP pre-check
func WithPrecheckTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.precheckTimeout = d }
}

// WithLandmark sets the CSS selector that signals the page has rendered
func WithLandmark(selector string) Option {
	return func(o *Orchestrator) { o.landmark = selector }
}

// WithSkipPrecheck always goes straight to the browser
func WithSkipPrecheck(skip bool) Option {
	return func(o *Orchestrator) { o.skipPrecheck = skip }
}

// New creates an Orchestrator
func New(store Store, b browser.Browser, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:           store,
		browser:         b,
		retries:         DefaultRetries,
		retryDelay:      DefaultRetryDelay,
		attemptTimeout:  DefaultAttemptTimeout,
		precheckTimeout: DefaultPrecheckTimeout,
		landmark:        DefaultLandmark,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.scraper == nil {
		o.scraper = scraper.New()
	}
	if o.retries < 1 {
		o.retries = 1
	}
	return o
}

// Run fetches the auction page until one attempt succeeds or the budget is spent.
// An up-to-date store is a success.
func (o *Orchestrator) Run(ctx context.Context, progress Progress) (*Outcome, error) {
	start := time.Now()
	defer func() { logger.RecordTiming("fetch.duration", time.Since(start)) }()

	ctx, span := tracer.Start(ctx, "fetch.Run")
	defer span.End()

	if !o.skipPrecheck {
		if outcome, ok := o.precheck(ctx, progress); ok {
			span.SetAttributes(attribute.Bool("up_to_date", true))
			return outcome, nil
		}
	}

	outcome := &Outcome{}
	var last error

	operation := func() error {
		outcome.Attempts++
		err := o.attempt(ctx, outcome.Attempts, progress, outcome)
		if err == nil {
			return nil
		}
		last = err
		o.recordFailure(outcome.Attempts, err)
		progress.report(fmt.Sprintf("%s (%d/%d): %v", StatusFailed, outcome.Attempts, o.retries, err))
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(o.retryDelay), uint64(o.retries-1)),
		ctx,
	)
	notify := func(_ error, wait time.Duration) {
		progress.report(fmt.Sprintf("%s in %s", StatusRetrying, wait))
	}

	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		if ctx.Err() != nil {
			return outcome, fmt.Errorf("fetch canceled: %w", ctx.Err())
		}
		if last == nil {
			last = err
		}
		logger.Error("giving up on fetch", logger.Fields{"attempts": outcome.Attempts}, last)
		return outcome, &ExhaustedError{Attempts: outcome.Attempts, Last: last}
	}

	span.SetAttributes(
		attribute.Int("attempts", outcome.Attempts),
		attribute.Int("saved", len(outcome.Saved)),
		attribute.Bool("up_to_date", outcome.UpToDate),
	)
	return outcome, nil
}

// precheck reports true when the store already holds the newest live session.
// Any failure falls through to the browser path.
func (o *Orchestrator) precheck(ctx context.Context, progress Progress) (*Outcome, bool) {
	progress.report(StatusChecking)

	stored, hasStored, err := o.store.LatestSessionDate(ctx)
	if err != nil {
		logger.Warn("pre-check could not read the store", nil, err)
		return nil, false
	}
	if !hasStored {
		logger.Debug("store is empty, skipping pre-check", nil)
		return nil, false
	}

	checkCtx, cancel := context.WithTimeout(ctx, o.precheckTimeout)
	defer cancel()

	live, err := o.scraper.Precheck(checkCtx)
	if err != nil {
		logger.Warn("pre-check failed, falling back to the browser", logger.Fields{"url": o.scraper.URL()}, err)
		return nil, false
	}

	if yield.DetectChange(stored, hasStored, live) != yield.Unchanged {
		logger.Info("pre-check found a new session", logger.Fields{"stored": stored, "live": live})
		return nil, false
	}

	logger.Info("data is already up to date", logger.Fields{"session_date": live})
	progress.report(StatusUpToDate)
	return &Outcome{UpToDate: true, Precheck: true, SessionDate: live}, true
}

// attempt runs one browser-driven fetch. The page is closed on every path.
func (o *Orchestrator) attempt(ctx context.Context, n int, progress Progress, outcome *Outcome) error {
	ctx, span := tracer.Start(ctx, "fetch.attempt", trace.WithAttributes(attribute.Int("attempt", n)))
	defer span.End()
	logger.IncrCounter("fetch.attempts")

	pageCtx, cancel := context.WithTimeout(ctx, o.attemptTimeout)
	defer cancel()

	progress.report(StatusBrowser)
	page, err := o.browser.Open(pageCtx)
	if err != nil {
		return fmt.Errorf("opening browser: %w", err)
	}
	defer func() {
		if err := page.Close(); err != nil {
			logger.Warn("failed to close browser", nil, err)
		}
	}()

	progress.report(StatusConnecting)
	if err := page.Navigate(o.scraper.URL()); err != nil {
		return err
	}
	if err := page.WaitReady(o.landmark); err != nil {
		return err
	}
	markup, err := page.HTML()
	if err != nil {
		return err
	}

	progress.report(StatusParsing)
	result, err := o.scraper.Parse(ctx, markup)
	if result != nil {
		outcome.Accepted, outcome.Skipped = result.Accepted, result.Skipped
	}
	if err != nil {
		return err
	}
	stored, hasStored, err := o.store.LatestSessionDate(ctx)
	if err != nil {
		return err
	}
	change, live := yield.DetectChangeFromRecords(stored, hasStored, result.Records)
	outcome.SessionDate = live
	if change == yield.Unchanged {
		logger.Info("no new session on the page", logger.Fields{"session_date": live})
		outcome.UpToDate = true
		progress.report(StatusUpToDate)
		return nil
	}

	progress.report(StatusSaving)
	if err := o.store.Save(ctx, result.Records); err != nil {
		return err
	}
	outcome.Saved = result.Records

	logger.Info("fetch complete", logger.Fields{
		"attempt":      n,
		"records":      len(result.Records),
		"session_date": live,
	})
	progress.report(StatusDone)
	return nil
}

func (o *Orchestrator) recordFailure(attempt int, err error) {
	logger.IncrCounter("fetch.failures")
	fields := logger.Fields{"attempt": attempt, "max_attempts": o.retries}
	if errors.Is(err, scraper.ErrStructureMismatch) {
		logger.IncrCounter("fetch.structure_mismatch")
		logger.Error("page structure changed", fields, err)
		return
	}
	logger.Warn("fetch attempt failed", fields, err)
}
