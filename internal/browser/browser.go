package browser

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/chromedp/chromedp"

	"github.com/egtbills/tbill-yields/internal/logger"
)

// Browser opens pages
type Browser interface {
	// Open starts a browser session bound to ctx
	Open(ctx context.Context) (Page, error)
}

// Page is one loaded tab. Close must be called on every path.
type Page interface {
	Navigate(url string) error
	// WaitReady blocks until an element matching selector is visible
	WaitReady(selector string) error
	// HTML returns the rendered markup of the whole document
	HTML() (string, error)
	Close() error
}

// DefaultWindowSize is used when no window size is configured
const DefaultWindowSize = "1920,1080"

// Chrome launches a local Chrome or Chromium through the DevTools protocol
type Chrome struct {
	execPath   string
	userAgent  string
	windowSize string
	headful    bool
}

// Option configures Chrome
type Option func(*Chrome)

// WithExecPath points at a specific Chrome binary instead of searching PATH
func WithExecPath(path string) Option {
	return func(c *Chrome) { c.execPath = path }
}

// WithUserAgent overrides the browser User-Agent
func WithUserAgent(ua string) Option {
	return func(c *Chrome) { c.userAgent = ua }
}

// WithWindowSize sets the viewport as "width,height"
func WithWindowSize(size string) Option {
	return func(c *Chrome) { c.windowSize = size }
}

// WithHeadful shows the browser window, for debugging
func WithHeadful(headful bool) Option {
	return func(c *Chrome) { c.headful = headful }
}

// NewChrome creates a Chrome launcher
func NewChrome(opts ...Option) *Chrome {
	c := &Chrome{windowSize: DefaultWindowSize}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// allocatorOptions mirrors the flags the scraper has always run Chrome with:
// headless, no sandbox, no GPU, no extensions, fixed window.
func (c *Chrome) allocatorOptions() ([]chromedp.ExecAllocatorOption, error) {
	width, height, err := parseWindowSize(c.windowSize)
	if err != nil {
		return nil, err
	}

	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("headless", !c.headful),
		chromedp.WindowSize(width, height),
	)
	if c.userAgent != "" {
		opts = append(opts, chromedp.UserAgent(c.userAgent))
	}
	if c.execPath != "" {
		opts = append(opts, chromedp.ExecPath(c.execPath))
	}
	return opts, nil
}

// Open launches Chrome and a fresh tab. Cancelling ctx kills the process.
func (c *Chrome) Open(ctx context.Context) (Page, error) {
	opts, err := c.allocatorOptions()
	if err != nil {
		return nil, err
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	// Run with no actions starts the browser so launch failures surface here
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("starting browser: %w", err)
	}

	logger.Debug("browser started", logger.Fields{
		"headless":    !c.headful,
		"window_size": c.windowSize,
	})
	return &chromePage{ctx: tabCtx, cancel: tabCancel, allocCancel: allocCancel}, nil
}

type chromePage struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	closed      bool
}

func (p *chromePage) Navigate(url string) error {
	if err := chromedp.Run(p.ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigating to %s: %w", url, err)
	}
	return nil
}

func (p *chromePage) WaitReady(selector string) error {
	if err := chromedp.Run(p.ctx, chromedp.WaitVisible(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("waiting for %q: %w", selector, err)
	}
	return nil
}

func (p *chromePage) HTML() (string, error) {
	var markup string
	if err := chromedp.Run(p.ctx, chromedp.OuterHTML("html", &markup, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("reading page HTML: %w", err)
	}
	return markup, nil
}

// Close shuts the browser down gracefully, then releases the allocator. It is
// safe to call more than once.
func (p *chromePage) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true

	err := chromedp.Cancel(p.ctx)
	p.cancel()
	p.allocCancel()
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("closing browser: %w", err)
	}
	logger.Debug("browser closed", nil)
	return nil
}

// parseWindowSize reads "width,height"
func parseWindowSize(size string) (int, int, error) {
	if size == "" {
		size = DefaultWindowSize
	}
	w, h, ok := strings.Cut(size, ",")
	if !ok {
		return 0, 0, fmt.Errorf("invalid window size %q: want width,height", size)
	}
	width, err := strconv.Atoi(strings.TrimSpace(w))
	if err != nil || width <= 0 {
		return 0, 0, fmt.Errorf("invalid window width %q", w)
	}
	height, err := strconv.Atoi(strings.TrimSpace(h))
	if err != nil || height <= 0 {
		return 0, 0, fmt.Errorf("invalid window height %q", h)
	}
	return width, height, nil
}
