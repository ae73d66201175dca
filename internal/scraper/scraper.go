package scraper

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"dario.cat/mergo"
	"github.com/go-resty/resty/v2"

	"github.com/egtbills/tbill-yields/internal/logger"
)

const (
	AuctionsURL = "https://www.cbe.org.eg/ar/auctions/egp-t-bills"
	UserAgent   = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36 tbill-yields/1.0"
	Timeout     = 15 * time.Second
)

// Page landmarks as published on the auction results page
const (
	ResultsHeader       = "النتائج"
	SessionDateLabel    = "تاريخ الجلسة"
	AcceptedBidsKeyword = "تفاصيل العروض المقبولة"
	YieldAnchor         = "متوسط العائد المرجح"
)

// Labels are the texts the extractor anchors on
type Labels struct {
	ResultsHeader string
	SessionDate   string
	AcceptedBids  string
	YieldAnchor   string
}

// DefaultLabels returns the labels of the current page layout
func DefaultLabels() Labels {
	return Labels{
		ResultsHeader: ResultsHeader,
		SessionDate:   SessionDateLabel,
		AcceptedBids:  AcceptedBidsKeyword,
		YieldAnchor:   YieldAnchor,
	}
}

// DefaultMarkers returns the landmarks Verify requires by default
func DefaultMarkers() []string {
	return []string{ResultsHeader, SessionDateLabel, AcceptedBidsKeyword, YieldAnchor}
}

// Scraper holds the page semantics and the plain HTTP client used for the pre-check
type Scraper struct {
	client  *resty.Client
	url     string
	labels  Labels
	markers []string
	now     func() time.Time
}

// Option configures a Scraper
type Option func(*Scraper)

// WithURL overrides the auction page URL
func WithURL(url string) Option {
	return func(s *Scraper) { s.url = url }
}

// WithUserAgent overrides the User-Agent sent by the pre-check
func WithUserAgent(ua string) Option {
	return func(s *Scraper) { s.client.SetHeader("User-Agent", ua) }
}

// WithTimeout bounds each pre-check request
func WithTimeout(d time.Duration) Option {
	return func(s *Scraper) { s.client.SetTimeout(d) }
}

// WithLabels overrides the extraction anchors. Empty labels keep their defaults.
func WithLabels(labels Labels) Option {
	return func(s *Scraper) {
		if err := mergo.Merge(&labels, DefaultLabels()); err != nil {
			logger.Warn("failed to apply default labels", nil, err)
			return
		}
		s.labels = labels
	}
}

// WithMarkers overrides the landmarks required by Verify
func WithMarkers(markers []string) Option {
	return func(s *Scraper) { s.markers = markers }
}

// WithClock overrides the scrape timestamp source
func WithClock(now func() time.Time) Option {
	return func(s *Scraper) { s.now = now }
}

// New creates a Scraper for the auction page
func New(opts ...Option) *Scraper {
	s := &Scraper{
		client: resty.New().
			SetTimeout(Timeout).
			SetHeader("User-Agent", UserAgent),
		url:     AuctionsURL,
		labels:  DefaultLabels(),
		markers: DefaultMarkers(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// URL returns the auction page address
func (s *Scraper) URL() string {
	return s.url
}

// Parse verifies the page structure and extracts every well-formed auction block
func (s *Scraper) Parse(ctx context.Context, markup string) (*Result, error) {
	if err := Verify(markup, s.markers); err != nil {
		return nil, err
	}
	return Extract(ctx, bytes.NewBufferString(markup), s.now(), s.labels)
}

// Precheck fetches the page without a browser and returns the newest session date
// it shows. It is cheap, and its failures are expected to be non-fatal to callers.
func (s *Scraper) Precheck(ctx context.Context) (string, error) {
	resp, err := s.client.R().SetContext(ctx).Get(s.url)
	if err != nil {
		return "", fmt.Errorf("fetching page: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode())
	}

	body := resp.Body()
	if err := Verify(string(body), s.markers); err != nil {
		return "", err
	}

	live, err := LatestSessionDate(bytes.NewReader(body), s.labels)
	if err != nil {
		return "", err
	}
	logger.Debug("pre-check found live session date", logger.Fields{"session_date": live})
	return live, nil
}
