package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/titanous/json5"

	"github.com/egtbills/tbill-yields/internal/logger"
	"github.com/egtbills/tbill-yields/internal/scraper"
)

const (
	DefaultPath      = "tbill-yields.json5"
	DefaultURL       = scraper.AuctionsURL
	DefaultUserAgent = scraper.UserAgent
	DefaultDatabase  = "~/.local/share/tbill-yields/yields.db"
)

// Config holds everything the fetch pipeline needs besides secrets
type Config struct {
	URL       string `json:"url"`
	UserAgent string `json:"user_agent"`
	Database  string `json:"database"`
	LogLevel  string `json:"log_level"`

	Retries               int  `json:"retries"`
	RetryDelaySeconds     int  `json:"retry_delay_seconds"`
	AttemptTimeoutSeconds int  `json:"attempt_timeout_seconds"`
	PrecheckTimeoutSecs   int  `json:"precheck_timeout_seconds"`
	SkipPrecheck          bool `json:"skip_precheck"`

	// Markers must all appear in the raw page before it is parsed
	Markers []string `json:"markers"`

	Page   PageConfig   `json:"page"`
	Chrome ChromeConfig `json:"chrome"`
}

// PageConfig names the labels the extractor anchors on
type PageConfig struct {
	ResultsHeader       string `json:"results_header"`
	SessionDateLabel    string `json:"session_date_label"`
	AcceptedBidsKeyword string `json:"accepted_bids_keyword"`
	YieldAnchor         string `json:"yield_anchor"`
	LandmarkSelector    string `json:"landmark_selector"`
}

// ChromeConfig configures the headless browser
type ChromeConfig struct {
	ExecPath   string `json:"exec_path"`
	WindowSize string `json:"window_size"`
	Headful    bool   `json:"headful"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		URL:                   DefaultURL,
		UserAgent:             DefaultUserAgent,
		Database:              DefaultDatabase,
		LogLevel:              "info",
		Retries:               3,
		RetryDelaySeconds:     10,
		AttemptTimeoutSeconds: 60,
		PrecheckTimeoutSecs:   15,
		Markers:               scraper.DefaultMarkers(),
		Page: PageConfig{
			ResultsHeader:       scraper.ResultsHeader,
			SessionDateLabel:    scraper.SessionDateLabel,
			AcceptedBidsKeyword: scraper.AcceptedBidsKeyword,
			YieldAnchor:         scraper.YieldAnchor,
			LandmarkSelector:    "h2",
		},
		Chrome: ChromeConfig{
			WindowSize: "1920,1080",
		},
	}
}

// RetryDelay returns the pause between fetch attempts
func (c Config) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelaySeconds) * time.Second
}

// AttemptTimeout bounds navigation and landmark waiting in one attempt
func (c Config) AttemptTimeout() time.Duration {
	return time.Duration(c.AttemptTimeoutSeconds) * time.Second
}

// PrecheckTimeout bounds the plain HTTP pre-check
func (c Config) PrecheckTimeout() time.Duration {
	return time.Duration(c.PrecheckTimeoutSecs) * time.Second
}

// Labels converts the page settings into extractor anchors
func (c Config) Labels() scraper.Labels {
	return scraper.Labels{
		ResultsHeader: c.Page.ResultsHeader,
		SessionDate:   c.Page.SessionDateLabel,
		AcceptedBids:  c.Page.AcceptedBidsKeyword,
		YieldAnchor:   c.Page.YieldAnchor,
	}
}

// Validate rejects settings the pipeline cannot run with
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.URL) == "" {
		errs = append(errs, errors.New("url is required"))
	}
	if c.Retries < 1 {
		errs = append(errs, fmt.Errorf("retries must be at least 1, got %d", c.Retries))
	}
	if c.RetryDelaySeconds < 0 {
		errs = append(errs, fmt.Errorf("retry_delay_seconds must not be negative, got %d", c.RetryDelaySeconds))
	}
	if c.AttemptTimeoutSeconds <= 0 {
		errs = append(errs, fmt.Errorf("attempt_timeout_seconds must be positive, got %d", c.AttemptTimeoutSeconds))
	}
	if len(c.Markers) == 0 {
		errs = append(errs, errors.New("at least one structure marker is required"))
	}
	if c.Page.ResultsHeader == "" || c.Page.SessionDateLabel == "" ||
		c.Page.AcceptedBidsKeyword == "" || c.Page.YieldAnchor == "" {
		errs = append(errs, errors.New("page labels must not be empty"))
	}
	return errors.Join(errs...)
}

// Load reads the config file at path and then its local override on top of the
// defaults. Keys present in a file win even when they hold zero or false.
// Missing files are not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	found := false
	for _, p := range []string{path, LocalPath(path)} {
		ok, err := decodeInto(p, &cfg)
		if err != nil {
			return cfg, err
		}
		found = found || ok
	}
	if !found {
		logger.Debug("no config file found, using defaults", logger.Fields{"path": path})
	}
	return cfg, cfg.Validate()
}

// decodeInto unmarshals the file at path over cfg. It reports false when the file
// does not exist or is empty.
func decodeInto(path string, cfg *Config) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading config %s: %w", path, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return false, nil
	}
	if err := json5.Unmarshal(data, cfg); err != nil {
		return false, fmt.Errorf("parsing %s: %w", path, err)
	}
	logger.Debug("loaded config", logger.Fields{"path": path})
	return true, nil
}

// LocalPath returns the override file name for path: a.json5 becomes a.local.json5
func LocalPath(path string) string {
	dir := filepath.Dir(path)
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(filepath.Base(path), ext)
	return filepath.Join(dir, stem+".local"+ext)
}

// ExpandHome replaces a leading "~/" with the user's home directory
func ExpandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, path[2:]), nil
}

// LoadEnv primes the environment from .env files. Missing files are skipped and
// variables already set in the environment are kept.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}
