package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/egtbills/tbill-yields/internal/config"
	"github.com/egtbills/tbill-yields/internal/logger"
	"github.com/egtbills/tbill-yields/internal/storage"
)

const (
	ExitSuccess = 0
	ExitError   = 1
)

var (
	flagConfig  string
	flagDB      string
	flagFormat  string
	flagVerbose bool
)

// settings is the resolved configuration of one invocation
type settings struct {
	cfg    config.Config
	format OutputFormat
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tbill-yields",
		Short: "Track Egyptian treasury bill auction yields",
		Long: `A CLI tool that scrapes the Central Bank of Egypt treasury bill auction
results, keeps a local history of accepted yields per tenor, and runs
primary and secondary market investment calculators.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&flagConfig, "config", config.DefaultPath, "Config file (JSON5); a .local variant overrides it")
	cmd.PersistentFlags().StringVar(&flagDB, "db", "", "Database path (overrides the config file)")
	cmd.PersistentFlags().StringVar(&flagFormat, "format", "text", "Output format: text or json")
	cmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Enable debug logging")

	cmd.AddCommand(newFetchCmd())
	cmd.AddCommand(newLatestCmd())
	cmd.AddCommand(newHistoryCmd())
	cmd.AddCommand(newCalcCmd())

	return cmd
}

// loadSettings reads .env, the config files and the root flags
func loadSettings() (*settings, error) {
	format, err := ParseFormat(flagFormat)
	if err != nil {
		return nil, err
	}

	if err := config.LoadEnv(); err != nil {
		return nil, err
	}

	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if flagDB != "" {
		cfg.Database = flagDB
	}

	level := logger.LevelDebug
	if !flagVerbose {
		level, err = logger.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, err
		}
	}
	logger.Default().SetLevel(level)

	return &settings{cfg: cfg, format: format}, nil
}

// openStore opens the configured time-series store
func (s *settings) openStore() (*storage.Store, error) {
	store, err := storage.New(s.cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}
	return store, nil
}

// Execute runs the CLI and returns the process exit code. SIGINT and SIGTERM
// cancel the running command.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "Interrupted.")
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return ExitError
	}
	return ExitSuccess
}
