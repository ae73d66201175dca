package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/egtbills/tbill-yields/internal/filter"
	"github.com/egtbills/tbill-yields/internal/storage"
)

var (
	flagTenors string
	flagRange  string
	flagSort   string
)

func newLatestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "latest",
		Short: "Show the latest stored yield per tenor",
		Args:  cobra.NoArgs,
		RunE:  runLatest,
	}
}

func runLatest(cmd *cobra.Command, args []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}
	store, err := s.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	snapshot, err := store.LatestSnapshot(cmd.Context())
	if errors.Is(err, storage.ErrNoData) {
		fmt.Fprintln(cmd.OutOrStdout(), "No data stored yet. Run 'tbill-yields fetch' first.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading latest yields: %w", err)
	}

	return WriteSnapshot(cmd.OutOrStdout(), snapshot, s.format)
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show every stored yield record",
		Example: `  tbill-yields history --tenor 91,182
  tbill-yields history --range 01/2025..03/2025 --sort yield
  tbill-yields history --range 2024 --format json`,
		Args: cobra.NoArgs,
		RunE: runHistory,
	}

	cmd.Flags().StringVar(&flagTenors, "tenor", "", "Comma-separated tenors in days")
	cmd.Flags().StringVar(&flagRange, "range", "", "Session date range: DD/MM/YYYY, MM/YYYY, YYYY or FROM..TO")
	cmd.Flags().StringVar(&flagSort, "sort", string(SortByDate), "Sort by: date, tenor or yield")

	return cmd
}

func runHistory(cmd *cobra.Command, args []string) error {
	f, err := historyFilter(flagTenors, flagRange)
	if err != nil {
		return err
	}
	order, err := ParseSortOrder(flagSort)
	if err != nil {
		return err
	}

	s, err := loadSettings()
	if err != nil {
		return err
	}
	store, err := s.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.AllHistory(cmd.Context())
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}

	records = f.Apply(records)
	sortRecords(records, order)
	return WriteHistory(cmd.OutOrStdout(), records, f, s.format)
}

// historyFilter builds a filter from the --tenor and --range values
func historyFilter(tenors, dateRange string) (*filter.Filter, error) {
	f := filter.NewFilter()

	if tenors != "" {
		parsed, err := filter.ParseTenors(tenors)
		if err != nil {
			return nil, fmt.Errorf("invalid --tenor: %w", err)
		}
		f.Tenors = parsed
	}
	if dateRange != "" {
		from, to, err := filter.ParseDateRange(dateRange)
		if err != nil {
			return nil, fmt.Errorf("invalid --range: %w", err)
		}
		f.DateFrom, f.DateTo = from, to
	}
	return f, nil
}
