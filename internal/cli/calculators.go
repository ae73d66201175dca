package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/egtbills/tbill-yields/internal/calc"
	"github.com/egtbills/tbill-yields/internal/calendar"
	"github.com/egtbills/tbill-yields/internal/logger"
	"github.com/egtbills/tbill-yields/internal/storage"
	"github.com/egtbills/tbill-yields/internal/timezone"
	"github.com/egtbills/tbill-yields/internal/yield"
)

const (
	DefaultTaxRate    = "20"
	DefaultCustodyFee = "0.10"
)

var (
	flagFace          string
	flagYield         string
	flagTenor         int
	flagTax           string
	flagSession       string
	flagICS           string
	flagHeldDays      int
	flagSecondaryRate string
	flagFee           string
)

func newCalcCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Treasury bill investment calculators",
	}
	cmd.AddCommand(newPrimaryCmd())
	cmd.AddCommand(newSecondaryCmd())
	cmd.AddCommand(newCustodyCmd())
	return cmd
}

func newPrimaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "primary",
		Short: "Return of a bill bought at auction and held to maturity",
		Long: `Computes the purchase price, tax and net return of a bill bought at a primary
auction. Without --yield the latest stored yield for the tenor is used.`,
		Example: `  tbill-yields calc primary --face 100000 --tenor 91
  tbill-yields calc primary --face 100000 --tenor 364 --yield 25.043 --ics maturity.ics`,
		Args: cobra.NoArgs,
		RunE: runPrimary,
	}

	cmd.Flags().StringVar(&flagFace, "face", "", "Face value in EGP (required)")
	cmd.Flags().IntVar(&flagTenor, "tenor", 0, "Tenor in days (required)")
	cmd.Flags().StringVar(&flagYield, "yield", "", "Annual yield in percent (default: latest stored yield)")
	cmd.Flags().StringVar(&flagTax, "tax", DefaultTaxRate, "Tax on the profit in percent")
	cmd.Flags().StringVar(&flagSession, "session", "", "Auction session date DD/MM/YYYY for --ics (default: the stored session or today)")
	cmd.Flags().StringVar(&flagICS, "ics", "", "Write a maturity reminder to this iCalendar file")
	_ = cmd.MarkFlagRequired("face")
	_ = cmd.MarkFlagRequired("tenor")

	return cmd
}

func runPrimary(cmd *cobra.Command, args []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}

	face, err := parseDecimal("face", flagFace)
	if err != nil {
		return err
	}
	tax, err := parseDecimal("tax", flagTax)
	if err != nil {
		return err
	}

	in := calc.PrimaryInput{FaceValue: face, Tenor: flagTenor, TaxRate: tax}
	session := flagSession

	if flagYield != "" {
		if in.YieldRate, err = parseDecimal("yield", flagYield); err != nil {
			return err
		}
	} else {
		stored, err := storedYield(cmd, s, flagTenor)
		if err != nil {
			return err
		}
		in.YieldRate = decimal.NewFromFloat(stored.Rate)
		if session == "" {
			session = stored.SessionDate
		}
		logger.Debug("using stored yield", logger.Fields{"tenor": stored.Tenor, "yield": stored.Rate, "session_date": stored.SessionDate})
	}

	res, err := calc.Primary(in)
	if err != nil {
		return err
	}
	if err := WritePrimary(cmd.OutOrStdout(), in, res, s.format); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	if flagICS == "" {
		return nil
	}
	if session == "" {
		session = timezone.Now().Format(yield.SessionDateLayout)
	}
	return writeMaturityReminder(flagICS, calendar.Purchase{
		SessionDate: session,
		Tenor:       in.Tenor,
		FaceValue:   in.FaceValue,
		YieldRate:   in.YieldRate,
	})
}

// storedYield returns the latest stored record for tenor
func storedYield(cmd *cobra.Command, s *settings, tenor int) (yield.Record, error) {
	store, err := s.openStore()
	if err != nil {
		return yield.Record{}, err
	}
	defer store.Close()

	snapshot, err := store.LatestSnapshot(cmd.Context())
	if err != nil && !errors.Is(err, storage.ErrNoData) {
		return yield.Record{}, fmt.Errorf("loading latest yields: %w", err)
	}
	if snapshot != nil {
		for _, r := range snapshot.Records {
			if r.Tenor == tenor {
				return r, nil
			}
		}
	}
	return yield.Record{}, fmt.Errorf("no stored yield for the %d-day tenor, pass --yield", tenor)
}

func writeMaturityReminder(path string, p calendar.Purchase) error {
	ics, err := calendar.GenerateICS(p, timezone.Now())
	if err != nil {
		return fmt.Errorf("generating calendar entry: %w", err)
	}
	if err := os.WriteFile(path, []byte(ics), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	logger.Info("wrote maturity reminder", logger.Fields{"path": path, "tenor": p.Tenor, "session_date": p.SessionDate})
	return nil
}

func newSecondaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "secondary",
		Short:   "Outcome of selling a bill before maturity",
		Example: `  tbill-yields calc secondary --face 100000 --tenor 364 --yield 29 --held 60 --market-yield 30`,
		Args:    cobra.NoArgs,
		RunE:    runSecondary,
	}

	cmd.Flags().StringVar(&flagFace, "face", "", "Face value in EGP (required)")
	cmd.Flags().IntVar(&flagTenor, "tenor", 0, "Original tenor in days (required)")
	cmd.Flags().StringVar(&flagYield, "yield", "", "Yield the bill was bought at, in percent (required)")
	cmd.Flags().IntVar(&flagHeldDays, "held", 0, "Days held before the sale (required)")
	cmd.Flags().StringVar(&flagSecondaryRate, "market-yield", "", "Prevailing yield for the remaining days, in percent (required)")
	cmd.Flags().StringVar(&flagTax, "tax", DefaultTaxRate, "Tax on the profit in percent")
	for _, name := range []string{"face", "tenor", "yield", "held", "market-yield"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

func runSecondary(cmd *cobra.Command, args []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}

	in := calc.SecondaryInput{OriginalTenor: flagTenor, HoldingDays: flagHeldDays}
	for _, f := range []struct {
		name  string
		value string
		dst   *decimal.Decimal
	}{
		{"face", flagFace, &in.FaceValue},
		{"yield", flagYield, &in.OriginalYield},
		{"market-yield", flagSecondaryRate, &in.SecondaryYield},
		{"tax", flagTax, &in.TaxRate},
	} {
		if *f.dst, err = parseDecimal(f.name, f.value); err != nil {
			return err
		}
	}

	res, err := calc.Secondary(in)
	if err != nil {
		return err
	}
	return WriteSecondary(cmd.OutOrStdout(), in, res, s.format)
}

func newCustodyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "custody",
		Short:   "Quarterly custody fee on the bills held at a bank",
		Example: `  tbill-yields calc custody --face 250000 --fee 0.15`,
		Args:    cobra.NoArgs,
		RunE:    runCustody,
	}

	cmd.Flags().StringVar(&flagFace, "face", "", "Total face value held in EGP (required)")
	cmd.Flags().StringVar(&flagFee, "fee", DefaultCustodyFee, "Annual custody fee in percent")
	_ = cmd.MarkFlagRequired("face")

	return cmd
}

func runCustody(cmd *cobra.Command, args []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}

	total, err := parseDecimal("face", flagFace)
	if err != nil {
		return err
	}
	fee, err := parseDecimal("fee", flagFee)
	if err != nil {
		return err
	}

	res, err := calc.CustodyFee(total, fee)
	if err != nil {
		return err
	}
	return WriteCustody(cmd.OutOrStdout(), total, fee, res, s.format)
}

func parseDecimal(flag, value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid --%s %q: not a number", flag, value)
	}
	return d, nil
}
