package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/shopspring/decimal"

	"github.com/egtbills/tbill-yields/internal/calc"
	"github.com/egtbills/tbill-yields/internal/fetch"
	"github.com/egtbills/tbill-yields/internal/filter"
	"github.com/egtbills/tbill-yields/internal/storage"
	"github.com/egtbills/tbill-yields/internal/timezone"
	"github.com/egtbills/tbill-yields/internal/yield"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

const timeLayout = "2006-01-02 15:04 MST"

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// ParseFormat validates a --format value
func ParseFormat(s string) (OutputFormat, error) {
	format := OutputFormat(strings.ToLower(strings.TrimSpace(s)))
	if format != FormatText && format != FormatJSON {
		return "", fmt.Errorf("invalid format: %s (must be 'text' or 'json')", s)
	}
	return format, nil
}

// FetchResult is the report of one fetch run
type FetchResult struct {
	CheckedAt   time.Time              `json:"checked_at"`
	UpToDate    bool                   `json:"up_to_date"`
	Precheck    bool                   `json:"decided_by_precheck"`
	SessionDate string                 `json:"session_date,omitempty"`
	Attempts    int                    `json:"attempts"`
	Accepted    int                    `json:"sections_accepted"`
	Skipped     int                    `json:"sections_skipped"`
	Saved       []yield.Record         `json:"saved"`
	Metrics     map[string]interface{} `json:"metrics,omitempty"`
}

func newFetchResult(o *fetch.Outcome, checkedAt time.Time) *FetchResult {
	saved := o.Saved
	if saved == nil {
		saved = []yield.Record{}
	}
	return &FetchResult{
		CheckedAt:   checkedAt,
		UpToDate:    o.UpToDate,
		Precheck:    o.Precheck,
		SessionDate: o.SessionDate,
		Attempts:    o.Attempts,
		Accepted:    o.Accepted,
		Skipped:     o.Skipped,
		Saved:       saved,
	}
}

// WriteFetch writes the report of a fetch run
func WriteFetch(w io.Writer, result *FetchResult, format OutputFormat) error {
	if format == FormatJSON {
		return writeJSON(w, result)
	}

	switch {
	case result.UpToDate && result.SessionDate != "":
		fmt.Fprintf(w, "Data is already up to date (latest session %s).\n", result.SessionDate)
	case result.UpToDate:
		fmt.Fprintln(w, "Data is already up to date.")
	default:
		fmt.Fprintf(w, "Saved %d new records from session %s.\n", len(result.Saved), result.SessionDate)
		if result.Skipped > 0 {
			fmt.Fprintf(w, "Skipped %d incomplete auction sections.\n", result.Skipped)
		}
		writeRecordTable(w, result.Saved, false)
	}

	if len(result.Metrics) > 0 {
		fmt.Fprintln(w, "Metrics:")
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result.Metrics)
	}
	return nil
}

type snapshotView struct {
	AsOf    time.Time      `json:"as_of"`
	Records []yield.Record `json:"records"`
}

// WriteSnapshot writes the latest yield per tenor
func WriteSnapshot(w io.Writer, snapshot *storage.Snapshot, format OutputFormat) error {
	if format == FormatJSON {
		return writeJSON(w, snapshotView{AsOf: snapshot.AsOf, Records: snapshot.Records})
	}

	fmt.Fprintf(w, "Latest yields (as of %s)\n", timezone.In(snapshot.AsOf).Format(timeLayout))
	writeRecordTable(w, snapshot.Records, false)
	return nil
}

type historyView struct {
	Filter  *filter.Filter `json:"filter,omitempty"`
	Count   int            `json:"count"`
	Records []yield.Record `json:"records"`
}

// WriteHistory writes stored records, with the filter that selected them
func WriteHistory(w io.Writer, records []yield.Record, f *filter.Filter, format OutputFormat) error {
	if format == FormatJSON {
		view := historyView{Count: len(records), Records: records}
		if view.Records == nil {
			view.Records = []yield.Record{}
		}
		if f != nil && !f.IsEmpty() {
			view.Filter = f
		}
		return writeJSON(w, view)
	}

	if f != nil && !f.IsEmpty() {
		fmt.Fprintf(w, "Filter: %s\n", f)
	}
	if len(records) == 0 {
		fmt.Fprintln(w, "No records found.")
		return nil
	}
	writeRecordTable(w, records, true)
	return nil
}

type primaryView struct {
	FaceValue decimal.Decimal     `json:"face_value"`
	YieldRate decimal.Decimal     `json:"yield"`
	Tenor     int                 `json:"tenor"`
	TaxRate   decimal.Decimal     `json:"tax_rate"`
	Result    *calc.PrimaryResult `json:"result"`
}

// WritePrimary writes a held-to-maturity calculation
func WritePrimary(w io.Writer, in calc.PrimaryInput, res *calc.PrimaryResult, format OutputFormat) error {
	if format == FormatJSON {
		return writeJSON(w, primaryView{
			FaceValue: in.FaceValue,
			YieldRate: in.YieldRate,
			Tenor:     in.Tenor,
			TaxRate:   in.TaxRate,
			Result:    res,
		})
	}

	fmt.Fprintf(w, "Primary market: %s face, %d days at %s\n",
		calc.FormatCurrency(in.FaceValue), in.Tenor, calc.FormatPercent(in.YieldRate))
	t := newTable(w)
	t.AppendRows([]table.Row{
		{"Purchase price", calc.FormatCurrency(res.PurchasePrice)},
		{"Gross return", calc.FormatCurrency(res.GrossReturn)},
		{fmt.Sprintf("Tax (%s)", calc.FormatPercent(in.TaxRate)), calc.FormatCurrency(res.TaxAmount)},
		{"Net return", calc.FormatCurrency(res.NetReturn)},
		{"Total payout", calc.FormatCurrency(res.TotalPayout)},
		{"Real profit", calc.FormatPercent(res.RealProfitPercent)},
	})
	t.Render()
	return nil
}

type secondaryView struct {
	FaceValue      decimal.Decimal       `json:"face_value"`
	OriginalYield  decimal.Decimal       `json:"original_yield"`
	OriginalTenor  int                   `json:"original_tenor"`
	HoldingDays    int                   `json:"holding_days"`
	SecondaryYield decimal.Decimal       `json:"secondary_yield"`
	TaxRate        decimal.Decimal       `json:"tax_rate"`
	Result         *calc.SecondaryResult `json:"result"`
}

// WriteSecondary writes an early-sale calculation
func WriteSecondary(w io.Writer, in calc.SecondaryInput, res *calc.SecondaryResult, format OutputFormat) error {
	if format == FormatJSON {
		return writeJSON(w, secondaryView{
			FaceValue:      in.FaceValue,
			OriginalYield:  in.OriginalYield,
			OriginalTenor:  in.OriginalTenor,
			HoldingDays:    in.HoldingDays,
			SecondaryYield: in.SecondaryYield,
			TaxRate:        in.TaxRate,
			Result:         res,
		})
	}

	fmt.Fprintf(w, "Secondary market: %s face, sold after %d of %d days at %s\n",
		calc.FormatCurrency(in.FaceValue), in.HoldingDays, in.OriginalTenor, calc.FormatPercent(in.SecondaryYield))
	t := newTable(w)
	t.AppendRows([]table.Row{
		{"Original price", calc.FormatCurrency(res.OriginalPurchasePrice)},
		{"Sale price", calc.FormatCurrency(res.SalePrice)},
		{"Remaining days", res.RemainingDays},
		{"Gross profit", calc.FormatCurrency(res.GrossProfit)},
		{fmt.Sprintf("Tax (%s)", calc.FormatPercent(in.TaxRate)), calc.FormatCurrency(res.TaxAmount)},
		{"Net profit", calc.FormatCurrency(res.NetProfit)},
		{"Period yield", calc.FormatPercent(res.PeriodYield)},
	})
	t.Render()
	return nil
}

type custodyView struct {
	TotalFaceValue decimal.Decimal     `json:"total_face_value"`
	FeePercent     decimal.Decimal     `json:"fee_percent"`
	Result         *calc.CustodyResult `json:"result"`
}

// WriteCustody writes a custody fee estimate
func WriteCustody(w io.Writer, total, fee decimal.Decimal, res *calc.CustodyResult, format OutputFormat) error {
	if format == FormatJSON {
		return writeJSON(w, custodyView{TotalFaceValue: total, FeePercent: fee, Result: res})
	}

	fmt.Fprintf(w, "Custody fee: %s held at %s a year\n", calc.FormatCurrency(total), calc.FormatPercent(fee))
	t := newTable(w)
	t.AppendRows([]table.Row{
		{"Annual fee", calc.FormatCurrency(res.AnnualFee)},
		{"Quarterly deduction", calc.FormatCurrency(res.QuarterlyDeduction)},
	})
	t.Render()
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	return t
}

// writeRecordTable renders records, with their scrape time when withScraped is set
func writeRecordTable(w io.Writer, records []yield.Record, withScraped bool) {
	t := newTable(w)
	header := table.Row{"Tenor", "Yield", "Session"}
	if withScraped {
		header = append(header, "Scraped")
	}
	t.AppendHeader(header)

	for _, r := range records {
		row := table.Row{fmt.Sprintf("%d days", r.Tenor), fmt.Sprintf("%.3f%%", r.Rate), r.SessionDate}
		if withScraped {
			row = append(row, timezone.In(r.ScrapedAt).Format(timeLayout))
		}
		t.AppendRow(row)
	}
	t.Render()
}
