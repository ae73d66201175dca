package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/net/html"

	"github.com/egtbills/tbill-yields/internal/logger"
	"github.com/egtbills/tbill-yields/internal/yield"
)

var tracer = otel.Tracer("tbill-yields/scraper")

// ErrNoData is returned when no auction block on the page could be parsed.
// It is an extraction failure, not a transport one.
var ErrNoData = errors.New("no auction data could be extracted from the page")

// Result is the outcome of one extraction
type Result struct {
	// Records holds one record per tenor, the newest session wins, sorted by tenor
	Records []yield.Record
	// Accepted and Skipped count auction blocks
	Accepted int
	Skipped  int
	// SkipReasons explains each skipped block, in page order
	SkipReasons []string
}

// section is one auction block as located on the page
type section struct {
	index   int
	results Table
	yields  Table
}

// Extract parses every auction block on the page. All records share scrapedAt.
func Extract(ctx context.Context, r io.Reader, scrapedAt time.Time, labels Labels) (*Result, error) {
	_, span := tracer.Start(ctx, "Extract")
	defer span.End()

	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "parsing HTML")
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	headers := resultsHeaders(doc, labels)
	if len(headers) == 0 {
		span.SetStatus(codes.Error, "no results headers")
		logger.Error("no results headers found on page", logger.Fields{"header": labels.ResultsHeader}, ErrNoData)
		return nil, ErrNoData
	}

	result := &Result{}
	var all []yield.Record
	for i, header := range headers {
		records, err := parseSection(header, i, labels, scrapedAt)
		if err != nil {
			result.Skipped++
			result.SkipReasons = append(result.SkipReasons, err.Error())
			logger.Warn("skipping auction block", logger.Fields{"block": i + 1}, err)
			continue
		}
		result.Accepted++
		all = append(all, records...)
	}

	logger.AddCounter("scraper.sections.accepted", int64(result.Accepted))
	logger.AddCounter("scraper.sections.skipped", int64(result.Skipped))
	span.SetAttributes(
		attribute.Int("sections.accepted", result.Accepted),
		attribute.Int("sections.skipped", result.Skipped),
	)

	if result.Accepted == 0 {
		span.SetStatus(codes.Error, "no block parsed")
		logger.Error("no auction block could be parsed", logger.Fields{
			"blocks":  len(headers),
			"skipped": result.Skipped,
		}, ErrNoData)
		return result, ErrNoData
	}

	result.Records = yield.LatestByTenor(all)
	logger.Info("extracted auction results", logger.Fields{
		"blocks_accepted": result.Accepted,
		"blocks_skipped":  result.Skipped,
		"records":         len(all),
		"tenors":          len(result.Records),
	})
	return result, nil
}

// LatestSessionDate returns the newest session date shown in any results table,
// without requiring the yields to be parseable
func LatestSessionDate(r io.Reader, labels Labels) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("parsing HTML: %w", err)
	}

	var dates []string
	for _, header := range resultsHeaders(doc, labels) {
		table := nextTable(header, labels)
		if table == nil {
			continue
		}
		row, ok := parseTable(goquery.NewDocumentFromNode(table).Selection).Lookup(labels.SessionDate)
		if !ok {
			continue
		}
		dates = append(dates, row.Values...)
	}

	latest, ok := yield.LatestSessionDate(dates)
	if !ok {
		return "", fmt.Errorf("no session date on page: %w", ErrNoData)
	}
	return latest, nil
}

// resultsHeaders returns the <h2> elements that open an auction block
func resultsHeaders(doc *goquery.Document, labels Labels) []*html.Node {
	return doc.Find("h2").FilterFunction(func(_ int, h *goquery.Selection) bool {
		return strings.Contains(h.Text(), labels.ResultsHeader)
	}).Nodes
}

func isResultsHeader(labels Labels) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return isElement(n, "h2") && strings.Contains(nodeText(n), labels.ResultsHeader)
	}
}

// nextTable returns the first table after header and before the next block
func nextTable(header *html.Node, labels Labels) *html.Node {
	return findNext(header, func(n *html.Node) bool {
		return isElement(n, "table")
	}, isResultsHeader(labels))
}

// acceptedBidsTable returns the table introduced by the accepted bids marker of
// the block opened by header
func acceptedBidsTable(header *html.Node, labels Labels) *html.Node {
	marker := findNext(header, func(n *html.Node) bool {
		return isElement(n, "p", "strong") && strings.Contains(nodeText(n), labels.AcceptedBids)
	}, isResultsHeader(labels))
	if marker == nil {
		return nil
	}
	return findNext(marker, func(n *html.Node) bool {
		return isElement(n, "table")
	}, isResultsHeader(labels))
}

// parseSection interprets one auction block. Any inconsistency rejects the whole block.
func parseSection(header *html.Node, index int, labels Labels, scrapedAt time.Time) ([]yield.Record, error) {
	resultsNode := nextTable(header, labels)
	if resultsNode == nil {
		return nil, fmt.Errorf("block %d: no results table", index+1)
	}
	yieldsNode := acceptedBidsTable(header, labels)
	if yieldsNode == nil {
		return nil, fmt.Errorf("block %d: no accepted bids table", index+1)
	}

	s := section{
		index:   index,
		results: parseTable(goquery.NewDocumentFromNode(resultsNode).Selection),
		yields:  parseTable(goquery.NewDocumentFromNode(yieldsNode).Selection),
	}
	return s.records(labels, scrapedAt)
}

func (s section) records(labels Labels, scrapedAt time.Time) ([]yield.Record, error) {
	block := s.index + 1

	columns := s.results.TenorColumns()
	if len(columns) == 0 {
		return nil, fmt.Errorf("block %d: no numeric tenor columns", block)
	}

	dateRow, ok := s.results.Lookup(labels.SessionDate)
	if !ok {
		return nil, fmt.Errorf("block %d: no %q row", block, labels.SessionDate)
	}
	yieldRow, ok := s.yields.Lookup(labels.YieldAnchor)
	if !ok {
		return nil, fmt.Errorf("block %d: no %q row", block, labels.YieldAnchor)
	}

	var dates []string
	var rates []float64
	for _, col := range columns {
		if d, ok := dateRow.Value(col.Index); ok {
			dates = append(dates, d)
		}
		if v, ok := yieldRow.Value(col.Index); ok {
			if rate, ok := parseNumber(v); ok {
				rates = append(rates, rate)
			}
		}
	}

	if len(columns) != len(dates) || len(columns) != len(rates) {
		return nil, fmt.Errorf("block %d: mismatched counts: %d tenors, %d session dates, %d yields",
			block, len(columns), len(dates), len(rates))
	}

	records := make([]yield.Record, 0, len(columns))
	for i, col := range columns {
		r, err := yield.NewRecord(col.Tenor, rates[i], dates[i], scrapedAt)
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", block, err)
		}
		records = append(records, r)
	}
	return records, nil
}
