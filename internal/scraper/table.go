package scraper

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/egtbills/tbill-yields/internal/yield"
)

// Row is one table row: the text of its first cell and the texts of the rest
type Row struct {
	Label  string
	Values []string
}

// Table is a parsed HTML table. Header holds the column titles when the table has
// a header row, including the title of the label column.
type Table struct {
	Header []string
	Rows   []Row
}

// Lookup returns the first row, in document order, whose label contains substr
func (t Table) Lookup(substr string) (Row, bool) {
	for _, r := range t.Rows {
		if strings.Contains(r.Label, substr) {
			return r, true
		}
	}
	return Row{}, false
}

// Value returns the value in column i of the row, if present and non-empty
func (r Row) Value(i int) (string, bool) {
	if i < 0 || i >= len(r.Values) || r.Values[i] == "" {
		return "", false
	}
	return r.Values[i], true
}

// TenorColumn is a header column whose title is a day count
type TenorColumn struct {
	Tenor int
	Index int // position in Row.Values
}

// TenorColumns returns the numeric header columns after the label column.
// Non-numeric titles are dropped.
func (t Table) TenorColumns() []TenorColumn {
	if len(t.Header) < 2 {
		return nil
	}
	columns := make([]TenorColumn, 0, len(t.Header)-1)
	for i, title := range t.Header[1:] {
		tenor, ok := parseTenor(title)
		if !ok {
			continue
		}
		columns = append(columns, TenorColumn{Tenor: tenor, Index: i})
	}
	return columns
}

// parseTable reads a <table> into a Table. The header comes from <thead>, or from a
// first row made only of <th> cells. Rows of nested tables are ignored.
func parseTable(table *goquery.Selection) Table {
	var t Table

	rows := table.Find("tr").FilterFunction(func(_ int, tr *goquery.Selection) bool {
		return tr.Closest("table").IsSelection(table)
	})

	rows.Each(func(i int, tr *goquery.Selection) {
		cells := tr.ChildrenFiltered("th, td")
		if cells.Length() == 0 {
			return
		}

		texts := make([]string, 0, cells.Length())
		cells.Each(func(_ int, cell *goquery.Selection) {
			texts = append(texts, cellText(cell))
		})

		inHead := tr.ParentsFiltered("thead").Length() > 0
		onlyTH := cells.Length() == tr.ChildrenFiltered("th").Length()
		if t.Header == nil && len(t.Rows) == 0 && (inHead || onlyTH) {
			t.Header = texts
			return
		}

		t.Rows = append(t.Rows, Row{Label: texts[0], Values: texts[1:]})
	})

	return t
}

var innerWhitespace = regexp.MustCompile(`\s+`)

// cellText returns the printable text of a cell with whitespace collapsed
func cellText(sel *goquery.Selection) string {
	var b strings.Builder
	for _, n := range sel.Nodes {
		collectText(n, &b)
	}

	printable := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return ' '
		}
		if !unicode.IsPrint(r) {
			return -1
		}
		return r
	}, b.String())

	return strings.TrimSpace(innerWhitespace.ReplaceAllString(printable, " "))
}

func collectText(n *html.Node, b *strings.Builder) {
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
}

// parseTenor coerces a header title such as "91" or "٣٦٤" to a day count
func parseTenor(title string) (int, bool) {
	v, ok := parseNumber(title)
	if !ok || v <= 0 || v != float64(int(v)) {
		return 0, false
	}
	return int(v), true
}

// parseNumber reads a decimal number, tolerating Arabic digits, thousands
// separators and a trailing percent sign
func parseNumber(text string) (float64, bool) {
	s := strings.TrimSpace(yield.NormalizeDigits(text))
	s = strings.TrimSuffix(s, "%")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// nextNode returns the node following n in document order
func nextNode(n *html.Node) *html.Node {
	if n.FirstChild != nil {
		return n.FirstChild
	}
	for n != nil {
		if n.NextSibling != nil {
			return n.NextSibling
		}
		n = n.Parent
	}
	return nil
}

// findNext walks forward from n in document order and returns the first node for
// which match is true. The walk gives up at the first node for which stop is true.
func findNext(n *html.Node, match, stop func(*html.Node) bool) *html.Node {
	for cur := nextNode(n); cur != nil; cur = nextNode(cur) {
		if stop != nil && stop(cur) {
			return nil
		}
		if match(cur) {
			return cur
		}
	}
	return nil
}

func isElement(n *html.Node, tags ...string) bool {
	if n.Type != html.ElementNode {
		return false
	}
	for _, tag := range tags {
		if n.Data == tag {
			return true
		}
	}
	return false
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	collectText(n, &b)
	return b.String()
}
