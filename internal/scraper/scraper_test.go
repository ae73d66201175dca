package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
)

var scrapedAt = time.Date(2025, 7, 7, 12, 30, 0, 0, time.UTC)

// auctionBlock renders one results block the way the auction page lays it out
func auctionBlock(tenors []string, dates []string, yields []string) string {
	var b strings.Builder
	b.WriteString("<h2>النتائج</h2><table><thead><tr><th>البيان</th>")
	for _, t := range tenors {
		fmt.Fprintf(&b, "<th>%s</th>", t)
	}
	b.WriteString("</tr></thead><tbody><tr><td>تاريخ الجلسة</td>")
	for _, d := range dates {
		fmt.Fprintf(&b, "<td>%s</td>", d)
	}
	b.WriteString("</tr></tbody></table>")
	b.WriteString("<p><strong>تفاصيل العروض المقبولة</strong></p><table><tbody><tr><td>متوسط العائد المرجح</td>")
	for _, y := range yields {
		fmt.Fprintf(&b, "<td>%s</td>", y)
	}
	b.WriteString("</tr></tbody></table>")
	return b.String()
}

func page(blocks ...string) string {
	return "<html><body>" + strings.Join(blocks, "") + "</body></html>"
}

func mockPage() string {
	return page(
		auctionBlock([]string{"182", "364"}, []string{"06/07/2025", "06/07/2025"}, []string{"27.192", "25.043"}),
		auctionBlock([]string{"91", "273"}, []string{"07/07/2025", "07/07/2025"}, []string{"27.558", "26.758"}),
	)
}

func loadFixture(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile("../../testdata/fixtures/cbe_auctions.html")
	if err != nil {
		t.Fatalf("failed to load test fixture: %v", err)
	}
	return string(data)
}

func TestVerify(t *testing.T) {
	tests := []struct {
		name    string
		markup  string
		missing string
	}{
		{
			name:   "all markers present",
			markup: mockPage(),
		},
		{
			name:    "yield anchor missing",
			markup:  strings.ReplaceAll(mockPage(), YieldAnchor, "متوسط السعر"),
			missing: YieldAnchor,
		},
		{
			name:    "results header missing",
			markup:  "<html><body><p>الصيانة</p></body></html>",
			missing: ResultsHeader,
		},
		{
			name:    "empty page",
			markup:  "",
			missing: ResultsHeader,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Verify(tt.markup, DefaultMarkers())
			if tt.missing == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected structure error, got nil")
			}
			if !errors.Is(err, ErrStructureMismatch) {
				t.Errorf("expected ErrStructureMismatch, got %v", err)
			}
			var se *StructureError
			if !errors.As(err, &se) {
				t.Fatalf("expected *StructureError, got %T", err)
			}
			if se.Marker != tt.missing {
				t.Errorf("expected missing marker %q, got %q", tt.missing, se.Marker)
			}
			if !strings.Contains(err.Error(), tt.missing) {
				t.Errorf("error message should name the marker, got %q", err.Error())
			}
		})
	}
}

func TestVerify_CustomMarkers(t *testing.T) {
	if err := Verify("<h1>hello</h1>", []string{"hello"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := Verify("<h1>hello</h1>", nil); err != nil {
		t.Errorf("no markers should always verify, got %v", err)
	}
}

func TestExtract_MockPage(t *testing.T) {
	result, err := Extract(context.Background(), strings.NewReader(mockPage()), scrapedAt, DefaultLabels())
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if result.Accepted != 2 || result.Skipped != 0 {
		t.Errorf("expected 2 accepted and 0 skipped blocks, got %d and %d", result.Accepted, result.Skipped)
	}
	if len(result.Records) != 4 {
		t.Fatalf("expected 4 records, got %d", len(result.Records))
	}

	want := map[int]struct {
		rate float64
		date string
	}{
		91:  {27.558, "07/07/2025"},
		182: {27.192, "06/07/2025"},
		273: {26.758, "07/07/2025"},
		364: {25.043, "06/07/2025"},
	}
	prev := 0
	for _, r := range result.Records {
		w, ok := want[r.Tenor]
		if !ok {
			t.Errorf("unexpected tenor %d", r.Tenor)
			continue
		}
		if r.Rate != w.rate {
			t.Errorf("tenor %d: expected yield %v, got %v", r.Tenor, w.rate, r.Rate)
		}
		if r.SessionDate != w.date {
			t.Errorf("tenor %d: expected session date %s, got %s", r.Tenor, w.date, r.SessionDate)
		}
		if !r.ScrapedAt.Equal(scrapedAt) {
			t.Errorf("tenor %d: expected scrape time %v, got %v", r.Tenor, scrapedAt, r.ScrapedAt)
		}
		if r.Tenor <= prev {
			t.Errorf("records should be sorted by tenor, %d after %d", r.Tenor, prev)
		}
		prev = r.Tenor
	}
}

func TestExtract_Fixture(t *testing.T) {
	result, err := Extract(context.Background(), strings.NewReader(loadFixture(t)), scrapedAt, DefaultLabels())
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if result.Accepted != 3 {
		t.Errorf("expected 3 accepted blocks, got %d", result.Accepted)
	}
	if result.Skipped != 1 {
		t.Errorf("expected 1 skipped block, got %d", result.Skipped)
	}
	if len(result.SkipReasons) != 1 || !strings.Contains(result.SkipReasons[0], "block 3") {
		t.Errorf("expected the incomplete third block to be skipped, got %v", result.SkipReasons)
	}

	got := make(map[int]float64)
	dates := make(map[int]string)
	for _, r := range result.Records {
		got[r.Tenor] = r.Rate
		dates[r.Tenor] = r.SessionDate
	}

	expected := map[int]float64{91: 27.558, 182: 27.192, 273: 26.758, 364: 25.043}
	if len(got) != len(expected) {
		t.Errorf("expected %d tenors, got %d: %v", len(expected), len(got), got)
	}
	for tenor, rate := range expected {
		if got[tenor] != rate {
			t.Errorf("tenor %d: expected yield %v, got %v", tenor, rate, got[tenor])
		}
	}

	// the archived 182-day block from 29/06 loses to the newer session
	if dates[182] != "06/07/2025" {
		t.Errorf("expected 182-day session 06/07/2025, got %s", dates[182])
	}
}

func TestExtract_MismatchedBlockSkipped(t *testing.T) {
	markup := page(
		auctionBlock([]string{"91", "182"}, []string{"07/07/2025", "07/07/2025"}, []string{"27.558"}),
		auctionBlock([]string{"364"}, []string{"06/07/2025"}, []string{"25.043"}),
	)

	result, err := Extract(context.Background(), strings.NewReader(markup), scrapedAt, DefaultLabels())
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if result.Accepted != 1 || result.Skipped != 1 {
		t.Errorf("expected 1 accepted and 1 skipped block, got %d and %d", result.Accepted, result.Skipped)
	}
	if len(result.Records) != 1 || result.Records[0].Tenor != 364 {
		t.Errorf("expected only the 364-day record, got %+v", result.Records)
	}
	if !strings.Contains(result.SkipReasons[0], "mismatched counts") {
		t.Errorf("unexpected skip reason: %s", result.SkipReasons[0])
	}
}

func TestExtract_DuplicateTenorKeepsLatestSession(t *testing.T) {
	tests := []struct {
		name     string
		blocks   []string
		wantRate float64
		wantDate string
	}{
		{
			name: "newer block first",
			blocks: []string{
				auctionBlock([]string{"91"}, []string{"07/07/2025"}, []string{"27.558"}),
				auctionBlock([]string{"91"}, []string{"30/06/2025"}, []string{"27.900"}),
			},
			wantRate: 27.558,
			wantDate: "07/07/2025",
		},
		{
			name: "newer block last",
			blocks: []string{
				auctionBlock([]string{"91"}, []string{"30/06/2025"}, []string{"27.900"}),
				auctionBlock([]string{"91"}, []string{"07/07/2025"}, []string{"27.558"}),
			},
			wantRate: 27.558,
			wantDate: "07/07/2025",
		},
		{
			name: "same session keeps first seen",
			blocks: []string{
				auctionBlock([]string{"91"}, []string{"07/07/2025"}, []string{"27.558"}),
				auctionBlock([]string{"91"}, []string{"07/07/2025"}, []string{"27.600"}),
			},
			wantRate: 27.558,
			wantDate: "07/07/2025",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Extract(context.Background(), strings.NewReader(page(tt.blocks...)), scrapedAt, DefaultLabels())
			if err != nil {
				t.Fatalf("Extract failed: %v", err)
			}
			if len(result.Records) != 1 {
				t.Fatalf("expected 1 record, got %d", len(result.Records))
			}
			r := result.Records[0]
			if r.Rate != tt.wantRate || r.SessionDate != tt.wantDate {
				t.Errorf("expected %v on %s, got %v on %s", tt.wantRate, tt.wantDate, r.Rate, r.SessionDate)
			}
		})
	}
}

func TestExtract_NonNumericColumnsDropped(t *testing.T) {
	markup := page(auctionBlock(
		[]string{"182", "الإجمالي", "364"},
		[]string{"06/07/2025", "-", "06/07/2025"},
		[]string{"27.192", "-", "25.043"},
	))

	result, err := Extract(context.Background(), strings.NewReader(markup), scrapedAt, DefaultLabels())
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(result.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(result.Records))
	}
	if result.Records[0].Tenor != 182 || result.Records[0].Rate != 27.192 {
		t.Errorf("unexpected first record: %+v", result.Records[0])
	}
	if result.Records[1].Tenor != 364 || result.Records[1].Rate != 25.043 {
		t.Errorf("unexpected second record: %+v", result.Records[1])
	}
}

func TestExtract_ArabicIndicDigits(t *testing.T) {
	markup := page(auctionBlock([]string{"٩١"}, []string{"٠٧/٠٧/٢٠٢٥"}, []string{"٢٧٫٥٥٨"}))

	result, err := Extract(context.Background(), strings.NewReader(markup), scrapedAt, DefaultLabels())
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(result.Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(result.Records))
	}
	r := result.Records[0]
	if r.Tenor != 91 || r.Rate != 27.558 || r.SessionDate != "07/07/2025" {
		t.Errorf("unexpected record: %+v", r)
	}
}

func TestExtract_MissingAcceptedBidsDoesNotBorrowNextBlock(t *testing.T) {
	orphan := `<h2>النتائج</h2><table><thead><tr><th>البيان</th><th>91</th></tr></thead>` +
		`<tbody><tr><td>تاريخ الجلسة</td><td>08/07/2025</td></tr></tbody></table>`
	markup := page(orphan, auctionBlock([]string{"182"}, []string{"06/07/2025"}, []string{"27.192"}))

	result, err := Extract(context.Background(), strings.NewReader(markup), scrapedAt, DefaultLabels())
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if result.Skipped != 1 || result.Accepted != 1 {
		t.Errorf("expected 1 accepted and 1 skipped block, got %d and %d", result.Accepted, result.Skipped)
	}
	if len(result.Records) != 1 || result.Records[0].Tenor != 182 {
		t.Errorf("expected only the 182-day record, got %+v", result.Records)
	}
}

func TestExtract_NoData(t *testing.T) {
	tests := []struct {
		name       string
		markup     string
		wantResult bool
	}{
		{
			name:   "no results headers",
			markup: "<html><body><h2>أخبار</h2></body></html>",
		},
		{
			name: "every block malformed",
			markup: page(
				auctionBlock([]string{"91", "182"}, []string{"07/07/2025"}, []string{"27.558", "27.192"}),
				auctionBlock([]string{"364"}, []string{"not a date"}, []string{"25.043"}),
			),
			wantResult: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Extract(context.Background(), strings.NewReader(tt.markup), scrapedAt, DefaultLabels())
			if !errors.Is(err, ErrNoData) {
				t.Fatalf("expected ErrNoData, got %v", err)
			}
			if tt.wantResult {
				if result == nil {
					t.Fatal("expected skip counts alongside ErrNoData")
				}
				if result.Skipped != 2 || len(result.Records) != 0 {
					t.Errorf("expected 2 skipped blocks and no records, got %+v", result)
				}
			}
		})
	}
}

func TestLatestSessionDate(t *testing.T) {
	tests := []struct {
		name    string
		markup  string
		want    string
		wantErr bool
	}{
		{
			name:   "mock page",
			markup: mockPage(),
			want:   "07/07/2025",
		},
		{
			name: "ignores yield problems",
			markup: page(
				auctionBlock([]string{"91"}, []string{"09/07/2025"}, nil),
				auctionBlock([]string{"182"}, []string{"06/07/2025"}, []string{"27.192"}),
			),
			want: "09/07/2025",
		},
		{
			name: "compares across years",
			markup: page(
				auctionBlock([]string{"91"}, []string{"31/12/2024"}, []string{"27.1"}),
				auctionBlock([]string{"91"}, []string{"02/01/2025"}, []string{"27.2"}),
			),
			want: "02/01/2025",
		},
		{
			name:    "no dates",
			markup:  "<html><body><h2>النتائج</h2><p>لا توجد بيانات</p></body></html>",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LatestSessionDate(strings.NewReader(tt.markup), DefaultLabels())
			if tt.wantErr {
				if !errors.Is(err, ErrNoData) {
					t.Errorf("expected ErrNoData, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestLatestSessionDate_Fixture(t *testing.T) {
	got, err := LatestSessionDate(strings.NewReader(loadFixture(t)), DefaultLabels())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// the incomplete block still carries the newest date
	if got != "08/07/2025" {
		t.Errorf("expected 08/07/2025, got %s", got)
	}
}

func TestWithLabels_EmptyKeepsDefault(t *testing.T) {
	s := New(WithLabels(Labels{YieldAnchor: "العائد المرجح"}))

	want := DefaultLabels()
	want.YieldAnchor = "العائد المرجح"
	if s.labels != want {
		t.Errorf("labels = %+v, want %+v", s.labels, want)
	}

	s = New(WithLabels(Labels{}))
	if s.labels != DefaultLabels() {
		t.Errorf("empty labels = %+v, want defaults", s.labels)
	}
}

func TestScraperParse(t *testing.T) {
	s := New(WithClock(func() time.Time { return scrapedAt }))

	result, err := s.Parse(context.Background(), mockPage())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(result.Records) != 4 {
		t.Errorf("expected 4 records, got %d", len(result.Records))
	}

	_, err = s.Parse(context.Background(), strings.ReplaceAll(mockPage(), AcceptedBidsKeyword, "العروض"))
	if !errors.Is(err, ErrStructureMismatch) {
		t.Errorf("expected structure mismatch, got %v", err)
	}
}

func TestPrecheck(t *testing.T) {
	const ua = "tbill-yields-test/1.0"

	tests := []struct {
		name      string
		status    int
		body      string
		want      string
		wantErr   bool
		structure bool
	}{
		{
			name:   "returns newest session date",
			status: http.StatusOK,
			body:   mockPage(),
			want:   "07/07/2025",
		},
		{
			name:    "server error",
			status:  http.StatusServiceUnavailable,
			body:    "maintenance",
			wantErr: true,
		},
		{
			name:      "layout changed",
			status:    http.StatusOK,
			body:      "<html><body><h2>Results</h2></body></html>",
			wantErr:   true,
			structure: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if got := r.Header.Get("User-Agent"); got != ua {
					t.Errorf("expected User-Agent %q, got %q", ua, got)
				}
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			s := New(WithURL(server.URL), WithUserAgent(ua), WithTimeout(2*time.Second))
			got, err := s.Precheck(context.Background())
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if tt.structure && !errors.Is(err, ErrStructureMismatch) {
					t.Errorf("expected structure mismatch, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Precheck failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestPrecheck_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(mockPage()))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := New(WithURL(server.URL)).Precheck(ctx); err == nil {
		t.Error("expected error for canceled context")
	}
}

func TestTableLookup(t *testing.T) {
	markup := `<table>
		<tr><th>البيان</th><th>91</th><th>182</th></tr>
		<tr><td>متوسط العائد المرجح</td><td>27.5</td><td>27.1</td></tr>
		<tr><td>متوسط العائد المرجح (معدل)</td><td>28.0</td><td>28.1</td></tr>
		<tr><td>أقل عائد</td><td>26.9</td><td></td></tr>
		<tr><td>جدول فرعي<table><tr><td>متوسط العائد المرجح</td><td>1</td></tr></table></td><td>x</td></tr>
	</table>`

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		t.Fatalf("parsing markup: %v", err)
	}
	table := parseTable(doc.Find("table").First())

	if len(table.Header) != 3 {
		t.Fatalf("expected 3 header cells, got %v", table.Header)
	}
	if len(table.Rows) != 4 {
		t.Errorf("expected nested table rows to be ignored, got %d rows", len(table.Rows))
	}

	row, ok := table.Lookup(YieldAnchor)
	if !ok {
		t.Fatal("expected yield row")
	}
	if v, _ := row.Value(0); v != "27.5" {
		t.Errorf("expected first matching row, got value %q", v)
	}

	low, ok := table.Lookup("أقل عائد")
	if !ok {
		t.Fatal("expected lowest yield row")
	}
	if _, ok := low.Value(1); ok {
		t.Error("empty cell should not yield a value")
	}
	if _, ok := low.Value(5); ok {
		t.Error("out of range column should not yield a value")
	}

	if _, ok := table.Lookup("غير موجود"); ok {
		t.Error("expected no row for unknown label")
	}

	columns := table.TenorColumns()
	if len(columns) != 2 || columns[0].Tenor != 91 || columns[1].Index != 1 {
		t.Errorf("unexpected tenor columns: %+v", columns)
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"27.558", 27.558, true},
		{" 25.043 % ", 25.043, true},
		{"31,204.5", 31204.5, true},
		{"٢٧٫٥٥٨", 27.558, true},
		{"-", 0, false},
		{"", 0, false},
		{"n/a", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := parseNumber(tt.in)
			if ok != tt.ok {
				t.Fatalf("parseNumber(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("parseNumber(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseTenor(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"91", 91, true},
		{" 364 ", 364, true},
		{"٢٧٣", 273, true},
		{"182 يوم", 0, false},
		{"الإجمالي", 0, false},
		{"0", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := parseTenor(tt.in)
			if ok != tt.ok || got != tt.want {
				t.Errorf("parseTenor(%q) = %d, %v, want %d, %v", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}
