package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/egtbills/tbill-yields/internal/fetch"
	"github.com/egtbills/tbill-yields/internal/filter"
	"github.com/egtbills/tbill-yields/internal/yield"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    OutputFormat
		wantErr bool
	}{
		{"text", FormatText, false},
		{"JSON", FormatJSON, false},
		{"xml", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestWriteFetch(t *testing.T) {
	checkedAt := time.Date(2025, 7, 7, 12, 0, 0, 0, time.UTC)
	saved := []yield.Record{
		{Tenor: 91, Rate: 27.558, SessionDate: "07/07/2025", ScrapedAt: checkedAt},
		{Tenor: 273, Rate: 26.758, SessionDate: "07/07/2025", ScrapedAt: checkedAt},
	}

	tests := []struct {
		name    string
		outcome *fetch.Outcome
		want    []string
	}{
		{
			name:    "up to date",
			outcome: &fetch.Outcome{UpToDate: true, Precheck: true, SessionDate: "07/07/2025"},
			want:    []string{"already up to date (latest session 07/07/2025)"},
		},
		{
			name:    "saved",
			outcome: &fetch.Outcome{Saved: saved, SessionDate: "07/07/2025", Attempts: 1, Accepted: 2, Skipped: 1},
			want:    []string{"Saved 2 new records from session 07/07/2025", "Skipped 1 incomplete", "273 days", "26.758%"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := WriteFetch(&buf, newFetchResult(tt.outcome, checkedAt), FormatText); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("output missing %q:\n%s", want, buf.String())
				}
			}
		})
	}
}

func TestWriteFetch_JSON(t *testing.T) {
	var buf bytes.Buffer
	result := newFetchResult(&fetch.Outcome{UpToDate: true}, time.Now().UTC())
	result.Metrics = map[string]interface{}{"counters": map[string]int64{"fetch.attempts": 1}}

	if err := WriteFetch(&buf, result, FormatJSON); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if saved, ok := decoded["saved"].([]interface{}); !ok || len(saved) != 0 {
		t.Errorf("expected an empty saved list, got %v", decoded["saved"])
	}
	if _, ok := decoded["metrics"]; !ok {
		t.Error("expected metrics in output")
	}
}

func TestWriteHistory(t *testing.T) {
	records := []yield.Record{
		{Tenor: 91, Rate: 27.558, SessionDate: "07/07/2025", ScrapedAt: time.Date(2025, 7, 7, 9, 30, 0, 0, time.UTC)},
	}
	f := filter.NewFilter()
	f.Tenors = []int{91}

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		if err := WriteHistory(&buf, records, f, FormatText); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out := buf.String()
		for _, want := range []string{"Filter: Tenors: 91", "91 days", "27.558%", "07/07/2025", "2025-07-07 12:30"} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("empty", func(t *testing.T) {
		var buf bytes.Buffer
		if err := WriteHistory(&buf, nil, filter.NewFilter(), FormatText); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.TrimSpace(buf.String()) != "No records found." {
			t.Errorf("unexpected output: %q", buf.String())
		}
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		if err := WriteHistory(&buf, nil, filter.NewFilter(), FormatJSON); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var decoded map[string]interface{}
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if _, ok := decoded["filter"]; ok {
			t.Error("empty filter should be omitted")
		}
		if recs, ok := decoded["records"].([]interface{}); !ok || len(recs) != 0 {
			t.Errorf("expected an empty records list, got %v", decoded["records"])
		}
	})
}
