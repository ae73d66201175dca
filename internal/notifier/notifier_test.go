package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/egtbills/tbill-yields/internal/telegram"
	"github.com/egtbills/tbill-yields/internal/yield"
)

func sampleRecords() []yield.Record {
	return []yield.Record{
		{Tenor: 364, Rate: 25.043, SessionDate: "06/07/2025"},
		{Tenor: 91, Rate: 27.558, SessionDate: "07/07/2025"},
		{Tenor: 182, Rate: 27.192, SessionDate: "06/07/2025"},
		{Tenor: 273, Rate: 26.758, SessionDate: "07/07/2025"},
	}
}

func TestFormatAnnouncement(t *testing.T) {
	tests := []struct {
		name     string
		records  []yield.Record
		contains []string
	}{
		{
			name:    "full results",
			records: sampleRecords(),
			contains: []string{
				"(07/07/2025)",
				"91 days: 27.558%",
				"364 days: 25.043%",
				"#TBills",
			},
		},
		{
			name:     "single tenor",
			records:  []yield.Record{{Tenor: 91, Rate: 27.5, SessionDate: "07/07/2025"}},
			contains: []string{"91 days: 27.500%"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatAnnouncement(tt.records)
			if n := utf8.RuneCountInString(got); n > maxTweetLength {
				t.Errorf("formatAnnouncement() length = %d, want <= %d", n, maxTweetLength)
			}
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("formatAnnouncement() missing %q in:\n%s", want, got)
				}
			}
		})
	}
}

func TestFormatAnnouncement_Truncates(t *testing.T) {
	var records []yield.Record
	for tenor := 1; tenor <= 40; tenor++ {
		records = append(records, yield.Record{Tenor: tenor * 7, Rate: 20 + float64(tenor)/10, SessionDate: "07/07/2025"})
	}

	got := formatAnnouncement(records)
	if n := utf8.RuneCountInString(got); n != maxTweetLength {
		t.Errorf("expected truncation to %d characters, got %d", maxTweetLength, n)
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("truncated announcement should end with an ellipsis:\n%s", got)
	}
}

func TestDryRunNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewDryRunNotifier(&buf)

	if err := n.Notify(context.Background(), sampleRecords()); err != nil {
		t.Fatalf("DryRunNotifier.Notify() error = %v, want nil", err)
	}
	out := buf.String()
	if !strings.Contains(out, "--- Announcement ---") || !strings.Contains(out, "273 days: 26.758%") {
		t.Errorf("unexpected dry-run output:\n%s", out)
	}

	buf.Reset()
	if err := n.Notify(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("nothing should be printed without records, got %q", buf.String())
	}
}

func TestTelegramNotifier(t *testing.T) {
	var text string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Text string `json:"text"`
		}
		json.NewDecoder(r.Body).Decode(&payload)
		text = payload.Text
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client, err := telegram.NewClient("token", "chat", telegram.WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}

	n := NewTelegramNotifier(client, "https://example.test/auctions")
	if err := n.Notify(context.Background(), sampleRecords()); err != nil {
		t.Fatalf("Notify() error: %v", err)
	}
	if !strings.Contains(text, "<b>91 days</b>") || !strings.Contains(text, "https://example.test/auctions") {
		t.Errorf("unexpected message:\n%s", text)
	}
}

func TestNotifiersImplementInterface(t *testing.T) {
	var _ Notifier = (*TwitterNotifier)(nil)
	var _ Notifier = (*TelegramNotifier)(nil)
	var _ Notifier = (*DryRunNotifier)(nil)
}
