package filter

import (
	"testing"
	"time"
)

// formatDate renders an open end as ""
func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("02/01/2006")
}

func TestParseDateRange(t *testing.T) {
	tests := []struct {
		input    string
		wantFrom string
		wantTo   string
		wantErr  bool
	}{
		{input: "01/01/2025..31/03/2025", wantFrom: "01/01/2025", wantTo: "31/03/2025"},
		{input: "1/1/2025 .. 31/3/2025", wantFrom: "01/01/2025", wantTo: "31/03/2025"},
		{input: "01/06/2025..", wantFrom: "01/06/2025"},
		{input: "..30/06/2025", wantTo: "30/06/2025"},
		{input: "02/2024", wantFrom: "01/02/2024", wantTo: "29/02/2024"},
		{input: "12-2025", wantFrom: "01/12/2025", wantTo: "31/12/2025"},
		{input: "2025", wantFrom: "01/01/2025", wantTo: "31/12/2025"},
		{input: "07/07/2025", wantFrom: "07/07/2025", wantTo: "07/07/2025"},
		{input: "٢٠٢٥", wantFrom: "01/01/2025", wantTo: "31/12/2025"},
		{input: "", wantErr: true},
		{input: "..", wantErr: true},
		{input: "31/03/2025..01/01/2025", wantErr: true},
		{input: "13/2025", wantErr: true},
		{input: "last week", wantErr: true},
		{input: "01/01/2025..someday", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			from, to, err := ParseDateRange(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseDateRange(%q) expected error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDateRange(%q) unexpected error: %v", tt.input, err)
			}

			if got := formatDate(from); got != tt.wantFrom {
				t.Errorf("from = %q, want %q", got, tt.wantFrom)
			}
			if got := formatDate(to); got != tt.wantTo {
				t.Errorf("to = %q, want %q", got, tt.wantTo)
			}
		})
	}
}

func TestParseTenors(t *testing.T) {
	tests := []struct {
		input   string
		want    []int
		wantErr bool
	}{
		{input: "91", want: []int{91}},
		{input: "364, 91,182", want: []int{91, 182, 364}},
		{input: "91,91,", want: []int{91}},
		{input: "٩١,١٨٢", want: []int{91, 182}},
		{input: "", wantErr: true},
		{input: ",", wantErr: true},
		{input: "91,abc", wantErr: true},
		{input: "-91", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseTenors(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseTenors(%q) expected error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTenors(%q) unexpected error: %v", tt.input, err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ParseTenors(%q) = %v, want %v", tt.input, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("ParseTenors(%q) = %v, want %v", tt.input, got, tt.want)
				}
			}
		})
	}
}
