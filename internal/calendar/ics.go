// Package calendar generates iCalendar maturity reminders for T-bill purchases.
package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/egtbills/tbill-yields/internal/calc"
	"github.com/egtbills/tbill-yields/internal/yield"
)

// Purchase is a bill bought at a primary auction
type Purchase struct {
	SessionDate string // DD/MM/YYYY
	Tenor       int
	FaceValue   decimal.Decimal
	YieldRate   decimal.Decimal
}

// MaturityDate is the session date plus the tenor in days
func (p Purchase) MaturityDate() (time.Time, error) {
	session, err := yield.ParseSessionDate(p.SessionDate)
	if err != nil {
		return time.Time{}, err
	}
	if p.Tenor <= 0 {
		return time.Time{}, fmt.Errorf("invalid tenor %d", p.Tenor)
	}
	return session.AddDate(0, 0, p.Tenor), nil
}

// GenerateICS generates an all-day maturity event with a reminder the day before.
// now stamps the entry.
func GenerateICS(p Purchase, now time.Time) (string, error) {
	maturity, err := p.MaturityDate()
	if err != nil {
		return "", fmt.Errorf("computing maturity date: %w", err)
	}

	var ics strings.Builder

	ics.WriteString("BEGIN:VCALENDAR\r\n")
	ics.WriteString("VERSION:2.0\r\n")
	ics.WriteString("PRODID:-//tbill-yields//tbill-yields//EN\r\n")
	ics.WriteString("CALSCALE:GREGORIAN\r\n")
	ics.WriteString("METHOD:PUBLISH\r\n")
	ics.WriteString("BEGIN:VEVENT\r\n")

	fmt.Fprintf(&ics, "UID:tbill-%d-%s@tbill-yields\r\n", p.Tenor, formatICSDate(maturity))
	fmt.Fprintf(&ics, "DTSTAMP:%s\r\n", formatICSTime(now))

	fmt.Fprintf(&ics, "DTSTART;VALUE=DATE:%s\r\n", formatICSDate(maturity))
	fmt.Fprintf(&ics, "DTEND;VALUE=DATE:%s\r\n", formatICSDate(maturity.AddDate(0, 0, 1)))

	summary := fmt.Sprintf("T-bill maturity: %d days", p.Tenor)
	if p.FaceValue.IsPositive() {
		summary = fmt.Sprintf("%s, %s", summary, calc.FormatCurrency(p.FaceValue))
	}
	fmt.Fprintf(&ics, "SUMMARY:%s\r\n", escapeICS(summary))
	fmt.Fprintf(&ics, "DESCRIPTION:%s\r\n", escapeICS(description(p)))

	ics.WriteString("STATUS:CONFIRMED\r\n")
	ics.WriteString("SEQUENCE:0\r\n")
	ics.WriteString("TRANSP:TRANSPARENT\r\n")

	ics.WriteString("BEGIN:VALARM\r\n")
	ics.WriteString("ACTION:DISPLAY\r\n")
	ics.WriteString("TRIGGER:-P1D\r\n")
	fmt.Fprintf(&ics, "DESCRIPTION:%s\r\n", escapeICS(summary))
	ics.WriteString("END:VALARM\r\n")

	ics.WriteString("END:VEVENT\r\n")
	ics.WriteString("END:VCALENDAR\r\n")

	return ics.String(), nil
}

func description(p Purchase) string {
	lines := []string{fmt.Sprintf("Auction session: %s", p.SessionDate)}
	if p.YieldRate.IsPositive() {
		lines = append(lines, fmt.Sprintf("Yield: %s", calc.FormatPercent(p.YieldRate)))
	}
	if p.FaceValue.IsPositive() {
		lines = append(lines, fmt.Sprintf("Face value paid at maturity: %s", calc.FormatCurrency(p.FaceValue)))
		if p.YieldRate.IsPositive() {
			price := calc.Price(p.FaceValue, p.YieldRate, p.Tenor)
			lines = append(lines, fmt.Sprintf("Purchase price: %s", calc.FormatCurrency(price)))
		}
	}
	return strings.Join(lines, "\n")
}

// formatICSTime formats a time.Time as an iCalendar datetime string
func formatICSTime(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

func formatICSDate(t time.Time) string {
	return t.Format("20060102")
}

// escapeICS escapes special characters for iCalendar format
func escapeICS(s string) string {
	// Replace special characters according to RFC 5545
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}
