package biz

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// FormatAmount renders v with en-US digit grouping and at most three fraction digits.
func FormatAmount(v float64) string {
	p := message.NewPrinter(language.AmericanEnglish)
	return p.Sprintf("%v", number.Decimal(v, number.MaxFractionDigits(3)))
}

// FormatUSD is FormatAmount with a leading dollar sign.
func FormatUSD(v float64) string {
	return "$" + FormatAmount(v)
}

// ParseAmount parses user supplied money such as "100000", "$250,000.50" or "1e6".
func ParseAmount(s string) (float64, error) {
	clean := strings.NewReplacer("$", "", ",", "", " ", "", "_", "").Replace(strings.TrimSpace(s))
	v, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("parse amount %q: not a finite number", s)
	}
	return v, nil
}

// formatPlain renders a float the way a JSON number prints, e.g. 15 or 15.5.
func formatPlain(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func isoTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

func processingTime(ms float64) string {
	return fmt.Sprintf("%.0fms", ms)
}
