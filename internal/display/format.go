// Package display formats values for the client and computes the derived
// metrics shown next to fetched records. Nothing here is sent back to a
// backend.
package display

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const (
	currencySymbol = "¥"
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04"
)

var (
	printer     = message.NewPrinter(language.SimplifiedChinese)
	tenThousand = decimal.NewFromInt(10_000)
	hundredMil  = decimal.NewFromInt(100_000_000)
)

// FormatCurrency renders amount as ¥1,234,567.89, rounding half away from
// zero to two decimals.
func FormatCurrency(amount decimal.Decimal) string {
	rounded := amount.Round(2)
	sign := ""
	if rounded.IsNegative() {
		sign = "-"
		rounded = rounded.Neg()
	}
	return sign + currencySymbol + printer.Sprint(number.Decimal(rounded.InexactFloat64(),
		number.MinFractionDigits(2), number.MaxFractionDigits(2)))
}

// FormatCurrencyCompact renders large amounts in 万 or 亿 with one decimal,
// and smaller ones like FormatCurrency.
func FormatCurrencyCompact(amount decimal.Decimal) string {
	abs := amount.Abs()
	sign := ""
	if amount.IsNegative() {
		sign = "-"
	}
	switch {
	case abs.GreaterThanOrEqual(hundredMil):
		return sign + currencySymbol + abs.Div(hundredMil).StringFixed(1) + "亿"
	case abs.GreaterThanOrEqual(tenThousand):
		return sign + currencySymbol + abs.Div(tenThousand).StringFixed(1) + "万"
	}
	return FormatCurrency(amount)
}

// FormatFloatCurrency is FormatCurrency for float inputs.
func FormatFloatCurrency(amount float64) string {
	return FormatCurrency(decimal.NewFromFloat(amount))
}

// FormatPercent renders v with the given number of decimals and a % sign.
func FormatPercent(v float64, digits int) string {
	if digits < 0 {
		digits = 0
	}
	return decimal.NewFromFloat(v).StringFixed(int32(digits)) + "%"
}

// FormatDate renders t as 2006-01-02, or "" for the zero time.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

// FormatDateTime renders t as 2006-01-02 15:04, or "" for the zero time.
func FormatDateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateTimeLayout)
}

var parseLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	dateLayout,
}

// ParseTime accepts the timestamp layouts the backends emit. It returns the
// zero time for empty or unparseable input.
func ParseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Date reformats a backend timestamp string as a date.
func Date(s string) string {
	return FormatDate(ParseTime(s))
}

// DateTime reformats a backend timestamp string as a date and time.
func DateTime(s string) string {
	return FormatDateTime(ParseTime(s))
}
