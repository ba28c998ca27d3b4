package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// CurrencySuffix is appended to every formatted amount
const CurrencySuffix = "lei"

var (
	amountPrinter = message.NewPrinter(language.Romanian)

	shortMonths = [...]string{"ian.", "feb.", "mar.", "apr.", "mai", "iun.", "iul.", "aug.", "sept.", "oct.", "nov.", "dec."}

	dateLayouts = []string{
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02",
	}
)

// FormatCurrency renders an amount with Romanian separators, e.g. "1.234,56 lei"
func FormatCurrency(amount decimal.Decimal) string {
	sign := ""
	if amount.Round(2).IsNegative() {
		sign = "-"
		amount = amount.Abs()
	}
	whole, fraction, _ := strings.Cut(amount.StringFixed(2), ".")
	return sign + groupDigits(whole) + "," + fraction + " " + CurrencySuffix
}

// groupDigits inserts thousands separators into a string of decimal digits
func groupDigits(digits string) string {
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return digits
	}
	return amountPrinter.Sprintf("%d", n)
}

// FormatDiscount renders a discount as a negative amount, e.g. "-20,00 lei"
func FormatDiscount(amount decimal.Decimal) string {
	return "-" + FormatCurrency(amount.Abs())
}

// FormatDate renders an event date as "15 mar. 2025". Unparseable input is returned as-is.
func FormatDate(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return fmt.Sprintf("%d %s %d", t.Day(), shortMonths[t.Month()-1], t.Year())
		}
	}
	return value
}

// FormatCountdown renders a remaining duration as MM:SS, clamped at zero
func FormatCountdown(remaining time.Duration) string {
	if remaining < 0 {
		remaining = 0
	}
	minutes := int(remaining / time.Minute)
	seconds := int((remaining % time.Minute) / time.Second)
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
