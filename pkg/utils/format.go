// Package utils provides shared utility functions.
package utils

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// RoundPrice rounds a price to the instrument's decimal digits.
func RoundPrice(price float64, digits int32) decimal.Decimal {
	return decimal.NewFromFloat(price).Round(digits)
}

// FormatPrice formats a price with exactly digits decimals.
func FormatPrice(price float64, digits int32) string {
	return decimal.NewFromFloat(price).StringFixed(digits)
}

// FormatR formats a result in risk units with sign, e.g. "+1.80R".
func FormatR(r float64) string {
	sign := ""
	if r > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.2fR", sign, r)
}

// FormatPercent formats a fraction as a percentage, e.g. 0.625 as "62.50%".
func FormatPercent(fraction float64) string {
	return fmt.Sprintf("%.2f%%", fraction*100)
}

// FormatHold formats a holding period compactly, e.g. "3m", "1h05m".
func FormatHold(d time.Duration) string {
	d = d.Round(time.Minute)
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
}
