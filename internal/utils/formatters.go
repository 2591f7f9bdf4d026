// internal/utils/formatters.go

package utils

import (
	"strconv"
	"strings"

	"quickearn/internal/constants"
)

// FormatAmount renders an amount without trailing zeros: 150, 99.5.
func FormatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', -1, 64)
}

// FormatRupees prefixes the currency symbol: ₹150.
func FormatRupees(amount float64) string {
	return constants.CURRENCY_SYMBOL + FormatAmount(amount)
}

var markdownReplacer = strings.NewReplacer(
	"_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[",
)

// EscapeTelegramMarkdown escapes the special characters of Telegram's legacy Markdown.
func EscapeTelegramMarkdown(text string) string {
	return markdownReplacer.Replace(text)
}
