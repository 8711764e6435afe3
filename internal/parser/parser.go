// Package parser turns raw command line and configuration strings into
// typed values: currency codes, prices and durations.
package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"gitlab.com/yelinaung/priceconverter/internal/models"
)

// ErrInvalidFormat is returned for any string that does not match the
// expected grammar.
var ErrInvalidFormat = errors.New("invalid format")

func invalid(s string) error {
	return fmt.Errorf("%w: %q", ErrInvalidFormat, s)
}

// ParseCurrency normalises a currency symbol or validates a currency code.
// Codes are returned unchanged; only their length is checked.
func ParseCurrency(s string) (string, error) {
	if code, ok := models.CurrencySymbols[s]; ok {
		return code, nil
	}
	if utf8.RuneCountInString(s) != models.CurrencyCodeLength {
		return "", invalid(s)
	}
	return s, nil
}

func isAmountRune(r rune) bool {
	return unicode.IsDigit(r) || r == '.' || r == ',' || r == ' '
}

// ParsePrice parses strings like "$1000", "1000 USD", ".5€" or "GBP".
// The amount and the currency may come in either order but must not be
// interleaved. A bare currency means one unit of it.
func ParsePrice(s string) (models.Price, error) {
	if s == "" {
		return models.Price{}, invalid(s)
	}

	first, _ := utf8.DecodeRuneInString(s)
	amountFirst := isAmountRune(first)

	var amount, currency strings.Builder
	for _, r := range s {
		if isAmountRune(r) {
			if amountFirst && currency.Len() > 0 {
				return models.Price{}, invalid(s)
			}
			amount.WriteRune(r)
			continue
		}
		if !amountFirst && amount.Len() > 0 {
			return models.Price{}, invalid(s)
		}
		currency.WriteRune(r)
	}

	code, err := ParseCurrency(currency.String())
	if err != nil {
		return models.Price{}, fmt.Errorf("price %q: %w", s, err)
	}

	value := 1.0
	if amount.Len() > 0 {
		value, err = parseAmount(amount.String())
		if err != nil {
			return models.Price{}, fmt.Errorf("price %q: %w", s, err)
		}
	}

	return models.Price{Currency: code, Amount: value}, nil
}

// parseAmount treats commas as thousands separators.
func parseAmount(s string) (float64, error) {
	cleaned := strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if cleaned == "" {
		return 0, invalid(s)
	}
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, invalid(s)
	}
	return value, nil
}

// SplitList splits a comma separated list and trims every element.
// Empty elements are kept so callers can reject them.
func SplitList(s string) []string {
	parts := strings.Split(s, ",")
	for i, part := range parts {
		parts[i] = strings.TrimSpace(part)
	}
	return parts
}
