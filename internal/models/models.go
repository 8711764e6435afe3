// Package models defines the value types shared by the price converter.
package models

import "strconv"

// DefaultBase is the base currency used when nothing else is configured.
const DefaultBase = "USD"

// CurrencyCodeLength is the length of an ISO 4217 currency code.
const CurrencyCodeLength = 3

// CurrencySymbols maps the recognised currency symbols to their codes.
var CurrencySymbols = map[string]string{
	"$": "USD",
	"£": "GBP",
	"€": "EUR",
}

// Price is an amount expressed in a currency.
type Price struct {
	Currency string
	Amount   float64
}

// String renders the price as "<amount> <currency>".
func (p Price) String() string {
	return strconv.FormatFloat(p.Amount, 'f', -1, 64) + " " + p.Currency
}
