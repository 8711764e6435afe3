package exchange

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// rateTable holds the last fetched rates of one provider, relative to its
// base. The zero value is stale so the first lookup always fetches.
type rateTable struct {
	rates     map[string]float64
	fetchedAt time.Time
}

func (t *rateTable) stale(now time.Time, cacheAge time.Duration) bool {
	return t.fetchedAt.Add(cacheAge).Before(now)
}

func (t *rateTable) store(rates map[string]float64, fetchedAt time.Time) {
	t.rates = rates
	t.fetchedAt = fetchedAt
}

// cross reports from before to when both are missing.
func (t *rateTable) cross(from, to string) (float64, error) {
	fromRate, ok := t.rates[from]
	if !ok {
		return 0, &UnsupportedCurrencyError{Code: from}
	}
	toRate, ok := t.rates[to]
	if !ok {
		return 0, &UnsupportedCurrencyError{Code: to}
	}
	return fromRate / toRate, nil
}

func decodeRates(raw map[string]json.Number) (map[string]float64, error) {
	rates := make(map[string]float64, len(raw))
	for code, number := range raw {
		rate, err := decimal.NewFromString(number.String())
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s rate: %w", code, err)
		}
		if !rate.IsPositive() {
			return nil, fmt.Errorf("%s: %w", code, errNonPositiveRate)
		}
		rates[code] = rate.InexactFloat64()
	}
	return rates, nil
}
