package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"
)

// ExchangeRatesAPIName is the registry name of ExchangeRatesAPI.
const ExchangeRatesAPIName = "ExchangeRatesApi"

// DefaultExchangeRatesAPIEndpoint is the latest-rates endpoint of
// exchangeratesapi.io.
const DefaultExchangeRatesAPIEndpoint = "https://api.exchangeratesapi.io/latest"

// ExchangeRatesAPI is a client for exchangeratesapi.io. The rate table is
// used exactly as returned.
type ExchangeRatesAPI struct {
	opts     Options
	endpoint string
	table    rateTable
}

type exchangeRatesAPIResponse struct {
	Rates map[string]json.Number `json:"rates"`
}

// NewExchangeRatesAPI creates an exchangeratesapi.io client.
func NewExchangeRatesAPI(opts Options) *ExchangeRatesAPI {
	opts = opts.withDefaults()
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = DefaultExchangeRatesAPIEndpoint
	}
	return &ExchangeRatesAPI{opts: opts, endpoint: endpoint}
}

// Name returns the registry name.
func (c *ExchangeRatesAPI) Name() string { return ExchangeRatesAPIName }

// Base returns the configured base currency.
func (c *ExchangeRatesAPI) Base() string { return c.opts.Base }

// CacheAge returns the minimum interval between fetches.
func (c *ExchangeRatesAPI) CacheAge() time.Duration { return c.opts.CacheAge }

func (c *ExchangeRatesAPI) String() string {
	return fmt.Sprintf("%s(cache_age=%s, base=%s)", ExchangeRatesAPIName, c.opts.CacheAge, c.opts.Base)
}

// Get returns the cross rate of from against to.
func (c *ExchangeRatesAPI) Get(ctx context.Context, from, to string) (float64, error) {
	if to == "" {
		to = c.opts.Base
	}
	if c.table.stale(c.opts.Now(), c.opts.CacheAge) {
		if err := instrumentFetch(ctx, ExchangeRatesAPIName, c.refresh); err != nil {
			return 0, fmt.Errorf("%w: %s: %w", ErrFetch, ExchangeRatesAPIName, err)
		}
	}
	return c.table.cross(from, to)
}

func (c *ExchangeRatesAPI) refresh(ctx context.Context) error {
	params := url.Values{"base": {c.opts.Base}}
	if c.opts.AccessKey != "" {
		params.Set("access_key", c.opts.AccessKey)
	}

	var payload exchangeRatesAPIResponse
	if err := getJSON(ctx, c.opts.HTTPClient, c.endpoint, params, &payload); err != nil {
		return err
	}
	if payload.Rates == nil {
		return errors.New("response is missing rates")
	}

	rates, err := decodeRates(payload.Rates)
	if err != nil {
		return err
	}

	c.table.store(rates, c.opts.Now())
	return nil
}
