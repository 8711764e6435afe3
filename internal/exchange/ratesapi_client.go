package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"
)

// RatesAPIName is the registry name of RatesAPI.
const RatesAPIName = "RatesApi"

// DefaultRatesAPIEndpoint is the latest-rates endpoint of ratesapi.io.
const DefaultRatesAPIEndpoint = "https://api.ratesapi.io/api/latest"

// RatesAPI is a client for ratesapi.io. Its responses name the base
// currency separately from the rates, so the base is added to the table
// with rate 1.
type RatesAPI struct {
	opts     Options
	endpoint string
	table    rateTable
}

type ratesAPIResponse struct {
	Base  string                 `json:"base"`
	Rates map[string]json.Number `json:"rates"`
}

// NewRatesAPI creates a ratesapi.io client.
func NewRatesAPI(opts Options) *RatesAPI {
	opts = opts.withDefaults()
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = DefaultRatesAPIEndpoint
	}
	return &RatesAPI{opts: opts, endpoint: endpoint}
}

// Name returns the registry name.
func (c *RatesAPI) Name() string { return RatesAPIName }

// Base returns the configured base currency.
func (c *RatesAPI) Base() string { return c.opts.Base }

// CacheAge returns the minimum interval between fetches.
func (c *RatesAPI) CacheAge() time.Duration { return c.opts.CacheAge }

func (c *RatesAPI) String() string {
	return fmt.Sprintf("%s(cache_age=%s, base=%s)", RatesAPIName, c.opts.CacheAge, c.opts.Base)
}

// Get returns the cross rate of from against to, refreshing the rate
// table first when it is older than the cache age.
func (c *RatesAPI) Get(ctx context.Context, from, to string) (float64, error) {
	if to == "" {
		to = c.opts.Base
	}
	if c.table.stale(c.opts.Now(), c.opts.CacheAge) {
		if err := instrumentFetch(ctx, RatesAPIName, c.refresh); err != nil {
			return 0, fmt.Errorf("%w: %s: %w", ErrFetch, RatesAPIName, err)
		}
	}
	return c.table.cross(from, to)
}

func (c *RatesAPI) refresh(ctx context.Context) error {
	var payload ratesAPIResponse
	params := url.Values{"base": {c.opts.Base}}
	if err := getJSON(ctx, c.opts.HTTPClient, c.endpoint, params, &payload); err != nil {
		return err
	}
	if payload.Base == "" {
		return errors.New("response is missing base")
	}
	if payload.Rates == nil {
		return errors.New("response is missing rates")
	}

	rates, err := decodeRates(payload.Rates)
	if err != nil {
		return err
	}
	rates[payload.Base] = 1.0

	c.table.store(rates, c.opts.Now())
	return nil
}
