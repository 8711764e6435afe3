// Package exchange fetches exchange rates from remote providers and
// converts prices by trying the configured providers in order.
package exchange

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"gitlab.com/yelinaung/priceconverter/internal/models"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const defaultTimeout = 10 * time.Second

var (
	// ErrUnsupportedCurrency matches UnsupportedCurrencyError.
	ErrUnsupportedCurrency = errors.New("unsupported currency")
	// ErrNoProvider matches NoProviderError.
	ErrNoProvider = errors.New("no rates source supports currency pair")
	// ErrFetch wraps transport and response format failures.
	ErrFetch = errors.New("failed to fetch exchange rates")

	errNonPositiveRate = errors.New("exchange rate must be positive")
)

// UnsupportedCurrencyError reports a currency missing from a provider's
// rate table.
type UnsupportedCurrencyError struct {
	Code string
}

func (e *UnsupportedCurrencyError) Error() string {
	return "unsupported currency: " + e.Code
}

// Is reports whether target is ErrUnsupportedCurrency.
func (e *UnsupportedCurrencyError) Is(target error) bool {
	return target == ErrUnsupportedCurrency
}

// NoProviderError is returned once every configured provider has been
// tried without one supporting the pair.
type NoProviderError struct {
	From string
	To   string
}

func (e *NoProviderError) Error() string {
	return fmt.Sprintf("no rates source supports %s to %s", e.From, e.To)
}

// Is reports whether target is ErrNoProvider.
func (e *NoProviderError) Is(target error) bool {
	return target == ErrNoProvider
}

// Provider returns exchange rates from a single remote source.
type Provider interface {
	// Name is the registry name of the provider.
	Name() string
	// Base is the currency the rate table is expressed in.
	Base() string
	// CacheAge is the minimum interval between two fetches.
	CacheAge() time.Duration
	// Get returns rate[from] / rate[to]. An empty to means the base.
	Get(ctx context.Context, from, to string) (float64, error)
}

// Options configures a provider. Unset fields other than CacheAge are
// replaced by defaults.
type Options struct {
	Base string
	// CacheAge is used as given; zero refetches on every call.
	CacheAge      time.Duration
	CacheLocation string
	// Endpoint overrides the provider's default URL.
	Endpoint string
	// AccessKey is sent to providers that require one.
	AccessKey  string
	HTTPClient *http.Client
	Now        func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Base == "" {
		o.Base = models.DefaultBase
	}
	if o.HTTPClient == nil {
		o.HTTPClient = NewHTTPClient(defaultTimeout)
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// NewHTTPClient returns an instrumented HTTP client with the given timeout.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

// ConversionResult contains converted amount details.
type ConversionResult struct {
	Amount   float64
	Rate     float64
	Provider string
}
