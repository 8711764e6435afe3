package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"gitlab.com/yelinaung/priceconverter/internal/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "gitlab.com/yelinaung/priceconverter/internal/exchange"

func tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// getJSON sends a GET request with params merged into endpoint's query and
// decodes the body into v with numbers kept as json.Number.
func getJSON(ctx context.Context, client *http.Client, endpoint string, params url.Values, v any) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("invalid endpoint: %w", err)
	}
	query := u.Query()
	for key, values := range params {
		query[key] = values
	}
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create rates request: %w", err)
	}

	logger.Log.Debug().
		Str("url", logger.RedactURL(u.String())).
		Msg("Requesting exchange rates")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to request exchange rates: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("exchange API returned status %d", resp.StatusCode)
	}

	decoder := json.NewDecoder(resp.Body)
	decoder.UseNumber()
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("failed to decode rates response: %w", err)
	}
	return nil
}

// instrumentFetch wraps a rate table refresh in a span and records the
// fetch count and latency.
func instrumentFetch(ctx context.Context, provider string, fetch func(context.Context) error) error {
	attrs := attribute.NewSet(attribute.String("provider", provider))
	ctx, span := tracer().Start(ctx, "exchange.fetch_rates",
		trace.WithAttributes(attrs.ToSlice()...))
	defer span.End()

	started := time.Now()
	err := fetch(ctx)
	elapsed := time.Since(started)

	outcome := "ok"
	if err != nil {
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	meter := otel.Meter(instrumentationName)
	if counter, cerr := meter.Int64Counter("priceconverter.rates.fetches",
		metric.WithDescription("Number of rate table fetches")); cerr == nil {
		counter.Add(ctx, 1, metric.WithAttributeSet(attrs),
			metric.WithAttributes(attribute.String("outcome", outcome)))
	}
	if hist, herr := meter.Float64Histogram("priceconverter.rates.fetch_duration",
		metric.WithDescription("Rate table fetch latency"),
		metric.WithUnit("s")); herr == nil {
		hist.Record(ctx, elapsed.Seconds(), metric.WithAttributeSet(attrs))
	}

	return err
}
