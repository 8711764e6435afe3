package exchange

import (
	"context"
	"errors"
	"fmt"

	"gitlab.com/yelinaung/priceconverter/internal/logger"
	"gitlab.com/yelinaung/priceconverter/internal/models"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// FallbackService converts prices using the first provider, in order,
// whose rate table holds both currencies.
type FallbackService struct {
	providers       []Provider
	fallbackOnError bool
}

// NewFallbackService builds one provider per source. Providers live as
// long as the service so their rate tables stay cached between calls.
// With fallbackOnError, fetch failures move on to the next provider
// instead of aborting the conversion.
func NewFallbackService(sources []Source, opts Options, fallbackOnError bool) *FallbackService {
	providers := make([]Provider, 0, len(sources))
	for _, source := range sources {
		providers = append(providers, source.New(opts))
	}
	return &FallbackService{providers: providers, fallbackOnError: fallbackOnError}
}

// Providers returns the providers in the order they are tried.
func (s *FallbackService) Providers() []Provider {
	return s.providers
}

// Convert converts price into the to currency.
func (s *FallbackService) Convert(ctx context.Context, price models.Price, to string) (ConversionResult, error) {
	ctx, span := tracer().Start(ctx, "exchange.convert", trace.WithAttributes(
		attribute.String("from", price.Currency),
		attribute.String("to", to),
	))
	defer span.End()

	for _, provider := range s.providers {
		rate, err := provider.Get(ctx, price.Currency, to)
		if err != nil {
			var unsupported *UnsupportedCurrencyError
			if errors.As(err, &unsupported) {
				logger.Log.Debug().
					Str("provider", fmt.Sprint(provider)).
					Str("missing", unsupported.Code).
					Msg("Provider is missing rate")
				continue
			}
			if s.fallbackOnError && errors.Is(err, ErrFetch) && ctx.Err() == nil {
				logger.Log.Warn().
					Err(err).
					Str("provider", provider.Name()).
					Msg("Provider failed; trying next")
				continue
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return ConversionResult{}, err
		}

		logger.Log.Debug().
			Str("provider", fmt.Sprint(provider)).
			Float64("amount", price.Amount).
			Float64("rate", rate).
			Msg("Converted")
		span.SetAttributes(attribute.String("provider", provider.Name()))
		return ConversionResult{
			Amount:   price.Amount * rate,
			Rate:     rate,
			Provider: provider.Name(),
		}, nil
	}

	err := &NoProviderError{From: price.Currency, To: to}
	span.SetStatus(codes.Error, err.Error())
	return ConversionResult{}, err
}
