// Package cli implements the priceconverter command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/pflag"
	"gitlab.com/yelinaung/priceconverter/internal/config"
	"gitlab.com/yelinaung/priceconverter/internal/exchange"
	"gitlab.com/yelinaung/priceconverter/internal/logger"
	"gitlab.com/yelinaung/priceconverter/internal/models"
	"gitlab.com/yelinaung/priceconverter/internal/parser"
	"gitlab.com/yelinaung/priceconverter/internal/telemetry"
)

// Exit codes.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

const telemetryShutdownTimeout = 5 * time.Second

// Runner runs the converter with its output streams.
type Runner struct {
	Version string
	Stdout  io.Writer
	Stderr  io.Writer
	// HTTPClient replaces the client built from the configured timeout.
	HTTPClient *http.Client
}

// arguments holds the parsed command line merged over the configuration.
type arguments struct {
	price           models.Price
	to              string
	base            string
	sources         []exchange.Source
	cacheAge        parser.Duration
	cacheLocation   string
	timeout         parser.Duration
	fallbackOnError bool
	verbose         bool
}

// Run converts the price given in args and returns the process exit code.
func (r *Runner) Run(ctx context.Context, args []string) int {
	logger.SetOutput(r.Stderr)

	cfg, err := config.Load()
	if err != nil {
		r.fail("%v", err)
		return ExitUsage
	}
	logger.SetFormat(cfg.LogFormat, r.Stderr)
	logger.SetLevel(cfg.LogLevel)

	parsed, err := parseArgs(args, cfg, r.Stderr)
	if errors.Is(err, pflag.ErrHelp) {
		return ExitOK
	}
	if err != nil {
		r.fail("%v", err)
		return ExitUsage
	}

	if parsed.verbose {
		logger.SetLevel("debug")
		logConfig(cfg)
		logArguments(parsed)
	}

	shutdown, err := telemetry.Setup(ctx, cfg.Telemetry, r.Version, r.Stderr)
	if err != nil {
		r.fail("%v", err)
		return ExitFailure
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), telemetryShutdownTimeout)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Log.Warn().Err(err).Msg("Failed to flush telemetry")
		}
	}()

	httpClient := r.HTTPClient
	if httpClient == nil {
		httpClient = exchange.NewHTTPClient(parsed.timeout.Std())
	}

	// Providers express rates against the explicit base or the target.
	providerBase := parsed.base
	if providerBase == "" {
		providerBase = parsed.to
	}

	svc := exchange.NewFallbackService(parsed.sources, exchange.Options{
		Base:          providerBase,
		CacheAge:      parsed.cacheAge.Std(),
		CacheLocation: parsed.cacheLocation,
		AccessKey:     cfg.AccessKey,
		HTTPClient:    httpClient,
	}, parsed.fallbackOnError)

	result, err := svc.Convert(ctx, parsed.price, parsed.to)
	if err != nil {
		var noProvider *exchange.NoProviderError
		if errors.As(err, &noProvider) {
			r.fail("No rates source supports %s to %s", noProvider.From, noProvider.To)
			return ExitFailure
		}
		r.fail("%v", err)
		return ExitFailure
	}

	logger.Log.Debug().
		Str("provider", result.Provider).
		Float64("amount", parsed.price.Amount).
		Float64("rate", result.Rate).
		Msg("Calc")

	_, _ = fmt.Fprintln(r.Stdout, FormatAmount(result.Amount))
	return ExitOK
}

func (r *Runner) fail(format string, args ...any) {
	_, _ = color.New(color.FgRed).Fprintf(r.Stderr, format+"\n", args...)
}

// FormatAmount renders an amount with the shortest exact representation.
func FormatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', -1, 64)
}

func parseArgs(args []string, cfg *config.Config, stderr io.Writer) (arguments, error) {
	fs := pflag.NewFlagSet("priceconverter", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		_, _ = fmt.Fprintf(stderr, "Usage: priceconverter <price> [to] [flags]\n\nFlags:\n%s", fs.FlagUsages())
	}

	base := fs.String("base", "", "convert using a different base currency")
	sources := fs.StringArray("rates-sources", nil,
		"rates sources to use, in order ("+strings.Join(exchange.KnownSources(), ", ")+")")
	cacheAge := fs.String("cache-age", "", "max cache age, e.g. \"1 hour\" or \"90m\"")
	cacheLocation := fs.String("cache-location", "", "cache location")
	timeout := fs.String("timeout", "", "HTTP timeout per provider request")
	fallbackOnError := fs.Bool("fallback-on-error", cfg.FallbackOnError, "try the next source when a source fails")
	verbose := fs.BoolP("verbose", "v", false, "verbose output")

	if err := fs.Parse(args); err != nil {
		return arguments{}, err
	}

	positional := fs.Args()
	if len(positional) < 1 || len(positional) > 2 {
		fs.Usage()
		return arguments{}, fmt.Errorf("expected <price> [to], got %d arguments", len(positional))
	}

	parsed := arguments{
		to:              cfg.Base,
		sources:         cfg.RatesSources,
		cacheAge:        cfg.CacheAge,
		cacheLocation:   cfg.CacheLocation,
		timeout:         cfg.Timeout,
		fallbackOnError: *fallbackOnError,
		verbose:         *verbose,
	}

	var err error
	if parsed.price, err = parser.ParsePrice(positional[0]); err != nil {
		return arguments{}, fmt.Errorf("argument price: %w", err)
	}
	if len(positional) == 2 {
		if parsed.to, err = parser.ParseCurrency(positional[1]); err != nil {
			return arguments{}, fmt.Errorf("argument to: %w", err)
		}
	}
	if fs.Changed("base") {
		if parsed.base, err = parser.ParseCurrency(*base); err != nil {
			return arguments{}, fmt.Errorf("argument --base: %w", err)
		}
	}
	if fs.Changed("rates-sources") {
		if parsed.sources, err = exchange.ParseSources(strings.Join(*sources, ",")); err != nil {
			return arguments{}, fmt.Errorf("argument --rates-sources: %w", err)
		}
	}
	if fs.Changed("cache-age") {
		if parsed.cacheAge, err = parser.ParseDuration(*cacheAge); err != nil {
			return arguments{}, fmt.Errorf("argument --cache-age: %w", err)
		}
	}
	if fs.Changed("cache-location") {
		parsed.cacheLocation = *cacheLocation
	}
	if fs.Changed("timeout") {
		if parsed.timeout, err = parser.ParseDuration(*timeout); err != nil {
			return arguments{}, fmt.Errorf("argument --timeout: %w", err)
		}
	}

	return parsed, nil
}

func logConfig(cfg *config.Config) {
	logger.Log.Debug().
		Str("file", cfg.File).
		Str("base", cfg.Base).
		Strs("rates_sources", exchange.SourceNames(cfg.RatesSources)).
		Stringer("cache_age", cfg.CacheAge).
		Str("cache_location", cfg.CacheLocation).
		Stringer("timeout", cfg.Timeout).
		Bool("fallback_on_error", cfg.FallbackOnError).
		Str("telemetry", string(cfg.Telemetry)).
		Msg("Config")
}

func logArguments(a arguments) {
	logger.Log.Debug().
		Stringer("price", a.price).
		Str("to", a.to).
		Str("base", a.base).
		Strs("rates_sources", exchange.SourceNames(a.sources)).
		Stringer("cache_age", a.cacheAge).
		Str("cache_location", a.cacheLocation).
		Msg("Args")
}
