package cli

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	ratesAPIHost         = "api.ratesapi.io"
	exchangeRatesAPIHost = "api.exchangeratesapi.io"
)

type cannedResponse struct {
	status int
	body   string
}

// fakeRemote serves canned bodies per host and records every request.
type fakeRemote struct {
	mu        sync.Mutex
	responses map[string]cannedResponse
	requests  []*http.Request
}

func (f *fakeRemote) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)

	resp, ok := f.responses[req.URL.Host]
	if !ok {
		resp = cannedResponse{status: http.StatusNotFound, body: "not found"}
	}
	return &http.Response{
		StatusCode: resp.status,
		Body:       io.NopCloser(strings.NewReader(resp.body)),
		Header:     http.Header{"Content-Type": {"application/json"}},
		Request:    req,
	}, nil
}

func (f *fakeRemote) hosts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	hosts := make([]string, len(f.requests))
	for i, req := range f.requests {
		hosts[i] = req.URL.Host
	}
	return hosts
}

type result struct {
	code   int
	stdout string
	stderr string
}

// isolate clears the converter environment and moves into an empty
// working directory so no real configuration is picked up.
func isolate(t *testing.T) string {
	t.Helper()
	workDir := t.TempDir()
	t.Chdir(workDir)
	t.Setenv("HOME", t.TempDir())
	for _, name := range []string{
		"PRICECONVERTER_CONFIG",
		"PRICECONVERTER_BASE",
		"PRICECONVERTER_RATES_SOURCES",
		"PRICECONVERTER_CACHE_AGE",
		"PRICECONVERTER_CACHE_LOCATION",
		"PRICECONVERTER_TIMEOUT",
		"PRICECONVERTER_FALLBACK_ON_ERROR",
		"PRICECONVERTER_ACCESS_KEY",
		"PRICECONVERTER_TELEMETRY",
		"LOG_LEVEL",
		"LOG_FORMAT",
	} {
		t.Setenv(name, "")
	}
	return workDir
}

func run(t *testing.T, remote *fakeRemote, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	runner := &Runner{
		Version:    "test",
		Stdout:     &stdout,
		Stderr:     &stderr,
		HTTPClient: &http.Client{Transport: remote},
	}
	code := runner.Run(context.Background(), args)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func TestRun(t *testing.T) {
	t.Run("converts with the first provider", func(t *testing.T) {
		isolate(t)
		remote := &fakeRemote{responses: map[string]cannedResponse{
			ratesAPIHost: {http.StatusOK, `{"base":"USD","rates":{"EUR":0.5}}`},
		}}

		got := run(t, remote, "10 EUR", "USD")
		require.Equal(t, ExitOK, got.code, got.stderr)
		require.Equal(t, "5\n", got.stdout)
		require.Equal(t, []string{ratesAPIHost}, remote.hosts())
		require.Equal(t, "USD", remote.requests[0].URL.Query().Get("base"))
	})

	t.Run("falls back to the next provider", func(t *testing.T) {
		isolate(t)
		remote := &fakeRemote{responses: map[string]cannedResponse{
			ratesAPIHost:         {http.StatusOK, `{"base":"GBP","rates":{"EUR":1.2}}`},
			exchangeRatesAPIHost: {http.StatusOK, `{"rates":{"GBP":1,"JPY":200}}`},
		}}

		got := run(t, remote, "JPY", "GBP")
		require.Equal(t, ExitOK, got.code, got.stderr)
		require.Equal(t, "200\n", got.stdout)
		require.Equal(t, []string{ratesAPIHost, exchangeRatesAPIHost}, remote.hosts())
	})

	t.Run("reports when no provider supports the pair", func(t *testing.T) {
		isolate(t)
		remote := &fakeRemote{responses: map[string]cannedResponse{
			ratesAPIHost:         {http.StatusOK, `{"base":"USD","rates":{"EUR":0.9}}`},
			exchangeRatesAPIHost: {http.StatusOK, `{"rates":{"USD":1,"EUR":0.9}}`},
		}}

		got := run(t, remote, "XYZ")
		require.Equal(t, ExitFailure, got.code)
		require.Empty(t, got.stdout)
		require.Contains(t, got.stderr, "No rates source supports XYZ to USD")
		require.Equal(t, []string{ratesAPIHost, exchangeRatesAPIHost}, remote.hosts())
	})

	t.Run("invalid price fails before any request", func(t *testing.T) {
		isolate(t)
		remote := &fakeRemote{}

		got := run(t, remote, "USD100EUR")
		require.Equal(t, ExitUsage, got.code)
		require.Contains(t, got.stderr, "argument price")
		require.Empty(t, remote.hosts())
	})

	t.Run("invalid cache age fails before any request", func(t *testing.T) {
		isolate(t)
		remote := &fakeRemote{}

		got := run(t, remote, "$5", "EUR", "--cache-age", "1 fortnight")
		require.Equal(t, ExitUsage, got.code)
		require.Contains(t, got.stderr, "argument --cache-age")
		require.Empty(t, remote.hosts())
	})

	t.Run("wrong number of arguments", func(t *testing.T) {
		isolate(t)
		got := run(t, &fakeRemote{}, "$5", "EUR", "GBP")
		require.Equal(t, ExitUsage, got.code)
		require.Contains(t, got.stderr, "Usage: priceconverter")
	})

	t.Run("rates sources flag selects providers", func(t *testing.T) {
		isolate(t)
		remote := &fakeRemote{responses: map[string]cannedResponse{
			exchangeRatesAPIHost: {http.StatusOK, `{"rates":{"USD":1,"EUR":0.5}}`},
		}}

		got := run(t, remote, "--rates-sources", "ExchangeRatesApi", "EUR", "USD")
		require.Equal(t, ExitOK, got.code, got.stderr)
		require.Equal(t, "0.5\n", got.stdout)
		require.Equal(t, []string{exchangeRatesAPIHost}, remote.hosts())
	})

	t.Run("unknown rates source is rejected", func(t *testing.T) {
		isolate(t)
		got := run(t, &fakeRemote{}, "EUR", "--rates-sources", "Frankfurter")
		require.Equal(t, ExitUsage, got.code)
		require.Contains(t, got.stderr, "Frankfurter")
	})

	t.Run("base flag sets provider base", func(t *testing.T) {
		isolate(t)
		remote := &fakeRemote{responses: map[string]cannedResponse{
			ratesAPIHost: {http.StatusOK, `{"base":"EUR","rates":{"USD":2,"GBP":4}}`},
		}}

		got := run(t, remote, "3 GBP", "USD", "--base", "€")
		require.Equal(t, ExitOK, got.code, got.stderr)
		require.Equal(t, "6\n", got.stdout)
		require.Equal(t, "EUR", remote.requests[0].URL.Query().Get("base"))
	})

	t.Run("target defaults to configured base", func(t *testing.T) {
		workDir := isolate(t)
		require.NoError(t, os.WriteFile(filepath.Join(workDir, "priceconverter.ini"),
			[]byte("[DEFAULT]\nBase = GBP\nRatesSources = RatesApi\n"), 0o600))
		remote := &fakeRemote{responses: map[string]cannedResponse{
			ratesAPIHost: {http.StatusOK, `{"base":"GBP","rates":{"EUR":1.25}}`},
		}}

		got := run(t, remote, "2€")
		require.Equal(t, ExitOK, got.code, got.stderr)
		require.Equal(t, "2.5\n", got.stdout)
		require.Equal(t, "GBP", remote.requests[0].URL.Query().Get("base"))
	})

	t.Run("bad configuration value exits with usage error", func(t *testing.T) {
		workDir := isolate(t)
		require.NoError(t, os.WriteFile(filepath.Join(workDir, "priceconverter.ini"),
			[]byte("Base = Dollars\n"), 0o600))

		got := run(t, &fakeRemote{}, "$5")
		require.Equal(t, ExitUsage, got.code)
		require.Contains(t, got.stderr, "bad Base")
	})

	t.Run("fetch error aborts by default", func(t *testing.T) {
		isolate(t)
		remote := &fakeRemote{responses: map[string]cannedResponse{
			ratesAPIHost:         {http.StatusInternalServerError, "oops"},
			exchangeRatesAPIHost: {http.StatusOK, `{"rates":{"USD":1,"EUR":0.5}}`},
		}}

		got := run(t, remote, "EUR", "USD")
		require.Equal(t, ExitFailure, got.code)
		require.Contains(t, got.stderr, "status 500")
		require.Equal(t, []string{ratesAPIHost}, remote.hosts())
	})

	t.Run("fetch error falls through when enabled", func(t *testing.T) {
		isolate(t)
		remote := &fakeRemote{responses: map[string]cannedResponse{
			ratesAPIHost:         {http.StatusInternalServerError, "oops"},
			exchangeRatesAPIHost: {http.StatusOK, `{"rates":{"USD":1,"EUR":0.5}}`},
		}}

		got := run(t, remote, "EUR", "USD", "--fallback-on-error")
		require.Equal(t, ExitOK, got.code, got.stderr)
		require.Equal(t, "0.5\n", got.stdout)
	})

	t.Run("verbose traces config, arguments and attempts", func(t *testing.T) {
		isolate(t)
		remote := &fakeRemote{responses: map[string]cannedResponse{
			ratesAPIHost:         {http.StatusOK, `{"base":"USD","rates":{"EUR":0.9}}`},
			exchangeRatesAPIHost: {http.StatusOK, `{"rates":{"USD":1,"CHF":0.8}}`},
		}}

		got := run(t, remote, "-v", "CHF", "USD")
		require.Equal(t, ExitOK, got.code, got.stderr)
		require.Equal(t, "0.8\n", got.stdout)
		require.Contains(t, got.stderr, "Config")
		require.Contains(t, got.stderr, "Args")
		require.Contains(t, got.stderr, "Provider is missing rate")
		require.Contains(t, got.stderr, "Calc")
	})

	t.Run("json log format", func(t *testing.T) {
		isolate(t)
		t.Setenv("LOG_FORMAT", "json")
		remote := &fakeRemote{responses: map[string]cannedResponse{
			ratesAPIHost: {http.StatusOK, `{"base":"USD","rates":{"EUR":0.5}}`},
		}}

		got := run(t, remote, "--verbose", "EUR", "USD")
		require.Equal(t, ExitOK, got.code, got.stderr)
		require.Contains(t, got.stderr, `"message":"Calc"`)
	})

	t.Run("zero cache age reaches the provider", func(t *testing.T) {
		isolate(t)
		t.Setenv("LOG_FORMAT", "json")
		remote := &fakeRemote{responses: map[string]cannedResponse{
			ratesAPIHost: {http.StatusOK, `{"base":"USD","rates":{"EUR":0.5}}`},
		}}

		got := run(t, remote, "-v", "--cache-age", "0s", "EUR", "USD")
		require.Equal(t, ExitOK, got.code, got.stderr)
		require.Contains(t, got.stderr, `"provider":"RatesApi(cache_age=0s, base=USD)"`)
	})

	t.Run("help exits cleanly", func(t *testing.T) {
		isolate(t)
		got := run(t, &fakeRemote{}, "--help")
		require.Equal(t, ExitOK, got.code)
		require.Contains(t, got.stderr, "--rates-sources")
	})
}

func TestFormatAmount(t *testing.T) {
	t.Parallel()
	require.Equal(t, "900", FormatAmount(900))
	require.Equal(t, "0.5", FormatAmount(0.5))
	require.Equal(t, "1234.5678", FormatAmount(1234.5678))
}
