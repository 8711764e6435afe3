// Package config resolves the converter configuration from built-in
// defaults, an INI file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"gitlab.com/yelinaung/priceconverter/internal/exchange"
	"gitlab.com/yelinaung/priceconverter/internal/logger"
	"gitlab.com/yelinaung/priceconverter/internal/models"
	"gitlab.com/yelinaung/priceconverter/internal/parser"
	"gitlab.com/yelinaung/priceconverter/internal/telemetry"
	"gopkg.in/ini.v1"
)

const (
	appName = "priceconverter"

	// FileName is the name of the configuration file.
	FileName = "priceconverter.ini"

	// EnvConfigPath names an explicit configuration file, skipping the search.
	EnvConfigPath = "PRICECONVERTER_CONFIG"
)

// Configuration keys as they appear in the INI file.
const (
	KeyBase            = "Base"
	KeyRatesSources    = "RatesSources"
	KeyCacheAge        = "CacheAge"
	KeyCacheLocation   = "CacheLocation"
	KeyTimeout         = "Timeout"
	KeyFallbackOnError = "FallbackOnError"
	KeyAccessKey       = "AccessKey"
	KeyLogLevel        = "LogLevel"
	KeyLogFormat       = "LogFormat"
	KeyTelemetry       = "Telemetry"
)

var keys = []string{
	KeyBase,
	KeyRatesSources,
	KeyCacheAge,
	KeyCacheLocation,
	KeyTimeout,
	KeyFallbackOnError,
	KeyAccessKey,
	KeyLogLevel,
	KeyLogFormat,
	KeyTelemetry,
}

// Config holds the resolved configuration. It is not modified after Load.
type Config struct {
	Base            string
	RatesSources    []exchange.Source
	CacheAge        parser.Duration
	CacheLocation   string
	Timeout         parser.Duration
	FallbackOnError bool
	AccessKey       string
	LogLevel        string
	LogFormat       string
	Telemetry       telemetry.Exporter
	// File is the configuration file that was read, if any.
	File string
}

// ConfigurationError reports a configuration value that failed to parse.
type ConfigurationError struct {
	Key   string
	Value string
	Err   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("bad %s %q: %v", e.Key, e.Value, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// Values holds unparsed configuration values by key.
type Values map[string]string

// envOverrides lists the environment variables read by cleanenv. Empty
// values are treated as unset.
type envOverrides struct {
	Base            string `env:"PRICECONVERTER_BASE"`
	RatesSources    string `env:"PRICECONVERTER_RATES_SOURCES"`
	CacheAge        string `env:"PRICECONVERTER_CACHE_AGE"`
	CacheLocation   string `env:"PRICECONVERTER_CACHE_LOCATION"`
	Timeout         string `env:"PRICECONVERTER_TIMEOUT"`
	FallbackOnError string `env:"PRICECONVERTER_FALLBACK_ON_ERROR"`
	AccessKey       string `env:"PRICECONVERTER_ACCESS_KEY"`
	LogLevel        string `env:"LOG_LEVEL"`
	LogFormat       string `env:"LOG_FORMAT"`
	Telemetry       string `env:"PRICECONVERTER_TELEMETRY"`
}

// UserDir is the per-user directory holding the configuration file and
// the default cache location.
func UserDir() string {
	if runtime.GOOS == "windows" {
		if local := os.Getenv("LOCALAPPDATA"); local != "" {
			return filepath.Join(local, appName)
		}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return appName
	}
	return filepath.Join(home, appName)
}

// SearchPaths returns the configuration file locations in lookup order.
func SearchPaths() []string {
	paths := []string{
		FileName,
		"." + FileName,
		filepath.Join(UserDir(), FileName),
	}
	if runtime.GOOS != "windows" {
		paths = append(paths, filepath.Join("/etc", FileName))
	}
	return paths
}

// Keys returns the configuration keys in file order.
func Keys() []string {
	return append([]string(nil), keys...)
}

// Defaults returns the built-in configuration values.
func Defaults() Values {
	return Values{
		KeyBase:            models.DefaultBase,
		KeyRatesSources:    exchange.DefaultSources,
		KeyCacheAge:        "1 hour",
		KeyCacheLocation:   UserDir(),
		KeyTimeout:         "10s",
		KeyFallbackOnError: "false",
		KeyAccessKey:       "",
		KeyLogLevel:        "warn",
		KeyLogFormat:       logger.FormatConsole,
		KeyTelemetry:       string(telemetry.ExporterNone),
	}
}

// Load reads the configuration: defaults, then the first configuration
// file found, then environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	values := Defaults()

	path, err := findFile()
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := readFile(path, values); err != nil {
			return nil, err
		}
	}

	if err := readEnv(values); err != nil {
		return nil, err
	}

	return Resolve(values, path)
}

func findFile() (string, error) {
	if explicit := os.Getenv(EnvConfigPath); explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("failed to find config file: %w", err)
		}
		return explicit, nil
	}

	for _, path := range SearchPaths() {
		info, err := os.Stat(path)
		if err == nil && info.Mode().IsRegular() {
			return path, nil
		}
	}
	return "", nil
}

// readFile copies known keys of the default section into values. Keys
// are matched case-insensitively.
func readFile(path string, values Values) error {
	file, err := ini.LoadSources(ini.LoadOptions{Insensitive: true}, path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	section := file.Section("")
	for _, key := range keys {
		if section.HasKey(key) {
			values[key] = section.Key(key).String()
		}
	}
	return nil
}

func readEnv(values Values) error {
	var env envOverrides
	if err := cleanenv.ReadEnv(&env); err != nil {
		return fmt.Errorf("failed to read environment: %w", err)
	}

	for key, value := range map[string]string{
		KeyBase:            env.Base,
		KeyRatesSources:    env.RatesSources,
		KeyCacheAge:        env.CacheAge,
		KeyCacheLocation:   env.CacheLocation,
		KeyTimeout:         env.Timeout,
		KeyFallbackOnError: env.FallbackOnError,
		KeyAccessKey:       env.AccessKey,
		KeyLogLevel:        env.LogLevel,
		KeyLogFormat:       env.LogFormat,
		KeyTelemetry:       env.Telemetry,
	} {
		if value != "" {
			values[key] = value
		}
	}
	return nil
}

// Resolve parses values into a Config. Any value that does not parse is
// reported as a ConfigurationError naming its key.
func Resolve(values Values, file string) (*Config, error) {
	cfg := &Config{
		CacheLocation: values[KeyCacheLocation],
		AccessKey:     values[KeyAccessKey],
		LogLevel:      strings.ToLower(values[KeyLogLevel]),
		File:          file,
	}

	var errs []error
	check := func(key string, err error) {
		if err != nil {
			errs = append(errs, &ConfigurationError{Key: key, Value: values[key], Err: err})
		}
	}

	var err error
	cfg.Base, err = parser.ParseCurrency(values[KeyBase])
	check(KeyBase, err)
	cfg.RatesSources, err = exchange.ParseSources(values[KeyRatesSources])
	check(KeyRatesSources, err)
	cfg.CacheAge, err = parser.ParseDuration(values[KeyCacheAge])
	check(KeyCacheAge, err)
	cfg.Timeout, err = parser.ParseDuration(values[KeyTimeout])
	check(KeyTimeout, err)
	cfg.FallbackOnError, err = parseBool(values[KeyFallbackOnError])
	check(KeyFallbackOnError, err)
	cfg.LogFormat, err = parseLogFormat(values[KeyLogFormat])
	check(KeyLogFormat, err)
	cfg.Telemetry, err = telemetry.ParseExporter(values[KeyTelemetry])
	check(KeyTelemetry, err)

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

func parseLogFormat(s string) (string, error) {
	switch format := strings.ToLower(strings.TrimSpace(s)); format {
	case "", logger.FormatConsole:
		return logger.FormatConsole, nil
	case logger.FormatJSON:
		return format, nil
	default:
		return "", fmt.Errorf("%w: unknown log format %q", parser.ErrInvalidFormat, s)
	}
}

// parseBool accepts the boolean spellings common in INI files.
func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "t", "true", "yes", "on":
		return true, nil
	case "", "0", "f", "false", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%w: not a boolean: %q", parser.ErrInvalidFormat, s)
	}
}
