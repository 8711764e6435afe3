package exchange

import (
	"fmt"
	"slices"

	"gitlab.com/yelinaung/priceconverter/internal/parser"
)

// DefaultSources is the provider order used when nothing is configured.
const DefaultSources = RatesAPIName + "," + ExchangeRatesAPIName

// Constructor builds a provider from options.
type Constructor func(Options) Provider

// Source is a named provider constructor.
type Source struct {
	Name string
	New  Constructor
}

var registry = map[string]Constructor{
	RatesAPIName:         func(o Options) Provider { return NewRatesAPI(o) },
	ExchangeRatesAPIName: func(o Options) Provider { return NewExchangeRatesAPI(o) },
}

// KnownSources returns the registered provider names, sorted.
func KnownSources() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// LookupSource returns the registered source with the given name.
func LookupSource(name string) (Source, error) {
	constructor, ok := registry[name]
	if !ok {
		return Source{}, fmt.Errorf("%w: unknown rates source %q", parser.ErrInvalidFormat, name)
	}
	return Source{Name: name, New: constructor}, nil
}

// ParseSources parses a comma separated list of provider names.
func ParseSources(s string) ([]Source, error) {
	var sources []Source
	for _, name := range parser.SplitList(s) {
		source, err := LookupSource(name)
		if err != nil {
			return nil, err
		}
		sources = append(sources, source)
	}
	return sources, nil
}

// SourceNames returns the names of sources in order.
func SourceNames(sources []Source) []string {
	names := make([]string, len(sources))
	for i, source := range sources {
		names[i] = source.Name
	}
	return names
}
