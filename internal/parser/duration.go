package parser

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Duration is a span of time made of days, hours, minutes and seconds.
type Duration struct {
	Days    float64
	Hours   float64
	Minutes float64
	Seconds float64
}

type durationField int

const (
	fieldDays durationField = iota
	fieldHours
	fieldMinutes
	fieldSeconds
)

var durationUnits = map[string]durationField{
	"d":       fieldDays,
	"day":     fieldDays,
	"days":    fieldDays,
	"h":       fieldHours,
	"hour":    fieldHours,
	"hours":   fieldHours,
	"m":       fieldMinutes,
	"min":     fieldMinutes,
	"minute":  fieldMinutes,
	"minutes": fieldMinutes,
	"s":       fieldSeconds,
	"sec":     fieldSeconds,
	"second":  fieldSeconds,
	"seconds": fieldSeconds,
}

// Std converts the duration to a time.Duration, saturating at the
// largest representable value.
func (d Duration) Std() time.Duration {
	nanos := d.Days*float64(24*time.Hour) +
		d.Hours*float64(time.Hour) +
		d.Minutes*float64(time.Minute) +
		d.Seconds*float64(time.Second)
	if nanos >= math.MaxInt64 {
		return math.MaxInt64
	}
	return time.Duration(nanos)
}

func (d Duration) String() string {
	return d.Std().String()
}

func (d *Duration) add(field durationField, value float64) {
	switch field {
	case fieldDays:
		d.Days += value
	case fieldHours:
		d.Hours += value
	case fieldMinutes:
		d.Minutes += value
	case fieldSeconds:
		d.Seconds += value
	}
}

// ParseDuration parses strings like "1 hour", "90m" or "1d 2h".
// Tokens may come in any order, whitespace is ignored and repeated units
// are summed.
func ParseDuration(s string) (Duration, error) {
	var (
		d      Duration
		number strings.Builder
		unit   strings.Builder
	)

	flush := func() error {
		field, ok := durationUnits[unit.String()]
		if !ok {
			return fmt.Errorf("%w: unknown duration unit %q in %q", ErrInvalidFormat, unit.String(), s)
		}
		value, err := strconv.ParseFloat(number.String(), 64)
		if err != nil {
			return fmt.Errorf("%w: bad number %q in %q", ErrInvalidFormat, number.String(), s)
		}
		d.add(field, value)
		number.Reset()
		unit.Reset()
		return nil
	}

	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		if unicode.IsDigit(r) || r == '.' {
			if unit.Len() > 0 {
				if err := flush(); err != nil {
					return Duration{}, err
				}
			}
			number.WriteRune(r)
			continue
		}
		unit.WriteRune(r)
	}
	if err := flush(); err != nil {
		return Duration{}, err
	}

	return d, nil
}
