package ngxhttp

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/caffeineduck/ngxmod/core"
)

// SetFunc is the typed body of a directive handler.
type SetFunc[T any] func(cf *Conf, conf *T) error

// FlagSlot stores "on"/"off" into the field selected by field.
func FlagSlot[T any](field func(*T) *core.Flag) SetFunc[T] {
	return func(cf *Conf, conf *T) error {
		var v bool
		switch strings.ToLower(cf.Arg(0)) {
		case "on":
			v = true
		case "off":
			v = false
		default:
			return cf.Errorf("invalid value %q, it must be \"on\" or \"off\"", cf.Arg(0))
		}
		return setField(cf, field(conf), v)
	}
}

// TextSlot stores the first argument verbatim.
func TextSlot[T any](field func(*T) *core.Text) SetFunc[T] {
	return func(cf *Conf, conf *T) error {
		return setField(cf, field(conf), cf.Arg(0))
	}
}

// TextListSlot appends every argument; repeated directives accumulate.
func TextListSlot[T any](field func(*T) *core.Value[[]string]) SetFunc[T] {
	return func(cf *Conf, conf *T) error {
		f := field(conf)
		list := append([]string(nil), f.Get()...)
		*f = core.Of(append(list, cf.Args()...))
		return nil
	}
}

// NumSlot stores a non-negative decimal integer.
func NumSlot[T any](field func(*T) *core.Num) SetFunc[T] {
	return func(cf *Conf, conf *T) error {
		n, err := strconv.Atoi(cf.Arg(0))
		if err != nil || n < 0 {
			return cf.Errorf("invalid number %q", cf.Arg(0))
		}
		return setField(cf, field(conf), n)
	}
}

// SizeSlot stores a byte size with an optional k/m/g suffix.
func SizeSlot[T any](field func(*T) *core.Size) SetFunc[T] {
	return func(cf *Conf, conf *T) error {
		n, err := ParseSize(cf.Arg(0))
		if err != nil {
			return cf.Errorf("%v", err)
		}
		return setField(cf, field(conf), n)
	}
}

// MsecSlot stores a time interval such as "30s", "1m30s" or "500ms". A bare
// number is milliseconds.
func MsecSlot[T any](field func(*T) *core.Msec) SetFunc[T] {
	return timeSlot(field, ParseTime)
}

// SecSlot stores a time interval with second granularity. A bare number is
// seconds and "ms" is rejected.
func SecSlot[T any](field func(*T) *core.Msec) SetFunc[T] {
	return timeSlot(field, ParseSeconds)
}

func timeSlot[T any](field func(*T) *core.Msec, parse func(string) (time.Duration, error)) SetFunc[T] {
	return func(cf *Conf, conf *T) error {
		d, err := parse(cf.Arg(0))
		if err != nil {
			return cf.Errorf("%v", err)
		}
		return setField(cf, field(conf), d)
	}
}

// ComplexValueSlot compiles the first argument as a complex value.
func ComplexValueSlot[T any](field func(*T) *core.Value[*ComplexValue]) SetFunc[T] {
	return func(cf *Conf, conf *T) error {
		f := field(conf)
		if f.IsSet() {
			return cf.Errorf("%v", core.ErrDuplicate)
		}
		cv, err := cf.CompileComplexValue(cf.Arg(0))
		if err != nil {
			return cf.Errorf("%v", err)
		}
		return setField(cf, f, cv)
	}
}

func setField[V any](cf *Conf, f *core.Value[V], v V) error {
	if err := f.Set(v); err != nil {
		return cf.Errorf("%v", err)
	}
	return nil
}

// ParseSize parses "512", "16k", "8m" or "1g".
func ParseSize(s string) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	mult := int64(1)
	switch s[len(s)-1] {
	case 'k', 'K':
		mult = 1 << 10
	case 'm', 'M':
		mult = 1 << 20
	case 'g', 'G':
		mult = 1 << 30
	}
	digits := s
	if mult != 1 {
		digits = s[:len(s)-1]
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || n < 0 || n > math.MaxInt64/mult {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	return n * mult, nil
}

var timeUnits = map[string]time.Duration{
	"ms": time.Millisecond,
	"s":  time.Second,
	"m":  time.Minute,
	"h":  time.Hour,
	"d":  24 * time.Hour,
	"w":  7 * 24 * time.Hour,
}

// ParseTime parses an interval made of number+unit groups (ms, s, m, h, d,
// w). A single bare number is milliseconds.
func ParseTime(s string) (time.Duration, error) {
	return parseTime(s, time.Millisecond)
}

// ParseSeconds is ParseTime for values kept in whole seconds, such as
// Cache-Control max-age. A single bare number is seconds.
func ParseSeconds(s string) (time.Duration, error) {
	return parseTime(s, time.Second)
}

func parseTime(s string, base time.Duration) (time.Duration, error) {
	invalid := fmt.Errorf("invalid time %q", s)
	if s == "" {
		return 0, invalid
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil && n >= 0 {
		d, ok := mulDuration(n, base)
		if !ok {
			return 0, invalid
		}
		return d, nil
	}

	var total time.Duration
	rest := s
	for rest != "" {
		i := strings.IndexFunc(rest, func(r rune) bool { return !unicode.IsDigit(r) })
		if i <= 0 {
			return 0, invalid
		}
		n, err := strconv.ParseInt(rest[:i], 10, 64)
		if err != nil {
			return 0, invalid
		}
		rest = rest[i:]
		j := strings.IndexFunc(rest, unicode.IsDigit)
		if j < 0 {
			j = len(rest)
		}
		unit, ok := timeUnits[rest[:j]]
		if !ok || unit < base {
			return 0, invalid
		}
		d, ok := mulDuration(n, unit)
		if !ok || total > math.MaxInt64-d {
			return 0, invalid
		}
		total += d
		rest = rest[j:]
	}
	return total, nil
}

func mulDuration(n int64, unit time.Duration) (time.Duration, bool) {
	if n > int64(math.MaxInt64/unit) {
		return 0, false
	}
	return time.Duration(n) * unit, true
}
