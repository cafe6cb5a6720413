package variant

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/golobby/cast"
)

// ErrUnsupportedKind is returned when a kind has no textual form.
var ErrUnsupportedKind = errors.New("kind cannot be parsed from text")

var scalarTypes = map[Kind]reflect.Type{
	KindInt:    reflect.TypeFor[int](),
	KindInt64:  reflect.TypeFor[int64](),
	KindBool:   reflect.TypeFor[bool](),
	KindFloat:  reflect.TypeFor[float32](),
	KindDouble: reflect.TypeFor[float64](),
}

// FromString parses s as a value of kind k. Numeric and boolean kinds go
// through cast; strings, byte slices, comma separated string lists,
// durations and RFC 3339 times are handled directly.
func FromString(k Kind, s string) (Variant, error) {
	if t, ok := scalarTypes[k]; ok {
		raw, err := cast.FromType(strings.TrimSpace(s), t)
		if err != nil {
			return Empty, fmt.Errorf("parse %q as %s: %w", s, k, err)
		}
		rv := reflect.ValueOf(raw)
		if !rv.IsValid() || !rv.CanConvert(t) {
			return Empty, fmt.Errorf("parse %q as %s: unexpected %T", s, k, raw)
		}
		return Variant{kind: k, value: rv.Convert(t).Interface()}, nil
	}

	switch k {
	case KindString:
		return New(s), nil
	case KindBytes:
		return New([]byte(s)), nil
	case KindStrings:
		if strings.TrimSpace(s) == "" {
			return New([]string{}), nil
		}
		parts := strings.Split(s, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return New(parts), nil
	case KindDuration:
		d, err := time.ParseDuration(strings.TrimSpace(s))
		if err != nil {
			return Empty, fmt.Errorf("parse %q as %s: %w", s, k, err)
		}
		return New(d), nil
	case KindTime:
		ts, err := time.Parse(time.RFC3339, strings.TrimSpace(s))
		if err != nil {
			return Empty, fmt.Errorf("parse %q as %s: %w", s, k, err)
		}
		return New(ts), nil
	}
	return Empty, fmt.Errorf("%w: %s", ErrUnsupportedKind, k)
}
