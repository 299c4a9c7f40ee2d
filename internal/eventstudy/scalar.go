package eventstudy

import (
	"encoding/json"
	"reflect"
	"strconv"
	"strings"

	"esgpulse/pkg/contracts/domain"
)

// Scalarer reduces a wrapped value to a single float.
type Scalarer interface {
	Scalar() (float64, error)
}

// Itemer is the accessor exposed by zero-dimensional array types.
type Itemer interface {
	Item() (float64, error)
}

// Normalize reduces a provider value to a single optional float. Containers
// yield their first element, accessors are applied, plain numbers pass
// through. Empty containers, failing accessors, NaN, infinities and anything
// non-numeric are absent.
func Normalize(v any) domain.Float {
	switch x := v.(type) {
	case nil:
		return domain.None()
	case domain.Float:
		if !x.Valid {
			return domain.None()
		}
		return domain.Some(x.Value)
	case *domain.Float:
		if x == nil {
			return domain.None()
		}
		return Normalize(*x)
	case float64:
		return domain.Some(x)
	case float32:
		return domain.Some(float64(x))
	case int:
		return domain.Some(float64(x))
	case int8:
		return domain.Some(float64(x))
	case int16:
		return domain.Some(float64(x))
	case int32:
		return domain.Some(float64(x))
	case int64:
		return domain.Some(float64(x))
	case uint:
		return domain.Some(float64(x))
	case uint8:
		return domain.Some(float64(x))
	case uint16:
		return domain.Some(float64(x))
	case uint32:
		return domain.Some(float64(x))
	case uint64:
		return domain.Some(float64(x))
	case *float64:
		if x == nil {
			return domain.None()
		}
		return domain.Some(*x)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return domain.None()
		}
		return domain.Some(f)
	case string:
		return parseScalar(x)
	case Scalarer:
		f, err := x.Scalar()
		if err != nil {
			return domain.None()
		}
		return domain.Some(f)
	case Itemer:
		f, err := x.Item()
		if err != nil {
			return domain.None()
		}
		return domain.Some(f)
	case []float64:
		if len(x) == 0 {
			return domain.None()
		}
		return domain.Some(x[0])
	case []domain.Float:
		if len(x) == 0 {
			return domain.None()
		}
		return Normalize(x[0])
	case []any:
		if len(x) == 0 {
			return domain.None()
		}
		return Normalize(x[0])
	}

	// Remaining slices and arrays of any element type.
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Len() == 0 {
			return domain.None()
		}
		return Normalize(rv.Index(0).Interface())
	case reflect.Pointer:
		if rv.IsNil() {
			return domain.None()
		}
		return Normalize(rv.Elem().Interface())
	}
	return domain.None()
}

func parseScalar(s string) domain.Float {
	s = strings.TrimSpace(s)
	if s == "" {
		return domain.None()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return domain.None()
	}
	return domain.Some(f)
}
