package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// Float is an optional float64. The zero value is absent, which is distinct
// from a present zero.
type Float struct {
	Value float64
	Valid bool
}

// Some returns a present Float. NaN and infinities are not representable and
// yield an absent value.
func Some(v float64) Float {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Float{}
	}
	return Float{Value: v, Valid: true}
}

// None returns an absent Float.
func None() Float {
	return Float{}
}

// Get returns the value and whether it is present.
func (f Float) Get() (float64, bool) {
	return f.Value, f.Valid
}

// Ptr returns a pointer to the value, or nil when absent.
func (f Float) Ptr() *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Value
	return &v
}

// Format renders the value with full precision, or marker when absent.
func (f Float) Format(marker string) string {
	if !f.Valid {
		return marker
	}
	return strconv.FormatFloat(f.Value, 'g', -1, 64)
}

// MarshalJSON encodes an absent value as null.
func (f Float) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// UnmarshalJSON accepts a number or null.
func (f *Float) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*f = Float{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Some(v)
	return nil
}
