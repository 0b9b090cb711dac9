package jsonutil

import (
	"math"
	"strconv"
)

// Float is a float64 that serializes NaN and ±Inf as JSON null instead of
// failing or emitting a language-specific sentinel. Finite values are written
// with the shortest representation that round-trips exactly.
//
// Statistical results use this type everywhere a computation can legitimately
// produce a non-finite value (zero-variance correlations, empty-slice moments),
// so exported results always contain either a lossless number or an explicit null.
type Float float64

// MarshalJSON implements json.Marshaler.
func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, v, 'g', -1, 64), nil
}

// UnmarshalJSON implements json.Unmarshaler. JSON null becomes NaN.
func (f *Float) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = Float(math.NaN())
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	*f = Float(v)
	return nil
}

// IsValid reports whether the value is finite.
func (f Float) IsValid() bool {
	v := float64(f)
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// FloatPtr returns a pointer to v as a Float. Used for optional result fields.
func FloatPtr(v float64) *Float {
	f := Float(v)
	return &f
}
