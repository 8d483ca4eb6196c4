package reconcile

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Value is a raw field value from either side of a comparison. The zero
// Value is absent.
type Value struct {
	raw     string
	present bool
}

// Text wraps a string value. The empty string is absent.
func Text(s string) Value {
	return Value{raw: s, present: s != ""}
}

// OptionalText wraps an optional string value.
func OptionalText(s *string) Value {
	if s == nil {
		return Value{}
	}
	return Text(*s)
}

// Number wraps an optional numeric value.
func Number(f *float64) Value {
	if f == nil {
		return Value{}
	}
	return Value{raw: formatNumber(*f), present: true}
}

// Absent reports whether the value is null, missing or the empty string.
func (v Value) Absent() bool {
	return !v.present
}

// Raw returns the value as it was given, or "" when absent.
func (v Value) Raw() string {
	return v.raw
}

// Float parses the value as a number. ok is false when absent, not numeric
// or not finite ("NaN", "Inf").
func (v Value) Float() (f float64, ok bool) {
	if !v.present {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v.raw), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Normalize returns the trimmed, lowercased form used for text comparison.
func Normalize(v Value) string {
	if v.Absent() {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(v.raw))
}

// StripWhitespace removes every whitespace rune, not only the outer ones.
func StripWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// RoundCurrency rounds a tax amount to two decimal places. NaN and
// infinities are returned unchanged.
func RoundCurrency(n float64) float64 {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return n
	}
	return decimal.NewFromFloat(n).Round(2).InexactFloat64()
}

// taxAmount returns the rounded tax amount carried by v. Zero, blank and
// unparsable amounts count as not carried.
func taxAmount(v Value) (decimal.Decimal, bool) {
	f, ok := v.Float()
	if !ok {
		return decimal.Zero, false
	}
	d := decimal.NewFromFloat(f).Round(2)
	if d.IsZero() {
		return decimal.Zero, false
	}
	return d, true
}

// formatNumber renders a float the way it would be printed in a cell:
// shortest representation, no exponent, no trailing zeros.
func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
