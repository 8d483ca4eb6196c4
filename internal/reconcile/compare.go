package reconcile

import "math"

// Kind selects how FieldsEqual compares two present values.
type Kind int

const (
	KindString Kind = iota
	KindNumber
)

// numericTolerance is the largest difference two numbers may have and still
// be considered equal.
const numericTolerance = 0.001

// FieldsEqual is the single equality policy behind every field comparison.
//
// Two absent values are equal and an absent value never equals a present one.
// Numbers are equal when they differ by less than numericTolerance; text is
// compared trimmed and case-insensitively.
func FieldsEqual(a, b Value, kind Kind) bool {
	if a.Absent() && b.Absent() {
		return true
	}
	if a.Absent() || b.Absent() {
		return false
	}

	if kind == KindNumber {
		x, ok := a.Float()
		if !ok {
			return false
		}
		y, ok := b.Float()
		if !ok {
			return false
		}
		return math.Abs(x-y) < numericTolerance
	}

	return Normalize(a) == Normalize(b)
}
