package reconcile

import (
	"encoding/json"
	"fmt"
)

// Field names a comparable column shared by invoice lines and ledger rows.
type Field uint16

const (
	FieldCGST Field = 1 << iota
	FieldSGST
	FieldIGST
	FieldInvoiceNumber
	FieldDate
	FieldPartyName
	FieldHSNNumber
	FieldUnit
	FieldTaxableValue
	FieldQuantity
	FieldGrossNet
)

// orderedFields fixes the order used when a FieldSet is listed or encoded.
var orderedFields = []Field{
	FieldCGST,
	FieldSGST,
	FieldIGST,
	FieldInvoiceNumber,
	FieldDate,
	FieldPartyName,
	FieldHSNNumber,
	FieldUnit,
	FieldTaxableValue,
	FieldQuantity,
	FieldGrossNet,
}

var fieldNames = map[Field]string{
	FieldCGST:          "cgst",
	FieldSGST:          "sgst",
	FieldIGST:          "igst",
	FieldInvoiceNumber: "invoiceNumber",
	FieldDate:          "date",
	FieldPartyName:     "partyName",
	FieldHSNNumber:     "hsnNumber",
	FieldUnit:          "unit",
	FieldTaxableValue:  "taxableValue",
	FieldQuantity:      "quantity",
	FieldGrossNet:      "grossnet",
}

func (f Field) String() string {
	if name, ok := fieldNames[f]; ok {
		return name
	}
	return fmt.Sprintf("field(%d)", uint16(f))
}

// ParseField resolves a field by its wire name.
func ParseField(name string) (Field, bool) {
	for f, n := range fieldNames {
		if n == name {
			return f, true
		}
	}
	return 0, false
}

// FieldSet is an immutable set of fields. The zero value is empty.
type FieldSet uint16

// NewFieldSet builds a set from the given fields.
func NewFieldSet(fields ...Field) FieldSet {
	var s FieldSet
	for _, f := range fields {
		s |= FieldSet(f)
	}
	return s
}

// AllFields holds every comparable field. A line with no candidate row is
// mismatched on all of them.
var AllFields = NewFieldSet(orderedFields...)

// CriticalFields are the fields whose mismatch is enough to report a line as
// missing. Date is never critical.
var CriticalFields = NewFieldSet(
	FieldCGST,
	FieldSGST,
	FieldIGST,
	FieldInvoiceNumber,
	FieldPartyName,
	FieldHSNNumber,
	FieldUnit,
	FieldTaxableValue,
	FieldQuantity,
	FieldGrossNet,
)

func (s FieldSet) With(f Field) FieldSet { return s | FieldSet(f) }
func (s FieldSet) Without(f Field) FieldSet { return s &^ FieldSet(f) }
func (s FieldSet) Has(f Field) bool { return s&FieldSet(f) != 0 }
func (s FieldSet) Intersects(o FieldSet) bool { return s&o != 0 }
func (s FieldSet) Union(o FieldSet) FieldSet { return s | o }
func (s FieldSet) IsEmpty() bool { return s == 0 }

// Len returns the number of fields in the set.
func (s FieldSet) Len() int {
	n := 0
	for _, f := range orderedFields {
		if s.Has(f) {
			n++
		}
	}
	return n
}

// Fields lists the members in canonical order.
func (s FieldSet) Fields() []Field {
	out := make([]Field, 0, s.Len())
	for _, f := range orderedFields {
		if s.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

// Names lists the wire names of the members in canonical order.
func (s FieldSet) Names() []string {
	fields := s.Fields()
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.String()
	}
	return out
}

func (s FieldSet) String() string {
	return fmt.Sprint(s.Names())
}

func (s FieldSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Names())
}

func (s *FieldSet) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}

	var set FieldSet
	for _, name := range names {
		f, ok := ParseField(name)
		if !ok {
			return fmt.Errorf("unknown field %q", name)
		}
		set = set.With(f)
	}
	*s = set
	return nil
}
