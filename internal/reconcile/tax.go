package reconcile

// Regime is the GST treatment that decides which tax fields are authoritative
// when a line is compared with a row.
type Regime int

const (
	// RegimeTaxFree: the line carries no tax amounts and no taxable value.
	RegimeTaxFree Regime = iota
	// RegimeIGST: the row carries an inter-state IGST amount.
	RegimeIGST
	// RegimeCGSTSGST: the row carries intra-state CGST and SGST amounts.
	RegimeCGSTSGST
	// RegimeUnknown: the row carries no usable tax columns.
	RegimeUnknown
)

func (r Regime) String() string {
	switch r {
	case RegimeTaxFree:
		return "tax_free"
	case RegimeIGST:
		return "igst"
	case RegimeCGSTSGST:
		return "cgst_sgst"
	default:
		return "unknown"
	}
}

var taxFields = NewFieldSet(FieldCGST, FieldSGST, FieldIGST)

// IsTaxFree reports whether the line has no cgst, sgst, igst or taxable
// value. Zero amounts count as missing.
func IsTaxFree(line ExtractedLine) bool {
	return absentOrZero(line.CGST) &&
		absentOrZero(line.SGST) &&
		absentOrZero(line.IGST) &&
		absentOrZero(line.TaxableValue)
}

// Classify decides the regime for comparing line with row. A tax-free line
// wins over whatever the row carries; otherwise IGST on the row takes
// precedence over CGST/SGST.
func Classify(line ExtractedLine, row LedgerRow) Regime {
	if IsTaxFree(line) {
		return RegimeTaxFree
	}
	if _, ok := taxAmount(Text(row.IGST)); ok {
		return RegimeIGST
	}
	_, cgst := taxAmount(Text(row.CGST))
	_, sgst := taxAmount(Text(row.SGST))
	if cgst && sgst {
		return RegimeCGSTSGST
	}
	return RegimeUnknown
}

// TaxMatches reports whether the tax fields of line agree with row under the
// regime chosen by Classify. Tax-free lines always pass; they are keyed on
// the free-quantity marker instead.
func TaxMatches(line ExtractedLine, row LedgerRow) bool {
	if Classify(line, row) == RegimeTaxFree {
		return true
	}
	_, mismatched := scoreTax(line, row)
	return mismatched.IsEmpty()
}

// scoreTax splits the three tax fields into matching and mismatched.
func scoreTax(line ExtractedLine, row LedgerRow) (matching, mismatched FieldSet) {
	lineCGST, lineSGST, lineIGST := Number(line.CGST), Number(line.SGST), Number(line.IGST)
	rowCGST, rowSGST, rowIGST := Text(row.CGST), Text(row.SGST), Text(row.IGST)

	score := func(f Field, ok bool) {
		if ok {
			matching = matching.With(f)
		} else {
			mismatched = mismatched.With(f)
		}
	}

	switch Classify(line, row) {
	case RegimeTaxFree:
		score(FieldIGST, taxEqual(rowIGST, lineIGST))
		score(FieldCGST, taxEqual(rowCGST, lineCGST))
		score(FieldSGST, taxEqual(rowSGST, lineSGST))
	case RegimeIGST:
		score(FieldIGST, taxEqual(rowIGST, lineIGST))
		score(FieldCGST, !carriesTax(lineCGST))
		score(FieldSGST, !carriesTax(lineSGST))
	case RegimeCGSTSGST:
		score(FieldCGST, taxEqual(rowCGST, lineCGST))
		score(FieldSGST, taxEqual(rowSGST, lineSGST))
		score(FieldIGST, !carriesTax(lineIGST))
	default:
		mismatched = mismatched.Union(taxFields)
	}
	return matching, mismatched
}

// taxEqual compares two amounts rounded to two decimals. Amounts that are not
// carried on either side are equal.
func taxEqual(a, b Value) bool {
	x, okA := taxAmount(a)
	y, okB := taxAmount(b)
	if !okA || !okB {
		return okA == okB
	}
	return x.Equal(y)
}

func carriesTax(v Value) bool {
	_, ok := taxAmount(v)
	return ok
}

func absentOrZero(f *float64) bool {
	// NaN never compares equal to itself, so it is treated as missing too.
	return f == nil || *f == 0 || *f != *f
}
