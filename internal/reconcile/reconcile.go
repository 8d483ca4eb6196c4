package reconcile

// Policy holds the knobs of the matching policy.
type Policy struct {
	// Critical lists the fields whose mismatch reports a line as missing.
	Critical FieldSet
}

// DefaultPolicy reports a line when any field of CriticalFields mismatches,
// including grossnet.
func DefaultPolicy() Policy {
	return Policy{Critical: CriticalFields}
}

// WithGrossNetCritical returns a copy of p with grossnet added to or removed
// from the critical set.
func (p Policy) WithGrossNetCritical(critical bool) Policy {
	if critical {
		p.Critical = p.Critical.With(FieldGrossNet)
	} else {
		p.Critical = p.Critical.Without(FieldGrossNet)
	}
	return p
}

// Reconciler applies a Policy to invoice lines and ledger rows.
type Reconciler struct {
	policy Policy
}

// NewReconciler creates a reconciler for the given policy.
func NewReconciler(policy Policy) *Reconciler {
	return &Reconciler{policy: policy}
}

// Reconcile runs the default policy over lines and rows.
func Reconcile(lines []ExtractedLine, rows []LedgerRow) Result {
	return NewReconciler(DefaultPolicy()).Reconcile(lines, rows)
}

// Reconcile matches every line, in order, against the full row set.
func (r *Reconciler) Reconcile(lines []ExtractedLine, rows []LedgerRow) Result {
	result := Result{
		TotalInvoiceLines: len(lines),
		TotalLedgerRows:   len(rows),
		MissingProducts:   []MissingProduct{},
		NameMismatches:    []NameMismatch{},
		AllLines:          make([]ExtractedLine, len(lines)),
	}
	copy(result.AllLines, lines)

	seenPages := make(map[int]struct{})
	for i, line := range lines {
		exact, found := FindExactMatch(line, rows)

		// The name check uses the same predicate as the exact search, so the
		// row it diffs against is the exact match itself.
		if found {
			if nm, ok := nameMismatch(line, *exact); ok {
				if _, seen := seenPages[line.PageNumber]; !seen {
					seenPages[line.PageNumber] = struct{}{}
					result.NameMismatches = append(result.NameMismatches, nm)
				}
			}
			continue
		}

		match := FindBestPartial(line, rows)
		if !match.Mismatched.Intersects(r.policy.Critical) {
			continue
		}
		result.MissingProducts = append(result.MissingProducts, MissingProduct{
			Line:             line,
			LineIndex:        i,
			MismatchedFields: match.Mismatched,
			CandidateCount:   match.CandidateCount,
			Candidate:        cloneRow(match.Row),
		})
	}

	return result
}

func nameMismatch(line ExtractedLine, row LedgerRow) (NameMismatch, bool) {
	diff := DiffNames(line.ProductName, row.ProductName)
	if !diff.HasMismatch {
		return NameMismatch{}, false
	}
	return NameMismatch{
		PageNumber:         line.PageNumber,
		InvoiceNumber:      line.InvoiceNumber,
		InvoiceProductName: line.ProductName,
		LedgerProductName:  row.ProductName,
		Comparison:         diff.Comparison,
		Display:            Display(line.ProductName, diff.Comparison),
	}, true
}

func cloneRow(row *LedgerRow) *LedgerRow {
	if row == nil {
		return nil
	}
	c := *row
	return &c
}
