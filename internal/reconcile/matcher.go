package reconcile

// FindExactMatch returns the first row, in scan order, that agrees with line
// on every critical field.
func FindExactMatch(line ExtractedLine, rows []LedgerRow) (*LedgerRow, bool) {
	for i := range rows {
		if matchesExceptName(line, rows[i]) {
			return &rows[i], true
		}
	}
	return nil, false
}

// FindBestPartial scores every row sharing the line's invoice number and
// returns the one with the most matching fields. Ties go to the earliest row.
// With no such rows the result is MatchNoCandidate, mismatched on everything.
func FindBestPartial(line ExtractedLine, rows []LedgerRow) MatchResult {
	candidates := Candidates(line, rows)
	if len(candidates) == 0 {
		return MatchResult{
			Kind:       MatchNoCandidate,
			Line:       line,
			Mismatched: AllFields,
		}
	}

	result := MatchResult{
		Kind:           MatchBestPartial,
		Line:           line,
		CandidateCount: len(candidates),
	}
	// The first candidate is kept even when it matches on nothing.
	best := -1
	for _, idx := range candidates {
		matching, mismatched := ScoreCandidate(line, rows[idx])
		if best < 0 || matching.Len() > result.Matching.Len() {
			best = idx
			result.Matching = matching
			result.Mismatched = mismatched
		}
	}
	result.Row = &rows[best]
	return result
}

// Match runs the exact search and falls back to the best partial candidate.
func Match(line ExtractedLine, rows []LedgerRow) MatchResult {
	if row, ok := FindExactMatch(line, rows); ok {
		return MatchResult{
			Kind:           MatchExact,
			Line:           line,
			Row:            row,
			CandidateCount: len(Candidates(line, rows)),
		}
	}
	return FindBestPartial(line, rows)
}

// Candidates returns the indexes of rows whose invoice number equals the
// line's.
func Candidates(line ExtractedLine, rows []LedgerRow) []int {
	var out []int
	for i := range rows {
		if FieldsEqual(Text(rows[i].InvoiceNumber), Text(line.InvoiceNumber), KindString) {
			out = append(out, i)
		}
	}
	return out
}

// ScoreCandidate compares line with row field by field. Tax-free lines are
// not scored on quantity at all. The gross/net flag is always scored.
func ScoreCandidate(line ExtractedLine, row LedgerRow) (matching, mismatched FieldSet) {
	matching, mismatched = scoreTax(line, row)

	score := func(f Field, ok bool) {
		if ok {
			matching = matching.With(f)
		} else {
			mismatched = mismatched.With(f)
		}
	}

	if !IsTaxFree(line) {
		score(FieldQuantity, FieldsEqual(Text(row.Quantity), Number(line.Quantity), KindNumber))
	}
	score(FieldPartyName, FieldsEqual(Text(row.PartyName), Text(line.PartyName), KindString))
	score(FieldHSNNumber, FieldsEqual(Text(row.HSNNumber), Number(line.HSNNumber), KindString))
	score(FieldUnit, FieldsEqual(Text(row.Unit), OptionalText(line.Unit), KindString))
	score(FieldTaxableValue, FieldsEqual(Text(row.TaxableValue), Number(line.TaxableValue), KindString))
	score(FieldGrossNet, line.GrossNetMatch)

	return matching, mismatched
}

// matchesExceptName is the exact-match predicate. Product name never takes
// part in it; names are diffed separately.
func matchesExceptName(line ExtractedLine, row LedgerRow) bool {
	if !line.GrossNetMatch || !TaxMatches(line, row) {
		return false
	}

	if !FieldsEqual(Text(row.InvoiceNumber), Text(line.InvoiceNumber), KindString) ||
		!FieldsEqual(Text(row.PartyName), Text(line.PartyName), KindString) ||
		!FieldsEqual(Text(row.HSNNumber), Number(line.HSNNumber), KindString) ||
		!FieldsEqual(Text(row.Unit), OptionalText(line.Unit), KindString) ||
		!FieldsEqual(Text(row.TaxableValue), Number(line.TaxableValue), KindString) {
		return false
	}

	if IsTaxFree(line) {
		return FieldsEqual(Text(row.FreeQuantityMarker), Number(line.Quantity), KindString)
	}
	return FieldsEqual(Text(row.Quantity), Number(line.Quantity), KindNumber)
}
