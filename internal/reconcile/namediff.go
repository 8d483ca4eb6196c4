package reconcile

import (
	"unicode"
)

// NameDiff is the character mask produced by DiffNames.
type NameDiff struct {
	HasMismatch bool
	Comparison  []CharMatch
}

// DiffNames compares an invoice product name with a ledger product name.
//
// Both names are stripped of whitespace and lowercased, then aligned from the
// front and from the back at the same time. A character of the invoice name
// matches when either alignment agrees, which tolerates one inserted or
// deleted run in the middle. This is not an edit distance.
func DiffNames(invoiceName, ledgerName string) NameDiff {
	s1 := foldName(invoiceName)
	s2 := foldName(ledgerName)
	n, m := len(s1), len(s2)

	matched := make([]bool, n)
	for i := 0; i < n && i < m; i++ {
		if s1[i] == s2[i] {
			matched[i] = true
		}
	}
	for i := 0; i < n && i < m; i++ {
		if s1[n-1-i] == s2[m-1-i] {
			matched[n-1-i] = true
		}
	}

	diff := NameDiff{Comparison: make([]CharMatch, n)}
	for i, r := range s1 {
		diff.Comparison[i] = CharMatch{Character: string(r), Matches: matched[i]}
		if !matched[i] {
			diff.HasMismatch = true
		}
	}
	return diff
}

// Display spreads a DiffNames mask back over the original invoice name.
// Whitespace characters are always shown as matching and do not consume a
// mask position.
func Display(original string, comparison []CharMatch) []CharMatch {
	out := make([]CharMatch, 0, len(comparison))
	idx := 0
	for _, r := range original {
		if unicode.IsSpace(r) {
			out = append(out, CharMatch{Character: string(r), Matches: true})
			continue
		}
		matches := false
		if idx < len(comparison) {
			matches = comparison[idx].Matches
		}
		out = append(out, CharMatch{Character: string(r), Matches: matches})
		idx++
	}
	return out
}

// foldName strips whitespace and lowercases rune by rune so that positions
// line up with the non-space runes of the original.
func foldName(s string) []rune {
	runes := []rune(StripWhitespace(s))
	for i, r := range runes {
		runes[i] = unicode.ToLower(r)
	}
	return runes
}
