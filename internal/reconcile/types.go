// Package reconcile matches invoice lines extracted from a scanned PDF against
// the rows of an accounting ledger.
//
// Everything in this package is pure: no I/O, no global mutable state, and no
// input is ever modified. It is safe to call from concurrent requests.
package reconcile

// ExtractedLine is one product entry read off an invoice page by the
// extraction collaborator. Nil pointers mean the value was absent.
type ExtractedLine struct {
	PageNumber    int      `json:"pageNumber" validate:"gte=1"`
	InvoiceNumber string   `json:"invoiceNumber"`
	Date          string   `json:"date"`
	PartyName     string   `json:"partyName"`
	ProductName   string   `json:"productName"`
	HSNNumber     *float64 `json:"hsnNumber" validate:"omitnil,gte=0"`
	Unit          *string  `json:"unit"`
	TaxableValue  *float64 `json:"taxableValue" validate:"omitnil,gte=0"`
	Quantity      *float64 `json:"quantity" validate:"omitnil,gte=0"`
	CGST          *float64 `json:"cgst" validate:"omitnil,gte=0"`
	SGST          *float64 `json:"sgst" validate:"omitnil,gte=0"`
	IGST          *float64 `json:"igst" validate:"omitnil,gte=0"`
	GrossNetMatch bool     `json:"grossNetMatch"`
}

// LedgerRow is one row of the ledger spreadsheet. Values are kept as the
// text found in the cell; an empty string means the cell was blank.
type LedgerRow struct {
	InvoiceNumber      string `json:"invoiceNumber"`
	Date               string `json:"date"`
	PartyName          string `json:"partyName"`
	ProductName        string `json:"productName"`
	HSNNumber          string `json:"hsnNumber"`
	Unit               string `json:"unit"`
	TaxableValue       string `json:"taxableValue"`
	Quantity           string `json:"quantity"`
	CGST               string `json:"cgst"`
	SGST               string `json:"sgst"`
	IGST               string `json:"igst"`
	FreeQuantityMarker string `json:"freeQuantityMarker"`
}

// MatchKind tells which of the three match outcomes a MatchResult holds.
type MatchKind int

const (
	MatchExact MatchKind = iota
	MatchBestPartial
	MatchNoCandidate
)

func (k MatchKind) String() string {
	switch k {
	case MatchExact:
		return "exact"
	case MatchBestPartial:
		return "best_partial"
	case MatchNoCandidate:
		return "no_candidate"
	default:
		return "unknown"
	}
}

// MatchResult is the outcome of matching a single line against the ledger.
// Row is nil only for MatchNoCandidate.
type MatchResult struct {
	Kind           MatchKind
	Line           ExtractedLine
	Row            *LedgerRow
	Matching       FieldSet
	Mismatched     FieldSet
	CandidateCount int
}

// CharMatch is one position of a product-name comparison.
type CharMatch struct {
	Character string `json:"character"`
	Matches   bool   `json:"matches"`
}

// NameMismatch records a product-name difference found on a page.
type NameMismatch struct {
	PageNumber         int         `json:"pageNumber"`
	InvoiceNumber      string      `json:"invoiceNumber"`
	InvoiceProductName string      `json:"invoiceProductName"`
	LedgerProductName  string      `json:"ledgerProductName"`
	Comparison         []CharMatch `json:"comparison"`
	Display            []CharMatch `json:"display"`
}

// MissingProduct is an invoice line with no exact ledger counterpart whose
// closest candidate disagrees on at least one critical field.
type MissingProduct struct {
	Line             ExtractedLine `json:"line"`
	LineIndex        int           `json:"lineIndex"`
	MismatchedFields FieldSet      `json:"mismatchedFields"`
	CandidateCount   int           `json:"candidateCount"`
	Candidate        *LedgerRow    `json:"candidate,omitempty"`
}

// Result is the summary of one reconciliation run.
type Result struct {
	TotalInvoiceLines int              `json:"totalInvoiceLines"`
	TotalLedgerRows   int              `json:"totalLedgerRows"`
	MissingProducts   []MissingProduct `json:"missingProducts"`
	NameMismatches    []NameMismatch   `json:"nameMismatches"`
	AllLines          []ExtractedLine  `json:"allLines"`
}

// Matched returns the lines that were not reported as missing, in input order.
func (r *Result) Matched() []ExtractedLine {
	missing := make(map[int]struct{}, len(r.MissingProducts))
	for _, mp := range r.MissingProducts {
		missing[mp.LineIndex] = struct{}{}
	}

	matched := make([]ExtractedLine, 0, len(r.AllLines))
	for i, line := range r.AllLines {
		if _, ok := missing[i]; ok {
			continue
		}
		matched = append(matched, line)
	}
	return matched
}
