package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	apperrors "github.com/gmsas95/invoice-audit/internal/errors"
	"github.com/gmsas95/invoice-audit/internal/reconcile"
)

func f(v float64) *float64 { return &v }
func s(v string) *string   { return &v }

func sampleResult() reconcile.Result {
	lines := []reconcile.ExtractedLine{
		{
			PageNumber: 1, InvoiceNumber: "A-1", Date: "4/1/24", PartyName: "Acme",
			ProductName: "Gold Ring", HSNNumber: f(711319), Unit: s("PCS"),
			TaxableValue: f(1000), Quantity: f(5), CGST: f(90.004), SGST: f(90), GrossNetMatch: true,
		},
		{
			PageNumber: 2, InvoiceNumber: "A-2", Date: "4/2/24", PartyName: "Beta",
			ProductName: "Chain", HSNNumber: f(711311), Unit: s("GMS"),
			TaxableValue: f(2500), Quantity: f(3), IGST: f(450),
		},
	}
	return reconcile.Result{
		TotalInvoiceLines: 2,
		TotalLedgerRows:   7,
		AllLines:          lines,
		MissingProducts: []reconcile.MissingProduct{{
			Line:             lines[1],
			LineIndex:        1,
			MismatchedFields: reconcile.NewFieldSet(reconcile.FieldQuantity),
			CandidateCount:   1,
		}},
	}
}

func render(t *testing.T, kind Kind) *excelize.File {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleResult(), kind))

	book, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	t.Cleanup(func() { book.Close() })
	return book
}

func fillColor(t *testing.T, book *excelize.File, sheet, cell string) string {
	t.Helper()

	idx, err := book.GetCellStyle(sheet, cell)
	require.NoError(t, err)
	style, err := book.GetStyle(idx)
	require.NoError(t, err)
	if len(style.Fill.Color) == 0 {
		return ""
	}
	return strings.ToUpper(style.Fill.Color[0])
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{
		"parsed":   KindParsed,
		"Matched":  KindMatched,
		" missing": KindMissing,
	} {
		got, err := ParseKind(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseKind("summary")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeReportKind, apperrors.GetCode(err))
}

func TestKind_Filename(t *testing.T) {
	assert.Equal(t, "missing-report.xlsx", KindMissing.Filename())
}

func TestWrite_ParsedSheet(t *testing.T) {
	book := render(t, KindParsed)

	assert.Equal(t, []string{"Parsed Invoice Data", "Summary"}, book.GetSheetList())

	rows, err := book.GetRows("Parsed Invoice Data")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{
		"Page Number", "CGST", "SGST", "IGST", "VNo", "Date", "Party Name",
		"HSN Number", "Unit", "Taxable Value", "Quantity", "Gross/Net Weight",
	}, rows[0])

	first := rows[1]
	assert.Equal(t, "1", first[0])
	assert.Equal(t, "90", first[1], "tax amounts are rounded to cents")
	assert.Equal(t, "A-1", first[4])
	assert.Equal(t, "Acme", first[6])
	assert.Equal(t, "Match", first[11])

	second := rows[2]
	assert.Equal(t, "", second[1])
	assert.Equal(t, "450", second[3])
	assert.Equal(t, "Mismatch", second[11])

	// Parsed rows are not coloured.
	assert.Equal(t, "", fillColor(t, book, "Parsed Invoice Data", "K2"))
}

func TestWrite_HeaderStyleAndWidth(t *testing.T) {
	book := render(t, KindParsed)

	idx, err := book.GetCellStyle("Parsed Invoice Data", "A1")
	require.NoError(t, err)
	style, err := book.GetStyle(idx)
	require.NoError(t, err)
	require.NotNil(t, style.Font)
	assert.True(t, style.Font.Bold)
	require.NotNil(t, style.Alignment)
	assert.Equal(t, "center", style.Alignment.Horizontal)

	width, err := book.GetColWidth("Parsed Invoice Data", "L")
	require.NoError(t, err)
	assert.InDelta(t, 15.0, width, 0.01)
}

func TestWrite_MatchedSheet(t *testing.T) {
	book := render(t, KindMatched)

	rows, err := book.GetRows("Matched Data")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "A-1", rows[1][4])
}

func TestWrite_MissingSheetColours(t *testing.T) {
	book := render(t, KindMissing)
	const sheet = "Missing Data"

	rows, err := book.GetRows(sheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "A-2", rows[1][4])

	assert.True(t, strings.HasSuffix(fillColor(t, book, sheet, "K2"), "FFC7CE"), "quantity mismatched")
	assert.True(t, strings.HasSuffix(fillColor(t, book, sheet, "L2"), "FFC7CE"), "gross/net says Mismatch")
	assert.True(t, strings.HasSuffix(fillColor(t, book, sheet, "E2"), "C6EFCE"))
	assert.True(t, strings.HasSuffix(fillColor(t, book, sheet, "A2"), "C6EFCE"))
}

func TestWrite_Summary(t *testing.T) {
	book := render(t, KindMissing)

	rows, err := book.GetRows("Summary")
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Summary", "Value"},
		{"Total Products in Invoice", "2"},
		{"Total Products in Excel", "7"},
		{"Missing Products", "1"},
	}, rows)

	width, err := book.GetColWidth("Summary", "A")
	require.NoError(t, err)
	assert.InDelta(t, 30.0, width, 0.01)
}

func TestWrite_EmptyMissingList(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, reconcile.Result{}, KindMissing))

	book, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer book.Close()

	rows, err := book.GetRows("Missing Data")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestWrite_UnknownKind(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, reconcile.Result{}, Kind("everything"))
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeReportKind, apperrors.GetCode(err))
	assert.Zero(t, buf.Len())
}
