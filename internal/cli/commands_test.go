package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/gmsas95/invoice-audit/internal/reconcile"
)

func f(v float64) *float64 { return &v }
func s(v string) *string   { return &v }

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeLedger(t *testing.T, dir string) string {
	t.Helper()
	book := excelize.NewFile()
	defer book.Close()

	sheet := book.GetSheetName(0)
	rows := [][]any{
		{"VNo", "Date", "Party Name", "Product Name", "HSN Number", "Unit",
			"Taxable Value", "Quantity", "CGST", "SGST/UTGST", "IGST", "Free"},
		{"SIR-1", "4/1/24", "Acme", "Gold Ring", 711319, "PCS", 1000, 5, 90, 90, nil, nil},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, book.SetSheetRow(sheet, cell, &row))
	}

	path := filepath.Join(dir, "ledger.xlsx")
	require.NoError(t, book.SaveAs(path))
	return path
}

func writeLines(t *testing.T, dir string) string {
	t.Helper()
	line := reconcile.ExtractedLine{
		PageNumber: 1, InvoiceNumber: "SIR-1", PartyName: "Acme", ProductName: "Gold Ring",
		HSNNumber: f(711319), Unit: s("PCS"), TaxableValue: f(1000), Quantity: f(5),
		CGST: f(90), SGST: f(90), GrossNetMatch: true,
	}
	short := line
	short.Quantity = f(4)

	data, err := json.Marshal([]reconcile.ExtractedLine{line, short})
	require.NoError(t, err)
	path := filepath.Join(dir, "lines.json")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "invoice-audit dev"))
}

func TestPages_MissingFile(t *testing.T) {
	_, err := execute(t, "pages", filepath.Join(t.TempDir(), "none.pdf"))
	assert.Error(t, err)
}

func TestReconcile_RequiresInvoiceOrLines(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "reconcile", "--data", dir, "--ledger", writeLedger(t, dir))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--invoice or --lines")
}

func TestReconcile_RejectsUnknownReport(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "reconcile", "--data", dir,
		"--ledger", writeLedger(t, dir), "--lines", writeLines(t, dir), "--report", "all")
	assert.Error(t, err)
}

func TestReconcile_FromLinesWithReport(t *testing.T) {
	dir := t.TempDir()
	reportPath := filepath.Join(dir, "missing.xlsx")

	out, err := execute(t, "reconcile", "--data", dir,
		"--ledger", writeLedger(t, dir),
		"--lines", writeLines(t, dir),
		"--report", "missing", "--out", reportPath,
	)
	require.NoError(t, err)

	assert.Contains(t, out, "Invoice lines:   2")
	assert.Contains(t, out, "Missing:         1")
	assert.Contains(t, out, "quantity")
	assert.Contains(t, out, "Report written to "+reportPath)

	book, err := excelize.OpenFile(reportPath)
	require.NoError(t, err)
	defer book.Close()
	assert.Equal(t, []string{"Missing Data", "Summary"}, book.GetSheetList())
}

func TestReconcile_JSONOutput(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, "reconcile", "--data", dir, "--json",
		"--ledger", writeLedger(t, dir), "--lines", writeLines(t, dir))
	require.NoError(t, err)

	var result reconcile.Result
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 2, result.TotalInvoiceLines)
	require.Len(t, result.MissingProducts, 1)
	assert.Equal(t, 1, result.MissingProducts[0].LineIndex)
}

func TestReadLines_SavedResult(t *testing.T) {
	path := filepath.Join(t.TempDir(), "result.json")
	require.NoError(t, os.WriteFile(path,
		[]byte(`{"allLines":[{"pageNumber":2,"invoiceNumber":"A-1"}]}`), 0644))

	lines, err := readLines(path)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].PageNumber)
}

func TestReadLines_RejectsInvalidPage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lines.json")
	require.NoError(t, os.WriteFile(path,
		[]byte(`[{"pageNumber":0,"invoiceNumber":"A-1","cgst":-1}]`), 0644))

	_, err := readLines(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid line 0")
}

func TestPrintSummary_NameMismatches(t *testing.T) {
	var out bytes.Buffer
	printSummary(&out, reconcile.Result{
		NameMismatches: []reconcile.NameMismatch{{
			PageNumber: 3, InvoiceNumber: "A-9", InvoiceProductName: "Gold Rng", LedgerProductName: "Gold Ring",
		}},
	})
	assert.Contains(t, out.String(), "Product name mismatches:")
	assert.Contains(t, out.String(), "Gold Rng")
}
