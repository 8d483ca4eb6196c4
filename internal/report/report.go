// Package report writes reconciliation results as styled Excel workbooks.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "github.com/gmsas95/invoice-audit/internal/errors"
	"github.com/gmsas95/invoice-audit/internal/reconcile"
)

// ContentType is the MIME type of the generated workbooks.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Kind selects which lines a report lists.
type Kind string

const (
	KindParsed  Kind = "parsed"
	KindMatched Kind = "matched"
	KindMissing Kind = "missing"
)

// ParseKind validates a report type name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindParsed, KindMatched, KindMissing:
		return k, nil
	default:
		return "", apperrors.New(apperrors.CodeReportKind, fmt.Sprintf("invalid report type: %q", s))
	}
}

// Filename is the attachment name for a report of kind k.
func (k Kind) Filename() string {
	return string(k) + "-report.xlsx"
}

func (k Kind) sheetName() string {
	switch k {
	case KindMatched:
		return "Matched Data"
	case KindMissing:
		return "Missing Data"
	default:
		return "Parsed Invoice Data"
	}
}

const (
	summarySheet = "Summary"
	dataWidth    = 15
	summaryWidth = 30
)

// column is one report column; field is the FieldSet member it shows, if
// any, so missing rows can colour it.
type column struct {
	header string
	field  reconcile.Field
}

var columns = []column{
	{header: "Page Number"},
	{header: "CGST", field: reconcile.FieldCGST},
	{header: "SGST", field: reconcile.FieldSGST},
	{header: "IGST", field: reconcile.FieldIGST},
	{header: "VNo", field: reconcile.FieldInvoiceNumber},
	{header: "Date", field: reconcile.FieldDate},
	{header: "Party Name", field: reconcile.FieldPartyName},
	{header: "HSN Number", field: reconcile.FieldHSNNumber},
	{header: "Unit", field: reconcile.FieldUnit},
	{header: "Taxable Value", field: reconcile.FieldTaxableValue},
	{header: "Quantity", field: reconcile.FieldQuantity},
	{header: "Gross/Net Weight", field: reconcile.FieldGrossNet},
}

type styles struct {
	header, match, mismatch, summaryHeader int
}

func newStyles(f *excelize.File) (styles, error) {
	var s styles
	var err error

	headerStyle := &excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	}
	if s.header, err = f.NewStyle(headerStyle); err != nil {
		return s, err
	}
	s.summaryHeader = s.header

	if s.match, err = f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"C6EFCE"}},
		Font: &excelize.Font{Color: "006100"},
	}); err != nil {
		return s, err
	}

	if s.mismatch, err = f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"FFC7CE"}},
		Font: &excelize.Font{Color: "9C0006"},
	}); err != nil {
		return s, err
	}
	return s, nil
}

// Write renders result as a workbook of the given kind to w: one data sheet
// and a Summary sheet.
func Write(w io.Writer, result reconcile.Result, kind Kind) error {
	if _, err := ParseKind(string(kind)); err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	st, err := newStyles(f)
	if err != nil {
		return wrap(err)
	}

	if err := writeData(f, st, result, kind); err != nil {
		return wrap(err)
	}
	if err := writeSummary(f, st, result); err != nil {
		return wrap(err)
	}

	if err := f.Write(w); err != nil {
		return wrap(err)
	}
	return nil
}

func wrap(err error) error {
	return apperrors.Wrap(err, apperrors.CodeInternal, "failed to generate Excel file")
}

func writeData(f *excelize.File, st styles, result reconcile.Result, kind Kind) error {
	sheet := kind.sheetName()
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return err
	}

	headers := make([]any, len(columns))
	for i, c := range columns {
		headers[i] = c.header
	}
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return err
	}
	lastCol, err := excelize.ColumnNumberToName(len(columns))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", lastCol+"1", st.header); err != nil {
		return err
	}

	rowNo := 2
	switch kind {
	case KindMissing:
		for _, mp := range result.MissingProducts {
			if err := writeLine(f, sheet, rowNo, mp.Line); err != nil {
				return err
			}
			if err := styleMissing(f, st, sheet, rowNo, mp); err != nil {
				return err
			}
			rowNo++
		}
	default:
		lines := result.AllLines
		if kind == KindMatched {
			lines = result.Matched()
		}
		for _, line := range lines {
			if err := writeLine(f, sheet, rowNo, line); err != nil {
				return err
			}
			rowNo++
		}
	}

	return f.SetColWidth(sheet, "A", lastCol, dataWidth)
}

func writeLine(f *excelize.File, sheet string, rowNo int, line reconcile.ExtractedLine) error {
	values := []any{
		positiveInt(line.PageNumber),
		taxCell(line.CGST),
		taxCell(line.SGST),
		taxCell(line.IGST),
		line.InvoiceNumber,
		line.Date,
		line.PartyName,
		numberCell(line.HSNNumber),
		textCell(line.Unit),
		numberCell(line.TaxableValue),
		numberCell(line.Quantity),
		grossNetCell(line.GrossNetMatch),
	}
	cell, err := excelize.CoordinatesToCellName(1, rowNo)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

// styleMissing colours the mismatched fields red and the rest green. The
// gross/net column follows its own Match/Mismatch value.
func styleMissing(f *excelize.File, st styles, sheet string, rowNo int, mp reconcile.MissingProduct) error {
	for i, c := range columns {
		style := st.match
		switch {
		case c.field != 0 && mp.MismatchedFields.Has(c.field):
			style = st.mismatch
		case c.field == reconcile.FieldGrossNet && !mp.Line.GrossNetMatch:
			style = st.mismatch
		}

		cell, err := excelize.CoordinatesToCellName(i+1, rowNo)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
			return err
		}
	}
	return nil
}

func writeSummary(f *excelize.File, st styles, result reconcile.Result) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return err
	}

	rows := [][]any{
		{"Summary", "Value"},
		{"Total Products in Invoice", result.TotalInvoiceLines},
		{"Total Products in Excel", result.TotalLedgerRows},
		{"Missing Products", len(result.MissingProducts)},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return err
		}
	}

	if err := f.SetCellStyle(summarySheet, "A1", "B1", st.summaryHeader); err != nil {
		return err
	}
	return f.SetColWidth(summarySheet, "A", "B", summaryWidth)
}

// Zero and absent values are written as empty cells.

func positiveInt(n int) any {
	if n <= 0 {
		return ""
	}
	return n
}

func numberCell(v *float64) any {
	if v == nil || *v == 0 {
		return ""
	}
	return *v
}

func taxCell(v *float64) any {
	if v == nil || *v == 0 {
		return ""
	}
	return reconcile.RoundCurrency(*v)
}

func textCell(v *string) any {
	if v == nil {
		return ""
	}
	return *v
}

func grossNetCell(ok bool) string {
	if ok {
		return "Match"
	}
	return "Mismatch"
}
