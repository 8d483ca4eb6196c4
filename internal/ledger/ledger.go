// Package ledger reads accounting ledger rows from an .xlsx workbook.
package ledger

import (
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "github.com/gmsas95/invoice-audit/internal/errors"
	"github.com/gmsas95/invoice-audit/internal/reconcile"
)

// dateLayout matches the M/D/YY dates the invoice extraction produces.
const dateLayout = "1/2/06"

// Options selects the sheet and the header names to read.
type Options struct {
	// Sheet is the worksheet name; the first sheet when empty.
	Sheet   string
	Columns ColumnMap
}

// ParseError reports a workbook that could not be read as a ledger.
type ParseError = apperrors.AppError

// ReadFile reads every data row of the ledger workbook at path.
func ReadFile(path string, opts Options) ([]reconcile.LedgerRow, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeLedgerParse, "failed to open ledger workbook")
	}
	defer f.Close()

	return read(f, opts)
}

// Read reads a ledger workbook from r.
func Read(r io.Reader, opts Options) ([]reconcile.LedgerRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeLedgerParse, "failed to open ledger workbook")
	}
	defer f.Close()

	return read(f, opts)
}

func read(f *excelize.File, opts Options) ([]reconcile.LedgerRow, error) {
	if opts.Columns == (ColumnMap{}) {
		opts.Columns = DefaultColumns()
	}

	sheet := opts.Sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	if sheet == "" {
		return nil, apperrors.New(apperrors.CodeLedgerParse, "ledger workbook has no sheets")
	}

	// Raw values keep numbers unformatted ("90" rather than "90.00").
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeLedgerParse, "failed to read sheet "+sheet)
	}

	headerIdx := -1
	var index columnIndex
	for i, row := range rows {
		if idx, ok := locateColumns(row, opts.Columns); ok {
			headerIdx, index = i, idx
			break
		}
	}
	if headerIdx < 0 {
		return nil, apperrors.New(apperrors.CodeLedgerParse,
			"no header row found (expected a "+strings.TrimSpace(opts.Columns.InvoiceNumber)+" column)")
	}

	out := make([]reconcile.LedgerRow, 0, len(rows)-headerIdx-1)
	for _, row := range rows[headerIdx+1:] {
		if blank(row) {
			continue
		}
		out = append(out, index.row(row))
	}
	return out, nil
}

// columnIndex holds the cell position of every field, -1 when the header is
// not present.
type columnIndex struct {
	invoiceNumber, date, partyName, productName, hsnNumber, unit int
	taxableValue, quantity, cgst, sgst, igst, freeQuantityMarker int
}

// locateColumns maps headers to positions. A row is the header row when it
// carries the invoice-number header.
func locateColumns(row []string, columns ColumnMap) (columnIndex, bool) {
	pos := make(map[string]int, len(row))
	for i, cell := range row {
		key := headerKey(cell)
		if _, dup := pos[key]; key != "" && !dup {
			pos[key] = i
		}
	}

	find := func(header string) int {
		if i, ok := pos[headerKey(header)]; ok {
			return i
		}
		return -1
	}

	idx := columnIndex{
		invoiceNumber:      find(columns.InvoiceNumber),
		date:               find(columns.Date),
		partyName:          find(columns.PartyName),
		productName:        find(columns.ProductName),
		hsnNumber:          find(columns.HSNNumber),
		unit:               find(columns.Unit),
		taxableValue:       find(columns.TaxableValue),
		quantity:           find(columns.Quantity),
		cgst:               find(columns.CGST),
		sgst:               find(columns.SGST),
		igst:               find(columns.IGST),
		freeQuantityMarker: find(columns.FreeQuantityMarker),
	}
	return idx, idx.invoiceNumber >= 0
}

func (c columnIndex) row(cells []string) reconcile.LedgerRow {
	cell := func(i int) string {
		if i < 0 || i >= len(cells) {
			return ""
		}
		return cells[i]
	}

	return reconcile.LedgerRow{
		InvoiceNumber:      cell(c.invoiceNumber),
		Date:               formatDate(cell(c.date)),
		PartyName:          cell(c.partyName),
		ProductName:        cell(c.productName),
		HSNNumber:          cell(c.hsnNumber),
		Unit:               cell(c.unit),
		TaxableValue:       cell(c.taxableValue),
		Quantity:           cell(c.quantity),
		CGST:               cell(c.cgst),
		SGST:               cell(c.sgst),
		IGST:               cell(c.igst),
		FreeQuantityMarker: cell(c.freeQuantityMarker),
	}
}

// formatDate turns an Excel date serial into M/D/YY. Text dates are kept.
func formatDate(raw string) string {
	serial, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || serial <= 0 {
		return raw
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return raw
	}
	return t.Format(dateLayout)
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
