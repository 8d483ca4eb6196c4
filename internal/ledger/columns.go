package ledger

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	apperrors "github.com/gmsas95/invoice-audit/internal/errors"
)

// ColumnMap names the header cell of every ledger column. Header matching
// ignores case and surrounding spaces.
type ColumnMap struct {
	InvoiceNumber      string `yaml:"invoice_number"`
	Date               string `yaml:"date"`
	PartyName          string `yaml:"party_name"`
	ProductName        string `yaml:"product_name"`
	HSNNumber          string `yaml:"hsn_number"`
	Unit               string `yaml:"unit"`
	TaxableValue       string `yaml:"taxable_value"`
	Quantity           string `yaml:"quantity"`
	CGST               string `yaml:"cgst"`
	SGST               string `yaml:"sgst"`
	IGST               string `yaml:"igst"`
	FreeQuantityMarker string `yaml:"free"`
}

// DefaultColumns returns the headers of the standard ledger export.
func DefaultColumns() ColumnMap {
	return ColumnMap{
		InvoiceNumber:      "VNo",
		Date:               "Date",
		PartyName:          "Party Name",
		ProductName:        "Product Name",
		HSNNumber:          "HSN Number",
		Unit:               "Unit",
		TaxableValue:       "Taxable Value",
		Quantity:           "Quantity",
		CGST:               "CGST",
		SGST:               "SGST/UTGST",
		IGST:               "IGST",
		FreeQuantityMarker: "Free",
	}
}

// LoadColumns reads a YAML column map. Keys left out keep their default
// header. An empty path returns the defaults.
func LoadColumns(path string) (ColumnMap, error) {
	columns := DefaultColumns()
	if path == "" {
		return columns, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return columns, apperrors.Wrap(err, apperrors.CodeConfigNotFound, "failed to read column map")
	}

	if err := yaml.Unmarshal(data, &columns); err != nil {
		return columns, apperrors.Wrap(err, apperrors.CodeConfigInvalid, "failed to parse column map")
	}

	if err := columns.validate(); err != nil {
		return columns, err
	}
	return columns, nil
}

func (c ColumnMap) headers() []string {
	return []string{
		c.InvoiceNumber, c.Date, c.PartyName, c.ProductName, c.HSNNumber, c.Unit,
		c.TaxableValue, c.Quantity, c.CGST, c.SGST, c.IGST, c.FreeQuantityMarker,
	}
}

func (c ColumnMap) validate() error {
	seen := make(map[string]struct{})
	for _, h := range c.headers() {
		key := headerKey(h)
		if key == "" {
			return apperrors.New(apperrors.CodeConfigInvalid, "column map has an empty header")
		}
		if _, dup := seen[key]; dup {
			return apperrors.New(apperrors.CodeConfigInvalid, fmt.Sprintf("column map repeats header %q", h))
		}
		seen[key] = struct{}{}
	}
	return nil
}

func headerKey(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}
