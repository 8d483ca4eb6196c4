package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/gmsas95/invoice-audit/internal/errors"
	"github.com/gmsas95/invoice-audit/internal/reconcile"
)

var (
	codeFence = regexp.MustCompile("```(?:json|JSON)?")
	validate  = validator.New(validator.WithRequiredStructEnabled())
)

// flexNumber accepts a JSON number, a numeric string or null. Anything else
// decodes as absent rather than failing the whole page.
type flexNumber struct {
	v *float64
}

func (n *flexNumber) UnmarshalJSON(data []byte) error {
	n.v = nil
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	raw := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		raw = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	}

	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	n.v = &f
	return nil
}

// flexText accepts a JSON string, a number or null.
type flexText struct {
	v *string
}

func (t *flexText) UnmarshalJSON(data []byte) error {
	t.v = nil
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	var s string
	if data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
	} else {
		s = string(data)
	}
	t.v = &s
	return nil
}

func (t flexText) String() string {
	if t.v == nil {
		return ""
	}
	return *t.v
}

// aiRecord is one product object as the model returns it.
type aiRecord struct {
	HSNNumber    flexNumber   `json:"HSNNumber"`
	Unit         flexText     `json:"Unit"`
	Quantity     flexNumber   `json:"Quantity"`
	TaxableValue flexNumber   `json:"TaxableValue"`
	CGST         flexNumber   `json:"cgst"`
	SGST         flexNumber   `json:"sgst"`
	IGST         flexNumber   `json:"igst"`
	PartyName    flexText     `json:"partyName"`
	VNo          flexText     `json:"VNo"`
	Date         flexText     `json:"date"`
	ProductName  flexText     `json:"ProductName"`
	GrossNet     []flexNumber `json:"grossnet"`
}

// ParseResponse converts the model's answer for one page into lines stamped
// with pageNumber. The answer must be a JSON array, optionally wrapped in a
// Markdown code fence.
func ParseResponse(text string, pageNumber int) ([]reconcile.ExtractedLine, error) {
	clean := strings.TrimSpace(codeFence.ReplaceAllString(text, ""))
	if clean == "" {
		return nil, apperrors.New(apperrors.CodeAIResponse, "empty AI response")
	}

	var records []aiRecord
	if err := json.Unmarshal([]byte(clean), &records); err != nil {
		repaired := escapeControlChars(clean)
		if err2 := json.Unmarshal([]byte(repaired), &records); err2 != nil {
			if strings.HasPrefix(clean, "{") {
				return nil, apperrors.New(apperrors.CodeAIResponse, "invalid AI response format: expected a JSON array")
			}
			return nil, apperrors.Wrap(err, apperrors.CodeAIResponse, "failed to parse AI response as JSON array")
		}
	}

	lines := make([]reconcile.ExtractedLine, 0, len(records))
	for _, rec := range records {
		line := reconcile.ExtractedLine{
			PageNumber:    pageNumber,
			InvoiceNumber: strings.TrimSpace(rec.VNo.String()),
			Date:          strings.TrimSpace(rec.Date.String()),
			PartyName:     rec.PartyName.String(),
			ProductName:   rec.ProductName.String(),
			HSNNumber:     rec.HSNNumber.v,
			Unit:          rec.Unit.v,
			TaxableValue:  rec.TaxableValue.v,
			Quantity:      rec.Quantity.v,
			CGST:          rec.CGST.v,
			SGST:          rec.SGST.v,
			IGST:          rec.IGST.v,
			GrossNetMatch: grossNetMatch(rec.GrossNet),
		}
		if err := SanitizeLine(&line); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeAIResponse, "invalid AI record")
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// grossNetMatch is true only when both totals were read and agree.
func grossNetMatch(totals []flexNumber) bool {
	if len(totals) < 2 || totals[0].v == nil || totals[1].v == nil {
		return false
	}
	return reconcile.FieldsEqual(
		reconcile.Number(totals[0].v),
		reconcile.Number(totals[1].v),
		reconcile.KindNumber,
	)
}

// SanitizeLine validates line and clears every optional numeric field that
// fails, so one unreadable value does not discard the product. It returns an
// error only for fields that cannot be cleared, such as the page number.
func SanitizeLine(line *reconcile.ExtractedLine) error {
	err := validate.Struct(line)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	for _, fe := range verrs {
		switch fe.StructField() {
		case "HSNNumber":
			line.HSNNumber = nil
		case "TaxableValue":
			line.TaxableValue = nil
		case "Quantity":
			line.Quantity = nil
		case "CGST":
			line.CGST = nil
		case "SGST":
			line.SGST = nil
		case "IGST":
			line.IGST = nil
		default:
			return fmt.Errorf("invalid field %s: %s", fe.StructField(), fe.Tag())
		}
	}
	return nil
}

// SanitizeLines applies SanitizeLine to lines received from outside the
// extractor, such as a JSON request body.
func SanitizeLines(lines []reconcile.ExtractedLine) error {
	for i := range lines {
		if err := SanitizeLine(&lines[i]); err != nil {
			return apperrors.Wrap(err, apperrors.CodeBadRequest, fmt.Sprintf("invalid line %d", i))
		}
	}
	return nil
}

// escapeControlChars escapes raw control characters that appear inside JSON
// string literals, which the model sometimes emits for multi-line
// descriptions.
func escapeControlChars(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))

	inString, escaped := false, false
	for _, r := range s {
		switch {
		case escaped:
			escaped = false
		case inString && r == '\\':
			escaped = true
		case r == '"':
			inString = !inString
		case inString && r < 0x20:
			switch r {
			case '\n':
				sb.WriteString(`\n`)
			case '\r':
				sb.WriteString(`\r`)
			case '\t':
				sb.WriteString(`\t`)
			default:
				sb.WriteString(fmt.Sprintf(`\u%04x`, r))
			}
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
