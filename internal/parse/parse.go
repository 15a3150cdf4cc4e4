package parse

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/joseph-ayodele/invoice-batch/constants"
	"github.com/joseph-ayodele/invoice-batch/internal/entity"
	"github.com/joseph-ayodele/invoice-batch/internal/llm"
)

var (
	// ErrNoDelimiter means the extractor answer has no semicolon separated header line.
	ErrNoDelimiter = errors.New("no delimiter in extracted table")
	// ErrEmptyTable means no item rows survived parsing.
	ErrEmptyTable = errors.New("extracted table has no rows")
)

const delimiter = ';'

// Meta is the per-file context stamped onto every parsed row.
type Meta struct {
	SourceFile   string
	DocumentType string
	Method       constants.ExtractionMethod
	Duration     float64
	// DocumentText is searched for a subsidiary when the recipient names none.
	DocumentText string
}

// Parser turns the extractor's delimited text into item rows.
type Parser struct {
	KnownSuppliers []string
	Subsidiaries   []string
}

// New returns a parser flagging suppliers outside knownSuppliers and tagging rows
// with the first subsidiary found.
func New(knownSuppliers, subsidiaries []string) *Parser {
	return &Parser{KnownSuppliers: knownSuppliers, Subsidiaries: subsidiaries}
}

// Parse reads raw as a semicolon separated table. A missing header line is replaced by
// the expected one. Rows wider than the header are skipped; shorter rows are padded.
func (p *Parser) Parse(raw string, meta Meta) ([]entity.ItemRow, error) {
	lines := nonBlankLines(llm.StripCodeFence(raw))
	if len(lines) == 0 || !strings.ContainsRune(lines[0], delimiter) {
		return nil, ErrNoDelimiter
	}
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(lines[0])), strings.ToLower(entity.ColDescription)) {
		lines = append([]string{strings.Join(entity.ExtractedColumns, string(delimiter))}, lines...)
	}

	r := csv.NewReader(strings.NewReader(strings.Join(lines, "\n")))
	r.Comma = delimiter
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	columns := canonicalHeader(header)

	var rows []entity.ItemRow
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		if len(rec) > len(columns) || blankRecord(rec) {
			continue
		}
		values := make(map[string]string, len(columns))
		for i, col := range columns {
			if i < len(rec) {
				values[col] = rec[i]
			}
		}
		rows = append(rows, p.buildRow(values, meta))
	}
	if len(rows) == 0 {
		return nil, ErrEmptyTable
	}
	return rows, nil
}

func (p *Parser) buildRow(values map[string]string, meta Meta) entity.ItemRow {
	row := entity.ItemRowFromRecord(values)
	row.SourceFile = meta.SourceFile
	row.DocumentType = meta.DocumentType
	row.ExtractionMethod = meta.Method
	row.DurationSeconds = meta.Duration
	row.SupplierUnknown = !containsAny(row.Supplier, p.KnownSuppliers)
	row.Affiliation = p.affiliation(row.Recipient, meta.DocumentText)
	return row
}

// affiliation returns the first configured subsidiary named in the recipient, then in
// the document text, else "unbekannt".
func (p *Parser) affiliation(recipient, text string) string {
	for _, source := range []string{recipient, text} {
		lower := strings.ToLower(source)
		for _, s := range p.Subsidiaries {
			if s != "" && strings.Contains(lower, strings.ToLower(s)) {
				return s
			}
		}
	}
	return string(constants.LabelUnknown)
}

func containsAny(value string, needles []string) bool {
	lower := strings.ToLower(value)
	for _, n := range needles {
		if n != "" && strings.Contains(lower, strings.ToLower(n)) {
			return true
		}
	}
	return false
}

// canonicalHeader maps header cells onto the known column names case-insensitively,
// leaving unknown columns as they are.
func canonicalHeader(header []string) []string {
	known := make(map[string]string, len(entity.ExtractedColumns))
	for _, c := range entity.ExtractedColumns {
		known[strings.ToLower(c)] = c
	}
	known["rechnungsempfaenger"] = entity.ColRecipient
	known["rechnungsnr"] = entity.ColInvoiceNumber

	out := make([]string, len(header))
	for i, h := range header {
		h = strings.Trim(strings.TrimSpace(h), `"`)
		if c, ok := known[strings.ToLower(h)]; ok {
			out[i] = c
			continue
		}
		out[i] = h
	}
	return out
}

func nonBlankLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, strings.TrimRight(line, "\r"))
		}
	}
	return out
}

func blankRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
