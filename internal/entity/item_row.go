package entity

import (
	"math"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/invoice-batch/constants"
)

// ItemRow is one extracted invoice line.
type ItemRow struct {
	Description   string `json:"description"`
	Quantity      string `json:"quantity"`
	Unit          string `json:"unit"`
	UnitPrice     string `json:"unit_price"`
	TotalPrice    string `json:"total_price"`
	Supplier      string `json:"supplier"`
	InvoiceDate   string `json:"invoice_date"`
	Recipient     string `json:"recipient"`
	InvoiceNumber string `json:"invoice_number,omitempty"`

	SourceFile         string                       `json:"source_file"`
	DocumentType       string                       `json:"document_type"`
	ExtractionMethod   constants.ExtractionMethod   `json:"extraction_method"`
	DurationSeconds    float64                      `json:"processing_duration_seconds"`
	PlausibilityStatus constants.PlausibilityStatus `json:"plausibility_status"`
	PlausibilityReason string                       `json:"plausibility_reason"`
	SupplierUnknown    bool                         `json:"supplier_unknown"`
	Affiliation        string                       `json:"affiliation"`

	// Filled in by the global enricher.
	QuantityRaw     string                   `json:"quantity_raw,omitempty"`
	UnitPriceRaw    string                   `json:"unit_price_raw,omitempty"`
	TotalPriceRaw   string                   `json:"total_price_raw,omitempty"`
	QuantityValue   *float64                 `json:"quantity_value,omitempty"`
	UnitPriceValue  *float64                 `json:"unit_price_value,omitempty"`
	TotalPriceValue *float64                 `json:"total_price_value,omitempty"`
	UnitNormalized  string                   `json:"unit_normalized,omitempty"`
	Category        string                   `json:"category,omitempty"`
	Subcategory     string                   `json:"subcategory,omitempty"`
	CategoryOrigin  constants.CategoryOrigin `json:"category_origin,omitempty"`
}

// Item row columns.
const (
	ColDescription        = "Artikelbezeichnung"
	ColQuantity           = "Menge"
	ColUnit               = "Einheit"
	ColUnitPrice          = "Einzelpreis"
	ColTotalPrice         = "Gesamtpreis"
	ColSupplier           = "Lieferant"
	ColInvoiceDate        = "Rechnungsdatum"
	ColRecipient          = "Rechnungsempfänger"
	ColInvoiceNumber      = "Rechnungsnummer"
	ColSourceFile         = "Dateiname"
	ColDocumentType       = "Dokumententyp"
	ColMethod             = "Verfahren"
	ColDuration           = "Verarbeitung_Dauer"
	ColPlausibility       = "Plausibilität"
	ColPlausibilityReason = "Plausibilität_Grund"
	ColSupplierUnknown    = "Lieferant_unbekannt"
	ColAffiliation        = "Zugehörigkeit"
	ColQuantityRaw        = "Menge_roh"
	ColUnitPriceRaw       = "Einzelpreis_roh"
	ColTotalPriceRaw      = "Gesamtpreis_roh"
	ColCategory           = "Kategorie"
	ColSubcategory        = "Unterkategorie"
	ColCategoryOrigin     = "Kategorie_Herkunft"
)

// ExtractedColumns is the header the extractor is asked to produce.
var ExtractedColumns = []string{
	ColDescription, ColQuantity, ColUnit, ColUnitPrice, ColTotalPrice,
	ColSupplier, ColInvoiceDate, ColRecipient, ColInvoiceNumber,
}

// BatchColumns is the header of flushed batch artifacts.
var BatchColumns = append(append([]string{}, ExtractedColumns...),
	ColSourceFile, ColDocumentType, ColMethod, ColDuration,
	ColPlausibility, ColPlausibilityReason, ColSupplierUnknown, ColAffiliation,
)

// EnrichedColumns is the header of the final merged artifact.
var EnrichedColumns = append(append([]string{}, BatchColumns...),
	ColQuantityRaw, ColUnitPriceRaw, ColTotalPriceRaw, ColUnitNormalized,
	ColCategory, ColSubcategory, ColCategoryOrigin,
)

// BatchValues returns the cells of the row in BatchColumns order.
func (r ItemRow) BatchValues() []any {
	return []any{
		r.Description, r.Quantity, r.Unit, r.UnitPrice, r.TotalPrice,
		r.Supplier, r.InvoiceDate, r.Recipient, r.InvoiceNumber,
		r.SourceFile, r.DocumentType, string(r.ExtractionMethod), math.Round(r.DurationSeconds*100) / 100,
		string(r.PlausibilityStatus), r.PlausibilityReason, r.SupplierUnknown, r.Affiliation,
	}
}

// EnrichedValues returns the cells of the row in EnrichedColumns order. Numeric columns
// carry the coerced value, or an empty cell when coercion failed.
func (r ItemRow) EnrichedValues() []any {
	values := r.BatchValues()
	values[1] = numberCell(r.QuantityValue)
	values[3] = numberCell(r.UnitPriceValue)
	values[4] = numberCell(r.TotalPriceValue)
	return append(values,
		r.QuantityRaw, r.UnitPriceRaw, r.TotalPriceRaw, r.UnitNormalized,
		r.Category, r.Subcategory, string(r.CategoryOrigin),
	)
}

// ItemRowFromRecord rebuilds a row from a spreadsheet record keyed by column name.
func ItemRowFromRecord(rec map[string]string) ItemRow {
	get := func(k string) string { return strings.TrimSpace(rec[k]) }
	row := ItemRow{
		Description:        get(ColDescription),
		Quantity:           get(ColQuantity),
		Unit:               get(ColUnit),
		UnitPrice:          get(ColUnitPrice),
		TotalPrice:         get(ColTotalPrice),
		Supplier:           get(ColSupplier),
		InvoiceDate:        get(ColInvoiceDate),
		Recipient:          get(ColRecipient),
		InvoiceNumber:      get(ColInvoiceNumber),
		SourceFile:         get(ColSourceFile),
		DocumentType:       get(ColDocumentType),
		ExtractionMethod:   constants.ExtractionMethod(get(ColMethod)),
		PlausibilityStatus: constants.PlausibilityStatus(get(ColPlausibility)),
		PlausibilityReason: get(ColPlausibilityReason),
		Affiliation:        get(ColAffiliation),
	}
	if d, err := strconv.ParseFloat(get(ColDuration), 64); err == nil {
		row.DurationSeconds = d
	}
	if b, err := strconv.ParseBool(get(ColSupplierUnknown)); err == nil {
		row.SupplierUnknown = b
	}
	return row
}

func numberCell(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}
