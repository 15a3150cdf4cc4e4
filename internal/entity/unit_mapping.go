package entity

// UnitMappingEntry maps a raw unit string as written on an invoice to its canonical name.
type UnitMappingEntry struct {
	Raw        string `json:"raw" yaml:"raw"`
	Normalized string `json:"normalized" yaml:"normalized"`
}

// Unit mapping columns.
const (
	ColUnitRaw        = "Einheit_roh"
	ColUnitNormalized = "Einheit_normiert"
	ColUnitCount      = "Anzahl"
)

// UnitMappingColumns is the header row of the user-editable mapping workbook.
var UnitMappingColumns = []string{ColUnitRaw, ColUnitNormalized}
