package entity

import "time"

// ProcessingRecord marks one input file as completed, whatever its outcome.
type ProcessingRecord struct {
	FileIdentifier string    `json:"file_identifier"`
	ProcessedAt    time.Time `json:"processed_at"`
}

// Ledger workbook columns.
const (
	ColLedgerFile        = "Dateiname"
	ColLedgerProcessedAt = "Verarbeitet am"
)

// LedgerColumns is the header row of the ledger workbook.
var LedgerColumns = []string{ColLedgerFile, ColLedgerProcessedAt}

// LedgerTimeLayout formats ProcessedAt in the ledger workbook.
const LedgerTimeLayout = "2006-01-02 15:04:05"
