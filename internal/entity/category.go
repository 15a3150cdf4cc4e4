package entity

import (
	"time"

	"github.com/joseph-ayodele/invoice-batch/constants"
)

// CategoryAssignment is one categorizer answer for an item description.
type CategoryAssignment struct {
	Description string `json:"description"`
	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`
}

// CategoryLogEntry represents one row of a category log artifact.
type CategoryLogEntry struct {
	Description string                   `json:"description"`
	Category    string                   `json:"category"`
	Subcategory string                   `json:"subcategory"`
	Origin      constants.CategoryOrigin `json:"origin"`
	Timestamp   time.Time                `json:"timestamp"`
}

// Reusable reports whether the entry may stand in for a fresh categorizer call.
func (e CategoryLogEntry) Reusable() bool {
	return !constants.IsRejectedCategory(e.Category) && !constants.IsRejectedCategory(e.Subcategory)
}

// Category log columns.
const (
	ColLogDescription = "Artikelbezeichnung"
	ColLogCategory    = "Kategorie"
	ColLogSubcategory = "Unterkategorie"
	ColLogOrigin      = "Herkunft"
	ColLogTimestamp   = "Zeitpunkt"
)

// CategoryLogColumns is the header row of a category log artifact.
var CategoryLogColumns = []string{ColLogDescription, ColLogCategory, ColLogSubcategory, ColLogOrigin, ColLogTimestamp}
