package plausibility

import (
	"strings"
	"unicode/utf8"

	"github.com/joseph-ayodele/invoice-batch/constants"
	"github.com/joseph-ayodele/invoice-batch/internal/entity"
)

const (
	ReasonEmptyDescription = "empty description"
	ReasonMissingAmounts   = "missing quantity or total price"
	ReasonShortDescription = "very short description"

	minDescriptionRunes = 4
)

// Check rates a single row. Rules are evaluated in order and the first match wins.
func Check(row entity.ItemRow) (constants.PlausibilityStatus, string) {
	desc := strings.TrimSpace(row.Description)
	switch {
	case desc == "":
		return constants.PlausibilityImplausible, ReasonEmptyDescription
	case isMissing(row.Quantity) || isMissing(row.TotalPrice):
		return constants.PlausibilityImplausible, ReasonMissingAmounts
	case utf8.RuneCountInString(desc) < minDescriptionRunes:
		return constants.PlausibilitySuspicious, ReasonShortDescription
	}
	return constants.PlausibilityOK, ""
}

// Tag sets status and reason on every row in place.
func Tag(rows []entity.ItemRow) {
	for i := range rows {
		rows[i].PlausibilityStatus, rows[i].PlausibilityReason = Check(rows[i])
	}
}

func isMissing(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "none", "nan", "null":
		return true
	}
	return false
}
