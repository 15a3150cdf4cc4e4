package plausibility

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joseph-ayodele/invoice-batch/constants"
	"github.com/joseph-ayodele/invoice-batch/internal/entity"
)

func TestCheck(t *testing.T) {
	tests := []struct {
		name       string
		row        entity.ItemRow
		wantStatus constants.PlausibilityStatus
		wantReason string
	}{
		{
			name:       "valid row",
			row:        entity.ItemRow{Description: "Bausand 0-2", Quantity: "20", TotalPrice: "90,00"},
			wantStatus: constants.PlausibilityOK,
		},
		{
			name:       "empty description",
			row:        entity.ItemRow{Description: "  ", Quantity: "5", TotalPrice: "60,00"},
			wantStatus: constants.PlausibilityImplausible,
			wantReason: ReasonEmptyDescription,
		},
		{
			name:       "missing total",
			row:        entity.ItemRow{Description: "Bausand", Quantity: "5", TotalPrice: "NaN"},
			wantStatus: constants.PlausibilityImplausible,
			wantReason: ReasonMissingAmounts,
		},
		{
			name:       "missing quantity",
			row:        entity.ItemRow{Description: "Bausand", TotalPrice: "10"},
			wantStatus: constants.PlausibilityImplausible,
			wantReason: ReasonMissingAmounts,
		},
		{
			name:       "three character description",
			row:        entity.ItemRow{Description: "Öl5", Quantity: "1", TotalPrice: "3"},
			wantStatus: constants.PlausibilitySuspicious,
			wantReason: ReasonShortDescription,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, reason := Check(tt.row)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantReason, reason)
		})
	}
}

func TestTagSetsEveryRow(t *testing.T) {
	rows := []entity.ItemRow{
		{Description: "", Quantity: "1", TotalPrice: "1"},
		{Description: "Kies", Quantity: "1", TotalPrice: "1"},
	}
	Tag(rows)
	for _, r := range rows {
		assert.NotEmpty(t, r.PlausibilityStatus)
	}
	assert.Equal(t, constants.PlausibilityImplausible, rows[0].PlausibilityStatus)
	assert.Equal(t, constants.PlausibilityOK, rows[1].PlausibilityStatus)
}
