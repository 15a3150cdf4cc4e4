package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogAttrs(t *testing.T) {
	assert.Empty(t, LogAttrs(t.Context()))

	ctx := WithRunID(t.Context(), "01HRUN")
	assert.Equal(t, []any{"run_id", "01HRUN"}, LogAttrs(ctx))

	ctx = WithFileName(ctx, "r1.pdf")
	assert.Equal(t, "01HRUN", RunIDFromContext(ctx))
	assert.Equal(t, "r1.pdf", FileNameFromContext(ctx))
	assert.Equal(t, []any{"run_id", "01HRUN", "file", "r1.pdf"}, LogAttrs(ctx))
}
