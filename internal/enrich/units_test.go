package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnitMapperNormalize(t *testing.T) {
	m := NewUnitMapper(map[string]string{"Pal": "Palette", " ": "ignored"})
	tests := map[string]string{
		"t":        "Tonne",
		" t. ":     "Tonne",
		"T":        "Tonne",
		"St.":      "Stück",
		"ST":       "Stück",
		"KG":       "Kilogramm",
		"Pal.":     "Palette",
		"":         "",
		"Sack":     "Sack",
		"Sack.":    "Sack",
		"lfd. m":   "lfd m",
		" lfd  m ": "lfd m",
		"S t":      "Stück",
	}
	for in, want := range tests {
		assert.Equal(t, want, m.Normalize(in), "input %q", in)
	}
	assert.Equal(t, []UnknownUnit{{Raw: "Sack", Count: 2}, {Raw: "lfd m", Count: 2}}, m.Unknown())
}

func TestDefaultUnitMapIsACopy(t *testing.T) {
	m := DefaultUnitMap()
	m["t"] = "changed"
	assert.Equal(t, "Tonne", DefaultUnitMap()["t"])
}

func TestCleanNumber(t *testing.T) {
	assert.Equal(t, "4.473.39", CleanNumber("4.473,39 €"))
	assert.Equal(t, "12.5", CleanNumber(" 12,5 "))
}

func TestNumberCoercerWithoutCorrector(t *testing.T) {
	n := NewNumberCoercer(nil, discardLogger())

	v, err := n.Coerce(t.Context(), "1 234,50")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.InDelta(t, 1234.5, *v, 1e-9)

	v, err = n.Coerce(t.Context(), "nan")
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = n.Coerce(t.Context(), "1.234,50")
	assert.ErrorIs(t, err, ErrNoCorrector)
	assert.Nil(t, v)
}
