package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joseph-ayodele/invoice-batch/constants"
)

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, "a;b", StripCodeFence("```csv\na;b\n```"))
	assert.Equal(t, "a;b", StripCodeFence("```\na;b\n```"))
	assert.Equal(t, "a;b", StripCodeFence("  a;b \n"))
}

func TestDetectRefusal(t *testing.T) {
	reason, ok := DetectRefusal("Fehler: Dokument ist keine Rechnung")
	assert.True(t, ok)
	assert.Equal(t, "Dokument ist keine Rechnung", reason)

	_, ok = DetectRefusal("error")
	assert.True(t, ok)

	_, ok = DetectRefusal("Artikelbezeichnung;Menge")
	assert.False(t, ok)
}

func TestParseLabel(t *testing.T) {
	l, ok := ParseLabel(`{"label":"Rechnung"}`)
	assert.True(t, ok)
	assert.Equal(t, constants.LabelInvoice, l)

	l, ok = ParseLabel("mahnung")
	assert.True(t, ok)
	assert.Equal(t, constants.LabelReminder, l)

	_, ok = ParseLabel(`{"label":""}`)
	assert.False(t, ok)
}

func TestParseCategoryRows(t *testing.T) {
	rows := ParseCategoryRows("Artikelbezeichnung;Kategorie;Unterkategorie\n\"Kies 2/8\";Baustoffe;Kies\nkaputt\n;Leer;Leer\nRohr; DN 100;Tiefbau;Rohre")
	assert.Len(t, rows, 2)
	assert.Equal(t, "Kies 2/8", rows[0].Description)
	assert.Equal(t, "Rohr; DN 100", rows[1].Description)
	assert.Equal(t, "Tiefbau", rows[1].Category)
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "Grü", TruncateRunes("Grünschnitt", 3))
	assert.Equal(t, "abc", TruncateRunes("abc", 0))
}
