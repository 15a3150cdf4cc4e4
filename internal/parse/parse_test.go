package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-batch/constants"
)

func newParser() *Parser {
	return New([]string{"Matthäi", "Eurovia"}, []string{"Wähler", "Mudcon"})
}

func TestParse(t *testing.T) {
	meta := Meta{SourceFile: "r1.pdf", DocumentType: "rechnung", Method: constants.MethodText, Duration: 2.5}

	t.Run("with header", func(t *testing.T) {
		raw := "```csv\nArtikelbezeichnung;Menge;Einheit;Einzelpreis;Gesamtpreis;Lieferant;Rechnungsdatum;Rechnungsempfänger;Rechnungsnummer\n" +
			"Bausand 0-2;20;t;4,50;90,00;Matthäi Bauunternehmen;01.02.2024;Wähler GmbH;R-17\n\n" +
			"Kies 2/8;5;t;12,00;60,00;Matthäi Bauunternehmen;01.02.2024;Wähler GmbH;R-17\n```"
		rows, err := newParser().Parse(raw, meta)
		require.NoError(t, err)
		require.Len(t, rows, 2)

		r := rows[0]
		assert.Equal(t, "Bausand 0-2", r.Description)
		assert.Equal(t, "20", r.Quantity)
		assert.Equal(t, "4,50", r.UnitPrice)
		assert.Equal(t, "R-17", r.InvoiceNumber)
		assert.Equal(t, "r1.pdf", r.SourceFile)
		assert.Equal(t, constants.MethodText, r.ExtractionMethod)
		assert.InDelta(t, 2.5, r.DurationSeconds, 1e-9)
		assert.False(t, r.SupplierUnknown)
		assert.Equal(t, "Wähler", r.Affiliation)
	})

	t.Run("synthetic header", func(t *testing.T) {
		raw := "Container 10m3;1;St;250,00;250,00;Remondis;03.03.2024;Mudcon AG"
		rows, err := newParser().Parse(raw, meta)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "Container 10m3", rows[0].Description)
		assert.Equal(t, "Mudcon AG", rows[0].Recipient)
		assert.True(t, rows[0].SupplierUnknown)
		assert.Equal(t, "Mudcon", rows[0].Affiliation)
	})

	t.Run("affiliation from document text", func(t *testing.T) {
		m := meta
		m.DocumentText = "Lieferadresse: Baustelle WÄHLER Nord"
		rows, err := newParser().Parse("Artikelbezeichnung;Menge;Gesamtpreis\nSchotter;3;30", m)
		require.NoError(t, err)
		assert.Equal(t, "Wähler", rows[0].Affiliation)
	})

	t.Run("unknown affiliation", func(t *testing.T) {
		rows, err := newParser().Parse("Artikelbezeichnung;Menge\nSchotter;3", meta)
		require.NoError(t, err)
		assert.Equal(t, "unbekannt", rows[0].Affiliation)
	})

	t.Run("short rows padded, wide rows skipped", func(t *testing.T) {
		raw := "Artikelbezeichnung;Menge;Einheit\nSand;1\nKies;1;t;zu;viel\n"
		rows, err := newParser().Parse(raw, meta)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "Sand", rows[0].Description)
		assert.Empty(t, rows[0].Unit)
	})

	t.Run("header case insensitive", func(t *testing.T) {
		rows, err := newParser().Parse("artikelbezeichnung;MENGE;rechnungsempfaenger\nSand;1;Seier KG", meta)
		require.NoError(t, err)
		assert.Equal(t, "1", rows[0].Quantity)
		assert.Equal(t, "Seier KG", rows[0].Recipient)
	})
}

func TestParseFailures(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want error
	}{
		{"empty", "", ErrNoDelimiter},
		{"prose", "Leider konnte ich keine Tabelle finden.", ErrNoDelimiter},
		{"header only", "Artikelbezeichnung;Menge;Einheit\n\n", ErrEmptyTable},
		{"blank rows only", "Artikelbezeichnung;Menge\n;\n ; ", ErrEmptyTable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newParser().Parse(tt.raw, Meta{})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
