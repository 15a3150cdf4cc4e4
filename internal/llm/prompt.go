package llm

import (
	"strings"

	"github.com/joseph-ayodele/invoice-batch/internal/entity"
)

// RefusalMarker starts an extractor answer that carries no table.
const RefusalMarker = "FEHLER"

// BuildClassifySystemPrompt lists the label vocabulary and asks for a JSON answer.
func BuildClassifySystemPrompt(labels []string) string {
	parts := []string{
		"Du klassifizierst eingescannte Geschäftsdokumente eines Bauunternehmens.",
		"Erlaubte Dokumenttypen: " + strings.Join(labels, ", ") + ".",
		"Eine Rechnung fordert Zahlung für gelieferte Waren oder Leistungen und enthält Positionen mit Preisen.",
		"Mahnungen und Zahlungserinnerungen sind keine Rechnungen, auch wenn sie Beträge enthalten.",
		`Antworte ausschließlich mit JSON der Form {"label": "<typ>"}.`,
	}
	return strings.Join(parts, " ")
}

// BuildExtractSystemPrompt asks for the invoice positions as a semicolon separated table.
func BuildExtractSystemPrompt() string {
	header := strings.Join(entity.ExtractedColumns, ";")
	parts := []string{
		"Du extrahierst alle Rechnungspositionen aus einer Rechnung.",
		"Antworte nur mit einer CSV-Tabelle mit Semikolon als Trennzeichen und genau dieser Kopfzeile:",
		header,
		"Eine Zeile pro Position. Lieferant, Rechnungsdatum, Rechnungsempfänger und Rechnungsnummer in jeder Zeile wiederholen.",
		"Zahlen so übernehmen, wie sie auf der Rechnung stehen. Keine Erklärungen, keine Summenzeilen.",
		"Wenn keine Positionen erkennbar sind, antworte mit " + RefusalMarker + ": <Grund>.",
	}
	return strings.Join(parts, "\n")
}

// BuildCategorizeSystemPrompt asks for one category row per description.
func BuildCategorizeSystemPrompt() string {
	parts := []string{
		"Du ordnest Artikelbezeichnungen aus Baustoff- und Dienstleistungsrechnungen einer Hauptkategorie und einer Unterkategorie zu.",
		"Antworte nur mit Zeilen im Format: Artikelbezeichnung;Hauptkategorie;Unterkategorie",
		"Übernimm die Artikelbezeichnung exakt wie angegeben. Eine Zeile pro Artikel, keine Kopfzeile, keine Erklärungen.",
	}
	return strings.Join(parts, "\n")
}

// BuildCategorizeUserPrompt lists the descriptions, one per line.
func BuildCategorizeUserPrompt(descriptions []string) string {
	var b strings.Builder
	b.WriteString("Artikel:\n")
	for _, d := range descriptions {
		b.WriteString(strings.ReplaceAll(d, "\n", " "))
		b.WriteString("\n")
	}
	return b.String()
}

// BuildNumberFixSystemPrompt frames the number repair with examples.
func BuildNumberFixSystemPrompt() string {
	parts := []string{
		"Du korrigierst Zahlen aus deutschen Rechnungen, bei denen Tausender- und Dezimaltrennzeichen vermischt sind.",
		`Beispiele: "4.473.39" -> 4473.39, "1.250.000" -> 1250000, "12.345.6" -> 12345.6.`,
		`Antworte ausschließlich mit JSON der Form {"value": <zahl>} oder {"value": null}, wenn keine Zahl erkennbar ist.`,
	}
	return strings.Join(parts, " ")
}

// BuildDocumentUserText frames document text for classification or extraction.
func BuildDocumentUserText(doc Document, maxChars int) string {
	var b strings.Builder
	if doc.FileName != "" {
		b.WriteString("Dateiname: ")
		b.WriteString(doc.FileName)
		b.WriteString("\n\n")
	}
	b.WriteString("Dokumenttext:\n")
	b.WriteString(TruncateRunes(doc.Text, maxChars))
	return b.String()
}
