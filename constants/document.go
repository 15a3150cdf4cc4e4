package constants

import (
	"strings"
)

// DocumentLabel is the classifier's verdict for a whole input document.
type DocumentLabel string

const (
	LabelInvoice         DocumentLabel = "rechnung"
	LabelReminder        DocumentLabel = "mahnung"
	LabelCoverLetter     DocumentLabel = "anschreiben"
	LabelEmail           DocumentLabel = "email"
	LabelCreditNote      DocumentLabel = "gutschrift"
	LabelPaymentReminder DocumentLabel = "zahlungserinnerung"
	LabelOfficial        DocumentLabel = "behördlich"
	LabelOther           DocumentLabel = "sonstiges"
	LabelUnknown         DocumentLabel = "unbekannt"
	LabelUnreadable      DocumentLabel = "unlesbar"
)

var documentLabels = []DocumentLabel{
	LabelInvoice,
	LabelReminder,
	LabelCoverLetter,
	LabelEmail,
	LabelCreditNote,
	LabelPaymentReminder,
	LabelOfficial,
	LabelOther,
}

// DocumentLabels returns the vocabulary offered to the classifier.
func DocumentLabels() []string {
	result := make([]string, len(documentLabels))
	for i, l := range documentLabels {
		result[i] = string(l)
	}
	return result
}

// IsInvoice reports whether the label sends a document down the extraction path.
func (l DocumentLabel) IsInvoice() bool {
	return l == LabelInvoice
}

// CanonicalizeLabel maps a free-form model answer to a DocumentLabel.
// Unrecognized input yields LabelUnknown and false.
func CanonicalizeLabel(input string) (DocumentLabel, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	normalized = strings.Trim(normalized, ".\"'`")
	if normalized == "" {
		return LabelUnknown, false
	}

	synonyms := map[string]DocumentLabel{
		"invoice":          LabelInvoice,
		"bill":             LabelInvoice,
		"reminder":         LabelReminder,
		"dunning":          LabelReminder,
		"cover-letter":     LabelCoverLetter,
		"cover letter":     LabelCoverLetter,
		"e-mail":           LabelEmail,
		"credit-note":      LabelCreditNote,
		"credit note":      LabelCreditNote,
		"payment-reminder": LabelPaymentReminder,
		"behoerdlich":      LabelOfficial,
		"official":         LabelOfficial,
		"other":            LabelOther,
		"unknown":          LabelUnknown,
		"unreadable":       LabelUnreadable,
	}
	if l, ok := synonyms[normalized]; ok {
		return l, true
	}

	for _, l := range documentLabels {
		if normalized == string(l) {
			return l, true
		}
	}
	if normalized == string(LabelUnknown) || normalized == string(LabelUnreadable) {
		return DocumentLabel(normalized), true
	}

	return LabelUnknown, false
}
