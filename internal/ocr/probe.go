package ocr

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Readability is the verdict of the text-layer probe.
type Readability struct {
	Readable   bool
	Chars      int
	Reason     string
	Confidence float32
}

// ProbeConfig holds the thresholds of Probe.
type ProbeConfig struct {
	MinChars       int
	RejectPatterns []*regexp.Regexp
}

// DefaultRejectPatterns matches text layers known to be extraction garbage.
var DefaultRejectPatterns = []*regexp.Regexp{regexp.MustCompile(`^VL<\?LHH`)}

// Probe decides whether text is a usable text layer or the image path must be taken.
func Probe(text string, cfg ProbeConfig) Readability {
	if cfg.MinChars <= 0 {
		cfg.MinChars = 80
	}
	stripped := strings.TrimSpace(text)
	r := Readability{Chars: utf8.RuneCountInString(stripped)}

	if r.Chars < cfg.MinChars {
		r.Reason = "too few characters"
		return r
	}
	for _, re := range cfg.RejectPatterns {
		if re.MatchString(stripped) {
			r.Reason = "matches reject pattern " + re.String()
			return r
		}
	}
	r.Readable = true
	r.Confidence = heuristicConfidence(stripped)
	return r
}

var (
	reDate   = regexp.MustCompile(`\b\d{1,2}\.\d{1,2}\.(\d{2}|\d{4})\b|\b20\d{2}-\d{2}-\d{2}\b`)
	reCurr   = regexp.MustCompile(`\beur\b|€`)
	reAmount = regexp.MustCompile(`\b\d{1,3}(\.\d{3})*,\d{2}\b|\b\d+\.\d{2}\b`)
	reWords  = regexp.MustCompile(`\b(rechnung|invoice|menge|summe|netto|brutto|mwst)\b`)
)

// heuristicConfidence scores how invoice-like a readable text layer looks.
// Logged for diagnostics only; it does not change routing.
func heuristicConfidence(txt string) float32 {
	txtL := strings.ToLower(txt)
	score := float32(0.2)
	if reDate.MatchString(txtL) {
		score += 0.2
	}
	if reCurr.MatchString(txtL) {
		score += 0.2
	}
	if reAmount.MatchString(txtL) {
		score += 0.2
	}
	if reWords.MatchString(txtL) {
		score += 0.2
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}
