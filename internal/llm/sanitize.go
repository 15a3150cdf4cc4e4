package llm

import (
	"encoding/json"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/joseph-ayodele/invoice-batch/constants"
	"github.com/joseph-ayodele/invoice-batch/internal/entity"
)

var reFence = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*\n?(.*?)\n?```\\s*$")

// StripCodeFence removes a surrounding markdown code fence such as ```csv ... ```.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if m := reFence.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return s
}

// DetectRefusal reports whether an extractor answer starts with the error marker
// (case-insensitive) and returns the reason that follows it.
func DetectRefusal(s string) (string, bool) {
	t := strings.TrimSpace(s)
	for _, marker := range []string{RefusalMarker, "ERROR"} {
		if len(t) >= len(marker) && strings.EqualFold(t[:len(marker)], marker) {
			reason := strings.TrimLeft(t[len(marker):], " :-")
			if reason == "" {
				reason = "no reason given"
			}
			return reason, true
		}
	}
	return "", false
}

// ParseLabel reads a classifier answer. It accepts the JSON form and, leniently,
// a bare label token.
func ParseLabel(content string) (constants.DocumentLabel, bool) {
	var reply struct {
		Label string `json:"label"`
	}
	if err := json.Unmarshal([]byte(content), &reply); err == nil && reply.Label != "" {
		return constants.CanonicalizeLabel(reply.Label)
	}
	return constants.CanonicalizeLabel(StripCodeFence(content))
}

// ParseCategoryRows reads "description;category;subcategory" lines. A header line
// naming the columns is skipped; lines without two separators are ignored.
func ParseCategoryRows(content string) []entity.CategoryAssignment {
	var out []entity.CategoryAssignment
	for _, line := range strings.Split(StripCodeFence(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.Split(line, ";")
		if len(parts) < 3 {
			continue
		}
		desc := strings.Trim(strings.TrimSpace(strings.Join(parts[:len(parts)-2], ";")), `"`)
		cat := strings.Trim(strings.TrimSpace(parts[len(parts)-2]), `"`)
		sub := strings.Trim(strings.TrimSpace(parts[len(parts)-1]), `"`)
		if isCategoryHeader(desc, cat) {
			continue
		}
		if desc == "" {
			continue
		}
		out = append(out, entity.CategoryAssignment{Description: desc, Category: cat, Subcategory: sub})
	}
	return out
}

func isCategoryHeader(desc, cat string) bool {
	d := strings.ToLower(desc)
	c := strings.ToLower(cat)
	return d == "artikelbezeichnung" && (c == "hauptkategorie" || c == "kategorie")
}

// TruncateRunes cuts s to at most n runes; n <= 0 leaves s unchanged.
func TruncateRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
