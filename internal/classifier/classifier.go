// Package classifier decides whether a raw status-source message is an
// aerodrome warning and grades its severity from keyword heuristics.
// Every function here is pure.
package classifier

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/wilheimcosta/adwrng2/internal/models"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const warningMarker = "AD WRNG"

var (
	criticalKeywords = []string{"closed", "fechado", "danger"}
	highKeywords     = []string{"thunderstorm", "tempestade", "severe", "turbulence"}
	mediumKeywords   = []string{"caution", "warning", "aviso"}

	icaoToken = regexp.MustCompile(`\b[A-Z]{4}\b`)
)

// normalize lowercases s and strips diacritics (NFD, then drop combining marks).
func normalize(s string) string {
	if s == "" {
		return ""
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, strings.ToLower(s))
	if err != nil {
		return strings.ToLower(s)
	}
	return out
}

// IsAerodromeWarning reports whether raw textually represents an AD WRNG.
func IsAerodromeWarning(raw models.RawWarning) bool {
	msg := normalize(raw.Message)
	typ := normalize(raw.Type)

	if strings.Contains(msg, "ad wrng") || strings.Contains(msg, "aerodrome warning") {
		return true
	}
	if strings.Contains(typ, "aerodromo") || strings.Contains(msg, "aerodromo") {
		return true
	}
	if strings.Contains(typ, "aviso") && (strings.Contains(msg, "ad") || strings.Contains(msg, "aerodromo")) {
		return true
	}
	return false
}

// DetermineAlertSeverity grades raw. Tiers are checked critical first and the
// first match wins.
func DetermineAlertSeverity(raw models.RawWarning) models.Severity {
	msg := strings.ToLower(raw.Message)
	typ := strings.ToLower(raw.Type)

	switch {
	case containsAny(msg, criticalKeywords) || strings.Contains(typ, "sigmet"):
		return models.SeverityCritical
	case containsAny(msg, highKeywords):
		return models.SeverityHigh
	case containsAny(msg, mediumKeywords):
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

// ExtractICAOsFromWarningText returns the unique 4-letter codes listed before
// the first "AD WRNG" marker (or anywhere in text when the marker is absent),
// in first-seen order.
func ExtractICAOsFromWarningText(text string) []string {
	if text == "" {
		return []string{}
	}

	head := text
	if idx := strings.Index(text, warningMarker); idx >= 0 {
		head = text[:idx]
	}

	seen := make(map[string]bool)
	codes := []string{}
	for _, tok := range icaoToken.FindAllString(head, -1) {
		if seen[tok] {
			continue
		}
		seen[tok] = true
		codes = append(codes, tok)
	}
	return codes
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
