package services

import (
	"strings"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Wirkstoffnamen und Einheiten kommen als Freitext aus Importen und
// manueller Pflege. Verglichen wird immer die gefaltete Form, nie der
// Roh-String.

// ligatureReplacer ersetzt gängige Ligaturen, die aus PDF-Importen stammen.
var ligatureReplacer = strings.NewReplacer(
	"ﬁ", "fi",
	"ﬂ", "fl",
	"ﬀ", "ff",
	"ﬃ", "ffi",
	"ﬄ", "ffl",
	"œ", "oe",
	"æ", "ae",
)

// NormalizeName faltet einen Wirkstoffnamen oder Alias auf seine
// Vergleichsform: NFC-normalisiert, Ligaturen ersetzt, kleingeschrieben,
// getrimmt, Binnen-Whitespace auf einzelne Spaces reduziert.
func NormalizeName(s string) string {
	s = ligatureReplacer.Replace(s)
	t := transform.Chain(norm.NFC)
	normalized, _, err := transform.String(t, s)
	if err == nil {
		s = normalized
	}
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeUnit faltet eine Stärke-Einheit ("Mg " -> "mg").
func NormalizeUnit(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
