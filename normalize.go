package main

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// Matches bracketed edition qualifiers like "(Deluxe Edition)" or
	// "(2011 Remaster)". The whole bracketed span is removed, not just
	// the keyword.
	editionQualifier = regexp.MustCompile(`(?i)\([^()]*(deluxe|remaster|edition|version)[^()]*\)`)
	whitespaceRun    = regexp.MustCompile(`\s+`)

	stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// normalizeName prepares album titles and guesses for comparison:
// diacritics stripped, edition qualifiers removed, whitespace runs
// collapsed, lowercased. Total for any input, including the empty
// string.
func normalizeName(text string) string {
	stripped, _, err := transform.String(stripMarks, text)
	if err != nil {
		stripped = text
	}

	stripped = editionQualifier.ReplaceAllString(stripped, "")
	stripped = whitespaceRun.ReplaceAllString(stripped, " ")

	return strings.ToLower(strings.TrimSpace(stripped))
}
