// Package normalize holds the pure normalization and suggestion functions
// shared by the sync pipelines and the data-quality validator. Functions here
// never touch storage; they take raw upstream values and return canonical
// forms, optionally with a confidence score so callers can decide between
// applying a fix and deferring to human review.
package normalize

import (
	"strings"
	"unicode"
)

// Suggestion pairs a proposed canonical value with a confidence in [0, 1].
// Confidence 1.0 means the input already was canonical.
type Suggestion struct {
	Value      string
	Confidence float64
}

// titlePrefixes are honorifics stripped from the front of person names,
// longest spellings first so "chief justice" wins over "justice".
var titlePrefixes = []string{
	"chief justice", "associate justice", "chief judge", "magistrate judge",
	"honorable", "justice", "judge", "hon.", "hon", "dr.", "dr", "mr.", "mr",
	"mrs.", "mrs", "ms.", "ms",
}

// nameSuffixes stay attached after a trailing comma ("Smith, Jr.").
var nameSuffixes = map[string]string{
	"jr":   "Jr.",
	"jr.":  "Jr.",
	"sr":   "Sr.",
	"sr.":  "Sr.",
	"ii":   "II",
	"iii":  "III",
	"iv":   "IV",
	"esq":  "Esq.",
	"esq.": "Esq.",
}

// lowerParticles keep lowercase inside a title-cased name.
var lowerParticles = map[string]struct{}{
	"de": {}, "del": {}, "della": {}, "der": {}, "di": {}, "da": {},
	"la": {}, "le": {}, "van": {}, "von": {}, "ter": {}, "ten": {},
	"y": {}, "e": {},
}

// PersonName returns the canonical form of a judge's name together with a
// confidence reflecting how much rewriting was needed. The steps mirror the
// validator's name-standardization rules: strip honorifics, resolve
// "Last, First" ordering, repair degenerate casing, and drop characters that
// cannot appear in a name.
func PersonName(raw string) Suggestion {
	name := collapseSpaces(raw)
	if name == "" {
		return Suggestion{Value: "", Confidence: 0}
	}

	confidence := 1.0

	if stripped := stripTitles(name); stripped != name && stripped != "" {
		name = stripped
		confidence = minFloat(confidence, 0.9)
	}

	if swapped, ok := resolveCommaOrder(name); ok {
		name = swapped
		confidence = minFloat(confidence, 0.85)
	}

	if cleaned := removeInvalidRunes(name); cleaned != name {
		name = collapseSpaces(cleaned)
		confidence = minFloat(confidence, 0.6)
	}

	if hasDegenerateCase(name) {
		name = titleCaseName(name)
		confidence = minFloat(confidence, 0.95)
	}

	if name == "" {
		return Suggestion{Value: "", Confidence: 0}
	}
	return Suggestion{Value: name, Confidence: confidence}
}

// NameViolations lists the standardization rules a stored name breaks.
// Returned labels are stable and used as validator issue metadata.
func NameViolations(name string) []string {
	var violations []string
	trimmed := collapseSpaces(name)
	if trimmed == "" {
		return nil
	}

	if stripTitles(trimmed) != trimmed {
		violations = append(violations, "title_prefix")
	}
	if isAllUpper(trimmed) {
		violations = append(violations, "all_caps")
	} else if isAllLower(trimmed) {
		violations = append(violations, "all_lowercase")
	}
	if removeInvalidRunes(trimmed) != trimmed {
		violations = append(violations, "invalid_characters")
	}
	if _, ok := resolveCommaOrder(trimmed); ok {
		violations = append(violations, "surname_first")
	}
	return violations
}

func stripTitles(name string) string {
	lower := strings.ToLower(name)
	for {
		stripped := false
		for _, prefix := range titlePrefixes {
			if strings.HasPrefix(lower, prefix) {
				rest := name[len(prefix):]
				// Only strip on a word boundary.
				if rest == "" || rest[0] == ' ' || rest[0] == '.' {
					name = strings.TrimLeft(rest, " .")
					lower = strings.ToLower(name)
					stripped = true
					break
				}
			}
		}
		if !stripped {
			return name
		}
	}
}

// resolveCommaOrder turns "Sotomayor, Sonia" into "Sonia Sotomayor". A comma
// followed by a recognised suffix ("Smith, Jr.") is left alone.
func resolveCommaOrder(name string) (string, bool) {
	parts := strings.SplitN(name, ",", 2)
	if len(parts) != 2 || strings.Contains(parts[1], ",") {
		return name, false
	}

	last := collapseSpaces(parts[0])
	first := collapseSpaces(parts[1])
	if last == "" || first == "" {
		return name, false
	}
	if _, isSuffix := nameSuffixes[strings.ToLower(first)]; isSuffix {
		return name, false
	}
	return first + " " + last, true
}

func removeInvalidRunes(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case unicode.IsLetter(r) || unicode.IsSpace(r):
			b.WriteRune(r)
		case r == '-' || r == '\'' || r == '.' || r == ',':
			b.WriteRune(r)
		}
	}
	return b.String()
}

func hasDegenerateCase(name string) bool {
	return isAllUpper(name) || isAllLower(name)
}

func isAllUpper(name string) bool {
	hasLetter := false
	for _, r := range name {
		if unicode.IsLetter(r) {
			hasLetter = true
			if unicode.IsLower(r) {
				return false
			}
		}
	}
	return hasLetter
}

func isAllLower(name string) bool {
	hasLetter := false
	for _, r := range name {
		if unicode.IsLetter(r) {
			hasLetter = true
			if unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter
}

// titleCaseName title-cases each word while preserving name particles,
// suffixes like "III", and letters following apostrophes or hyphens.
func titleCaseName(name string) string {
	words := strings.Fields(strings.ToLower(name))
	for i, word := range words {
		if canonical, ok := nameSuffixes[word]; ok {
			words[i] = canonical
			continue
		}
		if _, particle := lowerParticles[word]; particle && i > 0 {
			continue
		}
		words[i] = capitalizeWord(word)
	}
	return strings.Join(words, " ")
}

func capitalizeWord(word string) string {
	var b strings.Builder
	upperNext := true
	for _, r := range word {
		if upperNext && unicode.IsLetter(r) {
			b.WriteRune(unicode.ToUpper(r))
			upperNext = false
			continue
		}
		b.WriteRune(r)
		if r == '-' || r == '\'' || r == '.' {
			upperNext = true
		}
	}
	return b.String()
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
