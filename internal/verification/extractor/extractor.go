// Package extractor pulls batch, expiry, manufacturer and name fields out of
// free text printed on or encoded alongside medicine packaging.
package extractor

import (
	"regexp"
	"strings"

	"github.com/medguard/medguard-backend/internal/verification/domain"
)

const (
	batchToken = `([A-Z0-9][A-Z0-9\-]*)`
	// mfg doubles as a manufacturer label, so its batch form must carry a digit
	mfgBatchToken   = `([A-Z0-9\-]*[0-9][A-Z0-9\-]*)`
	gluedBatchToken = `([0-9][A-Z0-9\-]*)\b`
	dateToken       = `((?:\d{1,2}[-/.]\d{1,2}[-/.](?:\d{4}|\d{2})|\d{1,2}[-/](?:\d{4}|\d{2})))\b`
	nameToken       = `([A-Za-z][^|;\n\r]*)`
)

// Patterns are tried in order; the first match wins.
var (
	batchPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bbatch\s*(?:number|no\b\.?|#)[\s.:#]*` + batchToken),
		regexp.MustCompile(`(?i)\blot\s*(?:number|no\b\.?|#)[\s.:#]*` + batchToken),
		regexp.MustCompile(`(?i)\bbatch\b[\s.:#]*` + batchToken),
		regexp.MustCompile(`(?i)\blot\b[\s.:#]*` + batchToken),
		regexp.MustCompile(`(?i)\bmfg\b[\s.:#]*` + mfgBatchToken),
		// keyword glued to a code, as in "LOT4711A"; the code must open with a digit
		regexp.MustCompile(`(?i)\b(?:batch|lot|mfg)` + gluedBatchToken),
	}

	expiryPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bexp(?:iry|iration|ires|\.)?(?:\s*date)?\s*[:.]?\s*` + dateToken),
		regexp.MustCompile(`(?i)\bvalid\s*until\s*[:.]?\s*` + dateToken),
		regexp.MustCompile(`(?i)\buse\s*before\s*[:.]?\s*` + dateToken),
		regexp.MustCompile(`(?i)\bbest\s*before\s*[:.]?\s*` + dateToken),
	}

	manufacturerPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bmanufactured\s+by\s*[:\-]?\s*` + nameToken),
		regexp.MustCompile(`(?i)\bmfd\.?\s*by\s*[:\-]?\s*` + nameToken),
		regexp.MustCompile(`(?i)\bmfr\b\.?\s*[:\-]?\s*` + nameToken),
		regexp.MustCompile(`(?i)\bmanufacturer\s*[:\-]?\s*` + nameToken),
		regexp.MustCompile(`(?i)\bmfg\b\.?(?:\s*by)?\s*[:\-]?\s*` + nameToken),
	}

	nameRe = regexp.MustCompile(`^([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*)`)

	// nextLabel marks where a manufacturer capture runs into another field
	nextLabel = regexp.MustCompile(`(?i)\s*\b(?:batch|lot|exp(?:iry)?|valid\s+until|use\s+before|best\s+before|mfg|mfd|mfr|manufactured|expiry\s+date)\b`)
)

// Extract returns the fields found in text. It never fails; fields with no
// matching pattern are nil.
func Extract(text string) domain.ExtractedInfo {
	var info domain.ExtractedInfo

	if m := firstMatch(batchPatterns, text); m != "" {
		batch := strings.ToUpper(m)
		info.BatchNumber = &batch
	}

	if m := firstMatch(expiryPatterns, text); m != "" {
		info.ExpiryDate = &m
	}

	if m := manufacturer(text); m != "" {
		info.Manufacturer = &m
	}

	if m := nameRe.FindStringSubmatch(strings.TrimLeft(text, " \t\r\n")); m != nil {
		name := m[1]
		info.MedicineName = &name
	}

	return info
}

func firstMatch(patterns []*regexp.Regexp, text string) string {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return m[1]
		}
	}
	return ""
}

func manufacturer(text string) string {
	for _, re := range manufacturerPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}

		name := m[1]
		if loc := nextLabel.FindStringIndex(name); loc != nil {
			name = name[:loc[0]]
		}
		name = strings.Trim(strings.TrimSpace(name), ",.-:")
		name = strings.TrimSpace(name)

		// "Mfg. Date" labels a manufacture date, not a company
		if name == "" || strings.HasPrefix(strings.ToLower(name), "date") {
			continue
		}
		return name
	}
	return ""
}
