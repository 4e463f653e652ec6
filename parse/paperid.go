// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package parse

import (
	"regexp"
	"strings"
)

// Identifier grammars for anthology paper IDs. The modern form is
// year.venue-track.number (2023.acl-long.412); the legacy form is a
// venue letter, two-digit year, and sequence number (W99-0512).
var (
	modernIDPattern = regexp.MustCompile(`(?i)\d{4}\.[a-z0-9]+-[a-z0-9]+\.\d+`)
	legacyIDPattern = regexp.MustCompile(`(?i)[a-z]\d{2}-\d{4}`)

	modernIDExact = regexp.MustCompile(`(?i)^\d{4}\.[a-z0-9]+-[a-z0-9]+\.\d+$`)
	legacyIDExact = regexp.MustCompile(`(?i)^[a-z]\d{2}-\d{4}$`)
)

// QueryKind tags the result of MatchQuery.
type QueryKind int

const (
	// KindNaturalLanguage means the text carries no recognizable paper
	// identifier and should be searched as free text.
	KindNaturalLanguage QueryKind = iota
	// KindDocumentID means a paper identifier was found; the normalized
	// identifier is returned alongside the kind.
	KindDocumentID
)

// IsPaperID reports whether the trimmed text is, in its entirety, a
// valid paper identifier in either grammar.
func IsPaperID(text string) bool {
	text = strings.TrimSpace(text)
	return modernIDExact.MatchString(text) || legacyIDExact.MatchString(text)
}

// NormalizePaperID canonicalizes an identifier: modern IDs are
// lowercased, legacy IDs keep an uppercase venue letter.
func NormalizePaperID(paperID string) string {
	paperID = strings.TrimSpace(paperID)
	if legacyIDExact.MatchString(paperID) {
		return strings.ToUpper(paperID[:1]) + paperID[1:]
	}
	return strings.ToLower(paperID)
}

// ExtractPaperID scans free text for an embedded paper identifier and
// returns it normalized. The modern grammar is tried first. Returns ""
// when no identifier is present.
func ExtractPaperID(text string) string {
	if m := modernIDPattern.FindString(text); m != "" {
		return NormalizePaperID(m)
	}
	if m := legacyIDPattern.FindString(text); m != "" {
		return NormalizePaperID(m)
	}
	return ""
}

// MatchQuery classifies query text as a document-identifier query or a
// natural-language query. An identifier matches either as the entire
// trimmed query or embedded in surrounding text.
func MatchQuery(text string) (QueryKind, string) {
	if id := ExtractPaperID(text); id != "" {
		return KindDocumentID, id
	}
	return KindNaturalLanguage, ""
}
