// Copyright (C) 2025 Nebula Labs (oss@nebulalabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pipeline

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/nebulalabs/nebula/services/research/datatypes"
)

const (
	// supportThreshold is the minimum share of a sentence's terms that
	// must appear in the evidence for the sentence to count as supported.
	supportThreshold = 0.45

	// verifyEvidenceChars caps the concatenated kept-document text the
	// verifier checks against.
	verifyEvidenceChars = 200_000

	// unsupportedMarker is appended verbatim to unsupported sentences.
	unsupportedMarker = " _(not supported by the provided sources)_"
)

// bareCitationPattern matches a sentence that is only a citation marker.
var bareCitationPattern = regexp.MustCompile(`^\s*\[[0-9]+\]\s*$`)

// verifyAnswer checks the draft sentence by sentence against the kept
// documents' concatenated text. Sentences whose term overlap with the
// evidence falls below the support threshold (or that have no terms at
// all) get the unsupported marker appended. Bare citation markers are
// dropped. Sentences are rejoined with single spaces.
func verifyAnswer(draft string, kept []datatypes.Document) string {
	var texts []string
	for _, d := range kept {
		texts = append(texts, d.Text)
	}
	evidence := truncateChars(strings.Join(texts, "\n"), verifyEvidenceChars)
	evidenceTerms := termSet(evidence)

	var checked []string
	for _, sent := range splitSentences(draft) {
		if bareCitationPattern.MatchString(sent) {
			continue
		}
		if sentenceSupported(sent, evidenceTerms) {
			checked = append(checked, sent)
		} else {
			checked = append(checked, sent+unsupportedMarker)
		}
	}
	return strings.Join(checked, " ")
}

// sentenceSupported reports whether at least supportThreshold of the
// sentence's terms appear in the evidence. A sentence with no terms is
// never supported.
func sentenceSupported(sent string, evidenceTerms map[string]struct{}) bool {
	sentTerms := termSet(sent)
	if len(sentTerms) == 0 || len(evidenceTerms) == 0 {
		return false
	}
	return overlapRatio(sentTerms, evidenceTerms) >= supportThreshold
}

// splitSentences breaks text on terminal punctuation followed by
// whitespace, and on newline runs. Empty pieces are dropped.
func splitSentences(text string) []string {
	var out []string
	var sb strings.Builder

	flush := func() {
		if s := strings.TrimSpace(sb.String()); s != "" {
			out = append(out, s)
		}
		sb.Reset()
	}

	runes := []rune(strings.TrimSpace(text))
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == '\n' {
			flush()
			continue
		}
		sb.WriteRune(r)
		if isTerminal(r) && i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
			flush()
		}
	}
	flush()
	return out
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
