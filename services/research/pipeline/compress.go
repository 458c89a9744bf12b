// Copyright (C) 2025 Nebula Labs (oss@nebulalabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pipeline

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/nebulalabs/nebula/services/research/datatypes"
)

const (
	// snippetsPerDoc caps pattern-matched lines collected per document.
	snippetsPerDoc = 8
	// factletsPerDoc caps factlet candidates taken from one document.
	factletsPerDoc = 10
	// maxFactlets caps the global factlet list.
	maxFactlets = 600
	// evidenceBlobChars caps the rendered evidence blob.
	evidenceBlobChars = 120_000
)

// evidencePattern is the fixed financial/regulatory domain-signal set a
// line must match to count as evidence-bearing.
var evidencePattern = regexp.MustCompile(`(?i)` + strings.Join([]string{
	`\bEPS\b`,
	`\bYoY\b`,
	`\bfree cash flow\b`,
	`\bguidance\b`,
	`\bmoat\b`,
	`\bmarket share\b`,
	`\bforecast\b`,
	`\bresult(s)?\b`,
	`\bregulat(?:ion|ory)\b`,
	`\bquarter\b`,
	`\bFY20(24|25)\b`,
}, "|"))

// extractSnippets scans a document's non-empty lines for domain-signal
// matches, collecting up to maxSnippets lines truncated to the factlet
// length. When nothing matches, the first maxSnippets non-empty lines
// stand in so every document contributes something.
func extractSnippets(text string, maxSnippets int) []string {
	var lines []string
	for _, ln := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(ln); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}

	var hits []string
	for _, ln := range lines {
		if evidencePattern.MatchString(ln) {
			hits = append(hits, truncateChars(ln, datatypes.MaxFactletChars))
		}
		if len(hits) >= maxSnippets {
			break
		}
	}
	if len(hits) == 0 {
		for _, ln := range lines {
			hits = append(hits, truncateChars(ln, datatypes.MaxFactletChars))
			if len(hits) >= maxSnippets {
				break
			}
		}
	}
	return hits
}

// compressToFactlets turns the kept documents into a deduplicated global
// factlet list. Candidates arrive in kept-document order; a candidate is
// skipped when its token-Jaccard similarity to any already-accepted
// factlet exceeds the near-duplicate threshold. The list stops at
// maxFactlets.
func compressToFactlets(kept []datatypes.Document) []datatypes.Factlet {
	var candidates []datatypes.Factlet
	for i, d := range kept {
		snips := extractSnippets(d.Text, snippetsPerDoc)
		if len(snips) > factletsPerDoc {
			snips = snips[:factletsPerDoc]
		}
		for _, s := range snips {
			candidates = append(candidates, datatypes.Factlet{
				Doc:  i + 1,
				URL:  d.URL,
				Host: d.Host,
				Text: s,
			})
		}
	}

	var keep []datatypes.Factlet
	for _, f := range candidates {
		dup := false
		for _, g := range keep {
			if nearDuplicate(f.Text, g.Text) {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		keep = append(keep, f)
		if len(keep) >= maxFactlets {
			break
		}
	}
	return keep
}

// renderEvidence builds the synthesis input: for each kept document in
// rank order, a "[n] url" header line followed by its accepted factlet
// lines, capped at the blob limit.
func renderEvidence(kept []datatypes.Document, factlets []datatypes.Factlet) string {
	var lines []string
	for i, d := range kept {
		lines = append(lines, fmt.Sprintf("[%d] %s", i+1, d.URL))
		for _, f := range factlets {
			if f.Doc == i+1 {
				lines = append(lines, "- "+f.Text)
			}
		}
	}
	return truncateChars(strings.Join(lines, "\n"), evidenceBlobChars)
}
