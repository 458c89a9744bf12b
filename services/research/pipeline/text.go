// Copyright (C) 2025 Nebula Labs (oss@nebulalabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package pipeline implements the thorough research pipeline: query
// planning, two-pass web retrieval, composite ranking, evidence
// compression, synthesis, sentence-level verification, and citation
// validation, coordinated against soft/hard wall-clock budgets and
// reported as an ordered stream of typed progress events.
package pipeline

import (
	"regexp"
	"strings"
)

// termPattern matches the lowercase alphanumeric tokens (length >= 3) that
// every overlap computation in the pipeline is defined over.
var termPattern = regexp.MustCompile(`[a-z0-9]{3,}`)

// termSet tokenizes s into its set of terms.
func termSet(s string) map[string]struct{} {
	tokens := termPattern.FindAllString(strings.ToLower(s), -1)
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

// overlapRatio returns |a ∩ b| / |a|, the share of a's terms found in b.
// Returns 0 when a is empty.
func overlapRatio(a, b map[string]struct{}) float64 {
	if len(a) == 0 {
		return 0
	}
	shared := 0
	for t := range a {
		if _, ok := b[t]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(a))
}

// jaccard returns |a ∩ b| / |a ∪ b|. Returns 0 when either set is empty.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	shared := 0
	for t := range a {
		if _, ok := b[t]; ok {
			shared++
		}
	}
	union := len(a) + len(b) - shared
	return float64(shared) / float64(union)
}

// nearDuplicate reports whether two snippets exceed the near-duplicate
// Jaccard threshold of 0.8.
func nearDuplicate(a, b string) bool {
	return jaccard(termSet(a), termSet(b)) > 0.8
}

// truncateChars bounds s to at most n characters (runes, not bytes, so a
// multi-byte rune is never split).
func truncateChars(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
