// Copyright (C) 2025 Nebula Labs (oss@nebulalabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pipeline

import (
	"regexp"
	"sort"

	"github.com/nebulalabs/nebula/services/research/datatypes"
	"github.com/nebulalabs/nebula/services/research/store"
)

// Composite score weights. Relevance dominates; recency, learned host
// trust, and a crude structure signal fill out the rest.
const (
	weightRelevance = 0.40
	weightRecency   = 0.30
	weightTrust     = 0.20
	weightStructure = 0.10
)

// recencyPattern marks questions that care about fresh sources.
var recencyPattern = regexp.MustCompile(`(?i)\b(2024|2025|latest|recent|q[1-4])\b`)

// compositeScore rates one document against the question.
//
//	relevance = min(1, 1.5 x share of question terms present in the text)
//	recency   = 1.0 for recency-flavored questions, else 0.4
//	trust     = floored, clamped domain prior for the document's host
//	structure = 0.6 for texts longer than 800 chars, else 0.2
func compositeScore(question string, doc datatypes.Document, trust *store.TrustStore) float64 {
	textTerms := termSet(doc.Text)
	if len(textTerms) == 0 {
		return 0
	}
	overlap := overlapRatio(termSet(question), textTerms)
	relevance := min(1.0, 1.5*overlap)

	recency := 0.4
	if recencyPattern.MatchString(question) {
		recency = 1.0
	}

	structure := 0.2
	if len([]rune(doc.Text)) > 800 {
		structure = 0.6
	}

	return weightRelevance*relevance +
		weightRecency*recency +
		weightTrust*trust.Score(doc.Host) +
		weightStructure*structure
}

// rankDocuments sorts all fetched documents by composite score and
// greedily keeps a host-diverse subset: a fresh per-host counter
// (independent of the dedup-time one) admits documents in score order up
// to maxPerHost per host and maxTotal overall.
func rankDocuments(question string, docs []datatypes.Document, trust *store.TrustStore,
	maxPerHost, maxTotal int) []datatypes.Document {

	type scored struct {
		doc   datatypes.Document
		score float64
	}
	ranked := make([]scored, 0, len(docs))
	for _, d := range docs {
		ranked = append(ranked, scored{doc: d, score: compositeScore(question, d, trust)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	var kept []datatypes.Document
	hostCount := make(map[string]int)
	for _, s := range ranked {
		if hostCount[s.doc.Host] >= maxPerHost {
			continue
		}
		hostCount[s.doc.Host]++
		kept = append(kept, s.doc)
		if len(kept) >= maxTotal {
			break
		}
	}
	return kept
}
