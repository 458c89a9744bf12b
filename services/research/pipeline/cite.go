// Copyright (C) 2025 Nebula Labs (oss@nebulalabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pipeline

import (
	"log/slog"
	"regexp"
	"sort"
	"strconv"

	"github.com/nebulalabs/nebula/services/research/datatypes"
)

const (
	// maxCitations caps the final citation list.
	maxCitations = 12
	// minCitationHosts is the source-diversity target whenever the kept
	// set is large enough to meet it.
	minCitationHosts = 3
	// trustBumpCited rewards each host that made the final citation list.
	trustBumpCited = 0.1
)

var citationIndexPattern = regexp.MustCompile(`\[(\d+)\]`)

// validateCitations extracts the bracket indices cited in the verified
// answer and maps the valid ones (1..len(kept)) to their document URLs in
// ascending index order. When the cited hosts span fewer than
// minCitationHosts and at least that many documents were kept, additional
// kept-document URLs from unrepresented hosts are appended (in kept
// order) until the diversity target is met or documents run out. The
// result is capped at maxCitations.
func validateCitations(answer string, kept []datatypes.Document) []string {
	indexSet := make(map[int]struct{})
	for _, m := range citationIndexPattern.FindAllStringSubmatch(answer, -1) {
		if n, err := strconv.Atoi(m[1]); err == nil {
			indexSet[n] = struct{}{}
		}
	}
	indices := make([]int, 0, len(indexSet))
	for n := range indexSet {
		indices = append(indices, n)
	}
	sort.Ints(indices)

	urls := []string{}
	hosts := make(map[string]struct{})
	for _, n := range indices {
		if n < 1 || n > len(kept) {
			continue
		}
		doc := kept[n-1]
		urls = append(urls, doc.URL)
		hosts[doc.Host] = struct{}{}
	}

	if len(hosts) < minCitationHosts && len(kept) >= minCitationHosts {
		for _, d := range kept {
			if _, ok := hosts[d.Host]; ok {
				continue
			}
			urls = append(urls, d.URL)
			hosts[d.Host] = struct{}{}
			if len(hosts) >= minCitationHosts {
				break
			}
		}
	}

	if len(urls) > maxCitations {
		urls = urls[:maxCitations]
	}
	return urls
}

// rewardCitedHosts bumps the trust score of every distinct host in the
// final citation list and persists the store.
func (c *Controller) rewardCitedHosts(citations []string) {
	hosts := make(map[string]struct{})
	for _, u := range citations {
		hosts[datatypes.HostOf(u)] = struct{}{}
	}
	for h := range hosts {
		c.trust.Bump(h, trustBumpCited)
	}
	if err := c.trust.Save(); err != nil {
		slog.Warn("trust store persist failed after citation rewards", "error", err)
	}
}
