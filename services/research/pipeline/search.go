// Copyright (C) 2025 Nebula Labs (oss@nebulalabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pipeline

import (
	"context"
	"log/slog"
	"regexp"

	"github.com/nebulalabs/nebula/services/research/datatypes"
)

// =============================================================================
// Search Orchestration
// =============================================================================

// searchPass issues one pass's planned queries in order. The hard budget
// is checked before each query: once exceeded, remaining queries in the
// pass are skipped (results from already-issued queries are kept). Each
// issued query emits one search event.
//
// A backend failure is scoped to its query and contributes zero results.
func (c *Controller) searchPass(ctx context.Context, queries []string, perQuery int,
	clock *BudgetClock, sink datatypes.EventSink) ([]datatypes.SearchHit, error) {

	var all []datatypes.SearchHit
	for _, q := range queries {
		if clock.HardExceeded() {
			slog.Info("hard budget exceeded, skipping remaining queries",
				"elapsed", clock.Elapsed(), "skipped_at", q)
			break
		}
		hits := c.cachedSearch(ctx, q, perQuery)

		results := make([]datatypes.SearchResult, 0, len(hits))
		for _, h := range hits {
			all = append(all, datatypes.SearchHit{Query: q, Title: h.Title, URL: h.URL})
			results = append(results, datatypes.SearchResult{Title: h.Title, URL: h.URL})
		}
		if err := sink.Emit(datatypes.SearchEvent{Query: q, Results: results}); err != nil {
			return all, err
		}
	}
	return all, nil
}

// cachedSearch resolves a query through the search result cache,
// write-through on miss. Cache persistence failures are swallowed; the
// in-memory entry still serves the rest of the process lifetime.
func (c *Controller) cachedSearch(ctx context.Context, query string, perQuery int) []datatypes.SearchHit {
	if hits, ok := c.searches.Get(query); ok {
		slog.Debug("search cache hit", "query", query, "hits", len(hits))
		c.metrics.CountSearch("hit")
		return hits
	}
	c.metrics.CountSearch("miss")

	hits, err := c.searcher.Search(ctx, query, perQuery)
	if err != nil {
		slog.Warn("search backend failed for query", "query", query, "error", err)
		hits = nil
	}

	c.searches.Put(query, hits)
	if err := c.searches.Save(); err != nil {
		slog.Warn("search cache persist failed", "error", err)
	}
	return hits
}

// =============================================================================
// Dedup / Host Cap
// =============================================================================

var httpSchemePattern = regexp.MustCompile(`(?i)^https?://`)

// acceptSet tracks URL and per-host acceptances cumulatively across both
// passes of a run. This is the dedup-time counter; ranking keeps its own
// independent one.
type acceptSet struct {
	seen    map[string]struct{}
	perHost map[string]int
}

func newAcceptSet() *acceptSet {
	return &acceptSet{
		seen:    make(map[string]struct{}),
		perHost: make(map[string]int),
	}
}

// seedDocuments marks already-fetched documents as accepted so pass 2
// cannot re-admit their URLs or overfill their hosts.
func (a *acceptSet) seedDocuments(docs []datatypes.Document) {
	for _, d := range docs {
		a.seen[d.URL] = struct{}{}
		a.perHost[d.Host]++
	}
}

// accept admits url if it has an http(s) scheme, was not accepted before,
// and its host is below maxPerHost. Admission increments the host counter.
func (a *acceptSet) accept(url string, maxPerHost int) bool {
	if !httpSchemePattern.MatchString(url) {
		return false
	}
	if _, dup := a.seen[url]; dup {
		return false
	}
	host := datatypes.HostOf(url)
	if a.perHost[host] >= maxPerHost {
		return false
	}
	a.seen[url] = struct{}{}
	a.perHost[host]++
	return true
}

// dedupe filters hits in arrival order against acc and returns up to
// limit accepted URLs. Admission stops at the limit: hits past it are
// left unmarked so a later pass can still admit them.
func dedupe(hits []datatypes.SearchHit, acc *acceptSet, maxPerHost, limit int) []string {
	if limit < 0 {
		limit = 0
	}
	var urls []string
	for _, h := range hits {
		if len(urls) >= limit {
			break
		}
		if !acc.accept(h.URL, maxPerHost) {
			continue
		}
		urls = append(urls, h.URL)
	}
	return urls
}
