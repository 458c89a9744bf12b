// Copyright (C) 2025 Nebula Labs (oss@nebulalabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package search provides web search backends for the research pipeline.
//
// A backend answers one query with an ordered list of title/url hits in
// global (region-neutral) scope. Backends are treated as cacheable by the
// pipeline: identical query strings must be answerable from the search
// cache without a second backend call, so backends should not embed
// per-call state in their results.
package search

import (
	"context"

	"github.com/nebulalabs/nebula/services/research/datatypes"
)

// Searcher is the query -> results service consumed by the pipeline.
//
// Implementations return at most maxResults hits, best first. A failed
// search is scoped to its query: the pipeline logs it and proceeds with
// zero results rather than aborting the run.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]datatypes.SearchHit, error)
}
