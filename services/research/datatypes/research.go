// Copyright (C) 2025 Nebula Labs (oss@nebulalabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes provides data structures for the research service.
//
// This file contains the core retrieval types shared across the pipeline:
// search hits, fetched documents, compressed factlets, and the streaming
// request. For the planner output types, see plan.go. For the streamed
// event union, see events.go.
package datatypes

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// =============================================================================
// Limits
// =============================================================================

const (
	// MaxQuestionBytes is the maximum size of an incoming question.
	MaxQuestionBytes = 8 * 1024

	// MaxFactletChars is the maximum length of a single factlet line.
	MaxFactletChars = 280

	// MaxExcerptChars is the maximum length of a read-event excerpt.
	MaxExcerptChars = 600
)

// researchValidate is the shared validator instance for research datatypes.
var researchValidate = validator.New()

// =============================================================================
// Streaming Request
// =============================================================================

// StreamChatRequest is the query-string request for GET /api/stream_chat.
//
// Mode selects the answering pipeline:
//   - "fast": single direct LLM call, no retrieval.
//   - "thorough": two-pass retrieval, synthesis, and verification.
//
// An empty mode defaults to "fast".
type StreamChatRequest struct {
	Question string `form:"question" validate:"required,max=8192"`
	Mode     string `form:"mode" validate:"omitempty,oneof=fast thorough"`
}

// Validate checks the request against its validation tags.
func (r *StreamChatRequest) Validate() error {
	return researchValidate.Struct(r)
}

// =============================================================================
// Chat Types
// =============================================================================

// Message is a single role/content chat turn for a language-model call.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// =============================================================================
// Retrieval Types
// =============================================================================

// SearchHit is a single web search result, tagged with the query that
// produced it. Hits are ephemeral; they exist between the search call and
// dedup.
type SearchHit struct {
	Query string `json:"query,omitempty"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Document is a fetched and extracted page. Text is bounded-length main
// content. Documents are never mutated after the fetcher creates them.
type Document struct {
	URL  string `json:"url"`
	Host string `json:"host"`
	Text string `json:"text"`
}

// Factlet is a short evidence-bearing line extracted from a kept document.
// Doc is the 1-based index of the source document in the kept set.
type Factlet struct {
	Doc  int    `json:"doc"`
	URL  string `json:"url"`
	Host string `json:"host"`
	Text string `json:"text"`
}

// =============================================================================
// Host Normalisation
// =============================================================================

var hostPattern = regexp.MustCompile(`(?i)^https?://([^/]+)`)

// HostOf extracts the lowercase host from an http(s) URL, stripping a
// leading "www.". Returns "" for anything that is not an http(s) URL. All
// per-host caps and trust lookups key on this normalised form.
func HostOf(url string) string {
	m := hostPattern.FindStringSubmatch(url)
	if m == nil {
		return ""
	}
	h := strings.ToLower(m[1])
	return strings.TrimPrefix(h, "www.")
}
