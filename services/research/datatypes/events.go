// Copyright (C) 2025 Nebula Labs (oss@nebulalabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

// =============================================================================
// Streamed Event Union
// =============================================================================

// StreamEvent is the closed union of progress events emitted by a research
// run. Each variant maps to one SSE frame: the EventType() becomes the SSE
// event name and the variant itself is serialised as the JSON data payload.
//
// The set of variants is fixed; the transport layer switches on EventType()
// and must not see anything outside this file.
type StreamEvent interface {
	// EventType returns the wire name of the event ("plan", "status", ...).
	EventType() string
}

// PlanEvent announces the run's intent and human-readable step list.
type PlanEvent struct {
	Intent string   `json:"intent"`
	Steps  []string `json:"steps"`
}

// StatusEvent reports the pipeline's current stage as display text.
type StatusEvent struct {
	State string `json:"state"`
}

// ProgressEvent reports overall completion as a percentage checkpoint.
type ProgressEvent struct {
	Pct int `json:"pct"`
}

// QueriesEvent carries the planned search queries for one pass.
type QueriesEvent struct {
	Items []string `json:"items"`
}

// SearchResult is the title/url pair carried inside a SearchEvent.
type SearchResult struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// SearchEvent reports the results of one issued search query.
type SearchEvent struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
}

// ReadEvent reports a successfully fetched document with a short excerpt.
type ReadEvent struct {
	URL     string `json:"url"`
	Excerpt string `json:"excerpt"`
}

// ExtractEvent reports the evidence snippets pulled from one document.
type ExtractEvent struct {
	URL      string   `json:"url"`
	Snippets []string `json:"snippets"`
}

// FinalEvent carries the verified answer and its citation list. It is
// terminal apart from the trailing progress(100) checkpoint.
type FinalEvent struct {
	Answer    string   `json:"answer"`
	Citations []string `json:"citations"`
}

// ErrorEvent carries a sanitized failure message and closes the stream.
type ErrorEvent struct {
	Message string `json:"message"`
}

func (PlanEvent) EventType() string     { return "plan" }
func (StatusEvent) EventType() string   { return "status" }
func (ProgressEvent) EventType() string { return "progress" }
func (QueriesEvent) EventType() string  { return "queries" }
func (SearchEvent) EventType() string   { return "search" }
func (ReadEvent) EventType() string     { return "read" }
func (ExtractEvent) EventType() string  { return "extract" }
func (FinalEvent) EventType() string    { return "final" }
func (ErrorEvent) EventType() string    { return "error" }

// Compile-time union membership checks.
var (
	_ StreamEvent = PlanEvent{}
	_ StreamEvent = StatusEvent{}
	_ StreamEvent = ProgressEvent{}
	_ StreamEvent = QueriesEvent{}
	_ StreamEvent = SearchEvent{}
	_ StreamEvent = ReadEvent{}
	_ StreamEvent = ExtractEvent{}
	_ StreamEvent = FinalEvent{}
	_ StreamEvent = ErrorEvent{}
)

// EventSink is the ordered consumer of a run's StreamEvents. The SSE writer
// implements it; tests substitute an in-memory recorder.
//
// Emit returns a non-nil error when the consumer can no longer accept
// events (client disconnect). The pipeline treats that as a cooperative
// stop signal and abandons remaining work at its next checkpoint.
type EventSink interface {
	Emit(event StreamEvent) error
}
