// Copyright (C) 2025 Nebula Labs (oss@nebulalabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/nebulalabs/nebula/services/research/datatypes"
)

// =============================================================================
// SSE Writer
// =============================================================================

// sseWriter adapts an http.ResponseWriter into a datatypes.EventSink,
// writing each event as one SSE frame:
//
//	event: {type}
//	data: {json}
//
// # Thread Safety
//
// Safe for concurrent use; a mutex serializes frame writes so frames from
// different goroutines never interleave.
//
// # Limitations
//
//   - Requires an http.Flusher-compatible ResponseWriter
//   - Headers must be set via SetSSEHeaders before the first write
type sseWriter struct {
	writer  http.ResponseWriter
	flusher http.Flusher
	mu      sync.Mutex
}

// NewSSEWriter wraps w as an EventSink. Returns an error when w does not
// support http.Flusher; streaming without flushing would buffer the whole
// run into one burst.
func NewSSEWriter(w http.ResponseWriter) (datatypes.EventSink, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("ResponseWriter does not support http.Flusher")
	}
	return &sseWriter{writer: w, flusher: flusher}, nil
}

// Emit serializes the event payload and writes one SSE frame, flushing
// immediately. A write error means the client is gone; callers treat it
// as a stop signal, not a failure to report.
func (w *sseWriter) Emit(event datatypes.StreamEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(w.writer, "event: %s\ndata: %s\n\n", event.EventType(), data); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	w.flusher.Flush()
	return nil
}

// SetSSEHeaders configures the response headers for SSE streaming. Must
// run before the first body write. X-Accel-Buffering disables nginx
// proxy buffering.
func SetSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

var _ datatypes.EventSink = (*sseWriter)(nil)
