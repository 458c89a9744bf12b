// Copyright (C) 2025 Nebula Labs (oss@nebulalabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nebulalabs/nebula/services/research/datatypes"
	"github.com/nebulalabs/nebula/services/research/observability"
	"github.com/nebulalabs/nebula/services/research/pipeline"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("nebula.research.handlers")

// =============================================================================
// Stream Chat Handler
// =============================================================================

// StreamChatHandler serves GET /api/stream_chat: it validates the request,
// opens an SSE stream, and runs the research pipeline against it.
//
// # Description
//
// The handler owns the stream's envelope: SSE headers, the run ID, the
// top-level panic guard, and the single error frame emitted when the
// pipeline fails outright. Everything between the first and last frame is
// the pipeline's.
//
// # Limitations
//
//   - One run per request; there is no session resumption.
type StreamChatHandler struct {
	controller *pipeline.Controller
	metrics    *observability.Metrics
}

// NewStreamChatHandler wires a StreamChatHandler. Panics on a nil
// controller; metrics may be nil.
func NewStreamChatHandler(controller *pipeline.Controller, metrics *observability.Metrics) *StreamChatHandler {
	if controller == nil {
		panic("handlers: pipeline controller is required")
	}
	return &StreamChatHandler{controller: controller, metrics: metrics}
}

// Handle runs one streamed research request.
//
// Validation failures are plain HTTP 400s; once the SSE stream opens, all
// failures travel as error frames instead, since the 200 header is
// already on the wire.
func (h *StreamChatHandler) Handle(c *gin.Context) {
	var req datatypes.StreamChatRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Mode == "" {
		req.Mode = pipeline.ModeFast
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	runID := uuid.New().String()
	ctx, span := tracer.Start(c.Request.Context(), "handlers.StreamChat")
	defer span.End()
	span.SetAttributes(
		attribute.String("run.id", runID),
		attribute.String("run.mode", req.Mode),
	)

	SetSSEHeaders(c.Writer)
	sink, err := NewSSEWriter(c.Writer)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming not supported"})
		return
	}

	h.metrics.StreamOpened()
	defer h.metrics.StreamClosed()

	start := time.Now()
	status := "ok"
	defer func() {
		if r := recover(); r != nil {
			status = "panic"
			slog.Error("research run panicked", "run_id", runID, "panic", r)
			_ = sink.Emit(datatypes.ErrorEvent{Message: "internal error"})
		}
		h.metrics.CountRun(req.Mode, status)
		slog.Info("research run finished", "run_id", runID, "mode", req.Mode,
			"status", status, "duration", time.Since(start))
	}()

	slog.Info("research run started", "run_id", runID, "mode", req.Mode,
		"question_bytes", len(req.Question))

	if err := h.controller.Run(ctx, req.Question, req.Mode, sink); err != nil {
		status = "error"
		slog.Error("research run failed", "run_id", runID, "error", err)
		_ = sink.Emit(datatypes.ErrorEvent{Message: "research run failed"})
	}
}
