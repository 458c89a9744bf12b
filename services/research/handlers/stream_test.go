// Copyright (C) 2025 Nebula Labs (oss@nebulalabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/nebulalabs/nebula/services/llm"
	"github.com/nebulalabs/nebula/services/research/datatypes"
	"github.com/nebulalabs/nebula/services/research/pipeline"
	"github.com/nebulalabs/nebula/services/research/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test Setup
// =============================================================================

// MockLLMClient implements llm.LLMClient with a fixed response.
type MockLLMClient struct {
	Response string
	Err      error
	Calls    int
}

func (m *MockLLMClient) Chat(ctx context.Context, model string, messages []llm.Message,
	params llm.GenerationParams) (string, error) {
	m.Calls++
	return m.Response, m.Err
}

// MockSearcher implements search.Searcher, returning no hits.
type MockSearcher struct{}

func (MockSearcher) Search(ctx context.Context, query string, maxResults int) ([]datatypes.SearchHit, error) {
	return nil, nil
}

func newTestHandler(t *testing.T, mockLLM *MockLLMClient) *StreamChatHandler {
	t.Helper()
	dir := t.TempDir()
	ctrl := pipeline.NewController(
		mockLLM,
		MockSearcher{},
		store.LoadTrustStore(filepath.Join(dir, "domain_prior.json")),
		store.LoadSearchCache(filepath.Join(dir, "search_cache.json")),
		store.NewDocCache(),
		pipeline.DefaultConfig(),
		nil,
	)
	return NewStreamChatHandler(ctrl, nil)
}

func performStream(t *testing.T, h *StreamChatHandler, query url.Values) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/stream_chat?"+query.Encode(), nil)
	h.Handle(c)
	return rec
}

// sseFrame is a decoded event-name/payload pair.
type sseFrame struct {
	Event string
	Data  string
}

func parseFrames(t *testing.T, body string) []sseFrame {
	t.Helper()
	var frames []sseFrame
	for _, block := range strings.Split(strings.TrimSpace(body), "\n\n") {
		lines := strings.Split(block, "\n")
		require.Len(t, lines, 2, "frame %q", block)
		frames = append(frames, sseFrame{
			Event: strings.TrimPrefix(lines[0], "event: "),
			Data:  strings.TrimPrefix(lines[1], "data: "),
		})
	}
	return frames
}

// =============================================================================
// Tests
// =============================================================================

func TestStreamChat_MissingQuestionRejected(t *testing.T) {
	h := newTestHandler(t, &MockLLMClient{Response: "unused"})

	rec := performStream(t, h, url.Values{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStreamChat_InvalidModeRejected(t *testing.T) {
	h := newTestHandler(t, &MockLLMClient{Response: "unused"})

	rec := performStream(t, h, url.Values{"question": {"hi"}, "mode": {"turbo"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStreamChat_DefaultModeIsFast(t *testing.T) {
	mockLLM := &MockLLMClient{Response: "A short direct answer."}
	h := newTestHandler(t, mockLLM)

	rec := performStream(t, h, url.Values{"question": {"what is the capital of France?"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	frames := parseFrames(t, rec.Body.String())
	require.NotEmpty(t, frames)

	names := make([]string, 0, len(frames))
	for _, f := range frames {
		names = append(names, f.Event)
	}
	assert.Equal(t, []string{"plan", "status", "progress", "progress", "final", "progress"}, names)

	// One LLM call: the fast path never plans or searches.
	assert.Equal(t, 1, mockLLM.Calls)

	var final datatypes.FinalEvent
	require.NoError(t, json.Unmarshal([]byte(frames[4].Data), &final))
	assert.Equal(t, "A short direct answer.", final.Answer)
	require.NotNil(t, final.Citations)
	assert.Empty(t, final.Citations)

	var last datatypes.ProgressEvent
	require.NoError(t, json.Unmarshal([]byte(frames[5].Data), &last))
	assert.Equal(t, 100, last.Pct)
}

func TestStreamChat_PipelineErrorBecomesErrorFrame(t *testing.T) {
	h := newTestHandler(t, &MockLLMClient{Err: errors.New("model backend down")})

	rec := performStream(t, h, url.Values{"question": {"anything"}, "mode": {"fast"}})
	require.Equal(t, http.StatusOK, rec.Code, "stream already open; failure is a frame")

	frames := parseFrames(t, rec.Body.String())
	require.NotEmpty(t, frames)
	last := frames[len(frames)-1]
	assert.Equal(t, "error", last.Event)

	var ev datatypes.ErrorEvent
	require.NoError(t, json.Unmarshal([]byte(last.Data), &ev))
	assert.Equal(t, "research run failed", ev.Message)
	assert.NotContains(t, ev.Message, "backend down", "internal detail must not leak")
}

func TestStreamChat_ThoroughModeWithNoResultsStillFinalizes(t *testing.T) {
	// The planner response keeps retrieval on but the searcher finds
	// nothing, so the run verifies an answer against empty evidence.
	mockLLM := &MockLLMClient{Response: `{"needs_retrieval": true, "queries": ["q"]}`}
	h := newTestHandler(t, mockLLM)

	rec := performStream(t, h, url.Values{"question": {"anything"}, "mode": {"thorough"}})
	require.Equal(t, http.StatusOK, rec.Code)

	frames := parseFrames(t, rec.Body.String())
	require.NotEmpty(t, frames)
	assert.Equal(t, "progress", frames[len(frames)-1].Event)
	assert.Equal(t, "final", frames[len(frames)-2].Event)
}
