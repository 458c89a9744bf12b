// Copyright (C) 2025 Nebula Labs (oss@nebulalabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSSEScanner_ParsesFrames(t *testing.T) {
	stream := "event: status\ndata: {\"state\":\"Searching\"}\n\n" +
		": keep-alive\n\n" +
		"event: progress\ndata: {\"pct\":15}\n\n"

	sc := newSSEScanner(strings.NewReader(stream))

	ev, err := sc.Next()
	require.NoError(t, err)
	assert.Equal(t, "status", ev.Name)
	assert.Equal(t, `{"state":"Searching"}`, ev.Data)

	ev, err = sc.Next()
	require.NoError(t, err)
	assert.Equal(t, "progress", ev.Name)
	assert.Equal(t, `{"pct":15}`, ev.Data)

	_, err = sc.Next()
	assert.Equal(t, io.EOF, err)
}

func TestSSEScanner_MultiLineData(t *testing.T) {
	stream := "event: final\ndata: line one\ndata: line two\n\n"
	sc := newSSEScanner(strings.NewReader(stream))

	ev, err := sc.Next()
	require.NoError(t, err)
	assert.Equal(t, "final", ev.Name)
	assert.Equal(t, "line one\nline two", ev.Data)
}

func TestSSEScanner_UnterminatedFinalFrame(t *testing.T) {
	sc := newSSEScanner(strings.NewReader("event: status\ndata: {}\n"))

	ev, err := sc.Next()
	require.NoError(t, err)
	assert.Equal(t, "status", ev.Name)

	_, err = sc.Next()
	assert.Equal(t, io.EOF, err)
}

func TestRenderStream_FinalAnswerAndCitations(t *testing.T) {
	stream := "event: status\ndata: {\"state\":\"Synthesizing (evidence-only)\"}\n\n" +
		"event: final\ndata: {\"answer\":\"The answer.\",\"citations\":[\"https://a.com/1\",\"https://b.com/2\"]}\n\n" +
		"event: progress\ndata: {\"pct\":100}\n\n"

	var out, status strings.Builder
	err := renderStream(strings.NewReader(stream), &out, &status, false)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "The answer.")
	assert.Contains(t, out.String(), "1. https://a.com/1")
	assert.Contains(t, out.String(), "2. https://b.com/2")
	assert.Empty(t, status.String(), "non-interactive run stays quiet")
}

func TestRenderStream_InteractiveProgress(t *testing.T) {
	stream := "event: status\ndata: {\"state\":\"Searching the web (pass 1)\"}\n\n" +
		"event: progress\ndata: {\"pct\":15}\n\n"

	var out, status strings.Builder
	err := renderStream(strings.NewReader(stream), &out, &status, true)
	require.NoError(t, err)

	assert.Contains(t, status.String(), "Searching the web (pass 1)")
	assert.Contains(t, status.String(), "[15%]")
	assert.Empty(t, out.String())
}

func TestRenderStream_ErrorFrame(t *testing.T) {
	stream := "event: error\ndata: {\"message\":\"research run failed\"}\n\n"

	var out, status strings.Builder
	err := renderStream(strings.NewReader(stream), &out, &status, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "research run failed")
}
