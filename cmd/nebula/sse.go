// Copyright (C) 2025 Nebula Labs (oss@nebulalabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"bufio"
	"io"
	"strings"
)

// sseEvent is one parsed server-sent event frame.
type sseEvent struct {
	Name string
	Data string
}

// sseScanner incrementally parses an SSE byte stream into frames.
//
// Only the "event:" and "data:" fields are interpreted; comments and
// unknown fields are skipped. Multi-line data fields are joined with
// newlines per the SSE format.
type sseScanner struct {
	scanner *bufio.Scanner
}

func newSSEScanner(r io.Reader) *sseScanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	return &sseScanner{scanner: sc}
}

// Next returns the next complete frame, or io.EOF when the stream ends.
func (s *sseScanner) Next() (sseEvent, error) {
	var ev sseEvent
	var data []string
	seen := false

	for s.scanner.Scan() {
		line := s.scanner.Text()
		switch {
		case line == "":
			if seen {
				ev.Data = strings.Join(data, "\n")
				return ev, nil
			}
		case strings.HasPrefix(line, ":"):
			// comment / keep-alive
		case strings.HasPrefix(line, "event:"):
			ev.Name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			seen = true
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
			seen = true
		}
	}
	if err := s.scanner.Err(); err != nil {
		return sseEvent{}, err
	}
	if seen {
		ev.Data = strings.Join(data, "\n")
		return ev, nil
	}
	return sseEvent{}, io.EOF
}
