// Copyright (C) 2025 Nebula Labs (oss@nebulalabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/nebulalabs/nebula/services/research/datatypes"
	"github.com/spf13/cobra"
)

var askMode string

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question and stream the answer",
	Long: `ask streams a research run. In thorough mode the service plans
queries, searches the web, reads sources, and verifies every claim; fast
mode answers directly from the model.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAskCommand,
}

func init() {
	askCmd.Flags().StringVar(&askMode, "mode", "fast", "answering mode: fast or thorough")
	rootCmd.AddCommand(askCmd)
}

func runAskCommand(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")

	endpoint := serverBaseURL() + "/api/stream_chat?" + url.Values{
		"question": {question},
		"mode":     {askMode},
	}.Encode()

	client := &http.Client{Timeout: 10 * time.Minute}
	resp, err := client.Get(endpoint)
	if err != nil {
		return fmt.Errorf("connect to research service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("service returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	return renderStream(resp.Body, os.Stdout, os.Stderr,
		isatty.IsTerminal(os.Stderr.Fd()))
}

// renderStream consumes the SSE stream, writing live progress to status
// (suppressed when it is not a terminal) and the answer to out.
func renderStream(body io.Reader, out, status io.Writer, interactive bool) error {
	progress := func(format string, args ...any) {
		if interactive {
			fmt.Fprintf(status, format, args...)
		}
	}

	scanner := newSSEScanner(body)
	for {
		frame, err := scanner.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read stream: %w", err)
		}

		switch frame.Name {
		case "status":
			var ev datatypes.StatusEvent
			if json.Unmarshal([]byte(frame.Data), &ev) == nil {
				progress("... %s\n", ev.State)
			}
		case "progress":
			var ev datatypes.ProgressEvent
			if json.Unmarshal([]byte(frame.Data), &ev) == nil {
				progress("    [%d%%]\n", ev.Pct)
			}
		case "queries":
			var ev datatypes.QueriesEvent
			if json.Unmarshal([]byte(frame.Data), &ev) == nil && len(ev.Items) > 0 {
				progress("    queries: %s\n", strings.Join(ev.Items, " | "))
			}
		case "read":
			var ev datatypes.ReadEvent
			if json.Unmarshal([]byte(frame.Data), &ev) == nil {
				progress("    reading %s\n", ev.URL)
			}
		case "final":
			var ev datatypes.FinalEvent
			if err := json.Unmarshal([]byte(frame.Data), &ev); err != nil {
				return fmt.Errorf("decode final event: %w", err)
			}
			fmt.Fprintln(out, ev.Answer)
			if len(ev.Citations) > 0 {
				fmt.Fprintln(out, "\nSources:")
				for i, u := range ev.Citations {
					fmt.Fprintf(out, "%d. %s\n", i+1, u)
				}
			}
		case "error":
			var ev datatypes.ErrorEvent
			_ = json.Unmarshal([]byte(frame.Data), &ev)
			return fmt.Errorf("research run failed: %s", ev.Message)
		}
	}
}
