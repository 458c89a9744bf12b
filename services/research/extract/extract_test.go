// Copyright (C) 2025 Nebula Labs (oss@nebulalabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const articleHTML = `<!DOCTYPE html>
<html><head><title>Quarterly Report</title></head>
<body>
<nav><a href="/">Home</a><a href="/about">About</a></nav>
<article>
<h1>Quarterly Report</h1>
<p>Revenue grew twelve percent year over year, driven by strong subscription
renewals across the enterprise segment and continued expansion in Europe.</p>
<p>Free cash flow reached a record level for the third consecutive quarter,
and management raised full-year guidance accordingly.</p>
</article>
<footer>Copyright notice and unrelated boilerplate.</footer>
</body></html>`

func TestTextHTML(t *testing.T) {
	got := Text([]byte(articleHTML), "text/html; charset=utf-8", "https://example.com/report")
	assert.Contains(t, got, "Revenue grew twelve percent")
	assert.Contains(t, got, "full-year guidance")
}

func TestTextHTMLGarbage(t *testing.T) {
	got := Text([]byte("\x00\x01\x02 not really html"), "text/html", "https://example.com/x")
	// Best-effort: garbage either yields empty or near-empty text, never an error.
	assert.LessOrEqual(t, len(got), 64)
}

func TestTextPDFRouting(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		url         string
		want        bool
	}{
		{"declared pdf", "application/pdf", "https://example.com/doc", true},
		{"pdf extension", "application/octet-stream", "https://example.com/doc.pdf", true},
		{"uppercase extension", "", "https://example.com/DOC.PDF", true},
		{"html", "text/html", "https://example.com/doc", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isPDF(tt.contentType, tt.url))
		})
	}
}

func TestTextMalformedPDF(t *testing.T) {
	got := Text([]byte("%PDF-1.4 truncated nonsense"), "application/pdf", "https://example.com/doc.pdf")
	assert.Empty(t, got, "malformed PDF extracts to empty, not an error")
}

func TestTextEmptyInput(t *testing.T) {
	assert.Empty(t, Text(nil, "application/pdf", "https://example.com/a.pdf"))
	htmlOut := Text(nil, "text/html", "https://example.com/a")
	assert.Empty(t, strings.TrimSpace(htmlOut))
}
