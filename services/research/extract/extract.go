// Copyright (C) 2025 Nebula Labs (oss@nebulalabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package extract converts fetched bytes into best-effort plain text.
//
// Content is routed to PDF or HTML extraction based on the declared
// content type and the URL extension. Extraction never returns an error:
// anything unparseable yields an empty string and the caller drops the
// document. HTML goes through readability main-content extraction; PDF
// text is read page by page up to a fixed page cap.
package extract

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/go-shiori/go-readability"
	"github.com/ledongthuc/pdf"
)

// PDFPageMax caps how many pages of a PDF are extracted.
const PDFPageMax = 12

// Text extracts plain text from content fetched at sourceURL. contentType
// is the response's declared Content-Type header, possibly empty.
//
// Returns "" when nothing useful could be extracted; never panics even on
// hostile input (the PDF parser's panics are recovered internally).
func Text(content []byte, contentType, sourceURL string) string {
	if isPDF(contentType, sourceURL) {
		return pdfText(content)
	}
	return htmlText(content, sourceURL)
}

// isPDF routes on the declared type first, then the URL extension.
func isPDF(contentType, sourceURL string) bool {
	if strings.Contains(strings.ToLower(contentType), "pdf") {
		return true
	}
	return strings.HasSuffix(strings.ToLower(sourceURL), ".pdf")
}

// htmlText runs readability main-content extraction over an HTML page.
func htmlText(content []byte, sourceURL string) string {
	pageURL, err := url.Parse(sourceURL)
	if err != nil {
		pageURL = nil
	}
	article, err := readability.FromReader(bytes.NewReader(content), pageURL)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(article.TextContent)
}

// pdfText reads up to PDFPageMax pages of PDF text.
func pdfText(content []byte) (text string) {
	// The pdf package panics on some malformed files; a bad document is a
	// soft failure, not a crash.
	defer func() {
		if r := recover(); r != nil {
			text = ""
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return ""
	}

	var sb strings.Builder
	pages := reader.NumPage()
	if pages > PDFPageMax {
		pages = PDFPageMax
	}
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(content)
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String())
}
