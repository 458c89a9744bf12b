// Copyright (C) 2025 Nebula Labs (oss@nebulalabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/nebulalabs/nebula/services/research/datatypes"
	"golang.org/x/time/rate"
)

const (
	ddgEndpoint = "https://lite.duckduckgo.com/lite/"

	// ddgRegion keeps queries in neutral global scope.
	ddgRegion = "wt-wt"

	ddgTimeout   = 25 * time.Second
	ddgUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// ddgLimiter enforces a global 1 QPS limit across all DuckDuckGo instances
// and goroutines in the process.
var ddgLimiter = rate.NewLimiter(rate.Every(time.Second), 1)

// DuckDuckGo scrapes DuckDuckGo's HTML lite interface. No API key needed.
type DuckDuckGo struct {
	client *http.Client
}

// NewDuckDuckGo creates a DuckDuckGo searcher with the standard backend
// timeout.
func NewDuckDuckGo() *DuckDuckGo {
	return &DuckDuckGo{client: &http.Client{Timeout: ddgTimeout}}
}

// NewDuckDuckGoWithClient creates a DuckDuckGo searcher using the supplied
// HTTP client. Useful for overriding the timeout in tests.
func NewDuckDuckGoWithClient(client *http.Client) *DuckDuckGo {
	return &DuckDuckGo{client: client}
}

// Search scrapes the lite HTML page for up to maxResults results.
func (d *DuckDuckGo) Search(ctx context.Context, query string, maxResults int) ([]datatypes.SearchHit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("query is empty")
	}
	if err := ddgLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("q", query)
	form.Set("kl", ddgRegion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ddgEndpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", ddgUserAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("duckduckgo http %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return parseLiteResults(string(body), maxResults), nil
}

var (
	// Result links on the lite page: <a ... class='result-link' href='URL'>TITLE</a>,
	// in either attribute order.
	ddgLinkPattern  = regexp.MustCompile(`<a[^>]*class=['"]result-link['"][^>]*href=['"]([^'"]+)['"][^>]*>([^<]+)</a>`)
	ddgLinkPattern2 = regexp.MustCompile(`<a[^>]*href=['"]([^'"]+)['"][^>]*class=['"]result-link['"][^>]*>([^<]+)</a>`)
)

// parseLiteResults extracts title/url pairs from the lite HTML page.
func parseLiteResults(html string, maxResults int) []datatypes.SearchHit {
	matches := ddgLinkPattern.FindAllStringSubmatch(html, -1)
	if len(matches) == 0 {
		matches = ddgLinkPattern2.FindAllStringSubmatch(html, -1)
	}

	var results []datatypes.SearchHit
	for _, m := range matches {
		if len(m) < 3 {
			continue
		}
		u := strings.TrimSpace(m[1])
		title := cleanEntities(strings.TrimSpace(m[2]))
		if u == "" || title == "" {
			continue
		}
		results = append(results, datatypes.SearchHit{Title: title, URL: u})
		if maxResults > 0 && len(results) >= maxResults {
			break
		}
	}
	return results
}

// cleanEntities decodes the handful of HTML entities DuckDuckGo emits in
// result titles.
func cleanEntities(s string) string {
	r := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&nbsp;", " ",
	)
	return r.Replace(s)
}
