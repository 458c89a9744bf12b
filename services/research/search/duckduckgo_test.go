// Copyright (C) 2025 Nebula Labs (oss@nebulalabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const liteFixture = `
<html><body><table>
<tr><td><a rel="nofollow" class='result-link' href='https://example.com/one'>First &amp; Best</a></td></tr>
<tr><td class='result-snippet'>snippet one</td></tr>
<tr><td><a rel="nofollow" class='result-link' href='https://example.org/two'>Second</a></td></tr>
<tr><td class='result-snippet'>snippet two</td></tr>
<tr><td><a rel="nofollow" class='result-link' href='https://example.net/three'>Third</a></td></tr>
</table></body></html>`

func TestParseLiteResults(t *testing.T) {
	results := parseLiteResults(liteFixture, 0)
	require.Len(t, results, 3)
	assert.Equal(t, "First & Best", results[0].Title, "entities are decoded")
	assert.Equal(t, "https://example.com/one", results[0].URL)
	assert.Equal(t, "https://example.net/three", results[2].URL)
}

func TestParseLiteResultsMaxResults(t *testing.T) {
	results := parseLiteResults(liteFixture, 2)
	require.Len(t, results, 2)
	assert.Equal(t, "https://example.org/two", results[1].URL)
}

func TestParseLiteResultsEmptyPage(t *testing.T) {
	assert.Empty(t, parseLiteResults("<html><body>no results</body></html>", 10))
}

func TestDuckDuckGoSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "test query", r.Form.Get("q"))
		assert.Equal(t, ddgRegion, r.Form.Get("kl"))
		_, _ = w.Write([]byte(liteFixture))
	}))
	defer srv.Close()

	d := NewDuckDuckGoWithClient(srv.Client())
	// Point the request at the fixture server by rewriting via transport.
	d.client.Transport = rewriteHost(srv.URL)

	hits, err := d.Search(context.Background(), "test query", 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "First & Best", hits[0].Title)
}

func TestDuckDuckGoEmptyQuery(t *testing.T) {
	d := NewDuckDuckGo()
	_, err := d.Search(context.Background(), "   ", 5)
	assert.Error(t, err)
}

// rewriteHost returns a RoundTripper that redirects every request to the
// test server regardless of the original URL.
func rewriteHost(target string) http.RoundTripper {
	return roundTripFunc(func(req *http.Request) (*http.Response, error) {
		redirected := *req
		u := *req.URL
		parsed, err := http.NewRequest(req.Method, target, req.Body)
		if err != nil {
			return nil, err
		}
		u.Scheme = parsed.URL.Scheme
		u.Host = parsed.URL.Host
		redirected.URL = &u
		return http.DefaultTransport.RoundTrip(&redirected)
	})
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
