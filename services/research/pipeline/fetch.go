// Copyright (C) 2025 Nebula Labs (oss@nebulalabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pipeline

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/nebulalabs/nebula/services/research/datatypes"
	"github.com/nebulalabs/nebula/services/research/extract"
	"golang.org/x/sync/semaphore"
)

const (
	// trustBumpSuccess rewards a host whose document fetched and extracted.
	trustBumpSuccess = 0.05
	// trustBumpFailure penalises a host whose URL was dropped.
	trustBumpFailure = -0.02
)

// fetchDocuments retrieves urls concurrently under the admission limiter,
// then walks the input order emitting read/extract events and trust bumps.
//
// Each URL is an isolated soft-failure domain: any error (network, status,
// decode, extraction) drops just that URL, with no retry. The stage joins
// on all admitted operations before returning, so the returned documents
// are complete for the pass, in input order.
func (c *Controller) fetchDocuments(ctx context.Context, urls []string,
	sink datatypes.EventSink) ([]datatypes.Document, error) {

	texts := make(map[string]string, len(urls))
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := semaphore.NewWeighted(c.cfg.FetchConcurrency)

	for _, u := range urls {
		// Cache hits short-circuit without taking a limiter slot. The map
		// is already shared with fetch goroutines from earlier iterations,
		// so even this write needs the lock.
		if text, ok := c.docs.Get(u); ok {
			mu.Lock()
			texts[u] = text
			mu.Unlock()
			continue
		}

		wg.Add(1)
		go func(u string) {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				return
			}
			defer sem.Release(1)

			text := c.fetchOne(ctx, u)
			if text == "" {
				return
			}
			c.docs.Put(u, text)
			mu.Lock()
			texts[u] = text
			mu.Unlock()
		}(u)
	}
	wg.Wait()

	var docs []datatypes.Document
	for _, u := range urls {
		host := datatypes.HostOf(u)
		text, ok := texts[u]
		if !ok || text == "" {
			c.trust.Bump(host, trustBumpFailure)
			c.metrics.CountFetch("dropped")
			continue
		}
		docs = append(docs, datatypes.Document{URL: u, Host: host, Text: text})
		c.trust.Bump(host, trustBumpSuccess)
		c.metrics.CountFetch("success")

		if err := sink.Emit(datatypes.ReadEvent{
			URL:     u,
			Excerpt: truncateChars(text, datatypes.MaxExcerptChars),
		}); err != nil {
			return docs, err
		}
		if err := sink.Emit(datatypes.ExtractEvent{
			URL:      u,
			Snippets: extractSnippets(text, snippetsPerDoc),
		}); err != nil {
			return docs, err
		}
	}

	if err := c.trust.Save(); err != nil {
		slog.Warn("trust store persist failed", "error", err)
	}
	return docs, nil
}

// fetchOne GETs a single URL and extracts its text. Returns "" on any
// failure; the caller treats that as a drop.
func (c *Controller) fetchOne(ctx context.Context, url string) string {
	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.FetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return ""
	}

	resp, err := c.fetchClient.Do(req)
	if err != nil {
		slog.Debug("fetch failed", "url", url, "error", err)
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Debug("fetch dropped on status", "url", url, "status", resp.StatusCode)
		return ""
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.BytesCap))
	if err != nil {
		return ""
	}

	text := extract.Text(body, resp.Header.Get("Content-Type"), url)
	return truncateChars(text, c.cfg.ExtractChars)
}
