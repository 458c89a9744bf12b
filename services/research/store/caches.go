// Copyright (C) 2025 Nebula Labs (oss@nebulalabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/nebulalabs/nebula/services/research/datatypes"
)

// =============================================================================
// Search Result Cache
// =============================================================================

// SearchCache is the persisted query -> ordered result list mapping.
// Entries are written once per distinct query and never invalidated or
// overwritten; a stale hit is preferred over a second backend call.
type SearchCache struct {
	path string

	mu      sync.Mutex
	entries map[string][]datatypes.SearchHit
}

// LoadSearchCache reads the cache file at path. A missing or unparseable
// file yields an empty cache; that is not an error.
func LoadSearchCache(path string) *SearchCache {
	c := &SearchCache{path: path, entries: make(map[string][]datatypes.SearchHit)}
	data, err := os.ReadFile(path)
	if err != nil {
		return c
	}
	var entries map[string][]datatypes.SearchHit
	if err := json.Unmarshal(data, &entries); err != nil || entries == nil {
		return c
	}
	c.entries = entries
	return c
}

// Get returns the cached results for query, if any.
func (c *SearchCache) Get(query string) ([]datatypes.SearchHit, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	hits, ok := c.entries[query]
	return hits, ok
}

// Put stores the results for query unless the query is already present.
// The cache is write-once per distinct query.
func (c *SearchCache) Put(query string, hits []datatypes.SearchHit) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[query]; ok {
		return
	}
	if hits == nil {
		hits = []datatypes.SearchHit{}
	}
	c.entries[query] = hits
}

// Save rewrites the whole cache file.
func (c *SearchCache) Save() error {
	c.mu.Lock()
	data, err := json.Marshal(c.entries)
	c.mu.Unlock()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(c.path, data, 0o644)
}

// =============================================================================
// Document Cache
// =============================================================================

// DocCache is the in-memory url -> extracted text cache. It lives for the
// process lifetime, is shared across runs, and is never persisted.
type DocCache struct {
	mu   sync.Mutex
	docs map[string]string
}

// NewDocCache creates an empty document cache.
func NewDocCache() *DocCache {
	return &DocCache{docs: make(map[string]string)}
}

// Get returns the cached text for url, if any.
func (c *DocCache) Get(url string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	text, ok := c.docs[url]
	return text, ok
}

// Put stores the extracted text for url. First write wins; a URL's text
// does not change within a process lifetime.
func (c *DocCache) Put(url, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.docs[url]; ok {
		return
	}
	c.docs[url] = text
}
