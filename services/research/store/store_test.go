// Copyright (C) 2025 Nebula Labs (oss@nebulalabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nebulalabs/nebula/services/research/datatypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrustStoreDefaults(t *testing.T) {
	s := LoadTrustStore(filepath.Join(t.TempDir(), "prior.json"))
	assert.InDelta(t, 0.25, s.Score("never-seen.example.com"), 1e-9)
	assert.Equal(t, 0, s.Len())
}

func TestTrustStoreBumpClamps(t *testing.T) {
	s := LoadTrustStore(filepath.Join(t.TempDir(), "prior.json"))

	// Many positive bumps must not exceed 1.
	for i := 0; i < 50; i++ {
		s.Bump("good.example.com", 0.1)
	}
	assert.InDelta(t, 1.0, s.Score("good.example.com"), 1e-9)

	// Many negative bumps clamp the stored value at 0, but the read path
	// still applies the floor.
	for i := 0; i < 50; i++ {
		s.Bump("bad.example.com", -0.1)
	}
	assert.InDelta(t, TrustFloor, s.Score("bad.example.com"), 1e-9)
}

func TestTrustStoreEmptyHostIgnored(t *testing.T) {
	s := LoadTrustStore(filepath.Join(t.TempDir(), "prior.json"))
	s.Bump("", 0.5)
	assert.Equal(t, 0, s.Len())
}

func TestTrustStoreSaveReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "prior.json")
	s := LoadTrustStore(path)
	s.Bump("example.com", 0.05)
	require.NoError(t, s.Save())

	reloaded := LoadTrustStore(path)
	assert.InDelta(t, 0.30, reloaded.Score("example.com"), 1e-9)
}

func TestTrustStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prior.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s := LoadTrustStore(path)
	assert.Equal(t, 0, s.Len(), "corrupt file loads as empty, non-fatal")
}

func TestSearchCacheWriteOnce(t *testing.T) {
	c := LoadSearchCache(filepath.Join(t.TempDir(), "search.json"))

	first := []datatypes.SearchHit{{Title: "A", URL: "https://a.example.com"}}
	c.Put("q", first)
	c.Put("q", []datatypes.SearchHit{{Title: "B", URL: "https://b.example.com"}})

	got, ok := c.Get("q")
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, "A", got[0].Title, "second Put must not overwrite")
}

func TestSearchCacheEmptyResultsCached(t *testing.T) {
	c := LoadSearchCache(filepath.Join(t.TempDir(), "search.json"))
	c.Put("nothing found", nil)

	got, ok := c.Get("nothing found")
	assert.True(t, ok, "a query with zero results is still a cache entry")
	assert.Empty(t, got)
}

func TestSearchCacheSaveReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "search.json")
	c := LoadSearchCache(path)
	c.Put("q1", []datatypes.SearchHit{
		{Title: "T1", URL: "https://one.example.com"},
		{Title: "T2", URL: "https://two.example.com"},
	})
	require.NoError(t, c.Save())

	reloaded := LoadSearchCache(path)
	got, ok := reloaded.Get("q1")
	require.True(t, ok)
	require.Len(t, got, 2)
	assert.Equal(t, "https://one.example.com", got[0].URL, "order survives persistence")
	assert.Equal(t, "https://two.example.com", got[1].URL)
}

func TestSearchCacheCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "search.json")
	require.NoError(t, os.WriteFile(path, []byte("[1,2,3"), 0o644))

	c := LoadSearchCache(path)
	_, ok := c.Get("anything")
	assert.False(t, ok)
}

func TestDocCacheFirstWriteWins(t *testing.T) {
	c := NewDocCache()
	c.Put("https://example.com/a", "original")
	c.Put("https://example.com/a", "replacement")

	text, ok := c.Get("https://example.com/a")
	require.True(t, ok)
	assert.Equal(t, "original", text)

	_, ok = c.Get("https://example.com/missing")
	assert.False(t, ok)
}
