// Copyright (C) 2025 Nebula Labs (oss@nebulalabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package store provides the research service's learned, persisted state:
// the domain trust store and the search result cache, plus the
// process-lifetime document cache.
//
// # Persistence Model
//
// Both persisted stores are whole-document JSON files under the cache
// directory. They are loaded once at startup (a missing or corrupt file
// yields an empty store, non-fatal) and rewritten in full on every save.
// There is no incremental append and no compaction. Save failures are
// reported to the caller, which logs and continues; the in-memory state
// remains usable for the current run.
//
// # Thread Safety
//
// Stores are shared across concurrent fetch operations and across runs.
// Each store guards its map with a mutex; values are soft learned signals,
// so last-writer-wins across save cycles is acceptable.
package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

const (
	// DefaultTrust is the prior score assumed for a host never seen before.
	DefaultTrust = 0.25

	// TrustFloor is the minimum effective score returned on read, so that
	// unseen or repeatedly-failing hosts are never zeroed out of ranking.
	TrustFloor = 0.15
)

// TrustStore is the persisted host -> trust score mapping in [0,1].
type TrustStore struct {
	path string

	mu     sync.Mutex
	scores map[string]float64
}

// LoadTrustStore reads the trust file at path. A missing or unparseable
// file yields an empty store; that is not an error.
func LoadTrustStore(path string) *TrustStore {
	s := &TrustStore{path: path, scores: make(map[string]float64)}
	data, err := os.ReadFile(path)
	if err != nil {
		return s
	}
	var scores map[string]float64
	if err := json.Unmarshal(data, &scores); err != nil || scores == nil {
		return s
	}
	s.scores = scores
	return s
}

// Score returns the effective trust for a host: the stored value (or
// DefaultTrust if unseen), floored at TrustFloor and capped at 1.
func (s *TrustStore) Score(host string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.scores[host]
	if !ok {
		v = DefaultTrust
	}
	return min(1.0, max(TrustFloor, v))
}

// Bump adds delta to the host's stored score, clamping the result to
// [0,1]. An empty host is ignored.
func (s *TrustStore) Bump(host string, delta float64) {
	if host == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.scores[host]
	if !ok {
		v = DefaultTrust
	}
	s.scores[host] = max(0.0, min(1.0, v+delta))
}

// Save rewrites the whole trust file. Best-effort: the caller decides
// whether a failure is worth more than a log line.
func (s *TrustStore) Save() error {
	s.mu.Lock()
	data, err := json.Marshal(s.scores)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o644)
}

// Len returns the number of hosts with a stored score.
func (s *TrustStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.scores)
}
