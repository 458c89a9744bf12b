// Copyright (C) 2025 Nebula Labs (oss@nebulalabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfigFromEnv_Defaults(t *testing.T) {
	cfg := ConfigFromEnv()

	assert.Equal(t, 300*time.Second, cfg.TargetBudget)
	assert.Equal(t, 330*time.Second, cfg.HardBudget)
	assert.Equal(t, 6, cfg.Stage1Queries)
	assert.Equal(t, 5, cfg.Stage2Queries)
	assert.Equal(t, 10, cfg.PerQueryResults)
	assert.Equal(t, int64(10), cfg.FetchConcurrency)
	assert.Equal(t, 2, cfg.MaxPerHost)
	assert.Equal(t, 12, cfg.MaxDocsStage1)
	assert.Equal(t, 24, cfg.MaxDocsTotal)
}

func TestConfigFromEnv_Overrides(t *testing.T) {
	t.Setenv("NEBULA_FAST_MODEL", "test-fast")
	t.Setenv("NEBULA_THOROUGH_MODEL", "test-thorough")
	t.Setenv("NEBULA_TARGET_BUDGET_SECONDS", "60")
	t.Setenv("NEBULA_HARD_BUDGET_SECONDS", "90")
	t.Setenv("NEBULA_PER_QUERY_RESULTS", "3")
	t.Setenv("NEBULA_FETCH_CONCURRENCY", "2")

	cfg := ConfigFromEnv()

	assert.Equal(t, "test-fast", cfg.FastModel)
	assert.Equal(t, "test-thorough", cfg.ThoroughModel)
	assert.Equal(t, 60*time.Second, cfg.TargetBudget)
	assert.Equal(t, 90*time.Second, cfg.HardBudget)
	assert.Equal(t, 3, cfg.PerQueryResults)
	assert.Equal(t, int64(2), cfg.FetchConcurrency)
}

func TestConfigFromEnv_IgnoresUnparseableValues(t *testing.T) {
	t.Setenv("NEBULA_TARGET_BUDGET_SECONDS", "not-a-number")
	t.Setenv("NEBULA_FETCH_CONCURRENCY", "-1")

	cfg := ConfigFromEnv()
	assert.Equal(t, 300*time.Second, cfg.TargetBudget)
	assert.Equal(t, int64(10), cfg.FetchConcurrency)
}
