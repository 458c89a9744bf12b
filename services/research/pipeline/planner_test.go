// Copyright (C) 2025 Nebula Labs (oss@nebulalabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"bare object", `{"a": 1}`, `{"a": 1}`},
		{"surrounded by prose", "Here is the plan:\n```json\n{\"a\": 1}\n```\nDone.", `{"a": 1}`},
		{"no object", "no json here", ""},
		{"reversed braces", "} nothing {", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractJSONObject(tt.raw))
		})
	}
}

func TestParsePlan_WellFormed(t *testing.T) {
	raw := `{
		"needs_retrieval": false,
		"freshness_required": 0.9,
		"uncertainty": 0.3,
		"queries": ["q one", "q two"],
		"budgets": {"seconds": 120, "per_query_results": 4}
	}`
	p := parsePlan(raw, 6, 10, 300)

	assert.False(t, p.NeedsRetrieval)
	assert.InDelta(t, 0.9, p.Freshness, 0.001)
	assert.InDelta(t, 0.3, p.Uncertainty, 0.001)
	assert.Equal(t, []string{"q one", "q two"}, p.Queries)
	assert.InDelta(t, 120.0, p.Budgets.Seconds, 0.001)
	assert.Equal(t, 4, p.Budgets.PerQueryResults)
}

func TestParsePlan_DefaultsOnGarbage(t *testing.T) {
	for _, raw := range []string{"", "no json", `{"queries": "not a list"`, "{broken"} {
		p := parsePlan(raw, 6, 10, 300)

		assert.True(t, p.NeedsRetrieval, "raw=%q", raw)
		assert.InDelta(t, 0.6, p.Freshness, 0.001)
		assert.InDelta(t, 0.5, p.Uncertainty, 0.001)
		assert.Empty(t, p.Queries)
		require.NotNil(t, p.Queries)
		assert.InDelta(t, 300.0, p.Budgets.Seconds, 0.001)
		assert.Equal(t, 10, p.Budgets.PerQueryResults)
	}
}

func TestParsePlan_FiltersAndTruncatesQueries(t *testing.T) {
	raw := `{"queries": ["keep one", 42, "", "  ", null, "keep two", "keep three", "dropped by cap"]}`
	p := parsePlan(raw, 3, 10, 300)

	assert.Equal(t, []string{"keep one", "keep two", "keep three"}, p.Queries)
}

func TestParsePlan_IgnoresNonPositiveBudgets(t *testing.T) {
	raw := `{"budgets": {"seconds": -5, "per_query_results": 0}}`
	p := parsePlan(raw, 6, 10, 300)

	assert.InDelta(t, 300.0, p.Budgets.Seconds, 0.001)
	assert.Equal(t, 10, p.Budgets.PerQueryResults)
}

func TestPlan_ModelFailureYieldsDefaultedPlan(t *testing.T) {
	ctrl := newTestController(t, &scriptedLLM{Err: errors.New("down")}, &stubSearcher{})

	p := ctrl.plan(context.Background(), "anything", 6)

	assert.True(t, p.NeedsRetrieval)
	assert.Empty(t, p.Queries)
	assert.True(t, p.WantsRetrieval())
}
