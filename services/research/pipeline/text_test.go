// Copyright (C) 2025 Nebula Labs (oss@nebulalabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTermSet(t *testing.T) {
	set := termSet("The Q3 results: EPS up 12% YoY, guidance raised!")

	// Tokens shorter than three characters are dropped; case folds.
	assert.Contains(t, set, "results")
	assert.Contains(t, set, "eps")
	assert.Contains(t, set, "yoy")
	assert.Contains(t, set, "guidance")
	assert.NotContains(t, set, "q3")
	assert.NotContains(t, set, "up")
	assert.NotContains(t, set, "12")
}

func TestOverlapRatio(t *testing.T) {
	a := termSet("alpha beta gamma delta")
	b := termSet("alpha beta echo foxtrot")

	assert.InDelta(t, 0.5, overlapRatio(a, b), 0.001)
	assert.Equal(t, 0.0, overlapRatio(termSet(""), b))
	assert.Equal(t, 1.0, overlapRatio(a, a))
}

func TestJaccard(t *testing.T) {
	a := termSet("alpha beta gamma")
	b := termSet("beta gamma delta")

	// 2 shared / 4 union.
	assert.InDelta(t, 0.5, jaccard(a, b), 0.001)
	assert.Equal(t, 0.0, jaccard(a, termSet("")))
	assert.Equal(t, 1.0, jaccard(a, a))
}

func TestNearDuplicate(t *testing.T) {
	assert.True(t, nearDuplicate(
		"revenue grew twelve percent this quarter on strong demand",
		"revenue grew twelve percent this quarter on strong demand overall",
	))
	assert.False(t, nearDuplicate(
		"revenue grew twelve percent this quarter",
		"regulatory approval expected next fiscal year",
	))
	// Identical token sets at exactly 1.0 trip the strict > 0.8 threshold.
	assert.True(t, nearDuplicate("alpha beta gamma", "gamma beta alpha"))
}

func TestTruncateChars(t *testing.T) {
	assert.Equal(t, "abc", truncateChars("abcdef", 3))
	assert.Equal(t, "abc", truncateChars("abc", 10))
	assert.Equal(t, "", truncateChars("abc", 0))
	assert.Equal(t, "", truncateChars("abc", -1))

	// Runes, not bytes: a multi-byte rune is kept whole.
	s := strings.Repeat("é", 5)
	assert.Equal(t, "ééé", truncateChars(s, 3))
}
