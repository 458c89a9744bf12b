// Copyright (C) 2025 Nebula Labs (oss@nebulalabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pipeline

import "time"

// BudgetClock tracks a run's elapsed wall-clock time against a soft target
// and a hard cutoff.
//
// Only new search-query issuance consults the hard cutoff; fetch, ranking,
// compression, synthesis, and verification run to completion regardless,
// so a run can overrun the hard budget when those stages are slow.
type BudgetClock struct {
	start time.Time
	soft  time.Duration
	hard  time.Duration
}

// NewBudgetClock starts a clock with the given soft target and hard cutoff.
func NewBudgetClock(soft, hard time.Duration) *BudgetClock {
	return &BudgetClock{start: time.Now(), soft: soft, hard: hard}
}

// Elapsed returns the wall-clock time since the run started.
func (b *BudgetClock) Elapsed() time.Duration {
	return time.Since(b.start)
}

// HardExceeded reports whether the hard cutoff has passed. Once true, no
// further search queries are issued in the current pass.
func (b *BudgetClock) HardExceeded() bool {
	return b.Elapsed() > b.hard
}

// SoftExceeded reports whether the soft target has passed.
func (b *BudgetClock) SoftExceeded() bool {
	return b.Elapsed() > b.soft
}

// SoftTarget returns the soft budget, used to seed planner budgets.
func (b *BudgetClock) SoftTarget() time.Duration {
	return b.soft
}
