// Copyright (C) 2025 Nebula Labs (oss@nebulalabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

// RetrievalGateTau is the threshold the gate score is compared against.
// Retrieval proceeds iff NeedsRetrieval or Gate() > RetrievalGateTau.
const RetrievalGateTau = 0.45

// PlanBudgets carries the per-plan time and result budgets.
type PlanBudgets struct {
	Seconds         float64 `json:"seconds"`
	PerQueryResults int     `json:"per_query_results"`
}

// Plan is the structured retrieval plan produced by the router model.
//
// A Plan is created once per planning stage and is immutable afterwards.
// Queries are already filtered to non-empty strings and truncated to the
// stage's query budget by the planner; downstream code may trust that.
type Plan struct {
	NeedsRetrieval bool        `json:"needs_retrieval"`
	Freshness      float64     `json:"freshness_required"`
	Uncertainty    float64     `json:"uncertainty"`
	Queries        []string    `json:"queries"`
	Budgets        PlanBudgets `json:"budgets"`
}

// Gate returns the retrieval gate score: the average of the freshness and
// uncertainty signals.
func (p Plan) Gate() float64 {
	return (p.Freshness + p.Uncertainty) / 2.0
}

// WantsRetrieval reports whether the pipeline should retrieve at all.
func (p Plan) WantsRetrieval() bool {
	return p.NeedsRetrieval || p.Gate() > RetrievalGateTau
}
