// Copyright (C) 2025 Nebula Labs (oss@nebulalabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/nebulalabs/nebula/services/llm"
	"github.com/nebulalabs/nebula/services/research/datatypes"
)

// plan asks the router model for a retrieval plan. Model failures and
// malformed JSON never propagate: every missing field is defaulted, so the
// worst case is an empty-query plan that still wants retrieval.
func (c *Controller) plan(ctx context.Context, question string, maxQueries int) datatypes.Plan {
	messages := []llm.Message{
		{Role: "system", Content: routerSystemPrompt},
		{Role: "user", Content: routerUserPrompt(question, maxQueries, c.cfg.PerQueryResults)},
	}
	raw, err := c.llm.Chat(ctx, c.cfg.ThoroughModel, messages, llm.Temp(c.cfg.PlannerTemperature))
	if err != nil {
		slog.Warn("planner model call failed, using defaulted plan", "error", err)
		raw = ""
	}
	return parsePlan(raw, maxQueries, c.cfg.PerQueryResults, c.cfg.TargetBudget.Seconds())
}

// parsePlan tolerantly parses the model's response into a Plan.
//
// The outermost {...} substring is located and parsed; any parse failure
// yields an empty object. Missing fields get defaults: needs_retrieval
// true, freshness 0.6, uncertainty 0.5, empty queries, and the stage's
// budgets. Queries are filtered to non-empty strings and truncated to
// maxQueries.
func parsePlan(raw string, maxQueries, perQueryResults int, targetSeconds float64) datatypes.Plan {
	loose := parseLoosePlan(extractJSONObject(raw))

	p := datatypes.Plan{
		NeedsRetrieval: true,
		Freshness:      0.6,
		Uncertainty:    0.5,
		Queries:        []string{},
		Budgets: datatypes.PlanBudgets{
			Seconds:         targetSeconds,
			PerQueryResults: perQueryResults,
		},
	}
	if loose.NeedsRetrieval != nil {
		p.NeedsRetrieval = *loose.NeedsRetrieval
	}
	if loose.Freshness != nil {
		p.Freshness = *loose.Freshness
	}
	if loose.Uncertainty != nil {
		p.Uncertainty = *loose.Uncertainty
	}
	for _, q := range loose.Queries {
		s, ok := q.(string)
		if !ok || strings.TrimSpace(s) == "" {
			continue
		}
		p.Queries = append(p.Queries, s)
		if len(p.Queries) >= maxQueries {
			break
		}
	}
	if loose.Budgets != nil {
		if loose.Budgets.Seconds > 0 {
			p.Budgets.Seconds = loose.Budgets.Seconds
		}
		if loose.Budgets.PerQueryResults > 0 {
			p.Budgets.PerQueryResults = loose.Budgets.PerQueryResults
		}
	}
	return p
}

// loosePlan is the permissive wire shape of the router's JSON. Pointer
// fields distinguish absent from zero; queries stay untyped so non-string
// entries can be filtered instead of failing the whole parse.
type loosePlan struct {
	NeedsRetrieval *bool                  `json:"needs_retrieval"`
	Freshness      *float64               `json:"freshness_required"`
	Uncertainty    *float64               `json:"uncertainty"`
	Queries        []interface{}          `json:"queries"`
	Budgets        *datatypes.PlanBudgets `json:"budgets"`
}

func parseLoosePlan(jsonText string) loosePlan {
	var loose loosePlan
	if jsonText == "" {
		return loose
	}
	if err := json.Unmarshal([]byte(jsonText), &loose); err != nil {
		slog.Debug("planner JSON did not parse, defaulting", "error", err)
		return loosePlan{}
	}
	return loose
}

// extractJSONObject returns the outermost {...} substring of raw, or ""
// when raw contains no such span.
func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end <= start {
		return ""
	}
	return raw[start : end+1]
}
