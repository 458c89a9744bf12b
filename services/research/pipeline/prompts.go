// Copyright (C) 2025 Nebula Labs (oss@nebulalabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pipeline

import "fmt"

// routerSystemPrompt asks the model for a strict-JSON retrieval plan.
const routerSystemPrompt = `You are planning a deep research run. Return STRICT JSON only, no commentary.
Fields:
- needs_retrieval: boolean
- freshness_required: number 0..1 (how much recency matters)
- uncertainty: number 0..1 (how unclear the answer is without searching)
- queries: array of diversified global web queries (no more than 8 now)
- site_biases: array of {host}
- budgets: { seconds, per_query_results }
`

// routerUserPrompt frames the question with the stage's query budgets.
func routerUserPrompt(question string, maxQueries, perQueryResults int) string {
	return fmt.Sprintf(
		"Question:\n%s\n\n"+
			"Return at most %d queries, GLOBAL scope (neutral region), add years (2024/2025) if helpful, "+
			"exclude junk (e.g., -minecraft, -mod). "+
			"Set budgets.per_query_results=%d.\n"+
			"Output JSON now.",
		question, maxQueries, perQueryResults)
}

// gapPlanQuestion augments the question with already-reviewed URLs so the
// pass-2 plan targets gaps rather than re-covering pass-1 ground.
func gapPlanQuestion(question string, reviewedURLs []string) string {
	listing := ""
	for _, u := range reviewedURLs {
		listing += u + "\n"
	}
	return fmt.Sprintf("%s\n\nAlready reviewed URLs:\n%s", question, listing)
}

// synthSystemPrompt is the evidence-only synthesis rule set.
const synthSystemPrompt = `You are a truth-seeking research summarizer.
RULES:
1) Use ONLY the evidence provided. If a detail is not supported, say 'not supported by the provided sources'.
2) Include explicit dates (e.g., 'As of 2025-08-24').
3) Cite with bracket numbers [n] that correspond to the evidence list.
4) Prefer the 5-12 most load-bearing sources from at least 3 distinct hosts.
5) Surface disagreements and limits. Be concise and structured.`

// synthUserPrompt pairs the question with the rendered evidence blob.
func synthUserPrompt(question, evidenceBlob string) string {
	return fmt.Sprintf(
		"Question:\n%s\n\nEvidence list (map [n] -> URL and bullet factlets):\n%s\n\n"+
			"Write the final answer now.",
		question, evidenceBlob)
}

// directSystemPrompt answers without retrieval in thorough mode.
const directSystemPrompt = "Be accurate and concise. If unsure, say so."

// fastSystemPrompt answers mode=fast requests.
const fastSystemPrompt = "Be helpful, brief, and accurate. If unsure, say so."
