// Copyright (C) 2025 Nebula Labs (oss@nebulalabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pipeline

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/nebulalabs/nebula/services/llm"
	"github.com/nebulalabs/nebula/services/research/datatypes"
	"github.com/nebulalabs/nebula/services/research/observability"
	"github.com/nebulalabs/nebula/services/research/search"
	"github.com/nebulalabs/nebula/services/research/store"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("nebula.research.pipeline")

// Modes accepted by Run.
const (
	ModeFast     = "fast"
	ModeThorough = "thorough"
)

// thoroughSteps is the human-readable step list announced in the plan
// event of a thorough run.
var thoroughSteps = []string{
	"Plan queries (pass 1)",
	"Search & dedupe (pass 1)",
	"Fetch & extract (pass 1)",
	"Plan gaps (pass 2)",
	"Fetch & extract (pass 2)",
	"Synthesize (evidence-only)",
	"Verify (claims & citations)",
}

// Controller sequences the research pipeline and emits its progress
// events. One Controller serves many runs; all its dependencies are
// shared, process-wide state.
type Controller struct {
	llm      llm.LLMClient
	searcher search.Searcher
	trust    *store.TrustStore
	searches *store.SearchCache
	docs     *store.DocCache
	cfg      Config
	metrics  *observability.Metrics

	fetchClient *http.Client
}

// NewController wires a Controller. Panics on nil llm or searcher;
// metrics may be nil to disable recording.
func NewController(llmClient llm.LLMClient, searcher search.Searcher,
	trust *store.TrustStore, searches *store.SearchCache, docs *store.DocCache,
	cfg Config, metrics *observability.Metrics) *Controller {

	if llmClient == nil {
		panic("pipeline: llm client is required")
	}
	if searcher == nil {
		panic("pipeline: searcher is required")
	}
	return &Controller{
		llm:      llmClient,
		searcher: searcher,
		trust:    trust,
		searches: searches,
		docs:     docs,
		cfg:      cfg,
		metrics:  metrics,
		// Redirects are followed by default; per-request deadlines come
		// from the fetch context.
		fetchClient: &http.Client{},
	}
}

// Run executes one research run, streaming progress to sink. A nil error
// means the stream reached its terminal frame or stopped cooperatively on
// disconnect; a non-nil error is an unhandled pipeline failure the
// transport should surface as a single error event.
func (c *Controller) Run(ctx context.Context, question, mode string, sink datatypes.EventSink) error {
	if mode == ModeThorough {
		return c.runThorough(ctx, question, sink)
	}
	return c.runFast(ctx, question, sink)
}

// =============================================================================
// Fast Mode
// =============================================================================

// runFast answers with a single direct model call. No retrieval, no
// citations.
func (c *Controller) runFast(ctx context.Context, question string, sink datatypes.EventSink) error {
	ctx, span := tracer.Start(ctx, "pipeline.runFast")
	defer span.End()

	if err := emitAll(sink,
		datatypes.PlanEvent{Intent: "fast", Steps: []string{"Answer directly", "Self-check"}},
		datatypes.StatusEvent{State: "Answering (fast)"},
		datatypes.ProgressEvent{Pct: 10},
	); err != nil {
		return nil
	}

	answer, err := c.llm.Chat(ctx, c.cfg.FastModel, []llm.Message{
		{Role: "system", Content: fastSystemPrompt},
		{Role: "user", Content: question},
	}, llm.Temp(c.cfg.FastTemperature))
	if err != nil {
		return err
	}

	if err := emitAll(sink,
		datatypes.ProgressEvent{Pct: 95},
		datatypes.FinalEvent{Answer: answer, Citations: []string{}},
		datatypes.ProgressEvent{Pct: 100},
	); err != nil {
		return nil
	}
	return nil
}

// =============================================================================
// Thorough Mode
// =============================================================================

// runThorough executes the full two-pass retrieval-and-verification
// pipeline. Stage sequencing, progress checkpoints, and status texts are
// part of the streamed contract; see the event protocol.
func (c *Controller) runThorough(ctx context.Context, question string, sink datatypes.EventSink) error {
	ctx, span := tracer.Start(ctx, "pipeline.runThorough")
	defer span.End()

	clock := NewBudgetClock(c.cfg.TargetBudget, c.cfg.HardBudget)

	// --- Plan pass 1 ---
	stageStart := time.Now()
	plan1 := c.plan(ctx, question, c.cfg.Stage1Queries)
	c.metrics.ObserveStage("plan1", stageStart)
	span.SetAttributes(
		attribute.Bool("plan.needs_retrieval", plan1.NeedsRetrieval),
		attribute.Float64("plan.gate", plan1.Gate()),
		attribute.Int("plan.queries", len(plan1.Queries)),
	)

	if err := emitAll(sink,
		datatypes.PlanEvent{Intent: "ultra-thorough", Steps: thoroughSteps},
		datatypes.StatusEvent{State: "Planning queries (pass 1)"},
		datatypes.QueriesEvent{Items: plan1.Queries},
		datatypes.ProgressEvent{Pct: 5},
	); err != nil {
		return nil
	}

	// --- Retrieval gate ---
	if !plan1.WantsRetrieval() {
		return c.answerDirect(ctx, question, sink)
	}

	// --- Search & dedup pass 1 ---
	if err := sink.Emit(datatypes.StatusEvent{State: "Searching the web (pass 1)"}); err != nil {
		return nil
	}
	stageStart = time.Now()
	results1, err := c.searchPass(ctx, plan1.Queries, plan1.Budgets.PerQueryResults, clock, sink)
	c.metrics.ObserveStage("search1", stageStart)
	if err != nil {
		return nil
	}
	if err := sink.Emit(datatypes.ProgressEvent{Pct: 15}); err != nil {
		return nil
	}

	acc := newAcceptSet()
	urls1 := dedupe(results1, acc, c.cfg.MaxPerHost, c.cfg.MaxDocsStage1)

	// --- Fetch pass 1 ---
	if err := sink.Emit(datatypes.StatusEvent{State: "Fetching & extracting (pass 1)"}); err != nil {
		return nil
	}
	stageStart = time.Now()
	docs1, err := c.fetchDocuments(ctx, urls1, sink)
	c.metrics.ObserveStage("fetch1", stageStart)
	if err != nil {
		return nil
	}
	if err := sink.Emit(datatypes.ProgressEvent{Pct: 35}); err != nil {
		return nil
	}
	if ctx.Err() != nil {
		return nil
	}

	// --- Plan pass 2 (gaps) ---
	reviewed := make([]string, 0, len(docs1))
	for _, d := range docs1 {
		reviewed = append(reviewed, d.URL)
	}
	stageStart = time.Now()
	plan2 := c.plan(ctx, gapPlanQuestion(question, reviewed), c.cfg.Stage2Queries)
	c.metrics.ObserveStage("plan2", stageStart)

	if err := emitAll(sink,
		datatypes.StatusEvent{State: "Planning targeted follow-ups (pass 2)"},
		datatypes.QueriesEvent{Items: plan2.Queries},
		datatypes.ProgressEvent{Pct: 40},
	); err != nil {
		return nil
	}

	// --- Search & dedup pass 2, seeded with pass-1 acceptances ---
	if err := sink.Emit(datatypes.StatusEvent{State: "Searching the web (pass 2)"}); err != nil {
		return nil
	}
	stageStart = time.Now()
	results2, err := c.searchPass(ctx, plan2.Queries, plan2.Budgets.PerQueryResults, clock, sink)
	c.metrics.ObserveStage("search2", stageStart)
	if err != nil {
		return nil
	}
	if err := sink.Emit(datatypes.ProgressEvent{Pct: 50}); err != nil {
		return nil
	}

	acc2 := newAcceptSet()
	acc2.seedDocuments(docs1)
	remaining := c.cfg.MaxDocsTotal - len(docs1)
	urls2 := dedupe(results2, acc2, c.cfg.MaxPerHost, remaining)

	// --- Fetch pass 2 ---
	if err := sink.Emit(datatypes.StatusEvent{State: "Fetching & extracting (pass 2)"}); err != nil {
		return nil
	}
	stageStart = time.Now()
	docs2, err := c.fetchDocuments(ctx, urls2, sink)
	c.metrics.ObserveStage("fetch2", stageStart)
	if err != nil {
		return nil
	}
	if ctx.Err() != nil {
		return nil
	}

	// --- Rank ---
	stageStart = time.Now()
	all := append(append([]datatypes.Document{}, docs1...), docs2...)
	kept := rankDocuments(question, all, c.trust, c.cfg.MaxPerHost, c.cfg.MaxDocsTotal)
	c.metrics.ObserveStage("rank", stageStart)
	slog.Info("evidence ranked", "fetched", len(all), "kept", len(kept),
		"elapsed", clock.Elapsed())

	if err := emitAll(sink,
		datatypes.ProgressEvent{Pct: 70},
		datatypes.StatusEvent{State: "Compressing evidence"},
	); err != nil {
		return nil
	}

	// --- Compress ---
	stageStart = time.Now()
	factlets := compressToFactlets(kept)
	evidenceBlob := renderEvidence(kept, factlets)
	c.metrics.ObserveStage("compress", stageStart)

	// --- Synthesize ---
	if err := emitAll(sink,
		datatypes.StatusEvent{State: "Synthesizing (evidence-only)"},
		datatypes.ProgressEvent{Pct: 85},
	); err != nil {
		return nil
	}
	stageStart = time.Now()
	draft, err := c.llm.Chat(ctx, c.cfg.ThoroughModel, []llm.Message{
		{Role: "system", Content: synthSystemPrompt},
		{Role: "user", Content: synthUserPrompt(question, evidenceBlob)},
	}, llm.Temp(c.cfg.SynthTemperature))
	c.metrics.ObserveStage("synthesize", stageStart)
	if err != nil {
		// The draft stands as whatever the model returned, empty included;
		// verification will mark anything unsupported.
		slog.Warn("synthesis call failed, continuing with returned text", "error", err)
	}

	// --- Verify ---
	if err := emitAll(sink,
		datatypes.StatusEvent{State: "Verifying claims & citations"},
		datatypes.ProgressEvent{Pct: 92},
	); err != nil {
		return nil
	}
	stageStart = time.Now()
	verified := verifyAnswer(draft, kept)
	c.metrics.ObserveStage("verify", stageStart)

	// --- Cite ---
	stageStart = time.Now()
	citations := validateCitations(verified, kept)
	c.rewardCitedHosts(citations)
	c.metrics.ObserveStage("cite", stageStart)

	if err := emitAll(sink,
		datatypes.FinalEvent{Answer: verified, Citations: citations},
		datatypes.ProgressEvent{Pct: 100},
	); err != nil {
		return nil
	}

	slog.Info("thorough run complete", "kept_docs", len(kept),
		"factlets", len(factlets), "citations", len(citations),
		"elapsed", clock.Elapsed(), "soft_exceeded", clock.SoftExceeded())
	return nil
}

// answerDirect handles the gate-closed path: one direct model call, no
// evidence, no citations. Terminal.
func (c *Controller) answerDirect(ctx context.Context, question string, sink datatypes.EventSink) error {
	if err := sink.Emit(datatypes.StatusEvent{State: "Direct answer (no retrieval required)"}); err != nil {
		return nil
	}
	answer, err := c.llm.Chat(ctx, c.cfg.ThoroughModel, []llm.Message{
		{Role: "system", Content: directSystemPrompt},
		{Role: "user", Content: question},
	}, llm.Temp(c.cfg.DirectTemperature))
	if err != nil {
		return err
	}
	if err := emitAll(sink,
		datatypes.FinalEvent{Answer: answer, Citations: []string{}},
		datatypes.ProgressEvent{Pct: 100},
	); err != nil {
		return nil
	}
	return nil
}

// emitAll writes events in order, stopping at the first sink failure.
func emitAll(sink datatypes.EventSink, events ...datatypes.StreamEvent) error {
	for _, ev := range events {
		if err := sink.Emit(ev); err != nil {
			return err
		}
	}
	return nil
}
