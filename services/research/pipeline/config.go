// Copyright (C) 2025 Nebula Labs (oss@nebulalabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pipeline

import (
	"os"
	"strconv"
	"time"
)

// Config carries the pipeline's models and knobs. Zero values are not
// usable; start from DefaultConfig and override from the environment.
type Config struct {
	// FastModel answers mode=fast requests with a single direct call.
	FastModel string
	// ThoroughModel drives routing, synthesis, and direct answers in
	// thorough mode.
	ThoroughModel string

	// TargetBudget is the soft wall-clock target for a thorough run.
	TargetBudget time.Duration
	// HardBudget is the cutoff past which no new search query is issued.
	HardBudget time.Duration

	// Stage1Queries and Stage2Queries bound the planner's query lists.
	Stage1Queries int
	Stage2Queries int
	// PerQueryResults is how many hits each search query requests.
	PerQueryResults int

	// FetchConcurrency bounds simultaneous document fetches.
	FetchConcurrency int64
	// FetchTimeout bounds a single document GET.
	FetchTimeout time.Duration
	// BytesCap truncates a fetched response body.
	BytesCap int64
	// ExtractChars truncates extracted document text.
	ExtractChars int

	// MaxPerHost caps accepted documents per host, cumulative over a run.
	MaxPerHost int
	// MaxDocsStage1 caps pass-1 accepted URLs.
	MaxDocsStage1 int
	// MaxDocsTotal caps the run's total accepted and kept documents.
	MaxDocsTotal int

	// PlannerTemperature and SynthTemperature tune the two structured
	// model calls; FastTemperature and DirectTemperature the unstructured
	// ones.
	PlannerTemperature float32
	SynthTemperature   float32
	FastTemperature    float32
	DirectTemperature  float32
}

// DefaultConfig returns the standard five-minute thorough-run configuration.
func DefaultConfig() Config {
	return Config{
		FastModel:     "qwen2.5:1.5b",
		ThoroughModel: "llama3.1:8b",

		TargetBudget: 300 * time.Second,
		HardBudget:   330 * time.Second,

		Stage1Queries:   6,
		Stage2Queries:   5,
		PerQueryResults: 10,

		FetchConcurrency: 10,
		FetchTimeout:     20 * time.Second,
		BytesCap:         2_000_000,
		ExtractChars:     3000,

		MaxPerHost:    2,
		MaxDocsStage1: 12,
		MaxDocsTotal:  24,

		PlannerTemperature: 0.15,
		SynthTemperature:   0.25,
		FastTemperature:    0.6,
		DirectTemperature:  0.3,
	}
}

// ConfigFromEnv builds a Config from DefaultConfig plus environment
// overrides. Unset or unparseable variables keep their defaults.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	if v := os.Getenv("NEBULA_FAST_MODEL"); v != "" {
		cfg.FastModel = v
	}
	if v := os.Getenv("NEBULA_THOROUGH_MODEL"); v != "" {
		cfg.ThoroughModel = v
	}
	if d, ok := envSeconds("NEBULA_TARGET_BUDGET_SECONDS"); ok {
		cfg.TargetBudget = d
	}
	if d, ok := envSeconds("NEBULA_HARD_BUDGET_SECONDS"); ok {
		cfg.HardBudget = d
	}
	if n, ok := envInt("NEBULA_PER_QUERY_RESULTS"); ok {
		cfg.PerQueryResults = n
	}
	if n, ok := envInt("NEBULA_FETCH_CONCURRENCY"); ok && n > 0 {
		cfg.FetchConcurrency = int64(n)
	}
	return cfg
}

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envSeconds(key string) (time.Duration, bool) {
	n, ok := envInt(key)
	if !ok || n <= 0 {
		return 0, false
	}
	return time.Duration(n) * time.Second, true
}
