// Copyright (C) 2025 Nebula Labs (oss@nebulalabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nebulalabs/nebula/pkg/logging"
	"github.com/nebulalabs/nebula/services/llm"
	"github.com/nebulalabs/nebula/services/research/observability"
	"github.com/nebulalabs/nebula/services/research/pipeline"
	"github.com/nebulalabs/nebula/services/research/routes"
	"github.com/nebulalabs/nebula/services/research/search"
	"github.com/nebulalabs/nebula/services/research/store"
	"github.com/prometheus/client_golang/prometheus"

	// --- OpenTelemetry imports ---
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func initTracer() (func(context.Context), error) {
	ctx := context.Background()

	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otelEndpoint == "" {
		// Tracing is optional for local runs; spans become no-ops.
		slog.Info("OTEL_EXPORTER_OTLP_ENDPOINT not set, tracing disabled")
		return func(context.Context) {}, nil
	}
	conn, err := grpc.NewClient(otelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("research-service")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

// cacheDir resolves the persistent store directory, ~/.nebula_cache by
// default.
func cacheDir() string {
	if dir := os.Getenv("NEBULA_CACHE_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		slog.Warn("could not resolve home directory, caching in cwd", "error", err)
		return ".nebula_cache"
	}
	return filepath.Join(home, ".nebula_cache")
}

func newLLMClient() (llm.LLMClient, error) {
	switch os.Getenv("LLM_BACKEND_TYPE") {
	case "openai":
		slog.Info("Using OpenAI-compatible LLM backend")
		return llm.NewOpenAIClient()
	case "ollama":
		slog.Info("Using Ollama LLM backend")
		return llm.NewOllamaClient(), nil
	default:
		slog.Warn("LLM_BACKEND_TYPE not set or invalid, defaulting to ollama")
		return llm.NewOllamaClient(), nil
	}
}

func main() {
	port := os.Getenv("NEBULA_PORT")
	if port == "" {
		port = "8000"
	}

	logger, err := logging.NewLogger(logging.ConfigFromEnv())
	if err != nil {
		log.Fatalf("failed to set up logging: %v", err)
	}
	slog.SetDefault(logger)

	cleanup, err := initTracer()
	if err != nil {
		log.Fatalf("failed to setup the OTLP tracer: %v", err)
	}
	defer cleanup(context.Background())

	llmClient, err := newLLMClient()
	if err != nil {
		log.Fatalf("Failed to initialize LLM client: %v", err)
	}

	dir := cacheDir()
	trust := store.LoadTrustStore(filepath.Join(dir, "domain_prior.json"))
	searches := store.LoadSearchCache(filepath.Join(dir, "search_cache.json"))
	slog.Info("persistent stores loaded", "dir", dir,
		"trusted_hosts", trust.Len())

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	cfg := pipeline.ConfigFromEnv()
	controller := pipeline.NewController(
		llmClient,
		search.NewDuckDuckGo(),
		trust,
		searches,
		store.NewDocCache(),
		cfg,
		metrics,
	)

	router := gin.Default()
	router.Use(otelgin.Middleware("research-service"))
	routes.SetupRoutes(router, controller, metrics, registry)

	slog.Info("starting the research server", "port", port,
		"fast_model", cfg.FastModel, "thorough_model", cfg.ThoroughModel)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
