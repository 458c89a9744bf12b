// Copyright (C) 2025 Nebula Labs (oss@nebulalabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nebulalabs/nebula/services/research/handlers"
	"github.com/nebulalabs/nebula/services/research/observability"
	"github.com/nebulalabs/nebula/services/research/pipeline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes registers the research service's endpoints.
//
// The stream endpoint is a GET so browsers can consume it directly with
// EventSource, which cannot POST.
func SetupRoutes(router *gin.Engine, controller *pipeline.Controller,
	metrics *observability.Metrics, registry *prometheus.Registry) {

	router.Use(corsMiddleware())

	router.GET("/health", handlers.Health)
	if registry != nil {
		router.GET("/metrics", gin.WrapH(
			promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}

	stream := handlers.NewStreamChatHandler(controller, metrics)
	api := router.Group("/api")
	{
		api.GET("/stream_chat", stream.Handle)
	}
}

// corsMiddleware allows cross-origin EventSource connections from any
// page. The service binds to localhost; the open policy mirrors that
// trust boundary.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
