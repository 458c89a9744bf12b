// Copyright (C) 2025 Nebula Labs (oss@nebulalabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package main is the nebula CLI, a terminal client for the research
// service's streaming endpoint.
package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "nebula",
	Short: "Client for the Nebula research service",
	Long: `nebula streams evidence-grounded answers from a running research
service. Point it at the service with --server or NEBULA_SERVER_URL.`,
}

func serverBaseURL() string {
	if serverURL != "" {
		return serverURL
	}
	if env := os.Getenv("NEBULA_SERVER_URL"); env != "" {
		return env
	}
	return "http://localhost:8000"
}

var serverURL string

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "",
		"research service base URL (default http://localhost:8000)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}
