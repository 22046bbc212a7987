package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/adscout/internal/server"
)

var (
	servePort        int
	serveSearchLimit int
	serveCrossLimit  int
	serveCrossWorker int
	serveUseMock     bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes REST endpoints for creating and polling research runs.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Port to listen on")
	serveCmd.Flags().IntVar(&serveSearchLimit, "search-limit", 0, "Primary search result cap (default 50)")
	serveCmd.Flags().IntVar(&serveCrossLimit, "cross-limit", 0, "Reference-market result cap (default 100)")
	serveCmd.Flags().IntVar(&serveCrossWorker, "cross-workers", 0, "Concurrent reference-market checks (default 1)")
	serveCmd.Flags().BoolVar(&serveUseMock, "mock", false, "Use generated ad inventory instead of the Ad Library API")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable is required")
	}

	// Optional: without it the server falls back to mock inventory.
	accessToken := os.Getenv("META_ACCESS_TOKEN")

	useMock := serveUseMock || os.Getenv("ADSCOUT_USE_MOCK") == "true"

	cfg := server.Config{
		Port:        servePort,
		DatabaseURL: databaseURL,
		AccessToken: accessToken,
		UseMock:     useMock,
		SearchLimit: serveSearchLimit,
		CrossLimit:  serveCrossLimit,
		CrossWorker: serveCrossWorker,
	}

	srv, err := server.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start()
}
