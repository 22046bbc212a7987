// Package main provides the entry point for the AdScout HTTP API server
// and CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "adscout",
	Short: "AdScout advertiser research server",
	Long:  "AdScout finds advertisers running heavy single-product ad campaigns in a target market and cross-references a secondary market to estimate competitive saturation.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
