package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jonathan/adscout/internal/db"
)

var runsCommand = &cobra.Command{
	Use:   "runs",
	Short: "List recent research runs",
	Long:  `Lists recent runs stored in the database, newest first. Requires DATABASE_URL (or --db-url).`,
	RunE:  listRunsCmd,
}

var (
	runsLimit int
	runsDBURL string
)

func init() {
	runsCommand.Flags().IntVarP(&runsLimit, "limit", "n", 50, "Maximum number of runs to list")
	runsCommand.Flags().StringVar(&runsDBURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")

	rootCmd.AddCommand(runsCommand)
}

func listRunsCmd(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	dbURL := runsDBURL
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable or --db-url is required")
	}
	if runsLimit < 1 {
		return fmt.Errorf("--limit must be positive")
	}

	database, err := db.Connect(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	runs, err := database.ListRuns(ctx, runsLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCOUNTRY\tSTATUS\tCREATED\tFINISHED\tKEYWORDS")
	for _, r := range runs {
		finished := "-"
		if r.FinishedAt != nil {
			finished = r.FinishedAt.Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.TargetCountry, r.Status,
			r.CreatedAt.Format("2006-01-02 15:04:05"), finished,
			strings.Join(r.Keywords, ", "))
	}
	return w.Flush()
}
