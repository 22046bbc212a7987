package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/adscout/internal/adlibrary"
	"github.com/jonathan/adscout/internal/config"
	"github.com/jonathan/adscout/internal/crossmarket"
	"github.com/jonathan/adscout/internal/db"
	"github.com/jonathan/adscout/internal/observability"
	"github.com/jonathan/adscout/internal/pipeline"
	"github.com/jonathan/adscout/internal/validation"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Execute one research run from the terminal",
	Long: `Searches the ad library for the given keywords, validates every advertiser found, cross-checks approved candidates in the reference market, and prints the ranked results.

Configuration can be loaded from a JSON file using --config. Command-line arguments override config file values. When a database URL is configured the run is also persisted.`,
	RunE: runPipelineCmd,
}

var (
	runConfigPath    string
	runCountry       string
	runKeywords      []string
	runMinActiveAds  int
	runMinUniproduct float64
	runMinDuplicates float64
	runSearchLimit   int
	runCrossLimit    int
	runCrossWorkers  int
	runAccessToken   string
	runUseMock       bool
	runVerbose       bool
	runDatabaseURL   string
)

func init() {
	runCommand.Flags().StringVar(&runConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")

	runCommand.Flags().StringVarP(&runCountry, "country", "c", "", "Target market code (BR, MX, CO, CL, US, AR)")
	runCommand.Flags().StringSliceVarP(&runKeywords, "keywords", "k", nil, "Search keywords (comma separated or repeated)")
	runCommand.Flags().IntVar(&runMinActiveAds, "min-active-ads", 0, "Minimum active ads threshold")
	runCommand.Flags().Float64Var(&runMinUniproduct, "min-uniproduct-ratio", 0, "Minimum uniproduct ratio (0-1)")
	runCommand.Flags().Float64Var(&runMinDuplicates, "min-duplicates-score", 0, "Minimum duplicates score (0-1)")
	runCommand.Flags().IntVar(&runSearchLimit, "search-limit", 0, "Primary search result cap")
	runCommand.Flags().IntVar(&runCrossLimit, "cross-limit", 0, "Reference-market result cap")
	runCommand.Flags().IntVar(&runCrossWorkers, "cross-workers", 0, "Concurrent reference-market checks")
	runCommand.Flags().BoolVar(&runUseMock, "mock", false, "Use generated ad inventory instead of the Ad Library API")
	runCommand.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Print detailed debug information")

	// Token and database URL can be passed as flags or env vars
	runCommand.Flags().StringVar(&runAccessToken, "access-token", "", "Ad Library API access token (optional, defaults to META_ACCESS_TOKEN env var)")
	runCommand.Flags().StringVar(&runDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")

	rootCmd.AddCommand(runCommand)
}

// memStore keeps one run in memory so the pipeline can execute without a
// database.
type memStore struct {
	mu         sync.Mutex
	run        db.Run
	candidates []db.Candidate
}

func (m *memStore) CreateRun(_ context.Context, country, language string, keywords []string) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.run = db.Run{
		ID:            uuid.New(),
		TargetCountry: country,
		Language:      language,
		Keywords:      keywords,
		Status:        db.RunStatusInProgress,
		CreatedAt:     time.Now().UTC(),
	}
	return m.run.ID, nil
}

func (m *memStore) UpdateRunStatus(_ context.Context, _ uuid.UUID, status, summary string, finishedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.run.Status = status
	m.run.Summary = summary
	m.run.FinishedAt = &finishedAt
	return nil
}

func (m *memStore) InsertCandidates(_ context.Context, candidates []db.Candidate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.candidates = append(m.candidates, candidates...)
	return nil
}

func runPipelineCmd(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	// Step 1: Load config file if provided
	var cfg config.Config
	if runConfigPath != "" {
		loadedCfg, err := config.LoadConfig(runConfigPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := loadedCfg.Validate(); err != nil {
			return err
		}
		cfg = *loadedCfg
		if runVerbose {
			_, _ = fmt.Fprintf(os.Stdout, "Loaded config from: %s\n", runConfigPath)
		}
	}

	// Step 2: Apply CLI overrides (command-line args take priority)
	if cmd.Flags().Changed("country") {
		cfg.Country = runCountry
	}
	if cmd.Flags().Changed("keywords") {
		cfg.Keywords = runKeywords
	}
	if cmd.Flags().Changed("min-active-ads") {
		cfg.MinActiveAds = runMinActiveAds
	}
	if cmd.Flags().Changed("min-uniproduct-ratio") {
		cfg.MinUniproductRatio = runMinUniproduct
	}
	if cmd.Flags().Changed("min-duplicates-score") {
		cfg.MinDuplicatesScore = runMinDuplicates
	}
	if cmd.Flags().Changed("search-limit") {
		cfg.SearchLimit = runSearchLimit
	}
	if cmd.Flags().Changed("cross-limit") {
		cfg.SecondaryLimit = runCrossLimit
	}
	if cmd.Flags().Changed("cross-workers") {
		cfg.CrossWorkers = runCrossWorkers
	}
	if cmd.Flags().Changed("access-token") {
		cfg.AccessToken = runAccessToken
	}
	if cmd.Flags().Changed("mock") {
		cfg.UseMock = runUseMock
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = runVerbose
	}
	if cmd.Flags().Changed("db-url") {
		cfg.DatabaseURL = runDatabaseURL
	}

	// Step 3: Apply defaults for unset values
	defaultCriteria := validation.DefaultCriteria()
	defaults := config.Config{
		MinActiveAds:       defaultCriteria.MinActiveAds,
		MinUniproductRatio: defaultCriteria.MinUniproductRatio,
		MinDuplicatesScore: defaultCriteria.MinDuplicatesScore,
		SearchLimit:        pipeline.DefaultSearchLimit,
		SecondaryLimit:     crossmarket.DefaultLimit,
		CrossWorkers:       1,
		AccessToken:        os.Getenv("META_ACCESS_TOKEN"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
	}
	cfg = cfg.MergeWithDefaults(defaults)

	// Step 4: Validate the merged configuration
	if cfg.Country == "" {
		return fmt.Errorf("--country is required")
	}
	if len(cfg.Keywords) == 0 {
		return fmt.Errorf("--keywords is required")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Step 5: Wire the pipeline
	var src adlibrary.Searcher
	if cfg.UseMock || cfg.AccessToken == "" {
		if !cfg.UseMock {
			fmt.Fprintln(os.Stderr, "Warning: no access token configured, using mock ad inventory")
		}
		src = adlibrary.NewMockClient()
	} else {
		src = adlibrary.NewClient(cfg.AccessToken)
	}

	scorer := crossmarket.New(src,
		crossmarket.WithLimit(cfg.SecondaryLimit),
		crossmarket.WithWorkers(cfg.CrossWorkers),
	)

	var store pipeline.Store
	var database *db.DB
	mem := &memStore{}
	if cfg.DatabaseURL != "" {
		var err error
		database, err = db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to connect to database: %v\n", err)
			fmt.Fprintln(os.Stderr, "Continuing without database persistence...")
		}
	}
	if database != nil {
		defer database.Close()
		store = database
	} else {
		store = mem
	}

	orchestrator := pipeline.New(store, src, scorer, pipeline.WithSearchLimit(cfg.SearchLimit))

	// Step 6: Execute synchronously and print the outcome
	runID, err := orchestrator.CreateRun(ctx, cfg.Country, cfg.Keywords)
	if err != nil {
		return err
	}

	params := pipeline.RunParams{
		RunID:    runID,
		Country:  cfg.Country,
		Keywords: cfg.Keywords,
		Criteria: validation.Criteria{
			MinActiveAds:       cfg.MinActiveAds,
			MinUniproductRatio: cfg.MinUniproductRatio,
			MinDuplicatesScore: cfg.MinDuplicatesScore,
		},
	}
	if err := orchestrator.Process(ctx, params); err != nil {
		return fmt.Errorf("run %s failed: %w", runID, err)
	}

	var run *db.Run
	var candidates []db.Candidate
	if database != nil {
		run, err = database.GetRun(ctx, runID)
		if err != nil {
			return err
		}
		candidates, err = database.ListCandidates(ctx, runID, "")
		if err != nil {
			return err
		}
	} else {
		r := mem.run
		run = &r
		candidates = sortedByScore(mem.candidates)
	}

	printCandidates(runID, candidates)
	if cfg.Verbose {
		printer := observability.NewPrinter(os.Stdout)
		printer.PrintRunSummary(run)
		printer.PrintTopCandidates(candidates)
		printer.PrintReplication(candidates)
	}
	return nil
}

// sortedByScore orders candidates by composite score descending, matching
// the database listing order.
func sortedByScore(candidates []db.Candidate) []db.Candidate {
	out := make([]db.Candidate, len(candidates))
	copy(out, candidates)
	sort.Slice(out, func(i, j int) bool { return out[i].TotalScore > out[j].TotalScore })
	return out
}

func printCandidates(runID uuid.UUID, candidates []db.Candidate) {
	fmt.Printf("Run %s: %d candidates\n\n", runID, len(candidates))

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SCORE\tADVERTISER\tACTIVE\tUNIPRODUCT\tDUPLICATES\tSTATUS\tAR ADS")
	for _, c := range candidates {
		arAds := "-"
		if c.ArAdsCount != nil {
			arAds = fmt.Sprintf("%d (%s)", *c.ArAdsCount, db.ReplicationLevel(*c.ArAdsCount))
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%.2f\t%.2f\t%s\t%s\n",
			c.TotalScore, c.AdvertiserName, c.ActiveAdsCount,
			c.UniproductRatio, c.DuplicatesScore, c.Status, arAds)
	}
	_ = w.Flush()
}
