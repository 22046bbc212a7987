package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jonathan/adscout/internal/adlibrary"
	"github.com/jonathan/adscout/internal/db"
	"github.com/jonathan/adscout/internal/pipeline"
	"github.com/jonathan/adscout/internal/validation"
)

var validate = validator.New()

// CriteriaOverride carries optional per-run threshold overrides.
type CriteriaOverride struct {
	MinActiveAds       *int     `json:"min_active_ads,omitempty" validate:"omitempty,min=1"`
	MinUniproductRatio *float64 `json:"min_uniproduct_ratio,omitempty" validate:"omitempty,gte=0,lte=1"`
	MinDuplicatesScore *float64 `json:"min_duplicates_score,omitempty" validate:"omitempty,gte=0,lte=1"`
}

// CreateRunRequest is the request body for POST /runs
type CreateRunRequest struct {
	Country  string            `json:"country" validate:"required"`
	Keywords []string          `json:"keywords" validate:"required,min=1,dive,required"`
	Filters  *CriteriaOverride `json:"filters,omitempty"`
}

// CreateRunResponse is the response for POST /runs
type CreateRunResponse struct {
	RunID   string `json:"run_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// RunResponse is the response for GET /runs/{id}
type RunResponse struct {
	ID              string     `json:"id"`
	Country         string     `json:"country"`
	Language        string     `json:"language"`
	Keywords        []string   `json:"keywords"`
	Status          string     `json:"status"`
	Summary         string     `json:"summary,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
	CandidatesCount int        `json:"candidates_count"`
}

// RunSummaryResponse is one entry in the GET /runs listing
type RunSummaryResponse struct {
	ID         string     `json:"id"`
	Country    string     `json:"country"`
	Keywords   []string   `json:"keywords"`
	Status     string     `json:"status"`
	Summary    string     `json:"summary,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// CandidateResponse is one entry in GET /runs/{id}/candidates
type CandidateResponse struct {
	ID                string  `json:"id"`
	AdvertiserName    string  `json:"advertiser_name"`
	ProductDetected   string  `json:"product_detected"`
	ActiveAdsCount    int     `json:"active_ads_count"`
	UniproductRatio   float64 `json:"uniproduct_ratio"`
	DuplicatesScore   float64 `json:"duplicates_score"`
	TotalScore        int     `json:"total_score"`
	ValidationReasons string  `json:"validation_reasons"`
	Status            string  `json:"status"`
	PageURL           string  `json:"ad_library_page_url,omitempty"`
	ArAdsCount        *int    `json:"ar_ads_count,omitempty"`
	Replication       string  `json:"replication,omitempty"`
}

// handleCreateRun creates a run and starts its pipeline in the background.
// The response returns immediately; clients poll GET /runs/{id}.
func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var req CreateRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if err := validate.Struct(req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Missing required fields: country, keywords")
		return
	}
	if !adlibrary.IsSupportedCountry(req.Country) {
		s.errorResponse(w, http.StatusBadRequest, "Unsupported country: "+req.Country)
		return
	}

	runID, err := s.orchestrator.CreateRun(r.Context(), req.Country, req.Keywords)
	if err != nil {
		log.Printf("Error creating run: %v", err)
		s.errorResponse(w, http.StatusInternalServerError, "Failed to create run")
		return
	}

	params := pipeline.RunParams{
		RunID:    runID,
		Country:  req.Country,
		Keywords: req.Keywords,
		Criteria: criteriaFrom(req.Filters),
	}
	if _, err := s.supervisor.Submit(runID, func(ctx context.Context) error {
		return s.orchestrator.Process(ctx, params)
	}); err != nil {
		log.Printf("Error submitting run %s: %v", runID, err)
		s.errorResponse(w, http.StatusInternalServerError, "Failed to start run")
		return
	}

	s.jsonResponse(w, http.StatusCreated, CreateRunResponse{
		RunID:   runID.String(),
		Status:  db.RunStatusInProgress,
		Message: "Run created successfully. Processing in background.",
	})
}

// criteriaFrom merges an optional override onto the default criteria.
func criteriaFrom(o *CriteriaOverride) validation.Criteria {
	c := validation.DefaultCriteria()
	if o == nil {
		return c
	}
	if o.MinActiveAds != nil {
		c.MinActiveAds = *o.MinActiveAds
	}
	if o.MinUniproductRatio != nil {
		c.MinUniproductRatio = *o.MinUniproductRatio
	}
	if o.MinDuplicatesScore != nil {
		c.MinDuplicatesScore = *o.MinDuplicatesScore
	}
	return c
}

// handleGetRun returns run details and a candidate count
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runID, ok := s.parseRunID(w, r)
	if !ok {
		return
	}

	run, err := s.store.GetRun(r.Context(), runID)
	if err != nil {
		log.Printf("Error fetching run %s: %v", runID, err)
		s.errorResponse(w, http.StatusInternalServerError, "Failed to fetch run")
		return
	}
	if run == nil {
		s.errorResponse(w, http.StatusNotFound, "Run not found")
		return
	}

	count, err := s.store.CountCandidates(r.Context(), runID)
	if err != nil {
		log.Printf("Error counting candidates for run %s: %v", runID, err)
		s.errorResponse(w, http.StatusInternalServerError, "Failed to fetch run")
		return
	}

	s.jsonResponse(w, http.StatusOK, RunResponse{
		ID:              run.ID.String(),
		Country:         run.TargetCountry,
		Language:        run.Language,
		Keywords:        run.Keywords,
		Status:          run.Status,
		Summary:         run.Summary,
		CreatedAt:       run.CreatedAt,
		FinishedAt:      run.FinishedAt,
		CandidatesCount: count,
	})
}

// handleListCandidates returns a run's candidates ordered by score
func (s *Server) handleListCandidates(w http.ResponseWriter, r *http.Request) {
	runID, ok := s.parseRunID(w, r)
	if !ok {
		return
	}

	status := r.URL.Query().Get("status")
	candidates, err := s.store.ListCandidates(r.Context(), runID, status)
	if err != nil {
		log.Printf("Error fetching candidates for run %s: %v", runID, err)
		s.errorResponse(w, http.StatusInternalServerError, "Failed to fetch candidates")
		return
	}

	out := make([]CandidateResponse, 0, len(candidates))
	for _, c := range candidates {
		resp := CandidateResponse{
			ID:                c.ID.String(),
			AdvertiserName:    c.AdvertiserName,
			ProductDetected:   c.ProductDetected,
			ActiveAdsCount:    c.ActiveAdsCount,
			UniproductRatio:   c.UniproductRatio,
			DuplicatesScore:   c.DuplicatesScore,
			TotalScore:        c.TotalScore,
			ValidationReasons: c.ValidationReason,
			Status:            c.Status,
			PageURL:           c.PageURL,
			ArAdsCount:        c.ArAdsCount,
		}
		if c.ArAdsCount != nil {
			resp.Replication = db.ReplicationLevel(*c.ArAdsCount)
		}
		out = append(out, resp)
	}

	s.jsonResponse(w, http.StatusOK, out)
}

// handleListRuns returns the most recent runs
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.errorResponse(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	runs, err := s.store.ListRuns(r.Context(), limit)
	if err != nil {
		log.Printf("Error listing runs: %v", err)
		s.errorResponse(w, http.StatusInternalServerError, "Failed to list runs")
		return
	}

	out := make([]RunSummaryResponse, 0, len(runs))
	for _, run := range runs {
		out = append(out, RunSummaryResponse{
			ID:         run.ID.String(),
			Country:    run.TargetCountry,
			Keywords:   run.Keywords,
			Status:     run.Status,
			Summary:    run.Summary,
			CreatedAt:  run.CreatedAt,
			FinishedAt: run.FinishedAt,
		})
	}

	s.jsonResponse(w, http.StatusOK, out)
}

// parseRunID extracts and validates the {id} path value.
func (s *Server) parseRunID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	idStr := r.PathValue("id")
	if idStr == "" {
		s.errorResponse(w, http.StatusBadRequest, "Run ID is required")
		return uuid.Nil, false
	}
	runID, err := uuid.Parse(idStr)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid run ID")
		return uuid.Nil, false
	}
	return runID, true
}
