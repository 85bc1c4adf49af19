package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	appanalysis "github.com/bagaskara/sentrascan/internal/application/analysis"
	appscans "github.com/bagaskara/sentrascan/internal/application/scans"
	domai "github.com/bagaskara/sentrascan/internal/domain/ai"
	domain "github.com/bagaskara/sentrascan/internal/domain/scans"
	"github.com/bagaskara/sentrascan/internal/middleware"
)

type Router struct {
	scansSvc    *appscans.Service
	analysisSvc *appanalysis.Service
	clock       func() time.Time
}

// NewRouter mounts the v1 API. The scan triggers dispatch to background
// goroutines; everything else is synchronous.
func NewRouter(scansSvc *appscans.Service, analysisSvc *appanalysis.Service, healthChecks map[string]middleware.HealthChecker) http.Handler {
	r := &Router{scansSvc: scansSvc, analysisSvc: analysisSvc, clock: func() time.Time { return time.Now().UTC() }}
	mux := chi.NewRouter()

	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))
	mux.Use(middleware.LoggingMiddleware)
	mux.Use(middleware.RateLimitMiddleware(60, 1))

	mux.Get("/health", middleware.HealthHandler(healthChecks))
	mux.Get("/healthz", middleware.LivenessHandler)

	mux.Route("/v1", func(rt chi.Router) {
		rt.Post("/targets", r.wrap(r.handleCreateTarget))
		rt.Get("/targets", r.wrap(r.handleListTargets))
		rt.Get("/targets/{id}", r.wrap(r.handleGetTarget))

		rt.Post("/jobs", r.wrap(r.handleCreateJob))
		rt.Get("/jobs", r.wrap(r.handleListJobs))
		rt.Get("/jobs/{jobID}", r.wrap(r.handleGetJob))

		rt.Post("/jobs/{jobID}/scan", r.wrap(r.handleTriggerScan))
		rt.Post("/jobs/{jobID}/scan/localhost", r.wrap(r.handleLocalhostScan))
		rt.Post("/jobs/{jobID}/scan/zap", r.wrap(r.handleZapScan))

		rt.Get("/jobs/{jobID}/executions", r.wrap(r.handleListExecutions))
		rt.Get("/jobs/{jobID}/findings", r.wrap(r.handleListFindings))

		rt.Post("/jobs/{jobID}/analysis", r.wrap(r.handleAnalyze))
		rt.Get("/jobs/{jobID}/analysis", r.wrap(r.handleLatestAnalysis))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// httpError carries a client-facing status through the wrap boundary.
type httpError struct {
	status int
	msg    string
}

func (e *httpError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &httpError{status: http.StatusUnprocessableEntity, msg: fmt.Sprintf(format, args...)}
}

func conflict(format string, args ...any) error {
	return &httpError{status: http.StatusConflict, msg: fmt.Sprintf(format, args...)}
}

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			var he *httpError
			if errors.As(err, &he) {
				http.Error(w, he.msg, he.status)
				return
			}
			if errors.Is(err, domain.ErrJobNotFound) || errors.Is(err, domain.ErrTargetNotFound) {
				http.Error(w, err.Error(), http.StatusNotFound)
				return
			}
			if errors.Is(err, domain.ErrNotLocalhost) {
				http.Error(w, err.Error(), http.StatusUnprocessableEntity)
				return
			}
			if errors.Is(err, domai.ErrQuotaExceeded) {
				http.Error(w, "ai quota exceeded", http.StatusTooManyRequests)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// POST /v1/targets
func (r *Router) handleCreateTarget(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		URL         string `json:"url"`
		Name        string `json:"name"`
		Description string `json:"description"`
		AssetValue  string `json:"asset_value"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return badRequest("invalid body: %v", err)
	}
	if err := middleware.ValidateTargetURL(body.URL); err != nil {
		return badRequest("%v", err)
	}

	// Same URL registered twice returns the existing row.
	if existing, err := r.scansSvc.Targets.GetByURL(req.Context(), body.URL); err != nil {
		return err
	} else if existing != nil {
		return writeJSON(w, http.StatusOK, existing)
	}

	t := &domain.Target{
		URL:         body.URL,
		Name:        middleware.SanitizeString(body.Name),
		Description: middleware.SanitizeString(body.Description),
		AssetValue:  body.AssetValue,
		CreatedAt:   r.clock(),
	}
	if err := r.scansSvc.Targets.Create(req.Context(), t); err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, t)
}

// GET /v1/targets?limit=20
func (r *Router) handleListTargets(w http.ResponseWriter, req *http.Request) error {
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	list, err := r.scansSvc.Targets.List(req.Context(), middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	if list == nil {
		list = []*domain.Target{}
	}
	return writeJSON(w, http.StatusOK, list)
}

// GET /v1/targets/{id}
func (r *Router) handleGetTarget(w http.ResponseWriter, req *http.Request) error {
	id, err := strconv.ParseInt(chi.URLParam(req, "id"), 10, 64)
	if err != nil {
		return badRequest("invalid target id")
	}
	t, err := r.scansSvc.Targets.GetByID(req.Context(), id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, t)
}

// POST /v1/jobs
// Body: {"target_id": 1} or {"target_url": "https://example.com"}
func (r *Router) handleCreateJob(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		TargetID  int64  `json:"target_id"`
		TargetURL string `json:"target_url"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return badRequest("invalid body: %v", err)
	}

	targetID := body.TargetID
	if targetID == 0 {
		if body.TargetURL == "" {
			return badRequest("target_id or target_url is required")
		}
		if err := middleware.ValidateTargetURL(body.TargetURL); err != nil {
			return badRequest("%v", err)
		}
		t, err := r.scansSvc.Targets.GetByURL(req.Context(), body.TargetURL)
		if err != nil {
			return err
		}
		if t == nil {
			t = &domain.Target{URL: body.TargetURL, CreatedAt: r.clock()}
			if err := r.scansSvc.Targets.Create(req.Context(), t); err != nil {
				return err
			}
		}
		targetID = t.ID
	} else {
		if _, err := r.scansSvc.Targets.GetByID(req.Context(), targetID); err != nil {
			return err
		}
	}

	j := &domain.Job{
		JobID:     domain.NewJobID(),
		TargetID:  targetID,
		Status:    domain.JobPending,
		CreatedAt: r.clock(),
	}
	if err := r.scansSvc.Jobs.Create(req.Context(), j); err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, j)
}

// GET /v1/jobs?limit=20
func (r *Router) handleListJobs(w http.ResponseWriter, req *http.Request) error {
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	list, err := r.scansSvc.Jobs.List(req.Context(), middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	if list == nil {
		list = []*domain.Job{}
	}
	return writeJSON(w, http.StatusOK, list)
}

// GET /v1/jobs/{jobID}
func (r *Router) handleGetJob(w http.ResponseWriter, req *http.Request) error {
	j, err := r.jobParam(req)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, j)
}

// POST /v1/jobs/{jobID}/scan
// Dispatches the full pipeline to a background goroutine and returns
// immediately. Only pending jobs can be triggered.
func (r *Router) handleTriggerScan(w http.ResponseWriter, req *http.Request) error {
	j, err := r.jobParam(req)
	if err != nil {
		return err
	}
	if j.Status != domain.JobPending {
		return conflict("job %s is %s, only pending jobs can be scanned", j.JobID, j.Status)
	}

	jobID := j.JobID
	go func() {
		// Request context dies with the response; the scan must not.
		if _, err := r.scansSvc.RunFullScan(context.Background(), jobID); err != nil {
			log.Error().Err(err).Str("job_id", string(jobID)).Msg("background scan error")
		}
	}()

	return writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":    jobID,
		"status":    "queued",
		"message":   "scan started in background",
		"queued_at": r.clock(),
	})
}

// POST /v1/jobs/{jobID}/scan/localhost
// Body: {"source_path": "/home/me/project"} (optional)
func (r *Router) handleLocalhostScan(w http.ResponseWriter, req *http.Request) error {
	j, err := r.jobParam(req)
	if err != nil {
		return err
	}
	if j.Status != domain.JobPending {
		return conflict("job %s is %s, only pending jobs can be scanned", j.JobID, j.Status)
	}

	var body struct {
		SourcePath string `json:"source_path"`
	}
	if req.Body != nil && req.ContentLength != 0 {
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			return badRequest("invalid body: %v", err)
		}
	}
	if err := middleware.ValidateSourcePath(body.SourcePath); err != nil {
		return badRequest("%v", err)
	}

	res, err := r.scansSvc.RunLocalhostScan(req.Context(), j.JobID, body.SourcePath)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, res)
}

// POST /v1/jobs/{jobID}/scan/zap
func (r *Router) handleZapScan(w http.ResponseWriter, req *http.Request) error {
	j, err := r.jobParam(req)
	if err != nil {
		return err
	}
	if j.Status != domain.JobPending {
		return conflict("job %s is %s, only pending jobs can be scanned", j.JobID, j.Status)
	}

	res, err := r.scansSvc.RunZapScan(req.Context(), j.JobID)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, res)
}

// GET /v1/jobs/{jobID}/executions
func (r *Router) handleListExecutions(w http.ResponseWriter, req *http.Request) error {
	j, err := r.jobParam(req)
	if err != nil {
		return err
	}
	list, err := r.scansSvc.Stages.Execs.ListByJob(req.Context(), j.JobID)
	if err != nil {
		return err
	}
	if list == nil {
		list = []*domain.ToolExecution{}
	}
	return writeJSON(w, http.StatusOK, list)
}

// GET /v1/jobs/{jobID}/findings
func (r *Router) handleListFindings(w http.ResponseWriter, req *http.Request) error {
	j, err := r.jobParam(req)
	if err != nil {
		return err
	}
	list, err := r.scansSvc.Stages.Findings.ListByJob(req.Context(), j.JobID)
	if err != nil {
		return err
	}
	if list == nil {
		list = []*domain.Finding{}
	}
	return writeJSON(w, http.StatusOK, list)
}

// POST /v1/jobs/{jobID}/analysis
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	j, err := r.jobParam(req)
	if err != nil {
		return err
	}
	a, err := r.analysisSvc.AnalyzeJob(req.Context(), j.JobID)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, a)
}

// GET /v1/jobs/{jobID}/analysis
func (r *Router) handleLatestAnalysis(w http.ResponseWriter, req *http.Request) error {
	j, err := r.jobParam(req)
	if err != nil {
		return err
	}
	a, err := r.analysisSvc.LatestByJob(req.Context(), j.JobID)
	if err != nil {
		return err
	}
	if a == nil {
		return &httpError{status: http.StatusNotFound, msg: "no analysis for job"}
	}
	return writeJSON(w, http.StatusOK, a)
}

func (r *Router) jobParam(req *http.Request) (*domain.Job, error) {
	id := chi.URLParam(req, "jobID")
	if err := middleware.ValidateJobID(id); err != nil {
		return nil, badRequest("%v", err)
	}
	return r.scansSvc.Jobs.GetByJobID(req.Context(), domain.JobID(id))
}
