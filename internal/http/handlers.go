package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"salesdash/internal/core"
	"salesdash/internal/dashboard"
	applog "salesdash/internal/log"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "ok",
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
		"uptime":       time.Since(s.startedAt).Round(time.Second).String(),
		"requests":     s.tracer.GetMetrics().TotalRequests,
		"avg_micros":   s.tracer.GetMetrics().AverageResponseTime,
		"rate_limited": s.limiter.GetMetrics().Rejected,
		"suspicious":   s.detector.GetMetrics().SuspiciousRequests,
	})
}

// handleReady reports ready once the dataset can be loaded.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	if s.datasets == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready", "error": "no data source configured"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
	defer cancel()
	rows, err := s.datasets.Rows(ctx)
	if err != nil {
		applog.FromContext(ctx).WarnContext(ctx, "Readiness check failed", applog.FieldError, err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready", "error": "dataset unavailable"})
		return
	}
	body := map[string]interface{}{"status": "ready", "rows": len(rows)}
	if last, ok := s.lastImport(ctx); ok {
		body["last_import"] = last
	}
	writeJSON(w, http.StatusOK, body)
}

// lastImportBody is the /readyz view of the most recent dataset replacement.
type lastImportBody struct {
	JobID      string    `json:"job_id"`
	Origin     string    `json:"origin"`
	Rows       int       `json:"rows"`
	ImportedAt time.Time `json:"imported_at"`
}

// lastImport reads the import log. A failing log does not fail readiness.
func (s *Server) lastImport(ctx context.Context) (lastImportBody, bool) {
	if s.history == nil {
		return lastImportBody{}, false
	}
	imp, ok, err := s.history.LastImport(ctx)
	if err != nil {
		applog.FromContext(ctx).WarnContext(ctx, "Import log unavailable", applog.FieldError, err)
		return lastImportBody{}, false
	}
	if !ok {
		return lastImportBody{}, false
	}
	return lastImportBody{JobID: imp.JobID, Origin: imp.Origin, Rows: imp.Rows, ImportedAt: imp.ImportedAt}, true
}

// loadRows fetches the dataset, writing a 500 on failure.
func (s *Server) loadRows(w http.ResponseWriter, r *http.Request) ([]core.SalesRow, bool) {
	if s.datasets == nil {
		InternalServerError("no data source configured").Write(w)
		return nil, false
	}
	ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
	defer cancel()

	rows, err := s.datasets.Rows(ctx)
	if err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Dataset load failed",
			applog.FieldError, err,
			applog.FieldOperation, applog.OpRead,
			applog.FieldPath, r.URL.Path)
		InternalServerError("failed to load sales data").Write(w)
		return nil, false
	}
	return rows, true
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	rows, ok := s.loadRows(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, dashboard.Overview(rows, branchParam(r)))
}

func (s *Server) handleYear(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	year, err := ParseYear(r.PathValue("year"))
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	rows, ok := s.loadRows(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, dashboard.Year(rows, year, branchParam(r)))
}

func (s *Server) handleComparison(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	q := r.URL.Query()
	years, err := ParseYearPair(q, s.years)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	month, err := ParseMonthParam(q)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	rows, ok := s.loadRows(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, dashboard.Comparison(rows, years.Base, years.Compare, branchParam(r), month))
}

func (s *Server) handleRange(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	params, err := ParseRangeParams(r.URL.Query())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	rows, ok := s.loadRows(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, dashboard.Range(rows, params.Current, params.Baseline, branchParam(r)))
}

func (s *Server) handleGrowthTable(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	years, err := ParseYearPair(r.URL.Query(), s.years)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	rows, ok := s.loadRows(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, dashboard.GrowthTable(rows, years.Base, years.Compare))
}

func (s *Server) handleContribution(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	year, err := ParseIntParam(r.URL.Query(), "year", 0)
	if err != nil || year < 0 {
		BadRequestError("invalid year").Write(w)
		return
	}
	rows, ok := s.loadRows(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, dashboard.Contribution(rows, year))
}

// handleImport accepts {"path": "..."} as JSON or a form. Queued imports
// answer 202 with the job id; inline imports answer 200 with the row count.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if s.imports == nil {
		ErrorResponse(http.StatusConflict, "imports are not enabled").Write(w)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			ErrorResponse(http.StatusRequestEntityTooLarge, "request body too large").Write(w)
			return
		}
		BadRequestError(err.Error()).Write(w)
		return
	}
	path := parser.Get("path")
	if path == "" {
		BadRequestError("path is required").Write(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), importTimeout)
	defer cancel()

	res, err := s.imports.RequestImport(ctx, path)
	if err != nil {
		resp := importErrorResponse(err)
		logger := applog.FromContext(ctx)
		if resp.StatusCode() >= http.StatusInternalServerError || errors.Is(err, context.DeadlineExceeded) {
			logger.ErrorContext(ctx, "Import request failed", applog.FieldError, err, applog.FieldOrigin, path)
		} else {
			logger.WarnContext(ctx, "Import request rejected", applog.FieldError, err, applog.FieldOrigin, path)
		}
		resp.Write(w)
		return
	}

	status := http.StatusOK
	if res.Queued {
		status = http.StatusAccepted
	}
	writeJSON(w, status, res)
}
