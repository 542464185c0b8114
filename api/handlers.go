package api

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/seenimoa/stockqa/internal/config"
	"github.com/seenimoa/stockqa/internal/qa"
	"github.com/seenimoa/stockqa/pkg/models"
)

const maxBodyBytes = 1 << 20

// ErrorResponse is the body of every non-2xx reply except the degraded
// query response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// handleQuery serves POST /api/query.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req models.QueryRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "No data provided")
		return
	}

	resp, err := s.svc.Submit(r.Context(), req)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, resp)
	case qa.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, qa.ErrEngineUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, resp)
	default:
		writeError(w, http.StatusInternalServerError, "Server error: "+err.Error())
	}
}

// handleHealth serves GET /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Health())
}

// handleCompany serves GET /api/company/{symbol}.
func (s *Server) handleCompany(w http.ResponseWriter, r *http.Request) {
	summary, err := s.svc.CompanySummary(r.Context(), chi.URLParam(r, "symbol"))
	if err != nil {
		status := http.StatusInternalServerError
		if qa.IsValidation(err) {
			status = http.StatusBadRequest
		}
		s.logger.Sugar().Errorw("company lookup failed", "symbol", chi.URLParam(r, "symbol"), "error", err)
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// handleConfigKeys reports which credentials are set, masked.
func (s *Server) handleConfigKeys(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, config.CheckAPIKeys(s.cfg))
}

// handleIndex serves the embedded web page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(s.ui, "index.html")
	if err != nil {
		writeError(w, http.StatusNotFound, "web UI not available")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(http.StatusOK)
	w.Write(data) //nolint:errcheck
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
