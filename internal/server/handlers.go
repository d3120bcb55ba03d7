package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/tradeidea/internal/models"
	"github.com/hyperjump/tradeidea/internal/scheduler"
	"github.com/hyperjump/tradeidea/internal/store"
)

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"message": "Welcome to Trading Idea Generator!",
		"status":  "healthy",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	s.logger.Info("starting trade idea generation")
	out, err := s.generator.Generate(r.Context())
	if err != nil {
		s.logger.Error("error generating trade idea", zap.Error(err))
		s.respondDetail(w, http.StatusInternalServerError, "Error generating trade idea: "+err.Error())
		return
	}
	s.logger.Info("successfully generated trade idea")
	s.respondJSON(w, http.StatusOK, models.GenerateResponse{GeneratedOutput: out})
}

// statusResponse is the body of GET /api/v1/status.
type statusResponse struct {
	PDFFiles int                `json:"pdf_files"`
	Jobs     []scheduler.Job    `json:"jobs"`
	Index    models.IndexStatus `json:"index"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{Jobs: []scheduler.Job{}}
	if s.jobs != nil {
		resp.Jobs = s.jobs.Jobs()
	}
	if entries, err := os.ReadDir(s.data.PDFDir); err == nil {
		for _, e := range entries {
			if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
				resp.PDFFiles++
			}
		}
	}
	idx, err := store.Inspect(r.Context(), s.data.IndexDir)
	if err != nil {
		s.logger.Error("status: inspect index failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp.Index = idx
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

func (s *Server) respondDetail(w http.ResponseWriter, status int, detail string) {
	s.respondJSON(w, status, map[string]string{"detail": detail})
}
