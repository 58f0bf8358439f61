package server

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"promptlab/internal/errors"
	"promptlab/internal/logger"
	"promptlab/internal/services"
	"promptlab/internal/version"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Version,
	})
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	templates, err := s.templates.ListTemplates(r.Context(), category)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if templates == nil {
		templates = []*services.PromptTemplate{}
	}
	writeJSON(w, http.StatusOK, templates)
}

// templateRequest is the body of template create and update calls
type templateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	PromptText  string `json:"prompt_text"`
	Category    string `json:"category"`
}

func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if readJSON(w, r, &req) != nil {
		return
	}
	id, err := s.templates.CreateTemplate(r.Context(), req.Name, req.Description, req.PromptText, req.Category)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int{"id": id})
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid template ID")
		return
	}
	t, err := s.templates.GetTemplate(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid template ID")
		return
	}
	var req templateRequest
	if readJSON(w, r, &req) != nil {
		return
	}
	if err := s.templates.UpdateTemplate(r.Context(), id, req.Name, req.Description, req.PromptText, req.Category); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid template ID")
		return
	}
	if err := s.templates.DeleteTemplate(r.Context(), id); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleTemplateStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.templates.GetUsageStats(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleListHandlers(w http.ResponseWriter, r *http.Request) {
	infos := s.registry.List()
	if infos == nil {
		infos = []services.HandlerInfo{}
	}
	writeJSON(w, http.StatusOK, infos)
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	h, err := s.registry.Get(id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	var req services.ExecuteRequest
	if readJSON(w, r, &req) != nil {
		return
	}
	if req.RunCount == 0 {
		req.RunCount = 1
	}

	results, err := h.Execute(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// writeServiceError maps service errors onto HTTP status codes
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrTemplateNotFound),
		errors.Is(err, services.ErrHandlerNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case services.IsConfigurationError(err),
		errors.Is(err, services.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		logger.Errorf("request failed: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
