package inspect

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mnemo-ai/mnemo/internal/session"
	"github.com/mnemo-ai/mnemo/internal/transcript"
)

// buildRouter constructs the chi mux with all routes wired.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth())
	r.Get("/sessions", s.handleListSessions())
	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Get("/", s.handleGetSession())
		r.Get("/transcript", s.handleTranscript())
		r.Get("/live", s.handleLive())
	})
	if s.memories != nil {
		r.Get("/memories/search", s.handleMemorySearch())
	}
	if s.registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}

	return r
}

// HealthResponse is the JSON response for GET /healthz.
type HealthResponse struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
	Uptime   string `json:"uptime"`
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := HealthResponse{
			Status: "ok",
			Uptime: time.Since(s.startedAt).Round(time.Second).String(),
		}
		if list, err := s.sessions.List(); err == nil {
			resp.Sessions = len(list)
		} else {
			resp.Status = "degraded"
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(resp)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) handleListSessions() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		list, err := s.sessions.List()
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func (s *Server) handleGetSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		meta, err := s.sessions.Get(chi.URLParam(r, "id"))
		if errors.Is(err, session.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, err)
			return
		}
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, meta)
	}
}

// handleTranscript streams a session transcript as JSON. The optional
// tail query parameter limits the response to the last N entries.
func (s *Server) handleTranscript() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var (
			entries []transcript.Entry
			err     error
		)
		if raw := r.URL.Query().Get("tail"); raw != "" {
			n, convErr := strconv.Atoi(raw)
			if convErr != nil || n < 0 {
				s.writeError(w, http.StatusBadRequest, errors.New("inspect: tail must be a non-negative integer"))
				return
			}
			entries, err = s.transcripts.ReadTail(id, n)
		} else {
			entries, err = s.transcripts.Read(id)
		}
		if errors.Is(err, transcript.ErrInvalidSessionID) {
			s.writeError(w, http.StatusBadRequest, err)
			return
		}
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err)
			return
		}
		if entries == nil {
			entries = []transcript.Entry{}
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

func (s *Server) handleMemorySearch() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query().Get("q")
		if query == "" {
			s.writeError(w, http.StatusBadRequest, errors.New("inspect: q parameter is required"))
			return
		}
		limit := 20
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				s.writeError(w, http.StatusBadRequest, errors.New("inspect: limit must be a positive integer"))
				return
			}
			limit = n
		}

		entries, err := s.memories.Search(r.Context(), query, limit)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
