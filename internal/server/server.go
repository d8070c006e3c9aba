// Package server exposes the assistant over HTTP: the two ask entry points,
// the snapshot view, health and metrics.
package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"shop-assistant/internal/common/logger"
	"shop-assistant/internal/common/observability"
	"shop-assistant/internal/common/validation"
	"shop-assistant/internal/models"
)

const maxBodyBytes = 64 * 1024

// Asker is the answer pipeline surface the server needs.
type Asker interface {
	Answer(ctx context.Context, q models.Question) models.AnswerResult
	AnswerQuick(ctx context.Context, q models.Question) models.AnswerResult
}

// SnapshotBuilder renders the per-actor business snapshot.
type SnapshotBuilder interface {
	Build(ctx context.Context, role models.Role, actorID string) (*models.BusinessSnapshot, error)
}

// HealthCheck probes one upstream dependency.
type HealthCheck func(ctx context.Context) error

type Server struct {
	asker      Asker
	snapshots  SnapshotBuilder
	checks     map[string]HealthCheck
	cacheSizes func() map[string]int
	obs        *observability.Observability
	logger     logger.Logger
}

type Deps struct {
	Asker      Asker
	Snapshots  SnapshotBuilder
	Checks     map[string]HealthCheck
	CacheSizes func() map[string]int
	Obs        *observability.Observability
	Logger     logger.Logger
}

func New(deps Deps) *Server {
	return &Server{
		asker:      deps.Asker,
		snapshots:  deps.Snapshots,
		checks:     deps.Checks,
		cacheSizes: deps.CacheSizes,
		obs:        deps.Obs,
		logger:     deps.Logger.WithFields(map[string]interface{}{"component": "server"}),
	}
}

// Routes builds the request mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/assistant/ask", s.handleAsk(false))
	mux.HandleFunc("/api/assistant/ask/quick", s.handleAsk(true))
	mux.HandleFunc("/api/assistant/snapshot", s.handleSnapshot)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

type askRequest struct {
	Question  string `json:"question"`
	ActorID   string `json:"actorId"`
	Role      string `json:"role"`
	RequestID string `json:"requestId"`
	Context   string `json:"context"`
}

func (s *Server) handleAsk(quick bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		start := time.Now()

		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			writeError(w, http.StatusBadRequest, "failed to read request body")
			return
		}

		var raw map[string]interface{}
		if err := json.Unmarshal(body, &raw); err != nil {
			writeError(w, http.StatusBadRequest, "request body is not valid JSON")
			return
		}

		result, err := validation.ValidateInput(raw, validation.AskRequestSchema)
		if err != nil {
			s.logger.Error("request validation failed", map[string]interface{}{"error": err.Error()})
			writeError(w, http.StatusInternalServerError, "validation error")
			return
		}
		if !result.Valid {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{
				"error":  "invalid request",
				"fields": result.GetErrorMessages(),
			})
			return
		}

		var req askRequest
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(w, http.StatusBadRequest, "request body is not valid JSON")
			return
		}

		role, _ := models.ParseRole(req.Role)
		q := models.Question{
			RequestID: req.RequestID,
			ActorID:   req.ActorID,
			Role:      role,
			Text:      req.Question,
			Context:   req.Context,
		}
		if q.RequestID == "" {
			q.RequestID = uuid.NewString()
		}

		var res models.AnswerResult
		if quick {
			res = s.asker.AnswerQuick(r.Context(), q)
		} else {
			res = s.asker.Answer(r.Context(), q)
		}

		status := "success"
		if !res.Success {
			status = "failed"
		}
		s.obs.RecordRequestProcessed(r.Context(), status)
		s.obs.RecordRequestDuration(r.Context(), time.Since(start), status)

		s.logger.Info("question answered", map[string]interface{}{
			"requestId": q.RequestID,
			"actorId":   q.ActorID,
			"role":      string(q.Role),
			"source":    string(res.Source),
			"success":   res.Success,
			"elapsedMs": res.ElapsedMs,
		})

		// The caller always gets an answer and a success flag, never an
		// HTTP-level failure for pipeline errors.
		writeJSON(w, http.StatusOK, res)
	}
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	actorID := r.URL.Query().Get("actorId")
	role, ok := models.ParseRole(r.URL.Query().Get("role"))
	if actorID == "" || !ok {
		writeError(w, http.StatusBadRequest, "actorId and role (owner|supplier) are required")
		return
	}

	snap, err := s.snapshots.Build(r.Context(), role, actorID)
	if err != nil {
		s.logger.Error("snapshot build failed", map[string]interface{}{
			"actorId": actorID,
			"error":   err.Error(),
		})
		writeError(w, http.StatusServiceUnavailable, "snapshot unavailable")
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	services := make(map[string]string, len(s.checks))
	status := "healthy"
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			services[name] = "down: " + err.Error()
			status = "degraded"
		} else {
			services[name] = "up"
		}
	}

	payload := map[string]interface{}{
		"status":   status,
		"services": services,
		"time":     time.Now().Format(time.RFC3339),
	}
	if s.cacheSizes != nil {
		payload["caches"] = s.cacheSizes()
	}

	writeJSON(w, http.StatusOK, payload)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
