// package httpserver exposes the Command Center HTTP surface: the
// orchestrator signal endpoint, the proposal read/decision routes, and the
// health probes.
package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/commandcenter/command-center/internal/auth"
	"github.com/commandcenter/command-center/internal/config"
	"github.com/commandcenter/command-center/internal/dispatch"
	"github.com/commandcenter/command-center/internal/model"
	"github.com/commandcenter/command-center/internal/notify"
	"github.com/commandcenter/command-center/internal/orchestrator"
	"github.com/commandcenter/command-center/internal/source"
	"github.com/commandcenter/command-center/internal/store"
)

type Server struct {
	cfg        *config.Config
	store      *store.Store
	src        source.Source
	dispatcher *dispatch.Dispatcher
	client     orchestrator.Client
	bus        *notify.Bus
}

func New(cfg *config.Config, st *store.Store, src source.Source, d *dispatch.Dispatcher, client orchestrator.Client, bus *notify.Bus) *Server {
	return &Server{cfg: cfg, store: st, src: src, dispatcher: d, client: client, bus: bus}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.SessionMiddleware([]byte(s.cfg.SessionSecret)))

		r.Post("/orchestrator/signal", s.handleSignal)
		r.Get("/proposals", s.handleListProposals)
		r.Post("/proposals/{id}/approve", s.handleDecision(model.ActionApprove))
		r.Post("/proposals/{id}/reject", s.handleDecision(model.ActionReject))
		r.Get("/notifications", s.handleNotifications)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{"status": "ok", "ts": time.Now().UTC()})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.src.Ping(ctx); err != nil {
		respondError(w, http.StatusServiceUnavailable, "Not ready", "proposal source not reachable")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type signalRequest struct {
	WorkflowID string                 `json:"workflowId"`
	SignalName string                 `json:"signalName"`
	SignalArgs map[string]interface{} `json:"signalArgs"`
}

// handleSignal forwards a raw signal request to the orchestrator. It is the
// endpoint the dashboard front end calls for approve/reject actions that
// bypass the server-side dispatcher.
func (s *Server) handleSignal(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "Unauthorized", "Please sign in to continue")
		return
	}

	var req signalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request", "Invalid request body")
		return
	}
	if req.WorkflowID == "" {
		respondError(w, http.StatusBadRequest, "Invalid request", "Workflow ID is required")
		return
	}
	if req.SignalName == "" {
		respondError(w, http.StatusBadRequest, "Invalid request", "Signal name is required")
		return
	}
	if req.SignalArgs == nil {
		req.SignalArgs = map[string]interface{}{}
	}

	err := s.client.Signal(r.Context(), orchestrator.SignalRequest{
		WorkflowID: req.WorkflowID,
		SignalName: req.SignalName,
		SignalArgs: req.SignalArgs,
	})
	if err != nil {
		if errors.Is(err, orchestrator.ErrWorkflowNotFound) {
			respondError(w, http.StatusNotFound, "Workflow not found", err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "Orchestrator error", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"workflowId": req.WorkflowID,
		"signalName": req.SignalName,
	})
}

// handleDecision is the server-side approve/reject path: it resolves the
// proposal from the store and runs the full dispatch flow, so busy-state,
// optimistic update and notifications all apply.
func (s *Server) handleDecision(action model.Action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.UserID(r.Context())
		if userID == "" {
			respondError(w, http.StatusUnauthorized, "Unauthorized", "Please sign in to continue")
			return
		}

		id := chi.URLParam(r, "id")
		p, ok := s.store.Get(id)
		if !ok {
			respondError(w, http.StatusNotFound, "Proposal not found", "No proposal with id "+id)
			return
		}

		err := s.dispatcher.Dispatch(r.Context(), p, action, userID)
		switch {
		case err == nil:
			respondJSON(w, http.StatusOK, map[string]interface{}{
				"success": true,
				"id":      p.ID,
				"status":  action.TargetStatus(),
			})
		case errors.Is(err, dispatch.ErrBusy):
			respondError(w, http.StatusConflict, "Dispatch in progress", "A decision for this proposal is already in flight")
		case errors.Is(err, orchestrator.ErrWorkflowNotFound):
			respondError(w, http.StatusNotFound, "Workflow not found", err.Error())
		default:
			respondError(w, http.StatusInternalServerError, "Dispatch failed", err.Error())
		}
	}
}

// handleListProposals serves the store snapshot. When filter query params
// are present the source is queried directly so one client's view does not
// mutate the shared store filter.
func (s *Server) handleListProposals(w http.ResponseWriter, r *http.Request) {
	if auth.UserID(r.Context()) == "" {
		respondError(w, http.StatusUnauthorized, "Unauthorized", "Please sign in to continue")
		return
	}

	q := r.URL.Query()
	filter := model.Filter{
		Status:    q.Get("status"),
		EventType: q.Get("eventType"),
		Search:    q.Get("search"),
	}

	if filter.IsZero() {
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"proposals": s.store.Snapshot(),
			"error":     s.store.Err(),
		})
		return
	}

	rows, err := s.src.Query(r.Context(), source.QueryParams{Filter: filter, Limit: s.cfg.FetchLimit})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Query failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"proposals": rows})
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	if auth.UserID(r.Context()) == "" {
		respondError(w, http.StatusUnauthorized, "Unauthorized", "Please sign in to continue")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"notifications": s.bus.Active()})
}

func respondJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, code int, errLabel, message string) {
	respondJSON(w, code, map[string]string{"error": errLabel, "message": message})
}
