package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/openhealths/ohealth-sub007/internal/models"
	"github.com/openhealths/ohealth-sub007/internal/repository"
	syncpipe "github.com/openhealths/ohealth-sub007/internal/sync"
)

// UserStore resolves the acting user of a request.
type UserStore interface {
	GetByID(ctx context.Context, userID string) (*models.User, error)
}

// Server exposes the sync pipeline over HTTP. Dispatch endpoints only
// enqueue work; the worker loop does the actual synchronization.
type Server struct {
	users    UserStore
	pipeline *syncpipe.Pipeline
	resumer  *syncpipe.ResumeController
	tracker  *syncpipe.StatusTracker
}

func New(users UserStore, pipeline *syncpipe.Pipeline, resumer *syncpipe.ResumeController, tracker *syncpipe.StatusTracker) *Server {
	return &Server{
		users:    users,
		pipeline: pipeline,
		resumer:  resumer,
		tracker:  tracker,
	}
}

// RegisterHandlers wires the sync endpoints into mux.
func (s *Server) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("POST /sync/first-login", s.handleFirstLogin)
	mux.HandleFunc("POST /sync/entity", s.handleEntity)
	mux.HandleFunc("POST /sync/resume", s.handleResume)
	mux.HandleFunc("GET /sync/status/{legalEntityID}", s.handleStatus)
	mux.HandleFunc("GET /health", s.handleHealth)
}

type dispatchRequest struct {
	UserID     string `json:"user_id"`
	EntityType string `json:"entity_type,omitempty"`
}

type dispatchResponse struct {
	BatchID       string `json:"batch_id"`
	BatchName     string `json:"batch_name"`
	LegalEntityID string `json:"legal_entity_id"`
}

func (s *Server) handleFirstLogin(w http.ResponseWriter, r *http.Request) {
	var req dispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	actor, err := s.users.GetByID(r.Context(), req.UserID)
	if err != nil {
		s.writeUserError(w, r, err)
		return
	}

	batch, err := s.pipeline.DispatchFirstLogin(r.Context(), actor.LegalEntityID, actor)
	if err != nil {
		if errors.Is(err, syncpipe.ErrSyncInProgress) {
			writeError(w, http.StatusConflict, "synchronization already in progress")
			return
		}
		s.writeInternalError(w, r, err, "failed to dispatch first-login sync")
		return
	}

	writeJSON(w, http.StatusAccepted, dispatchResponse{
		BatchID:       batch.ID,
		BatchName:     batch.Name,
		LegalEntityID: actor.LegalEntityID,
	})
}

func (s *Server) handleEntity(w http.ResponseWriter, r *http.Request) {
	var req dispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	entityType, ok := parseEntityType(req.EntityType)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown entity_type")
		return
	}

	actor, err := s.users.GetByID(r.Context(), req.UserID)
	if err != nil {
		s.writeUserError(w, r, err)
		return
	}

	batch, err := s.pipeline.DispatchEntity(r.Context(), actor.LegalEntityID, entityType, actor)
	if err != nil {
		s.writeInternalError(w, r, err, "failed to dispatch entity sync")
		return
	}

	writeJSON(w, http.StatusAccepted, dispatchResponse{
		BatchID:       batch.ID,
		BatchName:     batch.Name,
		LegalEntityID: actor.LegalEntityID,
	})
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	var req dispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	entityType, ok := parseEntityType(req.EntityType)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown entity_type")
		return
	}

	actor, err := s.users.GetByID(r.Context(), req.UserID)
	if err != nil {
		s.writeUserError(w, r, err)
		return
	}

	batch, err := s.resumer.Resume(r.Context(), actor.LegalEntityID, entityType, actor)
	if err != nil {
		switch {
		case errors.Is(err, syncpipe.ErrNotResumable):
			writeError(w, http.StatusConflict, "synchronization is not in a resumable state")
		case errors.Is(err, syncpipe.ErrNothingToResume):
			writeError(w, http.StatusNotFound, "no failed work to resume")
		default:
			s.writeInternalError(w, r, err, "failed to resume sync")
		}
		return
	}

	writeJSON(w, http.StatusAccepted, dispatchResponse{
		BatchID:       batch.ID,
		BatchName:     batch.Name,
		LegalEntityID: actor.LegalEntityID,
	})
}

type statusResponse struct {
	LegalEntityID string            `json:"legal_entity_id"`
	Overall       string            `json:"overall"`
	Entities      map[string]string `json:"entities"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	legalEntityID := r.PathValue("legalEntityID")
	if legalEntityID == "" {
		writeError(w, http.StatusBadRequest, "legal entity id is required")
		return
	}

	overall, err := s.tracker.Current(r.Context(), legalEntityID, models.EntityOverall)
	if err != nil {
		s.writeInternalError(w, r, err, "failed to read sync status")
		return
	}

	resp := statusResponse{
		LegalEntityID: legalEntityID,
		Overall:       string(overall),
		Entities:      make(map[string]string),
	}
	for _, d := range syncpipe.Descriptors() {
		if d.Type == models.EntityCompleteSync {
			continue
		}
		state, err := s.tracker.Current(r.Context(), legalEntityID, d.Type)
		if err != nil {
			s.writeInternalError(w, r, err, "failed to read sync status")
			return
		}
		resp.Entities[string(d.Type)] = string(state)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) writeUserError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, repository.ErrUserNotFound) {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	s.writeInternalError(w, r, err, "failed to load user")
}

func (s *Server) writeInternalError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	log.Ctx(r.Context()).Error().Err(err).Msg(msg)
	writeError(w, http.StatusInternalServerError, msg)
}

func parseEntityType(raw string) (models.EntityType, bool) {
	t := models.EntityType(raw)
	if _, ok := syncpipe.DescriptorFor(t); !ok || t == models.EntityCompleteSync {
		return "", false
	}
	return t, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
