package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ShayCichocki/sprintforge/internal/completion"
	"github.com/ShayCichocki/sprintforge/internal/protocol"
	"github.com/ShayCichocki/sprintforge/internal/store"
	"github.com/ShayCichocki/sprintforge/internal/stream"
)

// handleChat serves the main chat endpoint. Ordinary exchanges get a single
// JSON envelope; a completion trigger switches the response to an NDJSON
// event stream. All trigger validation happens before the first streamed
// byte, so rejections are plain HTTP errors the client can branch on.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	var req protocol.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.CompletionTrigger() {
		s.runCompletion(w, r, &req)
		return
	}

	resp, code := s.passThrough(r, &req)
	writeJSON(w, code, resp)
}

// handleMessage is the non-streaming pass-through. Completion triggers are
// not accepted here; clients must use /chat for the event stream.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	var req protocol.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.CompletionTrigger() {
		writeError(w, http.StatusBadRequest, "completion triggers must use /chat")
		return
	}

	resp, code := s.passThrough(r, &req)
	writeJSON(w, code, resp)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if s.maintenanceActive() {
		status = "maintenance"
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

// passThrough handles started, disactive, and stage < 8 active exchanges.
func (s *Server) passThrough(r *http.Request, req *protocol.ChatRequest) (*protocol.ChatResponse, int) {
	sess, err := s.db.GetSession(req.SessionID)
	if err != nil {
		log.Printf("[server] session lookup failed: %v", err)
		return protocol.ErrorEnvelope("session lookup failed", req.IdeaStateStage), http.StatusInternalServerError
	}

	switch req.ConnectionStatus {
	case protocol.StatusStarted:
		if sess == nil {
			sess = &store.Session{
				ID:        req.SessionID,
				UserID:    req.UserID,
				Stage:     req.IdeaStateStage,
				Status:    store.SessionActive,
				CreatedAt: time.Now(),
			}
			if sess.ID == "" {
				sess.ID = uuid.NewString()
			}
			if err := s.db.CreateSession(sess); err != nil {
				log.Printf("[server] create session failed: %v", err)
				return protocol.ErrorEnvelope("could not open session", req.IdeaStateStage), http.StatusInternalServerError
			}
		}
		return &protocol.ChatResponse{
			ConnectionStatus: protocol.StatusStarted,
			IdeaStateStage:   sess.Stage,
		}, http.StatusOK

	case protocol.StatusDisactive:
		return &protocol.ChatResponse{
			ConnectionStatus: protocol.StatusDisactive,
			IdeaStateStage:   req.IdeaStateStage,
		}, http.StatusOK

	default:
		if sess == nil {
			return protocol.ErrorEnvelope("unknown session", req.IdeaStateStage), http.StatusNotFound
		}
		if sess.Stage != req.IdeaStateStage {
			if err := s.db.UpdateSessionStage(sess.ID, req.IdeaStateStage); err != nil {
				log.Printf("[server] update session stage failed: %v", err)
			}
		}
		resp, err := s.chat.Respond(r.Context(), req)
		if err != nil {
			log.Printf("[server] chat respond failed: %v", err)
			return protocol.ErrorEnvelope("agent failed to respond", req.IdeaStateStage), http.StatusBadGateway
		}
		return resp, http.StatusOK
	}
}

// runCompletion validates the trigger, then switches the connection to an
// NDJSON event stream and runs the orchestrator against it.
func (s *Server) runCompletion(w http.ResponseWriter, r *http.Request, req *protocol.ChatRequest) {
	if s.maintenanceActive() {
		writeError(w, http.StatusServiceUnavailable, "server is in maintenance mode, new completion runs are not accepted")
		return
	}

	sess, err := s.db.GetSession(req.SessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "session lookup failed")
		return
	}
	if sess == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown session %s", req.SessionID))
		return
	}
	if sess.Status == store.SessionCompleted {
		writeError(w, http.StatusConflict, (&completion.CompletedError{ProjectID: sess.ProjectID}).Error())
		return
	}

	release, err := s.orch.Acquire(req.SessionID)
	if err != nil {
		if errors.Is(err, completion.ErrRunInProgress) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer release()

	leadUserID := sess.UserID
	if req.UserPreferences != nil && req.UserPreferences.UserID != "" {
		leadUserID = req.UserPreferences.UserID
	} else if req.UserID != "" {
		leadUserID = req.UserID
	}

	snap := &completion.Snapshot{
		SessionID:   sess.ID,
		Stage:       req.IdeaStateStage,
		IdeaTitle:   sess.IdeaTitle,
		IdeaSummary: sess.IdeaSummary,
		LeadUserID:  leadUserID,
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	out := stream.NewWriter(w)
	if err := s.orch.Run(r.Context(), snap, out); err != nil {
		// Already emitted on the stream or lost with the client; nothing
		// more to send here.
		log.Printf("[server] completion run for session %s ended with error: %v", sess.ID, err)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[server] write response failed: %v", err)
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
