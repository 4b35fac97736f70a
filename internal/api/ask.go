package api

import (
	"context"
	"encoding/json"
	"errors"
	"hash/fnv"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/askbot/internal/cascade"
	"github.com/kalambet/askbot/internal/storage"
)

// SessionHeader carries the conversation id in both directions.
const SessionHeader = "X-Session-ID"

type AskRequest struct {
	Question string `json:"question"`
}

type AskResponse struct {
	cascade.Result
	SessionID string `json:"session_id"`
}

// sessionLocks serializes turns of the same session. Ids are hashed onto a
// fixed set of mutexes, so unrelated sessions occasionally share one.
type sessionLocks struct {
	stripes [64]sync.Mutex
}

func (l *sessionLocks) lock(id string) func() {
	h := fnv.New32a()
	h.Write([]byte(id))
	mu := &l.stripes[h.Sum32()%uint32(len(l.stripes))]
	mu.Lock()
	return mu.Unlock
}

// answerTurn runs one turn of sessionID under its lock and records the
// interaction. It is shared by the HTTP and MCP surfaces.
func answerTurn(ctx context.Context, deps Deps, locks *sessionLocks, sessionID, question string) (cascade.Result, error) {
	unlock := locks.lock(sessionID)
	res, err := deps.Engine.Answer(ctx, question, deps.Sessions.Session(sessionID))
	unlock()
	if err != nil {
		return cascade.Result{}, err
	}

	if deps.Store != nil {
		ix := storage.Interaction{
			ID:         uuid.New().String(),
			CreatedAt:  time.Now().UTC(),
			SessionID:  sessionID,
			Query:      question,
			Lang:       string(res.Lang),
			Kind:       string(res.Kind),
			ResponseID: res.ResponseID,
			Score:      res.Score,
		}
		if err := deps.Store.SaveInteraction(ctx, ix); err != nil {
			slog.Warn("could not record interaction", "session", sessionID, "error", err)
		}
	}
	return res, nil
}

func handleAsk(deps Deps, locks *sessionLocks) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req AskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		sessionID := r.Header.Get(SessionHeader)
		if sessionID == "" {
			sessionID = uuid.New().String()
		}
		w.Header().Set(SessionHeader, sessionID)

		res, err := answerTurn(r.Context(), deps, locks, sessionID, req.Question)
		if errors.Is(err, cascade.ErrEmptyInput) {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "question is required and must not be empty")
			return
		}
		if err != nil {
			slog.Error("answering question failed", "session", sessionID, "error", err)
			httpError(w, http.StatusServiceUnavailable, "api_error", "answer unavailable: %v", err)
			return
		}

		writeJSON(w, AskResponse{Result: res, SessionID: sessionID})
	}
}

func handleResetSession(deps Deps, locks *sessionLocks) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.Header.Get(SessionHeader)
		if sessionID == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%s header is required", SessionHeader)
			return
		}

		unlock := locks.lock(sessionID)
		err := deps.Sessions.Reset(r.Context(), sessionID)
		unlock()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to reset session: %v", err)
			return
		}

		writeJSON(w, map[string]string{"status": "reset"})
	}
}
