package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/askbot/internal/lang"
	"github.com/kalambet/askbot/internal/storage"
)

type SettingRequest struct {
	Value string `json:"value"`
}

func handleListInteractions(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 20, 100)
		sessionID := r.URL.Query().Get("session_id")

		interactions, err := deps.Store.GetRecentInteractions(r.Context(), sessionID, limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list interactions: %v", err)
			return
		}

		if interactions == nil {
			interactions = []storage.Interaction{}
		}
		writeJSON(w, interactions)
	}
}

func handleListSettings(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		settings, err := deps.Store.ListSettings(r.Context())
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list settings: %v", err)
			return
		}
		writeJSON(w, settings)
	}
}

func handlePutSetting(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "key")

		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		var req SettingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		switch key {
		case storage.SettingLanguage:
			l, ok := lang.Parse(req.Value)
			if !ok {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "unsupported language %q", req.Value)
				return
			}
			req.Value = string(l)
		default:
			httpError(w, http.StatusBadRequest, "invalid_request_error", "unknown setting %q", key)
			return
		}

		if err := deps.Store.SetSetting(r.Context(), key, req.Value); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to save setting: %v", err)
			return
		}
		writeJSON(w, map[string]string{key: req.Value})
	}
}
