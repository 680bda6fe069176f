package chat

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// API exposes the chat subsystem's HTTP surface: the message history the
// widget and admin panel hydrate from, and the admin mark-read action.
type API struct {
	store MessageStore
	log   *slog.Logger
}

func NewAPI(store MessageStore, log *slog.Logger) *API {
	return &API{store: store, log: log}
}

// RegisterRoutes mounts the API under the given router. Session scoping
// of these endpoints is owned by the site's auth middleware, not here.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Get("/messages", a.handleListMessages)
	r.Post("/messages/{id}/read", a.handleMarkRead)
}

func (a *API) handleListMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := a.store.ListAll(r.Context())
	if err != nil {
		a.log.Error("list messages failed", "err", err)
		writeError(w, http.StatusInternalServerError, "could not load messages")
		return
	}
	if messages == nil {
		messages = []Message{}
	}
	writeJSON(w, http.StatusOK, messages)
}

func (a *API) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid message id")
		return
	}
	// idempotent bookkeeping: unknown ids succeed silently
	if err := a.store.MarkRead(r.Context(), id); err != nil {
		a.log.Error("mark read failed", "err", err, "message", id)
		writeError(w, http.StatusInternalServerError, "could not mark message read")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
