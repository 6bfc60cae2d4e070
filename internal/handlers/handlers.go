package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"padel-scoring/internal/auth"
	"padel-scoring/internal/models"
	"padel-scoring/internal/scorer"
	"padel-scoring/internal/scoring"
	"padel-scoring/internal/store"
)

type Handler struct {
	store  store.Store
	scorer *scorer.Manager
	auth   *auth.Authenticator
	log    *slog.Logger
}

func New(s store.Store, sc *scorer.Manager, a *auth.Authenticator, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{store: s, scorer: sc, auth: a, log: log}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Health)

	mux.HandleFunc("POST /api/auth/register", h.Register)
	mux.HandleFunc("POST /api/auth/login", h.Login)
	mux.HandleFunc("GET /api/me", h.GetMe)
	mux.HandleFunc("GET /api/users", auth.RequireAdmin(h.ListUsers))

	mux.HandleFunc("GET /api/matches", h.ListMatches)
	mux.HandleFunc("POST /api/matches", h.CreateMatch)
	mux.HandleFunc("GET /api/matches/{id}", h.GetMatch)
	mux.HandleFunc("PUT /api/matches/{id}", h.UpdateMatch)
	mux.HandleFunc("DELETE /api/matches/{id}", h.DeleteMatch)

	mux.HandleFunc("GET /api/matches/{id}/score", h.GetScore)
	mux.HandleFunc("POST /api/matches/{id}/points", h.ScorePoint)
	mux.HandleFunc("POST /api/matches/{id}/points/undo", h.CorrectPoint)
	mux.HandleFunc("POST /api/matches/{id}/game/reset", h.ResetGame)
	mux.HandleFunc("POST /api/matches/{id}/save", h.SaveMatch)
	mux.HandleFunc("POST /api/matches/{id}/finish", h.FinishMatch)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": h.scorer.Active()})
}

// Error codes sent alongside the message for non-engine failures.
const (
	codeBadRequest   = "BAD_REQUEST"
	codeUnauthorized = "UNAUTHORIZED"
	codeForbidden    = "FORBIDDEN"
	codeNotFound     = "NOT_FOUND"
	codeConflict     = "ALREADY_EXISTS"
	codeInternal     = "INTERNAL"
)

// fail maps err onto a status code and writes it.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch code := scoring.CodeOf(err); code {
	case scoring.CodeMatchAlreadyDecided, scoring.CodeNothingToUndo:
		writeError(w, http.StatusConflict, string(code), err.Error())
		return
	case scoring.CodeInvalidState:
		writeError(w, http.StatusUnprocessableEntity, string(code), err.Error())
		return
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, err.Error())
	case errors.Is(err, store.ErrAlreadyExists):
		writeError(w, http.StatusConflict, codeConflict, err.Error())
	default:
		h.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
	}
}

// editable loads the match and checks the caller may change it: its owner
// or an admin. Matches without an owner are open to any signed-in user.
func (h *Handler) editable(w http.ResponseWriter, r *http.Request) (*models.Match, bool) {
	user := auth.GetUser(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "not authenticated")
		return nil, false
	}
	m, err := h.store.GetMatch(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return nil, false
	}
	if !user.IsAdmin && m.OwnerEmail != "" && models.NormalizeEmail(m.OwnerEmail) != models.NormalizeEmail(user.Email) {
		writeError(w, http.StatusForbidden, codeForbidden, "only the match owner can change it")
		return nil, false
	}
	return m, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"error": message, "code": code})
}
