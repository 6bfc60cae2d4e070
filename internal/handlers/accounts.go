package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"padel-scoring/internal/auth"
	"padel-scoring/internal/models"
	"padel-scoring/internal/store"
)

const minPasswordLen = 8

type RegisterRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AccountView struct {
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

type TokenResponse struct {
	Token string      `json:"token"`
	User  AccountView `json:"user"`
}

func accountView(u *models.LocalUser) AccountView {
	return AccountView{Email: u.Email, Name: u.Name, CreatedAt: u.CreatedAt}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decode(w, r, &req) {
		return
	}
	email := models.NormalizeEmail(req.Email)
	name := strings.TrimSpace(req.Name)
	if !strings.Contains(email, "@") || name == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "email and name are required")
		return
	}
	if len(req.Password) < minPasswordLen {
		writeError(w, http.StatusBadRequest, codeBadRequest, "password must be at least 8 characters")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	u := &models.LocalUser{Email: email, Name: name, PasswordHash: hash, CreatedAt: time.Now().UTC()}
	if err := h.store.CreateLocalUser(r.Context(), u); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			writeError(w, http.StatusConflict, codeConflict, "a user with that email already exists")
			return
		}
		h.fail(w, r, err)
		return
	}

	token, err := h.auth.Issue(u.Email, u.Name)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.log.Info("user registered", "email", u.Email)
	writeJSON(w, http.StatusCreated, TokenResponse{Token: token, User: accountView(u)})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decode(w, r, &req) {
		return
	}
	u, err := h.store.GetLocalUser(r.Context(), req.Email)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		h.fail(w, r, err)
		return
	}
	if u == nil || !auth.CheckPassword(u.PasswordHash, req.Password) {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "invalid email or password")
		return
	}

	token, err := h.auth.Issue(u.Email, u.Name)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, TokenResponse{Token: token, User: accountView(u)})
}

func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListLocalUsers(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out := make([]AccountView, len(users))
	for i, u := range users {
		out[i] = accountView(u)
	}
	writeJSON(w, http.StatusOK, out)
}
