package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"padel-scoring/internal/auth"
	"padel-scoring/internal/models"
	"padel-scoring/internal/scoring"
)

type CreateMatchRequest struct {
	Date  *time.Time `json:"date,omitempty"`
	Team1 []string   `json:"team1"`
	Team2 []string   `json:"team2"`
}

type UpdateMatchRequest struct {
	Date   *time.Time          `json:"date,omitempty"`
	Team1  []string            `json:"team1,omitempty"`
	Team2  []string            `json:"team2,omitempty"`
	Status *models.MatchStatus `json:"status,omitempty"`
}

func teams(team1, team2 []string) ([]string, []string, error) {
	t1, err := models.NormalizePlayers(team1)
	if err != nil {
		return nil, nil, fmt.Errorf("team1: %w", err)
	}
	t2, err := models.NormalizePlayers(team2)
	if err != nil {
		return nil, nil, fmt.Errorf("team2: %w", err)
	}
	return t1, t2, nil
}

func (h *Handler) ListMatches(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.MatchFilter{
		Status: models.MatchStatus(q.Get("status")),
		Query:  q.Get("q"),
		Owner:  q.Get("owner"),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		writeError(w, http.StatusBadRequest, codeBadRequest, fmt.Sprintf("invalid status: %s", filter.Status))
		return
	}

	matches, err := h.store.ListMatches(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, matches)
}

func (h *Handler) CreateMatch(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "not authenticated")
		return
	}

	var req CreateMatchRequest
	if !decode(w, r, &req) {
		return
	}
	t1, t2, err := teams(req.Team1, req.Team2)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	m := &models.Match{
		ID:         uuid.New().String(),
		Date:       time.Now().UTC(),
		Team1:      t1,
		Team2:      t2,
		Status:     models.StatusUpcoming,
		OwnerEmail: user.Email,
	}
	if req.Date != nil {
		m.Date = req.Date.UTC()
	}

	if err := h.store.CreateMatch(r.Context(), m); err != nil {
		h.fail(w, r, err)
		return
	}
	h.log.Info("match created", "match", m.ID, "team1", m.TeamName(scoring.SideA), "team2", m.TeamName(scoring.SideB))
	writeJSON(w, http.StatusCreated, m)
}

func (h *Handler) GetMatch(w http.ResponseWriter, r *http.Request) {
	m, err := h.store.GetMatch(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *Handler) UpdateMatch(w http.ResponseWriter, r *http.Request) {
	current, ok := h.editable(w, r)
	if !ok {
		return
	}

	var req UpdateMatchRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Status != nil && !req.Status.Valid() {
		writeError(w, http.StatusBadRequest, codeBadRequest, fmt.Sprintf("invalid status: %s", *req.Status))
		return
	}

	m, err := h.scorer.Edit(r.Context(), current.ID, func(m *models.Match) error {
		if req.Date != nil {
			m.Date = req.Date.UTC()
		}
		if req.Team1 != nil || req.Team2 != nil {
			t1, t2 := m.Team1, m.Team2
			if req.Team1 != nil {
				t1 = req.Team1
			}
			if req.Team2 != nil {
				t2 = req.Team2
			}
			var err error
			if m.Team1, m.Team2, err = teams(t1, t2); err != nil {
				return badRequest{err}
			}
		}
		if req.Status != nil {
			m.Status = *req.Status
		}
		return nil
	})
	var bad badRequest
	switch {
	case errors.As(err, &bad):
		writeError(w, http.StatusBadRequest, codeBadRequest, bad.Error())
		return
	case err != nil:
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// badRequest marks a validation failure raised inside an edit.
type badRequest struct{ error }

func (h *Handler) DeleteMatch(w http.ResponseWriter, r *http.Request) {
	m, ok := h.editable(w, r)
	if !ok {
		return
	}
	if err := h.store.DeleteMatch(r.Context(), m.ID); err != nil {
		h.fail(w, r, err)
		return
	}
	h.scorer.Forget(m.ID)
	h.log.Info("match deleted", "match", m.ID)
	w.WriteHeader(http.StatusNoContent)
}
