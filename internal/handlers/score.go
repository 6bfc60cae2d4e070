package handlers

import (
	"net/http"

	"padel-scoring/internal/scoring"
)

type PointRequest struct {
	Side scoring.Side `json:"side"`
}

func (h *Handler) pointSide(w http.ResponseWriter, r *http.Request) (scoring.Side, bool) {
	var req PointRequest
	if !decode(w, r, &req) {
		return scoring.NoSide, false
	}
	if !req.Side.Valid() {
		writeError(w, http.StatusBadRequest, codeBadRequest, `side must be "a" or "b"`)
		return scoring.NoSide, false
	}
	return req.Side, true
}

func (h *Handler) GetScore(w http.ResponseWriter, r *http.Request) {
	v, err := h.scorer.View(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) ScorePoint(w http.ResponseWriter, r *http.Request) {
	m, ok := h.editable(w, r)
	if !ok {
		return
	}
	side, ok := h.pointSide(w, r)
	if !ok {
		return
	}
	up, err := h.scorer.ScorePoint(r.Context(), m.ID, side)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, up)
}

func (h *Handler) CorrectPoint(w http.ResponseWriter, r *http.Request) {
	m, ok := h.editable(w, r)
	if !ok {
		return
	}
	side, ok := h.pointSide(w, r)
	if !ok {
		return
	}
	up, err := h.scorer.CorrectPoint(r.Context(), m.ID, side)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, up)
}

func (h *Handler) ResetGame(w http.ResponseWriter, r *http.Request) {
	m, ok := h.editable(w, r)
	if !ok {
		return
	}
	up, err := h.scorer.ResetGame(r.Context(), m.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, up)
}

func (h *Handler) SaveMatch(w http.ResponseWriter, r *http.Request) {
	m, ok := h.editable(w, r)
	if !ok {
		return
	}
	saved, err := h.scorer.Save(r.Context(), m.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (h *Handler) FinishMatch(w http.ResponseWriter, r *http.Request) {
	m, ok := h.editable(w, r)
	if !ok {
		return
	}
	finished, err := h.scorer.Finish(r.Context(), m.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, finished)
}
