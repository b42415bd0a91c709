package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"bujo/internal/auth"
	"bujo/internal/bullet"

	"github.com/go-chi/chi/v5"
)

type BulletHandler struct {
	Bullets *bullet.Service
}

type createBulletReq struct {
	Content string `json:"content"`
}

func (h *BulletHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	spaceID, err := strconv.ParseUint(chi.URLParam(r, "spaceID"), 10, 64)
	if err != nil {
		http.Error(w, "invalid space id", http.StatusBadRequest)
		return
	}
	pageID, err := strconv.ParseUint(chi.URLParam(r, "pageID"), 10, 64)
	if err != nil {
		http.Error(w, "invalid page id", http.StatusBadRequest)
		return
	}

	var req createBulletReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	b, err := h.Bullets.Create(r.Context(), uid, spaceID, pageID, req.Content)
	if err != nil {
		h.writeErr(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(b)
}

func (h *BulletHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.Bullets.ToggleStatus)
}

func (h *BulletHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.Bullets.Cancel)
}

func (h *BulletHandler) TogglePrivate(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.Bullets.TogglePrivate)
}

func (h *BulletHandler) Delete(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	id, err := strconv.ParseUint(chi.URLParam(r, "bulletID"), 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	if err := h.Bullets.Delete(r.Context(), uid, id); err != nil {
		h.writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type reassignReq struct {
	AssignedTo *uint64 `json:"assigned_to"` // null clears
}

func (h *BulletHandler) Reassign(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	id, err := strconv.ParseUint(chi.URLParam(r, "bulletID"), 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req reassignReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	b, err := h.Bullets.Reassign(r.Context(), uid, id, req.AssignedTo)
	if err != nil {
		h.writeErr(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(b)
}

// mutate runs one of the single-bullet lifecycle transitions and writes the
// updated bullet back.
func (h *BulletHandler) mutate(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, actorID, bulletID uint64) (*bullet.Bullet, error)) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	id, err := strconv.ParseUint(chi.URLParam(r, "bulletID"), 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	b, err := op(r.Context(), uid, id)
	if err != nil {
		h.writeErr(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(b)
}

func (h *BulletHandler) writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, bullet.ErrEmptyContent):
		http.Error(w, "content required", http.StatusBadRequest)
	case errors.Is(err, bullet.ErrCanceled):
		http.Error(w, "bullet is canceled", http.StatusBadRequest)
	case errors.Is(err, bullet.ErrAssigneeNotMember):
		http.Error(w, "assignee is not a member", http.StatusBadRequest)
	case errors.Is(err, bullet.ErrNotMember):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, bullet.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	default:
		http.Error(w, "server error", http.StatusInternalServerError)
	}
}
