package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"bujo/internal/auth"
	"bujo/internal/space"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"
)

type InviteHandler struct {
	DB     *gorm.DB
	Spaces *space.Service
}

type inviteReq struct {
	Email string     `json:"email"`
	Role  space.Role `json:"role"`
}

func (h *InviteHandler) Create(w http.ResponseWriter, r *http.Request) {
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

	var req inviteReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	inv, err := h.Spaces.Invite(r.Context(), uid, spaceID, req.Email, req.Role)
	if err != nil {
		switch {
		case errors.Is(err, space.ErrInvalidEmail), errors.Is(err, space.ErrInvalidRole):
			http.Error(w, "invalid input", http.StatusBadRequest)
		case errors.Is(err, space.ErrNotMember), errors.Is(err, space.ErrNotOwner):
			http.Error(w, "forbidden", http.StatusForbidden)
		case errors.Is(err, space.ErrDuplicateInvite):
			http.Error(w, "already invited", http.StatusConflict)
		default:
			http.Error(w, "server error", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":         inv.ID,
		"space_id":   inv.SpaceID,
		"email":      inv.Email,
		"role":       inv.Role,
		"created_at": inv.CreatedAt,
	})
}

// ListPending returns the caller's unaccepted invitations, matched by the
// email on their account.
func (h *InviteHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var u auth.User
	if err := h.DB.First(&u, uid).Error; err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	rows, err := h.Spaces.ListPendingInvitesFor(r.Context(), u.Email)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []space.PendingInvite{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(rows)
}

// Accept redeems an invitation for the caller and hands back the joined
// space id so the client can navigate into it.
func (h *InviteHandler) Accept(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	inviteID, err := strconv.ParseUint(chi.URLParam(r, "inviteID"), 10, 64)
	if err != nil {
		http.Error(w, "invalid invite id", http.StatusBadRequest)
		return
	}

	m, err := h.Spaces.AcceptInvite(r.Context(), uid, inviteID)
	if err != nil {
		switch {
		case errors.Is(err, space.ErrNotFound):
			http.Error(w, "invite not found", http.StatusNotFound)
		case errors.Is(err, space.ErrAlreadyMember):
			http.Error(w, "already a member", http.StatusConflict)
		default:
			http.Error(w, "server error", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"space_id": m.SpaceID,
		"role":     m.Role,
	})
}
