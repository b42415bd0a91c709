package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"bujo/internal/auth"
	"bujo/internal/bullet"
	"bujo/internal/page"
	"bujo/internal/space"

	"github.com/go-chi/chi/v5"
)

type SpaceHandler struct {
	Spaces  *space.Service
	Pages   *page.Service
	Bullets *bullet.Service
}

type createSpaceReq struct {
	Name string `json:"name"`
}

func (h *SpaceHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req createSpaceReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	sp, err := h.Spaces.CreateSpace(r.Context(), uid, req.Name)
	if err != nil {
		if errors.Is(err, space.ErrNameRequired) {
			http.Error(w, "name required", http.StatusBadRequest)
			return
		}
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":         sp.ID,
		"name":       sp.Name,
		"created_by": sp.CreatedBy,
		"created_at": sp.CreatedAt,
	})
}

func (h *SpaceHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	rows, err := h.Spaces.ListSpacesFor(r.Context(), uid)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []space.SpaceWithRole{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(rows)
}

// Today assembles everything the daily view needs: the materialized page,
// the space, the member roster, and the bullets visible to the caller.
// An optional ?date=YYYY-MM-DD shows another day.
func (h *SpaceHandler) Today(w http.ResponseWriter, r *http.Request) {
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

	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if date == "" {
		date = page.Today()
	}

	pg, err := h.Pages.Ensure(r.Context(), uid, spaceID, date)
	if err != nil {
		switch {
		case errors.Is(err, page.ErrInvalidDate):
			http.Error(w, "invalid date (YYYY-MM-DD)", http.StatusBadRequest)
		case errors.Is(err, page.ErrNotMember):
			http.Error(w, "forbidden", http.StatusForbidden)
		default:
			http.Error(w, "server error", http.StatusInternalServerError)
		}
		return
	}

	sp, err := h.Spaces.GetSpace(r.Context(), uid, spaceID)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	members, err := h.Spaces.ListMembers(r.Context(), uid, spaceID)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	bullets, err := h.Bullets.ListForPage(r.Context(), uid, pg.ID)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if bullets == nil {
		bullets = []bullet.View{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"space": map[string]any{
			"id":   sp.ID,
			"name": sp.Name,
		},
		"page": map[string]any{
			"id":   pg.ID,
			"date": pg.PageDate,
		},
		"members": members,
		"bullets": bullets,
	})
}
