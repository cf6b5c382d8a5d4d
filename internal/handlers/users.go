package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"travelog/internal/auth"
	"travelog/internal/models"
	"travelog/internal/social"
)

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	users, err := h.store.ListUsers(r.Context(), social.ParsePage(q.Get("limit"), q.Get("offset")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, r, users)
}

func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	id, err := social.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.store.Profile(r.Context(), id, auth.UserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, r, p)
}

func (h *Handler) Followers(w http.ResponseWriter, r *http.Request) {
	h.edgeListing(w, r, h.store.Followers)
}

func (h *Handler) Following(w http.ResponseWriter, r *http.Request) {
	h.edgeListing(w, r, h.store.Following)
}

func (h *Handler) edgeListing(w http.ResponseWriter, r *http.Request,
	list func(context.Context, int64, social.Page) ([]models.UserSummary, error)) {
	id, err := social.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	users, err := list(r.Context(), id, social.ParsePage(q.Get("limit"), q.Get("offset")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, r, users)
}

func (h *Handler) ToggleFollow(w http.ResponseWriter, r *http.Request) {
	target, err := social.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.store.ToggleFollow(r.Context(), auth.UserIDFromContext(r.Context()), target)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, r, res)
}

func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := social.ParseLimit(q.Get("limit"), social.DefaultLeaderboardLimit, social.MaxLeaderboardLimit)
	entries, err := h.store.Leaderboard(r.Context(), q.Get("sort"), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, r, entries)
}
