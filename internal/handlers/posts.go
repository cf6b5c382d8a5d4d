package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"travelog/internal/auth"
	"travelog/internal/regions"
	"travelog/internal/social"
)

func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := social.PostFilter{
		ViewerID: auth.UserIDFromContext(r.Context()),
		Page:     social.ParsePage(q.Get("limit"), q.Get("offset")),
	}
	if raw := q.Get("author"); raw != "" {
		id, err := social.ParseID(raw)
		if err != nil {
			writeError(w, r, err)
			return
		}
		f.AuthorID = id
	}
	posts, err := h.store.ListPosts(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, r, posts)
}

func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var in social.PostInput
	if !decode(w, r, &in) {
		return
	}
	p, err := h.store.CreatePost(r.Context(), auth.UserIDFromContext(r.Context()), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	created(w, r, p)
}

func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	id, err := social.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.store.GetPost(r.Context(), id, auth.UserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, r, p)
}

type likeCount struct {
	PostID int64 `json:"postId"`
	Likes  int64 `json:"likes"`
}

func (h *Handler) PostLikes(w http.ResponseWriter, r *http.Request) {
	id, err := social.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	n, err := h.store.PostLikeCount(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, r, likeCount{PostID: id, Likes: n})
}

// ToggleLike passes the raw path segment through; the store validates it.
func (h *Handler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	res, err := h.store.ToggleLike(r.Context(), auth.UserIDFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, r, res)
}

func (h *Handler) Regions(w http.ResponseWriter, r *http.Request) {
	ok(w, r, regions.Names())
}

func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.store.Categories(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, r, cats)
}
