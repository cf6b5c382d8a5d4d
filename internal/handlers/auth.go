package handlers

import (
	"errors"
	"net/http"

	"travelog/internal/auth"
	"travelog/internal/logging"
	"travelog/internal/models"
	"travelog/internal/social"
	"travelog/internal/validation"
)

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Name     string `json:"name" validate:"max=100"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	Token string       `json:"token,omitempty"`
	User  *models.User `json:"user"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decode(w, r, &req) {
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		writeError(w, r, verr)
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	name := req.Name
	if name == "" {
		name = req.Username
	}
	u, err := h.store.CreateUser(r.Context(), social.NewUser{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Name:         name,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	logging.Ctx(r.Context()).Info().Int64("user_id", u.ID).Msg("user registered")

	resp, err := h.signIn(w, r, u)
	if err != nil {
		writeError(w, r, err)
		return
	}
	created(w, r, resp)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		writeError(w, r, verr)
		return
	}
	u, err := h.store.UserByEmail(r.Context(), req.Email)
	if errors.Is(err, social.ErrNotFound) || (err == nil && !auth.CheckPassword(req.Password, u.PasswordHash)) {
		fail(w, r, http.StatusUnauthorized, ErrCodeUnauthorized, "wrong email or password", nil)
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp, err := h.signIn(w, r, u)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, r, resp)
}

// signIn starts a cookie session and issues a bearer token for u.
func (h *Handler) signIn(w http.ResponseWriter, r *http.Request, u *models.User) (authResponse, error) {
	if err := h.sessions.Create(r.Context(), w, u.ID); err != nil {
		return authResponse{}, err
	}
	resp := authResponse{User: u}
	if h.tokens != nil {
		token, err := h.tokens.GenerateToken(u.ID, u.Username)
		if err != nil {
			return authResponse{}, err
		}
		resp.Token = token
	}
	return resp, nil
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Destroy(w, r)
	ok(w, r, map[string]bool{"loggedOut": true})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.store.UserByID(r.Context(), auth.UserIDFromContext(r.Context()))
	if errors.Is(err, social.ErrNotFound) {
		// The session outlived its user.
		writeError(w, r, social.ErrUnauthorized)
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, r, u)
}
