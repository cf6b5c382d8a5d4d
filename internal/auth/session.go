// Package auth resolves the caller of a request. Browsers carry a
// database-backed session cookie; API clients send a signed bearer token.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"travelog/internal/db"
	"travelog/internal/logging"
)

// SessionCookie is the name of the session cookie.
const SessionCookie = "travelog_session"

// Sessions stores one session per user in the sessions table.
type Sessions struct {
	conn   *db.Conn
	maxAge time.Duration
	secure bool
	now    func() time.Time
}

func NewSessions(conn *db.Conn, maxAge time.Duration, secure bool) *Sessions {
	return &Sessions{
		conn:   conn,
		maxAge: maxAge,
		secure: secure,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create replaces any existing session of userID and sets the cookie.
func (m *Sessions) Create(ctx context.Context, w http.ResponseWriter, userID int64) error {
	id := uuid.New().String()
	expires := m.now().Add(m.maxAge)

	err := m.conn.WithTx(ctx, func(tx *db.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `INSERT INTO sessions(id, user_id, expires_at) VALUES(?, ?, ?)`, id, userID, expires)
		return err
	})
	if err != nil {
		return fmt.Errorf("create session for user %d: %w", userID, err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  expires,
	})
	return nil
}

// Destroy deletes the request's session, if any, and clears the cookie.
func (m *Sessions) Destroy(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		if _, err := m.conn.Exec(r.Context(), `DELETE FROM sessions WHERE id = ?`, c.Value); err != nil {
			logging.Ctx(r.Context()).Warn().Err(err).Msg("delete session")
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
	})
}

// CurrentUserID returns the user of an unexpired session cookie.
func (m *Sessions) CurrentUserID(r *http.Request) (int64, bool) {
	c, err := r.Cookie(SessionCookie)
	if err != nil || c.Value == "" {
		return 0, false
	}
	var uid int64
	var exp time.Time
	err = m.conn.QueryRow(r.Context(), `SELECT user_id, expires_at FROM sessions WHERE id = ?`, c.Value).Scan(&uid, &exp)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			logging.Ctx(r.Context()).Error().Err(err).Msg("look up session")
		}
		return 0, false
	}
	if m.now().After(exp) {
		return 0, false
	}
	return uid, true
}
