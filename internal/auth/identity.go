package auth

import (
	"context"
	"net/http"
	"strings"

	"travelog/internal/logging"
)

type contextKey int

const userIDKey contextKey = iota

// WithUserID returns ctx carrying the authenticated user id.
func WithUserID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// UserIDFromContext returns the caller id, or 0 for anonymous requests.
func UserIDFromContext(ctx context.Context) int64 {
	id, _ := ctx.Value(userIDKey).(int64)
	return id
}

// Authenticator resolves the caller from a bearer token first and the
// session cookie second. Either source may be nil.
type Authenticator struct {
	tokens   *JWTManager
	sessions *Sessions
}

func NewAuthenticator(tokens *JWTManager, sessions *Sessions) *Authenticator {
	return &Authenticator{tokens: tokens, sessions: sessions}
}

// Identify returns the caller id or 0. An invalid bearer token is anonymous;
// it does not fall through to the cookie.
func (a *Authenticator) Identify(r *http.Request) int64 {
	if raw, ok := bearerToken(r); ok {
		if a.tokens == nil {
			return 0
		}
		claims, err := a.tokens.ValidateToken(raw)
		if err != nil {
			logging.Ctx(r.Context()).Debug().Err(err).Msg("rejected bearer token")
			return 0
		}
		return claims.UserID
	}
	if a.sessions != nil {
		if id, ok := a.sessions.CurrentUserID(r); ok {
			return id
		}
	}
	return 0
}

// Middleware stores the caller id in the request context. It never rejects;
// handlers that need a caller check UserIDFromContext.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := a.Identify(r); id > 0 {
			r = r.WithContext(WithUserID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", false
	}
	scheme, token, found := strings.Cut(h, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
