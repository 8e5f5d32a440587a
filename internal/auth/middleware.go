package auth

import (
	"context"
	"net/http"
)

// CookieName is the cookie carrying the session id.
const CookieName = "session_id"

type contextKey string

const userIDKey contextKey = "userID"

type SessionFetcher interface {
	FindSessionByID(ctx context.Context, id string) (Session, error)
}

// SessionMiddleware rejects requests without a live session and stores the
// session's user id in the request context.
func SessionMiddleware(fetcher SessionFetcher) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(CookieName)
			if err != nil {
				writeError(w, http.StatusUnauthorized, MsgNoSession)
				return
			}
			sess, err := fetcher.FindSessionByID(r.Context(), cookie.Value)
			if err != nil {
				writeError(w, http.StatusUnauthorized, MsgNoSession)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), sess.UserID)))
		})
	}
}

func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}
