package middleware

import (
	"context"
	"net/http"

	apperrors "github.com/Zchasse63/vercelpickle-sub006/pkg/errors"
	"github.com/Zchasse63/vercelpickle-sub006/pkg/httputil"
)

// UserIDHeader is set by the gateway after it authenticates the caller.
const UserIDHeader = "X-User-ID"

const maxUserIDLen = 128

type contextKey string

const userIDKey contextKey = "user_id"

// RequireUserID rejects requests without a usable X-User-ID header with 401
// and stores the ID in the request context for UserIDFromContext.
func RequireUserID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid := r.Header.Get(UserIDHeader)
		switch {
		case uid == "":
			httputil.WriteError(w, r, apperrors.Unauthorized("authentication required"), nil)
			return
		case len(uid) > maxUserIDLen || !printable(uid):
			httputil.WriteError(w, r, apperrors.Unauthorized("malformed user id"), nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), uid)))
	})
}

// WithUserID returns a copy of ctx carrying the authenticated user ID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns the user ID stored by RequireUserID, or "".
func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}
