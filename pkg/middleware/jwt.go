package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/Zchasse63/vercelpickle-sub006/pkg/errors"
	"github.com/Zchasse63/vercelpickle-sub006/pkg/httputil"
)

// JWTAuth validates an HS256 bearer token signed with secret and replaces the
// X-User-ID header with the token's user_id claim (or sub). Place it before
// RequireUserID so only verified identities reach the handlers.
func JWTAuth(secret string, logger *slog.Logger) func(http.Handler) http.Handler {
	key := []byte(secret)
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				httputil.WriteError(w, r, apperrors.Unauthorized("missing authorization header"), nil)
				return
			}

			scheme, tokenString, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "bearer") || tokenString == "" {
				httputil.WriteError(w, r, apperrors.Unauthorized("invalid authorization header format"), nil)
				return
			}

			claims := jwt.MapClaims{}
			token, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
				return key, nil
			})
			if err != nil || !token.Valid {
				logger.WarnContext(r.Context(), "invalid JWT token",
					slog.String("path", r.URL.Path),
					slog.Any("error", err),
				)
				httputil.WriteError(w, r, apperrors.Unauthorized("invalid or expired token"), nil)
				return
			}

			userID, _ := claims["user_id"].(string)
			if userID == "" {
				userID, _ = claims["sub"].(string)
			}
			if userID == "" {
				httputil.WriteError(w, r, apperrors.Unauthorized("token has no subject"), nil)
				return
			}

			r.Header.Set(UserIDHeader, userID)
			next.ServeHTTP(w, r)
		})
	}
}
