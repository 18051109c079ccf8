package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zchasse63/vercelpickle-sub006/pkg/httputil"
)

func TestRequireUserID(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		wantCode int
	}{
		{"present", "user-1", http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"whitespace", "user 1", http.StatusUnauthorized},
		{"too long", strings.Repeat("u", maxUserIDLen+1), http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			h := RequireUserID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = UserIDFromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/cart/items", nil)
			if tt.header != "" {
				req.Header.Set(UserIDHeader, tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode == http.StatusOK {
				assert.Equal(t, tt.header, seen)
				return
			}
			assert.Empty(t, seen)

			var resp httputil.Response
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			require.NotNil(t, resp.Error)
			assert.Equal(t, "UNAUTHORIZED", resp.Error.Code)
		})
	}
}

func TestUserIDFromContext_Empty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, UserIDFromContext(req.Context()))
	assert.Equal(t, "u-9", UserIDFromContext(WithUserID(req.Context(), "u-9")))
}
