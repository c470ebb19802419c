package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"buildledger/internal/config"
	"buildledger/internal/model"
	"buildledger/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testJWT = config.JWTConfig{Secret: "test-secret", Expiration: time.Hour, Issuer: "buildledger-test"}

func newRouter(auth *Auth, roles ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", auth.RequireRole(roles...), func(c *gin.Context) {
		user, ok := ActingUser(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, user.Role)
	})
	return r
}

func tokenFor(t *testing.T, role string) string {
	t.Helper()
	token, _, err := service.IssueAccessToken(testJWT, model.ActingUser{ID: uuid.New(), Role: role}, time.Now())
	require.NoError(t, err)
	return token
}

func TestRequireRole(t *testing.T) {
	auth := NewAuth(testJWT, config.CookieConfig{})

	tests := []struct {
		name   string
		roles  []string
		header string
		cookie string
		want   int
	}{
		{"missing token", nil, "", "", http.StatusUnauthorized},
		{"malformed header", nil, "Token abc", "", http.StatusUnauthorized},
		{"bad token", nil, "Bearer abc", "", http.StatusUnauthorized},
		{"any role", nil, "Bearer " + tokenFor(t, model.RoleAccountant), "", http.StatusOK},
		{"owner only denies accountant", []string{model.RoleOwner}, "Bearer " + tokenFor(t, model.RoleAccountant), "", http.StatusForbidden},
		{"owner only allows owner", []string{model.RoleOwner}, "Bearer " + tokenFor(t, model.RoleOwner), "", http.StatusOK},
		{"cookie", nil, "", tokenFor(t, model.RoleOwner), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: tt.cookie})
			}
			w := httptest.NewRecorder()
			newRouter(auth, tt.roles...).ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestSetTokenCookie(t *testing.T) {
	gin.SetMode(gin.TestMode)
	auth := NewAuth(testJWT, config.CookieConfig{Secure: true, SameSite: "none"})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	auth.SetTokenCookie(c, "abc", time.Now().Add(time.Hour))

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, AccessTokenCookie, cookies[0].Name)
	assert.Equal(t, "abc", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, cookies[0].Secure)
	assert.Equal(t, http.SameSiteNoneMode, cookies[0].SameSite)
	assert.Equal(t, "/", cookies[0].Path)
}
