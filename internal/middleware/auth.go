package middleware

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"buildledger/internal/config"
	"buildledger/internal/logger"
	"buildledger/internal/model"
	"buildledger/internal/service"
	"buildledger/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AccessTokenCookie is the HttpOnly cookie carrying the access token.
const AccessTokenCookie = "access_token"

const actingUserKey = "actingUser"

// Auth verifies access tokens and manages the token cookie.
type Auth struct {
	jwt    config.JWTConfig
	cookie config.CookieConfig
}

func NewAuth(jwtCfg config.JWTConfig, cookieCfg config.CookieConfig) *Auth {
	return &Auth{jwt: jwtCfg, cookie: cookieCfg}
}

// SetTokenCookie stores the access token as an HttpOnly cookie that expires
// with the token.
func (a *Auth) SetTokenCookie(c *gin.Context, token string, expiresAt time.Time) {
	c.SetSameSite(a.sameSite())
	maxAge := int(time.Until(expiresAt).Seconds())
	c.SetCookie(AccessTokenCookie, token, maxAge, a.cookiePath(), a.cookie.Domain, a.cookie.Secure, true)
}

// ClearTokenCookie removes the access token cookie
func (a *Auth) ClearTokenCookie(c *gin.Context) {
	c.SetSameSite(a.sameSite())
	c.SetCookie(AccessTokenCookie, "", -1, a.cookiePath(), a.cookie.Domain, a.cookie.Secure, true)
}

func (a *Auth) cookiePath() string {
	if a.cookie.Path == "" {
		return "/"
	}
	return a.cookie.Path
}

func (a *Auth) sameSite() http.SameSite {
	switch strings.ToLower(a.cookie.SameSite) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// RequireRole validates the access token and, when roles are given, checks
// that the user holds one of them. The verified user is stored on the
// context for ActingUser.
func (a *Auth) RequireRole(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Try cookie first, fallback to Authorization header
		tokenString, cookieErr := c.Cookie(AccessTokenCookie)
		if cookieErr != nil || tokenString == "" {
			authHeader := c.GetHeader("Authorization")
			if authHeader == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
				return
			}
			scheme, token, ok := strings.Cut(authHeader, " ")
			if !ok || scheme != "Bearer" || token == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid authorization format. Expected 'Bearer <token>'"))
				return
			}
			tokenString = token
		}

		user, err := service.ParseAccessToken(a.jwt, tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid or expired token"))
			return
		}

		if len(allowedRoles) > 0 && !slices.Contains(allowedRoles, user.Role) {
			logger.L(c.Request.Context()).Warn("role denied",
				zap.String("user_id", user.ID.String()),
				zap.String("role", user.Role),
				zap.String("path", c.FullPath()),
			)
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: insufficient permissions"))
			return
		}

		c.Set(actingUserKey, user)
		c.Next()
	}
}

// ActingUser returns the user verified by RequireRole.
func ActingUser(c *gin.Context) (model.ActingUser, bool) {
	v, ok := c.Get(actingUserKey)
	if !ok {
		return model.ActingUser{}, false
	}
	user, ok := v.(model.ActingUser)
	return user, ok
}

// SetActingUser stores user on the context. Tests use it to bypass token
// verification.
func SetActingUser(c *gin.Context, user model.ActingUser) {
	c.Set(actingUserKey, user)
}
