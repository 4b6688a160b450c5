package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Vaultexe/server/internal/domain"
	"github.com/Vaultexe/server/internal/http/httperr"
	"github.com/Vaultexe/server/internal/service"
)

const (
	userKey = "currentUser"

	// CookieDeviceID is read here and set by the handlers; exported so
	// both sides agree on the names.
	CookieDeviceID     = "device_id"
	CookieAccessToken  = "access_token"
	CookieRefreshToken = "refresh_token"
	CookieOTPToken     = "otp_token"
)

// Auth resolves the requesting user from the auth cookies.
type Auth struct {
	Auth *service.AuthService
}

func NewAuth(auth *service.AuthService) *Auth {
	return &Auth{Auth: auth}
}

// RequireUser authenticates the request from its access token, device
// cookie and client IP, and attaches the user to the context.
func (m *Auth) RequireUser(c *gin.Context) {
	accessToken, _ := c.Cookie(CookieAccessToken)
	deviceID, _ := c.Cookie(CookieDeviceID)

	user, err := m.Auth.CurrentUser(c.Request.Context(), accessToken, deviceID, c.ClientIP())
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	c.Set(userKey, user)
	c.Next()
}

// RequireAdmin gates admin-only routes. Must run after RequireUser.
func (m *Auth) RequireAdmin(c *gin.Context) {
	user, ok := GetUser(c)
	if !ok || !user.IsAdmin {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":   string(domain.KindAuthorizationFailed),
			"message": "Authorization failed",
		})
		return
	}
	c.Next()
}

// GetUser returns the authenticated user attached by RequireUser.
func GetUser(c *gin.Context) (domain.User, bool) {
	value, ok := c.Get(userKey)
	if !ok {
		return domain.User{}, false
	}
	user, ok := value.(domain.User)
	return user, ok
}
