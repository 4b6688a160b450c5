package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Vaultexe/server/internal/config"
	"github.com/Vaultexe/server/internal/http/middleware"
	"github.com/Vaultexe/server/internal/service"
)

// All auth cookies are host-only (empty domain) and httpOnly; secure is
// tied to the environment so local development works over plain HTTP.
func setCookie(c *gin.Context, cfg config.Config, name, value string, maxAge int) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(name, value, maxAge, "/", "", cfg.IsProd(), true)
}

func clearCookie(c *gin.Context, cfg config.Config, name string) {
	setCookie(c, cfg, name, "", -1)
}

func setDeviceCookie(c *gin.Context, cfg config.Config, deviceID string) {
	setCookie(c, cfg, middleware.CookieDeviceID, deviceID, int(cfg.DeviceCookieTTL.Seconds()))
}

// setWebTokenCookies sets the pair. The access cookie deliberately shares
// the refresh expiry: an expired-but-present access token must still
// reach the refresh flow, where it is decoded with expiry allowed.
func setWebTokenCookies(c *gin.Context, cfg config.Config, tokens *service.WebTokens) {
	maxAge := int(cfg.RefreshTokenTTL.Seconds())
	setCookie(c, cfg, middleware.CookieAccessToken, tokens.Access, maxAge)
	setCookie(c, cfg, middleware.CookieRefreshToken, tokens.Refresh, maxAge)
}

func setOTPCookie(c *gin.Context, cfg config.Config, otpToken string) {
	setCookie(c, cfg, middleware.CookieOTPToken, otpToken, int(cfg.OTPTTL.Seconds()))
}

func cookieValue(c *gin.Context, name string) string {
	value, err := c.Cookie(name)
	if err != nil {
		return ""
	}
	return value
}
