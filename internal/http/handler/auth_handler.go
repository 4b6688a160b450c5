package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Vaultexe/server/internal/config"
	"github.com/Vaultexe/server/internal/http/httperr"
	"github.com/Vaultexe/server/internal/http/middleware"
	"github.com/Vaultexe/server/internal/service"
)

// AuthHandler exposes the authentication state machine over HTTP.
type AuthHandler struct {
	Auth *service.AuthService
	Cfg  config.Config
}

func NewAuthHandler(auth *service.AuthService, cfg config.Config) *AuthHandler {
	return &AuthHandler{Auth: auth, Cfg: cfg}
}

type userResponse struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"email_verified"`
	IsAdmin       bool      `json:"is_admin"`
	CreatedAt     time.Time `json:"created_at"`
}

// Login authenticates credentials. A trusted device gets tokens straight
// away (200); a new device gets an OTP challenge (202) plus device and
// OTP cookies.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "Email and password are required."})
		return
	}

	res, err := h.Auth.Login(c.Request.Context(), service.LoginInput{
		Email:     req.Email,
		Password:  req.Password,
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		DeviceID:  cookieValue(c, middleware.CookieDeviceID),
	})
	if err != nil {
		httperr.Abort(c, err)
		return
	}

	setDeviceCookie(c, h.Cfg, res.DeviceID)
	switch res.Status {
	case service.StatusAuthenticated:
		setWebTokenCookies(c, h.Cfg, res.Tokens)
		c.JSON(http.StatusOK, gin.H{"status": string(res.Status)})
	default:
		setOTPCookie(c, h.Cfg, res.OTPToken)
		c.JSON(http.StatusAccepted, gin.H{"status": string(res.Status)})
	}
}

// VerifyOTP redeems the second-factor challenge for the pending device.
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req struct {
		Code string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "OTP code is required."})
		return
	}

	ctx := c.Request.Context()
	user, err := h.Auth.OTPUser(ctx, cookieValue(c, middleware.CookieOTPToken))
	if err != nil {
		httperr.Abort(c, err)
		return
	}

	res, err := h.Auth.VerifyOTP(ctx, user, req.Code, c.ClientIP(), cookieValue(c, middleware.CookieDeviceID))
	if err != nil {
		httperr.Abort(c, err)
		return
	}

	clearCookie(c, h.Cfg, middleware.CookieOTPToken)
	setWebTokenCookies(c, h.Cfg, &res.Tokens)
	c.JSON(http.StatusOK, gin.H{"status": string(service.StatusAuthenticated)})
}

// Refresh rotates the token pair bound to this device.
func (h *AuthHandler) Refresh(c *gin.Context) {
	res, err := h.Auth.Refresh(c.Request.Context(), service.RefreshInput{
		AccessToken:  cookieValue(c, middleware.CookieAccessToken),
		RefreshToken: cookieValue(c, middleware.CookieRefreshToken),
		DeviceID:     cookieValue(c, middleware.CookieDeviceID),
		IP:           c.ClientIP(),
	})
	if err != nil {
		httperr.Abort(c, err)
		return
	}

	setWebTokenCookies(c, h.Cfg, &res.Tokens)
	c.JSON(http.StatusOK, gin.H{"status": string(service.StatusAuthenticated)})
}

// Register redeems an invitation token and activates the account. The
// password field carries the client's double-KDF master password hash.
func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "Password is required."})
		return
	}

	res, err := h.Auth.Register(c.Request.Context(), service.RegisterInput{
		Token:     c.Param("token"),
		Password:  req.Password,
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		httperr.Abort(c, err)
		return
	}

	setDeviceCookie(c, h.Cfg, res.DeviceID)
	c.Status(http.StatusOK)
}

// Invite lets an admin issue a registration invitation.
func (h *AuthHandler) Invite(c *gin.Context) {
	admin, ok := middleware.GetUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication_failed", "message": "Authentication failed"})
		return
	}

	var req struct {
		Email string `json:"email" binding:"required,email"`
		Name  string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "Invitee email is required."})
		return
	}

	invitee, err := h.Auth.Invite(c.Request.Context(), admin, req.Email, req.Name)
	if err != nil {
		httperr.Abort(c, err)
		return
	}

	c.JSON(http.StatusCreated, userResponse{
		ID:            invitee.ID,
		Name:          invitee.Name,
		Email:         invitee.Email,
		EmailVerified: invitee.EmailVerified,
		IsAdmin:       invitee.IsAdmin,
		CreatedAt:     invitee.CreatedAt,
	})
}

// Logout drops this device's session and clears the token cookies.
func (h *AuthHandler) Logout(c *gin.Context) {
	user, ok := middleware.GetUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication_failed", "message": "Authentication failed"})
		return
	}

	if err := h.Auth.Logout(c.Request.Context(), user, cookieValue(c, middleware.CookieDeviceID)); err != nil {
		httperr.Abort(c, err)
		return
	}

	clearCookie(c, h.Cfg, middleware.CookieAccessToken)
	clearCookie(c, h.Cfg, middleware.CookieRefreshToken)
	c.Status(http.StatusNoContent)
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := middleware.GetUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication_failed", "message": "Authentication failed"})
		return
	}
	c.JSON(http.StatusOK, userResponse{
		ID:            user.ID,
		Name:          user.Name,
		Email:         user.Email,
		EmailVerified: user.EmailVerified,
		IsAdmin:       user.IsAdmin,
		CreatedAt:     user.CreatedAt,
	})
}
