// Package httperr maps core error kinds to transport status codes. This
// is the only place the taxonomy meets HTTP.
package httperr

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Vaultexe/server/internal/domain"
)

var statusByKind = map[domain.ErrorKind]int{
	domain.KindAuthenticationFailed: http.StatusUnauthorized,
	domain.KindTokenExpired:         http.StatusUnauthorized,
	domain.KindInvalidOTP:           http.StatusUnauthorized,
	domain.KindAuthorizationFailed:  http.StatusForbidden,
	domain.KindUnverifiedEmail:      http.StatusForbidden,
	domain.KindEntityNotFound:       http.StatusNotFound,
	domain.KindUserAlreadyActive:    http.StatusConflict,
	domain.KindDuplicateEntity:      http.StatusConflict,
}

// Status resolves the HTTP status for an error, defaulting to 500 for
// anything outside the taxonomy.
func Status(err error) int {
	var coreErr *domain.Error
	if errors.As(err, &coreErr) {
		if status, ok := statusByKind[coreErr.Kind]; ok {
			return status
		}
	}
	return http.StatusInternalServerError
}

// Abort writes the error response and stops the handler chain. Taxonomy
// errors expose their kind and message; everything else is a generic
// server error so no internal state leaks.
func Abort(c *gin.Context, err error) {
	var coreErr *domain.Error
	if errors.As(err, &coreErr) {
		c.AbortWithStatusJSON(Status(err), gin.H{
			"error":   string(coreErr.Kind),
			"message": coreErr.Message,
		})
		return
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
		"error":   "server_error",
		"message": "Internal server error",
	})
}
