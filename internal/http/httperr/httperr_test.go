package httperr_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/Vaultexe/server/internal/domain"
	"github.com/Vaultexe/server/internal/http/httperr"
)

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.ErrAuthenticationFailed, http.StatusUnauthorized},
		{domain.ErrTokenExpired, http.StatusUnauthorized},
		{domain.ErrInvalidOTP, http.StatusUnauthorized},
		{domain.ErrAuthorizationFailed, http.StatusForbidden},
		{domain.ErrUnverifiedEmail, http.StatusForbidden},
		{domain.NotFound("User"), http.StatusNotFound},
		{domain.ErrUserAlreadyActive, http.StatusConflict},
		{domain.Duplicate("User"), http.StatusConflict},
		{errors.New("pool exhausted"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, httperr.Status(tc.err), "error %v", tc.err)
	}
}

func TestAbortBody(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	httperr.Abort(c, domain.ErrInvalidOTP)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.JSONEq(t, `{"error":"invalid_otp","message":"Invalid OTP"}`, w.Body.String())
}

func TestAbortHidesInternalErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	httperr.Abort(c, errors.New("dial tcp 10.0.0.9:5432: connection refused"))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.NotContains(t, w.Body.String(), "10.0.0.9")
}
