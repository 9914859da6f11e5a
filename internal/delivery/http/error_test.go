package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/FilipeAphrody/cartify/internal/domain"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{domain.ErrValidation, http.StatusBadRequest},
		{domain.ErrInvalidOrExpiredToken, http.StatusBadRequest},
		{domain.ErrUnauthorized, http.StatusUnauthorized},
		{domain.ErrInvalidOTP, http.StatusUnauthorized},
		{domain.ErrForbidden, http.StatusForbidden},
		{domain.ErrSessionRevoked, http.StatusForbidden},
		{domain.ErrNotFound, http.StatusNotFound},
		{domain.ErrConflict, http.StatusConflict},
		{domain.ErrRateLimited, http.StatusTooManyRequests},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.status, statusFor(tc.err), tc.err.Error())
	}

	// Wrapped sentinels keep their mapping.
	wrapped := fmt.Errorf("%w: name must be between 3 and 50 characters", domain.ErrValidation)
	assert.Equal(t, http.StatusBadRequest, statusFor(wrapped))
}

func serveError(t *testing.T, err error, production bool) (*httptest.ResponseRecorder, errorResponse) {
	t.Helper()

	e := echo.New()
	e.HTTPErrorHandler = NewErrorHandler(zap.NewNop(), production)
	e.GET("/boom", func(echo.Context) error { return err })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestErrorHandlerDomainEnvelope(t *testing.T) {
	rec, body := serveError(t, domain.ErrRateLimited, false)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.False(t, body.Success)
	assert.Equal(t, http.StatusTooManyRequests, body.StatusCode)
	assert.Equal(t, domain.ErrRateLimited.Error(), body.Message)
}

func TestErrorHandlerHonorsEchoHTTPError(t *testing.T) {
	rec, body := serveError(t, echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized: No token provided"), false)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthorized: No token provided", body.Message)
}

func TestErrorHandlerSuppressesInternalDetailInProduction(t *testing.T) {
	rec, body := serveError(t, errors.New("pq: connection refused"), true)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", body.Message)

	// Outside production the raw message passes through.
	_, devBody := serveError(t, errors.New("pq: connection refused"), false)
	assert.Equal(t, "pq: connection refused", devBody.Message)
}
