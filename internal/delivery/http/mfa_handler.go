package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/FilipeAphrody/cartify/internal/domain"
)

// MFAHandler serves authenticator (TOTP) enrollment. Once enabled, the
// authenticator code replaces the emailed OTP as the login second factor.
type MFAHandler struct {
	svc AuthService
}

// NewMFAHandler registers the MFA enrollment routes.
func NewMFAHandler(g *echo.Group, svc AuthService, requireAuth echo.MiddlewareFunc) {
	handler := &MFAHandler{svc: svc}

	g.POST("/mfa/setup", handler.Setup, requireAuth)
	g.POST("/mfa/enable", handler.Enable, requireAuth)
}

// Setup generates a TOTP secret for the caller and returns the otpauth URI
// for the authenticator app. Nothing changes on the account until the first
// code is verified through Enable.
func (h *MFAHandler) Setup(c echo.Context) error {
	identity, ok := IdentityFrom(c)
	if !ok {
		return domain.ErrUnauthorized
	}

	secret, uri, err := h.svc.SetupTwoFactor(c.Request().Context(), identity.UserID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success":   true,
		"secret":    secret,
		"qrCodeUri": uri,
	})
}

type mfaEnableRequest struct {
	Code string `json:"code"`
}

// Enable verifies the first authenticator code and turns the second factor
// on for the caller's account.
func (h *MFAHandler) Enable(c echo.Context) error {
	identity, ok := IdentityFrom(c)
	if !ok {
		return domain.ErrUnauthorized
	}

	var req mfaEnableRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := h.svc.EnableTwoFactor(c.Request().Context(), identity.UserID, req.Code); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Two-factor authentication enabled",
	})
}
