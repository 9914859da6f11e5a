package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/FilipeAphrody/cartify/internal/domain"
)

// UserHandler serves the authenticated account routes.
type UserHandler struct {
	svc AuthService
}

// NewUserHandler registers the account routes. requireAuth must be the
// middleware produced by RequireAuth.
func NewUserHandler(g *echo.Group, svc AuthService, requireAuth echo.MiddlewareFunc) {
	handler := &UserHandler{svc: svc}

	g.GET("/getUser", handler.GetUser, requireAuth)
	g.POST("/changePassword", handler.ChangePassword, requireAuth)
	g.PUT("/updateUser", handler.UpdateUser, requireAuth)
}

// GetUser returns the caller's public projection.
func (h *UserHandler) GetUser(c echo.Context) error {
	identity, ok := IdentityFrom(c)
	if !ok {
		return domain.ErrUnauthorized
	}

	user, err := h.svc.GetUser(c.Request().Context(), identity.UserID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"user":    user,
	})
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// ChangePassword swaps the caller's password after re-verifying the old one.
func (h *UserHandler) ChangePassword(c echo.Context) error {
	identity, ok := IdentityFrom(c)
	if !ok {
		return domain.ErrUnauthorized
	}

	var req changePasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := h.svc.ChangePassword(c.Request().Context(), identity.UserID, req.OldPassword, req.NewPassword); err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"message": "Password changed successfully",
	})
}

// UpdateUser applies profile fields. Binding into domain.ProfileUpdate
// strips id, email, password and role by construction.
func (h *UserHandler) UpdateUser(c echo.Context) error {
	identity, ok := IdentityFrom(c)
	if !ok {
		return domain.ErrUnauthorized
	}

	var update domain.ProfileUpdate
	if err := c.Bind(&update); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	user, err := h.svc.UpdateProfile(c.Request().Context(), identity.UserID, update)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Profile updated successfully",
		"user":    user,
	})
}
