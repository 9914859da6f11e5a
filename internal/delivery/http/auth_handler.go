package http

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/FilipeAphrody/cartify/internal/domain"
	"github.com/FilipeAphrody/cartify/internal/usecase"
	"github.com/FilipeAphrody/cartify/pkg/security"
)

// AuthService is the slice of the auth orchestrator the handlers consume.
// Declared here so handler tests can substitute a fake.
type AuthService interface {
	Register(ctx context.Context, name, email, password string) error
	VerifyEmail(ctx context.Context, token string) (*domain.User, error)
	LoginStepOne(ctx context.Context, email, password, ip string) (userID string, totpEnrolled bool, err error)
	VerifyLogin(ctx context.Context, userID, code string) (*usecase.Session, error)
	Refresh(ctx context.Context, userID, presented string) (*usecase.Session, error)
	Logout(ctx context.Context, userID string) error
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error
	ForgetPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, userID, token, newPassword string) error
	GetUser(ctx context.Context, userID string) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID string, update domain.ProfileUpdate) (*domain.User, error)
	SetupTwoFactor(ctx context.Context, userID string) (secret, uri string, err error)
	EnableTwoFactor(ctx context.Context, userID, code string) error
}

// CookieConfig describes the refresh token cookie.
type CookieConfig struct {
	Name   string
	TTL    time.Duration
	Secure bool
}

// AuthHandler is the HTTP delivery layer for the authentication flows.
type AuthHandler struct {
	svc          AuthService
	cookie       CookieConfig
	accessSecret string
}

// NewAuthHandler registers the authentication routes on the given group.
func NewAuthHandler(g *echo.Group, svc AuthService, cookie CookieConfig, accessSecret string) {
	handler := &AuthHandler{svc: svc, cookie: cookie, accessSecret: accessSecret}

	g.POST("/register", handler.Register)
	g.POST("/verify-email", handler.VerifyEmail)
	g.POST("/loginStepOne", handler.LoginStepOne)
	g.POST("/verifyLogin", handler.VerifyLogin)
	g.POST("/refreshToken", handler.RefreshToken)
	g.POST("/forgetPassword", handler.ForgetPassword)
	g.POST("/resetPassword", handler.ResetPassword)
	g.POST("/logout", handler.Logout)
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register accepts a registration and triggers the verification email. No
// account exists until the emailed token is presented.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := h.svc.Register(c.Request().Context(), req.Name, req.Email, req.Password); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Verification email sent. Please check your email to complete registration.",
	})
}

type verifyEmailRequest struct {
	Token string `json:"token"`
}

// VerifyEmail consumes the emailed token and creates the account.
func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	var req verifyEmailRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	user, err := h.svc.VerifyEmail(c.Request().Context(), req.Token)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"message": "User created successfully",
		"user":    user,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginStepOne validates the password factor and dispatches the OTP. The
// returned userId is the handle for the OTP step, not a session.
func (h *AuthHandler) LoginStepOne(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	userID, totpEnrolled, err := h.svc.LoginStepOne(c.Request().Context(), req.Email, req.Password, c.RealIP())
	if err != nil {
		return err
	}

	message := "OTP sent to your email. Please verify to complete login."
	if totpEnrolled {
		message = "Enter the code from your authenticator app to complete login."
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success":      true,
		"message":      message,
		"userId":       userID,
		"totpRequired": totpEnrolled,
	})
}

type otpRequest struct {
	UserID string `json:"userId"`
	OTP    string `json:"otp"`
}

// VerifyLogin validates the second factor, returns the access token and
// user projection, and sets the refresh cookie.
func (h *AuthHandler) VerifyLogin(c echo.Context) error {
	var req otpRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	session, err := h.svc.VerifyLogin(c.Request().Context(), req.UserID, req.OTP)
	if err != nil {
		return err
	}

	h.setRefreshCookie(c, session.RefreshToken)

	return c.JSON(http.StatusCreated, echo.Map{
		"success":     true,
		"message":     "OTP verified successfully",
		"accessToken": session.AccessToken,
		"user":        session.User,
	})
}

type refreshRequest struct {
	UserID string `json:"userId"`
}

// RefreshToken rotates the refresh session presented in the cookie and
// mints a fresh access token.
func (h *AuthHandler) RefreshToken(c echo.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	cookie, err := c.Cookie(h.cookie.Name)
	if err != nil || cookie.Value == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized: No refresh token provided")
	}

	session, err := h.svc.Refresh(c.Request().Context(), req.UserID, cookie.Value)
	if err != nil {
		h.clearRefreshCookie(c)
		return err
	}

	h.setRefreshCookie(c, session.RefreshToken)

	return c.JSON(http.StatusCreated, echo.Map{
		"success":     true,
		"message":     "Token refreshed successfully",
		"accessToken": session.AccessToken,
	})
}

type forgetPasswordRequest struct {
	Email string `json:"email"`
}

// ForgetPassword issues a reset link. The response shape is identical for
// known and unknown addresses.
func (h *AuthHandler) ForgetPassword(c echo.Context) error {
	var req forgetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := h.svc.ForgetPassword(c.Request().Context(), req.Email); err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"message": "If the email is registered, a password reset link has been sent.",
	})
}

type resetPasswordRequest struct {
	UserID      string `json:"userId"`
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// ResetPassword consumes the reset token and installs the new password.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := h.svc.ResetPassword(c.Request().Context(), req.UserID, req.Token, req.NewPassword); err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"message": "Password reset successfully. Please log in with your new password.",
	})
}

type logoutRequest struct {
	UserID string `json:"userId"`
}

// Logout revokes the refresh session and clears the cookie. It accepts the
// account id from a bearer token when present, falling back to the request
// body, and is idempotent either way.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req logoutRequest
	_ = c.Bind(&req)

	userID := req.UserID
	if claims, err := bearerClaims(c, h.accessSecret); err == nil {
		userID = claims.UserID
	}

	if err := h.svc.Logout(c.Request().Context(), userID); err != nil {
		return err
	}

	h.clearRefreshCookie(c)
	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"message": "Logged out successfully",
	})
}

// bearerClaims parses an optional Authorization header.
func bearerClaims(c echo.Context, secret string) (*security.Claims, error) {
	authHeader := c.Request().Header.Get("Authorization")
	const prefix = "Bearer "
	if len(authHeader) <= len(prefix) || authHeader[:len(prefix)] != prefix {
		return nil, echo.ErrUnauthorized
	}
	return security.ValidateToken(authHeader[len(prefix):], secret)
}

func (h *AuthHandler) setRefreshCookie(c echo.Context, token string) {
	c.SetCookie(&http.Cookie{
		Name:     h.cookie.Name,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.cookie.TTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearRefreshCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
