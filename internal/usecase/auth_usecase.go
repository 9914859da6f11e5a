package usecase

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/FilipeAphrody/cartify/internal/domain"
	"github.com/FilipeAphrody/cartify/pkg/security"
)

// Secret store key prefixes and TTLs for the auth flows.
const (
	verifyKeyPrefix    = "verify:"
	otpKeyPrefix       = "otp:"
	resetKeyPrefix     = "reset:"
	refreshKeyPrefix   = "refresh:"
	totpSetupKeyPrefix = "totp-setup:"

	verificationTokenTTL = 5 * time.Minute
	otpTTL               = 5 * time.Minute
	resetTokenTTL        = 5 * time.Minute
	totpSetupTTL         = 10 * time.Minute

	verificationTokenBytes = 10
	resetTokenBytes        = 32
	refreshTokenBytes      = 64
)

// AuthConfig carries the orchestrator's tunables.
type AuthConfig struct {
	AccessSecret    string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	FrontendURL     string
}

// Session is the credential pair returned once the OTP step succeeds.
type Session struct {
	AccessToken  string
	RefreshToken string
	User         *domain.User
}

// AuthUsecase drives the authentication state machines: registration and
// email verification, two-step login, refresh rotation, password reset and
// change, profile updates, and TOTP enrollment.
//
// It is a stateless request handler. All shared mutable state lives in the
// secret store, whose single-key operations serialize concurrent requests.
type AuthUsecase struct {
	users   domain.UserRepository
	secrets domain.SecretStore
	limiter *RateLimiter
	mailer  domain.Mailer
	logger  *zap.Logger
	cfg     AuthConfig
}

// NewAuthUsecase wires the orchestrator with its collaborators.
func NewAuthUsecase(
	users domain.UserRepository,
	secrets domain.SecretStore,
	limiter *RateLimiter,
	mailer domain.Mailer,
	logger *zap.Logger,
	cfg AuthConfig,
) *AuthUsecase {
	return &AuthUsecase{
		users:   users,
		secrets: secrets,
		limiter: limiter,
		mailer:  mailer,
		logger:  logger,
		cfg:     cfg,
	}
}

// NormalizeEmail lowercases and trims an address so lookups and uniqueness
// are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// Register validates input, checks uniqueness, parks the registration in
// the secret store under a fresh verification token, and mails the link.
// No account row is created yet.
func (u *AuthUsecase) Register(ctx context.Context, name, email, password string) error {
	name = strings.TrimSpace(name)
	email = NormalizeEmail(email)

	if len(name) < 3 || len(name) > 50 {
		return fmt.Errorf("%w: name must be between 3 and 50 characters", domain.ErrValidation)
	}
	if !validEmail(email) {
		return fmt.Errorf("%w: email must be valid", domain.ErrValidation)
	}
	if len(password) < 6 || len(password) > 72 {
		return fmt.Errorf("%w: password must be between 6 and 72 characters", domain.ErrValidation)
	}

	if _, err := u.users.GetByEmail(ctx, email); err == nil {
		return domain.ErrConflict
	} else if !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	token, err := security.GenerateOpaqueToken(verificationTokenBytes)
	if err != nil {
		return fmt.Errorf("%w: token generation: %v", domain.ErrDependency, err)
	}

	pending := domain.PendingRegistration{Name: name, Email: email, Password: password}
	if err := setJSON(ctx, u.secrets, verifyKeyPrefix+token, pending, verificationTokenTTL); err != nil {
		return err
	}

	// The pending entry is already written; if the mail never arrives the
	// token simply expires unused and no orphaned account exists.
	link := u.cfg.FrontendURL + "/verify?token=" + token
	if err := u.mailer.SendVerification(ctx, email, name, link); err != nil {
		u.logger.Error("verification mail failed", zap.String("email", email), zap.Error(err))
		return fmt.Errorf("%w: sending verification email", domain.ErrDependency)
	}

	u.logger.Info("registration pending verification", zap.String("email", email))
	return nil
}

// VerifyEmail consumes a verification token and creates the account. The
// durable write happens only after the ephemeral precondition is confirmed;
// the token is deleted afterwards so a second presentation fails.
func (u *AuthUsecase) VerifyEmail(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: verification token is required", domain.ErrValidation)
	}

	var pending domain.PendingRegistration
	ok, err := getJSON(ctx, u.secrets, verifyKeyPrefix+token, &pending)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrInvalidOrExpiredToken
	}

	hash, err := security.HashPassword(pending.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: password hashing: %v", domain.ErrDependency, err)
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Name:         pending.Name,
		Email:        pending.Email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		IsVerified:   true,
	}
	// The unique index on email is the final arbiter if two verifications
	// race for the same address.
	if err := u.users.Create(ctx, user); err != nil {
		return nil, err
	}

	if err := u.secrets.Delete(ctx, verifyKeyPrefix+token); err != nil {
		u.logger.Warn("verification token cleanup failed", zap.Error(err))
	}

	u.logger.Info("account created", zap.String("user_id", user.ID), zap.String("email", user.Email))
	return user, nil
}

// LoginStepOne validates the password factor. On success it resets the
// login counter and, unless the account enrolled a TOTP authenticator,
// stores and mails a fresh OTP. The caller is not authenticated yet: the
// returned id is only the handle for the OTP step.
func (u *AuthUsecase) LoginStepOne(ctx context.Context, email, password, ip string) (userID string, totpEnrolled bool, err error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return "", false, fmt.Errorf("%w: email and password are required", domain.ErrValidation)
	}

	identity := ip + ":" + email
	if err := u.limiter.Allow(ctx, LimitLogin, identity); err != nil {
		return "", false, err
	}

	user, err := u.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Same failure path as a bad password: account existence is
			// never revealed, and the miss still counts toward the limit.
			if recErr := u.limiter.RecordFailure(ctx, LimitLogin, identity); recErr != nil {
				return "", false, recErr
			}
			return "", false, domain.ErrUnauthorized
		}
		return "", false, err
	}

	match, err := security.ComparePassword(password, user.PasswordHash)
	if err != nil || !match || !user.IsVerified {
		if recErr := u.limiter.RecordFailure(ctx, LimitLogin, identity); recErr != nil {
			return "", false, recErr
		}
		return "", false, domain.ErrUnauthorized
	}

	if err := u.limiter.Reset(ctx, LimitLogin, identity); err != nil {
		return "", false, err
	}

	if user.TwoFactorEnabled {
		// Authenticator codes replace the emailed OTP.
		return user.ID, true, nil
	}

	code, err := security.GenerateOTP()
	if err != nil {
		return "", false, fmt.Errorf("%w: otp generation: %v", domain.ErrDependency, err)
	}
	if err := u.secrets.Set(ctx, otpKeyPrefix+user.ID, code, otpTTL); err != nil {
		return "", false, err
	}

	if err := u.mailer.SendLoginOTP(ctx, user.Email, code); err != nil {
		u.logger.Error("otp mail failed", zap.String("user_id", user.ID), zap.Error(err))
		return "", false, fmt.Errorf("%w: sending OTP email", domain.ErrDependency)
	}

	return user.ID, false, nil
}

// VerifyLogin validates the second factor and mints the session. Deleting
// the OTP key is the serialization point: a double-submit loses the race
// and fails instead of double-issuing a session.
func (u *AuthUsecase) VerifyLogin(ctx context.Context, userID, code string) (*Session, error) {
	if userID == "" || code == "" {
		return nil, fmt.Errorf("%w: userId and otp are required", domain.ErrValidation)
	}

	if err := u.limiter.Allow(ctx, LimitOTP, userID); err != nil {
		return nil, err
	}

	user, err := u.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidOTP
		}
		return nil, err
	}

	if user.TwoFactorEnabled {
		if !security.VerifyTOTPCode(code, user.TwoFactorSecret) {
			if recErr := u.limiter.RecordFailure(ctx, LimitOTP, userID); recErr != nil {
				return nil, recErr
			}
			return nil, domain.ErrInvalidOTP
		}
	} else {
		stored, ok, err := u.secrets.Get(ctx, otpKeyPrefix+userID)
		if err != nil {
			return nil, err
		}
		if !ok || subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
			if recErr := u.limiter.RecordFailure(ctx, LimitOTP, userID); recErr != nil {
				return nil, recErr
			}
			return nil, domain.ErrInvalidOTP
		}
		if err := u.secrets.Delete(ctx, otpKeyPrefix+userID); err != nil {
			return nil, err
		}
	}

	if err := u.limiter.Reset(ctx, LimitOTP, userID); err != nil {
		return nil, err
	}
	if err := u.users.UpdateLastLogin(ctx, userID); err != nil {
		u.logger.Warn("last login update failed", zap.String("user_id", userID), zap.Error(err))
	}

	session, err := u.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}

	u.logger.Info("login complete", zap.String("user_id", user.ID))
	return session, nil
}

// issueSession mints the access token and a fresh refresh token, storing
// only the refresh token's hash. One active session per account: the write
// overwrites any prior session.
func (u *AuthUsecase) issueSession(ctx context.Context, user *domain.User) (*Session, error) {
	access, err := security.GenerateAccessToken(user.ID, user.Role, u.cfg.AccessSecret, u.cfg.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: signing access token: %v", domain.ErrDependency, err)
	}

	refresh, err := security.GenerateOpaqueToken(refreshTokenBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: refresh token generation: %v", domain.ErrDependency, err)
	}

	err = u.secrets.Set(ctx, refreshKeyPrefix+user.ID, security.HashToken(refresh), u.cfg.RefreshTokenTTL)
	if err != nil {
		return nil, err
	}

	return &Session{AccessToken: access, RefreshToken: refresh, User: user}, nil
}

// Refresh rotates the refresh session. A missing stored hash means the
// session was revoked or expired. A mismatching hash is treated as replay
// of an already-rotated token: the whole session is revoked so a thief and
// the legitimate client are both forced back through login.
func (u *AuthUsecase) Refresh(ctx context.Context, userID, presented string) (*Session, error) {
	if userID == "" || presented == "" {
		return nil, domain.ErrSessionRevoked
	}

	storedHash, ok, err := u.secrets.Get(ctx, refreshKeyPrefix+userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrSessionRevoked
	}

	if subtle.ConstantTimeCompare([]byte(storedHash), []byte(security.HashToken(presented))) != 1 {
		if delErr := u.secrets.Delete(ctx, refreshKeyPrefix+userID); delErr != nil {
			return nil, delErr
		}
		u.logger.Warn("refresh token reuse detected, session revoked", zap.String("user_id", userID))
		return nil, domain.ErrSessionRevoked
	}

	user, err := u.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrSessionRevoked
		}
		return nil, err
	}

	return u.issueSession(ctx, user)
}

// Logout deletes the refresh session. Logging out twice is not an error.
func (u *AuthUsecase) Logout(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	return u.secrets.Delete(ctx, refreshKeyPrefix+userID)
}

// ChangePassword verifies the current password before rehashing the new
// one. The refresh session is revoked so other holders of the old session
// must log in again.
func (u *AuthUsecase) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if len(newPassword) < 6 || len(newPassword) > 72 {
		return fmt.Errorf("%w: password must be between 6 and 72 characters", domain.ErrValidation)
	}

	user, err := u.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	match, err := security.ComparePassword(oldPassword, user.PasswordHash)
	if err != nil || !match {
		return fmt.Errorf("%w: current password is incorrect", domain.ErrUnauthorized)
	}

	hash, err := security.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("%w: password hashing: %v", domain.ErrDependency, err)
	}
	if err := u.users.UpdatePassword(ctx, userID, hash); err != nil {
		return err
	}

	if err := u.secrets.Delete(ctx, refreshKeyPrefix+userID); err != nil {
		u.logger.Warn("session revocation after password change failed", zap.Error(err))
	}

	u.logger.Info("password changed", zap.String("user_id", userID))
	return nil
}

// ForgetPassword issues a reset challenge. The response is success-shaped
// whether or not the address is registered, so the endpoint cannot be used
// to enumerate accounts.
func (u *AuthUsecase) ForgetPassword(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	if !validEmail(email) {
		return fmt.Errorf("%w: email must be valid", domain.ErrValidation)
	}

	user, err := u.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			u.logger.Info("password reset requested for unknown email")
			return nil
		}
		return err
	}

	token, err := security.GenerateOpaqueToken(resetTokenBytes)
	if err != nil {
		return fmt.Errorf("%w: token generation: %v", domain.ErrDependency, err)
	}

	expiresAt := time.Now().Add(resetTokenTTL)
	if err := u.secrets.Set(ctx, resetKeyPrefix+user.ID, security.HashToken(token), resetTokenTTL); err != nil {
		return err
	}
	if err := u.users.SetResetExpiry(ctx, user.ID, expiresAt); err != nil {
		u.logger.Warn("reset expiry mirror failed", zap.String("user_id", user.ID), zap.Error(err))
	}

	link := u.cfg.FrontendURL + "/reset-password?userId=" + user.ID + "&token=" + token
	if err := u.mailer.SendPasswordReset(ctx, user.Email, link); err != nil {
		u.logger.Error("reset mail failed", zap.String("user_id", user.ID), zap.Error(err))
		return fmt.Errorf("%w: sending reset email", domain.ErrDependency)
	}

	return nil
}

// ResetPassword consumes the reset challenge. Absent and expired challenges
// are indistinguishable; the stored password is untouched unless the
// presented token matches the stored hash.
func (u *AuthUsecase) ResetPassword(ctx context.Context, userID, token, newPassword string) error {
	if userID == "" || token == "" {
		return fmt.Errorf("%w: userId and token are required", domain.ErrValidation)
	}
	if len(newPassword) < 6 || len(newPassword) > 72 {
		return fmt.Errorf("%w: password must be between 6 and 72 characters", domain.ErrValidation)
	}

	storedHash, ok, err := u.secrets.Get(ctx, resetKeyPrefix+userID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrInvalidOrExpiredToken
	}
	if subtle.ConstantTimeCompare([]byte(storedHash), []byte(security.HashToken(token))) != 1 {
		return domain.ErrInvalidOrExpiredToken
	}

	hash, err := security.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("%w: password hashing: %v", domain.ErrDependency, err)
	}
	if err := u.users.UpdatePassword(ctx, userID, hash); err != nil {
		return err
	}

	if err := u.secrets.Delete(ctx, resetKeyPrefix+userID); err != nil {
		u.logger.Warn("reset challenge cleanup failed", zap.Error(err))
	}
	if err := u.users.SetResetExpiry(ctx, userID, time.Time{}); err != nil {
		u.logger.Warn("reset expiry clear failed", zap.Error(err))
	}
	// Force re-login everywhere with the new password.
	if err := u.secrets.Delete(ctx, refreshKeyPrefix+userID); err != nil {
		u.logger.Warn("session revocation after reset failed", zap.Error(err))
	}

	u.logger.Info("password reset complete", zap.String("user_id", userID))
	return nil
}

// GetUser returns the account for an authenticated identity.
func (u *AuthUsecase) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	return u.users.GetByID(ctx, userID)
}

// UpdateProfile applies the user-editable fields. Identity fields cannot be
// changed here by construction of ProfileUpdate.
func (u *AuthUsecase) UpdateProfile(ctx context.Context, userID string, update domain.ProfileUpdate) (*domain.User, error) {
	update.Name = strings.TrimSpace(update.Name)
	if update.Name != "" && (len(update.Name) < 3 || len(update.Name) > 50) {
		return nil, fmt.Errorf("%w: name must be between 3 and 50 characters", domain.ErrValidation)
	}
	if update.Name == "" {
		current, err := u.users.GetByID(ctx, userID)
		if err != nil {
			return nil, err
		}
		update.Name = current.Name
	}
	return u.users.UpdateProfile(ctx, userID, update)
}

// SetupTwoFactor generates a TOTP secret and parks it until the first code
// confirms the authenticator was enrolled. The account is untouched until
// EnableTwoFactor succeeds.
func (u *AuthUsecase) SetupTwoFactor(ctx context.Context, userID string) (secret, uri string, err error) {
	user, err := u.users.GetByID(ctx, userID)
	if err != nil {
		return "", "", err
	}

	secret, uri, err = security.GenerateTOTPSecret(user.Email)
	if err != nil {
		return "", "", fmt.Errorf("%w: totp generation: %v", domain.ErrDependency, err)
	}
	if err := u.secrets.Set(ctx, totpSetupKeyPrefix+userID, secret, totpSetupTTL); err != nil {
		return "", "", err
	}
	return secret, uri, nil
}

// EnableTwoFactor verifies the first authenticator code against the parked
// secret and turns the second factor on.
func (u *AuthUsecase) EnableTwoFactor(ctx context.Context, userID, code string) error {
	secret, ok, err := u.secrets.Get(ctx, totpSetupKeyPrefix+userID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrInvalidOrExpiredToken
	}
	if !security.VerifyTOTPCode(code, secret) {
		return domain.ErrInvalidOTP
	}

	if err := u.users.SetTwoFactor(ctx, userID, secret, true); err != nil {
		return err
	}
	if err := u.secrets.Delete(ctx, totpSetupKeyPrefix+userID); err != nil {
		u.logger.Warn("totp setup cleanup failed", zap.Error(err))
	}

	u.logger.Info("two-factor enabled", zap.String("user_id", userID))
	return nil
}
