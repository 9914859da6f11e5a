package domain

import "errors"

// Sentinel errors shared across layers. The HTTP error handler maps these
// to status codes and the uniform response envelope; usecases wrap them with
// fmt.Errorf("%w: ...") when extra context helps the client.
var (
	// ErrValidation indicates malformed or missing input.
	ErrValidation = errors.New("validation failed")
	// ErrConflict indicates a duplicate resource (email already registered).
	ErrConflict = errors.New("user already exists")
	// ErrUnauthorized indicates bad credentials or a missing/invalid access token.
	// The message never reveals whether the account exists.
	ErrUnauthorized = errors.New("invalid email or password")
	// ErrForbidden indicates a role mismatch.
	ErrForbidden = errors.New("access denied: insufficient permissions")
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrRateLimited indicates too many attempts within the window.
	ErrRateLimited = errors.New("too many attempts, please try again later")
	// ErrInvalidOrExpiredToken covers verification and reset token misses
	// uniformly. "Never existed" and "expired" are deliberately conflated.
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	// ErrInvalidOTP indicates an OTP mismatch or an already-consumed challenge.
	ErrInvalidOTP = errors.New("invalid or expired OTP")
	// ErrSessionRevoked indicates a missing or replayed refresh session.
	ErrSessionRevoked = errors.New("session revoked, please log in again")
	// ErrDependency indicates an unreachable store or mail provider.
	ErrDependency = errors.New("service temporarily unavailable")
)
