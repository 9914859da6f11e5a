package domain

import (
	"context"
	"time"
)

// User represents the central identity entity of the system.
type User struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	PasswordHash     string    `json:"-"`    // Never expose the password hash in JSON
	Role             string    `json:"role"` // RBAC Role (admin, user)
	IsVerified       bool      `json:"isVerified"`
	LastLogin        time.Time `json:"lastLogin"`
	Phone            string    `json:"phone,omitempty"`
	Address          string    `json:"address,omitempty"`
	City             string    `json:"city,omitempty"`
	PostalCode       string    `json:"postalCode,omitempty"`
	TwoFactorEnabled bool      `json:"twoFactorEnabled"`
	TwoFactorSecret  string    `json:"-"` // TOTP secret key
	ResetExpiresAt   time.Time `json:"-"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Roles assignable to a user.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// PendingRegistration is the transient registration payload held in the
// secret store until the email verification link is followed. The password
// is still plaintext at this stage; it is hashed when the account is created.
type PendingRegistration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ProfileUpdate carries the user-editable profile fields. Identity fields
// (id, email, password, role) are deliberately absent so they can never be
// smuggled through a profile update.
type ProfileUpdate struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
}

// UserRepository defines the contract for durable user persistence.
type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	Create(ctx context.Context, user *User) error
	UpdateLastLogin(ctx context.Context, id string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (*User, error)
	SetTwoFactor(ctx context.Context, id, secret string, enabled bool) error
	SetResetExpiry(ctx context.Context, id string, expiresAt time.Time) error
}

// SecretStore is a key/value store with per-key expiry. It backs every
// transient secret in the system: pending registrations, OTP challenges,
// rate-limit counters, refresh sessions, and reset challenges.
//
// Absence is not an error: Get reports a missing key through its boolean,
// and Delete on a missing key is a no-op. Callers must treat "expired" and
// "never existed" identically.
type SecretStore interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Delete(ctx context.Context, key string) error

	// Increment atomically increments the integer at key, creating it at 1
	// if absent, and returns the new value.
	Increment(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

// Mailer dispatches transactional email. The orchestrator only depends on
// whether the send succeeded.
type Mailer interface {
	SendVerification(ctx context.Context, to, name, link string) error
	SendLoginOTP(ctx context.Context, to, code string) error
	SendPasswordReset(ctx context.Context, to, link string) error
}
