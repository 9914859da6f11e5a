package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/FilipeAphrody/cartify/internal/domain"
)

const userColumns = `id, name, email, password_hash, role, is_verified,
	COALESCE(last_login, to_timestamp(0)), phone, address, city, postal_code,
	two_factor_enabled, COALESCE(two_factor_secret, ''),
	COALESCE(reset_expires_at, to_timestamp(0)), created_at, updated_at`

// PostgresUserRepo implements domain.UserRepository using PostgreSQL.
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo creates a new repository instance.
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

func scanUser(row *sql.Row) (*domain.User, error) {
	user := &domain.User{}
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.IsVerified,
		&user.LastLogin,
		&user.Phone,
		&user.Address,
		&user.City,
		&user.PostalCode,
		&user.TwoFactorEnabled,
		&user.TwoFactorSecret,
		&user.ResetExpiresAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, mapPostgresError(err, "load user")
	}
	return user, nil
}

// GetByEmail retrieves a user by their normalized email address.
func (r *PostgresUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

// GetByID retrieves a user by their UUID.
func (r *PostgresUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

// Create inserts a new user. A duplicate email surfaces as domain.ErrConflict.
func (r *PostgresUserRepo) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, name, email, password_hash, role, is_verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.IsVerified,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return mapPostgresError(err, "create user")
	}

	return nil
}

// UpdateLastLogin stamps the login timestamp.
func (r *PostgresUserRepo) UpdateLastLogin(ctx context.Context, id string) error {
	return r.exec(ctx, `UPDATE users SET last_login = now(), updated_at = now() WHERE id = $1`, id)
}

// UpdatePassword replaces the stored password hash.
func (r *PostgresUserRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.exec(ctx, `UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`, id, passwordHash)
}

// UpdateProfile overwrites the user-editable profile fields and returns the
// refreshed record.
func (r *PostgresUserRepo) UpdateProfile(ctx context.Context, id string, update domain.ProfileUpdate) (*domain.User, error) {
	query := `
		UPDATE users
		SET name = $2, phone = $3, address = $4, city = $5, postal_code = $6, updated_at = now()
		WHERE id = $1
	`
	if err := r.exec(ctx, query, id, update.Name, update.Phone, update.Address, update.City, update.PostalCode); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// SetTwoFactor stores the TOTP secret and toggles enrollment.
func (r *PostgresUserRepo) SetTwoFactor(ctx context.Context, id, secret string, enabled bool) error {
	var secretValue sql.NullString
	if secret != "" {
		secretValue = sql.NullString{String: secret, Valid: true}
	}
	return r.exec(ctx,
		`UPDATE users SET two_factor_secret = $2, two_factor_enabled = $3, updated_at = now() WHERE id = $1`,
		id, secretValue, enabled)
}

// SetResetExpiry mirrors the reset challenge expiry onto the account record.
// The zero time clears it.
func (r *PostgresUserRepo) SetResetExpiry(ctx context.Context, id string, expiresAt time.Time) error {
	var value sql.NullTime
	if !expiresAt.IsZero() {
		value = sql.NullTime{Time: expiresAt, Valid: true}
	}
	return r.exec(ctx, `UPDATE users SET reset_expires_at = $2, updated_at = now() WHERE id = $1`, id, value)
}

func (r *PostgresUserRepo) exec(ctx context.Context, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return mapPostgresError(err, "update user")
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}
