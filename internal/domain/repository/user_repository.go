package repository

import (
	"context"
	"errors"
	"time"

	"github.com/storelabs/storefront/internal/domain/entity"
)

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("not found")

// UserRepository is the credential store. Default reads exclude the password
// hash, refresh token, and reset fields; the *WithSecrets variants include
// them for flows that verify credentials.
type UserRepository interface {
	// Create persists a new user and fills ID and timestamps. A duplicate
	// email fails closed with a Conflict-class error.
	Create(ctx context.Context, u *entity.User) error

	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)

	// GetByIdentifierWithSecrets looks a user up by email or name and
	// includes the password hash, for login.
	GetByIdentifierWithSecrets(ctx context.Context, identifier string) (*entity.User, error)

	// GetByResetTokenHash loads the user holding the given pending reset
	// digest, including the reset fields.
	GetByResetTokenHash(ctx context.Context, tokenHash string) (*entity.User, error)

	// SetRefreshToken overwrites the stored refresh token (login).
	SetRefreshToken(ctx context.Context, id, token string) error

	// RotateRefreshToken atomically replaces the stored refresh token only
	// if it still equals old. ErrNotFound means the presented token did not
	// match (or lost a concurrent rotation race) and nothing was written.
	RotateRefreshToken(ctx context.Context, id, old, new string) error

	// ClearRefreshToken removes the stored refresh token. Idempotent.
	ClearRefreshToken(ctx context.Context, id string) error

	// SetPasswordReset stores the reset digest and expiry, replacing any
	// pending reset.
	SetPasswordReset(ctx context.Context, id, tokenHash string, expires time.Time) error

	// UpdatePassword sets a new password hash and, in the same statement,
	// clears the reset fields and revokes the refresh token.
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}
