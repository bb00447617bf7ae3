package entity

import "time"

// Role is the user's access level.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// User is the aggregate root for the account domain. PasswordHash holds a
// bcrypt digest; RefreshToken is the single currently-valid refresh token
// (rotated on every refresh, cleared on logout); the reset fields hold a
// sha256 digest of a pending password-reset secret plus its expiry. Default
// repository reads leave all secret fields empty.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	AvatarURL    string

	RefreshToken         string
	PasswordResetToken   string
	PasswordResetExpires *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasPendingReset reports whether a reset secret is pending and unexpired.
func (u *User) HasPendingReset(now time.Time) bool {
	return u.PasswordResetToken != "" && u.PasswordResetExpires != nil && now.Before(*u.PasswordResetExpires)
}
