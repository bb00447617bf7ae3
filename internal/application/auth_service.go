package application

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/storelabs/storefront/internal/domain/entity"
	"github.com/storelabs/storefront/internal/domain/repository"
	"github.com/storelabs/storefront/pkg/apperr"
	"github.com/storelabs/storefront/pkg/helpers"
	"github.com/storelabs/storefront/pkg/mailer"
)

// AuthConfig carries the secrets-adjacent knobs the auth flows need. It is
// passed in explicitly at construction; core logic never reads the process
// environment.
type AuthConfig struct {
	BcryptCost       int
	ResetTokenTTL    time.Duration
	ResetPasswordURL string
	StoreName        string
	SupportURL       string
	MailEnabled      bool
}

// AuthService owns registration, the session lifecycle (login, refresh,
// logout), and the password-reset token scheme.
type AuthService struct {
	Repo      repository.UserRepository
	JWT       *helpers.JWTManager
	GCS       *storage.Client
	GCSBucket string
	Pub       *helpers.RabbitPublisher
	Logger    *logrus.Logger
	Cfg       AuthConfig
}

func NewAuthService(repo repository.UserRepository, jwt *helpers.JWTManager, gcs *storage.Client, gcsBucket string, pub *helpers.RabbitPublisher, logger *logrus.Logger, cfg AuthConfig) *AuthService {
	return &AuthService{
		Repo:      repo,
		JWT:       jwt,
		GCS:       gcs,
		GCSBucket: gcsBucket,
		Pub:       pub,
		Logger:    logger,
		Cfg:       cfg,
	}
}

// TokenPair is one access/refresh issuance.
type TokenPair struct {
	AccessToken        string
	AccessTokenExpiry  time.Time
	RefreshToken       string
	RefreshTokenExpiry time.Time
}

// RegisterInput is the registration payload. Avatar is optional; when nil the
// user gets a generated avatar URL.
type RegisterInput struct {
	Name     string
	Email    string
	Password string

	Avatar            io.Reader
	AvatarFilename    string
	AvatarContentType string
}

// Register validates input, uploads the optional avatar, hashes the password,
// and creates the user. Email uniqueness fails closed: a duplicate from the
// store surfaces as a conflict, never an overwrite.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*entity.User, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	password := strings.TrimSpace(in.Password)

	if name == "" || email == "" || password == "" {
		return nil, apperr.InvalidInput("name, email, and password are required")
	}

	if _, err := s.Repo.GetByEmail(ctx, email); err == nil {
		return nil, apperr.Conflict("email already exists")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.StoreUnavailable(err)
	}

	avatarURL := helpers.DefaultAvatarURL(name)
	if in.Avatar != nil {
		url, err := s.uploadAvatar(ctx, in.Avatar, in.AvatarFilename, in.AvatarContentType)
		if err != nil {
			return nil, apperr.UploadFailed(err)
		}
		avatarURL = url
	}

	hash, err := helpers.HashPassword(password, s.Cfg.BcryptCost)
	if err != nil {
		return nil, apperr.StoreUnavailable(err)
	}

	u := &entity.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         entity.RoleCustomer,
		AvatarURL:    avatarURL,
	}
	if err := s.Repo.Create(ctx, u); err != nil {
		return nil, err
	}

	s.enqueueEmail(ctx, mailer.EmailJob{
		To:       u.Email,
		Template: mailer.TemplateWelcome,
		Data: map[string]any{
			"name":        u.Name,
			"email":       u.Email,
			"store_name":  s.Cfg.StoreName,
			"support_url": s.Cfg.SupportURL,
		},
	})

	u.PasswordHash = ""
	return u, nil
}

// Login authenticates by email or display name. Failures never reveal which
// of identifier or password was wrong. The refresh token is persisted only
// after both tokens were produced.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*entity.User, TokenPair, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, TokenPair{}, apperr.InvalidCredentials()
	}

	u, err := s.Repo.GetByIdentifierWithSecrets(ctx, identifier)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, TokenPair{}, apperr.InvalidCredentials()
		}
		return nil, TokenPair{}, apperr.StoreUnavailable(err)
	}
	if !helpers.CompareHashAndPassword(u.PasswordHash, password) {
		return nil, TokenPair{}, apperr.InvalidCredentials()
	}

	pair, err := s.issuePair(u)
	if err != nil {
		return nil, TokenPair{}, apperr.StoreUnavailable(err)
	}
	if err := s.Repo.SetRefreshToken(ctx, u.ID, pair.RefreshToken); err != nil {
		return nil, TokenPair{}, apperr.StoreUnavailable(err)
	}

	u.PasswordHash = ""
	u.RefreshToken = ""
	return u, pair, nil
}

// Refresh rotates the token pair. The presented token must carry a valid
// signature and expiry AND byte-match the stored value; the swap is atomic,
// so a concurrent rotation leaves exactly one winner and logs the loser out.
func (s *AuthService) Refresh(ctx context.Context, presented string) (TokenPair, error) {
	claims, err := s.JWT.ParseRefreshToken(presented)
	if err != nil {
		if errors.Is(err, helpers.ErrTokenExpired) {
			return TokenPair{}, apperr.Unauthorized("refresh token expired")
		}
		return TokenPair{}, apperr.Unauthorized("invalid refresh token")
	}

	u, err := s.Repo.GetByID(ctx, claims.Subject)
	if err != nil {
		return TokenPair{}, apperr.Unauthorized("invalid refresh token")
	}

	pair, err := s.issuePair(u)
	if err != nil {
		return TokenPair{}, apperr.StoreUnavailable(err)
	}
	if err := s.Repo.RotateRefreshToken(ctx, u.ID, presented, pair.RefreshToken); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Mismatch or lost race; nothing was written.
			return TokenPair{}, apperr.Unauthorized("invalid refresh token")
		}
		return TokenPair{}, apperr.StoreUnavailable(err)
	}
	return pair, nil
}

// Logout invalidates the stored refresh token. Safe to call repeatedly.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	if err := s.Repo.ClearRefreshToken(ctx, userID); err != nil {
		return apperr.StoreUnavailable(err)
	}
	return nil
}

// GetProfile returns the sanitized profile.
func (s *AuthService) GetProfile(ctx context.Context, userID string) (*entity.User, error) {
	u, err := s.Repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.StoreUnavailable(err)
	}
	return u, nil
}

// IssueResetToken creates a pending password reset for the user and returns
// the plaintext secret exactly once. A prior pending reset is overwritten.
func (s *AuthService) IssueResetToken(ctx context.Context, userID string) (string, error) {
	plain, digest, err := helpers.GenerateResetToken()
	if err != nil {
		return "", apperr.StoreUnavailable(err)
	}
	expires := time.Now().Add(s.Cfg.ResetTokenTTL)
	if err := s.Repo.SetPasswordReset(ctx, userID, digest, expires); err != nil {
		return "", apperr.StoreUnavailable(err)
	}
	return plain, nil
}

// ForgotPassword issues a reset secret and emails a reset link. The response
// is identical whether or not the email exists, to avoid enumeration. The
// plaintext secret leaves the process only inside the email job.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return apperr.InvalidInput("email is required")
	}

	u, err := s.Repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return apperr.StoreUnavailable(err)
	}

	plain, err := s.IssueResetToken(ctx, u.ID)
	if err != nil {
		return err
	}

	s.enqueueEmail(ctx, mailer.EmailJob{
		To:       u.Email,
		Template: mailer.TemplatePasswordReset,
		Data: map[string]any{
			"name":               u.Name,
			"email":              u.Email,
			"store_name":         s.Cfg.StoreName,
			"support_url":        s.Cfg.SupportURL,
			"reset_url":          s.Cfg.ResetPasswordURL + "?token=" + plain,
			"expires_in_minutes": int(s.Cfg.ResetTokenTTL.Minutes()),
		},
	})
	return nil
}

// ResetPassword consumes a presented reset secret and sets the new password.
// Consumption clears the reset fields and revokes the refresh token, so the
// same secret can never authorize a second change.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	token = strings.TrimSpace(token)
	newPassword = strings.TrimSpace(newPassword)
	if token == "" || newPassword == "" {
		return apperr.InvalidInput("token and new password are required")
	}

	u, err := s.Repo.GetByResetTokenHash(ctx, helpers.HashResetToken(token))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.Unauthorized("invalid or expired reset token")
		}
		return apperr.StoreUnavailable(err)
	}
	if !u.HasPendingReset(time.Now()) || !helpers.ResetTokenMatches(token, u.PasswordResetToken) {
		return apperr.Unauthorized("invalid or expired reset token")
	}

	hash, err := helpers.HashPassword(newPassword, s.Cfg.BcryptCost)
	if err != nil {
		return apperr.StoreUnavailable(err)
	}
	if err := s.Repo.UpdatePassword(ctx, u.ID, hash); err != nil {
		return apperr.StoreUnavailable(err)
	}
	return nil
}

// issuePair generates both tokens up front; callers persist the refresh token
// only after this succeeds, so a signing failure never leaves a half-updated
// session behind.
func (s *AuthService) issuePair(u *entity.User) (TokenPair, error) {
	access, aexp, err := s.JWT.GenerateAccessToken(u.ID, u.Email, string(u.Role))
	if err != nil {
		return TokenPair{}, err
	}
	refresh, rexp, err := s.JWT.GenerateRefreshToken(u.ID)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, AccessTokenExpiry: aexp, RefreshToken: refresh, RefreshTokenExpiry: rexp}, nil
}

func (s *AuthService) uploadAvatar(ctx context.Context, r io.Reader, filename, contentType string) (string, error) {
	if s.GCS == nil || s.GCSBucket == "" {
		return "", errors.New("storage not configured")
	}
	ext := strings.ToLower(filepath.Ext(filename))
	objectPath := filepath.ToSlash(filepath.Join("avatars", uuid.NewString()+ext))
	return helpers.UploadObject(ctx, s.GCS, s.GCSBucket, objectPath, contentType, r)
}

func (s *AuthService) enqueueEmail(ctx context.Context, job mailer.EmailJob) {
	if s.Pub == nil || !s.Cfg.MailEnabled {
		return
	}
	if err := s.Pub.PublishJSON(ctx, job); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("template", job.Template).Warn("failed to enqueue email job")
	}
}
