package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/geocoder89/mediahub/internal/apperr"
	"github.com/geocoder89/mediahub/internal/domain/user"
	"github.com/geocoder89/mediahub/internal/notifications"
	"github.com/geocoder89/mediahub/internal/security"
)

const MinPasswordLength = 8

// UserStore is the slice of user persistence the auth flows need. Lookups
// only ever return active users.
type UserStore interface {
	Create(ctx context.Context, u user.User) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	UpdatePassword(ctx context.Context, id, hash string, changedAt time.Time) (user.User, error)
	SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error
	ClearResetToken(ctx context.Context, id string) error
	// ConsumeResetToken atomically swaps in newHash for the active user whose
	// reset hash matches and has not expired at now, clearing the reset
	// fields. user.ErrNotFound when nothing matched.
	ConsumeResetToken(ctx context.Context, tokenHash string, now time.Time, newHash string, changedAt time.Time) (user.User, error)
}

type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, digest string) bool
}

type TokenSigner interface {
	Issue(subjectID string, issuedAt time.Time) (string, error)
	Verify(token string) (TokenClaims, error)
}

type Service struct {
	users    UserStore
	hasher   PasswordHasher
	tokens   TokenSigner
	notifier notifications.Notifier
	log      *slog.Logger
	now      func() time.Time
}

func NewService(users UserStore, hasher PasswordHasher, tokens TokenSigner, notifier notifications.Notifier, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		users:    users,
		hasher:   hasher,
		tokens:   tokens,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

// WithClock replaces the service clock. Tests only.
func (s *Service) WithClock(now func() time.Time) *Service {
	cp := *s
	cp.now = now
	return &cp
}

// Session is the result of every flow that logs a user in.
type Session struct {
	Token    string
	IssuedAt time.Time
	User     user.User
}

type SignupInput struct {
	Name            string
	Email           string
	Image           string
	Password        string
	ConfirmPassword string
}

func (s *Service) Signup(ctx context.Context, in SignupInput) (Session, error) {
	if err := validateNewPassword(in.Password, in.ConfirmPassword); err != nil {
		return Session{}, err
	}

	u, err := user.New(user.NewUser{
		Name:     in.Name,
		Email:    in.Email,
		Image:    in.Image,
		Role:     user.RoleUser,
		Password: in.Password,
	}, s.hasher, s.now())
	if err != nil {
		if errors.Is(err, user.ErrInvalidInput) {
			return Session{}, apperr.Validation("invalid_user", "Please provide name, email and password")
		}
		return Session{}, fmt.Errorf("signup: build user: %w", err)
	}

	created, err := s.users.Create(ctx, u)
	if err != nil {
		return Session{}, UserStoreError("signup", err)
	}

	return s.issue(created)
}

func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	email = user.NormalizeEmail(email)
	if email == "" || password == "" {
		return Session{}, apperr.Validation("missing_credentials", "Please provide your email & password")
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return Session{}, invalidCredentials()
		}
		return Session{}, fmt.Errorf("login: lookup: %w", err)
	}

	if !s.hasher.Verify(password, u.PasswordHash) {
		return Session{}, invalidCredentials()
	}

	return s.issue(u)
}

// Authenticate resolves a bearer token to its active user.
func (s *Service) Authenticate(ctx context.Context, token string) (user.User, error) {
	if strings.TrimSpace(token) == "" {
		return user.User{}, apperr.Authentication("unauthorized", "Login to gain access")
	}

	claims, err := s.tokens.Verify(token)
	if err != nil {
		if errors.Is(err, ErrExpiredToken) {
			return user.User{}, apperr.Authentication("token_expired", "Your token has expired, please log in again")
		}
		return user.User{}, apperr.Authentication("invalid_token", "Invalid token, please log in again")
	}

	u, err := s.users.GetByID(ctx, claims.SubjectID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.User{}, apperr.Authentication("user_gone", "User no longer exists")
		}
		return user.User{}, fmt.Errorf("authenticate: lookup: %w", err)
	}

	if u.ChangedPasswordAfter(claims.IssuedAt) {
		return user.User{}, apperr.Authentication("password_changed", "User recently changed password, please log in again")
	}

	return u, nil
}

// Authorize fails unless u holds one of roles.
func (s *Service) Authorize(u user.User, roles ...user.Role) error {
	for _, r := range roles {
		if u.Role == r {
			return nil
		}
	}
	return apperr.Authorization("forbidden", "You do not have permission")
}

// ForgotPassword stores a fresh reset token for email and mails the link
// resetBaseURL/<token>. If delivery fails the stored token is cleared again.
func (s *Service) ForgotPassword(ctx context.Context, email, resetBaseURL string) error {
	email = user.NormalizeEmail(email)
	if email == "" {
		return apperr.Validation("missing_email", "Please provide your email")
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return apperr.NotFound("user_not_found", "No user with that email")
		}
		return fmt.Errorf("forgot password: lookup: %w", err)
	}

	tok, err := security.NewResetToken(s.now())
	if err != nil {
		return fmt.Errorf("forgot password: generate token: %w", err)
	}

	if err := s.users.SetResetToken(ctx, u.ID, tok.Hash, tok.ExpiresAt); err != nil {
		return fmt.Errorf("forgot password: store token: %w", err)
	}

	resetURL := strings.TrimRight(resetBaseURL, "/") + "/" + tok.Plain
	msg := notifications.Message{
		To:      u.Email,
		Subject: "Your password reset token (valid for 10 minutes)",
		Body: "Forgot your password? Submit a PATCH request with your new password and confirmpassword to: " +
			resetURL + "\nIf you did not request this, please ignore this email.",
	}

	if err := s.notifier.Send(ctx, msg); err != nil {
		if clearErr := s.users.ClearResetToken(context.WithoutCancel(ctx), u.ID); clearErr != nil {
			s.log.ErrorContext(ctx, "reset token rollback failed", "user_id", u.ID, "err", clearErr)
		}
		s.log.WarnContext(ctx, "reset email failed", "user_id", u.ID, "err", err)
		return apperr.Dependency("email_failed", "Error sending email, try again later", err)
	}

	return nil
}

// ResetPassword consumes a reset token. The new password is checked before
// the token is touched so a weak password never burns it.
func (s *Service) ResetPassword(ctx context.Context, token, password, confirm string) (Session, error) {
	if err := validateNewPassword(password, confirm); err != nil {
		return Session{}, err
	}
	if strings.TrimSpace(token) == "" {
		return Session{}, apperr.InvalidOrExpiredToken("Token invalid or expired")
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return Session{}, fmt.Errorf("reset password: hash: %w", err)
	}

	now := s.now()
	u, err := s.users.ConsumeResetToken(ctx, security.HashResetToken(token), now, hash, user.PasswordChangedAtFor(now))
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return Session{}, apperr.InvalidOrExpiredToken("Token invalid or expired")
		}
		return Session{}, fmt.Errorf("reset password: consume: %w", err)
	}

	return s.issue(u)
}

func (s *Service) UpdatePassword(ctx context.Context, userID, current, password, confirm string) (Session, error) {
	if current == "" {
		return Session{}, apperr.Validation("missing_current_password", "Please provide your current password")
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return Session{}, apperr.NotFound("user_not_found", "User not found")
		}
		return Session{}, fmt.Errorf("update password: lookup: %w", err)
	}

	if !s.hasher.Verify(current, u.PasswordHash) {
		return Session{}, apperr.Authentication("wrong_password", "Your current password is wrong")
	}

	if err := validateNewPassword(password, confirm); err != nil {
		return Session{}, err
	}

	if err := u.SetPassword(password, s.hasher, s.now()); err != nil {
		return Session{}, fmt.Errorf("update password: hash: %w", err)
	}

	updated, err := s.users.UpdatePassword(ctx, u.ID, u.PasswordHash, *u.PasswordChangedAt)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return Session{}, apperr.NotFound("user_not_found", "User not found")
		}
		return Session{}, fmt.Errorf("update password: store: %w", err)
	}

	return s.issue(updated)
}

// IssueFor signs a token for u at the current time.
func (s *Service) IssueFor(u user.User) (Session, error) {
	return s.issue(u)
}

func (s *Service) issue(u user.User) (Session, error) {
	now := s.now().UTC()

	token, err := s.tokens.Issue(u.ID, now)
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}

	return Session{Token: token, IssuedAt: now, User: u}, nil
}

func validateNewPassword(password, confirm string) error {
	if len([]rune(password)) < MinPasswordLength {
		return apperr.ValidationDetails("weak_password", "Password must be at least 8 characters", map[string]string{"field": "password"})
	}
	if password != confirm {
		return apperr.ValidationDetails("password_mismatch", "Passwords are not the same", map[string]string{"field": "confirmpassword"})
	}
	return nil
}

func invalidCredentials() error {
	return apperr.Authentication("invalid_credentials", "Incorrect email or password")
}

// UserStoreError maps store sentinels onto operational errors.
func UserStoreError(op string, err error) error {
	var dup *user.DuplicateError
	switch {
	case errors.As(err, &dup):
		return apperr.Conflict("duplicate_field", fmt.Sprintf("Duplicate field value for %s, please use another value", dup.Field))
	case errors.Is(err, user.ErrNotFound):
		return apperr.NotFound("user_not_found", "No user found with that ID")
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
