package user

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser    Role = "user"
	RoleCreator Role = "creator"
	RoleAdmin   Role = "admin"
	RoleGuide   Role = "guide"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleCreator, RoleAdmin, RoleGuide:
		return true
	}
	return false
}

type User struct {
	ID    string `json:"id" bson:"_id"`
	Name  string `json:"name" bson:"name"`
	Email string `json:"email" bson:"email"`
	Image string `json:"image,omitempty" bson:"image,omitempty"`
	Role  Role   `json:"role" bson:"role"`

	PasswordHash         string     `json:"-" bson:"password"` // never expose hash in JSON
	PasswordChangedAt    *time.Time `json:"-" bson:"passwordChangedAt,omitempty"`
	PasswordResetToken   string     `json:"-" bson:"passwordResetToken,omitempty"`
	PasswordResetExpires *time.Time `json:"-" bson:"passwordResetExpires,omitempty"`
	Active               bool       `json:"-" bson:"active"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
	Version   int       `json:"version" bson:"__v"`
}

var (
	ErrNotFound     = errors.New("user not found")
	ErrEmptyHash    = errors.New("password hash is empty")
	ErrInvalidRole  = errors.New("invalid role")
	ErrInvalidInput = errors.New("invalid user input")
)

// DuplicateError is returned by stores when a unique field is already taken.
type DuplicateError struct {
	Field string
}

func (e *DuplicateError) Error() string {
	return "duplicate value for " + e.Field
}

// PasswordHasher is the slice of the password hasher the constructors need.
type PasswordHasher interface {
	Hash(plain string) (string, error)
}

type NewUser struct {
	Name     string
	Email    string
	Image    string
	Role     Role
	Password string
}

// New builds an active user with its password already hashed, ready to be
// persisted.
func New(in NewUser, hasher PasswordHasher, now time.Time) (User, error) {
	role := in.Role
	if role == "" {
		role = RoleUser
	}
	if !role.Valid() {
		return User{}, ErrInvalidRole
	}

	name := NormalizeName(in.Name)
	email := NormalizeEmail(in.Email)
	if name == "" || email == "" || in.Password == "" {
		return User{}, ErrInvalidInput
	}

	hash, err := hasher.Hash(in.Password)
	if err != nil {
		return User{}, err
	}
	if hash == "" {
		return User{}, ErrEmptyHash
	}

	now = now.UTC()

	return User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		Image:        strings.TrimSpace(in.Image),
		Role:         role,
		PasswordHash: hash,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// TimestampPrecision is the resolution shared by token iat claims and the
// stored passwordChangedAt. Mongo keeps milliseconds, so nothing finer.
const TimestampPrecision = time.Millisecond

// PasswordChangedAtFor returns the timestamp recorded when the hash changes at
// now. A token issued at the same instant still verifies.
func PasswordChangedAtFor(now time.Time) time.Time {
	return now.UTC().Truncate(TimestampPrecision)
}

// ChangedPasswordAfter reports whether the password changed after a token
// issued at issuedAt.
func (u User) ChangedPasswordAfter(issuedAt time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return issuedAt.Truncate(TimestampPrecision).Before(u.PasswordChangedAt.Truncate(TimestampPrecision))
}

// HasLiveResetToken reports whether a reset token is stored and not expired.
func (u User) HasLiveResetToken(now time.Time) bool {
	return u.PasswordResetToken != "" && u.PasswordResetExpires != nil && now.Before(*u.PasswordResetExpires)
}

// ProfilePatch carries the fields a profile update may touch. Nil fields are
// left unchanged.
type ProfilePatch struct {
	Name  *string
	Email *string
	Image *string
	Role  *Role
}

func (p ProfilePatch) Empty() bool {
	return p.Name == nil && p.Email == nil && p.Image == nil && p.Role == nil
}

// Normalize lower-cases name and email and validates the role.
func (p ProfilePatch) Normalize() (ProfilePatch, error) {
	out := p
	if p.Name != nil {
		v := NormalizeName(*p.Name)
		out.Name = &v
	}
	if p.Email != nil {
		v := NormalizeEmail(*p.Email)
		out.Email = &v
	}
	if p.Image != nil {
		v := strings.TrimSpace(*p.Image)
		out.Image = &v
	}
	if p.Role != nil && !p.Role.Valid() {
		return ProfilePatch{}, ErrInvalidRole
	}
	return out, nil
}

// Apply returns a copy of u with the patch applied.
func (p ProfilePatch) Apply(u User, now time.Time) User {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Image != nil {
		u.Image = *p.Image
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	u.UpdatedAt = now.UTC()
	u.Version++
	return u
}

// SetPassword replaces the hash and stamps passwordChangedAt. Any reset
// token still on the record is dropped.
func (u *User) SetPassword(plain string, hasher PasswordHasher, now time.Time) error {
	hash, err := hasher.Hash(plain)
	if err != nil {
		return err
	}
	if hash == "" {
		return ErrEmptyHash
	}

	changed := PasswordChangedAtFor(now)
	u.PasswordHash = hash
	u.PasswordChangedAt = &changed
	u.PasswordResetToken = ""
	u.PasswordResetExpires = nil
	u.UpdatedAt = now.UTC()
	return nil
}
