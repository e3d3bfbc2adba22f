package domain

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/lorrc/avisos-backend/internal/core/errors"
)

const (
	MinPasswordLength = 8
	MaxPasswordLength = 128
	MaxNameLength     = 100
	MaxEmailLength    = 150
)

// passwordRules are the character classes a password must contain.
var passwordRules = []struct {
	match   func(rune) bool
	message string
}{
	{unicode.IsUpper, "Password must contain at least one uppercase letter"},
	{unicode.IsLower, "Password must contain at least one lowercase letter"},
	{unicode.IsNumber, "Password must contain at least one number"},
}

// User is a registered account of the announcements board.
type User struct {
	ID             int64
	Name           string
	Email          string
	HashedPassword string
	Role           Role
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (u *User) Info() UserInfo {
	return UserInfo{ID: u.ID, Name: u.Name, Email: u.Email}
}

// CheckPassword reports whether password matches the stored bcrypt hash.
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.HashedPassword), []byte(password)) == nil
}

type UserRegistrationParams struct {
	Name     string
	Email    string
	Password string
	Role     string // empty means viewer
}

// Validate collects every field problem into a ValidationErrors.
func (p *UserRegistrationParams) Validate() error {
	errs := apperrors.NewValidationErrors()

	checkName(errs, p.Name)
	checkEmail(errs, p.Email)
	if p.Role != "" {
		checkRole(errs, p.Role)
	}
	for _, msg := range ValidatePassword(p.Password) {
		errs.Add("password", msg)
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

func checkName(errs *apperrors.ValidationErrors, name string) {
	switch name = strings.TrimSpace(name); {
	case name == "":
		errs.Add("name", "Name is required")
	case utf8.RuneCountInString(name) > MaxNameLength:
		errs.Add("name", fmt.Sprintf("Name must be %d characters or less", MaxNameLength))
	}
}

func checkEmail(errs *apperrors.ValidationErrors, email string) {
	switch email = strings.TrimSpace(email); {
	case email == "":
		errs.Add("email", "Email is required")
	case len(email) > MaxEmailLength:
		errs.Add("email", fmt.Sprintf("Email must be %d characters or less", MaxEmailLength))
	default:
		if _, err := mail.ParseAddress(email); err != nil {
			errs.Add("email", "Invalid email format")
		}
	}
}

func checkRole(errs *apperrors.ValidationErrors, role string) {
	if _, err := ParseRole(role); err != nil {
		errs.Add("role", "Role must be one of admin, editor, viewer")
	}
}

// ValidatePassword lists the unmet password requirements. A nil result
// means the password is acceptable.
func ValidatePassword(password string) []string {
	var problems []string

	switch n := len(password); {
	case n < MinPasswordLength:
		problems = append(problems, fmt.Sprintf("Password must be at least %d characters long", MinPasswordLength))
	case n > MaxPasswordLength:
		problems = append(problems, fmt.Sprintf("Password must be %d characters or less", MaxPasswordLength))
	}

	for _, rule := range passwordRules {
		if !strings.ContainsFunc(password, rule.match) {
			problems = append(problems, rule.message)
		}
	}
	return problems
}

// HashPassword bcrypt-hashes an acceptable password.
func HashPassword(password string) (string, error) {
	if len(ValidatePassword(password)) > 0 {
		return "", apperrors.ErrPasswordTooWeak
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// NewUser validates params and returns an unsaved user with a normalized
// email and a hashed password.
func NewUser(params UserRegistrationParams) (*User, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	role := RoleViewer
	if params.Role != "" {
		role, _ = ParseRole(params.Role)
	}

	hash, err := HashPassword(params.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &User{
		Name:           strings.TrimSpace(params.Name),
		Email:          strings.ToLower(strings.TrimSpace(params.Email)),
		HashedPassword: hash,
		Role:           role,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// UserUpdate is a partial update of an account; nil fields are kept.
type UserUpdate struct {
	Name     *string
	Email    *string
	Password *string
	Role     *string
}

// ChangesRole reports whether the update assigns a role other than current.
func (u UserUpdate) ChangesRole(current Role) bool {
	return u.Role != nil && Role(*u.Role) != current
}

// Apply validates the update as a whole and then merges it, hashing a new
// password. On error the user is left untouched.
func (u *User) Apply(upd UserUpdate) error {
	errs := apperrors.NewValidationErrors()
	if upd.Name != nil {
		checkName(errs, *upd.Name)
	}
	if upd.Email != nil {
		checkEmail(errs, *upd.Email)
	}
	if upd.Role != nil {
		checkRole(errs, *upd.Role)
	}
	if upd.Password != nil {
		for _, msg := range ValidatePassword(*upd.Password) {
			errs.Add("password", msg)
		}
	}
	if errs.HasErrors() {
		return errs
	}

	if upd.Password != nil {
		hash, err := HashPassword(*upd.Password)
		if err != nil {
			return err
		}
		u.HashedPassword = hash
	}
	if upd.Name != nil {
		u.Name = strings.TrimSpace(*upd.Name)
	}
	if upd.Email != nil {
		u.Email = strings.ToLower(strings.TrimSpace(*upd.Email))
	}
	if upd.Role != nil {
		u.Role = Role(*upd.Role)
	}
	u.UpdatedAt = time.Now().UTC()
	return nil
}
