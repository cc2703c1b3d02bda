// Package authpw verifies the single admin credential pair.
package authpw

import (
	"crypto/subtle"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

// Admin is the one configured identity. The password is stored only as
// a bcrypt hash; there is no user table and no sign-up path.
type Admin struct {
	Email        string
	Name         string
	PasswordHash string
}

type Service struct {
	admin Admin
}

func NewService(admin Admin) *Service {
	return &Service{admin: admin}
}

// Configured reports whether an admin identity has been set up at all.
// With no email or hash configured every login fails.
func (s *Service) Configured() bool {
	return s.admin.Email != "" && s.admin.PasswordHash != ""
}

// Verify checks the credential pair and returns the admin identity on
// success. Both the email comparison and the bcrypt check run on every
// call so failures take the same time regardless of which field was
// wrong.
func (s *Service) Verify(email, password string) (Admin, error) {
	if !s.Configured() {
		return Admin{}, ErrInvalidCredentials
	}

	emailOK := subtle.ConstantTimeCompare([]byte(email), []byte(s.admin.Email)) == 1
	passwordErr := bcrypt.CompareHashAndPassword([]byte(s.admin.PasswordHash), []byte(password))

	if !emailOK || passwordErr != nil {
		return Admin{}, ErrInvalidCredentials
	}
	return s.admin, nil
}

// HashPassword produces the bcrypt hash expected in configuration.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
