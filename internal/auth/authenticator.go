package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

var ErrInvalidCredentials = errors.New("invalid username or password")

type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (user string, err error)
}

// StaticAuthenticator accepts a single user whose bcrypt hash comes from
// configuration. Without a hash, sign-in only works in dev mode, where any
// password is accepted.
type StaticAuthenticator struct {
	username string
	hash     []byte
	devMode  bool
}

func NewStaticAuthenticator(username, passwordHash string, devMode bool) *StaticAuthenticator {
	return &StaticAuthenticator{
		username: username,
		hash:     []byte(passwordHash),
		devMode:  devMode,
	}
}

func (a *StaticAuthenticator) Authenticate(_ context.Context, username, password string) (string, error) {
	if subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) != 1 {
		return "", ErrInvalidCredentials
	}
	if len(a.hash) == 0 {
		if a.devMode {
			return a.username, nil
		}
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(a.hash, []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return a.username, nil
}

func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password is empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
