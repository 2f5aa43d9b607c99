// Package auth implements the session contract of the web shell: a signed
// session cookie, a revocation list for sign-out, and a single configured
// user.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

var (
	ErrInvalidSession = errors.New("invalid session")
	ErrSessionRevoked = errors.New("session revoked")
)

// Session is the authenticated identity passed to pages as render input.
type Session struct {
	ID        string
	User      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Manager issues and verifies HS256 session tokens.
type Manager struct {
	secret  []byte
	ttl     time.Duration
	revoked *cache.Cache
	now     func() time.Time
}

func NewManager(secret string, ttl time.Duration) (*Manager, error) {
	if secret == "" {
		return nil, errors.New("session secret is empty")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("invalid session ttl %v", ttl)
	}
	return &Manager{
		secret:  []byte(secret),
		ttl:     ttl,
		revoked: cache.New(ttl, 10*time.Minute),
		now:     time.Now,
	}, nil
}

func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue signs a new session for user.
func (m *Manager) Issue(user string) (string, Session, error) {
	now := m.now()
	s := Session{
		ID:        uuid.NewString(),
		User:      user,
		IssuedAt:  now,
		ExpiresAt: now.Add(m.ttl),
	}
	claims := jwt.MapClaims{
		"sub": s.User,
		"jti": s.ID,
		"iat": s.IssuedAt.Unix(),
		"exp": s.ExpiresAt.Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", Session{}, fmt.Errorf("sign session: %w", err)
	}
	return token, s, nil
}

// Parse verifies signature, expiry and revocation.
func (m *Manager) Parse(tokenString string) (Session, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Session{}, ErrInvalidSession
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return Session{}, fmt.Errorf("%w: 'sub' claim missing", ErrInvalidSession)
	}
	jti, ok := claims["jti"].(string)
	if !ok || jti == "" {
		return Session{}, fmt.Errorf("%w: 'jti' claim missing", ErrInvalidSession)
	}
	if _, found := m.revoked.Get(jti); found {
		return Session{}, ErrSessionRevoked
	}

	s := Session{ID: jti, User: sub}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		s.ExpiresAt = exp.Time
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		s.IssuedAt = iat.Time
	}
	return s, nil
}

// Revoke rejects the session until it would have expired anyway.
func (m *Manager) Revoke(s Session) {
	remaining := s.ExpiresAt.Sub(m.now())
	if remaining <= 0 {
		return
	}
	m.revoked.Set(s.ID, struct{}{}, remaining)
}

// RevokedCount is the number of sessions currently on the deny list.
func (m *Manager) RevokedCount() int {
	return m.revoked.ItemCount()
}
