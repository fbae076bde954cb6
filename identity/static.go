package identity

import (
	"context"
	"errors"
	"sync"

	"github.com/golang-jwt/jwt/v5"

	"github.com/unit-mercury/mercury-api/models"
)

// ErrUserNotFound is returned by the static provider when no account matches.
var ErrUserNotFound = errors.New("user not found")

// staticIdentity verifies locally signed HS256 tokens and keeps claims in
// memory. It stands in for the hosted identity provider in development and in
// tests, where no service-account credentials are available.
type staticIdentity struct {
	secret []byte

	mu     sync.RWMutex
	claims map[string]models.Claims
	emails map[string]string
}

// NewStatic returns a Verifier/Provider pair backed by the shared token
// secret instead of an external identity provider.
func NewStatic(secret string) (Verifier, Provider) {
	s := &staticIdentity{
		secret: []byte(secret),
		claims: make(map[string]models.Claims),
		emails: make(map[string]string),
	}
	return s, s
}

func (s *staticIdentity) VerifyToken(_ context.Context, token string) (*Identity, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("malformed token claims")
	}
	uid, _ := mapClaims["sub"].(string)
	if uid == "" {
		return nil, errors.New("token missing subject")
	}
	email, _ := mapClaims["email"].(string)

	ident := &Identity{
		UID:    uid,
		Email:  email,
		Claims: models.ClaimsFromMap(mapClaims),
	}

	s.mu.RLock()
	if stored, ok := s.claims[uid]; ok {
		ident.Claims = stored
	}
	s.mu.RUnlock()

	if email != "" {
		s.mu.Lock()
		s.emails[email] = uid
		s.mu.Unlock()
	}
	return ident, nil
}

func (s *staticIdentity) GetClaimsByEmail(_ context.Context, email string) (string, models.Claims, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	uid, ok := s.emails[email]
	if !ok {
		return "", models.Claims{}, ErrUserNotFound
	}
	return uid, s.claims[uid], nil
}

func (s *staticIdentity) SetClaims(_ context.Context, uid string, claims models.Claims) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.claims[uid] = claims
	return nil
}

func (s *staticIdentity) DeleteUser(_ context.Context, uid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.claims, uid)
	for email, u := range s.emails {
		if u == uid {
			delete(s.emails, email)
		}
	}
	return nil
}
