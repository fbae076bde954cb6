package identity

import (
	"context"

	"github.com/unit-mercury/mercury-api/models"
)

// Identity describes the authenticated caller attached to each request.
type Identity struct {
	UID    string
	Email  string
	Claims models.Claims
}

// Verifier checks bearer tokens and resolves them to an Identity.
type Verifier interface {
	VerifyToken(ctx context.Context, token string) (*Identity, error)
}

// Provider manages accounts at the identity provider: claims lookup and
// mutation plus account deletion. Claims set here are what VerifyToken
// returns on the user's next token refresh.
type Provider interface {
	GetClaimsByEmail(ctx context.Context, email string) (string, models.Claims, error)
	SetClaims(ctx context.Context, uid string, claims models.Claims) error
	DeleteUser(ctx context.Context, uid string) error
}
