package identity

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go"
	"firebase.google.com/go/auth"
	"google.golang.org/api/option"

	"github.com/unit-mercury/mercury-api/config"
	"github.com/unit-mercury/mercury-api/models"
)

type firebaseIdentity struct {
	auth *auth.Client
}

// NewFirebase initializes the firebase admin SDK from the configured
// service-account credentials file and returns it as both Verifier and
// Provider.
func NewFirebase(ctx context.Context, conf *config.Config) (Verifier, Provider, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(conf.CredentialsFile))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize firebase auth client: %w", err)
	}
	f := &firebaseIdentity{auth: client}
	return f, f, nil
}

func (f *firebaseIdentity) VerifyToken(ctx context.Context, token string) (*Identity, error) {
	tok, err := f.auth.VerifyIDTokenAndCheckRevoked(ctx, token)
	if err != nil {
		return nil, err
	}
	email, _ := tok.Claims["email"].(string)
	return &Identity{
		UID:    tok.UID,
		Email:  email,
		Claims: models.ClaimsFromMap(tok.Claims),
	}, nil
}

func (f *firebaseIdentity) GetClaimsByEmail(ctx context.Context, email string) (string, models.Claims, error) {
	user, err := f.auth.GetUserByEmail(ctx, email)
	if err != nil {
		return "", models.Claims{}, err
	}
	return user.UID, models.ClaimsFromMap(user.CustomClaims), nil
}

func (f *firebaseIdentity) SetClaims(ctx context.Context, uid string, claims models.Claims) error {
	return f.auth.SetCustomUserClaims(ctx, uid, claims.ToMap())
}

func (f *firebaseIdentity) DeleteUser(ctx context.Context, uid string) error {
	return f.auth.DeleteUser(ctx, uid)
}
