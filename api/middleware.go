package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shaj13/go-guardian/auth"
	"github.com/shaj13/go-guardian/auth/strategies/bearer"
	"github.com/shaj13/go-guardian/store"
	"go.uber.org/zap"

	"github.com/unit-mercury/mercury-api/identity"
	"github.com/unit-mercury/mercury-api/models"
)

// MiddlewareAuth verifies bearer tokens against the identity provider and
// attaches the resolved caller to the request context.
type MiddlewareAuth struct {
	Verifier identity.Verifier
}

var authenticator auth.Authenticator
var cache store.Cache

// Middleware adds bearer token authentication around accessing the routes
func (m MiddlewareAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		user, err := authenticator.Authenticate(r)
		if err != nil {
			zap.S().Errorw("unauthorized",
				"url", r.URL)
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error": "unauthorized"}`))
			return
		}
		ident := identityFromInfo(user)
		zap.S().Debugf("User %s Authenticated\n", ident.UID)
		next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), ident)))
	})
}

// AdminOnly rejects callers whose claims do not carry the admin flag. It must
// wrap handlers already behind Middleware.
func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ident, ok := IdentityFromRequest(r)
		if !ok || !ident.Claims.Admin {
			zap.S().Errorw("forbidden, admin claim required",
				"url", r.URL)
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error": "unauthorized"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SetupGoGuardian sets up the go-guardian middleware. Verified tokens are
// cached for an hour so the identity provider is not hit on every request.
func (m MiddlewareAuth) SetupGoGuardian() {
	authenticator = auth.New()
	cache = store.NewFIFO(context.Background(), time.Hour)
	tokenStrategy := bearer.New(m.verifyBearer, cache)

	authenticator.EnableStrategy(bearer.CachedStrategyKey, tokenStrategy)
}

func (m MiddlewareAuth) verifyBearer(ctx context.Context, _ *http.Request, token string) (auth.Info, error) {
	ident, err := m.Verifier.VerifyToken(ctx, token)
	if err != nil {
		return nil, err
	}
	ext := map[string][]string{
		"accessLevel": []string{strconv.Itoa(ident.Claims.AccessLevel)},
		"admin":       []string{strconv.FormatBool(ident.Claims.Admin)},
	}
	return auth.NewDefaultUser(ident.Email, ident.UID, ident.Claims.Roles, ext), nil
}

func identityFromInfo(info auth.Info) *identity.Identity {
	claims := models.Claims{Roles: info.Groups()}
	if ext := info.Extensions(); ext != nil {
		if v, ok := ext["accessLevel"]; ok && len(v) > 0 {
			claims.AccessLevel, _ = strconv.Atoi(v[0])
		}
		if v, ok := ext["admin"]; ok && len(v) > 0 {
			claims.Admin = v[0] == "true"
		}
	}
	return &identity.Identity{
		UID:    info.ID(),
		Email:  info.UserName(),
		Claims: claims,
	}
}

// RevokeToken drops a previously verified token from the cache
func RevokeToken(w http.ResponseWriter, r *http.Request) {
	reqToken := r.Header.Get("Authorization")
	splitToken := strings.Split(reqToken, "Bearer ")
	if len(splitToken) < 2 {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": "missing bearer token"}`))
		return
	}
	reqToken = splitToken[1]

	tokenStrategy := authenticator.Strategy(bearer.CachedStrategyKey)
	auth.Revoke(tokenStrategy, reqToken, r)
	w.Write([]byte(`{"revoked": true}`))
}
