package auth

import (
	"context"
	"fmt"
	"sync"

	"github.com/clerk/clerk-sdk-go/v2"
	"github.com/clerk/clerk-sdk-go/v2/jwks"
	"github.com/clerk/clerk-sdk-go/v2/jwt"
	"github.com/readmaster/read-master/internal/identity"
)

// ClerkVerifier verifies Clerk session tokens. Signing keys are fetched from
// the Clerk JWKS endpoint and cached by key id.
type ClerkVerifier struct {
	secretKey  string
	jwksClient *jwks.Client
	keys       sync.Map // key id -> *clerk.JSONWebKey
}

// NewClerkVerifier creates a verifier. An empty secretKey yields a verifier
// that fails every call with ErrNotConfigured.
func NewClerkVerifier(secretKey string) *ClerkVerifier {
	v := &ClerkVerifier{secretKey: secretKey}
	if secretKey != "" {
		cfg := &clerk.ClientConfig{}
		cfg.Key = clerk.String(secretKey)
		v.jwksClient = jwks.NewClient(cfg)
	}
	return v
}

// VerifyToken validates token and returns the session identity.
func (v *ClerkVerifier) VerifyToken(ctx context.Context, token string) (*identity.User, error) {
	if v.secretKey == "" {
		return nil, ErrNotConfigured
	}

	unverified, err := jwt.Decode(ctx, &jwt.DecodeParams{Token: token})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	jwk, err := v.signingKey(ctx, unverified.KeyID)
	if err != nil {
		return nil, err
	}

	claims, err := jwt.Verify(ctx, &jwt.VerifyParams{Token: token, JWK: jwk})
	if err != nil {
		return nil, err
	}

	return &identity.User{
		UserID:    claims.Subject,
		SessionID: claims.SessionID,
		OrgID:     claims.ActiveOrganizationID,
		OrgRole:   claims.ActiveOrganizationRole,
	}, nil
}

func (v *ClerkVerifier) signingKey(ctx context.Context, keyID string) (*clerk.JSONWebKey, error) {
	if cached, ok := v.keys.Load(keyID); ok {
		return cached.(*clerk.JSONWebKey), nil
	}

	jwk, err := jwt.GetJSONWebKey(ctx, &jwt.GetJSONWebKeyParams{
		KeyID:      keyID,
		JWKSClient: v.jwksClient,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch signing key: %w", err)
	}
	v.keys.Store(keyID, jwk)
	return jwk, nil
}

var _ TokenVerifier = (*ClerkVerifier)(nil)
