// Package auth authenticates browser requests with identity-provider bearer tokens.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/readmaster/read-master/internal/identity"
)

// ErrNotConfigured is returned by verifiers that have no secret key.
var ErrNotConfigured = errors.New("CLERK_SECRET_KEY is not configured")

// Failure messages returned to clients.
const (
	MsgMissingHeader = "Missing or invalid authorization header"
	MsgNotConfigured = "Authentication not configured"
	MsgTokenExpired  = "Token expired"
	MsgInvalidToken  = "Invalid token"
	MsgAuthFailed    = "Authentication failed"
)

// TokenVerifier validates a bearer token with the identity provider.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*identity.User, error)
}

// Result is the outcome of authenticating one request.
type Result struct {
	Success    bool           `json:"success"`
	User       *identity.User `json:"user,omitempty"`
	Error      string         `json:"error,omitempty"`
	StatusCode int            `json:"statusCode,omitempty"`
}

// ExtractBearerToken returns the token from an Authorization header value.
// The header must have exactly two space-separated parts and a case-insensitive
// "Bearer" scheme.
func ExtractBearerToken(header string) (string, bool) {
	if header == "" {
		return "", false
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 {
		return "", false
	}
	if !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// Authenticate verifies the bearer token in header and maps provider failures
// to a fixed set of outcomes.
func Authenticate(ctx context.Context, verifier TokenVerifier, header string) Result {
	token, ok := ExtractBearerToken(header)
	if !ok {
		return failure(MsgMissingHeader, http.StatusUnauthorized)
	}

	user, err := verifier.VerifyToken(ctx, token)
	if err != nil {
		return classifyVerifyError(err)
	}
	if user == nil || user.UserID == "" {
		return failure(MsgInvalidToken, http.StatusUnauthorized)
	}
	return Result{Success: true, User: user}
}

func classifyVerifyError(err error) Result {
	if errors.Is(err, ErrNotConfigured) {
		slog.Error("Token verification attempted without a secret key")
		return failure(MsgNotConfigured, http.StatusInternalServerError)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "expired"):
		return failure(MsgTokenExpired, http.StatusUnauthorized)
	case strings.Contains(msg, "invalid"), strings.Contains(msg, "malformed"), strings.Contains(msg, "signature"):
		slog.Warn("Token rejected", "error", err)
		return failure(MsgInvalidToken, http.StatusUnauthorized)
	default:
		slog.Warn("Token verification failed", "error", err)
		return failure(MsgAuthFailed, http.StatusUnauthorized)
	}
}

func failure(msg string, status int) Result {
	return Result{Success: false, Error: msg, StatusCode: status}
}

// Middleware attaches the authenticated identity to the request context. On
// failure it answers with a JSON error and does not invoke next.
func Middleware(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res := Authenticate(r.Context(), verifier, r.Header.Get("Authorization"))
			if !res.Success {
				writeFailure(w, res)
				return
			}
			next.ServeHTTP(w, r.WithContext(identity.WithUser(r.Context(), res.User)))
		})
	}
}

func writeFailure(w http.ResponseWriter, res Result) {
	w.Header().Set("Content-Type", "application/json")
	if res.StatusCode == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="read-master"`)
	}
	w.WriteHeader(res.StatusCode)
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   res.Error,
	}); err != nil {
		slog.Debug("failed to write auth failure", "error", err)
	}
}

// TokenFromQuery copies a token passed as query parameter param into the
// Authorization header when the header is absent. Browsers cannot set headers
// on WebSocket upgrades.
func TokenFromQuery(param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				if token := r.URL.Query().Get(param); token != "" {
					r = r.Clone(r.Context())
					r.Header.Set("Authorization", "Bearer "+token)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
