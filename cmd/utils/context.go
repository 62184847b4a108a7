package utils

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"
)

type contextKey string

const externalIDKey contextKey = "externalUserID"

// SessionCookie is the cookie the identity provider stores the session JWT in.
const SessionCookie = "__session"

// WithExternalID returns ctx carrying the identity-provider user id.
func WithExternalID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, externalIDKey, id)
}

// ExternalIDFromContext returns the identity-provider user id resolved for
// this request, if any.
func ExternalIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(externalIDKey).(string)
	return id, ok && id != ""
}

// SessionVerifier validates session JWTs issued by the identity provider.
type SessionVerifier struct {
	methods []string
	key     any
}

// NewSessionVerifier prefers an RS256 PEM public key and falls back to an
// HS256 shared secret.
func NewSessionVerifier(publicKeyPEM, secret string) (*SessionVerifier, error) {
	if strings.TrimSpace(publicKeyPEM) != "" {
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(publicKeyPEM))
		if err != nil {
			return nil, fmt.Errorf("parse session public key: %w", err)
		}
		return &SessionVerifier{methods: []string{"RS256"}, key: key}, nil
	}
	if secret == "" {
		return nil, errors.New("session verifier needs a public key or a secret")
	}
	return &SessionVerifier{methods: []string{"HS256"}, key: []byte(secret)}, nil
}

// Verify returns the token subject, which is the external user id.
func (v *SessionVerifier) Verify(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return v.key, nil
	}, jwt.WithValidMethods(v.methods))
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.Subject == "" {
		return "", errors.New("invalid session token")
	}
	return claims.Subject, nil
}

func sessionToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// SessionMiddleware attaches the external user id of a valid session to the
// request context. It never rejects; gating is AccessGate's job.
func SessionMiddleware(v *SessionVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if IsStaticAsset(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			if raw := sessionToken(r); raw != "" {
				if sub, err := v.Verify(raw); err == nil {
					r = r.WithContext(WithExternalID(r.Context(), sub))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
