package httpx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/clearcomply/membership/pkg/slogx"
)

// Identity is the verified caller identity extracted from a bearer token.
// Authentication itself (login, token issuance) happens elsewhere; this
// service only needs the subject and email claims.
type Identity struct {
	UserID string
	Email  string
}

// TokenVerifier validates a raw bearer token and returns the caller identity.
type TokenVerifier interface {
	Verify(raw string) (Identity, error)
}

// JWTVerifier verifies HS256-signed tokens with a shared secret.
type JWTVerifier struct {
	Secret []byte
	Issuer string // optional; enforced when non-empty
}

var ErrInvalidToken = errors.New("httpx: invalid token")

func (v *JWTVerifier) Verify(raw string) (Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.Issuer))
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return v.Secret, nil
	}, opts...)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return Identity{}, fmt.Errorf("%w: missing sub claim", ErrInvalidToken)
	}
	email, _ := claims["email"].(string)

	return Identity{UserID: sub, Email: email}, nil
}

// AuthnMiddleware verifies the Authorization bearer token and injects the
// caller identity into the request context.
func AuthnMiddleware(v TokenVerifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			authz := r.Header.Get("Authorization")
			if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
				writeBearerError(w, "missing bearer token")
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))

			ident, err := v.Verify(raw)
			if err != nil {
				writeBearerError(w, "token verification failed")
				log.Warn("jwt verify failed", "err", err)
				return
			}

			// Inject into context for downstream handlers.
			ctx = contextWithIdentity(ctx, ident)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func contextWithIdentity(ctx context.Context, ident Identity) context.Context {
	ctx = context.WithValue(ctx, CtxKeyUserID, ident.UserID)
	ctx = context.WithValue(ctx, CtxKeyUserEmail, ident.Email)
	return ctx
}

// RFC 6750-compliant error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	w.WriteHeader(http.StatusUnauthorized)
}
