package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// Identity is what the client needs to know about the signed-in member:
// enough to decide isAuthor rendering and to guard self-follow. Token
// acquisition and refresh happen elsewhere.
type Identity struct {
	MemberID int64
	Nickname string
}

// TokenSource supplies the current bearer token on demand.
type TokenSource func() string

func StaticToken(token string) TokenSource {
	return func() string { return token }
}

type Claims struct {
	jwt.RegisteredClaims
	MemberID int64  `json:"mid"`
	Nickname string `json:"nickname"`
}

// ParseIdentity extracts the identity without verifying the signature. The
// client only decodes its own stored token; verification is the server's job.
func ParseIdentity(tokenString string) (Identity, error) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, &claims); err != nil {
		return Identity{}, err
	}
	if claims.MemberID <= 0 {
		return Identity{}, errors.New("token has no member id")
	}
	return Identity{MemberID: claims.MemberID, Nickname: claims.Nickname}, nil
}

type Verifier struct {
	Secret []byte
}

func (v Verifier) Parse(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return v.Secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// Mint issues a signed token for the given identity. Used by the dev server.
func (v Verifier) Mint(id Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		MemberID: id.MemberID,
		Nickname: id.Nickname,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.Secret)
}

type ctxKeyIdentity struct{}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	v, ok := ctx.Value(ctxKeyIdentity{}).(Identity)
	return v, ok
}

// WithIdentity injects an identity into context. Useful for testing.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKeyIdentity{}, id)
}

// RequireMember validates the Bearer token and injects the member identity.
func RequireMember(verifier Verifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authz := strings.TrimSpace(r.Header.Get("Authorization"))
			parts := strings.SplitN(authz, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			claims, err := verifier.Parse(strings.TrimSpace(parts[1]))
			if err != nil || claims.MemberID <= 0 {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			ctx := WithIdentity(r.Context(), Identity{MemberID: claims.MemberID, Nickname: claims.Nickname})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
