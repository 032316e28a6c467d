// Package auth resolves the budget owner for an incoming request. Every
// ledger query is scoped to the owner returned here.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type ctxKey string

const ownerIDKey ctxKey = "owner_id"

// HeaderOwnerID is read by the header resolver.
const HeaderOwnerID = "X-Owner-ID"

var (
	ErrMissingCredentials = errors.New("missing credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

// Resolver maps a request to an owner id.
type Resolver interface {
	Resolve(r *http.Request) (string, error)
}

// Claims is the token payload. The subject is the owner id.
type Claims struct {
	jwt.RegisteredClaims
}

// JWTResolver accepts HS256 bearer tokens signed with a shared secret.
type JWTResolver struct {
	secret []byte
	now    func() time.Time
}

func NewJWTResolver(secret string) *JWTResolver {
	return &JWTResolver{secret: []byte(secret), now: time.Now}
}

// Resolve implements Resolver.
func (j *JWTResolver) Resolve(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	tokenStr, ok := strings.CutPrefix(h, "Bearer ")
	if !ok || strings.TrimSpace(tokenStr) == "" {
		return "", ErrMissingCredentials
	}

	claims, err := j.Parse(strings.TrimSpace(tokenStr))
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// Parse validates a token and returns its claims.
func (j *JWTResolver) Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		return j.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, fmt.Errorf("%w: subject missing", ErrInvalidToken)
	}
	return claims, nil
}

// Issue signs a token for ownerID valid for ttl. Used by tests and tooling.
func (j *JWTResolver) Issue(ownerID string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	now := j.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   ownerID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.secret)
}

// HeaderResolver trusts X-Owner-ID as set by an authenticating proxy.
type HeaderResolver struct{}

// Resolve implements Resolver.
func (HeaderResolver) Resolve(r *http.Request) (string, error) {
	owner := strings.TrimSpace(r.Header.Get(HeaderOwnerID))
	if owner == "" {
		return "", ErrMissingCredentials
	}
	return owner, nil
}

// Middleware rejects unauthenticated requests through onFail and stores
// the owner id in the context of the rest.
func Middleware(resolver Resolver, onFail func(http.ResponseWriter, *http.Request, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			owner, err := resolver.Resolve(r)
			if err != nil {
				if onFail != nil {
					onFail(w, r, err)
				} else {
					http.Error(w, "unauthorized", http.StatusUnauthorized)
				}
				return
			}
			next.ServeHTTP(w, r.WithContext(WithOwner(r.Context(), owner)))
		})
	}
}

// WithOwner returns a copy of ctx carrying ownerID.
func WithOwner(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, ownerIDKey, ownerID)
}

// OwnerFromContext returns the authenticated owner, or "" outside Middleware.
func OwnerFromContext(ctx context.Context) string {
	owner, _ := ctx.Value(ownerIDKey).(string)
	return owner
}
