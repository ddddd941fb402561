package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/zhouzirui/aura/backend/internal/logger"
	"github.com/zhouzirui/aura/backend/pkg/utils"
)

type ownerKey struct{}

// Claims is the payload of an Aura session token. Tokens issued by the account
// service carry the user id in "userId"; the standard subject is accepted too.
type Claims struct {
	UserID string `json:"userId,omitempty"`
	jwt.RegisteredClaims
}

// Owner returns the user id the token was issued for.
func (c *Claims) Owner() string {
	if c.UserID != "" {
		return c.UserID
	}
	return c.Subject
}

// Authenticator verifies HS256 session tokens from a cookie or a bearer header.
type Authenticator struct {
	secret     []byte
	cookieName string
	log        *logger.Logger
}

// NewAuthenticator creates an Authenticator. An empty cookie name disables cookie lookup.
func NewAuthenticator(secret, cookieName string, log *logger.Logger) *Authenticator {
	if log == nil {
		log = logger.Nop()
	}
	return &Authenticator{
		secret:     []byte(secret),
		cookieName: cookieName,
		log:        log.With("middleware", "auth"),
	}
}

// Require rejects requests without a valid token and stores the owner id in the context.
func (a *Authenticator) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := a.extractToken(r)
		if tokenString == "" {
			utils.RespondError(w, http.StatusUnauthorized, "unauthorized - no token provided")
			return
		}

		owner, err := a.Verify(tokenString)
		if err != nil {
			a.log.Debug("token rejected", "error", err, "path", r.URL.Path)
			utils.RespondError(w, http.StatusUnauthorized, "unauthorized - invalid token")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithOwner(r.Context(), owner)))
	})
}

// Verify parses tokenString and returns the owner id it carries.
func (a *Authenticator) Verify(tokenString string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errors.New("invalid token")
	}

	owner := strings.TrimSpace(claims.Owner())
	if owner == "" {
		return "", errors.New("token carries no user id")
	}
	return owner, nil
}

func (a *Authenticator) extractToken(r *http.Request) string {
	if a.cookieName != "" {
		if cookie, err := r.Cookie(a.cookieName); err == nil && cookie.Value != "" {
			return cookie.Value
		}
	}
	header := r.Header.Get("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

// IssueToken signs a session token for userID valid for ttl.
func IssueToken(secret, userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// WithOwner returns a context carrying the authenticated owner id.
func WithOwner(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, ownerKey{}, ownerID)
}

// OwnerFromContext returns the owner id set by Require.
func OwnerFromContext(ctx context.Context) (string, bool) {
	owner, ok := ctx.Value(ownerKey{}).(string)
	return owner, ok && owner != ""
}
