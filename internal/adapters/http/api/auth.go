package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/okian/ehb/internal/domain/tier"
	"github.com/okian/ehb/internal/domain/types"
)

// Session is the authenticated caller.
type Session struct {
	Subject string
	Level   tier.Level
	Role    tier.Role
}

type sessionKey struct{}

// SessionFromContext returns the session attached by the auth middleware.
func SessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok
}

// WithSession attaches s to ctx.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

type sessionClaims struct {
	SQLLevel      tier.Level `json:"sql_level"`
	FranchiseRole string     `json:"franchise_role,omitempty"`
	jwt.RegisteredClaims
}

// Authenticator verifies HS256 bearer tokens.
type Authenticator struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewAuthenticator creates a verifier. With an empty secret every token is
// rejected.
func NewAuthenticator(secret []byte, issuer string) *Authenticator {
	return &Authenticator{secret: secret, issuer: issuer, now: time.Now}
}

// Issue signs a token for subject. It backs the CLI token command and tests.
func (a *Authenticator) Issue(subject string, level tier.Level, role tier.Role, ttl time.Duration) (string, error) {
	if len(a.secret) == 0 {
		return "", fmt.Errorf("auth secret not configured: %w", types.ErrUnauthorized)
	}
	if !level.Valid() {
		return "", types.InvalidField("sql_level", "unknown level")
	}
	now := a.now()
	claims := sessionClaims{
		SQLLevel: level,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if role != tier.RoleUnknown {
		claims.FranchiseRole = role.String()
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Verify parses token into a Session. Every failure wraps
// types.ErrUnauthorized.
func (a *Authenticator) Verify(token string) (Session, error) {
	if len(a.secret) == 0 {
		return Session{}, fmt.Errorf("%w: %w", ErrInvalidToken, types.ErrUnauthorized)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	var claims sessionClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v: %w", ErrInvalidToken, err, types.ErrUnauthorized)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return Session{}, fmt.Errorf("%w: missing sub: %w", ErrInvalidToken, types.ErrUnauthorized)
	}

	s := Session{Subject: claims.Subject, Level: claims.SQLLevel}
	if claims.FranchiseRole != "" {
		role, err := tier.ParseRole(claims.FranchiseRole)
		if err != nil {
			return Session{}, fmt.Errorf("%w: %v: %w", ErrInvalidToken, err, types.ErrUnauthorized)
		}
		s.Role = role
	}
	return s, nil
}

// Middleware requires a valid bearer token and attaches the Session.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			w.Header().Set("WWW-Authenticate", `Bearer realm="ehb"`)
			writeError(w, http.StatusUnauthorized, types.KindUnauthorized, ErrMissingToken.Error())
			return
		}
		session, err := a.Verify(strings.TrimSpace(token))
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="ehb", error="invalid_token"`)
			writeError(w, http.StatusUnauthorized, types.KindUnauthorized, ErrInvalidToken.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
	})
}
