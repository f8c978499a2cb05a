// Package middleware provides HTTP middleware for the inquire server.
package middleware

import (
	"context"
	"crypto"
	"crypto/subtle"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/TFMV/inquire/cmd/server/config"
	"github.com/TFMV/inquire/pkg/errors"
	"github.com/TFMV/inquire/pkg/handlers"
)

// AuthMiddleware provides authentication middleware.
type AuthMiddleware struct {
	config config.AuthConfig
	logger zerolog.Logger

	// JWT verification keys. HSKey verifies HMAC tokens; RSKey, when set,
	// verifies RSA and ECDSA tokens.
	HSKey []byte
	RSKey crypto.PublicKey
	Iss   string
	Aud   string
}

// NewAuthMiddleware creates a new authentication middleware. When
// PublicKeyFile is set it must hold a PEM encoded RSA or ECDSA public key.
func NewAuthMiddleware(cfg config.AuthConfig, logger zerolog.Logger) (*AuthMiddleware, error) {
	m := &AuthMiddleware{
		config: cfg,
		logger: logger,
		HSKey:  []byte(cfg.JWTAuth.Secret),
		Iss:    cfg.JWTAuth.Issuer,
		Aud:    cfg.JWTAuth.Audience,
	}

	if path := cfg.JWTAuth.PublicKeyFile; path != "" {
		pem, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read JWT public key: %w", err)
		}
		key, err := ParsePublicKey(pem)
		if err != nil {
			return nil, fmt.Errorf("failed to parse JWT public key %s: %w", path, err)
		}
		m.RSKey = key
	}
	return m, nil
}

// ParsePublicKey decodes a PEM encoded RSA or ECDSA public key.
func ParsePublicKey(pem []byte) (crypto.PublicKey, error) {
	if key, err := jwt.ParseRSAPublicKeyFromPEM(pem); err == nil {
		return key, nil
	}
	key, err := jwt.ParseECPublicKeyFromPEM(pem)
	if err != nil {
		return nil, errors.New(errors.CodeInvalidRequest, "not an RSA or ECDSA public key")
	}
	return key, nil
}

// Handler rejects unauthenticated requests with 401 and passes the rest on
// with the user in the request context.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authCtx, err := m.authenticate(r)
		if err != nil {
			m.logger.Warn().Err(err).Str("path", r.URL.Path).Msg("Authentication failed")
			handlers.WriteError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(authCtx))
	})
}

// authenticate performs authentication based on configured type.
func (m *AuthMiddleware) authenticate(r *http.Request) (context.Context, error) {
	if !m.config.Enabled {
		return r.Context(), nil
	}

	switch m.config.Type {
	case "bearer":
		return m.authenticateBearer(r)
	case "jwt":
		return m.authenticateJWT(r)
	default:
		return nil, errors.New(errors.CodeInternal, "unsupported auth type").WithDetail("type", m.config.Type)
	}
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errors.New(errors.CodeUnauthorized, "missing authorization header")
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return "", errors.New(errors.CodeUnauthorized, "invalid authorization header")
	}
	return strings.TrimPrefix(header, "Bearer "), nil
}

// authenticateBearer performs static bearer token authentication.
func (m *AuthMiddleware) authenticateBearer(r *http.Request) (context.Context, error) {
	token, err := bearerToken(r)
	if err != nil {
		return nil, err
	}

	for known, username := range m.config.BearerAuth.Tokens {
		if subtle.ConstantTimeCompare([]byte(token), []byte(known)) == 1 {
			return context.WithValue(r.Context(), contextKeyUser, username), nil
		}
	}
	return nil, errors.New(errors.CodeUnauthorized, "invalid token")
}

// authenticateJWT verifies a signed token, its expiry, issuer and audience.
func (m *AuthMiddleware) authenticateJWT(r *http.Request) (context.Context, error) {
	raw, err := bearerToken(r)
	if err != nil {
		return nil, err
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512", "RS256", "RS384", "RS512", "ES256", "ES384", "ES512"}),
		jwt.WithExpirationRequired(),
	}
	if m.Iss != "" {
		opts = append(opts, jwt.WithIssuer(m.Iss))
	}
	if m.Aud != "" {
		opts = append(opts, jwt.WithAudience(m.Aud))
	}

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(raw, claims, m.keyFunc, opts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeUnauthorized, "invalid token")
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, errors.New(errors.CodeUnauthorized, "token has no subject")
	}

	ctx := context.WithValue(r.Context(), contextKeyUser, sub)
	if roles := stringSlice(claims["roles"]); len(roles) > 0 {
		ctx = context.WithValue(ctx, contextKeyRoles, roles)
	}
	return ctx, nil
}

func (m *AuthMiddleware) keyFunc(token *jwt.Token) (interface{}, error) {
	switch token.Method.(type) {
	case *jwt.SigningMethodHMAC:
		if len(m.HSKey) == 0 {
			return nil, jwt.ErrTokenUnverifiable
		}
		return m.HSKey, nil
	case *jwt.SigningMethodRSA, *jwt.SigningMethodECDSA:
		if m.RSKey == nil {
			return nil, jwt.ErrTokenUnverifiable
		}
		return m.RSKey, nil
	default:
		return nil, jwt.ErrTokenSignatureInvalid
	}
}

func stringSlice(v interface{}) []string {
	items, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Context keys for authentication
type contextKey string

const (
	contextKeyUser  contextKey = "user"
	contextKeyRoles contextKey = "roles"
)

// GetUser extracts the authenticated user from context.
func GetUser(ctx context.Context) (string, bool) {
	user, ok := ctx.Value(contextKeyUser).(string)
	return user, ok
}

// AuthenticatedUser returns the authenticated user, or "" when there is none.
func AuthenticatedUser(ctx context.Context) string {
	user, _ := GetUser(ctx)
	return user
}

// GetRoles extracts the user's roles from context.
func GetRoles(ctx context.Context) ([]string, bool) {
	roles, ok := ctx.Value(contextKeyRoles).([]string)
	return roles, ok
}
