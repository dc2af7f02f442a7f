package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/golang-jwt/jwt/v5"
)

type claimsKey struct{}

// Claims are the bearer token claims the API relies on.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// AdminAuthorizer decides whether a signed-in user may moderate.
type AdminAuthorizer interface {
	IsAdmin(ctx context.Context, userID, email string) (bool, error)
}

// Auth verifies HS256 bearer tokens.
type Auth struct {
	secret []byte
	admins AdminAuthorizer
}

var errNoToken = errors.New("missing bearer token")

// NewAuth returns the authenticator. An empty secret rejects every token.
func NewAuth(secret string, admins AdminAuthorizer) *Auth {
	return &Auth{secret: []byte(secret), admins: admins}
}

// Parse validates a raw token and returns its claims.
func (a *Auth) Parse(raw string) (*Claims, error) {
	if len(a.secret) == 0 || raw == "" {
		return nil, errNoToken
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

func bearer(c fiber.Ctx) string {
	h := c.Get(fiber.HeaderAuthorization)
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func (a *Auth) authenticate(c fiber.Ctx) (*Claims, bool) {
	claims, err := a.Parse(bearer(c))
	if err != nil {
		Logger.Debug().Err(err).Str("path", SanitizePath(c.Path())).Msg("auth rejected")
		return nil, false
	}
	c.Locals(claimsKey{}, claims)
	return claims, true
}

func unauthorized(c fiber.Ctx) error {
	return ErrorResponse(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
}

// RequireUser admits any request carrying a valid token.
func (a *Auth) RequireUser() fiber.Handler {
	return func(c fiber.Ctx) error {
		if _, ok := a.authenticate(c); !ok {
			return unauthorized(c)
		}
		return c.Next()
	}
}

// RequireAdmin admits valid tokens whose holder is an admin.
func (a *Auth) RequireAdmin() fiber.Handler {
	return func(c fiber.Ctx) error {
		claims, ok := a.authenticate(c)
		if !ok {
			return unauthorized(c)
		}
		ok, err := a.admins.IsAdmin(c.Context(), claims.Subject, claims.Email)
		if err != nil {
			Logger.Error().Err(err).Msg("admin lookup failed")
			return ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Failed to authorize")
		}
		if !ok {
			return ErrorResponse(c, fiber.StatusForbidden, "FORBIDDEN", "Not allowed")
		}
		return c.Next()
	}
}

// ClaimsFrom returns the claims stored by RequireUser or RequireAdmin.
func ClaimsFrom(c fiber.Ctx) (*Claims, bool) {
	claims, ok := c.Locals(claimsKey{}).(*Claims)
	return claims, ok
}
