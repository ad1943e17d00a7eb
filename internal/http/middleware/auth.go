package middleware

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"docflow/internal/model"
)

// IdentityLocalKey is the key used to store the authenticated identity in
// Fiber's context locals.
const IdentityLocalKey = "identity"

type identityCtxKey struct{}

// Claims are the JWT claims the service understands. Roles carries both
// module roles (AUTHOR, APPROVER, ...) and system roles (ADMIN, QMB).
type Claims struct {
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
	jwt.RegisteredClaims
}

// Auth verifies the Bearer token on every request and stores the resulting
// UserIdentity in both Fiber locals and the request context. Requests
// without a valid token are rejected with 401; the workflow service treats a
// missing identity as its authentication failure, so handlers may also run
// this middleware in optional mode for read-only routes.
func Auth(secret string, optional bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := bearerToken(c.Get(fiber.HeaderAuthorization))
		if raw == "" {
			if optional {
				return c.Next()
			}
			return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid bearer token")
		}
		if claims.Subject == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "token carries no subject")
		}

		identity := &model.UserIdentity{
			ID:       claims.Subject,
			Username: claims.Username,
			Roles:    claims.Roles,
		}
		c.Locals(IdentityLocalKey, identity)
		c.SetUserContext(WithIdentity(c.UserContext(), identity))

		return c.Next()
	}
}

// WithIdentity stores the identity in a context.
func WithIdentity(ctx context.Context, id *model.UserIdentity) context.Context {
	return context.WithValue(ctx, identityCtxKey{}, id)
}

// IdentityFromContext resolves the authenticated identity, or nil. This is
// the CurrentUserProvider handed to the workflow service.
func IdentityFromContext(ctx context.Context) *model.UserIdentity {
	if id, ok := ctx.Value(identityCtxKey{}).(*model.UserIdentity); ok {
		return id
	}
	return nil
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
