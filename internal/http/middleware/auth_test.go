package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docflow/internal/model"
)

const testSecret = "unit-test-secret"

func signToken(t *testing.T, claims Claims, secret string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func authApp(optional bool) *fiber.App {
	app := fiber.New()
	app.Use(Auth(testSecret, optional))
	app.Get("/me", func(c *fiber.Ctx) error {
		id := IdentityFromContext(c.UserContext())
		if id == nil {
			return c.SendString("anonymous")
		}
		return c.JSON(id)
	})
	return app
}

func TestAuth(t *testing.T) {
	t.Run("valid token populates identity", func(t *testing.T) {
		app := authApp(false)
		token := signToken(t, Claims{
			Username: "ada",
			Roles:    []string{"AUTHOR", "ADMIN"},
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "u1",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}, testSecret)

		req := httptest.NewRequest("GET", "/me", nil)
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})

	t.Run("missing token is rejected", func(t *testing.T) {
		app := authApp(false)

		resp, err := app.Test(httptest.NewRequest("GET", "/me", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("optional mode lets anonymous requests through", func(t *testing.T) {
		app := authApp(true)

		resp, err := app.Test(httptest.NewRequest("GET", "/me", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})

	t.Run("wrong secret is rejected", func(t *testing.T) {
		app := authApp(false)
		token := signToken(t, Claims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "u1"},
		}, "other-secret")

		req := httptest.NewRequest("GET", "/me", nil)
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		app := authApp(false)
		token := signToken(t, Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "u1",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			},
		}, testSecret)

		req := httptest.NewRequest("GET", "/me", nil)
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("token without subject is rejected", func(t *testing.T) {
		app := authApp(false)
		token := signToken(t, Claims{Username: "ghost"}, testSecret)

		req := httptest.NewRequest("GET", "/me", nil)
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})
}

func TestIdentityContext(t *testing.T) {
	assert.Nil(t, IdentityFromContext(t.Context()))

	id := &model.UserIdentity{ID: "u1"}
	ctx := WithIdentity(t.Context(), id)
	assert.Equal(t, id, IdentityFromContext(ctx))
}
