package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testSecret = "hub-test-secret"

func signToken(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func jwtApp() *fiber.App {
	app := fiber.New()
	app.Use(JWTProtected(testSecret))
	app.Get("/me", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"id":   c.Locals("user_id"),
			"role": c.Locals("user_role"),
		})
	})
	return app
}

func callWithToken(t *testing.T, app *fiber.App, header string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestJWTProtectedSetsActorLocals(t *testing.T) {
	token := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{
		"sub":   "42",
		"roles": []interface{}{"student", "editingteacher"},
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	app := fiber.New()
	app.Use(JWTProtected(testSecret))
	app.Get("/me", func(c *fiber.Ctx) error {
		require.Equal(t, uint(42), c.Locals("user_id"))
		require.Equal(t, RoleTeacher, c.Locals("user_role"))
		return c.SendStatus(fiber.StatusNoContent)
	})

	resp := callWithToken(t, app, "bearer "+token)
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}

func TestJWTProtectedRejectsBadTokens(t *testing.T) {
	app := jwtApp()

	expired := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{
		"sub": 1, "exp": time.Now().Add(-time.Minute).Unix(),
	})
	wrongKey := signToken(t, jwt.SigningMethodHS256, []byte("other"), jwt.MapClaims{"sub": 1})
	noSubject := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"role": "admin"})

	for name, header := range map[string]string{
		"missing":    "",
		"scheme":     "Basic abc",
		"empty":      "Bearer ",
		"expired":    "Bearer " + expired,
		"wrong key":  "Bearer " + wrongKey,
		"no subject": "Bearer " + noSubject,
		"unsigned":   "Bearer eyJhbGciOiJub25lIn0.eyJzdWIiOiIxIn0.",
	} {
		resp := callWithToken(t, app, header)
		require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, name)
	}
}

func TestRoleFromClaimsPrefersMostPrivileged(t *testing.T) {
	require.Equal(t, RoleAdmin, roleFromClaims(jwt.MapClaims{"role": "teacher", "roles": []interface{}{"SiteAdmin"}}))
	require.Equal(t, RoleTeacher, roleFromClaims(jwt.MapClaims{"roles": []interface{}{"student", "manager"}}))
	require.Equal(t, RoleStudent, roleFromClaims(jwt.MapClaims{"role": " Student "}))
	require.Empty(t, roleFromClaims(jwt.MapClaims{}))
}
