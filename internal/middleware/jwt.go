package middleware

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/ai-project-hub/internal/utils"
)

// Platform roles carried in the user_role local.
const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

// JWTProtected returns a middleware that validates HMAC signed bearer tokens
// and stores the user id and platform role in the request locals.
func JWTProtected(secret string) fiber.Handler {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
	key := []byte(secret)

	return func(c *fiber.Ctx) error {
		authorization := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
		if authorization == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "authorization header missing")
		}

		const bearer = "bearer "
		if len(authorization) <= len(bearer) || !strings.EqualFold(authorization[:len(bearer)], bearer) {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid authorization header")
		}

		tokenString := strings.TrimSpace(authorization[len(bearer):])
		claims := jwt.MapClaims{}
		token, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
			return key, nil
		})
		if err != nil || !token.Valid {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		userID, ok := userIDFromClaims(claims)
		if !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, "token subject missing")
		}

		c.Locals("user_id", userID)
		c.Locals("user_role", roleFromClaims(claims))

		return c.Next()
	}
}

func userIDFromClaims(claims jwt.MapClaims) (uint, bool) {
	for _, key := range []string{"sub", "user_id", "id"} {
		value, ok := claims[key]
		if !ok {
			continue
		}
		if id, err := parseUserID(value); err == nil && id > 0 {
			return id, true
		}
	}
	return 0, false
}

func parseUserID(value interface{}) (uint, error) {
	switch v := value.(type) {
	case float64:
		if v < 0 || v != float64(uint64(v)) {
			return 0, fmt.Errorf("invalid subject")
		}
		return uint(v), nil
	case string:
		parsed, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, err
		}
		return uint(parsed), nil
	default:
		return 0, fmt.Errorf("unsupported subject type %T", value)
	}
}

// roleFromClaims reduces the role or roles claim to one platform role, picking
// the most privileged one. LMS course roles that can grade count as teacher.
func roleFromClaims(claims jwt.MapClaims) string {
	var candidates []string
	for _, key := range []string{"role", "roles"} {
		switch v := claims[key].(type) {
		case string:
			candidates = append(candidates, v)
		case []interface{}:
			for _, item := range v {
				if s, ok := item.(string); ok {
					candidates = append(candidates, s)
				}
			}
		}
	}

	best := ""
	for _, candidate := range candidates {
		role := canonicalRole(candidate)
		if rolePriority(role) > rolePriority(best) {
			best = role
		}
	}
	return best
}

func canonicalRole(role string) string {
	switch r := strings.ToLower(strings.TrimSpace(role)); r {
	case "admin", "siteadmin", "administrator":
		return RoleAdmin
	case "teacher", "editingteacher", "manager", "coursecreator":
		return RoleTeacher
	default:
		return r
	}
}

func rolePriority(role string) int {
	switch role {
	case RoleAdmin:
		return 3
	case RoleTeacher:
		return 2
	case "":
		return 0
	default:
		return 1
	}
}
