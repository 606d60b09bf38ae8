package handler

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleSuperAdmin = "super_admin"
	RoleAdmin      = "admin"

	claimsLocalKey = "authClaims"
)

// Claims is the bearer token payload issued by the CRM backend.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// RequireAuth rejects requests without a valid HS256 bearer token.
func RequireAuth(secret []byte) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
		}

		claims, err := parseToken(strings.TrimSpace(token), secret)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}

		c.Locals(claimsLocalKey, claims)
		return c.Next()
	}
}

// RequireRole allows the request through only for the listed roles.
// It must run after RequireAuth.
func RequireRole(roles ...string) fiber.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		claims := ClaimsFromCtx(c)
		if claims == nil {
			return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
		}
		if _, ok := allowed[claims.Role]; !ok {
			return fiber.NewError(fiber.StatusForbidden, "insufficient permissions")
		}
		return c.Next()
	}
}

func ClaimsFromCtx(c *fiber.Ctx) *Claims {
	claims, _ := c.Locals(claimsLocalKey).(*Claims)
	return claims
}

func parseToken(raw string, secret []byte) (*Claims, error) {
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("token is invalid")
	}
	if strings.TrimSpace(claims.Role) == "" {
		return nil, fmt.Errorf("token has no role")
	}
	return claims, nil
}
