package middlewares

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
)

// TenantClaims binds the authenticated user to the postgres schema their
// books live in. Protected routes derive the tenant from the token, never
// from request input.
type TenantClaims struct {
	Schema string `json:"schema"`
	jwt.RegisteredClaims
}

const tokenIssuer = "buchhaltung"

func jwtSecret() ([]byte, error) {
	for _, key := range []string{"JWT_SECRET_KEY", "JWT_SECRET"} {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return []byte(v), nil
		}
	}
	return nil, errors.New("JWT secret not configured (set JWT_SECRET_KEY)")
}

func bearerToken(header string) string {
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// IsAuthenticatedHeader validates an HS256 bearer token and stashes
// userID/schema in the request locals for the tenant middleware.
func IsAuthenticatedHeader() fiber.Handler {
	return func(c *fiber.Ctx) error {
		secret, err := jwtSecret()
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "server auth not configured"})
		}

		raw := bearerToken(c.Get("Authorization"))
		if raw == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "missing bearer token"})
		}

		var claims TenantClaims
		parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		token, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
			return secret, nil
		})
		if err != nil || !token.Valid {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "invalid or expired token"})
		}
		if strings.TrimSpace(claims.Subject) == "" || strings.TrimSpace(claims.Schema) == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "token missing subject or schema"})
		}

		c.Locals("userID", claims.Subject)
		c.Locals("schema", claims.Schema)
		return c.Next()
	}
}

// GenerateJWT signs a 24h token for the given user and tenant schema.
func GenerateJWT(userID, schema string) (string, error) {
	secret, err := jwtSecret()
	if err != nil {
		return "", err
	}
	now := time.Now()
	claims := &TenantClaims{
		Schema: schema,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(24 * time.Hour)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
