// Package middleware holds the fiber middleware shared by the HTTP routes.
package middleware

import (
	"errors"
	"fmt"

	"github.com/amirasaad/bankcore/pkg/config"
	"github.com/amirasaad/bankcore/pkg/domain/user"
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenKey     = "user"
	principalKey = "principal"
)

var (
	// ErrMissingPrincipal is returned when a handler runs without JwtProtected in front of it.
	ErrMissingPrincipal = errors.New("missing user context")
	// ErrInvalidClaims is returned for a token whose claims do not identify a user.
	ErrInvalidClaims = errors.New("invalid token claims")
)

// JwtProtected verifies the HS256 bearer token and stores the caller's user.Principal
// for the handlers behind it.
func JwtProtected(cfg *config.Jwt) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:   jwtware.SigningKey{JWTAlg: jwtware.HS256, Key: []byte(cfg.Secret)},
		ContextKey:   tokenKey,
		ErrorHandler: jwtError,
		SuccessHandler: func(c *fiber.Ctx) error {
			token, ok := c.Locals(tokenKey).(*jwt.Token)
			if !ok {
				return jwtError(c, ErrMissingPrincipal)
			}
			p, err := principalFromToken(token, cfg.Issuer)
			if err != nil {
				return jwtError(c, err)
			}
			c.Locals(principalKey, p)
			return c.Next()
		},
	})
}

// Principal returns the caller stored by JwtProtected.
func Principal(c *fiber.Ctx) (user.Principal, error) {
	p, ok := c.Locals(principalKey).(user.Principal)
	if !ok {
		return user.Principal{}, ErrMissingPrincipal
	}
	return p, nil
}

func principalFromToken(token *jwt.Token, issuer string) (user.Principal, error) {
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return user.Principal{}, ErrInvalidClaims
	}
	if issuer != "" {
		iss, err := claims.GetIssuer()
		if err != nil || iss != issuer {
			return user.Principal{}, fmt.Errorf("%w: unexpected issuer", ErrInvalidClaims)
		}
	}
	rawID, _ := claims["user_id"].(string)
	userID, err := uuid.Parse(rawID)
	if err != nil {
		return user.Principal{}, fmt.Errorf("%w: user_id: %w", ErrInvalidClaims, err)
	}
	rawRole, _ := claims["role"].(string)
	role, err := user.ParseRole(rawRole)
	if err != nil {
		return user.Principal{}, fmt.Errorf("%w: %w", ErrInvalidClaims, err)
	}
	return user.NewPrincipal(userID, role)
}

func jwtError(c *fiber.Ctx, err error) error {
	status := fiber.StatusUnauthorized
	title := "Invalid or expired JWT"
	if errors.Is(err, jwtware.ErrJWTMissingOrMalformed) {
		status = fiber.StatusBadRequest
		title = "Missing or malformed JWT"
	}
	c.Set(fiber.HeaderContentType, "application/problem+json")
	return c.Status(status).JSON(fiber.Map{
		"type":   "about:blank",
		"title":  title,
		"status": status,
		"detail": err.Error(),
	})
}
