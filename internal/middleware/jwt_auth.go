package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/anonto42/volunteer-hub/backend/internal/models"
	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
)

const (
	actorKey  = "actor"
	claimsKey = "user"
)

// JWTAuthMiddleware checks for a valid HS256 token and stores the caller as
// a models.Actor.
func JWTAuthMiddleware(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenString, err := bearerToken(c)
			if err != nil {
				return err
			}

			claims := &models.JwtCustomClaims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, echo.NewHTTPError(http.StatusUnauthorized, "Unexpected signing method")
				}
				return []byte(secret), nil
			})
			if err != nil {
				if errors.Is(err, jwt.ErrSignatureInvalid) {
					return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token signature")
				}
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
			}
			if !token.Valid || claims.UserID == 0 {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
			}

			role := claims.Role
			if role == "" {
				role = models.RoleUser
			}
			c.Set(claimsKey, claims)
			c.Set(actorKey, models.Actor{UserID: claims.UserID, Role: role})
			return next(c)
		}
	}
}

// ActorFromContext returns the caller stored by one of the auth middlewares.
func ActorFromContext(c echo.Context) (models.Actor, error) {
	actor, ok := c.Get(actorKey).(models.Actor)
	if !ok || actor.UserID == 0 {
		return models.Actor{}, echo.NewHTTPError(http.StatusUnauthorized, "Not authenticated")
	}
	return actor, nil
}

// SetActor stores actor on the context.
func SetActor(c echo.Context, actor models.Actor) {
	c.Set(actorKey, actor)
}

// RequireRole rejects callers whose role is not listed.
func RequireRole(roles ...models.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor, err := ActorFromContext(c)
			if err != nil {
				return err
			}
			for _, role := range roles {
				if actor.Role == role {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden, "You do not have permission to perform this action")
		}
	}
}

func bearerToken(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Missing Authorization header")
	}

	// Expecting "Bearer <token>"
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Invalid Authorization header format")
	}
	return parts[1], nil
}
