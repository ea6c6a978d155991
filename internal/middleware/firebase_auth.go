package middleware

import (
	"context"
	"errors"
	"net/http"

	"firebase.google.com/go/v4/auth"
	"github.com/anonto42/volunteer-hub/backend/internal/models"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// IDTokenVerifier is the part of *auth.Client the middleware uses.
type IDTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// FirebaseUserLookup maps a Firebase UID to a local user.
type FirebaseUserLookup interface {
	GetUserByFirebaseUID(ctx context.Context, firebaseUID string) (*models.User, error)
}

// FirebaseAuthMiddleware verifies Firebase ID tokens and resolves the local
// user linked to the token's UID.
func FirebaseAuthMiddleware(verifier IDTokenVerifier, users FirebaseUserLookup, logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			idToken, err := bearerToken(c)
			if err != nil {
				return err
			}

			ctx := c.Request().Context()
			token, err := verifier.VerifyIDToken(ctx, idToken)
			if err != nil {
				logger.Debug("firebase token rejected", zap.Error(err))
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired ID token")
			}

			user, err := users.GetUserByFirebaseUID(ctx, token.UID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return echo.NewHTTPError(http.StatusUnauthorized, "No account is linked to this Firebase user")
				}
				logger.Error("lookup firebase user", zap.String("uid", token.UID), zap.Error(err))
				return echo.NewHTTPError(http.StatusInternalServerError, "Failed to resolve user")
			}

			c.Set("firebaseUID", token.UID)
			c.Set("firebaseToken", token)
			SetActor(c, models.Actor{UserID: user.ID, Role: user.Role})
			return next(c)
		}
	}
}
