package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/yamdb/yamdb-api/internal/core/authz"
	"github.com/yamdb/yamdb-api/internal/core/domain"
)

// ActorKey is the echo context key holding the authz.Actor of the request.
const ActorKey = "actor"

// Authenticator resolves a bearer token to the user it was issued to.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.User, error)
}

// Auth resolves the bearer token, when present, and injects the actor into
// context. Requests without an Authorization header proceed as anonymous;
// a malformed header or a token that does not verify is rejected with 401.
func Auth(authn Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				c.Set(ActorKey, authz.Anonymous)
				return next(c)
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			user, err := authn.Authenticate(c.Request().Context(), parts[1])
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.Set(ActorKey, authz.ActorFor(user))
			return next(c)
		}
	}
}

// RequireAuth rejects anonymous requests with 401.
func RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !ActorFrom(c).Authenticated() {
				return domain.ErrUnauthenticated
			}
			return next(c)
		}
	}
}

// ActorFrom returns the actor injected by Auth, or authz.Anonymous.
func ActorFrom(c echo.Context) authz.Actor {
	actor, _ := c.Get(ActorKey).(authz.Actor)
	return actor
}
