package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/yamdb/yamdb-api/internal/core/authz"
)

// Policy gates a route on the access policy for a resource whose owner does
// not depend on the request, such as the catalogue or user administration.
// Denials surface as domain.ErrUnauthenticated or domain.ErrForbidden and are
// rendered by the HTTP error handler.
func Policy(verb authz.Verb, res authz.Resource) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := authz.Authorize(ActorFrom(c), verb, res); err != nil {
				return err
			}
			return next(c)
		}
	}
}
