package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/yamdb/yamdb-api/internal/api/middleware"
	"github.com/yamdb/yamdb-api/internal/core/authz"
	"github.com/yamdb/yamdb-api/internal/core/domain"
	"github.com/yamdb/yamdb-api/internal/core/ports"
)

// ctxActor returns the actor resolved by the Auth middleware. Requests that
// carried no bearer token yield authz.Anonymous.
func ctxActor(c echo.Context) authz.Actor {
	return middleware.ActorFrom(c)
}

// pathID parses an integer path parameter. A malformed id cannot name an
// existing resource, so it is reported as 404.
func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusNotFound, "not found")
	}
	return id, nil
}

// pageParams reads the limit/offset query parameters. Both are optional.
func pageParams(c echo.Context) (ports.Page, error) {
	var page ports.Page
	err := echo.QueryParamsBinder(c).
		Int("limit", &page.Limit).
		Int("offset", &page.Offset).
		BindError()
	if err != nil {
		return page, domain.NewValidationError("limit", "limit and offset must be integers")
	}
	if page.Limit < 0 {
		return page, domain.NewValidationError("limit", "must not be negative")
	}
	if page.Offset < 0 {
		return page, domain.NewValidationError("offset", "must not be negative")
	}
	return page, nil
}

// bindAndValidate decodes the request body into req and runs struct validation.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	return c.Validate(req)
}
