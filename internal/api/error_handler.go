package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/yamdb/yamdb-api/internal/api/metrics"
	"github.com/yamdb/yamdb-api/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their appropriate HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>", "field": "<name>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, resp := resolveError(err, log, c)
		if code == http.StatusUnauthorized || code == http.StatusForbidden {
			metrics.AuthzDenialsTotal.WithLabelValues(strconv.Itoa(code)).Inc()
		}
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, resp)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, errorResponse) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, errorResponse{Error: fmt.Sprintf("%v", he.Message)}
	}

	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest, errorResponse{Error: ve.Message, Field: ve.Field}
	}

	// Known domain errors → deterministic HTTP codes.
	switch {
	case errors.Is(err, domain.ErrReservedUsername):
		return http.StatusBadRequest, errorResponse{Error: domain.ErrReservedUsername.Error(), Field: "username"}
	case errors.Is(err, domain.ErrUsernameTaken):
		return http.StatusBadRequest, errorResponse{Error: domain.ErrUsernameTaken.Error(), Field: "username"}
	case errors.Is(err, domain.ErrEmailTaken):
		return http.StatusBadRequest, errorResponse{Error: domain.ErrEmailTaken.Error(), Field: "email"}
	case errors.Is(err, domain.ErrInvalidCode):
		return http.StatusBadRequest, errorResponse{Error: domain.ErrInvalidCode.Error(), Field: "confirmation_code"}
	case errors.Is(err, domain.ErrDuplicateReview):
		return http.StatusBadRequest, errorResponse{Error: domain.ErrDuplicateReview.Error()}
	case errors.Is(err, domain.ErrDuplicateSlug):
		return http.StatusBadRequest, errorResponse{Error: domain.ErrDuplicateSlug.Error(), Field: "slug"}
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, errorResponse{Error: err.Error()}
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, errorResponse{Error: domain.ErrUnauthenticated.Error()}
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, errorResponse{Error: domain.ErrForbidden.Error()}
	case errors.Is(err, domain.ErrTooManyAttempts):
		return http.StatusTooManyRequests, errorResponse{Error: domain.ErrTooManyAttempts.Error()}
	}
	if notFound, ok := notFoundError(err); ok {
		return http.StatusNotFound, errorResponse{Error: notFound.Error()}
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
		Msg("unhandled error")

	if errors.Is(err, domain.ErrDelivery) {
		return http.StatusInternalServerError, errorResponse{Error: domain.ErrDelivery.Error()}
	}
	return http.StatusInternalServerError, errorResponse{Error: "internal server error"}
}

var notFoundErrors = []error{
	domain.ErrUserNotFound,
	domain.ErrWorkNotFound,
	domain.ErrReviewNotFound,
	domain.ErrCommentNotFound,
	domain.ErrCategoryNotFound,
	domain.ErrGenreNotFound,
}

func notFoundError(err error) (error, bool) {
	for _, target := range notFoundErrors {
		if errors.Is(err, target) {
			return target, true
		}
	}
	return nil, false
}
