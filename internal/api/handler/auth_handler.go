package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/yamdb/yamdb-api/internal/api/metrics"
	"github.com/yamdb/yamdb-api/internal/core/domain"
	"github.com/yamdb/yamdb-api/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Signup registers a user, or finds the existing one for the same pair, and
// mails a fresh confirmation code.
//
// @Summary      Sign up or resend a confirmation code
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      signupRequest  true  "Username and email"
// @Success      200   {object}  signupResponse
// @Failure      400   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /v1/auth/signup [post]
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupRequest
	if err := bindAndValidate(c, &req); err != nil {
		metrics.SignupsTotal.WithLabelValues(metrics.ResultRejected).Inc()
		return err
	}

	res, err := h.authService.Signup(c.Request().Context(), req.Username, req.Email)
	metrics.SignupsTotal.WithLabelValues(authResult(err)).Inc()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, signupResponse{Username: res.Username, Email: res.Email})
}

// Token exchanges a confirmation code for an access token.
//
// @Summary      Obtain an access token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      tokenRequest  true  "Username and confirmation code"
// @Success      200   {object}  tokenResponse
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      429   {object}  errorResponse
// @Router       /v1/auth/token [post]
func (h *AuthHandler) Token(c echo.Context) error {
	var req tokenRequest
	if err := bindAndValidate(c, &req); err != nil {
		metrics.TokenExchangesTotal.WithLabelValues(metrics.ResultRejected).Inc()
		return err
	}

	token, err := h.authService.ExchangeToken(c.Request().Context(), req.Username, req.ConfirmationCode)
	metrics.TokenExchangesTotal.WithLabelValues(authResult(err)).Inc()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tokenResponse{Token: token})
}

func authResult(err error) string {
	switch {
	case err == nil:
		return metrics.ResultOK
	case errors.Is(err, domain.ErrTooManyAttempts):
		return metrics.ResultThrottled
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrReservedUsername),
		errors.Is(err, domain.ErrInvalidCode),
		errors.Is(err, domain.ErrUserNotFound):
		return metrics.ResultRejected
	default:
		return metrics.ResultError
	}
}
