package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yamdb/yamdb-api/internal/api/metrics"
	"github.com/yamdb/yamdb-api/internal/core/authz"
	"github.com/yamdb/yamdb-api/internal/core/domain"
	"github.com/yamdb/yamdb-api/internal/core/ports"
)

func TestAuthHandler_Signup_Success(t *testing.T) {
	stub := &stubAuthService{
		signupFn: func(ctx context.Context, username, email string) (*ports.SignupResult, error) {
			if username != "alice" || email != "a@x.com" {
				t.Fatalf("unexpected args: %s %s", username, email)
			}
			return &ports.SignupResult{Username: username, Email: email}, nil
		},
	}
	handler := NewAuthHandler(stub)
	ok := metrics.SignupsTotal.WithLabelValues(metrics.ResultOK)
	before := testutil.ToFloat64(ok)

	c, rec := newContext(http.MethodPost, "/v1/auth/signup", `{"username":"alice","email":"a@x.com"}`, authz.Anonymous)
	if err := handler.Signup(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp signupResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Username != "alice" || resp.Email != "a@x.com" {
		t.Fatalf("unexpected payload: %+v", resp)
	}
	if got := testutil.ToFloat64(ok) - before; got != 1 {
		t.Fatalf("signups_total{ok} grew by %v, want 1", got)
	}
}

func TestAuthHandler_Signup_MissingField(t *testing.T) {
	stub := &stubAuthService{
		signupFn: func(ctx context.Context, username, email string) (*ports.SignupResult, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	c, _ := newContext(http.MethodPost, "/v1/auth/signup", `{"username":"alice"}`, authz.Anonymous)

	err := NewAuthHandler(stub).Signup(c)

	var ve *domain.ValidationError
	if !errors.As(err, &ve) || ve.Field != "email" {
		t.Fatalf("expected validation error on email, got %v", err)
	}
}

func TestAuthHandler_Signup_InvalidPayload(t *testing.T) {
	stub := &stubAuthService{}
	c, _ := newContext(http.MethodPost, "/v1/auth/signup", "not-json", authz.Anonymous)

	err := NewAuthHandler(stub).Signup(c)
	if err == nil {
		t.Fatal("expected error for malformed body")
	}
}

func TestAuthHandler_Signup_PropagatesReserved(t *testing.T) {
	stub := &stubAuthService{
		signupFn: func(ctx context.Context, username, email string) (*ports.SignupResult, error) {
			return nil, domain.ErrReservedUsername
		},
	}
	rejected := metrics.SignupsTotal.WithLabelValues(metrics.ResultRejected)
	before := testutil.ToFloat64(rejected)

	c, _ := newContext(http.MethodPost, "/v1/auth/signup", `{"username":"me","email":"m@x.com"}`, authz.Anonymous)
	if err := NewAuthHandler(stub).Signup(c); !errors.Is(err, domain.ErrReservedUsername) {
		t.Fatalf("expected ErrReservedUsername, got %v", err)
	}
	if got := testutil.ToFloat64(rejected) - before; got != 1 {
		t.Fatalf("signups_total{rejected} grew by %v, want 1", got)
	}
}

func TestAuthHandler_Token_Success(t *testing.T) {
	stub := &stubAuthService{
		exchangeFn: func(ctx context.Context, username, code string) (string, error) {
			if username != "alice" || code != "abc123" {
				t.Fatalf("unexpected args: %s %s", username, code)
			}
			return "token123", nil
		},
	}
	c, rec := newContext(http.MethodPost, "/v1/auth/token", `{"username":"alice","confirmation_code":"abc123"}`, authz.Anonymous)

	if err := NewAuthHandler(stub).Token(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp tokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if rec.Code != http.StatusOK || resp.Token != "token123" {
		t.Fatalf("unexpected response %d %+v", rec.Code, resp)
	}
}

func TestAuthHandler_Token_Errors(t *testing.T) {
	tests := []struct {
		err    error
		result string
	}{
		{domain.ErrInvalidCode, metrics.ResultRejected},
		{domain.ErrUserNotFound, metrics.ResultRejected},
		{domain.ErrTooManyAttempts, metrics.ResultThrottled},
		{errors.New("mongo down"), metrics.ResultError},
	}
	for _, tc := range tests {
		stub := &stubAuthService{
			exchangeFn: func(ctx context.Context, username, code string) (string, error) {
				return "", tc.err
			},
		}
		counter := metrics.TokenExchangesTotal.WithLabelValues(tc.result)
		before := testutil.ToFloat64(counter)

		c, rec := newContext(http.MethodPost, "/v1/auth/token", `{"username":"alice","confirmation_code":"nope"}`, authz.Anonymous)
		err := NewAuthHandler(stub).Token(c)

		if !errors.Is(err, tc.err) {
			t.Errorf("%v: expected error to propagate, got %v", tc.err, err)
		}
		if rec.Body.Len() != 0 {
			t.Errorf("%v: handler must not render errors itself", tc.err)
		}
		if got := testutil.ToFloat64(counter) - before; got != 1 {
			t.Errorf("%v: token_exchanges_total{%s} grew by %v, want 1", tc.err, tc.result, got)
		}
	}
}
