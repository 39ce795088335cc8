package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/yamdb/yamdb-api/internal/core/domain"
	"github.com/yamdb/yamdb-api/internal/core/ports"
)

// ConfirmationSubject is the subject line of the confirmation code email.
const ConfirmationSubject = "confirmation_code"

// AttemptLimiter throttles confirmation attempts per key (Redis).
type AttemptLimiter interface {
	// Reserve counts an attempt for key and reports whether it is within the
	// limit. The count is taken before the attempt is checked.
	Reserve(ctx context.Context, key string) (bool, error)
	// Reset clears the attempts recorded for key.
	Reset(ctx context.Context, key string) error
}

// AuthService implements passwordless signup and token exchange.
type AuthService struct {
	users    ports.UserRepository
	codes    *CodeIssuer
	tokens   *TokenIssuer
	mailer   ports.Mailer
	limiter  AttemptLimiter // optional
	mailFrom string
	log      zerolog.Logger
	now      func() time.Time
}

func NewAuthService(
	users ports.UserRepository,
	codes *CodeIssuer,
	tokens *TokenIssuer,
	mailer ports.Mailer,
	limiter AttemptLimiter,
	mailFrom string,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:    users,
		codes:    codes,
		tokens:   tokens,
		mailer:   mailer,
		limiter:  limiter,
		mailFrom: mailFrom,
		log:      log,
		now:      time.Now,
	}
}

// Signup finds or creates the (username, email) identity and mails it a fresh
// confirmation code. Re-signing up with the same pair reuses the record and
// sends a new code, which supersedes the previous one.
func (s *AuthService) Signup(ctx context.Context, username, email string) (*ports.SignupResult, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if err := validateIdentity(username, email); err != nil {
		return nil, err
	}

	user, created, err := s.users.FindOrCreate(ctx, username, email)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUsernameTaken):
			return nil, domain.FieldError("username", domain.ErrUsernameTaken)
		case errors.Is(err, domain.ErrEmailTaken):
			return nil, domain.FieldError("email", domain.ErrEmailTaken)
		case errors.Is(err, domain.ErrReservedUsername):
			return nil, domain.ErrReservedUsername
		}
		return nil, fmt.Errorf("signup: %w", err)
	}

	at := s.now().UTC().Truncate(time.Second)
	if err := s.users.MarkCodeIssued(ctx, user.ID, at); err != nil {
		return nil, fmt.Errorf("signup: mark code issued: %w", err)
	}
	user.CodeIssuedAt = at

	msg := ports.Message{
		Subject: ConfirmationSubject,
		Body:    s.codes.Issue(user, at),
		From:    s.mailFrom,
		To:      []string{user.Email},
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.log.Warn().Err(err).Str("username", user.Username).Msg("confirmation code delivery failed")
		return nil, fmt.Errorf("signup: %w: %w", domain.ErrDelivery, err)
	}

	s.log.Info().
		Int64("user_id", user.ID).
		Str("username", user.Username).
		Bool("created", created).
		Msg("confirmation code sent")

	return &ports.SignupResult{Username: user.Username, Email: user.Email}, nil
}

// ExchangeToken verifies code for username and returns a signed access token.
// The error for a wrong code is the same whatever the reason, so callers
// cannot tell an expired code from a forged one.
func (s *AuthService) ExchangeToken(ctx context.Context, username, code string) (string, error) {
	user, err := s.users.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return "", fmt.Errorf("token: %w", err)
	}

	key := attemptKey(user.ID)
	if s.limiter != nil {
		allowed, err := s.limiter.Reserve(ctx, key)
		if err != nil {
			s.log.Warn().Err(err).Str("username", user.Username).Msg("attempt limiter unavailable, continuing")
		} else if !allowed {
			return "", domain.ErrTooManyAttempts
		}
	}

	if !s.codes.Verify(user, code) {
		return "", domain.ErrInvalidCode
	}

	if err := s.users.TouchLastLogin(ctx, user.ID, s.now().UTC()); err != nil {
		return "", fmt.Errorf("token: touch last login: %w", err)
	}

	token, err := s.tokens.Mint(user)
	if err != nil {
		return "", fmt.Errorf("token: %w", err)
	}

	if s.limiter != nil {
		if err := s.limiter.Reset(ctx, key); err != nil {
			s.log.Warn().Err(err).Str("username", user.Username).Msg("failed to reset confirmation attempts")
		}
	}

	s.log.Info().Int64("user_id", user.ID).Str("username", user.Username).Msg("access token issued")
	return token, nil
}

// Authenticate parses token and loads the user it is bound to. Any failure is
// reported as ErrUnauthenticated.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}
	id, err := claims.UserID()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, fmt.Errorf("%w: user no longer exists", domain.ErrUnauthenticated)
		}
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	return user, nil
}

func attemptKey(userID int64) string {
	return fmt.Sprintf("confirm:%d", userID)
}

// validateIdentity checks the shape of a username/email pair.
func validateIdentity(username, email string) error {
	if !domain.ValidUsername(username) {
		return domain.NewValidationError("username",
			"must be 1-%d characters of letters, digits and @/./+/-/_", domain.MaxUsernameLength)
	}
	if err := validateEmail(email); err != nil {
		return err
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" || len(email) > domain.MaxEmailLength {
		return domain.NewValidationError("email", "must be 1-%d characters", domain.MaxEmailLength)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return domain.NewValidationError("email", "must be a valid email address")
	}
	return nil
}
