package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/yamdb/yamdb-api/internal/core/authz"
	"github.com/yamdb/yamdb-api/internal/core/domain"
	"github.com/yamdb/yamdb-api/internal/core/ports"
)

// RatingRecomputer refreshes derived work ratings after bulk review removals.
type RatingRecomputer interface {
	RecomputeRatings(ctx context.Context, workIDs []int64) error
}

// UserService serves the self-profile and the admin user-settings surface.
type UserService struct {
	users    ports.UserRepository
	reviews  ports.ReviewRepository
	comments ports.CommentRepository
	ratings  RatingRecomputer
	log      zerolog.Logger
	now      func() time.Time
}

func NewUserService(
	users ports.UserRepository,
	reviews ports.ReviewRepository,
	comments ports.CommentRepository,
	ratings RatingRecomputer,
	log zerolog.Logger,
) *UserService {
	return &UserService{
		users:    users,
		reviews:  reviews,
		comments: comments,
		ratings:  ratings,
		log:      log,
		now:      time.Now,
	}
}

func (s *UserService) Me(ctx context.Context, actor authz.Actor) (*domain.User, error) {
	if err := authz.Authorize(actor, authz.VerbRead, authz.UserSelf(actor.UserID)); err != nil {
		return nil, err
	}
	return s.users.FindByID(ctx, actor.UserID)
}

func (s *UserService) UpdateMe(ctx context.Context, actor authz.Actor, patch domain.ProfilePatch) (*domain.User, error) {
	if err := authz.Authorize(actor, authz.VerbUpdate, authz.UserSelf(actor.UserID)); err != nil {
		return nil, err
	}
	patch = patch.WithoutRole()
	if err := validateProfilePatch(patch); err != nil {
		return nil, err
	}

	user, err := s.users.UpdateProfile(ctx, actor.Username, patch)
	if err != nil {
		return nil, collisionError("update profile", err)
	}
	return user, nil
}

func (s *UserService) List(ctx context.Context, actor authz.Actor, search string, page ports.Page) ([]*domain.User, int64, error) {
	if err := authz.Authorize(actor, authz.VerbRead, authz.UserAdmin()); err != nil {
		return nil, 0, err
	}
	return s.users.List(ctx, strings.TrimSpace(search), page)
}

func (s *UserService) Create(ctx context.Context, actor authz.Actor, in ports.CreateUserInput) (*domain.User, error) {
	if err := authz.Authorize(actor, authz.VerbCreate, authz.UserAdmin()); err != nil {
		return nil, err
	}

	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if err := validateIdentity(in.Username, in.Email); err != nil {
		return nil, err
	}
	if in.Username == domain.ReservedUsername {
		return nil, domain.ErrReservedUsername
	}
	if in.Role == "" {
		in.Role = domain.RoleUser
	}
	if !in.Role.Valid() {
		return nil, domain.NewValidationError("role", "must be one of user, moderator, admin")
	}
	if err := validateNames(&in.FirstName, &in.LastName); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	user, err := s.users.Create(ctx, &domain.User{
		Username:  in.Username,
		Email:     in.Email,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Bio:       in.Bio,
		Role:      in.Role,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, collisionError("create user", err)
	}

	s.log.Info().Str("username", user.Username).Str("role", string(user.Role)).Str("by", actor.Username).Msg("user created")
	return user, nil
}

// CreateAdmin bootstraps a privileged administrator with the same identity
// checks as signup. It skips the access policy and backs the operator CLI.
func (s *UserService) CreateAdmin(ctx context.Context, username, email string) (*domain.User, error) {
	username, email = strings.TrimSpace(username), strings.TrimSpace(email)
	if err := validateIdentity(username, email); err != nil {
		return nil, err
	}
	if username == domain.ReservedUsername {
		return nil, domain.ErrReservedUsername
	}

	now := s.now().UTC()
	user, err := s.users.Create(ctx, &domain.User{
		Username:     username,
		Email:        email,
		Role:         domain.RoleAdmin,
		IsPrivileged: true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, collisionError("create admin", err)
	}

	s.log.Info().Int64("user_id", user.ID).Str("username", user.Username).Msg("administrator created")
	return user, nil
}

func (s *UserService) Get(ctx context.Context, actor authz.Actor, username string) (*domain.User, error) {
	if err := authz.Authorize(actor, authz.VerbRead, authz.UserAdmin()); err != nil {
		return nil, err
	}
	return s.users.FindByUsername(ctx, username)
}

// Update applies an admin patch, role included.
func (s *UserService) Update(ctx context.Context, actor authz.Actor, username string, patch domain.ProfilePatch) (*domain.User, error) {
	if err := authz.Authorize(actor, authz.VerbUpdate, authz.UserAdmin()); err != nil {
		return nil, err
	}
	if err := validateProfilePatch(patch); err != nil {
		return nil, err
	}
	if patch.Role != nil && !patch.Role.Valid() {
		return nil, domain.NewValidationError("role", "must be one of user, moderator, admin")
	}

	role := patch.Role
	user, err := s.users.UpdateProfile(ctx, username, patch.WithoutRole())
	if err != nil {
		return nil, collisionError("update user", err)
	}
	if role != nil && *role != user.Role {
		if user, err = s.users.UpdateRole(ctx, user.Username, *role); err != nil {
			return nil, fmt.Errorf("update user: %w", err)
		}
		s.log.Info().Str("username", user.Username).Str("role", string(*role)).Str("by", actor.Username).Msg("role changed")
	}
	return user, nil
}

// Delete removes a user together with their reviews and comments and
// recomputes the ratings of every work they had reviewed.
func (s *UserService) Delete(ctx context.Context, actor authz.Actor, username string) error {
	if err := authz.Authorize(actor, authz.VerbDelete, authz.UserAdmin()); err != nil {
		return err
	}
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	if err := s.comments.DeleteByAuthor(ctx, user.ID); err != nil {
		return fmt.Errorf("delete user comments: %w", err)
	}
	workIDs, err := s.reviews.DeleteByAuthor(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("delete user reviews: %w", err)
	}
	if err := s.users.Delete(ctx, user.Username); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if err := s.ratings.RecomputeRatings(ctx, workIDs); err != nil {
		return err
	}

	s.log.Info().Str("username", user.Username).Int("works_affected", len(workIDs)).Str("by", actor.Username).Msg("user deleted")
	return nil
}

func validateProfilePatch(p domain.ProfilePatch) error {
	if p.Username != nil {
		*p.Username = strings.TrimSpace(*p.Username)
		if !domain.ValidUsername(*p.Username) {
			return domain.NewValidationError("username",
				"must be 1-%d characters of letters, digits and @/./+/-/_", domain.MaxUsernameLength)
		}
		if *p.Username == domain.ReservedUsername {
			return domain.ErrReservedUsername
		}
	}
	if p.Email != nil {
		*p.Email = strings.TrimSpace(*p.Email)
		if err := validateEmail(*p.Email); err != nil {
			return err
		}
	}
	return validateNames(p.FirstName, p.LastName)
}

func validateNames(first, last *string) error {
	if first != nil && len(*first) > domain.MaxNameLength {
		return domain.NewValidationError("first_name", "must be at most %d characters", domain.MaxNameLength)
	}
	if last != nil && len(*last) > domain.MaxNameLength {
		return domain.NewValidationError("last_name", "must be at most %d characters", domain.MaxNameLength)
	}
	return nil
}

func collisionError(op string, err error) error {
	switch {
	case errors.Is(err, domain.ErrUsernameTaken):
		return domain.FieldError("username", domain.ErrUsernameTaken)
	case errors.Is(err, domain.ErrEmailTaken):
		return domain.FieldError("email", domain.ErrEmailTaken)
	}
	return fmt.Errorf("%s: %w", op, err)
}
