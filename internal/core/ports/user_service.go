package ports

import (
	"context"

	"github.com/yamdb/yamdb-api/internal/core/authz"
	"github.com/yamdb/yamdb-api/internal/core/domain"
)

// CreateUserInput carries an admin-created user.
type CreateUserInput struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
	Bio       string
	Role      domain.Role // empty means RoleUser
}

// UserService exposes the self-profile and admin user-settings operations.
type UserService interface {
	Me(ctx context.Context, actor authz.Actor) (*domain.User, error)
	// UpdateMe applies patch to the actor's own record; the role is never
	// changed through this path.
	UpdateMe(ctx context.Context, actor authz.Actor, patch domain.ProfilePatch) (*domain.User, error)

	List(ctx context.Context, actor authz.Actor, search string, page Page) ([]*domain.User, int64, error)
	Create(ctx context.Context, actor authz.Actor, in CreateUserInput) (*domain.User, error)
	Get(ctx context.Context, actor authz.Actor, username string) (*domain.User, error)
	Update(ctx context.Context, actor authz.Actor, username string, patch domain.ProfilePatch) (*domain.User, error)
	Delete(ctx context.Context, actor authz.Actor, username string) error
}
