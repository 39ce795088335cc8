package ports

import (
	"context"
	"time"

	"github.com/yamdb/yamdb-api/internal/core/domain"
)

// Page is a limit/offset window over a list. Limit <= 0 means "no limit".
type Page struct {
	Limit  int
	Offset int
}

// UserRepository is the identity store.
type UserRepository interface {
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)

	// FindOrCreate returns the user holding exactly (username, email), creating
	// it when neither value is in use. created reports whether a record was
	// inserted. It fails with ErrUsernameTaken or ErrEmailTaken when either value
	// belongs to a different user, and with ErrReservedUsername for "me".
	FindOrCreate(ctx context.Context, username, email string) (user *domain.User, created bool, err error)

	// Create inserts a fully populated user (admin path). Collisions surface as
	// ErrUsernameTaken / ErrEmailTaken.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)

	UpdateRole(ctx context.Context, username string, role domain.Role) (*domain.User, error)
	UpdateProfile(ctx context.Context, username string, patch domain.ProfilePatch) (*domain.User, error)
	Delete(ctx context.Context, username string) error

	// List returns users whose username contains search (all when empty),
	// ordered by id, plus the total match count.
	List(ctx context.Context, search string, page Page) ([]*domain.User, int64, error)

	// MarkCodeIssued records the timestamp of the latest confirmation code.
	MarkCodeIssued(ctx context.Context, id int64, at time.Time) error
	// TouchLastLogin records a successful token exchange.
	TouchLastLogin(ctx context.Context, id int64, at time.Time) error
}
