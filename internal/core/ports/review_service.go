package ports

import (
	"context"

	"github.com/yamdb/yamdb-api/internal/core/authz"
	"github.com/yamdb/yamdb-api/internal/core/domain"
)

// ReviewPatch is a partial review update.
type ReviewPatch struct {
	Text  *string
	Score *int
}

// ReviewService guards the one-review-per-author-per-work invariant and keeps
// work ratings in sync with persisted scores.
type ReviewService interface {
	List(ctx context.Context, workID int64, page Page) ([]*domain.Review, int64, error)
	Get(ctx context.Context, workID, id int64) (*domain.Review, error)
	Create(ctx context.Context, actor authz.Actor, workID int64, score int, text string) (*domain.Review, error)
	Update(ctx context.Context, actor authz.Actor, workID, id int64, patch ReviewPatch) (*domain.Review, error)
	Delete(ctx context.Context, actor authz.Actor, workID, id int64) error
}

// CommentService manages comments under a review.
type CommentService interface {
	List(ctx context.Context, workID, reviewID int64, page Page) ([]*domain.Comment, int64, error)
	Get(ctx context.Context, workID, reviewID, id int64) (*domain.Comment, error)
	Create(ctx context.Context, actor authz.Actor, workID, reviewID int64, text string) (*domain.Comment, error)
	Update(ctx context.Context, actor authz.Actor, workID, reviewID, id int64, text string) (*domain.Comment, error)
	Delete(ctx context.Context, actor authz.Actor, workID, reviewID, id int64) error
}
