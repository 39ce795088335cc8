package ports

import (
	"context"

	"github.com/yamdb/yamdb-api/internal/core/domain"
)

// TaxonomyRepository stores categories or genres; both are (name, slug) pairs
// looked up by slug.
type TaxonomyRepository interface {
	// Create fails with ErrDuplicateSlug when slug is taken.
	Create(ctx context.Context, name, slug string) (*domain.Taxon, error)
	List(ctx context.Context, search string, page Page) ([]*domain.Taxon, int64, error)
	FindBySlug(ctx context.Context, slug string) (*domain.Taxon, error)
	// Delete removes the taxon and detaches it from every work carrying it.
	Delete(ctx context.Context, slug string) error
}

// WorkRepository stores catalogued works.
type WorkRepository interface {
	Create(ctx context.Context, w *domain.Work) error
	FindByID(ctx context.Context, id int64) (*domain.Work, error)
	List(ctx context.Context, page Page) ([]*domain.Work, int64, error)
	Update(ctx context.Context, id int64, patch domain.WorkPatch) (*domain.Work, error)
	// Delete removes the work together with its reviews and their comments.
	Delete(ctx context.Context, id int64) error
	// NextRatingRevision claims the next rating revision of the work. Claim it
	// after changing the work's reviews and before reading their average.
	NextRatingRevision(ctx context.Context, id int64) (int64, error)
	// SetRating stores the derived rating computed under rev; nil clears it.
	// A rating computed under an older revision than the applied one is
	// dropped.
	SetRating(ctx context.Context, id int64, rating *float64, rev int64) error
}

// ReviewRepository stores reviews. Implementations must enforce uniqueness of
// (work, author) at write time.
type ReviewRepository interface {
	// Create inserts r and assigns its ID. A second review by the same author
	// for the same work fails with ErrDuplicateReview.
	Create(ctx context.Context, r *domain.Review) error
	// FindByID returns the review only when it belongs to workID.
	FindByID(ctx context.Context, workID, id int64) (*domain.Review, error)
	ListByWork(ctx context.Context, workID int64, page Page) ([]*domain.Review, int64, error)
	Update(ctx context.Context, r *domain.Review) error
	// Delete removes the review and its comments.
	Delete(ctx context.Context, workID, id int64) error
	// DeleteByAuthor removes every review (and their comments) written by
	// authorID and returns the affected work IDs.
	DeleteByAuthor(ctx context.Context, authorID int64) ([]int64, error)
	// AverageScore returns the mean score of workID's reviews, nil when none.
	AverageScore(ctx context.Context, workID int64) (*float64, error)
}

// CommentRepository stores comments.
type CommentRepository interface {
	Create(ctx context.Context, c *domain.Comment) error
	FindByID(ctx context.Context, reviewID, id int64) (*domain.Comment, error)
	ListByReview(ctx context.Context, reviewID int64, page Page) ([]*domain.Comment, int64, error)
	Update(ctx context.Context, c *domain.Comment) error
	Delete(ctx context.Context, reviewID, id int64) error
	DeleteByAuthor(ctx context.Context, authorID int64) error
}
