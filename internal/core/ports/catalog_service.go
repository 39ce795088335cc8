package ports

import (
	"context"

	"github.com/yamdb/yamdb-api/internal/core/authz"
	"github.com/yamdb/yamdb-api/internal/core/domain"
)

// WorkInput carries a new work. Category and Genres are slugs.
type WorkInput struct {
	Name        string
	Year        *int
	Description string
	Category    string
	Genres      []string
}

// WorkPatchInput is a partial work update. Category and Genres are slugs.
type WorkPatchInput struct {
	Name        *string
	Year        *int
	Description *string
	Category    *string
	Genres      *[]string
}

// CatalogService manages works and their taxonomy.
type CatalogService interface {
	ListCategories(ctx context.Context, search string, page Page) ([]*domain.Taxon, int64, error)
	CreateCategory(ctx context.Context, actor authz.Actor, name, slug string) (*domain.Taxon, error)
	DeleteCategory(ctx context.Context, actor authz.Actor, slug string) error

	ListGenres(ctx context.Context, search string, page Page) ([]*domain.Taxon, int64, error)
	CreateGenre(ctx context.Context, actor authz.Actor, name, slug string) (*domain.Taxon, error)
	DeleteGenre(ctx context.Context, actor authz.Actor, slug string) error

	ListWorks(ctx context.Context, page Page) ([]*domain.Work, int64, error)
	GetWork(ctx context.Context, id int64) (*domain.Work, error)
	CreateWork(ctx context.Context, actor authz.Actor, in WorkInput) (*domain.Work, error)
	UpdateWork(ctx context.Context, actor authz.Actor, id int64, in WorkPatchInput) (*domain.Work, error)
	DeleteWork(ctx context.Context, actor authz.Actor, id int64) error
}
