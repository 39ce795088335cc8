package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/yamdb/yamdb-api/internal/core/authz"
	"github.com/yamdb/yamdb-api/internal/core/domain"
	"github.com/yamdb/yamdb-api/internal/core/ports"
)

const (
	maxTaxonNameLength = 256
	maxSlugLength      = 50
)

var slugPattern = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)

// CatalogService manages works, categories and genres. Reads are public;
// writes need an admin.
type CatalogService struct {
	categories ports.TaxonomyRepository
	genres     ports.TaxonomyRepository
	works      ports.WorkRepository
	log        zerolog.Logger
	now        func() time.Time
}

func NewCatalogService(categories, genres ports.TaxonomyRepository, works ports.WorkRepository, log zerolog.Logger) *CatalogService {
	return &CatalogService{categories: categories, genres: genres, works: works, log: log, now: time.Now}
}

func (s *CatalogService) ListCategories(ctx context.Context, search string, page ports.Page) ([]*domain.Taxon, int64, error) {
	return s.categories.List(ctx, strings.TrimSpace(search), page)
}

func (s *CatalogService) CreateCategory(ctx context.Context, actor authz.Actor, name, slug string) (*domain.Taxon, error) {
	return s.createTaxon(ctx, actor, s.categories, name, slug)
}

func (s *CatalogService) DeleteCategory(ctx context.Context, actor authz.Actor, slug string) error {
	return s.deleteTaxon(ctx, actor, s.categories, slug)
}

func (s *CatalogService) ListGenres(ctx context.Context, search string, page ports.Page) ([]*domain.Taxon, int64, error) {
	return s.genres.List(ctx, strings.TrimSpace(search), page)
}

func (s *CatalogService) CreateGenre(ctx context.Context, actor authz.Actor, name, slug string) (*domain.Taxon, error) {
	return s.createTaxon(ctx, actor, s.genres, name, slug)
}

func (s *CatalogService) DeleteGenre(ctx context.Context, actor authz.Actor, slug string) error {
	return s.deleteTaxon(ctx, actor, s.genres, slug)
}

func (s *CatalogService) createTaxon(ctx context.Context, actor authz.Actor, repo ports.TaxonomyRepository, name, slug string) (*domain.Taxon, error) {
	if err := authz.Authorize(actor, authz.VerbCreate, authz.Catalog()); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	slug = strings.TrimSpace(slug)
	if name == "" || len(name) > maxTaxonNameLength {
		return nil, domain.NewValidationError("name", "must be 1-%d characters", maxTaxonNameLength)
	}
	if len(slug) > maxSlugLength || !slugPattern.MatchString(slug) {
		return nil, domain.NewValidationError("slug", "must be 1-%d characters of letters, digits, - and _", maxSlugLength)
	}

	taxon, err := repo.Create(ctx, name, slug)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateSlug) {
			return nil, domain.FieldError("slug", domain.ErrDuplicateSlug)
		}
		return nil, fmt.Errorf("create taxon: %w", err)
	}
	return taxon, nil
}

func (s *CatalogService) deleteTaxon(ctx context.Context, actor authz.Actor, repo ports.TaxonomyRepository, slug string) error {
	if err := authz.Authorize(actor, authz.VerbDelete, authz.Catalog()); err != nil {
		return err
	}
	return repo.Delete(ctx, slug)
}

func (s *CatalogService) ListWorks(ctx context.Context, page ports.Page) ([]*domain.Work, int64, error) {
	return s.works.List(ctx, page)
}

func (s *CatalogService) GetWork(ctx context.Context, id int64) (*domain.Work, error) {
	return s.works.FindByID(ctx, id)
}

func (s *CatalogService) CreateWork(ctx context.Context, actor authz.Actor, in ports.WorkInput) (*domain.Work, error) {
	if err := authz.Authorize(actor, authz.VerbCreate, authz.Catalog()); err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, domain.NewValidationError("name", "must not be blank")
	}
	if err := s.validateYear(in.Year); err != nil {
		return nil, err
	}

	work := &domain.Work{
		Name:        in.Name,
		Year:        in.Year,
		Description: in.Description,
		Genres:      []domain.Taxon{},
	}
	if in.Category != "" {
		category, err := s.resolveCategory(ctx, in.Category)
		if err != nil {
			return nil, err
		}
		work.Category = category
	}
	genres, err := s.resolveGenres(ctx, in.Genres)
	if err != nil {
		return nil, err
	}
	work.Genres = genres

	if err := s.works.Create(ctx, work); err != nil {
		return nil, fmt.Errorf("create work: %w", err)
	}

	s.log.Info().Int64("work_id", work.ID).Str("name", work.Name).Msg("work created")
	return work, nil
}

func (s *CatalogService) UpdateWork(ctx context.Context, actor authz.Actor, id int64, in ports.WorkPatchInput) (*domain.Work, error) {
	if err := authz.Authorize(actor, authz.VerbUpdate, authz.Catalog()); err != nil {
		return nil, err
	}
	if _, err := s.works.FindByID(ctx, id); err != nil {
		return nil, fmt.Errorf("update work: %w", err)
	}

	patch := domain.WorkPatch{Year: in.Year, Description: in.Description}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, domain.NewValidationError("name", "must not be blank")
		}
		patch.Name = &name
	}
	if err := s.validateYear(in.Year); err != nil {
		return nil, err
	}
	if in.Category != nil {
		category, err := s.resolveCategory(ctx, *in.Category)
		if err != nil {
			return nil, err
		}
		patch.Category = category
	}
	if in.Genres != nil {
		genres, err := s.resolveGenres(ctx, *in.Genres)
		if err != nil {
			return nil, err
		}
		patch.Genres = &genres
	}

	work, err := s.works.Update(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("update work: %w", err)
	}
	return work, nil
}

func (s *CatalogService) DeleteWork(ctx context.Context, actor authz.Actor, id int64) error {
	if err := authz.Authorize(actor, authz.VerbDelete, authz.Catalog()); err != nil {
		return err
	}
	if err := s.works.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete work: %w", err)
	}
	s.log.Info().Int64("work_id", id).Str("by", actor.Username).Msg("work deleted")
	return nil
}

// validateYear rejects release years in the future.
func (s *CatalogService) validateYear(year *int) error {
	if year != nil && *year > s.now().Year() {
		return domain.NewValidationError("year", "must not be in the future")
	}
	return nil
}

func (s *CatalogService) resolveCategory(ctx context.Context, slug string) (*domain.Taxon, error) {
	category, err := s.categories.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, domain.ErrCategoryNotFound) {
			return nil, domain.NewValidationError("category", "unknown category %q", slug)
		}
		return nil, fmt.Errorf("resolve category: %w", err)
	}
	return category, nil
}

func (s *CatalogService) resolveGenres(ctx context.Context, slugs []string) ([]domain.Taxon, error) {
	genres := make([]domain.Taxon, 0, len(slugs))
	seen := make(map[string]bool, len(slugs))
	for _, slug := range slugs {
		if seen[slug] {
			continue
		}
		seen[slug] = true

		genre, err := s.genres.FindBySlug(ctx, slug)
		if err != nil {
			if errors.Is(err, domain.ErrGenreNotFound) {
				return nil, domain.NewValidationError("genre", "unknown genre %q", slug)
			}
			return nil, fmt.Errorf("resolve genre: %w", err)
		}
		genres = append(genres, *genre)
	}
	return genres, nil
}
