package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/yamdb/yamdb-api/internal/core/domain"
	"github.com/yamdb/yamdb-api/internal/core/ports"
)

// TaxonomyRepository stores one classifier family (categories or genres).
// Works embed a copy of their taxa, so deleting a taxon also detaches it from
// every work.
type TaxonomyRepository struct {
	db       *mongo.Database
	coll     *mongo.Collection
	seq      string
	notFound error
	detach   func(slug string) (bson.M, bson.M)
}

// NewCategoryRepository returns the repository for the many-to-one category
// of a work.
func NewCategoryRepository(db *mongo.Database) *TaxonomyRepository {
	return &TaxonomyRepository{
		db:       db,
		coll:     db.Collection(collCategories),
		seq:      collCategories,
		notFound: domain.ErrCategoryNotFound,
		detach: func(slug string) (bson.M, bson.M) {
			return bson.M{"category.slug": slug}, bson.M{"$unset": bson.M{"category": ""}}
		},
	}
}

// NewGenreRepository returns the repository for the many-to-many genres of a
// work.
func NewGenreRepository(db *mongo.Database) *TaxonomyRepository {
	return &TaxonomyRepository{
		db:       db,
		coll:     db.Collection(collGenres),
		seq:      collGenres,
		notFound: domain.ErrGenreNotFound,
		detach: func(slug string) (bson.M, bson.M) {
			return bson.M{"genres.slug": slug}, bson.M{"$pull": bson.M{"genres": bson.M{"slug": slug}}}
		},
	}
}

func (r *TaxonomyRepository) Create(ctx context.Context, name, slug string) (*domain.Taxon, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	id, err := nextID(ctx, r.db, r.seq)
	if err != nil {
		return nil, err
	}
	t := &domain.Taxon{ID: id, Name: name, Slug: slug}
	if _, err := r.coll.InsertOne(ctx, t); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrDuplicateSlug
		}
		return nil, fmt.Errorf("insert %s: %w", r.seq, err)
	}
	return t, nil
}

func (r *TaxonomyRepository) List(ctx context.Context, search string, page ports.Page) ([]*domain.Taxon, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := containsFilter("name", search)
	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count %s: %w", r.seq, err)
	}
	cur, err := r.coll.Find(ctx, filter, findPage(page))
	if err != nil {
		return nil, 0, fmt.Errorf("list %s: %w", r.seq, err)
	}
	taxa := []*domain.Taxon{}
	if err := cur.All(ctx, &taxa); err != nil {
		return nil, 0, fmt.Errorf("decode %s: %w", r.seq, err)
	}
	return taxa, total, nil
}

func (r *TaxonomyRepository) FindBySlug(ctx context.Context, slug string) (*domain.Taxon, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var t domain.Taxon
	if err := r.coll.FindOne(ctx, bson.M{"slug": slug}).Decode(&t); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, r.notFound
		}
		return nil, fmt.Errorf("find %s: %w", r.seq, err)
	}
	return &t, nil
}

func (r *TaxonomyRepository) Delete(ctx context.Context, slug string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll.DeleteOne(ctx, bson.M{"slug": slug})
	if err != nil {
		return fmt.Errorf("delete %s: %w", r.seq, err)
	}
	if res.DeletedCount == 0 {
		return r.notFound
	}

	filter, update := r.detach(slug)
	if _, err := r.db.Collection(collWorks).UpdateMany(ctx, filter, update); err != nil {
		return fmt.Errorf("detach %s from titles: %w", r.seq, err)
	}
	return nil
}

var _ ports.TaxonomyRepository = (*TaxonomyRepository)(nil)
