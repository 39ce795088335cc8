package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/yamdb/yamdb-api/internal/core/domain"
	"github.com/yamdb/yamdb-api/internal/core/ports"
)

// WorkRepository stores titles. Category and genres are embedded copies of
// the taxa; rating is the derived mean written by the review service.
type WorkRepository struct {
	db   *mongo.Database
	coll *mongo.Collection
}

func NewWorkRepository(db *mongo.Database) *WorkRepository {
	return &WorkRepository{db: db, coll: db.Collection(collWorks)}
}

// Create inserts a new work and assigns its ID.
func (r *WorkRepository) Create(ctx context.Context, w *domain.Work) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	id, err := nextID(ctx, r.db, collWorks)
	if err != nil {
		return err
	}
	w.ID = id
	if w.Genres == nil {
		w.Genres = []domain.Taxon{}
	}
	if _, err := r.coll.InsertOne(ctx, w); err != nil {
		return fmt.Errorf("insert title: %w", err)
	}
	return nil
}

func (r *WorkRepository) FindByID(ctx context.Context, id int64) (*domain.Work, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var w domain.Work
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&w); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrWorkNotFound
		}
		return nil, fmt.Errorf("find title: %w", err)
	}
	return &w, nil
}

func (r *WorkRepository) List(ctx context.Context, page ports.Page) ([]*domain.Work, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	total, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, fmt.Errorf("count titles: %w", err)
	}
	cur, err := r.coll.Find(ctx, bson.M{}, findPage(page))
	if err != nil {
		return nil, 0, fmt.Errorf("list titles: %w", err)
	}
	works := []*domain.Work{}
	if err := cur.All(ctx, &works); err != nil {
		return nil, 0, fmt.Errorf("decode titles: %w", err)
	}
	return works, total, nil
}

func (r *WorkRepository) Update(ctx context.Context, id int64, patch domain.WorkPatch) (*domain.Work, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	set := bson.M{}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Year != nil {
		set["year"] = *patch.Year
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Category != nil {
		set["category"] = patch.Category
	}
	if patch.Genres != nil {
		set["genres"] = *patch.Genres
	}
	if len(set) == 0 {
		return r.FindByID(ctx, id)
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var w domain.Work
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&w); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrWorkNotFound
		}
		return nil, fmt.Errorf("update title: %w", err)
	}
	return &w, nil
}

// Delete removes the work, its reviews and their comments.
func (r *WorkRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete title: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrWorkNotFound
	}

	reviewIDs, err := reviewIDsWhere(ctx, r.db, bson.M{"work_id": id})
	if err != nil {
		return err
	}
	return deleteReviews(ctx, r.db, reviewIDs)
}

// NextRatingRevision increments the work's rating_rev counter and returns it.
func (r *WorkRepository) NextRatingRevision(ctx context.Context, id int64) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"rating_rev": 1})
	var doc struct {
		Rev int64 `bson:"rating_rev"`
	}
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"rating_rev": 1}}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, domain.ErrWorkNotFound
		}
		return 0, fmt.Errorf("claim rating revision: %w", err)
	}
	return doc.Rev, nil
}

// SetRating writes rating only while rating_applied_rev is below rev. A
// filter miss means a newer recompute already landed or the work is gone;
// neither is an error.
func (r *WorkRepository) SetRating(ctx context.Context, id int64, rating *float64, rev int64) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.coll.UpdateOne(ctx, ratingFilter(id, rev), bson.M{"$set": bson.M{
		"rating":             rating,
		"rating_applied_rev": rev,
	}})
	if err != nil {
		return fmt.Errorf("set rating: %w", err)
	}
	return nil
}

func ratingFilter(id, rev int64) bson.M {
	return bson.M{
		"_id": id,
		"$or": bson.A{
			bson.M{"rating_applied_rev": bson.M{"$lt": rev}},
			bson.M{"rating_applied_rev": bson.M{"$exists": false}},
		},
	}
}

var _ ports.WorkRepository = (*WorkRepository)(nil)
