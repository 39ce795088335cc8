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

// ReviewRepository stores reviews. The unique index on (work_id, author.id)
// makes a second review by the same author fail at insert time.
type ReviewRepository struct {
	db   *mongo.Database
	coll *mongo.Collection
}

func NewReviewRepository(db *mongo.Database) *ReviewRepository {
	return &ReviewRepository{db: db, coll: db.Collection(collReviews)}
}

func (r *ReviewRepository) Create(ctx context.Context, rv *domain.Review) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	id, err := nextID(ctx, r.db, collReviews)
	if err != nil {
		return err
	}
	rv.ID = id
	if _, err := r.coll.InsertOne(ctx, rv); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicateReview
		}
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

func (r *ReviewRepository) FindByID(ctx context.Context, workID, id int64) (*domain.Review, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var rv domain.Review
	if err := r.coll.FindOne(ctx, bson.M{"_id": id, "work_id": workID}).Decode(&rv); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrReviewNotFound
		}
		return nil, fmt.Errorf("find review: %w", err)
	}
	return &rv, nil
}

func (r *ReviewRepository) ListByWork(ctx context.Context, workID int64, page ports.Page) ([]*domain.Review, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"work_id": workID}
	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count reviews: %w", err)
	}
	cur, err := r.coll.Find(ctx, filter, findPage(page))
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	reviews := []*domain.Review{}
	if err := cur.All(ctx, &reviews); err != nil {
		return nil, 0, fmt.Errorf("decode reviews: %w", err)
	}
	return reviews, total, nil
}

func (r *ReviewRepository) Update(ctx context.Context, rv *domain.Review) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"_id": rv.ID, "work_id": rv.WorkID}
	update := bson.M{"$set": bson.M{"text": rv.Text, "score": rv.Score}}
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrReviewNotFound
	}
	return nil
}

// Delete removes the review and its comments.
func (r *ReviewRepository) Delete(ctx context.Context, workID, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id, "work_id": workID})
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrReviewNotFound
	}
	if _, err := r.db.Collection(collComments).DeleteMany(ctx, bson.M{"review_id": id}); err != nil {
		return fmt.Errorf("delete review comments: %w", err)
	}
	return nil
}

func (r *ReviewRepository) DeleteByAuthor(ctx context.Context, authorID int64) ([]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"author.id": authorID}
	raw, err := r.coll.Distinct(ctx, "work_id", filter)
	if err != nil {
		return nil, fmt.Errorf("distinct reviewed titles: %w", err)
	}
	workIDs := make([]int64, 0, len(raw))
	for _, v := range raw {
		if id, ok := v.(int64); ok {
			workIDs = append(workIDs, id)
		}
	}

	reviewIDs, err := reviewIDsWhere(ctx, r.db, filter)
	if err != nil {
		return nil, err
	}
	if err := deleteReviews(ctx, r.db, reviewIDs); err != nil {
		return nil, err
	}
	return workIDs, nil
}

type scoreAverage struct {
	Avg *float64 `bson:"avg"`
}

// AverageScore runs a $avg aggregation over the work's reviews.
func (r *ReviewRepository) AverageScore(ctx context.Context, workID int64) (*float64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"work_id": workID}}},
		{{Key: "$group", Value: bson.M{"_id": nil, "avg": bson.M{"$avg": "$score"}}}},
	}
	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("average score: %w", err)
	}
	var out []scoreAverage
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode average score: %w", err)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0].Avg, nil
}

type idDoc struct {
	ID int64 `bson:"_id"`
}

func reviewIDsWhere(ctx context.Context, db *mongo.Database, filter bson.M) ([]int64, error) {
	opts := options.Find().SetProjection(bson.M{"_id": 1})
	cur, err := db.Collection(collReviews).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find review ids: %w", err)
	}
	var docs []idDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode review ids: %w", err)
	}
	ids := make([]int64, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	return ids, nil
}

// deleteReviews removes the given reviews and every comment under them.
func deleteReviews(ctx context.Context, db *mongo.Database, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := db.Collection(collComments).DeleteMany(ctx, bson.M{"review_id": bson.M{"$in": ids}}); err != nil {
		return fmt.Errorf("delete comments: %w", err)
	}
	if _, err := db.Collection(collReviews).DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}}); err != nil {
		return fmt.Errorf("delete reviews: %w", err)
	}
	return nil
}

var _ ports.ReviewRepository = (*ReviewRepository)(nil)
