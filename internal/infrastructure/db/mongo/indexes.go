package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// indexSpecs lists the indexes every collection needs. The unique ones carry
// integrity rules: one user per username and per email, one taxon per slug,
// one review per (title, author).
func indexSpecs() map[string][]mongo.IndexModel {
	unique := func(name string) *options.IndexOptions {
		return options.Index().SetName(name).SetUnique(true)
	}
	return map[string][]mongo.IndexModel{
		collUsers: {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: unique("uniq_username")},
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique("uniq_email")},
		},
		collCategories: {
			{Keys: bson.D{{Key: "slug", Value: 1}}, Options: unique("uniq_slug")},
		},
		collGenres: {
			{Keys: bson.D{{Key: "slug", Value: 1}}, Options: unique("uniq_slug")},
		},
		collWorks: {
			{Keys: bson.D{{Key: "category.slug", Value: 1}}},
			{Keys: bson.D{{Key: "genres.slug", Value: 1}}},
		},
		collReviews: {
			{Keys: bson.D{{Key: "work_id", Value: 1}, {Key: "author.id", Value: 1}}, Options: unique("uniq_work_author")},
			{Keys: bson.D{{Key: "author.id", Value: 1}}},
			{Keys: bson.D{{Key: "pub_date", Value: -1}}},
		},
		collComments: {
			{Keys: bson.D{{Key: "review_id", Value: 1}}},
			{Keys: bson.D{{Key: "author.id", Value: 1}}},
		},
	}
}

// EnsureIndexes creates the indexes of every collection. It is idempotent.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	for coll, models := range indexSpecs() {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("ensure indexes on %s: %w", coll, err)
		}
	}
	return nil
}
