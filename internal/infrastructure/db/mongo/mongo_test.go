package mongo

import (
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/yamdb/yamdb-api/internal/core/domain"
	"github.com/yamdb/yamdb-api/internal/core/ports"
)

func TestMatchPair(t *testing.T) {
	alice := &mongoUser{ID: 1, Username: "alice", Email: "alice@example.com"}
	bob := &mongoUser{ID: 2, Username: "bob", Email: "bob@example.com"}

	tests := []struct {
		name    string
		byName  *mongoUser
		byMail  *mongoUser
		selfID  int64
		want    *mongoUser
		wantErr error
	}{
		{"exact pair", alice, alice, 0, alice, nil},
		{"free pair", nil, nil, 0, nil, domain.ErrUserNotFound},
		{"username taken", alice, nil, 0, nil, domain.ErrUsernameTaken},
		{"email taken", nil, alice, 0, nil, domain.ErrEmailTaken},
		{"split across users", alice, bob, 0, nil, domain.ErrUsernameTaken},
		{"own username on update", alice, bob, 1, nil, domain.ErrEmailTaken},
		{"own email on update", bob, alice, 1, nil, domain.ErrUsernameTaken},
		{"own values on update", alice, nil, 1, nil, domain.ErrUserNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := matchPair(tc.byName, tc.byMail, tc.selfID)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
			if got != tc.want {
				t.Fatalf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestMongoUser_RoundTrip(t *testing.T) {
	u := &domain.User{ID: 3, Username: "carol", Email: "c@example.com", Role: domain.RoleModerator}
	doc := toMongoUser(u)
	if doc.LastLogin != 0 || doc.CodeIssuedAt != 0 {
		t.Fatalf("zero times should be stored as 0: %+v", doc)
	}
	back := doc.toDomain()
	if back.LastLogin != nil || !back.CodeIssuedAt.IsZero() {
		t.Fatalf("unexpected times: %+v", back)
	}
	if back.Role != domain.RoleModerator || back.Username != "carol" {
		t.Fatalf("unexpected user: %+v", back)
	}
}

func TestFindPage(t *testing.T) {
	opts := findPage(ports.Page{Limit: 5, Offset: 10})
	if opts.Limit == nil || *opts.Limit != 5 {
		t.Errorf("limit = %v", opts.Limit)
	}
	if opts.Skip == nil || *opts.Skip != 10 {
		t.Errorf("skip = %v", opts.Skip)
	}

	opts = findPage(ports.Page{})
	if opts.Limit != nil || opts.Skip != nil {
		t.Errorf("empty page should not limit: %+v", opts)
	}
}

func TestContainsFilter(t *testing.T) {
	if f := containsFilter("username", ""); len(f) != 0 {
		t.Fatalf("empty search should match all, got %v", f)
	}
	f := containsFilter("username", "a.b")
	inner, ok := f["username"].(bson.M)
	if !ok || inner["$regex"] != `a\.b` || inner["$options"] != "i" {
		t.Fatalf("unexpected filter %v", f)
	}
}

func TestIndexSpecs_UniqueReviewPerAuthor(t *testing.T) {
	specs := indexSpecs()
	var found bool
	for _, m := range specs[collReviews] {
		if m.Options != nil && m.Options.Unique != nil && *m.Options.Unique {
			keys := m.Keys.(bson.D)
			if len(keys) == 2 && keys[0].Key == "work_id" && keys[1].Key == "author.id" {
				found = true
			}
		}
	}
	if !found {
		t.Fatal("reviews must carry a unique (work_id, author.id) index")
	}
	if len(specs[collUsers]) != 2 {
		t.Fatalf("users need unique username and email indexes, have %d", len(specs[collUsers]))
	}
}

func TestRatingFilter_OnlyNewerRevisions(t *testing.T) {
	f := ratingFilter(7, 3)
	if f["_id"] != int64(7) {
		t.Fatalf("unexpected id in %v", f)
	}
	or, ok := f["$or"].(bson.A)
	if !ok || len(or) != 2 {
		t.Fatalf("unexpected $or in %v", f)
	}
	lt := or[0].(bson.M)["rating_applied_rev"].(bson.M)
	if lt["$lt"] != int64(3) {
		t.Fatalf("rating must only be written below revision 3, got %v", lt)
	}
	if _, ok := or[1].(bson.M)["rating_applied_rev"].(bson.M)["$exists"]; !ok {
		t.Fatal("works never rated must accept the first revision")
	}
}
