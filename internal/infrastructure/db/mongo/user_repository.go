package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/yamdb/yamdb-api/internal/core/domain"
	"github.com/yamdb/yamdb-api/internal/core/ports"
)

// UserRepository stores users in the users collection. Uniqueness of username
// and email is enforced by unique indexes (see EnsureIndexes).
type UserRepository struct {
	db   *mongo.Database
	coll *mongo.Collection
	now  func() time.Time
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{db: db, coll: db.Collection(collUsers), now: time.Now}
}

type mongoUser struct {
	ID           int64  `bson:"_id"`
	Username     string `bson:"username"`
	Email        string `bson:"email"`
	FirstName    string `bson:"first_name"`
	LastName     string `bson:"last_name"`
	Bio          string `bson:"bio"`
	Role         string `bson:"role"`
	IsPrivileged bool   `bson:"is_privileged"`
	LastLogin    int64  `bson:"last_login"`
	CodeIssuedAt int64  `bson:"code_issued_at"`
	CreatedAt    int64  `bson:"created_at"`
	UpdatedAt    int64  `bson:"updated_at"`
}

func toMongoUser(u *domain.User) mongoUser {
	doc := mongoUser{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Bio:          u.Bio,
		Role:         string(u.Role),
		IsPrivileged: u.IsPrivileged,
		CodeIssuedAt: timeToUnix(u.CodeIssuedAt),
		CreatedAt:    timeToUnix(u.CreatedAt),
		UpdatedAt:    timeToUnix(u.UpdatedAt),
	}
	if u.LastLogin != nil {
		doc.LastLogin = u.LastLogin.Unix()
	}
	return doc
}

func (mu *mongoUser) toDomain() *domain.User {
	u := &domain.User{
		ID:           mu.ID,
		Username:     mu.Username,
		Email:        mu.Email,
		FirstName:    mu.FirstName,
		LastName:     mu.LastName,
		Bio:          mu.Bio,
		Role:         domain.Role(mu.Role),
		IsPrivileged: mu.IsPrivileged,
		CodeIssuedAt: unixToTime(mu.CodeIssuedAt),
		CreatedAt:    unixToTime(mu.CreatedAt),
		UpdatedAt:    unixToTime(mu.UpdatedAt),
	}
	if mu.LastLogin != 0 {
		t := unixToTime(mu.LastLogin)
		u.LastLogin = &t
	}
	return u
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*mongoUser, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var mu mongoUser
	if err := r.coll.FindOne(ctx, filter).Decode(&mu); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &mu, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	mu, err := r.findOne(ctx, bson.M{"_id": id})
	if err != nil {
		return nil, err
	}
	return mu.toDomain(), nil
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	mu, err := r.findOne(ctx, bson.M{"username": username})
	if err != nil {
		return nil, err
	}
	return mu.toDomain(), nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	mu, err := r.findOne(ctx, bson.M{"email": email})
	if err != nil {
		return nil, err
	}
	return mu.toDomain(), nil
}

// lookupPair loads the records currently holding username and email.
func (r *UserRepository) lookupPair(ctx context.Context, username, email string) (byName, byMail *mongoUser, err error) {
	byName, err = r.findOne(ctx, bson.M{"username": username})
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return nil, nil, err
	}
	byMail, err = r.findOne(ctx, bson.M{"email": email})
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return nil, nil, err
	}
	return byName, byMail, nil
}

// matchPair classifies an identity lookup: the exact record when both values
// belong to it, a collision error when either belongs to someone else, and
// ErrUserNotFound when neither is in use. selfID is ignored as a collision
// source (0 for none).
func matchPair(byName, byMail *mongoUser, selfID int64) (*mongoUser, error) {
	if byName != nil && byMail != nil && byName.ID == byMail.ID {
		return byName, nil
	}
	if byName != nil && byName.ID != selfID {
		return nil, domain.ErrUsernameTaken
	}
	if byMail != nil && byMail.ID != selfID {
		return nil, domain.ErrEmailTaken
	}
	return nil, domain.ErrUserNotFound
}

func (r *UserRepository) FindOrCreate(ctx context.Context, username, email string) (*domain.User, bool, error) {
	byName, byMail, err := r.lookupPair(ctx, username, email)
	if err != nil {
		return nil, false, err
	}
	existing, err := matchPair(byName, byMail, 0)
	if err == nil {
		return existing.toDomain(), false, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, false, err
	}
	if username == domain.ReservedUsername {
		return nil, false, domain.ErrReservedUsername
	}

	now := r.now().UTC()
	created, err := r.insert(ctx, &domain.User{
		Username:  username,
		Email:     email,
		Role:      domain.RoleUser,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err == nil {
		return created, true, nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return nil, false, err
	}

	// Lost an insert race: whoever won decides whether this is the same
	// identity or a collision.
	byName, byMail, lookupErr := r.lookupPair(ctx, username, email)
	if lookupErr != nil {
		return nil, false, lookupErr
	}
	existing, err = matchPair(byName, byMail, 0)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, false, domain.ErrUsernameTaken
		}
		return nil, false, err
	}
	return existing.toDomain(), false, nil
}

func (r *UserRepository) insert(ctx context.Context, user *domain.User) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	id, err := nextID(ctx, r.db, collUsers)
	if err != nil {
		return nil, err
	}
	doc := toMongoUser(user)
	doc.ID = id
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return doc.toDomain(), nil
}

// collision resolves a duplicate-key error on a write by user selfID into the
// matching sentinel.
func (r *UserRepository) collision(ctx context.Context, username, email string, selfID int64) error {
	byName, byMail, err := r.lookupPair(ctx, username, email)
	if err != nil {
		return err
	}
	if _, err := matchPair(byName, byMail, selfID); err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return err
	}
	return domain.ErrUsernameTaken
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	created, err := r.insert(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, r.collision(ctx, user.Username, user.Email, 0)
		}
		return nil, err
	}
	return created, nil
}

func (r *UserRepository) update(ctx context.Context, filter bson.M, set bson.M) (*mongoUser, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	set["updated_at"] = r.now().Unix()
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var mu mongoUser
	if err := r.coll.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&mu); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &mu, nil
}

func (r *UserRepository) UpdateRole(ctx context.Context, username string, role domain.Role) (*domain.User, error) {
	mu, err := r.update(ctx, bson.M{"username": username}, bson.M{"role": string(role)})
	if err != nil {
		return nil, fmt.Errorf("update role: %w", err)
	}
	return mu.toDomain(), nil
}

// UpdateProfile applies patch (role excluded). A username change is copied to
// the author references on the user's reviews and comments.
func (r *UserRepository) UpdateProfile(ctx context.Context, username string, patch domain.ProfilePatch) (*domain.User, error) {
	current, err := r.findOne(ctx, bson.M{"username": username})
	if err != nil {
		return nil, err
	}

	set := bson.M{}
	if patch.Username != nil {
		set["username"] = *patch.Username
	}
	if patch.Email != nil {
		set["email"] = *patch.Email
	}
	if patch.FirstName != nil {
		set["first_name"] = *patch.FirstName
	}
	if patch.LastName != nil {
		set["last_name"] = *patch.LastName
	}
	if patch.Bio != nil {
		set["bio"] = *patch.Bio
	}

	mu, err := r.update(ctx, bson.M{"_id": current.ID}, set)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			name, mail := current.Username, current.Email
			if patch.Username != nil {
				name = *patch.Username
			}
			if patch.Email != nil {
				mail = *patch.Email
			}
			return nil, r.collision(ctx, name, mail, current.ID)
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}

	if mu.Username != current.Username {
		if err := r.renameAuthor(ctx, mu.ID, mu.Username); err != nil {
			return nil, err
		}
	}
	return mu.toDomain(), nil
}

func (r *UserRepository) renameAuthor(ctx context.Context, id int64, username string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"author.id": id}
	update := bson.M{"$set": bson.M{"author.username": username}}
	for _, coll := range []string{collReviews, collComments} {
		if _, err := r.db.Collection(coll).UpdateMany(ctx, filter, update); err != nil {
			return fmt.Errorf("rename author in %s: %w", coll, err)
		}
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, username string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll.DeleteOne(ctx, bson.M{"username": username})
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) List(ctx context.Context, search string, page ports.Page) ([]*domain.User, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := containsFilter("username", search)
	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	cur, err := r.coll.Find(ctx, filter, findPage(page))
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	var docs []mongoUser
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("decode users: %w", err)
	}

	users := make([]*domain.User, 0, len(docs))
	for i := range docs {
		users = append(users, docs[i].toDomain())
	}
	return users, total, nil
}

func (r *UserRepository) MarkCodeIssued(ctx context.Context, id int64, at time.Time) error {
	return r.setTimestamp(ctx, id, "code_issued_at", at)
}

func (r *UserRepository) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	return r.setTimestamp(ctx, id, "last_login", at)
}

func (r *UserRepository) setTimestamp(ctx context.Context, id int64, field string, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{field: at.Unix()}})
	if err != nil {
		return fmt.Errorf("set %s: %w", field, err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

var _ ports.UserRepository = (*UserRepository)(nil)
