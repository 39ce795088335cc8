package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/yamdb/yamdb-api/internal/core/domain"
	"github.com/yamdb/yamdb-api/internal/core/ports"
)

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

type stubUserRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*domain.User
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[int64]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func (r *stubUserRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

func (r *stubUserRepo) byUsername(username string) *domain.User {
	for _, u := range r.users {
		if u.Username == username {
			return u
		}
	}
	return nil
}

func (r *stubUserRepo) byEmail(email string) *domain.User {
	for _, u := range r.users {
		if u.Email == email {
			return u
		}
	}
	return nil
}

func (r *stubUserRepo) insert(u *domain.User) *domain.User {
	r.nextID++
	stored := cloneUser(u)
	stored.ID = r.nextID
	if stored.Role == "" {
		stored.Role = domain.RoleUser
	}
	r.users[stored.ID] = stored
	return cloneUser(stored)
}

func (r *stubUserRepo) FindByID(_ context.Context, id int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		return cloneUser(u), nil
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u := r.byUsername(username); u != nil {
		return cloneUser(u), nil
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u := r.byEmail(email); u != nil {
		return cloneUser(u), nil
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindOrCreate(_ context.Context, username, email string) (*domain.User, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byName, byMail := r.byUsername(username), r.byEmail(email)
	switch {
	case byName != nil && byName == byMail:
		return cloneUser(byName), false, nil
	case byName != nil:
		return nil, false, domain.ErrUsernameTaken
	case byMail != nil:
		return nil, false, domain.ErrEmailTaken
	case username == domain.ReservedUsername:
		return nil, false, domain.ErrReservedUsername
	}
	return r.insert(&domain.User{Username: username, Email: email}), true, nil
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.byUsername(user.Username) != nil {
		return nil, domain.ErrUsernameTaken
	}
	if r.byEmail(user.Email) != nil {
		return nil, domain.ErrEmailTaken
	}
	return r.insert(user), nil
}

func (r *stubUserRepo) UpdateRole(_ context.Context, username string, role domain.Role) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.byUsername(username)
	if u == nil {
		return nil, domain.ErrUserNotFound
	}
	u.Role = role
	return cloneUser(u), nil
}

func (r *stubUserRepo) UpdateProfile(_ context.Context, username string, patch domain.ProfilePatch) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.byUsername(username)
	if u == nil {
		return nil, domain.ErrUserNotFound
	}
	if patch.Username != nil {
		if other := r.byUsername(*patch.Username); other != nil && other != u {
			return nil, domain.ErrUsernameTaken
		}
	}
	if patch.Email != nil {
		if other := r.byEmail(*patch.Email); other != nil && other != u {
			return nil, domain.ErrEmailTaken
		}
	}
	patch.Apply(u)
	return cloneUser(u), nil
}

func (r *stubUserRepo) Delete(_ context.Context, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.byUsername(username)
	if u == nil {
		return domain.ErrUserNotFound
	}
	delete(r.users, u.ID)
	return nil
}

func (r *stubUserRepo) List(_ context.Context, search string, page ports.Page) ([]*domain.User, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.User
	for _, u := range r.users {
		if search == "" || strings.Contains(u.Username, search) {
			out = append(out, cloneUser(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return window(out, page), int64(len(out)), nil
}

func (r *stubUserRepo) MarkCodeIssued(_ context.Context, id int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.CodeIssuedAt = at
	return nil
}

func (r *stubUserRepo) TouchLastLogin(_ context.Context, id int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.LastLogin = &at
	return nil
}

func window[T any](items []T, page ports.Page) []T {
	if page.Offset >= len(items) {
		return []T{}
	}
	items = items[page.Offset:]
	if page.Limit > 0 && page.Limit < len(items) {
		items = items[:page.Limit]
	}
	return items
}

// ---------------------------------------------------------------------------
// Mail and throttling
// ---------------------------------------------------------------------------

type stubMailer struct {
	mu   sync.Mutex
	err  error
	sent []ports.Message
}

func (m *stubMailer) Send(_ context.Context, msg ports.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *stubMailer) last() ports.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent[len(m.sent)-1]
}

type stubLimiter struct {
	mu         sync.Mutex
	max        int
	reserveErr error
	attempts   map[string]int
	resets     int
}

func newStubLimiter(max int) *stubLimiter {
	return &stubLimiter{max: max, attempts: make(map[string]int)}
}

func (l *stubLimiter) Reserve(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.reserveErr != nil {
		return false, l.reserveErr
	}
	l.attempts[key]++
	return l.attempts[key] <= l.max, nil
}

func (l *stubLimiter) Reset(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.attempts, key)
	l.resets++
	return nil
}

// ---------------------------------------------------------------------------
// Catalog
// ---------------------------------------------------------------------------

type stubTaxonomyRepo struct {
	notFound error
	nextID   int64
	taxa     map[string]*domain.Taxon
	detached []string
}

func newStubTaxonomyRepo(notFound error) *stubTaxonomyRepo {
	return &stubTaxonomyRepo{notFound: notFound, taxa: make(map[string]*domain.Taxon)}
}

func (r *stubTaxonomyRepo) Create(_ context.Context, name, slug string) (*domain.Taxon, error) {
	if _, ok := r.taxa[slug]; ok {
		return nil, domain.ErrDuplicateSlug
	}
	r.nextID++
	t := &domain.Taxon{ID: r.nextID, Name: name, Slug: slug}
	r.taxa[slug] = t
	clone := *t
	return &clone, nil
}

func (r *stubTaxonomyRepo) List(_ context.Context, search string, page ports.Page) ([]*domain.Taxon, int64, error) {
	var out []*domain.Taxon
	for _, t := range r.taxa {
		if search == "" || strings.Contains(t.Name, search) {
			clone := *t
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return window(out, page), int64(len(out)), nil
}

func (r *stubTaxonomyRepo) FindBySlug(_ context.Context, slug string) (*domain.Taxon, error) {
	t, ok := r.taxa[slug]
	if !ok {
		return nil, r.notFound
	}
	clone := *t
	return &clone, nil
}

func (r *stubTaxonomyRepo) Delete(_ context.Context, slug string) error {
	if _, ok := r.taxa[slug]; !ok {
		return r.notFound
	}
	delete(r.taxa, slug)
	r.detached = append(r.detached, slug)
	return nil
}

type stubWorkRepo struct {
	mu      sync.Mutex
	nextID  int64
	works   map[int64]*domain.Work
	ratings int // SetRating calls
	revs    map[int64]int64
	applied map[int64]int64
}

func newStubWorkRepo() *stubWorkRepo {
	return &stubWorkRepo{
		works:   make(map[int64]*domain.Work),
		revs:    make(map[int64]int64),
		applied: make(map[int64]int64),
	}
}

func (r *stubWorkRepo) seed(name string) *domain.Work {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	w := &domain.Work{ID: r.nextID, Name: name, Genres: []domain.Taxon{}}
	r.works[w.ID] = w
	return w
}

func (r *stubWorkRepo) rating(id int64) *float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.works[id].Rating
}

func (r *stubWorkRepo) Create(_ context.Context, w *domain.Work) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	w.ID = r.nextID
	stored := *w
	r.works[w.ID] = &stored
	return nil
}

func (r *stubWorkRepo) FindByID(_ context.Context, id int64) (*domain.Work, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.works[id]
	if !ok {
		return nil, domain.ErrWorkNotFound
	}
	clone := *w
	return &clone, nil
}

func (r *stubWorkRepo) List(_ context.Context, page ports.Page) ([]*domain.Work, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Work
	for _, w := range r.works {
		clone := *w
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return window(out, page), int64(len(out)), nil
}

func (r *stubWorkRepo) Update(_ context.Context, id int64, patch domain.WorkPatch) (*domain.Work, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.works[id]
	if !ok {
		return nil, domain.ErrWorkNotFound
	}
	if patch.Name != nil {
		w.Name = *patch.Name
	}
	if patch.Year != nil {
		w.Year = patch.Year
	}
	if patch.Description != nil {
		w.Description = *patch.Description
	}
	if patch.Category != nil {
		w.Category = patch.Category
	}
	if patch.Genres != nil {
		w.Genres = *patch.Genres
	}
	clone := *w
	return &clone, nil
}

func (r *stubWorkRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.works[id]; !ok {
		return domain.ErrWorkNotFound
	}
	delete(r.works, id)
	return nil
}

func (r *stubWorkRepo) NextRatingRevision(_ context.Context, id int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.works[id]; !ok {
		return 0, domain.ErrWorkNotFound
	}
	r.revs[id]++
	return r.revs[id], nil
}

func (r *stubWorkRepo) SetRating(_ context.Context, id int64, rating *float64, rev int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ratings++
	w, ok := r.works[id]
	if !ok || r.applied[id] >= rev {
		return nil
	}
	w.Rating = rating
	r.applied[id] = rev
	return nil
}

// ---------------------------------------------------------------------------
// Reviews and comments
// ---------------------------------------------------------------------------

type reviewKey struct{ work, author int64 }

// stubReviewRepo enforces (work, author) uniqueness under its lock, the way
// the unique index does in Mongo.
type stubReviewRepo struct {
	mu       sync.Mutex
	nextID   int64
	reviews  map[int64]*domain.Review
	byPair   map[reviewKey]int64
	comments *stubCommentRepo // cascade target, optional

	// afterAverage runs once AverageScore has read the scores, outside the lock.
	afterAverage func()
}

func newStubReviewRepo() *stubReviewRepo {
	return &stubReviewRepo{reviews: make(map[int64]*domain.Review), byPair: make(map[reviewKey]int64)}
}

func (r *stubReviewRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.reviews)
}

func (r *stubReviewRepo) Create(_ context.Context, rv *domain.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := reviewKey{rv.WorkID, rv.Author.ID}
	if _, taken := r.byPair[key]; taken {
		return domain.ErrDuplicateReview
	}
	r.nextID++
	rv.ID = r.nextID
	stored := *rv
	r.reviews[rv.ID] = &stored
	r.byPair[key] = rv.ID
	return nil
}

func (r *stubReviewRepo) FindByID(_ context.Context, workID, id int64) (*domain.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rv, ok := r.reviews[id]
	if !ok || rv.WorkID != workID {
		return nil, domain.ErrReviewNotFound
	}
	clone := *rv
	return &clone, nil
}

func (r *stubReviewRepo) ListByWork(_ context.Context, workID int64, page ports.Page) ([]*domain.Review, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Review
	for _, rv := range r.reviews {
		if rv.WorkID == workID {
			clone := *rv
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return window(out, page), int64(len(out)), nil
}

func (r *stubReviewRepo) Update(_ context.Context, rv *domain.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.reviews[rv.ID]
	if !ok {
		return domain.ErrReviewNotFound
	}
	stored.Text, stored.Score = rv.Text, rv.Score
	return nil
}

func (r *stubReviewRepo) remove(id int64) {
	rv := r.reviews[id]
	delete(r.byPair, reviewKey{rv.WorkID, rv.Author.ID})
	delete(r.reviews, id)
	if r.comments != nil {
		r.comments.removeForReview(id)
	}
}

func (r *stubReviewRepo) Delete(_ context.Context, workID, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rv, ok := r.reviews[id]
	if !ok || rv.WorkID != workID {
		return domain.ErrReviewNotFound
	}
	r.remove(id)
	return nil
}

func (r *stubReviewRepo) DeleteByAuthor(_ context.Context, authorID int64) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var works []int64
	for id, rv := range r.reviews {
		if rv.Author.ID == authorID {
			works = append(works, rv.WorkID)
			r.remove(id)
		}
	}
	sort.Slice(works, func(i, j int) bool { return works[i] < works[j] })
	return works, nil
}

func (r *stubReviewRepo) AverageScore(_ context.Context, workID int64) (*float64, error) {
	r.mu.Lock()
	var scores []int
	for _, rv := range r.reviews {
		if rv.WorkID == workID {
			scores = append(scores, rv.Score)
		}
	}
	hook := r.afterAverage
	r.mu.Unlock()

	mean := domain.MeanScore(scores)
	if hook != nil {
		hook()
	}
	return mean, nil
}

type stubCommentRepo struct {
	mu       sync.Mutex
	nextID   int64
	comments map[int64]*domain.Comment
}

func newStubCommentRepo() *stubCommentRepo {
	return &stubCommentRepo{comments: make(map[int64]*domain.Comment)}
}

func (r *stubCommentRepo) removeForReview(reviewID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, c := range r.comments {
		if c.ReviewID == reviewID {
			delete(r.comments, id)
		}
	}
}

func (r *stubCommentRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.comments)
}

func (r *stubCommentRepo) Create(_ context.Context, c *domain.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	c.ID = r.nextID
	stored := *c
	r.comments[c.ID] = &stored
	return nil
}

func (r *stubCommentRepo) FindByID(_ context.Context, reviewID, id int64) (*domain.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.comments[id]
	if !ok || c.ReviewID != reviewID {
		return nil, domain.ErrCommentNotFound
	}
	clone := *c
	return &clone, nil
}

func (r *stubCommentRepo) ListByReview(_ context.Context, reviewID int64, page ports.Page) ([]*domain.Comment, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Comment
	for _, c := range r.comments {
		if c.ReviewID == reviewID {
			clone := *c
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return window(out, page), int64(len(out)), nil
}

func (r *stubCommentRepo) Update(_ context.Context, c *domain.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.comments[c.ID]
	if !ok {
		return domain.ErrCommentNotFound
	}
	stored.Text = c.Text
	return nil
}

func (r *stubCommentRepo) Delete(_ context.Context, reviewID, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.comments[id]
	if !ok || c.ReviewID != reviewID {
		return domain.ErrCommentNotFound
	}
	delete(r.comments, id)
	return nil
}

func (r *stubCommentRepo) DeleteByAuthor(_ context.Context, authorID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, c := range r.comments {
		if c.Author.ID == authorID {
			delete(r.comments, id)
		}
	}
	return nil
}

var errBoom = errors.New("boom")
