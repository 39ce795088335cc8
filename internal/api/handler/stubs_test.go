package handler

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/yamdb/yamdb-api/internal/api/middleware"
	"github.com/yamdb/yamdb-api/internal/core/authz"
	"github.com/yamdb/yamdb-api/internal/core/domain"
	"github.com/yamdb/yamdb-api/internal/core/ports"
)

// newContext builds an echo context for a JSON request. actor is stored the
// way the Auth middleware would store it.
func newContext(method, target, body string, actor authz.Actor) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(middleware.ActorKey, actor)
	return c, rec
}

func withParams(c echo.Context, kv ...string) echo.Context {
	var names, values []string
	for i := 0; i+1 < len(kv); i += 2 {
		names = append(names, kv[i])
		values = append(values, kv[i+1])
	}
	c.SetParamNames(names...)
	c.SetParamValues(values...)
	return c
}

var (
	alice = authz.Actor{UserID: 1, Username: "alice", Role: domain.RoleUser}
	admin = authz.Actor{UserID: 9, Username: "root", Role: domain.RoleAdmin}
)

type stubAuthService struct {
	signupFn   func(ctx context.Context, username, email string) (*ports.SignupResult, error)
	exchangeFn func(ctx context.Context, username, code string) (string, error)
}

func (s *stubAuthService) Signup(ctx context.Context, username, email string) (*ports.SignupResult, error) {
	return s.signupFn(ctx, username, email)
}

func (s *stubAuthService) ExchangeToken(ctx context.Context, username, code string) (string, error) {
	return s.exchangeFn(ctx, username, code)
}

func (s *stubAuthService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	return nil, domain.ErrUnauthenticated
}

type stubUserService struct {
	me       *domain.User
	listFn   func(search string, page ports.Page) ([]*domain.User, int64, error)
	updateFn func(actor authz.Actor, username string, patch domain.ProfilePatch) (*domain.User, error)
	deleted  []string
}

func (s *stubUserService) Me(ctx context.Context, actor authz.Actor) (*domain.User, error) {
	if err := authz.Authorize(actor, authz.VerbRead, authz.UserSelf(actor.UserID)); err != nil {
		return nil, err
	}
	return s.me, nil
}

func (s *stubUserService) UpdateMe(ctx context.Context, actor authz.Actor, patch domain.ProfilePatch) (*domain.User, error) {
	return s.updateFn(actor, actor.Username, patch.WithoutRole())
}

func (s *stubUserService) List(ctx context.Context, actor authz.Actor, search string, page ports.Page) ([]*domain.User, int64, error) {
	return s.listFn(search, page)
}

func (s *stubUserService) Create(ctx context.Context, actor authz.Actor, in ports.CreateUserInput) (*domain.User, error) {
	return &domain.User{Username: in.Username, Email: in.Email, Role: in.Role}, nil
}

func (s *stubUserService) Get(ctx context.Context, actor authz.Actor, username string) (*domain.User, error) {
	return nil, domain.ErrUserNotFound
}

func (s *stubUserService) Update(ctx context.Context, actor authz.Actor, username string, patch domain.ProfilePatch) (*domain.User, error) {
	return s.updateFn(actor, username, patch)
}

func (s *stubUserService) Delete(ctx context.Context, actor authz.Actor, username string) error {
	s.deleted = append(s.deleted, username)
	return nil
}

type stubCatalogService struct {
	works      map[int64]*domain.Work
	createdIn  ports.WorkInput
	patchIn    ports.WorkPatchInput
	taxonSlugs []string
}

func (s *stubCatalogService) ListCategories(ctx context.Context, search string, page ports.Page) ([]*domain.Taxon, int64, error) {
	return []*domain.Taxon{{Name: "Films", Slug: "films"}}, 1, nil
}

func (s *stubCatalogService) CreateCategory(ctx context.Context, actor authz.Actor, name, slug string) (*domain.Taxon, error) {
	if err := authz.Authorize(actor, authz.VerbCreate, authz.Catalog()); err != nil {
		return nil, err
	}
	s.taxonSlugs = append(s.taxonSlugs, slug)
	return &domain.Taxon{Name: name, Slug: slug}, nil
}

func (s *stubCatalogService) DeleteCategory(ctx context.Context, actor authz.Actor, slug string) error {
	return domain.ErrCategoryNotFound
}

func (s *stubCatalogService) ListGenres(ctx context.Context, search string, page ports.Page) ([]*domain.Taxon, int64, error) {
	return nil, 0, nil
}

func (s *stubCatalogService) CreateGenre(ctx context.Context, actor authz.Actor, name, slug string) (*domain.Taxon, error) {
	return &domain.Taxon{Name: name, Slug: slug}, nil
}

func (s *stubCatalogService) DeleteGenre(ctx context.Context, actor authz.Actor, slug string) error {
	return nil
}

func (s *stubCatalogService) ListWorks(ctx context.Context, page ports.Page) ([]*domain.Work, int64, error) {
	out := make([]*domain.Work, 0, len(s.works))
	for _, w := range s.works {
		out = append(out, w)
	}
	return out, int64(len(out)), nil
}

func (s *stubCatalogService) GetWork(ctx context.Context, id int64) (*domain.Work, error) {
	w, ok := s.works[id]
	if !ok {
		return nil, domain.ErrWorkNotFound
	}
	return w, nil
}

func (s *stubCatalogService) CreateWork(ctx context.Context, actor authz.Actor, in ports.WorkInput) (*domain.Work, error) {
	s.createdIn = in
	w := &domain.Work{ID: 7, Name: in.Name, Year: in.Year, Genres: []domain.Taxon{}}
	for _, g := range in.Genres {
		w.Genres = append(w.Genres, domain.Taxon{Name: g, Slug: g})
	}
	return w, nil
}

func (s *stubCatalogService) UpdateWork(ctx context.Context, actor authz.Actor, id int64, in ports.WorkPatchInput) (*domain.Work, error) {
	s.patchIn = in
	return s.GetWork(ctx, id)
}

func (s *stubCatalogService) DeleteWork(ctx context.Context, actor authz.Actor, id int64) error {
	_, err := s.GetWork(ctx, id)
	return err
}

type stubReviewService struct {
	createFn func(actor authz.Actor, workID int64, score int, text string) (*domain.Review, error)
	patch    ports.ReviewPatch
}

func (s *stubReviewService) List(ctx context.Context, workID int64, page ports.Page) ([]*domain.Review, int64, error) {
	return []*domain.Review{{ID: 1, WorkID: workID, Author: domain.Author{ID: 1, Username: "alice"}, Score: 8}}, 3, nil
}

func (s *stubReviewService) Get(ctx context.Context, workID, id int64) (*domain.Review, error) {
	if workID != 5 || id != 1 {
		return nil, domain.ErrReviewNotFound
	}
	return &domain.Review{ID: 1, WorkID: 5, Author: domain.Author{ID: 1, Username: "alice"}, Text: "good", Score: 8}, nil
}

func (s *stubReviewService) Create(ctx context.Context, actor authz.Actor, workID int64, score int, text string) (*domain.Review, error) {
	return s.createFn(actor, workID, score, text)
}

func (s *stubReviewService) Update(ctx context.Context, actor authz.Actor, workID, id int64, patch ports.ReviewPatch) (*domain.Review, error) {
	s.patch = patch
	r, err := s.Get(ctx, workID, id)
	if err != nil {
		return nil, err
	}
	if patch.Score != nil {
		r.Score = *patch.Score
	}
	return r, nil
}

func (s *stubReviewService) Delete(ctx context.Context, actor authz.Actor, workID, id int64) error {
	if err := authz.Authorize(actor, authz.VerbDelete, authz.ReviewOwnedBy(1)); err != nil {
		return err
	}
	_, err := s.Get(ctx, workID, id)
	return err
}

type stubCommentService struct {
	created []string
}

func (s *stubCommentService) List(ctx context.Context, workID, reviewID int64, page ports.Page) ([]*domain.Comment, int64, error) {
	return nil, 0, nil
}

func (s *stubCommentService) Get(ctx context.Context, workID, reviewID, id int64) (*domain.Comment, error) {
	if reviewID != 1 {
		return nil, domain.ErrReviewNotFound
	}
	return &domain.Comment{ID: id, ReviewID: reviewID, Author: domain.Author{Username: "bob"}, Text: "agreed"}, nil
}

func (s *stubCommentService) Create(ctx context.Context, actor authz.Actor, workID, reviewID int64, text string) (*domain.Comment, error) {
	if err := authz.Authorize(actor, authz.VerbCreate, authz.CommentOwnedBy(0)); err != nil {
		return nil, err
	}
	s.created = append(s.created, text)
	return &domain.Comment{ID: 1, ReviewID: reviewID, Author: domain.Author{ID: actor.UserID, Username: actor.Username}, Text: text}, nil
}

func (s *stubCommentService) Update(ctx context.Context, actor authz.Actor, workID, reviewID, id int64, text string) (*domain.Comment, error) {
	return &domain.Comment{ID: id, ReviewID: reviewID, Text: text}, nil
}

func (s *stubCommentService) Delete(ctx context.Context, actor authz.Actor, workID, reviewID, id int64) error {
	return nil
}
