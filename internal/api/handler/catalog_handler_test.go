package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/yamdb/yamdb-api/internal/core/domain"
)

func TestCatalogHandler_CreateWork_MapsSlugs(t *testing.T) {
	stub := &stubCatalogService{}
	c, rec := newContext(http.MethodPost, "/v1/titles",
		`{"name":"Solaris","year":1972,"category":"films","genre":["drama","sci-fi"]}`, admin)

	if err := NewCatalogHandler(stub).CreateWork(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if stub.createdIn.Category != "films" || !cmp.Equal(stub.createdIn.Genres, []string{"drama", "sci-fi"}) {
		t.Fatalf("unexpected input %+v", stub.createdIn)
	}

	var resp workResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	want := workResponse{
		ID:    7,
		Name:  "Solaris",
		Year:  stub.createdIn.Year,
		Genre: []taxonResponse{{Name: "drama", Slug: "drama"}, {Name: "sci-fi", Slug: "sci-fi"}},
	}
	if diff := cmp.Diff(want, resp); diff != "" {
		t.Fatalf("response mismatch (-want +got):\n%s", diff)
	}
}

func TestCatalogHandler_GetWork_RatingNullWhenUnreviewed(t *testing.T) {
	stub := &stubCatalogService{works: map[int64]*domain.Work{3: {ID: 3, Name: "Dune", Genres: []domain.Taxon{}}}}
	c, rec := newContext(http.MethodGet, "/v1/titles/3", "", alice)
	withParams(c, "title_id", "3")

	if err := NewCatalogHandler(stub).GetWork(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if v, ok := resp["rating"]; !ok || v != nil {
		t.Fatalf("rating should be present and null, got %v", resp)
	}
}

func TestCatalogHandler_WorkNotFound(t *testing.T) {
	stub := &stubCatalogService{works: map[int64]*domain.Work{}}
	h := NewCatalogHandler(stub)

	for _, id := range []string{"42", "abc", "-1"} {
		c, _ := newContext(http.MethodGet, "/v1/titles/"+id, "", alice)
		withParams(c, "title_id", id)
		err := h.GetWork(c)
		if err == nil {
			t.Fatalf("%s: expected an error", id)
		}
		if id == "42" && !errors.Is(err, domain.ErrWorkNotFound) {
			t.Fatalf("%s: expected ErrWorkNotFound, got %v", id, err)
		}
	}
}

func TestCatalogHandler_UpdateWork_PartialPatch(t *testing.T) {
	stub := &stubCatalogService{works: map[int64]*domain.Work{3: {ID: 3, Name: "Dune"}}}
	c, rec := newContext(http.MethodPatch, "/v1/titles/3", `{"genre":[]}`, admin)
	withParams(c, "title_id", "3")

	if err := NewCatalogHandler(stub).UpdateWork(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if stub.patchIn.Name != nil || stub.patchIn.Category != nil {
		t.Fatalf("absent fields must stay nil: %+v", stub.patchIn)
	}
	if stub.patchIn.Genres == nil || len(*stub.patchIn.Genres) != 0 {
		t.Fatalf("explicit empty genre list must be passed through: %+v", stub.patchIn.Genres)
	}
}

func TestCatalogHandler_Categories(t *testing.T) {
	stub := &stubCatalogService{}
	h := NewCatalogHandler(stub)

	c, rec := newContext(http.MethodGet, "/v1/categories", "", alice)
	if err := h.ListCategories(c); err != nil {
		t.Fatalf("list: %v", err)
	}
	var list listResponse[taxonResponse]
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if list.Count != 1 || list.Results[0].Slug != "films" {
		t.Fatalf("unexpected list %+v", list)
	}

	c, _ = newContext(http.MethodPost, "/v1/categories", `{"name":"Books","slug":"books"}`, alice)
	if err := h.CreateCategory(c); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("non-admin create should be forbidden, got %v", err)
	}

	c, rec = newContext(http.MethodPost, "/v1/categories", `{"name":"Books","slug":"books"}`, admin)
	if err := h.CreateCategory(c); err != nil {
		t.Fatalf("admin create: %v", err)
	}
	if rec.Code != http.StatusCreated || len(stub.taxonSlugs) != 1 {
		t.Fatalf("unexpected create outcome %d %v", rec.Code, stub.taxonSlugs)
	}

	c, _ = newContext(http.MethodDelete, "/v1/categories/nope", "", admin)
	withParams(c, "slug", "nope")
	if err := h.DeleteCategory(c); !errors.Is(err, domain.ErrCategoryNotFound) {
		t.Fatalf("expected ErrCategoryNotFound, got %v", err)
	}
}

func TestCatalogHandler_EmptyGenreListRendersArray(t *testing.T) {
	c, rec := newContext(http.MethodGet, "/v1/genres", "", alice)
	if err := NewCatalogHandler(&stubCatalogService{}).ListGenres(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if got := rec.Body.String(); got != "{\"count\":0,\"results\":[]}\n" {
		t.Fatalf("unexpected body %q", got)
	}
}
