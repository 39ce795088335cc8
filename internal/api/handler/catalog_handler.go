package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/yamdb/yamdb-api/internal/core/authz"
	"github.com/yamdb/yamdb-api/internal/core/domain"
	"github.com/yamdb/yamdb-api/internal/core/ports"
)

// CatalogHandler serves categories, genres and titles.
type CatalogHandler struct {
	catalog ports.CatalogService
}

func NewCatalogHandler(catalog ports.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

type (
	taxonLister  func(ctx context.Context, search string, page ports.Page) ([]*domain.Taxon, int64, error)
	taxonCreator func(ctx context.Context, actor authz.Actor, name, slug string) (*domain.Taxon, error)
	taxonDeleter func(ctx context.Context, actor authz.Actor, slug string) error
)

// ListCategories handles GET /v1/categories.
//
// @Summary      List categories
// @Tags         categories
// @Produce      json
// @Param        search  query     string  false  "Name substring"
// @Param        limit   query     int     false  "Page size"
// @Param        offset  query     int     false  "Page offset"
// @Success      200     {object}  listResponse[taxonResponse]
// @Router       /v1/categories [get]
func (h *CatalogHandler) ListCategories(c echo.Context) error {
	return listTaxa(c, h.catalog.ListCategories)
}

// CreateCategory handles POST /v1/categories.
//
// @Summary      Create a category
// @Tags         categories
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      taxonRequest  true  "Category"
// @Success      201   {object}  taxonResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Router       /v1/categories [post]
func (h *CatalogHandler) CreateCategory(c echo.Context) error {
	return createTaxon(c, h.catalog.CreateCategory)
}

// DeleteCategory handles DELETE /v1/categories/:slug.
//
// @Summary      Delete a category
// @Tags         categories
// @Security     BearerAuth
// @Param        slug  path  string  true  "Category slug"
// @Success      204
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/categories/{slug} [delete]
func (h *CatalogHandler) DeleteCategory(c echo.Context) error {
	return deleteTaxon(c, h.catalog.DeleteCategory)
}

// ListGenres handles GET /v1/genres.
//
// @Summary      List genres
// @Tags         genres
// @Produce      json
// @Param        search  query     string  false  "Name substring"
// @Param        limit   query     int     false  "Page size"
// @Param        offset  query     int     false  "Page offset"
// @Success      200     {object}  listResponse[taxonResponse]
// @Router       /v1/genres [get]
func (h *CatalogHandler) ListGenres(c echo.Context) error {
	return listTaxa(c, h.catalog.ListGenres)
}

// CreateGenre handles POST /v1/genres.
//
// @Summary      Create a genre
// @Tags         genres
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      taxonRequest  true  "Genre"
// @Success      201   {object}  taxonResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Router       /v1/genres [post]
func (h *CatalogHandler) CreateGenre(c echo.Context) error {
	return createTaxon(c, h.catalog.CreateGenre)
}

// DeleteGenre handles DELETE /v1/genres/:slug.
//
// @Summary      Delete a genre
// @Tags         genres
// @Security     BearerAuth
// @Param        slug  path  string  true  "Genre slug"
// @Success      204
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/genres/{slug} [delete]
func (h *CatalogHandler) DeleteGenre(c echo.Context) error {
	return deleteTaxon(c, h.catalog.DeleteGenre)
}

func listTaxa(c echo.Context, list taxonLister) error {
	page, err := pageParams(c)
	if err != nil {
		return err
	}
	taxa, total, err := list(c.Request().Context(), c.QueryParam("search"), page)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, mapList(taxa, total, toTaxonResponse))
}

func createTaxon(c echo.Context, create taxonCreator) error {
	var req taxonRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	taxon, err := create(c.Request().Context(), ctxActor(c), req.Name, req.Slug)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toTaxonResponse(taxon))
}

func deleteTaxon(c echo.Context, del taxonDeleter) error {
	if err := del(c.Request().Context(), ctxActor(c), c.Param("slug")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ListWorks handles GET /v1/titles.
//
// @Summary      List titles
// @Tags         titles
// @Produce      json
// @Param        limit   query     int  false  "Page size"
// @Param        offset  query     int  false  "Page offset"
// @Success      200     {object}  listResponse[workResponse]
// @Router       /v1/titles [get]
func (h *CatalogHandler) ListWorks(c echo.Context) error {
	page, err := pageParams(c)
	if err != nil {
		return err
	}
	works, total, err := h.catalog.ListWorks(c.Request().Context(), page)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, mapList(works, total, toWorkResponse))
}

// GetWork handles GET /v1/titles/:title_id.
//
// @Summary      Get a title
// @Tags         titles
// @Produce      json
// @Param        title_id  path      int  true  "Title id"
// @Success      200       {object}  workResponse
// @Failure      404       {object}  errorResponse
// @Router       /v1/titles/{title_id} [get]
func (h *CatalogHandler) GetWork(c echo.Context) error {
	id, err := pathID(c, "title_id")
	if err != nil {
		return err
	}
	work, err := h.catalog.GetWork(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toWorkResponse(work))
}

// CreateWork handles POST /v1/titles.
//
// @Summary      Create a title
// @Tags         titles
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      workRequest  true  "Title with category and genre slugs"
// @Success      201   {object}  workResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Router       /v1/titles [post]
func (h *CatalogHandler) CreateWork(c echo.Context) error {
	var req workRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	work, err := h.catalog.CreateWork(c.Request().Context(), ctxActor(c), req.toInput())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toWorkResponse(work))
}

// UpdateWork handles PATCH /v1/titles/:title_id.
//
// @Summary      Update a title
// @Tags         titles
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        title_id  path      int               true  "Title id"
// @Param        body      body      workPatchRequest  true  "Fields to change"
// @Success      200       {object}  workResponse
// @Failure      400       {object}  errorResponse
// @Failure      403       {object}  errorResponse
// @Failure      404       {object}  errorResponse
// @Router       /v1/titles/{title_id} [patch]
func (h *CatalogHandler) UpdateWork(c echo.Context) error {
	id, err := pathID(c, "title_id")
	if err != nil {
		return err
	}
	var req workPatchRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	work, err := h.catalog.UpdateWork(c.Request().Context(), ctxActor(c), id, req.toInput())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toWorkResponse(work))
}

// DeleteWork handles DELETE /v1/titles/:title_id.
//
// @Summary      Delete a title with its reviews and comments
// @Tags         titles
// @Security     BearerAuth
// @Param        title_id  path  int  true  "Title id"
// @Success      204
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/titles/{title_id} [delete]
func (h *CatalogHandler) DeleteWork(c echo.Context) error {
	id, err := pathID(c, "title_id")
	if err != nil {
		return err
	}
	if err := h.catalog.DeleteWork(c.Request().Context(), ctxActor(c), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
