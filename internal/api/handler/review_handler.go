package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/yamdb/yamdb-api/internal/api/metrics"
	"github.com/yamdb/yamdb-api/internal/core/domain"
	"github.com/yamdb/yamdb-api/internal/core/ports"
)

// ReviewHandler serves the reviews of a title.
type ReviewHandler struct {
	reviews ports.ReviewService
}

func NewReviewHandler(reviews ports.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

// List handles GET /v1/titles/:title_id/reviews.
//
// @Summary      List reviews of a title
// @Tags         reviews
// @Produce      json
// @Param        title_id  path      int  true   "Title id"
// @Param        limit     query     int  false  "Page size"
// @Param        offset    query     int  false  "Page offset"
// @Success      200       {object}  listResponse[reviewResponse]
// @Failure      404       {object}  errorResponse
// @Router       /v1/titles/{title_id}/reviews [get]
func (h *ReviewHandler) List(c echo.Context) error {
	workID, err := pathID(c, "title_id")
	if err != nil {
		return err
	}
	page, err := pageParams(c)
	if err != nil {
		return err
	}
	reviews, total, err := h.reviews.List(c.Request().Context(), workID, page)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, mapList(reviews, total, toReviewResponse))
}

// Get handles GET /v1/titles/:title_id/reviews/:review_id.
//
// @Summary      Get a review
// @Tags         reviews
// @Produce      json
// @Param        title_id   path      int  true  "Title id"
// @Param        review_id  path      int  true  "Review id"
// @Success      200        {object}  reviewResponse
// @Failure      404        {object}  errorResponse
// @Router       /v1/titles/{title_id}/reviews/{review_id} [get]
func (h *ReviewHandler) Get(c echo.Context) error {
	workID, reviewID, err := reviewPath(c)
	if err != nil {
		return err
	}
	review, err := h.reviews.Get(c.Request().Context(), workID, reviewID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toReviewResponse(review))
}

// Create handles POST /v1/titles/:title_id/reviews. An author may review a
// title once.
//
// @Summary      Review a title
// @Tags         reviews
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        title_id  path      int            true  "Title id"
// @Param        body      body      reviewRequest  true  "Review"
// @Success      201       {object}  reviewResponse
// @Failure      400       {object}  errorResponse
// @Failure      401       {object}  errorResponse
// @Failure      404       {object}  errorResponse
// @Router       /v1/titles/{title_id}/reviews [post]
func (h *ReviewHandler) Create(c echo.Context) error {
	workID, err := pathID(c, "title_id")
	if err != nil {
		return err
	}
	var req reviewRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	review, err := h.reviews.Create(c.Request().Context(), ctxActor(c), workID, req.Score, req.Text)
	switch {
	case err == nil:
		metrics.ReviewsCreatedTotal.WithLabelValues(metrics.ResultOK).Inc()
	case errors.Is(err, domain.ErrDuplicateReview):
		metrics.ReviewsCreatedTotal.WithLabelValues("duplicate").Inc()
		return err
	default:
		metrics.ReviewsCreatedTotal.WithLabelValues(metrics.ResultError).Inc()
		return err
	}
	return c.JSON(http.StatusCreated, toReviewResponse(review))
}

// Update handles PATCH /v1/titles/:title_id/reviews/:review_id.
//
// @Summary      Update a review
// @Tags         reviews
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        title_id   path      int                 true  "Title id"
// @Param        review_id  path      int                 true  "Review id"
// @Param        body       body      reviewPatchRequest  true  "Fields to change"
// @Success      200        {object}  reviewResponse
// @Failure      400        {object}  errorResponse
// @Failure      403        {object}  errorResponse
// @Failure      404        {object}  errorResponse
// @Router       /v1/titles/{title_id}/reviews/{review_id} [patch]
func (h *ReviewHandler) Update(c echo.Context) error {
	workID, reviewID, err := reviewPath(c)
	if err != nil {
		return err
	}
	var req reviewPatchRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	review, err := h.reviews.Update(c.Request().Context(), ctxActor(c), workID, reviewID,
		ports.ReviewPatch{Text: req.Text, Score: req.Score})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toReviewResponse(review))
}

// Delete handles DELETE /v1/titles/:title_id/reviews/:review_id.
//
// @Summary      Delete a review
// @Tags         reviews
// @Security     BearerAuth
// @Param        title_id   path  int  true  "Title id"
// @Param        review_id  path  int  true  "Review id"
// @Success      204
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/titles/{title_id}/reviews/{review_id} [delete]
func (h *ReviewHandler) Delete(c echo.Context) error {
	workID, reviewID, err := reviewPath(c)
	if err != nil {
		return err
	}
	if err := h.reviews.Delete(c.Request().Context(), ctxActor(c), workID, reviewID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func reviewPath(c echo.Context) (workID, reviewID int64, err error) {
	if workID, err = pathID(c, "title_id"); err != nil {
		return 0, 0, err
	}
	if reviewID, err = pathID(c, "review_id"); err != nil {
		return 0, 0, err
	}
	return workID, reviewID, nil
}
