package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/yamdb/yamdb-api/internal/core/ports"
)

// CommentHandler serves the comments of a review.
type CommentHandler struct {
	comments ports.CommentService
}

func NewCommentHandler(comments ports.CommentService) *CommentHandler {
	return &CommentHandler{comments: comments}
}

// List handles GET /v1/titles/:title_id/reviews/:review_id/comments.
//
// @Summary      List comments of a review
// @Tags         comments
// @Produce      json
// @Param        title_id   path      int  true   "Title id"
// @Param        review_id  path      int  true   "Review id"
// @Param        limit      query     int  false  "Page size"
// @Param        offset     query     int  false  "Page offset"
// @Success      200        {object}  listResponse[commentResponse]
// @Failure      404        {object}  errorResponse
// @Router       /v1/titles/{title_id}/reviews/{review_id}/comments [get]
func (h *CommentHandler) List(c echo.Context) error {
	workID, reviewID, err := reviewPath(c)
	if err != nil {
		return err
	}
	page, err := pageParams(c)
	if err != nil {
		return err
	}
	comments, total, err := h.comments.List(c.Request().Context(), workID, reviewID, page)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, mapList(comments, total, toCommentResponse))
}

// Get handles GET /v1/titles/:title_id/reviews/:review_id/comments/:comment_id.
//
// @Summary      Get a comment
// @Tags         comments
// @Produce      json
// @Param        title_id    path      int  true  "Title id"
// @Param        review_id   path      int  true  "Review id"
// @Param        comment_id  path      int  true  "Comment id"
// @Success      200         {object}  commentResponse
// @Failure      404         {object}  errorResponse
// @Router       /v1/titles/{title_id}/reviews/{review_id}/comments/{comment_id} [get]
func (h *CommentHandler) Get(c echo.Context) error {
	workID, reviewID, id, err := commentPath(c)
	if err != nil {
		return err
	}
	comment, err := h.comments.Get(c.Request().Context(), workID, reviewID, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCommentResponse(comment))
}

// Create handles POST /v1/titles/:title_id/reviews/:review_id/comments.
//
// @Summary      Comment on a review
// @Tags         comments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        title_id   path      int             true  "Title id"
// @Param        review_id  path      int             true  "Review id"
// @Param        body       body      commentRequest  true  "Comment"
// @Success      201        {object}  commentResponse
// @Failure      400        {object}  errorResponse
// @Failure      401        {object}  errorResponse
// @Failure      404        {object}  errorResponse
// @Router       /v1/titles/{title_id}/reviews/{review_id}/comments [post]
func (h *CommentHandler) Create(c echo.Context) error {
	workID, reviewID, err := reviewPath(c)
	if err != nil {
		return err
	}
	var req commentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	comment, err := h.comments.Create(c.Request().Context(), ctxActor(c), workID, reviewID, req.Text)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toCommentResponse(comment))
}

// Update handles PATCH /v1/titles/:title_id/reviews/:review_id/comments/:comment_id.
//
// @Summary      Update a comment
// @Tags         comments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        title_id    path      int             true  "Title id"
// @Param        review_id   path      int             true  "Review id"
// @Param        comment_id  path      int             true  "Comment id"
// @Param        body        body      commentRequest  true  "New text"
// @Success      200         {object}  commentResponse
// @Failure      400         {object}  errorResponse
// @Failure      403         {object}  errorResponse
// @Failure      404         {object}  errorResponse
// @Router       /v1/titles/{title_id}/reviews/{review_id}/comments/{comment_id} [patch]
func (h *CommentHandler) Update(c echo.Context) error {
	workID, reviewID, id, err := commentPath(c)
	if err != nil {
		return err
	}
	var req commentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	comment, err := h.comments.Update(c.Request().Context(), ctxActor(c), workID, reviewID, id, req.Text)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCommentResponse(comment))
}

// Delete handles DELETE /v1/titles/:title_id/reviews/:review_id/comments/:comment_id.
//
// @Summary      Delete a comment
// @Tags         comments
// @Security     BearerAuth
// @Param        title_id    path  int  true  "Title id"
// @Param        review_id   path  int  true  "Review id"
// @Param        comment_id  path  int  true  "Comment id"
// @Success      204
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/titles/{title_id}/reviews/{review_id}/comments/{comment_id} [delete]
func (h *CommentHandler) Delete(c echo.Context) error {
	workID, reviewID, id, err := commentPath(c)
	if err != nil {
		return err
	}
	if err := h.comments.Delete(c.Request().Context(), ctxActor(c), workID, reviewID, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func commentPath(c echo.Context) (workID, reviewID, id int64, err error) {
	if workID, reviewID, err = reviewPath(c); err != nil {
		return 0, 0, 0, err
	}
	if id, err = pathID(c, "comment_id"); err != nil {
		return 0, 0, 0, err
	}
	return workID, reviewID, id, nil
}
