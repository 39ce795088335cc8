package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/yamdb/yamdb-api/internal/core/authz"
	"github.com/yamdb/yamdb-api/internal/core/domain"
	"github.com/yamdb/yamdb-api/internal/core/ports"
)

// CommentService manages comments under a review. Every operation first
// resolves the parent review within its work, so a comment path with a
// mismatched work/review pair reports ErrReviewNotFound.
type CommentService struct {
	reviews  ports.ReviewService
	comments ports.CommentRepository
	log      zerolog.Logger
	now      func() time.Time
}

func NewCommentService(reviews ports.ReviewService, comments ports.CommentRepository, log zerolog.Logger) *CommentService {
	return &CommentService{reviews: reviews, comments: comments, log: log, now: time.Now}
}

func (s *CommentService) List(ctx context.Context, workID, reviewID int64, page ports.Page) ([]*domain.Comment, int64, error) {
	if _, err := s.reviews.Get(ctx, workID, reviewID); err != nil {
		return nil, 0, fmt.Errorf("list comments: %w", err)
	}
	return s.comments.ListByReview(ctx, reviewID, page)
}

func (s *CommentService) Get(ctx context.Context, workID, reviewID, id int64) (*domain.Comment, error) {
	if _, err := s.reviews.Get(ctx, workID, reviewID); err != nil {
		return nil, fmt.Errorf("get comment: %w", err)
	}
	return s.comments.FindByID(ctx, reviewID, id)
}

func (s *CommentService) Create(ctx context.Context, actor authz.Actor, workID, reviewID int64, text string) (*domain.Comment, error) {
	if err := authz.Authorize(actor, authz.VerbCreate, authz.CommentOwnedBy(0)); err != nil {
		return nil, err
	}
	if _, err := s.reviews.Get(ctx, workID, reviewID); err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, domain.NewValidationError("text", "must not be blank")
	}

	comment := &domain.Comment{
		ReviewID: reviewID,
		Author:   domain.Author{ID: actor.UserID, Username: actor.Username},
		Text:     text,
		PubDate:  s.now().UTC(),
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}

	s.log.Debug().Int64("review_id", reviewID).Int64("comment_id", comment.ID).Msg("comment created")
	return comment, nil
}

func (s *CommentService) Update(ctx context.Context, actor authz.Actor, workID, reviewID, id int64, text string) (*domain.Comment, error) {
	comment, err := s.Get(ctx, workID, reviewID, id)
	if err != nil {
		return nil, err
	}
	if err := authz.Authorize(actor, authz.VerbUpdate, authz.CommentOwnedBy(comment.Author.ID)); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, domain.NewValidationError("text", "must not be blank")
	}

	comment.Text = text
	if err := s.comments.Update(ctx, comment); err != nil {
		return nil, fmt.Errorf("update comment: %w", err)
	}
	return comment, nil
}

func (s *CommentService) Delete(ctx context.Context, actor authz.Actor, workID, reviewID, id int64) error {
	comment, err := s.Get(ctx, workID, reviewID, id)
	if err != nil {
		return err
	}
	if err := authz.Authorize(actor, authz.VerbDelete, authz.CommentOwnedBy(comment.Author.ID)); err != nil {
		return err
	}
	if err := s.comments.Delete(ctx, reviewID, id); err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	return nil
}
