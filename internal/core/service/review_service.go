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

// ReviewService enforces one review per (author, work) and keeps every work's
// rating equal to the mean of its persisted review scores. Uniqueness is left
// to the repository's write-time constraint; there is no pre-check here, so
// concurrent creates cannot both succeed.
type ReviewService struct {
	works   ports.WorkRepository
	reviews ports.ReviewRepository
	log     zerolog.Logger
	now     func() time.Time
}

func NewReviewService(works ports.WorkRepository, reviews ports.ReviewRepository, log zerolog.Logger) *ReviewService {
	return &ReviewService{works: works, reviews: reviews, log: log, now: time.Now}
}

func (s *ReviewService) List(ctx context.Context, workID int64, page ports.Page) ([]*domain.Review, int64, error) {
	if _, err := s.works.FindByID(ctx, workID); err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	return s.reviews.ListByWork(ctx, workID, page)
}

func (s *ReviewService) Get(ctx context.Context, workID, id int64) (*domain.Review, error) {
	if _, err := s.works.FindByID(ctx, workID); err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	return s.reviews.FindByID(ctx, workID, id)
}

// Create persists a review by actor and recomputes the work's rating.
func (s *ReviewService) Create(ctx context.Context, actor authz.Actor, workID int64, score int, text string) (*domain.Review, error) {
	if err := authz.Authorize(actor, authz.VerbCreate, authz.ReviewOwnedBy(0)); err != nil {
		return nil, err
	}
	if _, err := s.works.FindByID(ctx, workID); err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}
	if err := validateReview(&score, &text); err != nil {
		return nil, err
	}

	review := &domain.Review{
		WorkID:  workID,
		Author:  domain.Author{ID: actor.UserID, Username: actor.Username},
		Text:    text,
		Score:   score,
		PubDate: s.now().UTC(),
	}
	if err := s.reviews.Create(ctx, review); err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}

	if err := s.recomputeRating(ctx, workID); err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("work_id", workID).
		Int64("review_id", review.ID).
		Int64("author_id", actor.UserID).
		Int("score", score).
		Msg("review created")
	return review, nil
}

// Update edits text and/or score. Only the author, moderators and admins may
// update a review.
func (s *ReviewService) Update(ctx context.Context, actor authz.Actor, workID, id int64, patch ports.ReviewPatch) (*domain.Review, error) {
	review, err := s.Get(ctx, workID, id)
	if err != nil {
		return nil, err
	}
	if err := authz.Authorize(actor, authz.VerbUpdate, authz.ReviewOwnedBy(review.Author.ID)); err != nil {
		return nil, err
	}
	if err := validateReview(patch.Score, patch.Text); err != nil {
		return nil, err
	}

	scoreChanged := patch.Score != nil && *patch.Score != review.Score
	if patch.Text != nil {
		review.Text = *patch.Text
	}
	if patch.Score != nil {
		review.Score = *patch.Score
	}
	if err := s.reviews.Update(ctx, review); err != nil {
		return nil, fmt.Errorf("update review: %w", err)
	}

	if scoreChanged {
		if err := s.recomputeRating(ctx, workID); err != nil {
			return nil, err
		}
	}
	return review, nil
}

// Delete removes a review with its comments and recomputes the rating. The
// (author, work) slot is free again afterwards.
func (s *ReviewService) Delete(ctx context.Context, actor authz.Actor, workID, id int64) error {
	review, err := s.Get(ctx, workID, id)
	if err != nil {
		return err
	}
	if err := authz.Authorize(actor, authz.VerbDelete, authz.ReviewOwnedBy(review.Author.ID)); err != nil {
		return err
	}
	if err := s.reviews.Delete(ctx, workID, id); err != nil {
		return fmt.Errorf("delete review: %w", err)
	}

	if err := s.recomputeRating(ctx, workID); err != nil {
		return err
	}

	s.log.Info().Int64("work_id", workID).Int64("review_id", id).Int64("actor_id", actor.UserID).Msg("review deleted")
	return nil
}

// RecomputeRatings refreshes the rating of each listed work. It is used after
// bulk removals such as deleting a user.
func (s *ReviewService) RecomputeRatings(ctx context.Context, workIDs []int64) error {
	for _, id := range workIDs {
		if err := s.recomputeRating(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// recomputeRating claims a revision before averaging, so of two overlapping
// recomputes the one that saw more review writes is the one that sticks.
func (s *ReviewService) recomputeRating(ctx context.Context, workID int64) error {
	rev, err := s.works.NextRatingRevision(ctx, workID)
	if err != nil {
		return fmt.Errorf("recompute rating: %w", err)
	}
	avg, err := s.reviews.AverageScore(ctx, workID)
	if err != nil {
		return fmt.Errorf("recompute rating: %w", err)
	}
	if err := s.works.SetRating(ctx, workID, avg, rev); err != nil {
		return fmt.Errorf("recompute rating: %w", err)
	}
	return nil
}

func validateReview(score *int, text *string) error {
	if score != nil && !domain.ValidScore(*score) {
		return domain.NewValidationError("score", "must be between %d and %d", domain.MinScore, domain.MaxScore)
	}
	if text != nil && strings.TrimSpace(*text) == "" {
		return domain.NewValidationError("text", "must not be blank")
	}
	return nil
}
