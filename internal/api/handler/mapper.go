package handler

import (
	"github.com/yamdb/yamdb-api/internal/core/domain"
	"github.com/yamdb/yamdb-api/internal/core/ports"
)

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Bio:       u.Bio,
		Role:      u.Role,
	}
}

func (r profilePatchRequest) toPatch() domain.ProfilePatch {
	return domain.ProfilePatch{
		Username:  r.Username,
		Email:     r.Email,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Bio:       r.Bio,
		Role:      r.Role,
	}
}

func (r createUserRequest) toInput() ports.CreateUserInput {
	return ports.CreateUserInput{
		Username:  r.Username,
		Email:     r.Email,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Bio:       r.Bio,
		Role:      r.Role,
	}
}

func toTaxonResponse(t *domain.Taxon) taxonResponse {
	return taxonResponse{Name: t.Name, Slug: t.Slug}
}

func toWorkResponse(w *domain.Work) workResponse {
	resp := workResponse{
		ID:          w.ID,
		Name:        w.Name,
		Year:        w.Year,
		Rating:      w.Rating,
		Description: w.Description,
		Genre:       make([]taxonResponse, 0, len(w.Genres)),
	}
	for i := range w.Genres {
		resp.Genre = append(resp.Genre, toTaxonResponse(&w.Genres[i]))
	}
	if w.Category != nil {
		category := toTaxonResponse(w.Category)
		resp.Category = &category
	}
	return resp
}

func (r workRequest) toInput() ports.WorkInput {
	return ports.WorkInput{
		Name:        r.Name,
		Year:        r.Year,
		Description: r.Description,
		Category:    r.Category,
		Genres:      r.Genre,
	}
}

func (r workPatchRequest) toInput() ports.WorkPatchInput {
	return ports.WorkPatchInput{
		Name:        r.Name,
		Year:        r.Year,
		Description: r.Description,
		Category:    r.Category,
		Genres:      r.Genre,
	}
}

func toReviewResponse(r *domain.Review) reviewResponse {
	return reviewResponse{
		ID:      r.ID,
		Text:    r.Text,
		Author:  r.Author.Username,
		Score:   r.Score,
		PubDate: r.PubDate,
	}
}

func toCommentResponse(c *domain.Comment) commentResponse {
	return commentResponse{
		ID:      c.ID,
		Text:    c.Text,
		Author:  c.Author.Username,
		PubDate: c.PubDate,
	}
}

// mapList converts a page of domain values into a list envelope.
func mapList[D any, R any](items []*D, total int64, conv func(*D) R) listResponse[R] {
	results := make([]R, 0, len(items))
	for _, item := range items {
		results = append(results, conv(item))
	}
	return listResponse[R]{Count: total, Results: results}
}
