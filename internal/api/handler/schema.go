package handler

import (
	"time"

	"github.com/yamdb/yamdb-api/internal/core/domain"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
// Field names the offending request field for validation errors.
type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// listResponse wraps one page of a collection.
type listResponse[T any] struct {
	Count   int64 `json:"count"`
	Results []T   `json:"results"`
}

// --- Auth ---

type signupRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email"    validate:"required"`
}

type signupResponse struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

type tokenRequest struct {
	Username         string `json:"username"          validate:"required"`
	ConfirmationCode string `json:"confirmation_code" validate:"required"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// --- Users ---

type userResponse struct {
	Username  string      `json:"username"`
	Email     string      `json:"email"`
	FirstName string      `json:"first_name"`
	LastName  string      `json:"last_name"`
	Bio       string      `json:"bio"`
	Role      domain.Role `json:"role"`
}

type createUserRequest struct {
	Username  string      `json:"username"   validate:"required"`
	Email     string      `json:"email"      validate:"required"`
	FirstName string      `json:"first_name"`
	LastName  string      `json:"last_name"`
	Bio       string      `json:"bio"`
	Role      domain.Role `json:"role"       validate:"omitempty,oneof=user moderator admin"`
}

type profilePatchRequest struct {
	Username  *string      `json:"username"`
	Email     *string      `json:"email"`
	FirstName *string      `json:"first_name"`
	LastName  *string      `json:"last_name"`
	Bio       *string      `json:"bio"`
	Role      *domain.Role `json:"role" validate:"omitempty,oneof=user moderator admin"`
}

// --- Catalogue ---

type taxonRequest struct {
	Name string `json:"name" validate:"required"`
	Slug string `json:"slug" validate:"required"`
}

type taxonResponse struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type workRequest struct {
	Name        string   `json:"name"        validate:"required"`
	Year        *int     `json:"year"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Genre       []string `json:"genre"`
}

type workPatchRequest struct {
	Name        *string   `json:"name"`
	Year        *int      `json:"year"`
	Description *string   `json:"description"`
	Category    *string   `json:"category"`
	Genre       *[]string `json:"genre"`
}

type workResponse struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Year        *int            `json:"year"`
	Rating      *float64        `json:"rating"`
	Description string          `json:"description"`
	Genre       []taxonResponse `json:"genre"`
	Category    *taxonResponse  `json:"category"`
}

// --- Reviews and comments ---

type reviewRequest struct {
	Text  string `json:"text"  validate:"required"`
	Score int    `json:"score" validate:"required"`
}

type reviewPatchRequest struct {
	Text  *string `json:"text"`
	Score *int    `json:"score"`
}

type reviewResponse struct {
	ID      int64     `json:"id"`
	Text    string    `json:"text"`
	Author  string    `json:"author"`
	Score   int       `json:"score"`
	PubDate time.Time `json:"pub_date"`
}

type commentRequest struct {
	Text string `json:"text" validate:"required"`
}

type commentResponse struct {
	ID      int64     `json:"id"`
	Text    string    `json:"text"`
	Author  string    `json:"author"`
	PubDate time.Time `json:"pub_date"`
}
