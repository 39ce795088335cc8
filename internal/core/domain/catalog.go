package domain

import "time"

const (
	MinScore = 1
	MaxScore = 10
)

// Taxon is a (name, slug) classifier. Categories group works by medium
// (film, book, music...); genres are tags a work can carry many of.
type Taxon struct {
	ID   int64  `json:"-" bson:"_id"`
	Name string `json:"name" bson:"name"`
	Slug string `json:"slug" bson:"slug"`
}

// Work is a catalogued title that users review.
type Work struct {
	ID          int64    `bson:"_id"`
	Name        string   `bson:"name"`
	Year        *int     `bson:"year,omitempty"`
	Description string   `bson:"description,omitempty"`
	Category    *Taxon   `bson:"category,omitempty"`
	Genres      []Taxon  `bson:"genres"`
	// Rating is the mean review score, nil while the work has no reviews.
	Rating      *float64 `bson:"rating"`
}

// WorkPatch is a partial update of a work. Nil fields are left untouched.
// Category and Genres hold already-resolved taxa.
type WorkPatch struct {
	Name        *string
	Year        *int
	Description *string
	Category    *Taxon
	Genres      *[]Taxon
}

// Author is the denormalised author reference stored on reviews and comments.
type Author struct {
	ID       int64  `bson:"id"`
	Username string `bson:"username"`
}

// Review is one user's scored opinion of a work. At most one exists per
// (author, work).
type Review struct {
	ID      int64     `bson:"_id"`
	WorkID  int64     `bson:"work_id"`
	Author  Author    `bson:"author"`
	Text    string    `bson:"text"`
	Score   int       `bson:"score"`
	PubDate time.Time `bson:"pub_date"`
}

// Comment is a reply attached to a review.
type Comment struct {
	ID       int64     `bson:"_id"`
	ReviewID int64     `bson:"review_id"`
	Author   Author    `bson:"author"`
	Text     string    `bson:"text"`
	PubDate  time.Time `bson:"pub_date"`
}

// ValidScore reports whether s is within the accepted score range.
func ValidScore(s int) bool {
	return s >= MinScore && s <= MaxScore
}

// MeanScore returns the arithmetic mean of scores, or nil when empty.
func MeanScore(scores []int) *float64 {
	if len(scores) == 0 {
		return nil
	}
	sum := 0
	for _, s := range scores {
		sum += s
	}
	mean := float64(sum) / float64(len(scores))
	return &mean
}
