package models

import "time"

// Training is a program prospective students enroll into.
type Training struct {
	ID                 string    `db:"id" json:"id"`
	Title              string    `db:"title" json:"title"`
	Slug               string    `db:"slug" json:"slug"`
	Description        string    `db:"description" json:"description"`
	MaxParticipants    *int      `db:"max_participants" json:"maxParticipants,omitempty"`
	CurrentEnrollments int       `db:"current_enrollments" json:"currentEnrollments"`
	IsActive           bool      `db:"is_active" json:"isActive"`
	IsPublished        bool      `db:"is_published" json:"isPublished"`
	CreatedAt          time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time `db:"updated_at" json:"updatedAt"`
}

// HasFiniteCapacity reports whether a seat limit applies. Nil or zero means unlimited.
func (t Training) HasFiniteCapacity() bool {
	return t.MaxParticipants != nil && *t.MaxParticipants > 0
}

// IsFull reports whether every seat is taken.
func (t Training) IsFull() bool {
	return t.HasFiniteCapacity() && t.CurrentEnrollments >= *t.MaxParticipants
}

// IsOpen reports whether the public may enroll.
func (t Training) IsOpen() bool {
	return t.IsActive && t.IsPublished
}

// TrainingRef is the lightweight projection shown next to enrollments.
type TrainingRef struct {
	ID    string `db:"id" json:"id"`
	Title string `db:"title" json:"title"`
	Slug  string `db:"slug" json:"slug"`
}

// TrainingFilter narrows catalog listings.
type TrainingFilter struct {
	Search        string
	PublishedOnly bool
	Page          int
	PageSize      int
}
