package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int { return &v }

func TestTrainingCapacity(t *testing.T) {
	unlimited := Training{CurrentEnrollments: 500}
	assert.False(t, unlimited.HasFiniteCapacity())
	assert.False(t, unlimited.IsFull())

	zero := Training{MaxParticipants: intPtr(0), CurrentEnrollments: 3}
	assert.False(t, zero.IsFull())

	full := Training{MaxParticipants: intPtr(2), CurrentEnrollments: 2}
	assert.True(t, full.IsFull())

	open := Training{MaxParticipants: intPtr(2), CurrentEnrollments: 1, IsActive: true, IsPublished: true}
	assert.False(t, open.IsFull())
	assert.True(t, open.IsOpen())
}

func TestEnrollmentDetailView(t *testing.T) {
	title, slug, admin := "Go Basics", "go-basics", "Admin One"
	adminID := "admin-1"
	detail := EnrollmentDetail{
		Enrollment:     Enrollment{ID: "e1", TrainingID: "t1", EnrolledBy: &adminID},
		TrainingTitle:  &title,
		TrainingSlug:   &slug,
		EnrolledByName: &admin,
	}
	view := detail.View()
	assert.Equal(t, &TrainingRef{ID: "t1", Title: "Go Basics", Slug: "go-basics"}, view.Training)
	assert.Equal(t, "Admin One", view.EnrolledBy.FullName)

	deleted := EnrollmentDetail{Enrollment: Enrollment{ID: "e2", TrainingID: "gone"}}
	assert.Nil(t, deleted.View().Training)
}

func TestStatusAndSourceValid(t *testing.T) {
	assert.True(t, EnrollmentStatusCompleted.Valid())
	assert.False(t, EnrollmentStatus("cancelled").Valid())
	assert.True(t, SourceSocialMedia.Valid())
	assert.False(t, EnrollmentSource("email").Valid())
	assert.Equal(t, "ana@x.com", NormalizeEmail("  Ana@X.com "))
}
