package models

import "time"

// StudentEnrollment summarises one enrollment inside a student roll-up.
// Training is nil when the program no longer exists.
type StudentEnrollment struct {
	ID         string           `json:"id"`
	TrainingID string           `json:"trainingId"`
	Training   *TrainingRef     `json:"training"`
	Status     EnrollmentStatus `json:"status"`
	Source     EnrollmentSource `json:"source"`
	CreatedAt  time.Time        `json:"createdAt"`
}

// StudentView is the derived, never stored, per-email roll-up of enrollments.
type StudentView struct {
	StudentName      string              `json:"studentName"`
	Email            string              `json:"email"`
	Phone            string              `json:"phone"`
	WhatsAppNumber   *string             `json:"whatsappNumber,omitempty"`
	TotalEnrollments int                 `json:"totalEnrollments"`
	Approved         int                 `json:"approved"`
	Completed        int                 `json:"completed"`
	LastEnrolled     time.Time           `json:"lastEnrolled"`
	Enrollments      []StudentEnrollment `json:"enrollments"`
}

// StudentFilter narrows the student roll-up.
type StudentFilter struct {
	Search   string
	Page     int
	PageSize int
}
