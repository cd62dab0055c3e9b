package models

import (
	"strings"
	"time"
)

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusPending   EnrollmentStatus = "pending"
	EnrollmentStatusApproved  EnrollmentStatus = "approved"
	EnrollmentStatusRejected  EnrollmentStatus = "rejected"
	EnrollmentStatusCompleted EnrollmentStatus = "completed"
)

// Valid reports whether s is a known status.
func (s EnrollmentStatus) Valid() bool {
	switch s {
	case EnrollmentStatusPending, EnrollmentStatusApproved, EnrollmentStatusRejected, EnrollmentStatusCompleted:
		return true
	}
	return false
}

// EnrollmentSource records how the enrollment reached the team.
type EnrollmentSource string

// Possible enrollment sources.
const (
	SourceWhatsApp    EnrollmentSource = "whatsapp"
	SourceSocialMedia EnrollmentSource = "social_media"
	SourceWebsite     EnrollmentSource = "website"
	SourceManual      EnrollmentSource = "manual"
	SourcePhone       EnrollmentSource = "phone"
	SourceReferral    EnrollmentSource = "referral"
)

// Valid reports whether s is a known source.
func (s EnrollmentSource) Valid() bool {
	switch s {
	case SourceWhatsApp, SourceSocialMedia, SourceWebsite, SourceManual, SourcePhone, SourceReferral:
		return true
	}
	return false
}

// Enrollment captures a prospective student's request to join a training.
type Enrollment struct {
	ID             string           `db:"id" json:"id"`
	StudentName    string           `db:"student_name" json:"studentName"`
	Email          string           `db:"email" json:"email"`
	Phone          string           `db:"phone" json:"phone"`
	WhatsAppNumber *string          `db:"whatsapp_number" json:"whatsappNumber,omitempty"`
	TrainingID     string           `db:"training_id" json:"trainingId"`
	Status         EnrollmentStatus `db:"status" json:"status"`
	Source         EnrollmentSource `db:"source" json:"source"`
	Notes          string           `db:"notes" json:"notes"`
	AdminNotes     string           `db:"admin_notes" json:"adminNotes"`
	EnrolledBy     *string          `db:"enrolled_by" json:"enrolledBy,omitempty"`
	CreatedAt      time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updatedAt"`
	ApprovedAt     *time.Time       `db:"approved_at" json:"approvedAt,omitempty"`
	CompletedAt    *time.Time       `db:"completed_at" json:"completedAt,omitempty"`
}

// NormalizeEmail lower-cases and trims an address for storage and grouping.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// EnrollmentDetail enriches Enrollment with its training and the admin who entered it.
// Training fields are nil when the program was deleted.
type EnrollmentDetail struct {
	Enrollment
	TrainingTitle   *string `db:"training_title" json:"-"`
	TrainingSlug    *string `db:"training_slug" json:"-"`
	EnrolledByName  *string `db:"enrolled_by_name" json:"-"`
	EnrolledByEmail *string `db:"enrolled_by_email" json:"-"`
}

// TrainingRef returns the resolved training, or nil for a deleted program.
func (d EnrollmentDetail) TrainingRef() *TrainingRef {
	if d.TrainingTitle == nil {
		return nil
	}
	ref := &TrainingRef{ID: d.TrainingID, Title: *d.TrainingTitle}
	if d.TrainingSlug != nil {
		ref.Slug = *d.TrainingSlug
	}
	return ref
}

// AdminRef identifies the admin who created an enrollment manually.
type AdminRef struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

// EnrollmentView is the API representation with references resolved.
type EnrollmentView struct {
	Enrollment
	Training   *TrainingRef `json:"training"`
	EnrolledBy *AdminRef    `json:"enrolledBy,omitempty"`
}

// View resolves references for API output.
func (d EnrollmentDetail) View() EnrollmentView {
	view := EnrollmentView{Enrollment: d.Enrollment, Training: d.TrainingRef()}
	if d.Enrollment.EnrolledBy != nil && d.EnrolledByName != nil {
		admin := &AdminRef{ID: *d.Enrollment.EnrolledBy, FullName: *d.EnrolledByName}
		if d.EnrolledByEmail != nil {
			admin.Email = *d.EnrolledByEmail
		}
		view.EnrolledBy = admin
	}
	return view
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	Status     EnrollmentStatus
	TrainingID string
	Source     EnrollmentSource
	Search     string
	Page       int
	PageSize   int
}

// EnrollmentStats are global status buckets, independent of any list filter.
type EnrollmentStats struct {
	Total     int `db:"total" json:"total"`
	Pending   int `db:"pending" json:"pending"`
	Approved  int `db:"approved" json:"approved"`
	Completed int `db:"completed" json:"completed"`
}
