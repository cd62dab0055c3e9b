package models

// PublicEnrollmentRequest is submitted by prospective students from the website.
type PublicEnrollmentRequest struct {
	StudentName    string  `json:"studentName" validate:"required,max=200"`
	Email          string  `json:"email" validate:"required,email,max=320"`
	Phone          string  `json:"phone" validate:"required,max=50"`
	WhatsAppNumber *string `json:"whatsappNumber" validate:"omitempty,max=50"`
	TrainingID     string  `json:"trainingId" validate:"required"`
	Notes          string  `json:"notes" validate:"max=4000"`
}

// CreateEnrollmentRequest is entered manually by an admin.
type CreateEnrollmentRequest struct {
	StudentName    string           `json:"studentName" validate:"required,max=200"`
	Email          string           `json:"email" validate:"required,email,max=320"`
	Phone          string           `json:"phone" validate:"required,max=50"`
	WhatsAppNumber *string          `json:"whatsappNumber" validate:"omitempty,max=50"`
	TrainingID     string           `json:"trainingId" validate:"required"`
	Status         EnrollmentStatus `json:"status" validate:"omitempty,oneof=pending approved rejected completed"`
	Source         EnrollmentSource `json:"source" validate:"omitempty,oneof=whatsapp social_media website manual phone referral"`
	Notes          string           `json:"notes" validate:"max=4000"`
	AdminNotes     string           `json:"adminNotes" validate:"max=4000"`
}

// UpdateEnrollmentRequest merges descriptive fields into an enrollment.
// Status is accepted only when it matches the stored value.
type UpdateEnrollmentRequest struct {
	StudentName    *string           `json:"studentName" validate:"omitempty,min=1,max=200"`
	Email          *string           `json:"email" validate:"omitempty,email,max=320"`
	Phone          *string           `json:"phone" validate:"omitempty,min=1,max=50"`
	WhatsAppNumber *string           `json:"whatsappNumber" validate:"omitempty,max=50"`
	TrainingID     *string           `json:"trainingId" validate:"omitempty,min=1"`
	Status         *EnrollmentStatus `json:"status"`
	Source         *EnrollmentSource `json:"source" validate:"omitempty,oneof=whatsapp social_media website manual phone referral"`
	Notes          *string           `json:"notes" validate:"omitempty,max=4000"`
	AdminNotes     *string           `json:"adminNotes" validate:"omitempty,max=4000"`
}

// TransitionRequest optionally records admin notes alongside a status change.
type TransitionRequest struct {
	AdminNotes *string `json:"adminNotes" validate:"omitempty,max=4000"`
}

// CreateTrainingRequest defines a new training program.
type CreateTrainingRequest struct {
	Title           string `json:"title" validate:"required,max=200"`
	Slug            string `json:"slug" validate:"omitempty,max=200"`
	Description     string `json:"description"`
	MaxParticipants *int   `json:"maxParticipants" validate:"omitempty,min=0"`
	IsActive        *bool  `json:"isActive"`
	IsPublished     bool   `json:"isPublished"`
}

// UpdateTrainingRequest merges catalog fields. The live seat counter is not
// part of the payload.
type UpdateTrainingRequest struct {
	Title                *string `json:"title" validate:"omitempty,min=1,max=200"`
	Slug                 *string `json:"slug" validate:"omitempty,max=200"`
	Description          *string `json:"description"`
	MaxParticipants      *int    `json:"maxParticipants" validate:"omitempty,min=0"`
	ClearMaxParticipants bool    `json:"clearMaxParticipants"`
	IsActive             *bool   `json:"isActive"`
	IsPublished          *bool   `json:"isPublished"`
}
