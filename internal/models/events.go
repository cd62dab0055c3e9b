package models

import "time"

// EnrollmentEventType names a lifecycle event routing key.
type EnrollmentEventType string

// Lifecycle events emitted after a transition commits.
const (
	EventEnrollmentSubmitted EnrollmentEventType = "enrollment.submitted"
	EventEnrollmentCreated   EnrollmentEventType = "enrollment.created"
	EventEnrollmentApproved  EnrollmentEventType = "enrollment.approved"
	EventEnrollmentRejected  EnrollmentEventType = "enrollment.rejected"
	EventEnrollmentCompleted EnrollmentEventType = "enrollment.completed"
	EventEnrollmentDeleted   EnrollmentEventType = "enrollment.deleted"
	EventPendingDigest       EnrollmentEventType = "enrollment.pending_digest"
)

// EnrollmentEvent is the JSON body published for each lifecycle event.
type EnrollmentEvent struct {
	ID             string              `json:"id"`
	Type           EnrollmentEventType `json:"type"`
	EnrollmentID   string              `json:"enrollmentId,omitempty"`
	TrainingID     string              `json:"trainingId,omitempty"`
	TrainingTitle  string              `json:"trainingTitle,omitempty"`
	StudentName    string              `json:"studentName,omitempty"`
	Email          string              `json:"email,omitempty"`
	PreviousStatus EnrollmentStatus    `json:"previousStatus,omitempty"`
	Status         EnrollmentStatus    `json:"status,omitempty"`
	SeatDelta      int                 `json:"seatDelta"`
	ActorID        string              `json:"actorId,omitempty"`
	PendingCount   int                 `json:"pendingCount,omitempty"`
	OccurredAt     time.Time           `json:"occurredAt"`
}
