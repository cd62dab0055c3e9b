package service

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/training-enrollment-api/internal/models"
	appErrors "github.com/noah-isme/training-enrollment-api/pkg/errors"
)

type seatCounter interface {
	AdjustEnrollments(ctx context.Context, tx sqlx.ExtContext, trainingID string, delta int) error
}

// SeatLedger is the only place that decides how a status change moves a
// training's live enrollment counter.
//
//	approve  (pending, rejected, completed) -> +1
//	approve  (approved)                     -> ALREADY_APPROVED
//	reject   (approved)                     -> -1, otherwise 0
//	complete (any)                          ->  0, the seat stays taken
//	delete   (approved)                     -> -1, otherwise 0
type SeatLedger struct {
	counter seatCounter
}

// NewSeatLedger constructs a SeatLedger writing through counter.
func NewSeatLedger(counter seatCounter) *SeatLedger {
	return &SeatLedger{counter: counter}
}

// SeatDelta returns the counter change for moving an enrollment from one
// status to another.
func SeatDelta(from, to models.EnrollmentStatus) (int, error) {
	switch to {
	case models.EnrollmentStatusApproved:
		if from == models.EnrollmentStatusApproved {
			return 0, appErrors.ErrAlreadyApproved
		}
		return 1, nil
	case models.EnrollmentStatusRejected:
		if from == models.EnrollmentStatusApproved {
			return -1, nil
		}
		return 0, nil
	case models.EnrollmentStatusCompleted, models.EnrollmentStatusPending:
		return 0, nil
	default:
		return 0, appErrors.Clone(appErrors.ErrValidation, "unknown enrollment status")
	}
}

// ReleaseDelta returns the counter change for deleting an enrollment.
func ReleaseDelta(from models.EnrollmentStatus) int {
	if from == models.EnrollmentStatusApproved {
		return -1
	}
	return 0
}

// Transition moves enrollment to status, stamping the matching timestamp and
// applying the seat change inside tx. It returns the applied delta.
func (l *SeatLedger) Transition(ctx context.Context, tx sqlx.ExtContext, enrollment *models.Enrollment, to models.EnrollmentStatus, now time.Time) (int, error) {
	delta, err := SeatDelta(enrollment.Status, to)
	if err != nil {
		return 0, err
	}
	enrollment.Status = to
	switch to {
	case models.EnrollmentStatusApproved:
		enrollment.ApprovedAt = &now
	case models.EnrollmentStatusCompleted:
		enrollment.CompletedAt = &now
	}
	if err := l.apply(ctx, tx, enrollment.TrainingID, delta); err != nil {
		return 0, err
	}
	return delta, nil
}

// Release frees the seat of an enrollment that is about to be deleted.
func (l *SeatLedger) Release(ctx context.Context, tx sqlx.ExtContext, enrollment *models.Enrollment) (int, error) {
	delta := ReleaseDelta(enrollment.Status)
	if err := l.apply(ctx, tx, enrollment.TrainingID, delta); err != nil {
		return 0, err
	}
	return delta, nil
}

// Move transfers a held seat between trainings when an enrollment is
// reassigned. Only approved enrollments hold a seat.
func (l *SeatLedger) Move(ctx context.Context, tx sqlx.ExtContext, enrollment *models.Enrollment, fromTraining, toTraining string) error {
	if enrollment.Status != models.EnrollmentStatusApproved || fromTraining == toTraining {
		return nil
	}
	if err := l.apply(ctx, tx, fromTraining, -1); err != nil {
		return err
	}
	return l.apply(ctx, tx, toTraining, 1)
}

func (l *SeatLedger) apply(ctx context.Context, tx sqlx.ExtContext, trainingID string, delta int) error {
	if delta == 0 {
		return nil
	}
	if err := l.counter.AdjustEnrollments(ctx, tx, trainingID, delta); err != nil {
		return appErrors.Internal(err, "failed to update training seats")
	}
	return nil
}
