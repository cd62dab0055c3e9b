package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/training-enrollment-api/internal/models"
	appErrors "github.com/noah-isme/training-enrollment-api/pkg/errors"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type enrollmentRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	Stats(ctx context.Context) (models.EnrollmentStats, error)
	FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	LockByID(ctx context.Context, tx sqlx.ExtContext, id string) (*models.Enrollment, error)
	Create(ctx context.Context, tx sqlx.ExtContext, enrollment *models.Enrollment) error
	Update(ctx context.Context, tx sqlx.ExtContext, enrollment *models.Enrollment) error
	Delete(ctx context.Context, tx sqlx.ExtContext, id string) error
}

type trainingSeats interface {
	LockByID(ctx context.Context, tx sqlx.ExtContext, id string) (*models.Training, error)
	AdjustEnrollments(ctx context.Context, tx sqlx.ExtContext, trainingID string, delta int) error
}

type transactor interface {
	WithinTx(ctx context.Context, fn func(tx sqlx.ExtContext) error) error
}

type eventNotifier interface {
	Notify(ctx context.Context, event models.EnrollmentEvent)
}

type catalogInvalidator interface {
	InvalidateCatalog(ctx context.Context)
}

// EnrollmentService owns the enrollment lifecycle. Every status change and
// its seat adjustment commit in one transaction.
type EnrollmentService struct {
	repo      enrollmentRepository
	trainings trainingSeats
	tx        transactor
	ledger    *SeatLedger
	events    eventNotifier
	catalog   catalogInvalidator
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// EnrollmentServiceDeps groups the optional collaborators of EnrollmentService.
type EnrollmentServiceDeps struct {
	Events    eventNotifier
	Catalog   catalogInvalidator
	Metrics   *MetricsService
	Validator *validator.Validate
	Logger    *zap.Logger
}

// NewEnrollmentService constructs an EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, trainings trainingSeats, tx transactor, deps EnrollmentServiceDeps) *EnrollmentService {
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &EnrollmentService{
		repo:      repo,
		trainings: trainings,
		tx:        tx,
		ledger:    NewSeatLedger(trainings),
		events:    deps.Events,
		catalog:   deps.Catalog,
		metrics:   deps.Metrics,
		validator: deps.Validator,
		logger:    deps.Logger,
		now:       time.Now,
	}
}

// EnrollmentList is a page of enrollments with global status buckets.
type EnrollmentList struct {
	Items []models.EnrollmentView
	Total int
	Page  int
	Limit int
	Stats models.EnrollmentStats
}

// Submit records a public enrollment. The training must be active and
// published and have a free seat.
func (s *EnrollmentService) Submit(ctx context.Context, req models.PublicEnrollmentRequest) (*models.EnrollmentView, error) {
	req.Email = models.NormalizeEmail(req.Email)
	req.StudentName = strings.TrimSpace(req.StudentName)
	req.Phone = strings.TrimSpace(req.Phone)
	req.TrainingID = strings.TrimSpace(req.TrainingID)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	enrollment := &models.Enrollment{
		ID:             uuid.NewString(),
		StudentName:    strings.TrimSpace(req.StudentName),
		Email:          models.NormalizeEmail(req.Email),
		Phone:          strings.TrimSpace(req.Phone),
		WhatsAppNumber: trimmedOrNil(req.WhatsAppNumber),
		TrainingID:     strings.TrimSpace(req.TrainingID),
		Status:         models.EnrollmentStatusPending,
		Source:         models.SourceWebsite,
		Notes:          req.Notes,
	}

	var training *models.Training
	err := s.tx.WithinTx(ctx, func(tx sqlx.ExtContext) error {
		var err error
		training, err = s.trainings.LockByID(ctx, tx, enrollment.TrainingID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "training not found")
			}
			return appErrors.Internal(err, "failed to load training")
		}
		if !training.IsOpen() {
			return appErrors.Clone(appErrors.ErrNotFound, "training not found")
		}
		if training.IsFull() {
			return appErrors.ErrCapacityFull
		}
		if err := s.repo.Create(ctx, tx, enrollment); err != nil {
			return appErrors.Internal(err, "failed to create enrollment")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.committed(ctx, models.EventEnrollmentSubmitted, enrollment, "", 0, "", training.Title)
	view := models.EnrollmentView{
		Enrollment: *enrollment,
		Training:   &models.TrainingRef{ID: training.ID, Title: training.Title, Slug: training.Slug},
	}
	return &view, nil
}

// Create records an enrollment entered by an admin. A full training rejects
// the request before anything is written. A non-pending status is applied
// through the seat ledger as a transition from pending.
func (s *EnrollmentService) Create(ctx context.Context, req models.CreateEnrollmentRequest, actorID string) (*models.EnrollmentView, error) {
	req.Email = models.NormalizeEmail(req.Email)
	req.StudentName = strings.TrimSpace(req.StudentName)
	req.Phone = strings.TrimSpace(req.Phone)
	req.TrainingID = strings.TrimSpace(req.TrainingID)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	status := req.Status
	if status == "" {
		status = models.EnrollmentStatusPending
	}
	source := req.Source
	if source == "" {
		source = models.SourceManual
	}
	enrollment := &models.Enrollment{
		ID:             uuid.NewString(),
		StudentName:    strings.TrimSpace(req.StudentName),
		Email:          models.NormalizeEmail(req.Email),
		Phone:          strings.TrimSpace(req.Phone),
		WhatsAppNumber: trimmedOrNil(req.WhatsAppNumber),
		TrainingID:     strings.TrimSpace(req.TrainingID),
		Status:         models.EnrollmentStatusPending,
		Source:         source,
		Notes:          req.Notes,
		AdminNotes:     req.AdminNotes,
		EnrolledBy:     actorOrNil(actorID),
	}

	var delta int
	var trainingTitle string
	err := s.tx.WithinTx(ctx, func(tx sqlx.ExtContext) error {
		training, err := s.lockTrainingForAdmin(ctx, tx, enrollment.TrainingID)
		if err != nil {
			return err
		}
		trainingTitle = training.Title
		if status != models.EnrollmentStatusPending {
			if delta, err = s.ledger.Transition(ctx, tx, enrollment, status, s.now().UTC()); err != nil {
				return err
			}
		}
		if err := s.repo.Create(ctx, tx, enrollment); err != nil {
			return appErrors.Internal(err, "failed to create enrollment")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.committed(ctx, models.EventEnrollmentCreated, enrollment, "", delta, actorID, trainingTitle)
	return s.Get(ctx, enrollment.ID)
}

// Get returns an enrollment with its training and admin resolved.
func (s *EnrollmentService) Get(ctx context.Context, id string) (*models.EnrollmentView, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Internal(err, "failed to load enrollment")
	}
	view := detail.View()
	return &view, nil
}

// List returns a filtered page of enrollments newest first.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) (*EnrollmentList, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown status filter")
	}
	if filter.Source != "" && !filter.Source.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown source filter")
	}
	filter.Page, filter.PageSize = normalizePaging(filter.Page, filter.PageSize)

	details, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list enrollments")
	}
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to count enrollments")
	}

	items := make([]models.EnrollmentView, 0, len(details))
	for _, detail := range details {
		items = append(items, detail.View())
	}
	return &EnrollmentList{Items: items, Total: total, Page: filter.Page, Limit: filter.PageSize, Stats: stats}, nil
}

// Update merges descriptive fields. Moving an approved enrollment to another
// training moves its seat as well.
func (s *EnrollmentService) Update(ctx context.Context, id string, req models.UpdateEnrollmentRequest) (*models.EnrollmentView, error) {
	if req.Email != nil {
		normalized := models.NormalizeEmail(*req.Email)
		req.Email = &normalized
	}
	req.StudentName = trimmed(req.StudentName)
	req.Phone = trimmed(req.Phone)
	req.TrainingID = trimmed(req.TrainingID)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	var moved bool
	err := s.tx.WithinTx(ctx, func(tx sqlx.ExtContext) error {
		enrollment, err := s.lockEnrollment(ctx, tx, id)
		if err != nil {
			return err
		}
		if req.Status != nil && *req.Status != enrollment.Status {
			return appErrors.Clone(appErrors.ErrValidation, "status changes go through approve, reject or complete")
		}

		previousTraining := enrollment.TrainingID
		applyEnrollmentUpdate(enrollment, req)

		if enrollment.TrainingID != previousTraining {
			training, err := s.lockTraining(ctx, tx, enrollment.TrainingID)
			if err != nil {
				return err
			}
			if enrollment.Status == models.EnrollmentStatusApproved && training.IsFull() {
				return appErrors.ErrCapacityExceeded
			}
			if err := s.ledger.Move(ctx, tx, enrollment, previousTraining, enrollment.TrainingID); err != nil {
				return err
			}
			moved = enrollment.Status == models.EnrollmentStatusApproved
		}

		if err := s.repo.Update(ctx, tx, enrollment); err != nil {
			return appErrors.Internal(err, "failed to update enrollment")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if moved && s.catalog != nil {
		s.catalog.InvalidateCatalog(ctx)
	}
	return s.Get(ctx, id)
}

// Approve moves an enrollment to approved and consumes a seat.
func (s *EnrollmentService) Approve(ctx context.Context, id, actorID string, req models.TransitionRequest) (*models.EnrollmentView, error) {
	return s.transition(ctx, id, actorID, models.EnrollmentStatusApproved, models.EventEnrollmentApproved, req)
}

// Reject moves an enrollment to rejected, releasing its seat if it held one.
func (s *EnrollmentService) Reject(ctx context.Context, id, actorID string, req models.TransitionRequest) (*models.EnrollmentView, error) {
	return s.transition(ctx, id, actorID, models.EnrollmentStatusRejected, models.EventEnrollmentRejected, req)
}

// Complete moves an enrollment to completed. The seat stays counted.
func (s *EnrollmentService) Complete(ctx context.Context, id, actorID string, req models.TransitionRequest) (*models.EnrollmentView, error) {
	return s.transition(ctx, id, actorID, models.EnrollmentStatusCompleted, models.EventEnrollmentCompleted, req)
}

// Delete removes an enrollment, releasing its seat if it was approved.
func (s *EnrollmentService) Delete(ctx context.Context, id, actorID string) error {
	var removed *models.Enrollment
	var delta int
	err := s.tx.WithinTx(ctx, func(tx sqlx.ExtContext) error {
		enrollment, err := s.lockEnrollment(ctx, tx, id)
		if err != nil {
			return err
		}
		if delta, err = s.ledger.Release(ctx, tx, enrollment); err != nil {
			return err
		}
		if err := s.repo.Delete(ctx, tx, enrollment.ID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
			}
			return appErrors.Internal(err, "failed to delete enrollment")
		}
		removed = enrollment
		return nil
	})
	if err != nil {
		return err
	}

	s.committed(ctx, models.EventEnrollmentDeleted, removed, removed.Status, delta, actorID, "")
	return nil
}

func (s *EnrollmentService) transition(ctx context.Context, id, actorID string, to models.EnrollmentStatus, event models.EnrollmentEventType, req models.TransitionRequest) (*models.EnrollmentView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid transition payload")
	}

	var updated *models.Enrollment
	var from models.EnrollmentStatus
	var delta int
	err := s.tx.WithinTx(ctx, func(tx sqlx.ExtContext) error {
		enrollment, err := s.lockEnrollment(ctx, tx, id)
		if err != nil {
			return err
		}
		from = enrollment.Status
		if delta, err = s.ledger.Transition(ctx, tx, enrollment, to, s.now().UTC()); err != nil {
			return err
		}
		if req.AdminNotes != nil {
			enrollment.AdminNotes = *req.AdminNotes
		}
		if err := s.repo.Update(ctx, tx, enrollment); err != nil {
			return appErrors.Internal(err, "failed to update enrollment status")
		}
		updated = enrollment
		return nil
	})
	if err != nil {
		return nil, err
	}

	view, err := s.Get(ctx, id)
	title := updated.TrainingID
	if err == nil && view.Training != nil {
		title = view.Training.Title
	}
	s.committed(ctx, event, updated, from, delta, actorID, title)
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *EnrollmentService) lockEnrollment(ctx context.Context, tx sqlx.ExtContext, id string) (*models.Enrollment, error) {
	enrollment, err := s.repo.LockByID(ctx, tx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Internal(err, "failed to load enrollment")
	}
	return enrollment, nil
}

func (s *EnrollmentService) lockTraining(ctx context.Context, tx sqlx.ExtContext, trainingID string) (*models.Training, error) {
	training, err := s.trainings.LockByID(ctx, tx, trainingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "training not found")
		}
		return nil, appErrors.Internal(err, "failed to load training")
	}
	return training, nil
}

// lockTrainingForAdmin loads the target training and applies the admin
// capacity rule: a finite training at or over its limit takes no one else.
func (s *EnrollmentService) lockTrainingForAdmin(ctx context.Context, tx sqlx.ExtContext, trainingID string) (*models.Training, error) {
	training, err := s.lockTraining(ctx, tx, trainingID)
	if err != nil {
		return nil, err
	}
	if training.IsFull() {
		return nil, appErrors.ErrCapacityExceeded
	}
	return training, nil
}

// committed runs the side effects of a transaction that has already committed.
func (s *EnrollmentService) committed(ctx context.Context, event models.EnrollmentEventType, enrollment *models.Enrollment, from models.EnrollmentStatus, delta int, actorID, trainingTitle string) {
	s.logger.Info("enrollment transition",
		zap.String("event", string(event)),
		zap.String("enrollment_id", enrollment.ID),
		zap.String("training_id", enrollment.TrainingID),
		zap.String("from", string(from)),
		zap.String("to", string(enrollment.Status)),
		zap.Int("seat_delta", delta),
		zap.String("actor_id", actorID),
	)
	s.metrics.RecordTransition(string(event), delta)
	if delta != 0 && s.catalog != nil {
		s.catalog.InvalidateCatalog(ctx)
	}
	if s.events == nil {
		return
	}
	status := enrollment.Status
	if event == models.EventEnrollmentDeleted {
		status = ""
	}
	s.events.Notify(context.WithoutCancel(ctx), models.EnrollmentEvent{
		ID:             uuid.NewString(),
		Type:           event,
		EnrollmentID:   enrollment.ID,
		TrainingID:     enrollment.TrainingID,
		TrainingTitle:  trainingTitle,
		StudentName:    enrollment.StudentName,
		Email:          enrollment.Email,
		PreviousStatus: from,
		Status:         status,
		SeatDelta:      delta,
		ActorID:        actorID,
		OccurredAt:     s.now().UTC(),
	})
}

func applyEnrollmentUpdate(enrollment *models.Enrollment, req models.UpdateEnrollmentRequest) {
	if req.StudentName != nil {
		enrollment.StudentName = strings.TrimSpace(*req.StudentName)
	}
	if req.Email != nil {
		enrollment.Email = models.NormalizeEmail(*req.Email)
	}
	if req.Phone != nil {
		enrollment.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.WhatsAppNumber != nil {
		enrollment.WhatsAppNumber = trimmedOrNil(req.WhatsAppNumber)
	}
	if req.TrainingID != nil {
		enrollment.TrainingID = strings.TrimSpace(*req.TrainingID)
	}
	if req.Source != nil {
		enrollment.Source = *req.Source
	}
	if req.Notes != nil {
		enrollment.Notes = *req.Notes
	}
	if req.AdminNotes != nil {
		enrollment.AdminNotes = *req.AdminNotes
	}
}

func normalizePaging(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return page, size
}

// trimmed keeps a present field present so that min=1 rejects blanks.
func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	out := strings.TrimSpace(*value)
	return &out
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func actorOrNil(actorID string) *string {
	if actorID == "" {
		return nil
	}
	return &actorID
}
