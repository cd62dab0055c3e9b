package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/training-enrollment-api/internal/models"
	"github.com/noah-isme/training-enrollment-api/pkg/jobs"
	"github.com/noah-isme/training-enrollment-api/pkg/mailer"
	"github.com/noah-isme/training-enrollment-api/pkg/messaging"
)

const (
	jobPublishEvent = "event.publish"
	jobSendMail     = "event.mail"
)

type jobQueue interface {
	Enqueue(job jobs.Job) error
}

// NotificationService fans committed lifecycle events out to the message
// broker and to the student's inbox. Delivery runs on a background queue so
// a slow broker never holds up an admin request.
type NotificationService struct {
	queue     jobQueue
	publisher messaging.Publisher
	mailer    mailer.Mailer
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewNotificationService constructs a NotificationService. Nil collaborators
// fall back to no-op implementations.
func NewNotificationService(publisher messaging.Publisher, m mailer.Mailer, metrics *MetricsService, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if publisher == nil {
		publisher = messaging.NopPublisher{}
	}
	if m == nil {
		m = mailer.LogMailer{Logger: logger}
	}
	return &NotificationService{publisher: publisher, mailer: m, metrics: metrics, logger: logger}
}

// AttachQueue routes future notifications through q. Without a queue they
// are delivered inline.
func (s *NotificationService) AttachQueue(q jobQueue) {
	s.queue = q
}

// Notify schedules delivery of event. It never fails the caller.
func (s *NotificationService) Notify(ctx context.Context, event models.EnrollmentEvent) {
	if s == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	jobsToRun := []jobs.Job{{ID: event.ID, Type: jobPublishEvent, Payload: event}}
	if msg, ok := studentMail(event); ok {
		jobsToRun = append(jobsToRun, jobs.Job{ID: event.ID + ":mail", Type: jobSendMail, Payload: msg})
	}

	for _, job := range jobsToRun {
		if s.queue == nil {
			if err := s.Handle(ctx, job); err != nil {
				s.logger.Warn("event delivery failed", zap.String("job_id", job.ID), zap.String("type", job.Type), zap.Error(err))
			}
			continue
		}
		if err := s.queue.Enqueue(job); err != nil {
			s.metrics.RecordEvent("dropped")
			s.logger.Warn("event dropped", zap.String("job_id", job.ID), zap.String("event", string(event.Type)), zap.Error(err))
			continue
		}
		s.metrics.RecordEvent("queued")
	}
}

// Handle delivers a single queued job. It is the queue's worker handler.
func (s *NotificationService) Handle(ctx context.Context, job jobs.Job) error {
	switch job.Type {
	case jobPublishEvent:
		event, ok := job.Payload.(models.EnrollmentEvent)
		if !ok {
			return fmt.Errorf("unexpected payload %T for %s", job.Payload, job.Type)
		}
		body, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("marshal event: %w", err)
		}
		if err := s.publisher.Publish(ctx, string(event.Type), body); err != nil {
			s.metrics.RecordEvent("failed")
			return err
		}
		s.metrics.RecordEvent("published")
		return nil
	case jobSendMail:
		msg, ok := job.Payload.(mailer.Message)
		if !ok {
			return fmt.Errorf("unexpected payload %T for %s", job.Payload, job.Type)
		}
		if err := s.mailer.Send(ctx, msg); err != nil {
			s.metrics.RecordEvent("failed")
			return err
		}
		s.metrics.RecordEvent("mailed")
		return nil
	default:
		return fmt.Errorf("unknown job type %q", job.Type)
	}
}

func studentMail(event models.EnrollmentEvent) (mailer.Message, bool) {
	if event.Email == "" {
		return mailer.Message{}, false
	}
	training := event.TrainingTitle
	if training == "" {
		training = deletedTrainingLabel
	}
	name := strings.TrimSpace(event.StudentName)
	if name == "" {
		name = "there"
	}

	var subject, body string
	switch event.Type {
	case models.EventEnrollmentSubmitted:
		subject = "We received your enrollment for " + training
		body = "Thanks for enrolling in %s. Our team will review your request and get back to you shortly."
	case models.EventEnrollmentApproved:
		subject = "Your seat in " + training + " is confirmed"
		body = "Good news: your enrollment in %s has been approved. We will share schedule details soon."
	case models.EventEnrollmentRejected:
		subject = "Update on your enrollment for " + training
		body = "Unfortunately we cannot offer you a seat in %s at this time. Feel free to reach out for upcoming sessions."
	case models.EventEnrollmentCompleted:
		subject = "Congratulations on completing " + training
		body = "You have completed %s. Thank you for training with us."
	default:
		return mailer.Message{}, false
	}

	text := fmt.Sprintf("Hi %s,\n\n%s\n", name, fmt.Sprintf(body, training))
	return mailer.Message{ToName: event.StudentName, ToEmail: event.Email, Subject: subject, Text: text}, true
}
