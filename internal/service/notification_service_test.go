package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/training-enrollment-api/internal/models"
	"github.com/noah-isme/training-enrollment-api/pkg/jobs"
	"github.com/noah-isme/training-enrollment-api/pkg/mailer"
)

type capturePublisher struct {
	mu       sync.Mutex
	keys     []string
	bodies   [][]byte
	failures int
}

func (c *capturePublisher) Publish(ctx context.Context, routingKey string, body []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failures > 0 {
		c.failures--
		return errors.New("channel closed")
	}
	c.keys = append(c.keys, routingKey)
	c.bodies = append(c.bodies, body)
	return nil
}

func (c *capturePublisher) Close() error { return nil }

type captureMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
}

func (c *captureMailer) Send(ctx context.Context, msg mailer.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, msg)
	return nil
}

type captureQueue struct {
	jobs []jobs.Job
	err  error
}

func (c *captureQueue) Enqueue(job jobs.Job) error {
	if c.err != nil {
		return c.err
	}
	c.jobs = append(c.jobs, job)
	return nil
}

func TestNotifyInlinePublishesAndMails(t *testing.T) {
	pub := &capturePublisher{}
	mail := &captureMailer{}
	svc := NewNotificationService(pub, mail, nil, nil)

	svc.Notify(context.Background(), models.EnrollmentEvent{
		Type: models.EventEnrollmentApproved, EnrollmentID: "e1", TrainingTitle: "Go Basics",
		StudentName: "Ana", Email: "ana@example.com", SeatDelta: 1,
	})

	require.Equal(t, []string{"enrollment.approved"}, pub.keys)
	var decoded models.EnrollmentEvent
	require.NoError(t, json.Unmarshal(pub.bodies[0], &decoded))
	assert.Equal(t, "e1", decoded.EnrollmentID)
	assert.NotEmpty(t, decoded.ID)

	require.Len(t, mail.sent, 1)
	assert.Equal(t, "ana@example.com", mail.sent[0].ToEmail)
	assert.Contains(t, mail.sent[0].Subject, "Go Basics")
	assert.Contains(t, mail.sent[0].Text, "Hi Ana")
}

func TestNotifySkipsMailForDeletes(t *testing.T) {
	pub := &capturePublisher{}
	mail := &captureMailer{}
	svc := NewNotificationService(pub, mail, nil, nil)

	svc.Notify(context.Background(), models.EnrollmentEvent{Type: models.EventEnrollmentDeleted, Email: "ana@example.com"})
	assert.Len(t, pub.keys, 1)
	assert.Empty(t, mail.sent)
}

func TestNotifyUsesQueue(t *testing.T) {
	queue := &captureQueue{}
	svc := NewNotificationService(&capturePublisher{}, &captureMailer{}, nil, nil)
	svc.AttachQueue(queue)

	svc.Notify(context.Background(), models.EnrollmentEvent{Type: models.EventEnrollmentRejected, Email: "ana@example.com"})
	require.Len(t, queue.jobs, 2)
	assert.Equal(t, jobPublishEvent, queue.jobs[0].Type)
	assert.Equal(t, jobSendMail, queue.jobs[1].Type)

	queue.err = jobs.ErrQueueFull
	assert.NotPanics(t, func() {
		svc.Notify(context.Background(), models.EnrollmentEvent{Type: models.EventEnrollmentRejected})
	})
}

func TestHandleReturnsPublishErrorsForRetry(t *testing.T) {
	pub := &capturePublisher{failures: 1}
	svc := NewNotificationService(pub, nil, nil, nil)
	job := jobs.Job{ID: "j1", Type: jobPublishEvent, Payload: models.EnrollmentEvent{Type: models.EventEnrollmentCompleted}}

	assert.Error(t, svc.Handle(context.Background(), job))
	assert.NoError(t, svc.Handle(context.Background(), job))
	assert.Error(t, svc.Handle(context.Background(), jobs.Job{Type: "unknown"}))
}

func TestNotifyThroughWorkerQueue(t *testing.T) {
	pub := &capturePublisher{failures: 1}
	mail := &captureMailer{}
	svc := NewNotificationService(pub, mail, nil, nil)
	done := make(chan struct{}, 4)
	queue := jobs.NewQueue("events", func(ctx context.Context, job jobs.Job) error {
		err := svc.Handle(ctx, job)
		if err == nil {
			done <- struct{}{}
		}
		return err
	}, jobs.QueueConfig{Workers: 1, MaxRetries: 2, RetryDelay: 1})
	queue.Start(context.Background())
	defer queue.Stop()
	svc.AttachQueue(queue)

	svc.Notify(context.Background(), models.EnrollmentEvent{Type: models.EventEnrollmentCompleted, Email: "ana@example.com", TrainingTitle: "Go"})
	<-done
	<-done

	pub.mu.Lock()
	defer pub.mu.Unlock()
	assert.Equal(t, []string{"enrollment.completed"}, pub.keys)
}
