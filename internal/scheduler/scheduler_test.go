package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/training-enrollment-api/internal/models"
)

type stubCounter struct {
	count  int
	err    error
	cutoff time.Time
}

func (s *stubCounter) CountPendingOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	s.cutoff = cutoff
	return s.count, s.err
}

type stubNotifier struct {
	events []models.EnrollmentEvent
}

func (s *stubNotifier) Notify(ctx context.Context, event models.EnrollmentEvent) {
	s.events = append(s.events, event)
}

func TestPendingDigestReportsBacklog(t *testing.T) {
	counter := &stubCounter{count: 4}
	notifier := &stubNotifier{}
	s := New(counter, notifier, Config{Schedule: "0 0 * * * *", PendingAge: 24 * time.Hour}, nil)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	count, err := s.PendingDigest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, count)
	assert.Equal(t, now.Add(-24*time.Hour), counter.cutoff)
	require.Len(t, notifier.events, 1)
	assert.Equal(t, models.EventPendingDigest, notifier.events[0].Type)
	assert.Equal(t, 4, notifier.events[0].PendingCount)
}

func TestPendingDigestQuietWhenEmpty(t *testing.T) {
	notifier := &stubNotifier{}
	s := New(&stubCounter{}, notifier, Config{Schedule: "@hourly"}, nil)

	count, err := s.PendingDigest(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, notifier.events)
}

func TestPendingDigestPropagatesErrors(t *testing.T) {
	s := New(&stubCounter{err: errors.New("db down")}, nil, Config{Schedule: "@hourly"}, nil)
	_, err := s.PendingDigest(context.Background())
	assert.Error(t, err)
}

func TestStartRejectsBadSchedule(t *testing.T) {
	s := New(&stubCounter{}, nil, Config{Schedule: "every tuesday"}, nil)
	assert.Error(t, s.Start())

	ok := New(&stubCounter{}, nil, Config{Schedule: "0 0 * * * *"}, nil)
	require.NoError(t, ok.Start())
	ok.Stop()
}
