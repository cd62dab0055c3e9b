package service

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/training-enrollment-api/internal/models"
)

// memoryStore is an in-memory stand-in for the enrollment and training
// repositories plus the unit of work. A failed transaction restores the
// state it started from.
type memoryStore struct {
	mu          sync.Mutex
	trainings   map[string]models.Training
	enrollments map[string]models.Enrollment
	admins      map[string]models.AdminRef
	adjustErr   error
	detailErr   error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		trainings:   map[string]models.Training{},
		enrollments: map[string]models.Enrollment{},
		admins:      map[string]models.AdminRef{},
	}
}

func (m *memoryStore) addTraining(t models.Training) {
	m.trainings[t.ID] = t
}

func (m *memoryStore) addEnrollment(e models.Enrollment) {
	m.enrollments[e.ID] = e
}

func (m *memoryStore) counter(id string) int {
	return m.trainings[id].CurrentEnrollments
}

func (m *memoryStore) WithinTx(ctx context.Context, fn func(tx sqlx.ExtContext) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	trainings := make(map[string]models.Training, len(m.trainings))
	for k, v := range m.trainings {
		trainings[k] = v
	}
	enrollments := make(map[string]models.Enrollment, len(m.enrollments))
	for k, v := range m.enrollments {
		enrollments[k] = v
	}
	if err := fn(nil); err != nil {
		m.trainings, m.enrollments = trainings, enrollments
		return err
	}
	return nil
}

func (m *memoryStore) LockByID(ctx context.Context, tx sqlx.ExtContext, id string) (*models.Enrollment, error) {
	e, ok := m.enrollments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &e, nil
}

func (m *memoryStore) Create(ctx context.Context, tx sqlx.ExtContext, e *models.Enrollment) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	m.enrollments[e.ID] = *e
	return nil
}

func (m *memoryStore) Update(ctx context.Context, tx sqlx.ExtContext, e *models.Enrollment) error {
	if _, ok := m.enrollments[e.ID]; !ok {
		return sql.ErrNoRows
	}
	m.enrollments[e.ID] = *e
	return nil
}

func (m *memoryStore) Delete(ctx context.Context, tx sqlx.ExtContext, id string) error {
	if _, ok := m.enrollments[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.enrollments, id)
	return nil
}

func (m *memoryStore) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.detailErr != nil {
		return nil, m.detailErr
	}
	e, ok := m.enrollments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	detail := m.detail(e)
	return &detail, nil
}

func (m *memoryStore) detail(e models.Enrollment) models.EnrollmentDetail {
	detail := models.EnrollmentDetail{Enrollment: e}
	if t, ok := m.trainings[e.TrainingID]; ok {
		title, slug := t.Title, t.Slug
		detail.TrainingTitle, detail.TrainingSlug = &title, &slug
	}
	if e.EnrolledBy != nil {
		if admin, ok := m.admins[*e.EnrolledBy]; ok {
			name, email := admin.FullName, admin.Email
			detail.EnrolledByName, detail.EnrolledByEmail = &name, &email
		}
	}
	return detail
}

func (m *memoryStore) matching(filter models.EnrollmentFilter) []models.Enrollment {
	var out []models.Enrollment
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	for _, e := range m.enrollments {
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		if filter.TrainingID != "" && e.TrainingID != filter.TrainingID {
			continue
		}
		if filter.Source != "" && e.Source != filter.Source {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(e.StudentName), search) &&
			!strings.Contains(strings.ToLower(e.Email), search) && !strings.Contains(strings.ToLower(e.Phone), search) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *memoryStore) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.matching(filter)
	start := (filter.Page - 1) * filter.PageSize
	var out []models.EnrollmentDetail
	for i := start; i < len(all) && i < start+filter.PageSize; i++ {
		out = append(out, m.detail(all[i]))
	}
	return out, len(all), nil
}

func (m *memoryStore) ListForExport(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.EnrollmentDetail
	for _, e := range m.matching(filter) {
		out = append(out, m.detail(e))
	}
	return out, nil
}

func (m *memoryStore) ListForRollup(ctx context.Context, search string) ([]models.Enrollment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.matching(models.EnrollmentFilter{Search: search}), nil
}

func (m *memoryStore) Stats(ctx context.Context) (models.EnrollmentStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var stats models.EnrollmentStats
	for _, e := range m.enrollments {
		stats.Total++
		switch e.Status {
		case models.EnrollmentStatusPending:
			stats.Pending++
		case models.EnrollmentStatusApproved:
			stats.Approved++
		case models.EnrollmentStatusCompleted:
			stats.Completed++
		}
	}
	return stats, nil
}

// trainingSide exposes the training half of memoryStore; both repositories
// declare LockByID with different result types.
type trainingSide struct{ *memoryStore }

func (t trainingSide) LockByID(ctx context.Context, tx sqlx.ExtContext, id string) (*models.Training, error) {
	training, ok := t.trainings[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &training, nil
}

func (t trainingSide) AdjustEnrollments(ctx context.Context, tx sqlx.ExtContext, id string, delta int) error {
	if t.adjustErr != nil {
		return t.adjustErr
	}
	training, ok := t.trainings[id]
	if !ok {
		return nil
	}
	training.CurrentEnrollments += delta
	if training.CurrentEnrollments < 0 {
		training.CurrentEnrollments = 0
	}
	t.trainings[id] = training
	return nil
}

func (t trainingSide) FindRefs(ctx context.Context, ids []string) (map[string]models.TrainingRef, error) {
	refs := map[string]models.TrainingRef{}
	for _, id := range ids {
		if training, ok := t.trainings[id]; ok {
			refs[id] = models.TrainingRef{ID: id, Title: training.Title, Slug: training.Slug}
		}
	}
	return refs, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []models.EnrollmentEvent
}

func (r *recordingNotifier) Notify(ctx context.Context, event models.EnrollmentEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingNotifier) types() []models.EnrollmentEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.EnrollmentEventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type countingInvalidator struct{ calls int }

func (c *countingInvalidator) InvalidateCatalog(ctx context.Context) { c.calls++ }

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }
