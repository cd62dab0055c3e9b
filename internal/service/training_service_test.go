package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/training-enrollment-api/internal/models"
)

type fakeTrainingRepo struct {
	items     map[string]*models.Training
	listCalls int
	nextID    int
}

func newFakeTrainingRepo() *fakeTrainingRepo {
	return &fakeTrainingRepo{items: map[string]*models.Training{}}
}

func (f *fakeTrainingRepo) List(ctx context.Context, filter models.TrainingFilter) ([]models.Training, int, error) {
	f.listCalls++
	var out []models.Training
	for _, t := range f.items {
		if filter.PublishedOnly && !t.IsOpen() {
			continue
		}
		out = append(out, *t)
	}
	return out, len(out), nil
}

func (f *fakeTrainingRepo) FindByID(ctx context.Context, id string) (*models.Training, error) {
	t, ok := f.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *t
	return &copied, nil
}

func (f *fakeTrainingRepo) FindBySlug(ctx context.Context, slug string) (*models.Training, error) {
	for _, t := range f.items {
		if t.Slug == slug {
			copied := *t
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeTrainingRepo) SlugExists(ctx context.Context, slug, excludeID string) (bool, error) {
	for id, t := range f.items {
		if t.Slug == slug && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeTrainingRepo) Create(ctx context.Context, training *models.Training) error {
	f.nextID++
	training.ID = fmt.Sprintf("t-%d", f.nextID)
	copied := *training
	f.items[training.ID] = &copied
	return nil
}

func (f *fakeTrainingRepo) Update(ctx context.Context, training *models.Training) error {
	if _, ok := f.items[training.ID]; !ok {
		return sql.ErrNoRows
	}
	copied := *training
	f.items[training.ID] = &copied
	return nil
}

func (f *fakeTrainingRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.items[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.items, id)
	return nil
}

type mapCache struct {
	values      map[string]interface{}
	invalidated []string
}

func (m *mapCache) Get(ctx context.Context, key string, dest interface{}) bool {
	v, ok := m.values[key]
	if !ok {
		return false
	}
	switch d := dest.(type) {
	case *TrainingPage:
		*d = v.(TrainingPage)
	case *models.Training:
		*d = *v.(*models.Training)
	}
	return true
}

func (m *mapCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	m.values[key] = value
}

func (m *mapCache) Invalidate(ctx context.Context, pattern string) {
	m.invalidated = append(m.invalidated, pattern)
	m.values = map[string]interface{}{}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Go Basics":                "go-basics",
		"  Data  Science -- 101 ":  "data-science-101",
		"Café Barista Ünterricht!": "cafe-barista-unterricht",
		"***":                      "",
	}
	for in, want := range cases {
		assert.Equal(t, want, slugify(in), in)
	}
}

func TestTrainingCreateDerivesUniqueSlug(t *testing.T) {
	repo := newFakeTrainingRepo()
	svc := NewTrainingService(repo, nil, nil, nil)
	ctx := context.Background()

	first, err := svc.Create(ctx, models.CreateTrainingRequest{Title: "Go Basics", MaxParticipants: intPtr(20)})
	require.NoError(t, err)
	assert.Equal(t, "go-basics", first.Slug)
	assert.True(t, first.IsActive)
	assert.Equal(t, 0, first.CurrentEnrollments)

	second, err := svc.Create(ctx, models.CreateTrainingRequest{Title: "Go basics!"})
	require.NoError(t, err)
	assert.Equal(t, "go-basics-2", second.Slug)

	_, err = svc.Create(ctx, models.CreateTrainingRequest{Title: "!!!"})
	assert.Equal(t, "VALIDATION_ERROR", codeOf(err))
}

func TestTrainingUpdateLeavesCounterAlone(t *testing.T) {
	repo := newFakeTrainingRepo()
	repo.items["t-1"] = &models.Training{ID: "t-1", Title: "Go", Slug: "go", MaxParticipants: intPtr(10), CurrentEnrollments: 7, IsActive: true}
	cache := &mapCache{values: map[string]interface{}{}}
	svc := NewTrainingService(repo, cache, nil, nil)

	updated, err := svc.Update(context.Background(), "t-1", models.UpdateTrainingRequest{
		Title: strPtr("Go Advanced"), ClearMaxParticipants: true, IsPublished: boolPtr(true),
	})
	require.NoError(t, err)
	assert.Equal(t, "Go Advanced", updated.Title)
	assert.Equal(t, "go", updated.Slug)
	assert.Nil(t, updated.MaxParticipants)
	assert.True(t, updated.IsPublished)
	assert.Equal(t, 7, repo.items["t-1"].CurrentEnrollments)
	assert.Equal(t, []string{catalogCachePattern}, cache.invalidated)

	_, err = svc.Update(context.Background(), "missing", models.UpdateTrainingRequest{})
	assert.Equal(t, "NOT_FOUND", codeOf(err))
}

func TestTrainingPublicReadsUseCache(t *testing.T) {
	repo := newFakeTrainingRepo()
	repo.items["t-1"] = &models.Training{ID: "t-1", Title: "Go", Slug: "go", IsActive: true, IsPublished: true}
	repo.items["t-2"] = &models.Training{ID: "t-2", Title: "Draft", Slug: "draft", IsActive: true}
	cache := &mapCache{values: map[string]interface{}{}}
	svc := NewTrainingService(repo, cache, nil, nil)
	ctx := context.Background()

	items, total, err := svc.ListPublic(ctx, models.TrainingFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, items, 1)

	_, _, err = svc.ListPublic(ctx, models.TrainingFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.listCalls)

	_, err = svc.GetPublic(ctx, "draft")
	assert.Equal(t, "NOT_FOUND", codeOf(err))
	found, err := svc.GetPublic(ctx, "go")
	require.NoError(t, err)
	assert.Equal(t, "t-1", found.ID)

	svc.InvalidateCatalog(ctx)
	_, _, err = svc.ListPublic(ctx, models.TrainingFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, repo.listCalls)
}

func TestTrainingDelete(t *testing.T) {
	repo := newFakeTrainingRepo()
	repo.items["t-1"] = &models.Training{ID: "t-1", Slug: "go"}
	svc := NewTrainingService(repo, nil, nil, nil)

	require.NoError(t, svc.Delete(context.Background(), "t-1"))
	assert.Equal(t, "NOT_FOUND", codeOf(svc.Delete(context.Background(), "t-1")))
}

func boolPtr(v bool) *bool { return &v }
