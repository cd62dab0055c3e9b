package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/noah-isme/training-enrollment-api/internal/models"
	appErrors "github.com/noah-isme/training-enrollment-api/pkg/errors"
)

const catalogCachePattern = "catalog:*"

type trainingRepository interface {
	List(ctx context.Context, filter models.TrainingFilter) ([]models.Training, int, error)
	FindByID(ctx context.Context, id string) (*models.Training, error)
	FindBySlug(ctx context.Context, slug string) (*models.Training, error)
	SlugExists(ctx context.Context, slug, excludeID string) (bool, error)
	Create(ctx context.Context, training *models.Training) error
	Update(ctx context.Context, training *models.Training) error
	Delete(ctx context.Context, id string) error
}

type catalogCache interface {
	Get(ctx context.Context, key string, dest interface{}) bool
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration)
	Invalidate(ctx context.Context, pattern string)
}

// TrainingService manages the training catalog.
type TrainingService struct {
	repo      trainingRepository
	cache     catalogCache
	validator *validator.Validate
	logger    *zap.Logger
}

// TrainingPage is a cached page of the public catalog.
type TrainingPage struct {
	Items []models.Training `json:"items"`
	Total int               `json:"total"`
}

// NewTrainingService constructs a TrainingService. cache may be nil.
func NewTrainingService(repo trainingRepository, cache catalogCache, validate *validator.Validate, logger *zap.Logger) *TrainingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrainingService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// List returns the admin view of the catalog.
func (s *TrainingService) List(ctx context.Context, filter models.TrainingFilter) ([]models.Training, int, error) {
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Internal(err, "failed to list trainings")
	}
	return items, total, nil
}

// ListPublic returns active, published trainings, served from cache when possible.
func (s *TrainingService) ListPublic(ctx context.Context, filter models.TrainingFilter) ([]models.Training, int, error) {
	filter.PublishedOnly = true
	filter.Page, filter.PageSize = normalizePaging(filter.Page, filter.PageSize)
	key := fmt.Sprintf("catalog:list:%d:%d:%s", filter.Page, filter.PageSize, strings.ToLower(strings.TrimSpace(filter.Search)))

	var page TrainingPage
	if s.cache != nil && s.cache.Get(ctx, key, &page) {
		return page.Items, page.Total, nil
	}

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Internal(err, "failed to list trainings")
	}
	if items == nil {
		items = []models.Training{}
	}
	if s.cache != nil {
		s.cache.Set(ctx, key, TrainingPage{Items: items, Total: total}, 0)
	}
	return items, total, nil
}

// GetPublic returns an open training by slug.
func (s *TrainingService) GetPublic(ctx context.Context, slug string) (*models.Training, error) {
	key := "catalog:slug:" + slug
	var training models.Training
	if s.cache != nil && s.cache.Get(ctx, key, &training) {
		return &training, nil
	}

	found, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "training not found")
		}
		return nil, appErrors.Internal(err, "failed to load training")
	}
	if !found.IsOpen() {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "training not found")
	}
	if s.cache != nil {
		s.cache.Set(ctx, key, found, 0)
	}
	return found, nil
}

// Get returns a training by ID.
func (s *TrainingService) Get(ctx context.Context, id string) (*models.Training, error) {
	training, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "training not found")
		}
		return nil, appErrors.Internal(err, "failed to load training")
	}
	return training, nil
}

// Create adds a training. The slug is derived from the title unless given,
// and made unique with a numeric suffix.
func (s *TrainingService) Create(ctx context.Context, req models.CreateTrainingRequest) (*models.Training, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid training payload")
	}
	base := req.Slug
	if base == "" {
		base = req.Title
	}
	slug, err := s.uniqueSlug(ctx, base, "")
	if err != nil {
		return nil, err
	}

	training := &models.Training{
		Title:           strings.TrimSpace(req.Title),
		Slug:            slug,
		Description:     req.Description,
		MaxParticipants: req.MaxParticipants,
		IsActive:        req.IsActive == nil || *req.IsActive,
		IsPublished:     req.IsPublished,
	}
	if err := s.repo.Create(ctx, training); err != nil {
		return nil, appErrors.Internal(err, "failed to create training")
	}
	s.InvalidateCatalog(ctx)
	s.logger.Info("training created", zap.String("training_id", training.ID), zap.String("slug", training.Slug))
	return training, nil
}

// Update merges catalog fields into a training. The seat counter is untouched.
func (s *TrainingService) Update(ctx context.Context, id string, req models.UpdateTrainingRequest) (*models.Training, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid training payload")
	}
	training, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		training.Title = strings.TrimSpace(*req.Title)
	}
	if req.Slug != nil && *req.Slug != "" && slugify(*req.Slug) != training.Slug {
		slug, err := s.uniqueSlug(ctx, *req.Slug, training.ID)
		if err != nil {
			return nil, err
		}
		training.Slug = slug
	}
	if req.Description != nil {
		training.Description = *req.Description
	}
	if req.ClearMaxParticipants {
		training.MaxParticipants = nil
	} else if req.MaxParticipants != nil {
		training.MaxParticipants = req.MaxParticipants
	}
	if req.IsActive != nil {
		training.IsActive = *req.IsActive
	}
	if req.IsPublished != nil {
		training.IsPublished = *req.IsPublished
	}

	if err := s.repo.Update(ctx, training); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "training not found")
		}
		return nil, appErrors.Internal(err, "failed to update training")
	}
	s.InvalidateCatalog(ctx)
	return training, nil
}

// Delete removes a training. Existing enrollments keep pointing at it and
// are shown as a deleted training.
func (s *TrainingService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "training not found")
		}
		return appErrors.Internal(err, "failed to delete training")
	}
	s.InvalidateCatalog(ctx)
	s.logger.Info("training deleted", zap.String("training_id", id))
	return nil
}

// InvalidateCatalog drops every cached public catalog entry.
func (s *TrainingService) InvalidateCatalog(ctx context.Context) {
	if s == nil || s.cache == nil {
		return
	}
	s.cache.Invalidate(ctx, catalogCachePattern)
}

func (s *TrainingService) uniqueSlug(ctx context.Context, source, excludeID string) (string, error) {
	base := slugify(source)
	if base == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, "title must contain letters or digits")
	}
	candidate := base
	for i := 2; ; i++ {
		exists, err := s.repo.SlugExists(ctx, candidate, excludeID)
		if err != nil {
			return "", appErrors.Internal(err, "failed to check slug")
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}

// slugify lower-cases s, folds accents and collapses every other run of
// non-alphanumerics into a single hyphen.
func slugify(s string) string {
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(folder, s)
	if err != nil {
		folded = s
	}
	var b strings.Builder
	pendingHyphen := false
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}
	return b.String()
}
