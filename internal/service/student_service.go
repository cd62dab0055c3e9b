package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/training-enrollment-api/internal/models"
	appErrors "github.com/noah-isme/training-enrollment-api/pkg/errors"
)

type rollupSource interface {
	ListForRollup(ctx context.Context, search string) ([]models.Enrollment, error)
}

type trainingRefResolver interface {
	FindRefs(ctx context.Context, ids []string) (map[string]models.TrainingRef, error)
}

// StudentService derives per-student views from enrollments.
type StudentService struct {
	enrollments rollupSource
	trainings   trainingRefResolver
	logger      *zap.Logger
}

// NewStudentService constructs a StudentService.
func NewStudentService(enrollments rollupSource, trainings trainingRefResolver, logger *zap.Logger) *StudentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{enrollments: enrollments, trainings: trainings, logger: logger}
}

// StudentList is a page of students and the number of students overall.
type StudentList struct {
	Items []models.StudentView
	Total int
	Page  int
	Limit int
}

// List groups matching enrollments by student and returns the requested page
// with training references resolved in one lookup.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) (*StudentList, error) {
	page, size := normalizePaging(filter.Page, filter.PageSize)

	enrollments, err := s.enrollments.ListForRollup(ctx, filter.Search)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list students")
	}

	students := BuildStudentRollups(enrollments)
	pageItems := PageStudents(students, page, size)

	seen := make(map[string]struct{})
	var ids []string
	for _, student := range pageItems {
		for _, e := range student.Enrollments {
			if _, ok := seen[e.TrainingID]; ok {
				continue
			}
			seen[e.TrainingID] = struct{}{}
			ids = append(ids, e.TrainingID)
		}
	}

	refs, err := s.trainings.FindRefs(ctx, ids)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to resolve trainings")
	}
	for i := range pageItems {
		for j := range pageItems[i].Enrollments {
			if ref, ok := refs[pageItems[i].Enrollments[j].TrainingID]; ok {
				ref := ref
				pageItems[i].Enrollments[j].Training = &ref
			}
		}
	}

	return &StudentList{Items: pageItems, Total: len(students), Page: page, Limit: size}, nil
}
