package service

import (
	"sort"

	"github.com/noah-isme/training-enrollment-api/internal/models"
)

const deletedTrainingLabel = "Deleted Training"

// BuildStudentRollups groups enrollments by lower-cased email. Contact
// fields come from the student's most recent enrollment, ties on created_at
// broken by id. Each student's enrollments are listed newest first and
// students are ordered by last enrollment, newest first, then email.
//
// Training references are left nil; callers resolve them per page.
func BuildStudentRollups(enrollments []models.Enrollment) []models.StudentView {
	ordered := make([]models.Enrollment, len(enrollments))
	copy(ordered, enrollments)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].CreatedAt.Equal(ordered[j].CreatedAt) {
			return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
		}
		return ordered[i].ID < ordered[j].ID
	})

	index := make(map[string]int)
	var students []models.StudentView
	for _, e := range ordered {
		key := models.NormalizeEmail(e.Email)
		pos, ok := index[key]
		if !ok {
			pos = len(students)
			index[key] = pos
			students = append(students, models.StudentView{Email: key})
		}
		student := &students[pos]

		student.StudentName = e.StudentName
		student.Phone = e.Phone
		student.WhatsAppNumber = e.WhatsAppNumber
		student.LastEnrolled = e.CreatedAt
		student.TotalEnrollments++
		switch e.Status {
		case models.EnrollmentStatusApproved:
			student.Approved++
		case models.EnrollmentStatusCompleted:
			student.Completed++
		}
		student.Enrollments = append(student.Enrollments, models.StudentEnrollment{
			ID:         e.ID,
			TrainingID: e.TrainingID,
			Status:     e.Status,
			Source:     e.Source,
			CreatedAt:  e.CreatedAt,
		})
	}

	for i := range students {
		list := students[i].Enrollments
		for l, r := 0, len(list)-1; l < r; l, r = l+1, r-1 {
			list[l], list[r] = list[r], list[l]
		}
	}

	sort.SliceStable(students, func(i, j int) bool {
		if !students[i].LastEnrolled.Equal(students[j].LastEnrolled) {
			return students[i].LastEnrolled.After(students[j].LastEnrolled)
		}
		return students[i].Email < students[j].Email
	})
	return students
}

// PageStudents slices a page out of the roll-up.
func PageStudents(students []models.StudentView, page, size int) []models.StudentView {
	page, size = normalizePaging(page, size)
	start := (page - 1) * size
	if start >= len(students) {
		return []models.StudentView{}
	}
	end := start + size
	if end > len(students) {
		end = len(students)
	}
	return students[start:end]
}
