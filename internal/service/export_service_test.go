package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/training-enrollment-api/internal/models"
)

func TestEnrollmentCSVQuotingRoundTrip(t *testing.T) {
	store := newMemoryStore()
	store.addTraining(models.Training{ID: goTraining, Title: "Go, \"Basics\"", Slug: "go-basics"})
	store.admins[adminID] = models.AdminRef{ID: adminID, FullName: "Admin One"}
	created := time.Date(2024, 4, 2, 10, 0, 0, 0, time.UTC)
	approved := created.Add(90 * time.Minute)
	store.addEnrollment(models.Enrollment{
		ID:          "e1",
		StudentName: "O'Brien, Pat",
		Email:       "pat@example.com",
		Phone:       "0812",
		TrainingID:  goTraining,
		Status:      models.EnrollmentStatusApproved,
		Source:      models.SourceReferral,
		Notes:       "line one\nline \"two\"",
		EnrolledBy:  strPtr(adminID),
		CreatedAt:   created,
		ApprovedAt:  &approved,
	})
	store.addEnrollment(models.Enrollment{
		ID: "e2", StudentName: "Orphan", Email: "o@example.com", Phone: "1", TrainingID: "gone",
		Status: models.EnrollmentStatusPending, Source: models.SourceWebsite, CreatedAt: created.Add(-time.Hour),
	})

	svc := NewExportService(store, nil, nil, nil)
	svc.now = func() time.Time { return created }
	file, err := svc.Enrollments(context.Background(), models.EnrollmentFilter{}, ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "enrollments-20240402-100000.csv", file.Filename)
	assert.True(t, strings.HasPrefix(file.ContentType, "text/csv"))

	records, err := csv.NewReader(bytes.NewReader(file.Data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, EnrollmentExportHeaders, records[0])
	assert.Equal(t, []string{
		"O'Brien, Pat", "pat@example.com", "0812", "", "Go, \"Basics\"", "approved", "referral",
		"line one\nline \"two\"", "", "Admin One", "2024-04-02 10:00:00", "2024-04-02 11:30:00", "",
	}, records[1])
	assert.Equal(t, "Deleted Training", records[2][4])
	assert.Equal(t, "", records[2][9])
}

func TestEnrollmentExportPDFAndFormatValidation(t *testing.T) {
	store := newMemoryStore()
	svc := NewExportService(store, nil, nil, nil)

	file, err := svc.Enrollments(context.Background(), models.EnrollmentFilter{}, ExportFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, bytes.HasPrefix(file.Data, []byte("%PDF")))

	_, err = svc.Enrollments(context.Background(), models.EnrollmentFilter{}, "xlsx")
	assert.Equal(t, "VALIDATION_ERROR", codeOf(err))
}
