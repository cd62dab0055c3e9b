package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/training-enrollment-api/internal/models"
)

const enrollmentID = "3c9a7e12-5b4d-4f60-8a2e-9d1c0b7f6e54"

var enrollmentCols = []string{"id", "student_name", "email", "phone", "whatsapp_number", "training_id", "status", "source",
	"notes", "admin_notes", "enrolled_by", "created_at", "updated_at", "approved_at", "completed_at"}

var enrollmentDetailCols = append(append([]string{}, enrollmentCols...), "training_title", "training_slug", "enrolled_by_name", "enrolled_by_email")

func TestEnrollmentRepositoryListAppliesFilters(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(enrollmentDetailCols).
		AddRow(enrollmentID, "Ana", "ana@example.com", "0812", nil, trainingID, "pending", "website", "", "", nil, now, now, nil, nil,
			"Go Basics", "go-basics", nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE e.status = $1 AND e.source = $2 AND (e.student_name ILIKE $3 OR e.email ILIKE $3 OR e.phone ILIKE $3) ORDER BY e.created_at DESC, e.id DESC LIMIT 100 OFFSET 100")).
		WithArgs(models.EnrollmentStatusPending, models.SourceWebsite, "%ana%").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM enrollments e WHERE e.status = $1")).
		WithArgs(models.EnrollmentStatusPending, models.SourceWebsite, "%ana%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(101))

	items, total, err := repo.List(context.Background(), models.EnrollmentFilter{
		Status:   models.EnrollmentStatusPending,
		Source:   models.SourceWebsite,
		Search:   " ana ",
		Page:     2,
		PageSize: 500,
	})
	require.NoError(t, err)
	assert.Equal(t, 101, total)
	require.Len(t, items, 1)
	require.NotNil(t, items[0].TrainingRef())
	assert.Equal(t, "Go Basics", items[0].TrainingRef().Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositorySearchEscapesWildcards(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM enrollments e WHERE (e.student_name ILIKE $1")).
		WithArgs(`%a\_b%`).
		WillReturnRows(sqlmock.NewRows(enrollmentCols))

	items, err := repo.ListForRollup(context.Background(), "a_b")
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryStats(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("COUNT(*) FILTER (WHERE status = 'pending') AS pending")).
		WillReturnRows(sqlmock.NewRows([]string{"total", "pending", "approved", "completed"}).AddRow(10, 4, 3, 2))

	stats, err := repo.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStats{Total: 10, Pending: 4, Approved: 3, Completed: 2}, stats)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryFindDetailNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE e.id = $1")).WithArgs(enrollmentID).WillReturnError(sql.ErrNoRows)

	_, err := repo.FindDetailByID(context.Background(), enrollmentID)
	assert.ErrorIs(t, err, sql.ErrNoRows)

	_, err = repo.FindDetailByID(context.Background(), "42")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryTransitionInUnitOfWork(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)
	trainings := NewTrainingRepository(db)
	uow := NewUnitOfWork(db)

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM enrollments e WHERE e.id = $1 FOR UPDATE")).
		WithArgs(enrollmentID).
		WillReturnRows(sqlmock.NewRows(enrollmentCols).
			AddRow(enrollmentID, "Ana", "ana@example.com", "0812", nil, trainingID, "pending", "website", "", "", nil, now, now, nil, nil))
	mock.ExpectExec("UPDATE enrollments SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE trainings SET current_enrollments")).
		WithArgs(trainingID, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := uow.WithinTx(context.Background(), func(tx sqlx.ExtContext) error {
		enrollment, err := repo.LockByID(context.Background(), tx, enrollmentID)
		if err != nil {
			return err
		}
		enrollment.Status = models.EnrollmentStatusApproved
		if err := repo.Update(context.Background(), tx, enrollment); err != nil {
			return err
		}
		return trainings.AdjustEnrollments(context.Background(), tx, enrollment.TrainingID, 1)
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnitOfWorkRollsBackOnError(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	uow := NewUnitOfWork(db)
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM enrollments WHERE id = $1")).
		WithArgs(enrollmentID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	boom := errors.New("counter write failed")
	err := uow.WithinTx(context.Background(), func(tx sqlx.ExtContext) error {
		if err := repo.Delete(context.Background(), tx, enrollmentID); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCountPendingOlderThan(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	cutoff := time.Now().Add(-48 * time.Hour)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM enrollments WHERE status = 'pending' AND created_at < $1")).
		WithArgs(cutoff).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	count, err := repo.CountPendingOlderThan(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, 7, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
