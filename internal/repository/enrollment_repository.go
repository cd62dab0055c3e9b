package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/training-enrollment-api/internal/models"
)

const enrollmentColumns = `e.id, e.student_name, e.email, e.phone, e.whatsapp_number, e.training_id, e.status, e.source,
e.notes, e.admin_notes, e.enrolled_by, e.created_at, e.updated_at, e.approved_at, e.completed_at`

const enrollmentDetailSelect = `SELECT ` + enrollmentColumns + `,
t.title AS training_title, t.slug AS training_slug, u.full_name AS enrolled_by_name, u.email AS enrolled_by_email
FROM enrollments e
LEFT JOIN trainings t ON t.id = e.training_id
LEFT JOIN users u ON u.id = e.enrolled_by`

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

func buildEnrollmentWhere(filter models.EnrollmentFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("e.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.TrainingID != "" {
		conditions = append(conditions, fmt.Sprintf("e.training_id::text = $%d", len(args)+1))
		args = append(args, filter.TrainingID)
	}
	if filter.Source != "" {
		conditions = append(conditions, fmt.Sprintf("e.source = $%d", len(args)+1))
		args = append(args, filter.Source)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		conditions = append(conditions, searchCondition(len(args)+1))
		args = append(args, likePattern(search))
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func searchCondition(n int) string {
	return fmt.Sprintf("(e.student_name ILIKE $%[1]d OR e.email ILIKE $%[1]d OR e.phone ILIKE $%[1]d)", n)
}

// List returns a page of enrollments newest first together with the filtered total.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	clause, args := buildEnrollmentWhere(filter)
	page, size := normalizePage(filter.Page, filter.PageSize)

	query := fmt.Sprintf("%s%s ORDER BY e.created_at DESC, e.id DESC LIMIT %d OFFSET %d", enrollmentDetailSelect, clause, size, (page-1)*size)
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM enrollments e"+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}

// ListForExport returns every enrollment matching filter, newest first, without paging.
func (r *EnrollmentRepository) ListForExport(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, error) {
	clause, args := buildEnrollmentWhere(filter)
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, enrollmentDetailSelect+clause+" ORDER BY e.created_at DESC, e.id DESC", args...); err != nil {
		return nil, fmt.Errorf("export enrollments: %w", err)
	}
	return enrollments, nil
}

// ListForRollup returns the raw enrollments matching search, oldest first,
// as input for the student roll-up.
func (r *EnrollmentRepository) ListForRollup(ctx context.Context, search string) ([]models.Enrollment, error) {
	clause, args := buildEnrollmentWhere(models.EnrollmentFilter{Search: search})
	query := "SELECT " + enrollmentColumns + " FROM enrollments e" + clause + " ORDER BY e.created_at ASC, e.id ASC"
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, fmt.Errorf("list enrollments for students: %w", err)
	}
	return enrollments, nil
}

// Stats counts enrollments per status bucket across the whole table.
func (r *EnrollmentRepository) Stats(ctx context.Context) (models.EnrollmentStats, error) {
	const query = `SELECT COUNT(*) AS total,
COUNT(*) FILTER (WHERE status = 'pending') AS pending,
COUNT(*) FILTER (WHERE status = 'approved') AS approved,
COUNT(*) FILTER (WHERE status = 'completed') AS completed
FROM enrollments`
	var stats models.EnrollmentStats
	if err := r.db.GetContext(ctx, &stats, query); err != nil {
		return models.EnrollmentStats{}, fmt.Errorf("enrollment stats: %w", err)
	}
	return stats, nil
}

// FindDetailByID loads an enrollment with its training and admin resolved.
func (r *EnrollmentRepository) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	if !isUUID(id) {
		return nil, sql.ErrNoRows
	}
	var detail models.EnrollmentDetail
	if err := r.db.GetContext(ctx, &detail, enrollmentDetailSelect+" WHERE e.id = $1", id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("get enrollment: %w", err)
	}
	return &detail, nil
}

// LockByID loads an enrollment inside tx and holds its row lock until the
// transaction ends. Concurrent transitions of the same record queue here.
func (r *EnrollmentRepository) LockByID(ctx context.Context, tx sqlx.ExtContext, id string) (*models.Enrollment, error) {
	if !isUUID(id) {
		return nil, sql.ErrNoRows
	}
	var enrollment models.Enrollment
	query := "SELECT " + enrollmentColumns + " FROM enrollments e WHERE e.id = $1 FOR UPDATE"
	if err := sqlx.GetContext(ctx, tx, &enrollment, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("lock enrollment: %w", err)
	}
	return &enrollment, nil
}

// Create inserts an enrollment using tx.
func (r *EnrollmentRepository) Create(ctx context.Context, tx sqlx.ExtContext, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = now
	}
	enrollment.UpdatedAt = now
	const query = `INSERT INTO enrollments (id, student_name, email, phone, whatsapp_number, training_id, status, source, notes, admin_notes,
enrolled_by, created_at, updated_at, approved_at, completed_at)
VALUES (:id, :student_name, :email, :phone, :whatsapp_number, :training_id, :status, :source, :notes, :admin_notes,
:enrolled_by, :created_at, :updated_at, :approved_at, :completed_at)`
	if _, err := sqlx.NamedExecContext(ctx, tx, query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// Update writes every mutable column of enrollment using tx.
func (r *EnrollmentRepository) Update(ctx context.Context, tx sqlx.ExtContext, enrollment *models.Enrollment) error {
	enrollment.UpdatedAt = time.Now().UTC()
	const query = `UPDATE enrollments SET student_name = :student_name, email = :email, phone = :phone, whatsapp_number = :whatsapp_number,
training_id = :training_id, status = :status, source = :source, notes = :notes, admin_notes = :admin_notes,
updated_at = :updated_at, approved_at = :approved_at, completed_at = :completed_at WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, tx, query, enrollment)
	if err != nil {
		return fmt.Errorf("update enrollment: %w", err)
	}
	return requireAffected(res)
}

// Delete removes an enrollment using tx.
func (r *EnrollmentRepository) Delete(ctx context.Context, tx sqlx.ExtContext, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM enrollments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	return requireAffected(res)
}

// CountPendingOlderThan counts pending enrollments created before cutoff.
func (r *EnrollmentRepository) CountPendingOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM enrollments WHERE status = 'pending' AND created_at < $1`, cutoff); err != nil {
		return 0, fmt.Errorf("count pending enrollments: %w", err)
	}
	return count, nil
}
