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
	"github.com/lib/pq"

	"github.com/noah-isme/training-enrollment-api/internal/models"
)

const trainingColumns = `id, title, slug, description, max_participants, current_enrollments, is_active, is_published, created_at, updated_at`

// TrainingRepository handles persistence of training programs.
type TrainingRepository struct {
	db *sqlx.DB
}

// NewTrainingRepository constructs the repository.
func NewTrainingRepository(db *sqlx.DB) *TrainingRepository {
	return &TrainingRepository{db: db}
}

// List returns trainings matching filter, newest first, and the total count.
func (r *TrainingRepository) List(ctx context.Context, filter models.TrainingFilter) ([]models.Training, int, error) {
	var conditions []string
	var args []interface{}

	if filter.PublishedOnly {
		conditions = append(conditions, "is_active = TRUE AND is_published = TRUE")
	}
	if filter.Search != "" {
		args = append(args, likePattern(filter.Search))
		conditions = append(conditions, fmt.Sprintf("title ILIKE $%d", len(args)))
	}
	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page, size := normalizePage(filter.Page, filter.PageSize)
	query := fmt.Sprintf(`SELECT %s FROM trainings%s ORDER BY created_at DESC LIMIT %d OFFSET %d`, trainingColumns, clause, size, (page-1)*size)

	var trainings []models.Training
	if err := r.db.SelectContext(ctx, &trainings, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list trainings: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM trainings"+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("count trainings: %w", err)
	}
	return trainings, total, nil
}

// FindByID returns a training by ID or sql.ErrNoRows.
func (r *TrainingRepository) FindByID(ctx context.Context, id string) (*models.Training, error) {
	if !isUUID(id) {
		return nil, sql.ErrNoRows
	}
	return r.get(ctx, r.db, `SELECT `+trainingColumns+` FROM trainings WHERE id = $1`, id)
}

// FindBySlug returns a training by slug or sql.ErrNoRows.
func (r *TrainingRepository) FindBySlug(ctx context.Context, slug string) (*models.Training, error) {
	return r.get(ctx, r.db, `SELECT `+trainingColumns+` FROM trainings WHERE slug = $1`, slug)
}

// LockByID loads a training inside tx and holds its row lock until the
// transaction ends, so capacity checks and counter writes see the same value.
func (r *TrainingRepository) LockByID(ctx context.Context, tx sqlx.ExtContext, id string) (*models.Training, error) {
	if !isUUID(id) {
		return nil, sql.ErrNoRows
	}
	return r.get(ctx, tx, `SELECT `+trainingColumns+` FROM trainings WHERE id = $1 FOR UPDATE`, id)
}

func (r *TrainingRepository) get(ctx context.Context, q sqlx.QueryerContext, query, arg string) (*models.Training, error) {
	var training models.Training
	if err := sqlx.GetContext(ctx, q, &training, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("get training: %w", err)
	}
	return &training, nil
}

// SlugExists reports whether slug is taken by a training other than excludeID.
func (r *TrainingRepository) SlugExists(ctx context.Context, slug, excludeID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM trainings WHERE slug = $1`
	args := []interface{}{slug}
	if excludeID != "" {
		query += ` AND id <> $2`
		args = append(args, excludeID)
	}
	query += `)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, args...); err != nil {
		return false, fmt.Errorf("check training slug: %w", err)
	}
	return exists, nil
}

// Create inserts a training. The live counter always starts at zero.
func (r *TrainingRepository) Create(ctx context.Context, training *models.Training) error {
	if training.ID == "" {
		training.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	training.CreatedAt, training.UpdatedAt = now, now
	training.CurrentEnrollments = 0
	const query = `INSERT INTO trainings (id, title, slug, description, max_participants, current_enrollments, is_active, is_published, created_at, updated_at)
        VALUES (:id, :title, :slug, :description, :max_participants, 0, :is_active, :is_published, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, training); err != nil {
		return fmt.Errorf("create training: %w", err)
	}
	return nil
}

// Update writes catalog fields. current_enrollments is deliberately absent:
// only the seat ledger moves it.
func (r *TrainingRepository) Update(ctx context.Context, training *models.Training) error {
	training.UpdatedAt = time.Now().UTC()
	const query = `UPDATE trainings SET title = :title, slug = :slug, description = :description, max_participants = :max_participants,
        is_active = :is_active, is_published = :is_published, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, training)
	if err != nil {
		return fmt.Errorf("update training: %w", err)
	}
	return requireAffected(res)
}

// Delete removes a training. Its enrollments are kept.
func (r *TrainingRepository) Delete(ctx context.Context, id string) error {
	if !isUUID(id) {
		return sql.ErrNoRows
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM trainings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete training: %w", err)
	}
	return requireAffected(res)
}

// AdjustEnrollments applies delta to the live counter with a single atomic
// UPDATE, clamped at zero. A missing training is not an error.
func (r *TrainingRepository) AdjustEnrollments(ctx context.Context, tx sqlx.ExtContext, id string, delta int) error {
	if delta == 0 {
		return nil
	}
	const query = `UPDATE trainings SET current_enrollments = GREATEST(current_enrollments + $2, 0), updated_at = NOW() WHERE id = $1`
	if _, err := tx.ExecContext(ctx, query, id, delta); err != nil {
		return fmt.Errorf("adjust training enrollments: %w", err)
	}
	return nil
}

// FindRefs resolves id, title and slug for the given trainings in one query.
// Unknown IDs are simply absent from the result.
func (r *TrainingRepository) FindRefs(ctx context.Context, ids []string) (map[string]models.TrainingRef, error) {
	refs := make(map[string]models.TrainingRef, len(ids))
	if len(ids) == 0 {
		return refs, nil
	}
	var rows []models.TrainingRef
	if err := r.db.SelectContext(ctx, &rows, `SELECT id, title, slug FROM trainings WHERE id = ANY($1)`, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("resolve training refs: %w", err)
	}
	for _, row := range rows {
		refs[row.ID] = row
	}
	return refs, nil
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	return page, size
}

// isUUID guards id lookups so malformed path params read as not found rather
// than a driver cast error.
func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(term string) string {
	return "%" + likeEscaper.Replace(strings.TrimSpace(term)) + "%"
}
