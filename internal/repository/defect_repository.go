package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/defect-tracker/internal/domain"
)

// DefectFilter captures defect search parameters.
type DefectFilter struct {
	ProjectID  *string
	AssigneeID *string
	ReporterID *string
	StatusIDs  []int
	Priorities []domain.DefectPriority
	SearchTerm *string
	Limit      int
	Offset     int
}

// DefectRepository encapsulates defect persistence outside the
// locked update path.
type DefectRepository interface {
	Create(ctx context.Context, defect *domain.Defect) error
	GetByID(ctx context.Context, id string) (*domain.Defect, error)
	ListWithFilter(ctx context.Context, filter DefectFilter) ([]domain.Defect, error)
	Delete(ctx context.Context, id string) error
}

type defectRepository struct {
	pool *pgxpool.Pool
}

// NewDefectRepository instantiates repository.
func NewDefectRepository(pool *pgxpool.Pool) DefectRepository {
	return &defectRepository{pool: pool}
}

func (r *defectRepository) Create(ctx context.Context, defect *domain.Defect) error {
	const query = `
        INSERT INTO defects (project_id, title, description, priority, status_id, assignee_id, due_date, reporter_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		defect.ProjectID,
		defect.Title,
		defect.Description,
		defect.Priority,
		defect.StatusID,
		defect.AssigneeID,
		defect.DueDate,
		defect.ReporterID,
	).Scan(&defect.ID, &defect.CreatedAt, &defect.UpdatedAt)
}

func (r *defectRepository) GetByID(ctx context.Context, id string) (*domain.Defect, error) {
	const query = `
        SELECT id, project_id, title, description, priority, status_id, assignee_id, due_date,
               reporter_id, created_at, updated_at
        FROM defects WHERE id=$1`
	var defect domain.Defect
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&defect.ID,
		&defect.ProjectID,
		&defect.Title,
		&defect.Description,
		&defect.Priority,
		&defect.StatusID,
		&defect.AssigneeID,
		&defect.DueDate,
		&defect.ReporterID,
		&defect.CreatedAt,
		&defect.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &defect, nil
}

func (r *defectRepository) ListWithFilter(ctx context.Context, filter DefectFilter) ([]domain.Defect, error) {
	base := `SELECT id, project_id, title, description, priority, status_id, assignee_id, due_date,
                    reporter_id, created_at, updated_at
             FROM defects`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.ProjectID != nil {
		args = append(args, *filter.ProjectID)
		clauses = append(clauses, fmt.Sprintf("project_id=$%d", len(args)))
	}
	if filter.AssigneeID != nil {
		args = append(args, *filter.AssigneeID)
		clauses = append(clauses, fmt.Sprintf("assignee_id=$%d", len(args)))
	}
	if filter.ReporterID != nil {
		args = append(args, *filter.ReporterID)
		clauses = append(clauses, fmt.Sprintf("reporter_id=$%d", len(args)))
	}
	if len(filter.StatusIDs) > 0 {
		placeholders := make([]string, len(filter.StatusIDs))
		for i, statusID := range filter.StatusIDs {
			args = append(args, statusID)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status_id IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(title) LIKE %s OR LOWER(description) LIKE %s)", placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDefects(rows)
}

func (r *defectRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM defects WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanDefects(rows pgx.Rows) ([]domain.Defect, error) {
	var result []domain.Defect
	for rows.Next() {
		var defect domain.Defect
		if err := rows.Scan(
			&defect.ID,
			&defect.ProjectID,
			&defect.Title,
			&defect.Description,
			&defect.Priority,
			&defect.StatusID,
			&defect.AssigneeID,
			&defect.DueDate,
			&defect.ReporterID,
			&defect.CreatedAt,
			&defect.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, defect)
	}
	return result, rows.Err()
}
