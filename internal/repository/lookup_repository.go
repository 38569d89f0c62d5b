package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/defect-tracker/internal/domain"
)

// LookupRepository serves reference tables: defect statuses and project stages.
type LookupRepository interface {
	ListDefectStatuses(ctx context.Context) ([]domain.DefectStatus, error)
	GetDefectStatus(ctx context.Context, id int) (*domain.DefectStatus, error)
	ListProjectStages(ctx context.Context) ([]domain.ProjectStage, error)
	GetProjectStage(ctx context.Context, id int) (*domain.ProjectStage, error)
}

type lookupRepository struct {
	pool *pgxpool.Pool
}

// NewLookupRepository builds the repository.
func NewLookupRepository(pool *pgxpool.Pool) LookupRepository {
	return &lookupRepository{pool: pool}
}

func (r *lookupRepository) ListDefectStatuses(ctx context.Context) ([]domain.DefectStatus, error) {
	const query = `SELECT id, name FROM defect_statuses ORDER BY id ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.DefectStatus
	for rows.Next() {
		var status domain.DefectStatus
		if err := rows.Scan(&status.ID, &status.Name); err != nil {
			return nil, err
		}
		result = append(result, status)
	}
	return result, rows.Err()
}

func (r *lookupRepository) GetDefectStatus(ctx context.Context, id int) (*domain.DefectStatus, error) {
	const query = `SELECT id, name FROM defect_statuses WHERE id=$1`
	var status domain.DefectStatus
	if err := r.pool.QueryRow(ctx, query, id).Scan(&status.ID, &status.Name); err != nil {
		return nil, err
	}
	return &status, nil
}

func (r *lookupRepository) ListProjectStages(ctx context.Context) ([]domain.ProjectStage, error) {
	const query = `SELECT id, name FROM project_stages ORDER BY id ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ProjectStage
	for rows.Next() {
		var stage domain.ProjectStage
		if err := rows.Scan(&stage.ID, &stage.Name); err != nil {
			return nil, err
		}
		result = append(result, stage)
	}
	return result, rows.Err()
}

func (r *lookupRepository) GetProjectStage(ctx context.Context, id int) (*domain.ProjectStage, error) {
	const query = `SELECT id, name FROM project_stages WHERE id=$1`
	var stage domain.ProjectStage
	if err := r.pool.QueryRow(ctx, query, id).Scan(&stage.ID, &stage.Name); err != nil {
		return nil, err
	}
	return &stage, nil
}
