package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/defect-tracker/internal/domain"
)

// DefectHistoryRepository reads audit entries. Writes happen through
// DefectTx so they share the update transaction.
type DefectHistoryRepository interface {
	ListByDefect(ctx context.Context, defectID string) ([]domain.DefectHistory, error)
}

type defectHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewDefectHistoryRepository builds repository.
func NewDefectHistoryRepository(pool *pgxpool.Pool) DefectHistoryRepository {
	return &defectHistoryRepository{pool: pool}
}

func (r *defectHistoryRepository) ListByDefect(ctx context.Context, defectID string) ([]domain.DefectHistory, error) {
	const query = `
        SELECT h.id, h.defect_id, h.actor_id, u.full_name, h.field, h.old_value, h.new_value, h.created_at
        FROM defect_history h
        JOIN users u ON u.id = h.actor_id
        WHERE h.defect_id=$1 ORDER BY h.created_at DESC, h.id DESC`
	rows, err := r.pool.Query(ctx, query, defectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.DefectHistory
	for rows.Next() {
		var entry domain.DefectHistory
		if err := rows.Scan(
			&entry.ID,
			&entry.DefectID,
			&entry.ActorID,
			&entry.ActorName,
			&entry.Field,
			&entry.OldValue,
			&entry.NewValue,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
