package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/defect-tracker/internal/domain"
)

// DefectTx exposes the operations available while a defect row is
// held under a row lock. Save and AppendHistory run on the same
// transaction, so either all writes commit or none do.
type DefectTx interface {
	Defect() *domain.Defect
	Save(ctx context.Context, defect *domain.Defect) error
	AppendHistory(ctx context.Context, entry *domain.DefectHistory) error
}

// DefectStore serializes defect mutations behind SELECT ... FOR UPDATE.
type DefectStore interface {
	UpdateWithLock(ctx context.Context, defectID string, fn func(ctx context.Context, tx DefectTx) error) error
}

type defectStore struct {
	pool *pgxpool.Pool
}

// NewDefectStore builds a Postgres-backed store.
func NewDefectStore(pool *pgxpool.Pool) DefectStore {
	return &defectStore{pool: pool}
}

func (s *defectStore) UpdateWithLock(ctx context.Context, defectID string, fn func(ctx context.Context, tx DefectTx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const query = `
        SELECT id, project_id, title, description, priority, status_id, assignee_id, due_date,
               reporter_id, created_at, updated_at
        FROM defects WHERE id=$1 FOR UPDATE`
	var defect domain.Defect
	if err := tx.QueryRow(ctx, query, defectID).Scan(
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
		return err
	}

	if err := fn(ctx, &defectTx{tx: tx, defect: &defect}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type defectTx struct {
	tx     pgx.Tx
	defect *domain.Defect
}

func (t *defectTx) Defect() *domain.Defect {
	return t.defect
}

func (t *defectTx) Save(ctx context.Context, defect *domain.Defect) error {
	const query = `
        UPDATE defects SET title=$1, description=$2, priority=$3, status_id=$4, assignee_id=$5,
            due_date=$6, project_id=$7, updated_at=NOW()
        WHERE id=$8
        RETURNING updated_at`
	return t.tx.QueryRow(ctx, query,
		defect.Title,
		defect.Description,
		defect.Priority,
		defect.StatusID,
		defect.AssigneeID,
		defect.DueDate,
		defect.ProjectID,
		defect.ID,
	).Scan(&defect.UpdatedAt)
}

func (t *defectTx) AppendHistory(ctx context.Context, entry *domain.DefectHistory) error {
	const query = `
        INSERT INTO defect_history (defect_id, actor_id, field, old_value, new_value)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return t.tx.QueryRow(ctx, query,
		entry.DefectID,
		entry.ActorID,
		entry.Field,
		entry.OldValue,
		entry.NewValue,
	).Scan(&entry.ID, &entry.CreatedAt)
}
