package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/defect-tracker/internal/domain"
)

// CommentRepository manages defect discussion threads.
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.DefectComment) error
	ListByDefect(ctx context.Context, defectID string) ([]domain.DefectComment, error)
}

type commentRepository struct {
	pool *pgxpool.Pool
}

// NewCommentRepository builds repository.
func NewCommentRepository(pool *pgxpool.Pool) CommentRepository {
	return &commentRepository{pool: pool}
}

func (r *commentRepository) Create(ctx context.Context, comment *domain.DefectComment) error {
	const query = `
        INSERT INTO defect_comments (defect_id, author_id, body)
        VALUES ($1,$2,$3)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		comment.DefectID,
		comment.AuthorID,
		comment.Body,
	).Scan(&comment.ID, &comment.CreatedAt)
}

func (r *commentRepository) ListByDefect(ctx context.Context, defectID string) ([]domain.DefectComment, error) {
	const query = `
        SELECT c.id, c.defect_id, c.author_id, u.full_name, c.body, c.created_at
        FROM defect_comments c
        JOIN users u ON u.id = c.author_id
        WHERE c.defect_id=$1 ORDER BY c.created_at ASC`
	rows, err := r.pool.Query(ctx, query, defectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.DefectComment
	for rows.Next() {
		var comment domain.DefectComment
		if err := rows.Scan(
			&comment.ID,
			&comment.DefectID,
			&comment.AuthorID,
			&comment.AuthorName,
			&comment.Body,
			&comment.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, comment)
	}
	return result, rows.Err()
}
