package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"ai-caption-backend/internal/domain"
	"ai-caption-backend/internal/domain/model"
	"ai-caption-backend/internal/domain/ports/repository"
)

var _ repository.CaptionRepository = (*captionRepo)(nil)

type captionRepo struct{ pool *pgxpool.Pool }

func NewCaptionRepo(pool *pgxpool.Pool) *captionRepo {
	return &captionRepo{pool: pool}
}

func (r *captionRepo) Save(ctx context.Context, tx repository.Tx, c *model.Caption) error {
	const q = `
INSERT INTO captions (id, user_id, kind, prompt, tone, text, model, created_at)
VALUES ($1, NULLIF($2,''), $3, $4, $5, $6, $7, $8);`
	_, err := execSQL(ctx, r.pool, tx, q, c.ID, c.UserID, c.Kind, c.Prompt, c.Tone, c.Text, c.Model, c.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *captionRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, limit int) ([]*model.Caption, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `
SELECT id, COALESCE(user_id,''), kind, prompt, COALESCE(tone,''), text, model, created_at
  FROM captions
 WHERE user_id = $1
 ORDER BY created_at DESC
 LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Caption
	for rows.Next() {
		c := &model.Caption{}
		if err := rows.Scan(&c.ID, &c.UserID, &c.Kind, &c.Prompt, &c.Tone, &c.Text, &c.Model, &c.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, c)
	}
	if rows.Err() != nil {
		return nil, domain.ErrOperationFailed
	}
	return out, nil
}
