package repository

import (
	"context"

	"ai-caption-backend/internal/domain/model"
)

type CaptionRepository interface {
	Save(ctx context.Context, tx Tx, c *model.Caption) error
	ListByUser(ctx context.Context, tx Tx, userID string, limit int) ([]*model.Caption, error)
}
