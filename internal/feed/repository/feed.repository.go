package repository

import (
	"context"
	"database/sql"

	"guidebook/internal/feed/model"
	"guidebook/pkg/logger"
)

type FeedRepository struct {
	DB *sql.DB
}

func NewFeedRepository(db *sql.DB) *FeedRepository {
	return &FeedRepository{DB: db}
}

// Insert stores c and fills in its id and time.
func (r *FeedRepository) Insert(ctx context.Context, c *model.Change) error {
	err := r.DB.QueryRowContext(ctx, `
		INSERT INTO feed_document_changes
			(time, user_id, change_type, document_id, document_type, image1_id, image2_id, image3_id, more_images)
		VALUES (NOW(), $1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING change_id, time`,
		c.UserID, c.ChangeType, c.DocumentID, c.DocumentType, c.Image1ID, c.Image2ID, c.Image3ID, c.MoreImages,
	).Scan(&c.ChangeID, &c.Time)
	if err != nil {
		logger.Sugar.Errorf("Failed to insert feed change for document %d: %v", c.DocumentID, err)
	}
	return err
}
