package repository

import (
	"context"
	"database/sql"
	"errors"

	"guidebook/internal/image/model"
	"guidebook/pkg/apperror"
	"guidebook/pkg/logger"

	"github.com/lib/pq"
)

type ImageRepository struct {
	DB *sql.DB
}

func NewImageRepository(db *sql.DB) *ImageRepository {
	return &ImageRepository{DB: db}
}

// textArray binds values as a TEXT[]. A nil slice is written as '{}' since
// pq would bind it as NULL.
func textArray(values []string) pq.StringArray {
	if values == nil {
		return pq.StringArray{}
	}
	return pq.StringArray(values)
}

// CountByFilename counts live images using filename, ignoring excludeID
// (0 excludes nothing).
func (r *ImageRepository) CountByFilename(ctx context.Context, filename string, excludeID int64) (int, error) {
	var count int
	err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM images i
		JOIN documents d ON d.document_id = i.document_id
		WHERE i.filename = $1 AND i.document_id <> $2 AND d.redirects_to IS NULL`,
		filename, excludeID).Scan(&count)
	if err != nil {
		logger.Sugar.Errorf("Failed to count images with filename %s: %v", filename, err)
	}
	return count, err
}

func (r *ImageRepository) Insert(ctx context.Context, tx *sql.Tx, id int64, img *model.Image) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO images (document_id, filename, image_type, activities, categories, author, elevation)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, img.Filename, img.ImageType, textArray(img.Activities), textArray(img.Categories), img.Author, img.Elevation)
	if err != nil {
		logger.Sugar.Errorf("Failed to insert image %d: %v", id, err)
	}
	return err
}

func (r *ImageRepository) Update(ctx context.Context, tx *sql.Tx, id int64, img *model.Image) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE images SET filename = $2, image_type = $3, activities = $4, categories = $5, author = $6, elevation = $7
		WHERE document_id = $1`,
		id, img.Filename, img.ImageType, textArray(img.Activities), textArray(img.Categories), img.Author, img.Elevation)
	if err != nil {
		logger.Sugar.Errorf("Failed to update image %d: %v", id, err)
	}
	return err
}

// Get returns the image specific columns of a live image.
func (r *ImageRepository) Get(ctx context.Context, id int64) (*model.Image, error) {
	img := &model.Image{}
	err := r.DB.QueryRowContext(ctx, `
		SELECT d.document_id, d.version, i.filename, i.image_type, i.activities, i.categories, i.author, i.elevation
		FROM images i
		JOIN documents d ON d.document_id = i.document_id
		WHERE i.document_id = $1 AND d.redirects_to IS NULL`, id,
	).Scan(&img.DocumentID, &img.Version, &img.Filename, &img.ImageType,
		pq.Array(&img.Activities), pq.Array(&img.Categories), &img.Author, &img.Elevation)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.New(apperror.NotFound, "No image found for id %d", id)
	} else if err != nil {
		logger.Sugar.Errorf("Failed to get image %d: %v", id, err)
		return nil, err
	}
	img.Type = "i"
	return img, nil
}

func (r *ImageRepository) FilenameByID(ctx context.Context, id int64) (string, error) {
	var filename string
	err := r.DB.QueryRowContext(ctx, `SELECT filename FROM images WHERE document_id = $1`, id).Scan(&filename)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperror.New(apperror.NotFound, "No image found for id %d", id)
	} else if err != nil {
		logger.Sugar.Errorf("Failed to get filename of image %d: %v", id, err)
	}
	return filename, err
}

// List returns one page of live images, newest first, and the total count.
func (r *ImageRepository) List(ctx context.Context, offset, limit int) ([]model.Image, int, error) {
	var total int
	if err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM images i JOIN documents d ON d.document_id = i.document_id
		WHERE d.redirects_to IS NULL`).Scan(&total); err != nil {
		logger.Sugar.Errorf("Failed to count images: %v", err)
		return nil, 0, err
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT d.document_id, d.version, i.filename, i.image_type, i.activities, i.categories, i.author, i.elevation
		FROM images i
		JOIN documents d ON d.document_id = i.document_id
		WHERE d.redirects_to IS NULL
		ORDER BY d.document_id DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		logger.Sugar.Errorf("Failed to list images: %v", err)
		return nil, 0, err
	}
	defer rows.Close()

	images := []model.Image{}
	for rows.Next() {
		var img model.Image
		if err := rows.Scan(&img.DocumentID, &img.Version, &img.Filename, &img.ImageType,
			pq.Array(&img.Activities), pq.Array(&img.Categories), &img.Author, &img.Elevation); err != nil {
			return nil, 0, err
		}
		img.Type = "i"
		images = append(images, img)
	}
	return images, total, rows.Err()
}
