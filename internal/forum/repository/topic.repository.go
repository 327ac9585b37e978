package repository

import (
	"context"
	"database/sql"
	"errors"

	"guidebook/internal/forum/model"
	"guidebook/pkg/logger"
)

type TopicRepository struct {
	DB *sql.DB
}

func NewTopicRepository(db *sql.DB) *TopicRepository {
	return &TopicRepository{DB: db}
}

// GetLocale returns the locale of a document in lang, or nil when the
// document has no such locale.
func (r *TopicRepository) GetLocale(ctx context.Context, documentID int64, lang string) (*model.TopicLocale, error) {
	l := &model.TopicLocale{}
	err := r.DB.QueryRowContext(ctx, `
		SELECT l.id, l.document_id, l.lang, l.title, t.topic_id
		FROM documents_locales l
		LEFT JOIN documents_topics t ON t.document_locale_id = l.id
		WHERE l.document_id = $1 AND l.lang = $2`, documentID, lang,
	).Scan(&l.ID, &l.DocumentID, &l.Lang, &l.Title, &l.TopicID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		logger.Sugar.Errorf("Failed to get locale %d/%s: %v", documentID, lang, err)
		return nil, err
	}
	return l, nil
}

func (r *TopicRepository) CreateTopic(ctx context.Context, localeID, topicID int64) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO documents_topics (document_locale_id, topic_id) VALUES ($1, $2)`, localeID, topicID)
	if err != nil {
		logger.Sugar.Errorf("Failed to link topic %d to locale %d: %v", topicID, localeID, err)
	}
	return err
}
