package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*TopicRepository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewTopicRepository(db), mock
}

func TestGetLocaleWithTopic(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE l.document_id = $1 AND l.lang = $2`)).
		WithArgs(12, "fr").
		WillReturnRows(sqlmock.NewRows([]string{"id", "document_id", "lang", "title", "topic_id"}).
			AddRow(900, 12, "fr", "Vue", 33))

	l, err := repo.GetLocale(context.Background(), 12, "fr")

	require.NoError(t, err)
	require.NotNil(t, l)
	assert.Equal(t, int64(900), l.ID)
	assert.Equal(t, "Vue", l.Title)
	require.NotNil(t, l.TopicID)
	assert.Equal(t, int64(33), *l.TopicID)
}

func TestGetLocaleMissing(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM documents_locales l`)).
		WithArgs(12, "it").
		WillReturnRows(sqlmock.NewRows([]string{"id", "document_id", "lang", "title", "topic_id"}))

	l, err := repo.GetLocale(context.Background(), 12, "it")

	require.NoError(t, err)
	assert.Nil(t, l)
}

func TestCreateTopic(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO documents_topics (document_locale_id, topic_id) VALUES ($1, $2)`)).
		WithArgs(900, 33).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.CreateTopic(context.Background(), 900, 33))
	assert.NoError(t, mock.ExpectationsWereMet())
}
