package repository

import (
	"context"
	"database/sql"
	"errors"
	"maps"
	"slices"

	"guidebook/internal/document/model"
	"guidebook/pkg/apperror"
	"guidebook/pkg/logger"

	"github.com/lib/pq"
)

// TypedWriter writes the type specific row of a document inside the
// transaction that writes the generic rows.
type TypedWriter func(ctx context.Context, tx *sql.Tx, documentID int64) error

type DocumentRepository struct {
	DB *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{DB: db}
}

func (r *DocumentRepository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Create inserts doc with all its locales, geometry, associations and a
// first history version attributed to userID. doc.DocumentID is set on
// success.
func (r *DocumentRepository) Create(ctx context.Context, userID int64, docType string, doc *model.Document, typed TypedWriter) (int64, error) {
	var id int64
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx,
			`INSERT INTO documents (type, version) VALUES ($1, 1) RETURNING document_id`, docType,
		).Scan(&id); err != nil {
			return err
		}
		if typed != nil {
			if err := typed(ctx, tx, id); err != nil {
				return err
			}
		}
		for i := range doc.Locales {
			if err := insertLocale(ctx, tx, id, &doc.Locales[i]); err != nil {
				return err
			}
		}
		if doc.Geometry != nil {
			if err := insertGeometry(ctx, tx, id, doc.Geometry); err != nil {
				return err
			}
		}
		if err := insertAssociations(ctx, tx, id, docType, doc.Associations); err != nil {
			return err
		}
		return writeHistory(ctx, tx, userID, id, "creation", doc.Locales)
	})
	if err != nil {
		logger.Sugar.Errorf("Failed to create document of type %s: %v", docType, err)
		return 0, err
	}
	doc.DocumentID = id
	doc.Type = docType
	doc.Version = 1
	return id, nil
}

// Update writes a new version of doc. The stored version must still equal
// doc.Version. Associations are replaced only when doc carries some.
func (r *DocumentRepository) Update(ctx context.Context, userID int64, docType, message string, doc *model.Document, typed TypedWriter) error {
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		var version int
		err := tx.QueryRowContext(ctx,
			`SELECT version FROM documents WHERE document_id = $1 AND type = $2 AND redirects_to IS NULL FOR UPDATE`,
			doc.DocumentID, docType,
		).Scan(&version)
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.New(apperror.NotFound, "No document found for id %d", doc.DocumentID)
		} else if err != nil {
			return err
		}
		if version != doc.Version {
			return apperror.New(apperror.Conflict, "version of the document was changed")
		}

		if _, err := tx.ExecContext(ctx, `UPDATE documents SET version = version + 1 WHERE document_id = $1`, doc.DocumentID); err != nil {
			return err
		}
		if typed != nil {
			if err := typed(ctx, tx, doc.DocumentID); err != nil {
				return err
			}
		}
		for i := range doc.Locales {
			if err := upsertLocale(ctx, tx, doc.DocumentID, &doc.Locales[i]); err != nil {
				return err
			}
		}
		if doc.Geometry != nil {
			if err := upsertGeometry(ctx, tx, doc.DocumentID, doc.Geometry); err != nil {
				return err
			}
		}
		if doc.Associations != nil {
			if _, err := tx.ExecContext(ctx, `DELETE FROM associations WHERE child_document_id = $1`, doc.DocumentID); err != nil {
				return err
			}
			if err := insertAssociations(ctx, tx, doc.DocumentID, docType, doc.Associations); err != nil {
				return err
			}
		}
		return writeHistory(ctx, tx, userID, doc.DocumentID, message, doc.Locales)
	})
	if err != nil && !apperror.Is(err, apperror.Conflict) && !apperror.Is(err, apperror.NotFound) {
		logger.Sugar.Errorf("Failed to update document %d: %v", doc.DocumentID, err)
	}
	return err
}

func insertLocale(ctx context.Context, tx *sql.Tx, documentID int64, l *model.Locale) error {
	return tx.QueryRowContext(ctx,
		`INSERT INTO documents_locales (document_id, lang, title, summary, description, version)
		VALUES ($1, $2, $3, $4, $5, 1) RETURNING id`,
		documentID, l.Lang, l.Title, l.Summary, l.Description,
	).Scan(&l.ID)
}

func upsertLocale(ctx context.Context, tx *sql.Tx, documentID int64, l *model.Locale) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE documents_locales SET title = $3, summary = $4, description = $5, version = version + 1
		WHERE document_id = $1 AND lang = $2`,
		documentID, l.Lang, l.Title, l.Summary, l.Description)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	return insertLocale(ctx, tx, documentID, l)
}

func insertGeometry(ctx context.Context, tx *sql.Tx, documentID int64, g *model.Geometry) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO documents_geometries (document_id, geom, geom_detail, version) VALUES ($1, $2, $3, 1)`,
		documentID, g.Geom, g.GeomDetail)
	return err
}

func upsertGeometry(ctx context.Context, tx *sql.Tx, documentID int64, g *model.Geometry) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE documents_geometries SET geom = $2, geom_detail = $3, version = version + 1 WHERE document_id = $1`,
		documentID, g.Geom, g.GeomDetail)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	return insertGeometry(ctx, tx, documentID, g)
}

// insertAssociations links every referenced document as parent of the
// document being written.
func insertAssociations(ctx context.Context, tx *sql.Tx, childID int64, childType string, associations model.Associations) error {
	for _, kind := range slices.Sorted(maps.Keys(associations)) {
		parentType := model.AssociationKinds[kind]
		for _, ref := range associations[kind] {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO associations (parent_document_id, parent_document_type, child_document_id, child_document_type)
				VALUES ($1, $2, $3, $4) ON CONFLICT DO NOTHING`,
				ref.DocumentID, parentType, childID, childType); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeHistory(ctx context.Context, tx *sql.Tx, userID, documentID int64, comment string, locales []model.Locale) error {
	var historyID int64
	if err := tx.QueryRowContext(ctx,
		`INSERT INTO history_metadata (user_id, comment, written_at) VALUES ($1, $2, NOW()) RETURNING id`,
		userID, comment,
	).Scan(&historyID); err != nil {
		return err
	}

	langs := make([]interface{}, 0, len(locales))
	for _, l := range locales {
		langs = append(langs, l.Lang)
	}
	if len(langs) == 0 {
		langs = append(langs, nil)
	}
	for _, lang := range langs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO documents_versions (document_id, lang, history_metadata_id) VALUES ($1, $2, $3)`,
			documentID, lang, historyID); err != nil {
			return err
		}
	}
	return nil
}

// Load returns the document with its locales (only lang when set),
// geometry and associations. Redirected documents are not found.
func (r *DocumentRepository) Load(ctx context.Context, id int64, docType, lang string) (*model.Document, error) {
	doc := &model.Document{}
	err := r.DB.QueryRowContext(ctx,
		`SELECT document_id, type, version FROM documents WHERE document_id = $1 AND type = $2 AND redirects_to IS NULL`,
		id, docType,
	).Scan(&doc.DocumentID, &doc.Type, &doc.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.New(apperror.NotFound, "No document found for id %d", id)
	} else if err != nil {
		logger.Sugar.Errorf("Failed to load document %d: %v", id, err)
		return nil, err
	}

	locales, err := r.LocalesFor(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	for _, l := range locales[id] {
		if lang == "" || l.Lang == lang {
			doc.Locales = append(doc.Locales, l)
		}
	}
	if doc.Locales == nil {
		doc.Locales = []model.Locale{}
	}

	geometry := &model.Geometry{}
	err = r.DB.QueryRowContext(ctx,
		`SELECT geom, geom_detail, version FROM documents_geometries WHERE document_id = $1`, id,
	).Scan(&geometry.Geom, &geometry.GeomDetail, &geometry.Version)
	switch {
	case err == nil:
		doc.Geometry = geometry
	case !errors.Is(err, sql.ErrNoRows):
		logger.Sugar.Errorf("Failed to load geometry of document %d: %v", id, err)
		return nil, err
	}

	if doc.Associations, err = r.associations(ctx, id); err != nil {
		return nil, err
	}
	return doc, nil
}

func (r *DocumentRepository) associations(ctx context.Context, id int64) (model.Associations, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT parent_document_id, parent_document_type FROM associations WHERE child_document_id = $1
		UNION
		SELECT child_document_id, child_document_type FROM associations WHERE parent_document_id = $1
		ORDER BY 1`, id)
	if err != nil {
		logger.Sugar.Errorf("Failed to load associations of document %d: %v", id, err)
		return nil, err
	}
	defer rows.Close()

	kinds := make(map[string]string, len(model.AssociationKinds))
	for kind, docType := range model.AssociationKinds {
		kinds[docType] = kind
	}
	associations := model.Associations{}
	for rows.Next() {
		var ref model.AssociationRef
		var docType string
		if err := rows.Scan(&ref.DocumentID, &docType); err != nil {
			return nil, err
		}
		if kind, ok := kinds[docType]; ok {
			associations[kind] = append(associations[kind], ref)
		}
	}
	return associations, rows.Err()
}

// LocalesFor returns the locales of every id, with their forum topic.
func (r *DocumentRepository) LocalesFor(ctx context.Context, ids []int64) (map[int64][]model.Locale, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT l.document_id, l.id, l.lang, l.title, l.summary, l.description, l.version, t.topic_id
		FROM documents_locales l
		LEFT JOIN documents_topics t ON t.document_locale_id = l.id
		WHERE l.document_id = ANY($1)
		ORDER BY l.document_id, l.lang`, pq.Array(ids))
	if err != nil {
		logger.Sugar.Errorf("Failed to load locales: %v", err)
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64][]model.Locale, len(ids))
	for rows.Next() {
		var documentID int64
		var l model.Locale
		if err := rows.Scan(&documentID, &l.ID, &l.Lang, &l.Title, &l.Summary, &l.Description, &l.Version, &l.TopicID); err != nil {
			return nil, err
		}
		out[documentID] = append(out[documentID], l)
	}
	return out, rows.Err()
}

// Creator returns the author of the first version of a document.
func (r *DocumentRepository) Creator(ctx context.Context, id int64) (*model.Creator, error) {
	var c model.Creator
	err := r.DB.QueryRowContext(ctx, `
		SELECT u.id, u.name
		FROM documents_versions v
		JOIN history_metadata h ON h.id = v.history_metadata_id
		JOIN users u ON u.id = h.user_id
		WHERE v.document_id = $1
		ORDER BY h.written_at ASC, h.id ASC
		LIMIT 1`, id).Scan(&c.UserID, &c.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		logger.Sugar.Errorf("Failed to get creator of document %d: %v", id, err)
		return nil, err
	}
	return &c, nil
}

// ExistingIDs returns the subset of ids that are live documents of docType.
func (r *DocumentRepository) ExistingIDs(ctx context.Context, docType string, ids []int64) (map[int64]bool, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT document_id FROM documents WHERE type = $1 AND redirects_to IS NULL AND document_id = ANY($2)`,
		docType, pq.Array(ids))
	if err != nil {
		logger.Sugar.Errorf("Failed to check documents of type %s: %v", docType, err)
		return nil, err
	}
	defer rows.Close()

	found := make(map[int64]bool, len(ids))
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		found[id] = true
	}
	return found, rows.Err()
}
