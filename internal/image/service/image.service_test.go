package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"

	docmodel "guidebook/internal/document/model"
	docrepo "guidebook/internal/document/repository"
	"guidebook/internal/image/model"
	"guidebook/internal/validation"
	"guidebook/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDocs struct {
	nextID      int64
	created     []*docmodel.Document
	updated     *docmodel.Document
	creatorID   int64
	docs        map[int64]*docmodel.Document
	locales     map[int64][]docmodel.Locale
	assocErrors *validation.Errors
}

func (f *fakeDocs) Create(ctx context.Context, userID int64, docType string, doc *docmodel.Document, typed docrepo.TypedWriter) (int64, error) {
	f.nextID++
	doc.DocumentID = f.nextID
	doc.Version = 1
	if err := typed(ctx, nil, f.nextID); err != nil {
		return 0, err
	}
	f.created = append(f.created, doc)
	return f.nextID, nil
}

func (f *fakeDocs) Update(ctx context.Context, userID, id int64, docType, message string, doc *docmodel.Document, typed docrepo.TypedWriter) error {
	f.updated = doc
	return typed(ctx, nil, id)
}

func (f *fakeDocs) Load(ctx context.Context, id int64, docType, lang string) (*docmodel.Document, error) {
	doc, ok := f.docs[id]
	if !ok {
		return nil, apperror.New(apperror.NotFound, "No document found for id %d", id)
	}
	return doc, nil
}

func (f *fakeDocs) LocalesFor(ctx context.Context, ids []int64) (map[int64][]docmodel.Locale, error) {
	return f.locales, nil
}

func (f *fakeDocs) Creator(ctx context.Context, id int64) (*docmodel.Creator, error) {
	return &docmodel.Creator{UserID: f.creatorID, Name: "creator"}, nil
}

func (f *fakeDocs) CreatedBy(ctx context.Context, id, userID int64) (bool, error) {
	return f.creatorID == userID, nil
}

func (f *fakeDocs) Info(ctx context.Context, id int64, docType, lang string) (*docmodel.Info, error) {
	return &docmodel.Info{DocumentID: id}, nil
}

func (f *fakeDocs) ValidateAssociations(ctx context.Context, docType string, associations docmodel.Associations) (*validation.Errors, error) {
	if len(associations) == 0 {
		return &validation.Errors{}, nil
	}
	return f.assocErrors, nil
}

type fakeImages struct {
	filenames map[int64]string
	types     map[int64]string
	inserted  []*model.Image
	updated   *model.Image
	list      []model.Image
}

func (f *fakeImages) CountByFilename(ctx context.Context, filename string, excludeID int64) (int, error) {
	count := 0
	for id, name := range f.filenames {
		if name == filename && id != excludeID {
			count++
		}
	}
	return count, nil
}

func (f *fakeImages) Insert(ctx context.Context, tx *sql.Tx, id int64, img *model.Image) error {
	f.inserted = append(f.inserted, img)
	return nil
}

func (f *fakeImages) Update(ctx context.Context, tx *sql.Tx, id int64, img *model.Image) error {
	f.updated = img
	return nil
}

func (f *fakeImages) Get(ctx context.Context, id int64) (*model.Image, error) {
	name, ok := f.filenames[id]
	if !ok {
		return nil, apperror.New(apperror.NotFound, "No image found for id %d", id)
	}
	return &model.Image{Document: docmodel.Document{DocumentID: id}, Filename: name, ImageType: f.types[id]}, nil
}

func (f *fakeImages) FilenameByID(ctx context.Context, id int64) (string, error) {
	name, ok := f.filenames[id]
	if !ok {
		return "", apperror.New(apperror.NotFound, "No image found for id %d", id)
	}
	return name, nil
}

func (f *fakeImages) List(ctx context.Context, offset, limit int) ([]model.Image, int, error) {
	return f.list, len(f.list), nil
}

type fakePublisher struct {
	published []string
	err       error
}

func (f *fakePublisher) Publish(ctx context.Context, filename string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, filename)
	return nil
}

type fakeFeed struct {
	images   []model.Image
	imagesIn []model.Image
	userID   int64
}

func (f *fakeFeed) UpdateImagesUpload(ctx context.Context, images, imagesIn []model.Image, userID int64) error {
	f.images, f.imagesIn, f.userID = images, imagesIn, userID
	return nil
}

type fixture struct {
	svc       *ImageService
	docs      *fakeDocs
	images    *fakeImages
	publisher *fakePublisher
	feed      *fakeFeed
}

func newFixture() *fixture {
	f := &fixture{
		docs:      &fakeDocs{nextID: 100, docs: map[int64]*docmodel.Document{}},
		images:    &fakeImages{filenames: map[int64]string{}, types: map[int64]string{}},
		publisher: &fakePublisher{},
		feed:      &fakeFeed{},
	}
	f.svc = NewImageService(f.docs, f.images, f.publisher, f.feed, "https://media.example.org/")
	return f
}

func input(t *testing.T, body string) model.Input {
	img := &model.Image{}
	require.NoError(t, json.Unmarshal([]byte(body), img))
	var fields validation.Fields
	require.NoError(t, json.Unmarshal([]byte(body), &fields))
	return model.Input{Image: img, Fields: fields}
}

func fieldNames(t *testing.T, err error) []string {
	var errs *validation.Errors
	require.True(t, errors.As(err, &errs), "expected validation errors, got %v", err)
	var out []string
	for _, item := range errs.Items() {
		out = append(out, item.Name+":"+item.Description)
	}
	return out
}

const validImage = `{"filename": "photo.jpg", "locales": [{"lang": "fr", "title": "Vue"}]}`

func TestCreateImagePersistsThenPublishes(t *testing.T) {
	f := newFixture()

	id, err := f.svc.CreateImage(context.Background(), Actor{UserID: 7}, input(t, validImage))

	require.NoError(t, err)
	assert.Equal(t, int64(101), id)
	assert.Equal(t, []string{"photo.jpg"}, f.publisher.published)
	require.Len(t, f.images.inserted, 1)
	assert.Equal(t, model.TypeCollaborative, f.images.inserted[0].ImageType)
	assert.Equal(t, []string{}, f.images.inserted[0].Activities)
	assert.Equal(t, []string{}, f.images.inserted[0].Categories)
}

func TestCreateImageCollectsAllErrors(t *testing.T) {
	f := newFixture()
	f.images.filenames[5] = "photo.jpg"
	f.docs.assocErrors = &validation.Errors{}
	f.docs.assocErrors.Add(validation.LocationBody, "associations.routes", `document "9" does not exist`)

	_, err := f.svc.CreateImage(context.Background(), Actor{UserID: 7}, input(t,
		`{"filename": "photo.jpg", "locales": [{"lang": "fr", "title": "Vue"}, {"lang": "fr", "title": "Vue"}], "associations": {"routes": [{"document_id": 9}]}}`))

	assert.Equal(t, []string{
		`locales:lang "fr" is given twice`,
		"filename:Unique",
		`associations.routes:document "9" does not exist`,
	}, fieldNames(t, err))
	assert.Empty(t, f.docs.created)
	assert.Empty(t, f.publisher.published)
}

func TestCreateImageRequiredFields(t *testing.T) {
	f := newFixture()

	_, err := f.svc.CreateImage(context.Background(), Actor{UserID: 7}, input(t, `{"locales": []}`))

	assert.Equal(t, []string{"filename:Required", "locales:Required"}, fieldNames(t, err))
}

func TestCreateImagePublishFailureKeepsDocument(t *testing.T) {
	f := newFixture()
	f.publisher.err = apperror.New(apperror.External, "Image backend returns : 503 Service Unavailable")

	_, err := f.svc.CreateImage(context.Background(), Actor{UserID: 7}, input(t, validImage))

	assert.True(t, apperror.Is(err, apperror.External))
	assert.Len(t, f.docs.created, 1)
}

func TestCreateImagesValidatesWholeBatchFirst(t *testing.T) {
	f := newFixture()
	f.images.filenames[5] = "taken.jpg"

	_, err := f.svc.CreateImages(context.Background(), Actor{UserID: 7}, []model.Input{
		input(t, validImage),
		input(t, `{"filename": "taken.jpg", "locales": [{"lang": "en", "title": "View"}]}`),
	})

	assert.Equal(t, []string{"filename:Unique"}, fieldNames(t, err))
	assert.Empty(t, f.docs.created)
}

func TestCreateImagesPublishesEachAndUpdatesFeed(t *testing.T) {
	f := newFixture()

	ids, err := f.svc.CreateImages(context.Background(), Actor{UserID: 7}, []model.Input{
		input(t, validImage),
		input(t, `{"filename": "second.jpg", "locales": [{"lang": "en", "title": "View"}]}`),
	})

	require.NoError(t, err)
	assert.Equal(t, []int64{101, 102}, ids)
	assert.Equal(t, []string{"photo.jpg", "second.jpg"}, f.publisher.published)
	require.Len(t, f.feed.images, 2)
	assert.Equal(t, int64(102), f.feed.images[1].DocumentID)
	assert.Equal(t, int64(0), f.feed.imagesIn[1].DocumentID)
	assert.Equal(t, int64(7), f.feed.userID)
}

func updateRequest(t *testing.T, body string) (*model.UpdateImageRequest, validation.Fields) {
	req := &model.UpdateImageRequest{}
	require.NoError(t, json.Unmarshal([]byte(body), req))
	var fields validation.Fields
	require.NoError(t, json.Unmarshal([]byte(body), &fields))
	return req, fields
}

func TestUpdateImageAuthorization(t *testing.T) {
	const creator, other = int64(7), int64(8)

	cases := []struct {
		name      string
		stored    string
		actor     Actor
		imageType string
		kind      apperror.Kind
		ok        bool
	}{
		{"moderator on personal", model.TypePersonal, Actor{UserID: other, Moderator: true}, model.TypePersonal, 0, true},
		{"moderator changes collaborative type", model.TypeCollaborative, Actor{UserID: other, Moderator: true}, model.TypePersonal, 0, true},
		{"creator on personal", model.TypePersonal, Actor{UserID: creator}, model.TypePersonal, 0, true},
		{"other on personal", model.TypePersonal, Actor{UserID: other}, model.TypePersonal, apperror.Forbidden, false},
		{"other on collaborative", model.TypeCollaborative, Actor{UserID: other}, model.TypeCollaborative, 0, true},
		{"other keeps type implicitly", model.TypeCollaborative, Actor{UserID: other}, "", 0, true},
		{"other changes collaborative type", model.TypeCollaborative, Actor{UserID: other}, model.TypePersonal, apperror.InvalidInput, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			f.images.filenames[12] = "photo.jpg"
			f.images.types[12] = tc.stored
			f.docs.creatorID = creator

			typeField := ""
			if tc.imageType != "" {
				typeField = `, "image_type": "` + tc.imageType + `"`
			}
			req, fields := updateRequest(t, `{"message": "edit", "document": {"document_id": 12, "version": 1,
				"filename": "photo.jpg", "locales": [{"lang": "fr", "title": "Vue"}]`+typeField+`}}`)

			err := f.svc.UpdateImage(context.Background(), tc.actor, 12, req, fields)

			if tc.ok {
				require.NoError(t, err)
				require.NotNil(t, f.images.updated)
				assert.NotEmpty(t, f.images.updated.ImageType)
				return
			}
			assert.True(t, apperror.Is(err, tc.kind), "got %v", err)
			assert.Nil(t, f.docs.updated)
		})
	}
}

func TestUpdateImageOwnFilenameIsNotDuplicate(t *testing.T) {
	f := newFixture()
	f.images.filenames[12] = "photo.jpg"
	f.images.filenames[13] = "other.jpg"
	f.images.types[12] = model.TypeCollaborative

	req, fields := updateRequest(t, `{"document": {"document_id": 12, "version": 1, "filename": "photo.jpg", "locales": []}}`)
	require.NoError(t, f.svc.UpdateImage(context.Background(), Actor{UserID: 1}, 12, req, fields))

	req, fields = updateRequest(t, `{"document": {"document_id": 12, "version": 1, "filename": "other.jpg"}}`)
	err := f.svc.UpdateImage(context.Background(), Actor{UserID: 1}, 12, req, fields)
	assert.Equal(t, []string{"filename:Unique"}, fieldNames(t, err))
}

func TestUpdateImageDefaultsAbsentLists(t *testing.T) {
	f := newFixture()
	f.images.filenames[12] = "photo.jpg"
	f.images.types[12] = model.TypeCollaborative

	req, fields := updateRequest(t, `{"document": {"document_id": 12, "version": 1, "filename": "photo.jpg", "categories": ["landscapes"]}}`)
	require.NoError(t, f.svc.UpdateImage(context.Background(), Actor{UserID: 1}, 12, req, fields))

	require.NotNil(t, f.images.updated)
	assert.Equal(t, []string{}, f.images.updated.Activities)
	assert.Equal(t, []string{"landscapes"}, f.images.updated.Categories)
}

func TestUpdateImageMissing(t *testing.T) {
	f := newFixture()
	req, fields := updateRequest(t, `{"document": {"document_id": 99, "version": 1, "filename": "x.jpg"}}`)

	err := f.svc.UpdateImage(context.Background(), Actor{UserID: 1}, 99, req, fields)

	assert.True(t, apperror.Is(err, apperror.NotFound))
}

func TestProxyURL(t *testing.T) {
	f := newFixture()
	f.images.filenames[3] = "photo.jpg"

	u, err := f.svc.ProxyURL(context.Background(), 3, "MI")
	require.NoError(t, err)
	assert.Equal(t, "https://media.example.org/photoMI.jpg", u)

	u, err = f.svc.ProxyURL(context.Background(), 3, "")
	require.NoError(t, err)
	assert.Equal(t, "https://media.example.org/photo.jpg", u)

	_, err = f.svc.ProxyURL(context.Background(), 4, "SI")
	assert.True(t, apperror.Is(err, apperror.NotFound))
}

func TestSplitExt(t *testing.T) {
	for name, want := range map[string][2]string{
		"photo.jpg":   {"photo", ".jpg"},
		"a.b.png":     {"a.b", ".png"},
		"noext":       {"noext", ""},
		".hidden":     {".hidden", ""},
		"1485963179_": {"1485963179_", ""},
	} {
		base, ext := splitExt(name)
		assert.Equal(t, want, [2]string{base, ext}, name)
	}
}

func TestGetImageAttachesCreator(t *testing.T) {
	f := newFixture()
	f.images.filenames[3] = "photo.jpg"
	f.docs.docs[3] = &docmodel.Document{DocumentID: 3, Version: 2, Locales: []docmodel.Locale{{Lang: "fr", Title: "Vue"}}}
	f.docs.creatorID = 7

	img, err := f.svc.GetImage(context.Background(), 3, "fr")

	require.NoError(t, err)
	assert.Equal(t, "photo.jpg", img.Filename)
	assert.Equal(t, 2, img.Version)
	require.NotNil(t, img.Creator)
	assert.Equal(t, int64(7), img.Creator.UserID)
}

func TestListImagesPicksPreferredLocale(t *testing.T) {
	f := newFixture()
	f.images.list = []model.Image{
		{Document: docmodel.Document{DocumentID: 2}, Filename: "b.jpg"},
		{Document: docmodel.Document{DocumentID: 1}, Filename: "a.jpg"},
	}
	f.docs.locales = map[int64][]docmodel.Locale{
		2: {{Lang: "en", Title: "View"}, {Lang: "fr", Title: "Vue"}},
	}

	list, err := f.svc.ListImages(context.Background(), validation.Pagination{Limit: 30}, "fr")

	require.NoError(t, err)
	assert.Equal(t, 2, list.Total)
	assert.Equal(t, []docmodel.Locale{{Lang: "fr", Title: "Vue"}}, list.Documents[0].Locales)
	assert.Equal(t, []docmodel.Locale{}, list.Documents[1].Locales)
}
