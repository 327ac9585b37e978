package service

import (
	"context"
	"database/sql"
	"strings"

	docmodel "guidebook/internal/document/model"
	docrepo "guidebook/internal/document/repository"
	"guidebook/internal/image/model"
	"guidebook/internal/validation"
	"guidebook/pkg/apperror"
	"guidebook/pkg/logger"
)

// DocumentStore is the generic document layer images are built on.
type DocumentStore interface {
	Create(ctx context.Context, userID int64, docType string, doc *docmodel.Document, typed docrepo.TypedWriter) (int64, error)
	Update(ctx context.Context, userID, id int64, docType, message string, doc *docmodel.Document, typed docrepo.TypedWriter) error
	Load(ctx context.Context, id int64, docType, lang string) (*docmodel.Document, error)
	LocalesFor(ctx context.Context, ids []int64) (map[int64][]docmodel.Locale, error)
	Creator(ctx context.Context, id int64) (*docmodel.Creator, error)
	CreatedBy(ctx context.Context, id, userID int64) (bool, error)
	Info(ctx context.Context, id int64, docType, lang string) (*docmodel.Info, error)
	ValidateAssociations(ctx context.Context, docType string, associations docmodel.Associations) (*validation.Errors, error)
}

type ImageStore interface {
	CountByFilename(ctx context.Context, filename string, excludeID int64) (int, error)
	Insert(ctx context.Context, tx *sql.Tx, id int64, img *model.Image) error
	Update(ctx context.Context, tx *sql.Tx, id int64, img *model.Image) error
	Get(ctx context.Context, id int64) (*model.Image, error)
	FilenameByID(ctx context.Context, id int64) (string, error)
	List(ctx context.Context, offset, limit int) ([]model.Image, int, error)
}

type Publisher interface {
	Publish(ctx context.Context, filename string) error
}

type FeedUpdater interface {
	UpdateImagesUpload(ctx context.Context, images, imagesIn []model.Image, userID int64) error
}

// Actor is the caller of a write operation.
type Actor struct {
	UserID    int64
	Moderator bool
}

type ImageService struct {
	Docs      DocumentStore
	Images    ImageStore
	Publisher Publisher
	Feed      FeedUpdater
	// ImageURL is the public image host, ending with a slash.
	ImageURL string
}

func NewImageService(docs DocumentStore, images ImageStore, publisher Publisher, feed FeedUpdater, imageURL string) *ImageService {
	return &ImageService{Docs: docs, Images: images, Publisher: publisher, Feed: feed, ImageURL: imageURL}
}

// CheckFilenameUnique reports a Unique error when another live image uses
// the submitted filename. Nothing is checked when the body has no filename.
// The check and the later insert are not atomic.
func (s *ImageService) CheckFilenameUnique(ctx context.Context, in model.Input, updating bool) (*validation.Errors, error) {
	errs := &validation.Errors{}
	if _, ok := in.Fields["filename"]; !ok {
		return errs, nil
	}
	var excludeID int64
	if updating {
		excludeID = in.Image.DocumentID
	}
	count, err := s.Images.CountByFilename(ctx, in.Image.Filename, excludeID)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		errs.Add(validation.LocationBody, "filename", "Unique")
	}
	return errs, nil
}

func (s *ImageService) validateCreate(ctx context.Context, in model.Input) (*validation.Errors, error) {
	errs := validation.ValidateDocument(in.Fields, model.RequiredFields, false)
	errs.Merge(validation.CheckLocaleTitles(in.Fields))
	unique, err := s.CheckFilenameUnique(ctx, in, false)
	if err != nil {
		return nil, err
	}
	errs.Merge(unique)
	return errs, nil
}

// CreateImage validates, saves and publishes one image.
func (s *ImageService) CreateImage(ctx context.Context, actor Actor, in model.Input) (int64, error) {
	errs, err := s.validateCreate(ctx, in)
	if err != nil {
		return 0, err
	}
	assocErrs, err := s.Docs.ValidateAssociations(ctx, docmodel.ImageType, in.Image.Associations)
	if err != nil {
		return 0, err
	}
	errs.Merge(assocErrs)
	if !errs.Empty() {
		return 0, errs
	}
	return s.create(ctx, actor.UserID, in.Image)
}

// CreateImages validates the whole batch before saving anything, then
// saves and publishes images one by one and records one feed change.
func (s *ImageService) CreateImages(ctx context.Context, actor Actor, inputs []model.Input) ([]int64, error) {
	errs := &validation.Errors{}
	for _, in := range inputs {
		imageErrs, err := s.validateCreate(ctx, in)
		if err != nil {
			return nil, err
		}
		errs.Merge(imageErrs)
	}
	for _, in := range inputs {
		if len(in.Image.Associations) == 0 {
			continue
		}
		assocErrs, err := s.Docs.ValidateAssociations(ctx, docmodel.ImageType, in.Image.Associations)
		if err != nil {
			return nil, err
		}
		errs.Merge(assocErrs)
	}
	if !errs.Empty() {
		return nil, errs
	}

	imagesIn := make([]model.Image, len(inputs))
	for i, in := range inputs {
		imagesIn[i] = *in.Image
	}

	ids := make([]int64, 0, len(inputs))
	images := make([]model.Image, 0, len(inputs))
	for _, in := range inputs {
		id, err := s.create(ctx, actor.UserID, in.Image)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
		images = append(images, *in.Image)
	}

	if err := s.Feed.UpdateImagesUpload(ctx, images, imagesIn, actor.UserID); err != nil {
		return nil, err
	}
	return ids, nil
}

// create saves img then asks the backend to publish it. A failed publish
// leaves the saved document in place.
func (s *ImageService) create(ctx context.Context, userID int64, img *model.Image) (int64, error) {
	img.Normalize()
	id, err := s.Docs.Create(ctx, userID, docmodel.ImageType, &img.Document, func(ctx context.Context, tx *sql.Tx, id int64) error {
		return s.Images.Insert(ctx, tx, id, img)
	})
	if err != nil {
		return 0, err
	}

	if err := s.Publisher.Publish(ctx, img.Filename); err != nil {
		logger.Sugar.Errorf("Image %d saved but publishing %s failed: %v", id, img.Filename, err)
		return 0, err
	}
	logger.Sugar.Infof("Image %d (%s) created by user %d", id, img.Filename, userID)
	return id, nil
}

// UpdateImage writes a new version of image id. Moderators may change any
// image. Others may edit collaborative images without changing their type,
// and personal images only when they created them.
func (s *ImageService) UpdateImage(ctx context.Context, actor Actor, id int64, req *model.UpdateImageRequest, fields validation.Fields) error {
	docFields, _ := fields["document"].(map[string]any)
	in := model.Input{Image: &req.Document, Fields: docFields}

	errs := validation.ValidateDocument(in.Fields, model.RequiredFields, true)
	errs.Merge(validation.CheckLocaleTitles(in.Fields))
	unique, err := s.CheckFilenameUnique(ctx, in, true)
	if err != nil {
		return err
	}
	errs.Merge(unique)
	if req.Document.Associations != nil {
		assocErrs, err := s.Docs.ValidateAssociations(ctx, docmodel.ImageType, req.Document.Associations)
		if err != nil {
			return err
		}
		errs.Merge(assocErrs)
	}
	if !errs.Empty() {
		return errs
	}

	stored, err := s.Images.Get(ctx, id)
	if err != nil {
		return err
	}
	if req.Document.ImageType == "" {
		req.Document.ImageType = stored.ImageType
	}

	if !actor.Moderator {
		if stored.ImageType == model.TypeCollaborative {
			if req.Document.ImageType != stored.ImageType {
				return apperror.New(apperror.InvalidInput, "Image type cannot be changed for collaborative images")
			}
		} else {
			created, err := s.Docs.CreatedBy(ctx, id, actor.UserID)
			if err != nil {
				return err
			}
			if !created {
				return apperror.New(apperror.Forbidden, "No permission to change this image")
			}
		}
	}

	img := &req.Document
	img.Normalize()
	return s.Docs.Update(ctx, actor.UserID, id, docmodel.ImageType, req.Message, &img.Document, func(ctx context.Context, tx *sql.Tx, id int64) error {
		return s.Images.Update(ctx, tx, id, img)
	})
}

// GetImage returns an image with its locales (only lang when set) and
// its creator.
func (s *ImageService) GetImage(ctx context.Context, id int64, lang string) (*model.Image, error) {
	img, err := s.Images.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	doc, err := s.Docs.Load(ctx, id, docmodel.ImageType, lang)
	if err != nil {
		return nil, err
	}
	img.Document = *doc

	if img.Creator, err = s.Docs.Creator(ctx, id); err != nil {
		return nil, err
	}
	return img, nil
}

// ListImages returns one page of images, each with the locale best
// matching the preferred lang.
func (s *ImageService) ListImages(ctx context.Context, page validation.Pagination, preferredLang string) (*model.ImageList, error) {
	images, total, err := s.Images.List(ctx, page.Offset, page.Limit)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(images))
	for i := range images {
		ids[i] = images[i].DocumentID
	}
	locales, err := s.Docs.LocalesFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range images {
		images[i].Locales = locales[images[i].DocumentID]
		if l := images[i].Locale(preferredLang); l != nil {
			images[i].Locales = []docmodel.Locale{*l}
		} else {
			images[i].Locales = []docmodel.Locale{}
		}
	}
	return &model.ImageList{Documents: images, Total: total}, nil
}

func (s *ImageService) Info(ctx context.Context, id int64, lang string) (*docmodel.Info, error) {
	return s.Docs.Info(ctx, id, docmodel.ImageType, lang)
}

// ProxyURL returns where the file of image id is served, with the size
// code inserted before the extension when size is set.
func (s *ImageService) ProxyURL(ctx context.Context, id int64, size string) (string, error) {
	filename, err := s.Images.FilenameByID(ctx, id)
	if err != nil {
		return "", err
	}
	if size == "" {
		return s.ImageURL + filename, nil
	}
	base, ext := splitExt(filename)
	return s.ImageURL + base + size + ext, nil
}

// splitExt splits "photo.jpg" into "photo" and ".jpg". Leading dots are
// part of the base, so ".hidden" has no extension.
func splitExt(filename string) (string, string) {
	i := strings.LastIndex(filename, ".")
	if i <= 0 || strings.Trim(filename[:i], ".") == "" {
		return filename, ""
	}
	return filename[:i], filename[i:]
}
