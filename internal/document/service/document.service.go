package service

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"guidebook/internal/document/model"
	"guidebook/internal/document/repository"
	"guidebook/internal/validation"
	"guidebook/pkg/apperror"
)

// Store is the persistence used by DocumentService.
type Store interface {
	Create(ctx context.Context, userID int64, docType string, doc *model.Document, typed repository.TypedWriter) (int64, error)
	Update(ctx context.Context, userID int64, docType, message string, doc *model.Document, typed repository.TypedWriter) error
	Load(ctx context.Context, id int64, docType, lang string) (*model.Document, error)
	LocalesFor(ctx context.Context, ids []int64) (map[int64][]model.Locale, error)
	Creator(ctx context.Context, id int64) (*model.Creator, error)
	ExistingIDs(ctx context.Context, docType string, ids []int64) (map[int64]bool, error)
}

// AllowedAssociations lists the association kinds a document type accepts.
var AllowedAssociations = map[string][]string{
	model.ImageType: {"images", "waypoints", "routes", "outings", "articles", "books", "areas", "xreports", "users"},
}

type DocumentService struct {
	Repo Store
}

func NewDocumentService(repo Store) *DocumentService {
	return &DocumentService{Repo: repo}
}

func (s *DocumentService) Create(ctx context.Context, userID int64, docType string, doc *model.Document, typed repository.TypedWriter) (int64, error) {
	return s.Repo.Create(ctx, userID, docType, doc, typed)
}

// Update checks that the path id matches the body before writing.
func (s *DocumentService) Update(ctx context.Context, userID, id int64, docType, message string, doc *model.Document, typed repository.TypedWriter) error {
	if doc.DocumentID != id {
		return apperror.New(apperror.InvalidInput, "id in the url does not match document_id in request body")
	}
	return s.Repo.Update(ctx, userID, docType, message, doc, typed)
}

func (s *DocumentService) Load(ctx context.Context, id int64, docType, lang string) (*model.Document, error) {
	return s.Repo.Load(ctx, id, docType, lang)
}

func (s *DocumentService) LocalesFor(ctx context.Context, ids []int64) (map[int64][]model.Locale, error) {
	return s.Repo.LocalesFor(ctx, ids)
}

func (s *DocumentService) Creator(ctx context.Context, id int64) (*model.Creator, error) {
	return s.Repo.Creator(ctx, id)
}

// CreatedBy reports whether userID wrote the first version of the document.
func (s *DocumentService) CreatedBy(ctx context.Context, id, userID int64) (bool, error) {
	creator, err := s.Repo.Creator(ctx, id)
	if err != nil {
		return false, err
	}
	return creator != nil && creator.UserID == userID, nil
}

// Info returns the title of the document in lang, falling back to the
// first available locale.
func (s *DocumentService) Info(ctx context.Context, id int64, docType, lang string) (*model.Info, error) {
	doc, err := s.Repo.Load(ctx, id, docType, "")
	if err != nil {
		return nil, err
	}
	info := &model.Info{DocumentID: doc.DocumentID, Locales: []model.InfoLocale{}}
	if l := doc.Locale(lang); l != nil {
		info.Locales = append(info.Locales, model.InfoLocale{Lang: l.Lang, Title: l.Title})
	}
	return info, nil
}

// ValidateAssociations checks that every association kind is allowed for
// docType and that every referenced document exists. Each kind reports at
// most one missing document.
func (s *DocumentService) ValidateAssociations(ctx context.Context, docType string, associations model.Associations) (*validation.Errors, error) {
	errs := &validation.Errors{}
	allowed := AllowedAssociations[docType]

	for _, kind := range slices.Sorted(maps.Keys(associations)) {
		name := "associations." + kind
		refType, known := model.AssociationKinds[kind]
		if !known || !slices.Contains(allowed, kind) {
			errs.Add(validation.LocationBody, name, "invalid association type")
			continue
		}

		refs := associations[kind]
		if len(refs) == 0 {
			continue
		}
		ids := make([]int64, 0, len(refs))
		for _, ref := range refs {
			ids = append(ids, ref.DocumentID)
		}
		found, err := s.Repo.ExistingIDs(ctx, refType, ids)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			if !found[id] {
				errs.Add(validation.LocationBody, name, fmt.Sprintf("document %q does not exist", fmt.Sprint(id)))
				break
			}
		}
	}
	return errs, nil
}
