package model

import (
	docmodel "guidebook/internal/document/model"
	"guidebook/internal/validation"
)

const (
	TypeCollaborative = "collaborative"
	TypePersonal      = "personal"
	TypeCopyright     = "copyright"
)

// RequiredFields must be set on every image body.
var RequiredFields = []string{"filename", "locales", "locales.title"}

type Image struct {
	docmodel.Document
	Filename   string            `json:"filename"`
	ImageType  string            `json:"image_type"`
	Activities []string          `json:"activities,omitempty"`
	Categories []string          `json:"categories,omitempty"`
	Author     *string           `json:"author,omitempty"`
	Elevation  *int              `json:"elevation,omitempty"`
	Creator    *docmodel.Creator `json:"creator,omitempty"`
}

// Normalize fills the defaults of fields left out of the body. The array
// columns are NOT NULL, so absent lists become empty ones.
func (i *Image) Normalize() {
	if i.ImageType == "" {
		i.ImageType = TypeCollaborative
	}
	if i.Activities == nil {
		i.Activities = []string{}
	}
	if i.Categories == nil {
		i.Categories = []string{}
	}
}

type CreateImageResponse struct {
	DocumentID int64 `json:"document_id"`
}

type CreateImageListRequest struct {
	Images []Image `json:"images"`
}

type CreateImageListResponse struct {
	Images []CreateImageResponse `json:"images"`
}

type UpdateImageRequest struct {
	Message  string `json:"message"`
	Document Image  `json:"document"`
}

type ImageList struct {
	Documents []Image `json:"documents"`
	Total     int     `json:"total"`
}

// Input pairs a decoded image body with its raw fields.
type Input struct {
	Image  *Image
	Fields validation.Fields
}
