package model

import "time"

const ChangeAddedPhotos = "added_photos"

// Change is one entry of the activity feed.
type Change struct {
	ChangeID     int64     `json:"change_id"`
	Time         time.Time `json:"time"`
	UserID       int64     `json:"user_id"`
	ChangeType   string    `json:"change_type"`
	DocumentID   int64     `json:"document_id"`
	DocumentType string    `json:"document_type"`
	Image1ID     *int64    `json:"image1_id,omitempty"`
	Image2ID     *int64    `json:"image2_id,omitempty"`
	Image3ID     *int64    `json:"image3_id,omitempty"`
	MoreImages   bool      `json:"more_images"`
}
