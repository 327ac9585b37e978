package service

import (
	"context"
	"encoding/json"
	"maps"
	"slices"

	docmodel "guidebook/internal/document/model"
	"guidebook/internal/feed/model"
	imagemodel "guidebook/internal/image/model"
	"guidebook/pkg/logger"
	"guidebook/socket"
)

type Store interface {
	Insert(ctx context.Context, c *model.Change) error
}

type Broadcaster interface {
	Publish(msg socket.WSMessage)
}

type FeedService struct {
	Repo        Store
	Broadcaster Broadcaster
}

func NewFeedService(repo Store, broadcaster Broadcaster) *FeedService {
	return &FeedService{Repo: repo, Broadcaster: broadcaster}
}

// UpdateImagesUpload records one "added_photos" change for a batch of
// saved images and pushes it to feed subscribers. images carry their new
// ids, imagesIn the submitted associations.
func (s *FeedService) UpdateImagesUpload(ctx context.Context, images, imagesIn []imagemodel.Image, userID int64) error {
	if len(images) == 0 {
		return nil
	}

	docID, docType := feedDocument(images, imagesIn)
	c := &model.Change{
		UserID:       userID,
		ChangeType:   model.ChangeAddedPhotos,
		DocumentID:   docID,
		DocumentType: docType,
		MoreImages:   len(images) > 3,
	}
	slots := []**int64{&c.Image1ID, &c.Image2ID, &c.Image3ID}
	for i := 0; i < len(images) && i < len(slots); i++ {
		id := images[i].DocumentID
		*slots[i] = &id
	}

	if err := s.Repo.Insert(ctx, c); err != nil {
		return err
	}

	if s.Broadcaster != nil {
		payload, err := json.Marshal(c)
		if err != nil {
			logger.Sugar.Errorf("Failed to encode feed change %d: %v", c.ChangeID, err)
			return nil
		}
		s.Broadcaster.Publish(socket.WSMessage{
			Type:       socket.FeedChangeType,
			DocumentID: c.DocumentID,
			UserID:     userID,
			Payload:    payload,
			Time:       c.Time,
		})
	}
	return nil
}

// feedDocument picks the document the batch is shown under: the document
// most often associated with the images, skipping images and users. The
// first seen wins a tie. Without any, the first image is used.
func feedDocument(images, imagesIn []imagemodel.Image) (int64, string) {
	type candidate struct {
		id      int64
		docType string
		count   int
	}
	var order []*candidate
	byID := make(map[int64]*candidate)

	for _, img := range imagesIn {
		for _, kind := range slices.Sorted(maps.Keys(img.Associations)) {
			docType, ok := docmodel.AssociationKinds[kind]
			if !ok || docType == docmodel.ImageType || docType == docmodel.UserProfileType {
				continue
			}
			for _, ref := range img.Associations[kind] {
				c, seen := byID[ref.DocumentID]
				if !seen {
					c = &candidate{id: ref.DocumentID, docType: docType}
					byID[ref.DocumentID] = c
					order = append(order, c)
				}
				c.count++
			}
		}
	}

	var best *candidate
	for _, c := range order {
		if best == nil || c.count > best.count {
			best = c
		}
	}
	if best == nil {
		return images[0].DocumentID, docmodel.ImageType
	}
	return best.id, best.docType
}
