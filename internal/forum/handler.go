package handler

import (
	"context"
	"net/http"

	"guidebook/internal/forum/model"
	"guidebook/internal/validation"
	"guidebook/middleware"
	"guidebook/pkg/logger"
	"guidebook/pkg/response"
)

type ForumService interface {
	UnreadCount(ctx context.Context, userID int64) (*model.UnreadCount, error)
	CreateTopic(ctx context.Context, req model.CreateTopicRequest, referer string) (model.Post, error)
}

type ForumHandler struct {
	Service ForumService
}

func NewForumHandler(service ForumService) *ForumHandler {
	return &ForumHandler{Service: service}
}

func (h *ForumHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	count, err := h.Service.UnreadCount(r.Context(), p.UserID)
	if err != nil {
		logger.Sugar.Errorf("Handler: Failed to count unread messages of user %d: %v", p.UserID, err)
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, count)
}

// CreateTopic serves POST /forum/topics with {"document_id", "lang"}. The
// topic links back to the page in the Referer header.
func (h *ForumHandler) CreateTopic(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.PrincipalFrom(r.Context()); !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req model.CreateTopicRequest
	fields, err := response.DecodeJSON(r, &req)
	if err != nil {
		response.Error(w, err)
		return
	}
	if errs := validation.CheckRequiredFields(fields, []string{"document_id", "lang"}, false); !errs.Empty() {
		response.Error(w, errs)
		return
	}

	post, err := h.Service.CreateTopic(r.Context(), req, r.Referer())
	if err != nil {
		logger.Sugar.Warnf("Handler: Failed to create topic for %d/%s: %v", req.DocumentID, req.Lang, err)
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, post)
}
