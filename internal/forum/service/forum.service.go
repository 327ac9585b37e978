package service

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"strconv"

	"guidebook/internal/forum/model"
	"guidebook/internal/validation"
	"guidebook/pkg/apperror"
	"guidebook/pkg/logger"
)

type Client interface {
	Username(ctx context.Context, userID int64) (string, error)
	UnreadPrivateMessages(ctx context.Context, username string) ([]map[string]any, error)
	CreatePost(ctx context.Context, content, title string, category any) (model.Post, error)
}

type TopicStore interface {
	GetLocale(ctx context.Context, documentID int64, lang string) (*model.TopicLocale, error)
	CreateTopic(ctx context.Context, localeID, topicID int64) error
}

type ForumService struct {
	Client Client
	Topics TopicStore
	// PublicURL is the forum address shown to users.
	PublicURL string
	// Category is a category id or name.
	Category string
}

func NewForumService(client Client, topics TopicStore, publicURL, category string) *ForumService {
	return &ForumService{Client: client, Topics: topics, PublicURL: publicURL, Category: category}
}

func (s *ForumService) UnreadCount(ctx context.Context, userID int64) (*model.UnreadCount, error) {
	username, err := s.Client.Username(ctx, userID)
	if err != nil {
		return nil, apperror.Wrap(apperror.External, err, "Error with Discourse")
	}
	topics, err := s.Client.UnreadPrivateMessages(ctx, username)
	if err != nil {
		return nil, apperror.Wrap(apperror.External, err, "Error with Discourse")
	}
	return &model.UnreadCount{
		Link:  fmt.Sprintf("%s/users/%s/messages", s.PublicURL, username),
		Count: len(topics),
	}, nil
}

// CreateTopic opens the discussion topic of a document locale and links
// it to the locale. The forum's answer is returned as is.
func (s *ForumService) CreateTopic(ctx context.Context, req model.CreateTopicRequest, referer string) (model.Post, error) {
	locale, err := s.Topics.GetLocale(ctx, req.DocumentID, req.Lang)
	if err != nil {
		return nil, err
	}
	errs := &validation.Errors{}
	if locale == nil {
		errs.Add(validation.LocationBody, fmt.Sprintf("%d/%s", req.DocumentID, req.Lang), "Document not found")
		return nil, errs
	}
	if locale.TopicID != nil {
		errs.Add(validation.LocationBody, fmt.Sprintf("%d_%s", req.DocumentID, req.Lang), "Topic already exists")
		return nil, errs
	}

	title := fmt.Sprintf("%d_%s", locale.DocumentID, locale.Lang)
	content := fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(referer), html.EscapeString(locale.Title))

	post, err := s.Client.CreatePost(ctx, content, title, s.category())
	if err != nil {
		return nil, apperror.Wrap(apperror.External, err, "Error with Discourse")
	}

	topicID, ok := topicIDOf(post)
	if !ok {
		raw, _ := json.Marshal(post)
		logger.Sugar.Errorf("Discourse created no topic for %s: %s", title, raw)
		return nil, apperror.New(apperror.External, "Error with Discourse")
	}
	if err := s.Topics.CreateTopic(ctx, locale.ID, topicID); err != nil {
		return nil, err
	}
	logger.Sugar.Infof("Topic %d created for %s", topicID, title)
	return post, nil
}

func (s *ForumService) category() any {
	if id, err := strconv.Atoi(s.Category); err == nil {
		return id
	}
	return s.Category
}

func topicIDOf(post model.Post) (int64, bool) {
	switch v := post["topic_id"].(type) {
	case json.Number:
		id, err := v.Int64()
		return id, err == nil
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	}
	return 0, false
}
