package model

type UnreadCount struct {
	Link  string `json:"link"`
	Count int    `json:"count"`
}

type CreateTopicRequest struct {
	DocumentID int64  `json:"document_id"`
	Lang       string `json:"lang"`
}

// TopicLocale is a document locale with its forum topic, if any.
type TopicLocale struct {
	ID         int64
	DocumentID int64
	Lang       string
	Title      string
	TopicID    *int64
}

// Post is the forum's answer to a post creation, passed through to the
// caller unchanged.
type Post map[string]any
