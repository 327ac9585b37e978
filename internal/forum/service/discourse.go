package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"guidebook/internal/forum/model"
	"guidebook/pkg/apperror"
	"guidebook/pkg/metrics"
)

// DiscourseClient calls the Discourse admin API with an API key, acting
// as APIUsername.
type DiscourseClient struct {
	BaseURL     string
	APIKey      string
	APIUsername string
	HTTP        *http.Client
	Metrics     *metrics.Metrics
}

func NewDiscourseClient(baseURL, apiKey, apiUsername string, m *metrics.Metrics) *DiscourseClient {
	return &DiscourseClient{BaseURL: baseURL, APIKey: apiKey, APIUsername: apiUsername, HTTP: http.DefaultClient, Metrics: m}
}

// Username returns the forum username of the local user id, which the
// forum knows as its external id.
func (c *DiscourseClient) Username(ctx context.Context, userID int64) (string, error) {
	var out struct {
		User struct {
			Username string `json:"username"`
		} `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/users/by-external/%d.json", userID), nil, &out); err != nil {
		return "", err
	}
	if out.User.Username == "" {
		return "", apperror.New(apperror.External, "Discourse has no user for id %d", userID)
	}
	return out.User.Username, nil
}

func (c *DiscourseClient) UnreadPrivateMessages(ctx context.Context, username string) ([]map[string]any, error) {
	var out struct {
		TopicList struct {
			Topics []map[string]any `json:"topics"`
		} `json:"topic_list"`
	}
	path := "/topics/private-messages-unread/" + url.PathEscape(username) + ".json"
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.TopicList.Topics, nil
}

// CreatePost opens a new topic. category is a category id or name.
func (c *DiscourseClient) CreatePost(ctx context.Context, content, title string, category any) (model.Post, error) {
	body := map[string]any{"raw": content, "title": title, "category": category}
	post := model.Post{}
	if err := c.do(ctx, http.MethodPost, "/posts.json", body, &post); err != nil {
		return nil, err
	}
	return post, nil
}

func (c *DiscourseClient) do(ctx context.Context, method, path string, body, out any) error {
	err := c.roundTrip(ctx, method, path, body, out)
	c.Metrics.ObserveExternal("discourse", err)
	return err
}

func (c *DiscourseClient) roundTrip(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return apperror.Wrap(apperror.External, err, "Discourse request failed")
	}
	req.Header.Set("Api-Key", c.APIKey)
	req.Header.Set("Api-Username", c.APIUsername)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return apperror.Wrap(apperror.External, err, "Discourse request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apperror.New(apperror.External, "Discourse returns : %d %s",
			resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return apperror.Wrap(apperror.External, err, "Invalid Discourse response")
	}
	return nil
}
