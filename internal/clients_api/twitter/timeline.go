package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/url"
	"strconv"
	"strings"

	"readme-image/internal/infra/log"
)

// Post is one timeline entry.
type Post struct {
	ID        string
	Text      string
	CreatedAt string
}

type rawTweet struct {
	IDStr     string `json:"id_str"`
	Text      string `json:"text"`
	FullText  string `json:"full_text"`
	CreatedAt string `json:"created_at"`
}

// GetUserTimeline returns up to count most recent posts of screenName, newest first.
func (c *Client) GetUserTimeline(ctx context.Context, screenName string, count int) ([]Post, error) {
	screenName = strings.TrimPrefix(strings.TrimSpace(screenName), "@")
	if screenName == "" {
		return nil, fmt.Errorf("twitter screen name is empty")
	}
	if count < 1 {
		count = 1
	}

	params := url.Values{}
	params.Set("screen_name", screenName)
	params.Set("count", strconv.Itoa(count))
	params.Set("tweet_mode", "extended")

	body, err := c.doGET(ctx, "/statuses/user_timeline.json?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("failed to get user timeline: %w", err)
	}
	log.LogJSON(body, "Twitter timeline response")

	var raw []rawTweet
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user timeline: %w", err)
	}

	posts := make([]Post, 0, len(raw))
	for _, t := range raw {
		text := t.FullText
		if text == "" {
			text = t.Text
		}
		posts = append(posts, Post{
			ID: t.IDStr,
			// the API returns &, < and > entity-encoded
			Text:      html.UnescapeString(text),
			CreatedAt: t.CreatedAt,
		})
	}

	// count is an upper bound for the API, not a guarantee
	if len(posts) > count {
		posts = posts[:count]
	}
	return posts, nil
}

// GetPosts adapts GetUserTimeline to the pipeline's fetcher signature.
func (c *Client) GetPosts(ctx context.Context, account string, count int) ([]Post, error) {
	return c.GetUserTimeline(ctx, account, count)
}
