// Package kemono is the client for the Kemono content platform API.
package kemono

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"kemonocast/internal/domain"
)

const (
	// PageSize is the fixed number of posts the API returns per page.
	PageSize = 50

	clientTimeout     = 20 * time.Second
	pageFetchDelay    = 100 * time.Millisecond
	errorBodyMaxBytes = 500
)

// UpstreamError is returned when the API answers with a non-success status.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("kemono API returned HTTP %d: %s", e.StatusCode, e.Body)
}

type Client struct {
	httpClient    *http.Client
	baseURL       string
	siteURL       string
	sessionCookie string
	log           *slog.Logger
}

func New(baseURL, siteURL, sessionCookie string, log *slog.Logger) *Client {
	return &Client{
		httpClient:    &http.Client{Timeout: clientTimeout},
		baseURL:       baseURL,
		siteURL:       siteURL,
		sessionCookie: sessionCookie,
		log:           log,
	}
}

func (c *Client) FetchProfile(
	ctx context.Context,
	service string,
	creatorID string,
) (*domain.Profile, error) {
	url := fmt.Sprintf("%s/%s/user/%s/profile", c.baseURL, service, creatorID)

	body, err := c.get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch creator profile: %w", err)
	}

	var profile domain.Profile
	if err = json.Unmarshal(body, &profile); err != nil {
		return nil, fmt.Errorf("decode creator profile: %w", err)
	}

	return &profile, nil
}

// FetchPostsPage fetches one page of posts at the given offset.
// An empty slice signals the end of pagination.
func (c *Client) FetchPostsPage(
	ctx context.Context,
	service string,
	creatorID string,
	offset int,
) ([]domain.Post, error) {
	url := fmt.Sprintf("%s/%s/user/%s/posts", c.baseURL, service, creatorID)
	if offset > 0 {
		url = fmt.Sprintf("%s?o=%d", url, offset)
	}

	body, err := c.get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch creator posts: %w", err)
	}

	var posts []domain.Post
	if err = json.Unmarshal(body, &posts); err != nil {
		return nil, fmt.Errorf("decode creator posts: %w", err)
	}

	return posts, nil
}

// FetchAllPosts paginates through every page of a creator's posts,
// stopping at the first short or empty page. A short delay separates
// page requests to bound the request rate.
func (c *Client) FetchAllPosts(
	ctx context.Context,
	service string,
	creatorID string,
) ([]domain.Post, error) {
	var allPosts []domain.Post
	offset := 0

	for {
		posts, err := c.FetchPostsPage(ctx, service, creatorID, offset)
		if err != nil {
			return nil, fmt.Errorf("fetch page at offset %d: %w", offset, err)
		}

		allPosts = append(allPosts, posts...)

		if len(posts) < PageSize {
			break
		}

		offset += PageSize

		select {
		case <-time.After(pageFetchDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	c.log.DebugContext(ctx, "Backfill pagination finished",
		"service", service,
		"creatorID", creatorID,
		"postCount", len(allPosts))

	return allPosts, nil
}

type postEnvelope struct {
	Post domain.Post `json:"post"`
}

// FetchPostDetail fetches the canonical full-content record for one post.
func (c *Client) FetchPostDetail(
	ctx context.Context,
	service string,
	creatorID string,
	postID string,
) (*domain.Post, error) {
	url := fmt.Sprintf("%s/%s/user/%s/post/%s", c.baseURL, service, creatorID, postID)

	body, err := c.get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch post: %w", err)
	}

	var envelope postEnvelope
	if err = json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode post: %w", err)
	}

	return &envelope.Post, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	// The API rejects requests without these identification headers.
	req.Header.Set("Accept", "text/css")
	if c.sessionCookie != "" {
		req.Header.Set("Cookie", "session="+c.sessionCookie)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.log.WarnContext(ctx, "Failed to close response body",
				"error", closeErr,
				"url", url)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		snippet := body
		if len(snippet) > errorBodyMaxBytes {
			snippet = snippet[:errorBodyMaxBytes]
		}

		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: string(snippet)}
	}

	return body, nil
}
