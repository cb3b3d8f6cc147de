package kemono

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"

	"kemonocast/internal/domain"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestFetchProfile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/patreon/user/123/profile" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Accept") != "text/css" {
			t.Errorf("expected identification Accept header, got %q", r.Header.Get("Accept"))
		}

		fmt.Fprint(w, `{"id":"123","name":"Some Creator","service":"patreon","public_id":"somecreator"}`)
	}))
	defer server.Close()

	client := New(server.URL, server.URL, "", newTestLogger())

	profile, err := client.FetchProfile(context.Background(), "patreon", "123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if profile.Name != "Some Creator" {
		t.Errorf("expected name 'Some Creator', got %q", profile.Name)
	}
	if profile.PublicID != "somecreator" {
		t.Errorf("expected public_id 'somecreator', got %q", profile.PublicID)
	}
}

func TestFetchProfileSendsSessionCookie(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Cookie") != "session=abc" {
			t.Errorf("expected session cookie, got %q", r.Header.Get("Cookie"))
		}

		fmt.Fprint(w, `{"id":"123"}`)
	}))
	defer server.Close()

	client := New(server.URL, server.URL, "abc", newTestLogger())

	if _, err := client.FetchProfile(context.Background(), "patreon", "123"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFetchProfileUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, "blocked")
	}))
	defer server.Close()

	client := New(server.URL, server.URL, "", newTestLogger())

	_, err := client.FetchProfile(context.Background(), "patreon", "123")
	if err == nil {
		t.Fatal("expected error for non-success status")
	}

	var upstreamErr *UpstreamError
	if !errors.As(err, &upstreamErr) {
		t.Fatalf("expected *UpstreamError, got %T: %v", err, err)
	}
	if upstreamErr.StatusCode != http.StatusForbidden {
		t.Errorf("expected status 403, got %d", upstreamErr.StatusCode)
	}
	if upstreamErr.Body != "blocked" {
		t.Errorf("expected body 'blocked', got %q", upstreamErr.Body)
	}
}

func TestFetchPostsPageOffsetQuery(t *testing.T) {
	var gotQueries []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQueries = append(gotQueries, r.URL.RawQuery)
		fmt.Fprint(w, `[]`)
	}))
	defer server.Close()

	client := New(server.URL, server.URL, "", newTestLogger())
	ctx := context.Background()

	if _, err := client.FetchPostsPage(ctx, "patreon", "123", 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := client.FetchPostsPage(ctx, "patreon", "123", 50); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotQueries[0] != "" {
		t.Errorf("expected no query at offset 0, got %q", gotQueries[0])
	}
	if gotQueries[1] != "o=50" {
		t.Errorf("expected o=50 query, got %q", gotQueries[1])
	}
}

func makePosts(start, count int) []domain.Post {
	posts := make([]domain.Post, 0, count)
	for i := range count {
		posts = append(posts, domain.Post{
			ID:      fmt.Sprintf("post-%d", start+i),
			User:    "123",
			Service: "patreon",
			Title:   fmt.Sprintf("Post %d", start+i),
		})
	}

	return posts
}

func TestFetchAllPostsPaginates(t *testing.T) {
	var pageFetches atomic.Int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pageFetches.Add(1)

		offset := 0
		if o := r.URL.Query().Get("o"); o != "" {
			var err error
			if offset, err = strconv.Atoi(o); err != nil {
				t.Errorf("bad offset query %q: %v", o, err)
			}
		}

		// 120 posts total: two full pages and one short page.
		remaining := 120 - offset
		if remaining > PageSize {
			remaining = PageSize
		}
		if remaining < 0 {
			remaining = 0
		}

		if err := json.NewEncoder(w).Encode(makePosts(offset, remaining)); err != nil {
			t.Errorf("encode page: %v", err)
		}
	}))
	defer server.Close()

	client := New(server.URL, server.URL, "", newTestLogger())

	posts, err := client.FetchAllPosts(context.Background(), "patreon", "123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(posts) != 120 {
		t.Errorf("expected 120 posts, got %d", len(posts))
	}
	if got := pageFetches.Load(); got != 3 {
		t.Errorf("expected 3 page fetches, got %d", got)
	}
	if posts[0].ID != "post-0" || posts[119].ID != "post-119" {
		t.Errorf("expected arrival-order concatenation, got first=%s last=%s",
			posts[0].ID, posts[119].ID)
	}
}

func TestFetchAllPostsStopsOnEmptyFirstPage(t *testing.T) {
	var pageFetches atomic.Int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pageFetches.Add(1)
		fmt.Fprint(w, `[]`)
	}))
	defer server.Close()

	client := New(server.URL, server.URL, "", newTestLogger())

	posts, err := client.FetchAllPosts(context.Background(), "patreon", "123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(posts) != 0 {
		t.Errorf("expected no posts, got %d", len(posts))
	}
	if got := pageFetches.Load(); got != 1 {
		t.Errorf("expected a single page fetch, got %d", got)
	}
}

func TestFetchAllPostsFailsMidPagination(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("o") != "" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}

		if err := json.NewEncoder(w).Encode(makePosts(0, PageSize)); err != nil {
			t.Errorf("encode page: %v", err)
		}
	}))
	defer server.Close()

	client := New(server.URL, server.URL, "", newTestLogger())

	_, err := client.FetchAllPosts(context.Background(), "patreon", "123")

	var upstreamErr *UpstreamError
	if !errors.As(err, &upstreamErr) {
		t.Fatalf("expected *UpstreamError, got %v", err)
	}
	if upstreamErr.StatusCode != http.StatusBadGateway {
		t.Errorf("expected status 502, got %d", upstreamErr.StatusCode)
	}
}

func TestFetchPostDetailUnwrapsEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/patreon/user/123/post/42" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		fmt.Fprint(w, `{"post":{"id":"42","user":"123","service":"patreon","title":"Full","content":"<p>full body</p>"}}`)
	}))
	defer server.Close()

	client := New(server.URL, server.URL, "", newTestLogger())

	post, err := client.FetchPostDetail(context.Background(), "patreon", "123", "42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if post.ID != "42" {
		t.Errorf("expected post id 42, got %q", post.ID)
	}
	if post.Content != "<p>full body</p>" {
		t.Errorf("expected full content, got %q", post.Content)
	}
}

func TestSiteURLs(t *testing.T) {
	client := New("https://kemono.cr/api/v1", "https://kemono.cr", "", newTestLogger())

	if got := client.CreatorPageURL("patreon", "123"); got != "https://kemono.cr/patreon/user/123" {
		t.Errorf("unexpected creator page URL: %q", got)
	}
	if got := client.PostURL("patreon", "123", "42"); got != "https://kemono.cr/patreon/user/123/post/42" {
		t.Errorf("unexpected post URL: %q", got)
	}
	if got := client.FileURL("/data/file.mp3"); got != "https://kemono.cr/data/file.mp3" {
		t.Errorf("unexpected file URL: %q", got)
	}
}
