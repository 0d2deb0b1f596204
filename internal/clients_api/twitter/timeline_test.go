package twitter

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"readme-image/internal/infra/log"
)

func testClient(t *testing.T, url string) *Client {
	t.Helper()
	c, err := NewClient(Credentials{}, Options{BaseURL: url, MaxRetries: 1, HTTPClient: http.DefaultClient})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestGetUserTimeline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/statuses/user_timeline.json" {
			http.NotFound(w, r)
			return
		}
		q := r.URL.Query()
		if q.Get("screen_name") != "gopher" || q.Get("count") != "2" || q.Get("tweet_mode") != "extended" {
			t.Errorf("unexpected query %v", q)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"id_str": "2", "full_text": "Tom &amp; Jerry &lt;3", "created_at": "Sat Oct 17 10:00:00 +0000 2026"},
			{"id_str": "1", "text": "short text only"},
			{"id_str": "0", "text": "extra post beyond count"}
		]`))
	}))
	defer server.Close()

	posts, err := testClient(t, server.URL).GetUserTimeline(context.Background(), "@gopher", 2)
	if err != nil {
		t.Fatalf("GetUserTimeline: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("got %d posts, want 2", len(posts))
	}
	if posts[0].Text != "Tom & Jerry <3" {
		t.Errorf("posts[0].Text = %q", posts[0].Text)
	}
	if posts[1].Text != "short text only" {
		t.Errorf("posts[1].Text = %q", posts[1].Text)
	}
}

func TestGetUserTimelineError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"errors":[{"code":453}]}`))
	}))
	defer server.Close()

	_, err := testClient(t, server.URL).GetPosts(context.Background(), "gopher", 1)
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("err = %v, want 403", err)
	}
}

func TestNewClientRequiresCredentials(t *testing.T) {
	_, err := NewClient(Credentials{APIKey: "k"}, Options{})
	if !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("err = %v, want ErrMissingCredentials", err)
	}

	c, err := NewClient(Credentials{APIKey: "k", APISecretKey: "s", AccessToken: "t", AccessTokenSecret: "ts"}, Options{})
	if err != nil || c == nil {
		t.Fatalf("NewClient with full credentials: %v", err)
	}
}

func TestEmptyScreenName(t *testing.T) {
	c := testClient(t, "http://127.0.0.1:0")
	if _, err := c.GetUserTimeline(context.Background(), " @ ", 1); err == nil {
		t.Error("expected error for empty screen name")
	}
}

func TestGetUserTimelineLogsPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id_str": "9", "full_text": "logged tweet"}]`))
	}))
	defer server.Close()

	dir := t.TempDir()
	if err := log.Init(log.Options{Dir: dir, Debug: true}); err != nil {
		t.Fatalf("log.Init: %v", err)
	}
	t.Cleanup(func() { _ = log.Init(log.Options{}) })

	if _, err := testClient(t, server.URL).GetUserTimeline(context.Background(), "gopher", 1); err != nil {
		t.Fatalf("GetUserTimeline: %v", err)
	}
	log.Sync()

	data, err := os.ReadFile(filepath.Join(dir, "app.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if out := string(data); !strings.Contains(out, "Twitter timeline response") || !strings.Contains(out, `"full_text": "logged tweet"`) {
		t.Errorf("payload not logged:\n%s", out)
	}
}
