package notifications

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"scrobble/internal/config"
)

func testConfig(topic string) *config.Config {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = topic
	cfg.Notifications.Scrobbles = true
	cfg.Notifications.Errors = true
	return &cfg
}

func TestScrobbleStartedPublishes(t *testing.T) {
	var gotTitle, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTitle = r.Header.Get("Title")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
	}))
	defer srv.Close()

	svc := NewService(testConfig(srv.URL), nil)
	if err := svc.ScrobbleStarted(context.Background(), "Dune", 12); err != nil {
		t.Fatalf("ScrobbleStarted: %v", err)
	}
	if gotTitle != "Scrobble started" {
		t.Errorf("unexpected title %q", gotTitle)
	}
	if gotBody != "Now scrobbling Dune (12%)" {
		t.Errorf("unexpected body %q", gotBody)
	}
}

func TestDisabledCategoriesStayQuiet(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.Notifications.Scrobbles = false
	cfg.Notifications.Errors = false
	svc := NewService(cfg, nil)

	if err := svc.ScrobbleStarted(context.Background(), "Dune", 0); err != nil {
		t.Fatalf("ScrobbleStarted: %v", err)
	}
	if err := svc.ScrobbleError(context.Background(), "boom"); err != nil {
		t.Fatalf("ScrobbleError: %v", err)
	}
	if calls != 0 {
		t.Errorf("expected no publishes, got %d", calls)
	}

	// Test always publishes so the user can verify the topic.
	if err := svc.Test(context.Background()); err != nil {
		t.Fatalf("Test: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected test publish, got %d", calls)
	}
}

func TestServerErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	svc := NewService(testConfig(srv.URL), nil)
	if err := svc.Test(context.Background()); err == nil {
		t.Fatal("expected error for 403 response")
	}
}

func TestEmptyTopicIsNoop(t *testing.T) {
	svc := NewService(testConfig(""), nil)
	if err := svc.ScrobbleStarted(context.Background(), "x", 0); err != nil {
		t.Fatalf("noop should never fail: %v", err)
	}
	if err := svc.Test(context.Background()); err != nil {
		t.Fatalf("noop should never fail: %v", err)
	}
}
