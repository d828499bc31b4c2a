package ipc

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"scrobble/internal/config"
	"scrobble/internal/daemon"
	"scrobble/internal/detector"
	"scrobble/internal/history"
	"scrobble/internal/pagemeta"
	"scrobble/internal/session"
)

func newTestServer(t *testing.T) (*Client, chan struct{}) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.LogDir = filepath.Join(dir, "logs")
	cfg.Paths.StateDir = filepath.Join(dir, "state")

	d, err := daemon.New(&cfg, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := d.Start(ctx); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}

	stopRequested := make(chan struct{})
	srv, err := NewServer(ctx, cfg.SocketPath(), d, func() { close(stopRequested) }, nil)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(srv.Close)

	client, err := Dial(cfg.SocketPath())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client, stopRequested
}

func TestStatusAndState(t *testing.T) {
	client, _ := newTestServer(t)

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.Running || status.PID == 0 {
		t.Errorf("unexpected status %+v", status)
	}
	if status.Authenticated {
		t.Error("fresh daemon should not be authenticated")
	}

	state, err := client.GetState()
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	if state.Session.State != session.StateIdle {
		t.Errorf("fresh session should be idle, got %s", state.Session.State)
	}
}

func TestVideoRegistrationIsIdempotent(t *testing.T) {
	client, _ := newTestServer(t)

	page := pagemeta.Context{URL: "https://example.com/watch", Title: "Watch"}
	first, err := client.VideoAdded(VideoAddedRequest{Tag: "player-1", Page: page})
	if err != nil {
		t.Fatalf("VideoAdded: %v", err)
	}
	if first.Tag != "player-1" || first.VideoID == "" {
		t.Fatalf("unexpected response %+v", first)
	}

	second, err := client.VideoAdded(VideoAddedRequest{Tag: "player-1", Page: page})
	if err != nil {
		t.Fatalf("VideoAdded: %v", err)
	}
	if second.VideoID != first.VideoID {
		t.Errorf("re-announce produced new id: %q vs %q", second.VideoID, first.VideoID)
	}

	generated, err := client.VideoAdded(VideoAddedRequest{Page: page})
	if err != nil {
		t.Fatalf("VideoAdded: %v", err)
	}
	if generated.Tag == "" || generated.VideoID == "" {
		t.Errorf("empty tag should be assigned: %+v", generated)
	}

	if err := client.VideoRemoved("player-1"); err != nil {
		t.Fatalf("VideoRemoved: %v", err)
	}
}

func TestSignalsForUnknownTagsAreRejected(t *testing.T) {
	client, _ := newTestServer(t)

	var resp VideoSignalResponse
	if err := client.client.Call(ServiceName+".VideoPlay", VideoSignalRequest{Tag: "ghost", Position: 1, Duration: 100}, &resp); err != nil {
		t.Fatalf("VideoPlay: %v", err)
	}
	if resp.Accepted {
		t.Error("unknown tag should not be accepted")
	}
}

func TestSettingsRoundtrip(t *testing.T) {
	client, _ := newTestServer(t)

	key := "new-gemini-key"
	id := "new-client-id"
	saved, err := client.SaveSettings(SaveSettingsRequest{GeminiAPIKey: &key, TraktClientID: &id})
	if err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}
	if !saved.Saved {
		t.Error("save not acknowledged")
	}

	got, err := client.GetSettings()
	if err != nil {
		t.Fatalf("GetSettings: %v", err)
	}
	if got.GeminiAPIKey != key || got.TraktClientID != id {
		t.Errorf("settings not persisted: %+v", got)
	}
	if got.TraktClientSecret != "" {
		t.Errorf("untouched field changed: %q", got.TraktClientSecret)
	}
}

func TestHistoryEmpty(t *testing.T) {
	client, _ := newTestServer(t)
	resp, err := client.History(10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(resp.Entries) != 0 {
		t.Errorf("expected empty history, got %+v", resp.Entries)
	}
}

func TestSkipScrobbleOnIdleSession(t *testing.T) {
	client, _ := newTestServer(t)
	resp, err := client.SkipScrobble()
	if err != nil {
		t.Fatalf("SkipScrobble: %v", err)
	}
	if resp.Session.State != session.StateIdle {
		t.Errorf("unexpected state %s", resp.Session.State)
	}
}

func TestStopInvokesShutdown(t *testing.T) {
	client, stopRequested := newTestServer(t)

	resp, err := client.Stop()
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if !resp.Stopped {
		t.Error("stop not acknowledged")
	}
	select {
	case <-stopRequested:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown callback never invoked")
	}
}

func TestCorrectMatchRequiresTitle(t *testing.T) {
	client, _ := newTestServer(t)
	if _, err := client.CorrectMatch(CorrectMatchRequest{}); err == nil {
		t.Fatal("expected error for empty title")
	}
}

func TestEventSinkFeedsSessionLoop(t *testing.T) {
	client, _ := newTestServer(t)
	sink := NewEventSink(client)

	err := sink.VideoStart(context.Background(), detector.StartEvent{
		VideoID:  "video-1",
		Page:     pagemeta.Context{URL: "https://example.com/watch", Title: "Some Film"},
		Progress: 1,
		Duration: 5400,
	})
	if err != nil {
		t.Fatalf("VideoStart: %v", err)
	}

	// No Gemini key is configured, so the session should fall back to
	// a recorded low-confidence skip and return to idle.
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := client.History(10)
		if err != nil {
			t.Fatalf("History: %v", err)
		}
		if len(resp.Entries) > 0 {
			if resp.Entries[0].Action != history.ActionSkippedLowScore {
				t.Fatalf("unexpected action %q", resp.Entries[0].Action)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("no history entry recorded")
		}
		time.Sleep(10 * time.Millisecond)
	}

	state, err := client.GetState()
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	if state.Session.State != session.StateIdle {
		t.Errorf("expected idle after skip, got %s", state.Session.State)
	}

	if err := sink.VideoStop(context.Background(), detector.StopEvent{VideoID: "video-1", Progress: 50}); err != nil {
		t.Fatalf("VideoStop: %v", err)
	}
}
