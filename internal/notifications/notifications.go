// Package notifications pushes scrobble events to an ntfy topic.
package notifications

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"scrobble/internal/config"
	"scrobble/internal/logging"
)

// Service delivers user-facing notifications. Failures are the
// caller's to ignore; notification delivery never gates scrobbling.
type Service interface {
	ScrobbleStarted(ctx context.Context, title string, progress int) error
	ScrobbleError(ctx context.Context, message string) error
	Test(ctx context.Context) error
}

// NewService builds a service from config. An empty topic yields a
// no-op service.
func NewService(cfg *config.Config, logger *slog.Logger) Service {
	if cfg == nil || cfg.Notifications.NtfyTopic == "" {
		return noop{}
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ntfyService{
		topicURL:        strings.TrimRight(cfg.Notifications.NtfyTopic, "/"),
		notifyScrobbles: cfg.Notifications.Scrobbles,
		notifyErrors:    cfg.Notifications.Errors,
		httpClient:      &http.Client{Timeout: timeout},
		logger:          logging.NewComponentLogger(logger, "notifications"),
	}
}

type ntfyService struct {
	topicURL        string
	notifyScrobbles bool
	notifyErrors    bool
	httpClient      *http.Client
	logger          *slog.Logger
}

func (s *ntfyService) ScrobbleStarted(ctx context.Context, title string, progress int) error {
	if !s.notifyScrobbles {
		return nil
	}
	body := fmt.Sprintf("Now scrobbling %s (%d%%)", title, progress)
	return s.publish(ctx, "Scrobble started", "movie_camera", body)
}

func (s *ntfyService) ScrobbleError(ctx context.Context, message string) error {
	if !s.notifyErrors {
		return nil
	}
	return s.publish(ctx, "Scrobble error", "warning", message)
}

func (s *ntfyService) Test(ctx context.Context) error {
	return s.publish(ctx, "Test notification", "white_check_mark", "Notifications are working")
}

func (s *ntfyService) publish(ctx context.Context, title, tags, body string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.topicURL, strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Title", title)
	req.Header.Set("Tags", tags)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 400 {
		return fmt.Errorf("notification endpoint returned status %d", resp.StatusCode)
	}
	s.logger.Debug("notification sent", logging.String("title", title))
	return nil
}

type noop struct{}

func (noop) ScrobbleStarted(context.Context, string, int) error { return nil }
func (noop) ScrobbleError(context.Context, string) error        { return nil }
func (noop) Test(context.Context) error                         { return nil }

// NewNop returns a service that does nothing.
func NewNop() Service { return noop{} }
