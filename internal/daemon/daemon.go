// Package daemon assembles the scrobbler: detector, identification,
// catalog matching, scrobbling, history, and notifications, behind a
// single-instance lock.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"scrobble/internal/catalog"
	"scrobble/internal/config"
	"scrobble/internal/detector"
	"scrobble/internal/history"
	"scrobble/internal/identify"
	"scrobble/internal/logging"
	"scrobble/internal/notifications"
	"scrobble/internal/services/gemini"
	"scrobble/internal/services/trakt"
	"scrobble/internal/session"
	"scrobble/internal/settings"
)

// Daemon owns the long-running scrobbler components.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger

	lock     *flock.Flock
	settings *settings.Store
	hist     *history.Store
	auth     *trakt.Authenticator
	trakt    *trakt.Client
	notifier notifications.Service
	orch     *session.Orchestrator
	det      *detector.Detector
	watcher  *detector.SubtreeWatcher

	startedAt time.Time

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// Status is a point-in-time view of the daemon for IPC consumers.
type Status struct {
	Running       bool
	PID           int
	StartedAt     time.Time
	LockPath      string
	SocketPath    string
	HistoryDBPath string
	Authenticated bool
}

// New wires the daemon from config. It acquires the single-instance
// lock; a second daemon against the same state directory fails here.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, fmt.Errorf("daemon requires configuration")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	lock := flock.New(cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire daemon lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("another scrobbled instance holds %s", cfg.LockPath())
	}

	cleanup := func() {
		lock.Unlock()
	}

	store, err := settings.NewStore(cfg.SettingsPath(), settings.Values{
		GeminiAPIKey:      cfg.Gemini.APIKey,
		TraktClientID:     cfg.Trakt.ClientID,
		TraktClientSecret: cfg.Trakt.ClientSecret,
	})
	if err != nil {
		cleanup()
		return nil, err
	}

	hist, err := history.Open(cfg.HistoryDBPath())
	if err != nil {
		cleanup()
		return nil, err
	}

	tokenStore := trakt.NewFileCredentialStore(cfg.TokenPath())
	auth := trakt.NewAuthenticator(cfg.Trakt.BaseURL, cfg.Trakt.AuthURL, cfg.Trakt.RedirectURI,
		store, tokenStore, time.Duration(cfg.Trakt.TimeoutSeconds)*time.Second, logger)
	traktClient := trakt.NewClient(cfg.Trakt.BaseURL, store, auth,
		time.Duration(cfg.Trakt.TimeoutSeconds)*time.Second, logger)

	geminiClient := gemini.New(cfg.Gemini.BaseURL, cfg.Gemini.Model,
		time.Duration(cfg.Gemini.TimeoutSeconds)*time.Second)
	identifier := identify.New(geminiClient, store, logger)
	matcher := catalog.NewMatcher(traktClient, logger)
	notifier := notifications.NewService(cfg, logger)

	orch := session.New(identifier, matcher, traktClient, hist, notifier, logger, session.Options{
		ConfidenceThreshold: cfg.Session.ConfidenceThreshold,
	})
	det := detector.New(orch, nil, logger, detector.Options{
		MinPlay:          time.Duration(cfg.Detector.MinPlaySeconds) * time.Second,
		ProgressInterval: time.Duration(cfg.Detector.ProgressIntervalSeconds) * time.Second,
	})

	return &Daemon{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "daemon"),
		lock:      lock,
		settings:  store,
		hist:      hist,
		auth:      auth,
		trakt:     traktClient,
		notifier:  notifier,
		orch:      orch,
		det:       det,
		watcher:   detector.NewSubtreeWatcher(det),
		startedAt: time.Now().UTC(),
	}, nil
}

// Start launches the session loop. Starting a running daemon is a
// no-op.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		d.orch.Run(runCtx)
	}()
	d.cancel = cancel
	d.done = done
	d.running = true
	d.logger.Info("daemon started", logging.Int("pid", os.Getpid()))
	return nil
}

// Stop halts the session loop without releasing the lock.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running {
		return
	}
	d.det.Close()
	d.cancel()
	<-d.done
	d.running = false
	d.logger.Info("daemon stopped")
}

// Close stops the daemon and releases all resources.
func (d *Daemon) Close() error {
	d.Stop()
	var firstErr error
	if err := d.hist.Close(); err != nil {
		firstErr = err
	}
	if err := d.lock.Unlock(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// Status reports daemon health. Authenticated may refresh the token.
func (d *Daemon) Status(ctx context.Context) Status {
	d.mu.Lock()
	running := d.running
	d.mu.Unlock()
	return Status{
		Running:       running,
		PID:           os.Getpid(),
		StartedAt:     d.startedAt,
		LockPath:      d.cfg.LockPath(),
		SocketPath:    d.cfg.SocketPath(),
		HistoryDBPath: d.cfg.HistoryDBPath(),
		Authenticated: d.auth.Authenticated(ctx),
	}
}

// Accessors for the IPC surface.

func (d *Daemon) Detector() *detector.Detector         { return d.det }
func (d *Daemon) Watcher() *detector.SubtreeWatcher    { return d.watcher }
func (d *Daemon) Sessions() *session.Orchestrator      { return d.orch }
func (d *Daemon) Auth() *trakt.Authenticator           { return d.auth }
func (d *Daemon) Trakt() *trakt.Client                 { return d.trakt }
func (d *Daemon) Settings() *settings.Store            { return d.settings }
func (d *Daemon) History() *history.Store              { return d.hist }
func (d *Daemon) Notifications() notifications.Service { return d.notifier }
func (d *Daemon) Config() *config.Config               { return d.cfg }
