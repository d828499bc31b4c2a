package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"scrobble/internal/catalog"
	"scrobble/internal/detector"
	"scrobble/internal/history"
	"scrobble/internal/identify"
	"scrobble/internal/logging"
	"scrobble/internal/notifications"
	"scrobble/internal/pagemeta"
	"scrobble/internal/services"
	"scrobble/internal/services/trakt"
)

// ErrStopped is returned when the orchestrator loop is no longer
// running.
var ErrStopped = errors.New("session orchestrator stopped")

// Identifier names the media a page is playing. *identify.Identifier
// satisfies it.
type Identifier interface {
	Identify(ctx context.Context, page pagemeta.Context) identify.Identification
}

// Matcher resolves an identification against the catalog.
type Matcher interface {
	Match(ctx context.Context, id identify.Identification) (*trakt.SearchResult, error)
}

// Scrobbler sends scrobble calls. *trakt.Client satisfies it.
type Scrobbler interface {
	Scrobble(ctx context.Context, action string, item trakt.MediaItem, progress float64) (*trakt.ScrobbleResponse, error)
}

// Recorder persists history entries. *history.Store satisfies it.
type Recorder interface {
	Append(ctx context.Context, e history.Entry) error
	Prune(ctx context.Context, keep int) error
}

// Options tunes orchestration.
type Options struct {
	// ConfidenceThreshold is the minimum identification confidence
	// that starts a scrobble. Defaults to 80.
	ConfidenceThreshold int
	// HistoryLimit caps stored history entries. Defaults to 200.
	HistoryLimit int
}

// Orchestrator owns the watch session. All mutation happens on the
// Run goroutine; public methods post work to it and wait.
type Orchestrator struct {
	identifier Identifier
	matcher    Matcher
	scrobbler  Scrobbler
	recorder   Recorder
	notifier   notifications.Service
	logger     *slog.Logger

	threshold    int
	historyLimit int

	inbox   chan func(context.Context)
	stopped chan struct{}

	session WatchSession

	mu        sync.Mutex
	listeners map[int]chan WatchSession
	nextSub   int
}

// New builds an orchestrator. recorder and notifier may be nil.
func New(identifier Identifier, matcher Matcher, scrobbler Scrobbler, recorder Recorder, notifier notifications.Service, logger *slog.Logger, opts Options) *Orchestrator {
	if opts.ConfidenceThreshold <= 0 {
		opts.ConfidenceThreshold = 80
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 200
	}
	if notifier == nil {
		notifier = notifications.NewNop()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Orchestrator{
		identifier:   identifier,
		matcher:      matcher,
		scrobbler:    scrobbler,
		recorder:     recorder,
		notifier:     notifier,
		logger:       logging.NewComponentLogger(logger, "session"),
		threshold:    opts.ConfidenceThreshold,
		historyLimit: opts.HistoryLimit,
		inbox:        make(chan func(context.Context), 16),
		stopped:      make(chan struct{}),
		session:      idleSession(),
		listeners:    make(map[int]chan WatchSession),
	}
}

// Run processes session work until ctx is cancelled.
func (o *Orchestrator) Run(ctx context.Context) error {
	defer close(o.stopped)
	for {
		select {
		case <-ctx.Done():
			return nil
		case fn := <-o.inbox:
			fn(ctx)
		}
	}
}

// do posts fn to the loop and waits for it to finish.
func (o *Orchestrator) do(ctx context.Context, fn func(context.Context)) error {
	done := make(chan struct{})
	wrapped := func(runCtx context.Context) {
		defer close(done)
		fn(runCtx)
	}
	select {
	case o.inbox <- wrapped:
	case <-o.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-o.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// post enqueues fn without waiting.
func (o *Orchestrator) post(fn func(context.Context)) {
	select {
	case o.inbox <- fn:
	case <-o.stopped:
	}
}

// Snapshot returns a copy of the current session.
func (o *Orchestrator) Snapshot(ctx context.Context) (WatchSession, error) {
	var snap WatchSession
	err := o.do(ctx, func(context.Context) {
		snap = o.session
	})
	return snap, err
}

// Subscribe registers a listener for session updates. The returned
// cancel function removes it. Slow listeners miss updates rather than
// blocking the loop.
func (o *Orchestrator) Subscribe() (<-chan WatchSession, func()) {
	o.mu.Lock()
	defer o.mu.Unlock()
	id := o.nextSub
	o.nextSub++
	ch := make(chan WatchSession, 8)
	o.listeners[id] = ch
	return ch, func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		if _, ok := o.listeners[id]; ok {
			delete(o.listeners, id)
			close(ch)
		}
	}
}

func (o *Orchestrator) broadcast() {
	o.session.UpdatedAt = time.Now().UTC()
	snap := o.session
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, ch := range o.listeners {
		select {
		case ch <- snap:
		default:
		}
	}
}

// VideoStart begins a session for the video, or resumes a paused one.
func (o *Orchestrator) VideoStart(ctx context.Context, ev detector.StartEvent) error {
	return o.do(ctx, func(runCtx context.Context) {
		o.handleStart(runCtx, ev)
	})
}

// VideoProgress updates scrobble progress.
func (o *Orchestrator) VideoProgress(ctx context.Context, ev detector.ProgressEvent) error {
	return o.do(ctx, func(runCtx context.Context) {
		o.handleProgress(runCtx, ev)
	})
}

// VideoPause pauses the active scrobble.
func (o *Orchestrator) VideoPause(ctx context.Context, ev detector.PauseEvent) error {
	return o.do(ctx, func(runCtx context.Context) {
		o.handlePause(runCtx, ev)
	})
}

// VideoStop stops the active scrobble and resets the session.
func (o *Orchestrator) VideoStop(ctx context.Context, ev detector.StopEvent) error {
	return o.do(ctx, func(runCtx context.Context) {
		o.handleStop(runCtx, ev)
	})
}

func (o *Orchestrator) handleStart(runCtx context.Context, ev detector.StartEvent) {
	// Resuming the same video after a pause re-starts the existing
	// scrobble without another identification round.
	if o.session.State == StatePaused && o.session.VideoID == ev.VideoID && o.session.MediaItem != nil {
		o.session.Progress = ev.Progress
		o.startScrobble(runCtx)
		o.broadcast()
		return
	}

	o.session = WatchSession{
		ID:       uuid.NewString(),
		State:    StateDetecting,
		VideoID:  ev.VideoID,
		Page:     ev.Page,
		Progress: ev.Progress,
	}
	o.broadcast()

	o.session.State = StateIdentifying
	o.broadcast()

	sessionID := o.session.ID
	page := ev.Page
	o.logger.Info("session started",
		logging.String(logging.FieldSessionID, sessionID),
		logging.String("url", page.URL))

	go func() {
		ident := o.identifier.Identify(runCtx, page)
		var match *trakt.SearchResult
		var matchErr error
		if ident.Title != "" && ident.Confidence >= o.threshold {
			match, matchErr = o.matcher.Match(runCtx, ident)
		}
		o.post(func(postCtx context.Context) {
			o.applyIdentification(postCtx, sessionID, ident, match, matchErr)
		})
	}()
}

// applyIdentification lands an async identification chain on the
// loop. Results for a session that is no longer current are dropped:
// the user may have stopped or switched videos while the chain was in
// flight.
func (o *Orchestrator) applyIdentification(runCtx context.Context, sessionID string, ident identify.Identification, match *trakt.SearchResult, matchErr error) {
	if o.session.ID != sessionID {
		o.logger.Debug("discarding stale identification",
			logging.String(logging.FieldSessionID, sessionID),
			logging.String("title", ident.Title))
		return
	}
	o.session.Identification = &ident

	if ident.Title == "" || ident.Confidence < o.threshold {
		o.record(runCtx, history.ActionSkippedLowScore, nil)
		reason := fmt.Sprintf("identification confidence too low (%d%%)", ident.Confidence)
		if ident.Error != "" {
			reason += ": " + ident.Error
		}
		o.toIdle(reason)
		return
	}

	if matchErr != nil {
		if services.IsAuth(matchErr) {
			o.toIdle("not logged into Trakt")
			return
		}
		o.session.State = StateError
		o.session.Error = matchErr.Error()
		o.notifyError(runCtx, matchErr.Error())
		o.broadcast()
		return
	}
	if match == nil {
		o.record(runCtx, history.ActionNotFoundOnCatalog, nil)
		o.toIdle(fmt.Sprintf("%q not found on Trakt", ident.Title))
		return
	}

	o.session.Match = match
	item := catalog.BuildMediaItem(match, ident)
	o.session.MediaItem = &item
	o.startScrobble(runCtx)
	o.broadcast()
}

// startScrobble issues a scrobble start for the session's media item
// and advances the state accordingly.
func (o *Orchestrator) startScrobble(runCtx context.Context) {
	item := o.session.MediaItem
	if item == nil {
		return
	}
	_, err := o.scrobbler.Scrobble(runCtx, trakt.ActionStart, *item, float64(o.session.Progress))
	if err != nil {
		if services.IsAuth(err) {
			o.session.State = StateIdle
			o.session.Error = "not logged into Trakt"
			return
		}
		o.session.State = StateError
		o.session.Error = "failed to start scrobble: " + err.Error()
		o.notifyError(runCtx, o.session.Error)
		return
	}
	wasScrobbling := o.session.State == StateScrobbling || o.session.State == StatePaused
	o.session.State = StateScrobbling
	o.session.Error = ""
	if !wasScrobbling {
		o.record(runCtx, history.ActionScrobbleStarted, item)
		if nerr := o.notifier.ScrobbleStarted(runCtx, item.Title(), o.session.Progress); nerr != nil {
			o.logger.Warn("notification failed", logging.Error(nerr))
		}
	}
}

func (o *Orchestrator) handleProgress(runCtx context.Context, ev detector.ProgressEvent) {
	if o.session.VideoID != ev.VideoID {
		return
	}
	o.session.Progress = ev.Progress
	if o.session.State == StateScrobbling && o.session.MediaItem != nil {
		// Trakt treats a repeated start as a progress update.
		if _, err := o.scrobbler.Scrobble(runCtx, trakt.ActionStart, *o.session.MediaItem, float64(ev.Progress)); err != nil {
			o.logger.Warn("progress update failed", logging.Error(err))
		}
	}
	o.broadcast()
}

func (o *Orchestrator) handlePause(runCtx context.Context, ev detector.PauseEvent) {
	if o.session.VideoID != ev.VideoID {
		return
	}
	o.session.Progress = ev.Progress
	if o.session.State == StateScrobbling && o.session.MediaItem != nil {
		if _, err := o.scrobbler.Scrobble(runCtx, trakt.ActionPause, *o.session.MediaItem, float64(ev.Progress)); err != nil {
			o.logger.Warn("scrobble pause failed", logging.Error(err))
		}
		o.session.State = StatePaused
	}
	o.broadcast()
}

func (o *Orchestrator) handleStop(runCtx context.Context, ev detector.StopEvent) {
	if o.session.VideoID != ev.VideoID {
		return
	}
	if o.session.Active() && o.session.MediaItem != nil {
		progress := ev.Progress
		if progress <= 0 {
			progress = 100
		}
		if _, err := o.scrobbler.Scrobble(runCtx, trakt.ActionStop, *o.session.MediaItem, float64(progress)); err != nil {
			o.logger.Warn("scrobble stop failed", logging.Error(err))
		}
	}
	o.session = idleSession()
	o.broadcast()
}

// ConfirmMatch marks the current match as user-approved and starts
// the scrobble if one is not already running.
func (o *Orchestrator) ConfirmMatch(ctx context.Context) (WatchSession, error) {
	var snap WatchSession
	err := o.do(ctx, func(runCtx context.Context) {
		o.session.ConfirmedByUser = true
		if o.session.MediaItem != nil && o.session.State != StateScrobbling {
			o.startScrobble(runCtx)
		}
		o.broadcast()
		snap = o.session
	})
	return snap, err
}

// CorrectMatch replaces the identification with the user's correction
// and re-runs matching and scrobbling. The corrected identification
// carries full confidence.
func (o *Orchestrator) CorrectMatch(ctx context.Context, title, mediaType string, season, episode *int) (WatchSession, error) {
	var snap WatchSession
	err := o.do(ctx, func(runCtx context.Context) {
		corrected := identify.Identification{
			Title:      normalizeTitle(title),
			Type:       identify.TypeMovie,
			Season:     season,
			Episode:    episode,
			Confidence: 100,
		}
		if mediaType == string(identify.TypeShow) {
			corrected.Type = identify.TypeShow
		}
		o.session.Identification = &corrected
		o.session.ConfirmedByUser = true

		match, matchErr := o.matcher.Match(runCtx, corrected)
		switch {
		case matchErr != nil && services.IsAuth(matchErr):
			o.toIdle("not logged into Trakt")
		case matchErr != nil:
			o.session.State = StateError
			o.session.Error = matchErr.Error()
			o.broadcast()
		case match == nil:
			o.record(runCtx, history.ActionNotFoundOnCatalog, nil)
			o.toIdle(fmt.Sprintf("%q not found on Trakt", corrected.Title))
		default:
			o.session.Match = match
			item := catalog.BuildMediaItem(match, corrected)
			o.session.MediaItem = &item
			o.startScrobble(runCtx)
			o.broadcast()
		}
		snap = o.session
	})
	return snap, err
}

// Skip abandons the current session without sending a scrobble stop.
func (o *Orchestrator) Skip(ctx context.Context) (WatchSession, error) {
	var snap WatchSession
	err := o.do(ctx, func(context.Context) {
		o.session = idleSession()
		o.broadcast()
		snap = o.session
	})
	return snap, err
}

// Reset clears the session, for example after a logout.
func (o *Orchestrator) Reset(ctx context.Context) error {
	_, err := o.Skip(ctx)
	return err
}

// toIdle returns the session to idle while keeping the error message
// and the last identification visible to observers.
func (o *Orchestrator) toIdle(reason string) {
	o.session.State = StateIdle
	o.session.Error = reason
	o.logger.Info("session idled", logging.String("reason", reason))
	o.broadcast()
}

func (o *Orchestrator) record(runCtx context.Context, action string, item *trakt.MediaItem) {
	if o.recorder == nil {
		return
	}
	entry := history.Entry{
		Action:         action,
		Page:           o.session.Page,
		Identification: o.session.Identification,
		MediaItem:      item,
	}
	if o.session.Identification != nil {
		entry.Title = o.session.Identification.Title
		entry.MediaType = string(o.session.Identification.Type)
		entry.Confidence = o.session.Identification.Confidence
	}
	if err := o.recorder.Append(runCtx, entry); err != nil {
		o.logger.Warn("history append failed", logging.Error(err))
		return
	}
	if err := o.recorder.Prune(runCtx, o.historyLimit); err != nil {
		o.logger.Warn("history prune failed", logging.Error(err))
	}
}

func (o *Orchestrator) notifyError(runCtx context.Context, message string) {
	if err := o.notifier.ScrobbleError(runCtx, message); err != nil {
		o.logger.Warn("notification failed", logging.Error(err))
	}
}

// normalizeTitle tidies a user-typed correction: all-lowercase input
// gets title-cased, everything else is kept as typed.
func normalizeTitle(title string) string {
	title = strings.TrimSpace(title)
	if title != "" && title == strings.ToLower(title) {
		return cases.Title(language.Und).String(title)
	}
	return title
}
