// Package detector turns raw playback signals into watch events.
//
// A video only produces a start event after it has played continuously
// past the minimum play threshold, so brief previews and accidental
// clicks never reach the session pipeline. Once started, progress is
// reported on a fixed interval until the video pauses, ends, or is
// removed.
package detector

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"scrobble/internal/logging"
	"scrobble/internal/pagemeta"
)

const (
	// DefaultMinPlay is how long a video must play before a start
	// event fires.
	DefaultMinPlay = 30 * time.Second

	// DefaultProgressInterval is how often progress events fire for
	// an active video.
	DefaultProgressInterval = 120 * time.Second
)

// Options controls detection timing. Zero values fall back to the
// package defaults.
type Options struct {
	MinPlay          time.Duration
	ProgressInterval time.Duration
}

// Detector tracks known video elements and reports watch activity to
// a Sink. All methods are safe for concurrent use.
type Detector struct {
	sink             Sink
	clock            Clock
	logger           *slog.Logger
	minPlay          time.Duration
	progressInterval time.Duration

	mu       sync.Mutex
	videos   map[string]*video
	activeID string
	closed   bool
}

type video struct {
	id       string
	page     pagemeta.Context
	position float64
	duration float64
	started  bool
	paused   bool
	debounce Timer
	ticker   Ticker
	done     chan struct{}
}

// New returns a detector reporting to sink. A nil clock uses the real
// time package and a nil logger discards output.
func New(sink Sink, clock Clock, logger *slog.Logger, opts Options) *Detector {
	if clock == nil {
		clock = NewClock()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if opts.MinPlay <= 0 {
		opts.MinPlay = DefaultMinPlay
	}
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = DefaultProgressInterval
	}
	return &Detector{
		sink:             sink,
		clock:            clock,
		logger:           logging.NewComponentLogger(logger, "detector"),
		minPlay:          opts.MinPlay,
		progressInterval: opts.ProgressInterval,
		videos:           make(map[string]*video),
	}
}

// Register adds a video under a fresh identifier and returns it.
// Signals for the video reference this identifier.
func (d *Detector) Register(page pagemeta.Context) string {
	id := uuid.NewString()
	d.mu.Lock()
	defer d.mu.Unlock()
	d.videos[id] = &video{id: id, page: page}
	return id
}

// Play records that a video began or resumed playback. The page
// context refreshes on every play since the surrounding document may
// have changed. An unknown id is registered implicitly.
func (d *Detector) Play(id string, position, duration float64, page pagemeta.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	v, ok := d.videos[id]
	if !ok {
		v = &video{id: id}
		d.videos[id] = v
	}
	v.position = position
	v.duration = duration
	if !page.IsZero() {
		v.page = page
	}

	if d.activeID != "" && d.activeID != id {
		if prev, ok := d.videos[d.activeID]; ok {
			d.deactivateLocked(prev, progressPercent(prev.position, prev.duration))
		}
	}
	d.activeID = id

	switch {
	case v.started && v.paused:
		// Resuming a session that already started reports
		// immediately instead of debouncing again.
		v.paused = false
		d.emitStart(v)
		d.startTickerLocked(v)
	case !v.started && v.debounce == nil:
		v.paused = false
		v.debounce = d.clock.AfterFunc(d.minPlay, func() {
			d.debounceFired(id)
		})
	default:
		v.paused = false
	}
}

// TimeUpdate records the current playback position.
func (d *Detector) TimeUpdate(id string, position, duration float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if v, ok := d.videos[id]; ok {
		v.position = position
		if duration > 0 {
			v.duration = duration
		}
	}
}

// Pause records that a video paused. Pausing before the minimum play
// threshold cancels detection without emitting anything.
func (d *Detector) Pause(id string, position, duration float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.videos[id]
	if !ok {
		return
	}
	v.position = position
	if duration > 0 {
		v.duration = duration
	}
	if !v.started {
		d.cancelDebounceLocked(v)
		return
	}
	if v.paused {
		return
	}
	v.paused = true
	d.stopTickerLocked(v)
	d.emit(func(ctx context.Context) error {
		return d.sink.VideoPause(ctx, PauseEvent{VideoID: v.id, Progress: progressPercent(v.position, v.duration)})
	}, "pause")
}

// Ended records that playback reached the end of the video. A started
// session stops at 100 percent regardless of the last reported
// position.
func (d *Detector) Ended(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.videos[id]
	if !ok {
		return
	}
	d.deactivateLocked(v, 100)
	if d.activeID == id {
		d.activeID = ""
	}
}

// Remove drops a video from tracking. A started session stops at its
// last known progress.
func (d *Detector) Remove(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.videos[id]
	if !ok {
		return
	}
	d.deactivateLocked(v, progressPercent(v.position, v.duration))
	delete(d.videos, id)
	if d.activeID == id {
		d.activeID = ""
	}
}

// Close cancels all pending timers. The detector emits nothing after
// Close returns.
func (d *Detector) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	for _, v := range d.videos {
		d.cancelDebounceLocked(v)
		d.stopTickerLocked(v)
	}
	d.videos = make(map[string]*video)
	d.activeID = ""
}

func (d *Detector) debounceFired(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	v, ok := d.videos[id]
	if !ok || v.started || v.paused || v.debounce == nil {
		return
	}
	v.debounce = nil
	v.started = true
	d.emitStart(v)
	d.startTickerLocked(v)
}

// deactivateLocked ends a video's session. Started sessions emit a
// stop event at the given progress; a pending debounce cancels
// silently.
func (d *Detector) deactivateLocked(v *video, progress int) {
	d.cancelDebounceLocked(v)
	if !v.started {
		return
	}
	v.started = false
	v.paused = false
	d.stopTickerLocked(v)
	d.emit(func(ctx context.Context) error {
		return d.sink.VideoStop(ctx, StopEvent{VideoID: v.id, Progress: progress})
	}, "stop")
}

func (d *Detector) cancelDebounceLocked(v *video) {
	if v.debounce != nil {
		v.debounce.Stop()
		v.debounce = nil
	}
}

func (d *Detector) startTickerLocked(v *video) {
	d.stopTickerLocked(v)
	ticker := d.clock.NewTicker(d.progressInterval)
	done := make(chan struct{})
	v.ticker = ticker
	v.done = done
	go func(id string) {
		for {
			select {
			case <-done:
				return
			case <-ticker.C():
				d.reportProgress(id)
			}
		}
	}(v.id)
}

func (d *Detector) stopTickerLocked(v *video) {
	if v.ticker != nil {
		v.ticker.Stop()
		close(v.done)
		v.ticker = nil
		v.done = nil
	}
}

func (d *Detector) reportProgress(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.videos[id]
	if !ok || !v.started || v.paused {
		return
	}
	d.emit(func(ctx context.Context) error {
		return d.sink.VideoProgress(ctx, ProgressEvent{VideoID: v.id, Progress: progressPercent(v.position, v.duration)})
	}, "progress")
}

func (d *Detector) emitStart(v *video) {
	ev := StartEvent{
		VideoID:  v.id,
		Page:     v.page,
		Progress: progressPercent(v.position, v.duration),
		Duration: v.duration,
	}
	d.emit(func(ctx context.Context) error {
		return d.sink.VideoStart(ctx, ev)
	}, "start")
}

// emit delivers an event while holding the detector lock. Sink errors
// are logged and never propagate back into detection.
func (d *Detector) emit(deliver func(context.Context) error, kind string) {
	if d.sink == nil {
		return
	}
	if err := deliver(context.Background()); err != nil {
		d.logger.Warn("event delivery failed",
			logging.String(logging.FieldEventType, kind),
			logging.Error(err))
	}
}

// progressPercent converts a playback position into a whole percent.
// Unknown or non-finite durations report zero.
func progressPercent(position, duration float64) int {
	if duration <= 0 || math.IsNaN(position) || math.IsInf(position, 0) ||
		math.IsNaN(duration) || math.IsInf(duration, 0) {
		return 0
	}
	p := int(math.Round(position / duration * 100))
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
