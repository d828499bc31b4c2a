package detector

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"scrobble/internal/pagemeta"
)

type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	timers  []*fakeTimer
	tickers []*fakeTicker
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{deadline: c.now.Add(d), fn: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) NewTicker(d time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTicker{ch: make(chan time.Time, 64), period: d, next: c.now.Add(d)}
	c.tickers = append(c.tickers, t)
	return t
}

// Advance moves the clock forward, firing due timers and delivering
// due ticks in order.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.now = target
	var fire []func()
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.deadline.After(target) {
			t.fired = true
			fire = append(fire, t.fn)
		}
	}
	for _, t := range c.tickers {
		for !t.stopped && !t.next.After(target) {
			t.ch <- t.next
			t.next = t.next.Add(t.period)
		}
	}
	c.mu.Unlock()
	for _, f := range fire {
		f()
	}
}

type fakeTimer struct {
	deadline time.Time
	fn       func()
	stopped  bool
	fired    bool
}

func (t *fakeTimer) Stop() bool {
	was := t.stopped || t.fired
	t.stopped = true
	return !was
}

type fakeTicker struct {
	ch      chan time.Time
	period  time.Duration
	next    time.Time
	stopped bool
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }

func (t *fakeTicker) Stop() { t.stopped = true }

type recordSink struct {
	mu     sync.Mutex
	events []string
	ch     chan string
	fail   bool
}

func newRecordSink() *recordSink {
	return &recordSink{ch: make(chan string, 64)}
}

func (s *recordSink) record(kind, id string, progress int) error {
	s.mu.Lock()
	ev := fmt.Sprintf("%s %s %d", kind, id, progress)
	s.events = append(s.events, ev)
	fail := s.fail
	s.mu.Unlock()
	s.ch <- ev
	if fail {
		return errors.New("sink down")
	}
	return nil
}

func (s *recordSink) VideoStart(_ context.Context, ev StartEvent) error {
	return s.record("start", ev.VideoID, ev.Progress)
}

func (s *recordSink) VideoProgress(_ context.Context, ev ProgressEvent) error {
	return s.record("progress", ev.VideoID, ev.Progress)
}

func (s *recordSink) VideoPause(_ context.Context, ev PauseEvent) error {
	return s.record("pause", ev.VideoID, ev.Progress)
}

func (s *recordSink) VideoStop(_ context.Context, ev StopEvent) error {
	return s.record("stop", ev.VideoID, ev.Progress)
}

func (s *recordSink) wait(t *testing.T) string {
	t.Helper()
	select {
	case ev := <-s.ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return ""
	}
}

func (s *recordSink) expectNone(t *testing.T) {
	t.Helper()
	select {
	case ev := <-s.ch:
		t.Fatalf("unexpected event %q", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func newTestDetector() (*Detector, *fakeClock, *recordSink) {
	clock := newFakeClock()
	sink := newRecordSink()
	det := New(sink, clock, nil, Options{})
	return det, clock, sink
}

func TestStartFiresAfterMinimumPlay(t *testing.T) {
	det, clock, sink := newTestDetector()
	defer det.Close()

	page := pagemeta.Context{Title: "Dune (2021)"}
	id := det.Register(page)
	det.Play(id, 0, 7200, page)

	clock.Advance(29 * time.Second)
	sink.expectNone(t)

	det.TimeUpdate(id, 30, 7200)
	clock.Advance(1 * time.Second)
	if got, want := sink.wait(t), "start "+id+" 0"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestPauseBeforeThresholdCancelsSilently(t *testing.T) {
	det, clock, sink := newTestDetector()
	defer det.Close()

	id := det.Register(pagemeta.Context{})
	det.Play(id, 0, 600, pagemeta.Context{})
	clock.Advance(10 * time.Second)
	det.Pause(id, 10, 600)
	clock.Advance(5 * time.Minute)
	sink.expectNone(t)
}

func TestProgressReportsOnInterval(t *testing.T) {
	det, clock, sink := newTestDetector()
	defer det.Close()

	id := det.Register(pagemeta.Context{})
	det.Play(id, 0, 1000, pagemeta.Context{})
	clock.Advance(30 * time.Second)
	sink.wait(t) // start

	det.TimeUpdate(id, 250, 1000)
	clock.Advance(120 * time.Second)
	if got, want := sink.wait(t), "progress "+id+" 25"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}

	det.TimeUpdate(id, 500, 1000)
	clock.Advance(120 * time.Second)
	if got, want := sink.wait(t), "progress "+id+" 50"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestPauseAfterStartEmitsPauseAndHaltsProgress(t *testing.T) {
	det, clock, sink := newTestDetector()
	defer det.Close()

	id := det.Register(pagemeta.Context{})
	det.Play(id, 0, 1000, pagemeta.Context{})
	clock.Advance(30 * time.Second)
	sink.wait(t) // start

	det.Pause(id, 400, 1000)
	if got, want := sink.wait(t), "pause "+id+" 40"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}

	clock.Advance(10 * time.Minute)
	sink.expectNone(t)
}

func TestResumeAfterPauseStartsWithoutDebounce(t *testing.T) {
	det, clock, sink := newTestDetector()
	defer det.Close()

	id := det.Register(pagemeta.Context{})
	det.Play(id, 0, 1000, pagemeta.Context{})
	clock.Advance(30 * time.Second)
	sink.wait(t) // start
	det.Pause(id, 400, 1000)
	sink.wait(t) // pause

	det.Play(id, 400, 1000, pagemeta.Context{})
	if got, want := sink.wait(t), "start "+id+" 40"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestEndedReportsFullProgress(t *testing.T) {
	det, clock, sink := newTestDetector()
	defer det.Close()

	id := det.Register(pagemeta.Context{})
	det.Play(id, 0, 1000, pagemeta.Context{})
	clock.Advance(30 * time.Second)
	sink.wait(t) // start

	det.TimeUpdate(id, 987, 1000)
	det.Ended(id)
	if got, want := sink.wait(t), "stop "+id+" 100"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestRemoveReportsLastKnownProgress(t *testing.T) {
	det, clock, sink := newTestDetector()
	defer det.Close()

	id := det.Register(pagemeta.Context{})
	det.Play(id, 0, 1000, pagemeta.Context{})
	clock.Advance(30 * time.Second)
	sink.wait(t) // start

	det.TimeUpdate(id, 620, 1000)
	det.Remove(id)
	if got, want := sink.wait(t), "stop "+id+" 62"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}

	sink.expectNone(t)
}

func TestSwitchingVideosStopsThePreviousOne(t *testing.T) {
	det, clock, sink := newTestDetector()
	defer det.Close()

	a := det.Register(pagemeta.Context{})
	b := det.Register(pagemeta.Context{})

	det.Play(a, 0, 1000, pagemeta.Context{})
	clock.Advance(30 * time.Second)
	sink.wait(t) // start a

	det.TimeUpdate(a, 300, 1000)
	det.Play(b, 0, 2000, pagemeta.Context{})
	if got, want := sink.wait(t), "stop "+a+" 30"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}

	clock.Advance(30 * time.Second)
	if got, want := sink.wait(t), "start "+b+" 0"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestSwitchingAwayFromPendingVideoCancelsSilently(t *testing.T) {
	det, clock, sink := newTestDetector()
	defer det.Close()

	a := det.Register(pagemeta.Context{})
	b := det.Register(pagemeta.Context{})

	det.Play(a, 0, 1000, pagemeta.Context{})
	clock.Advance(10 * time.Second)
	det.Play(b, 0, 1000, pagemeta.Context{})
	clock.Advance(30 * time.Second)
	if got, want := sink.wait(t), "start "+b+" 0"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	sink.expectNone(t)
}

func TestSinkErrorsDoNotDisruptDetection(t *testing.T) {
	det, clock, sink := newTestDetector()
	defer det.Close()
	sink.fail = true

	id := det.Register(pagemeta.Context{})
	det.Play(id, 0, 1000, pagemeta.Context{})
	clock.Advance(30 * time.Second)
	sink.wait(t) // start, delivery failed

	det.TimeUpdate(id, 100, 1000)
	clock.Advance(120 * time.Second)
	if got, want := sink.wait(t), "progress "+id+" 10"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestProgressPercent(t *testing.T) {
	cases := []struct {
		name     string
		position float64
		duration float64
		want     int
	}{
		{"zero duration", 10, 0, 0},
		{"negative duration", 10, -5, 0},
		{"nan position", math.NaN(), 100, 0},
		{"inf duration", 10, math.Inf(1), 0},
		{"rounds", 333, 1000, 33},
		{"rounds up", 335, 1000, 34},
		{"clamps high", 2000, 1000, 100},
		{"clamps low", -50, 1000, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := progressPercent(tc.position, tc.duration); got != tc.want {
				t.Errorf("progressPercent(%v, %v) = %d, want %d", tc.position, tc.duration, got, tc.want)
			}
		})
	}
}

func TestWatcherTaggingIsIdempotent(t *testing.T) {
	det, _, _ := newTestDetector()
	defer det.Close()
	w := NewSubtreeWatcher(det)

	tag, id := w.OnAdded("video-1", pagemeta.Context{})
	if tag != "video-1" {
		t.Fatalf("tag rewritten to %q", tag)
	}
	tag2, id2 := w.OnAdded("video-1", pagemeta.Context{})
	if tag2 != tag || id2 != id {
		t.Fatalf("rescan produced new identity: %q/%q vs %q/%q", tag2, id2, tag, id)
	}

	genTag, genID := w.OnAdded("", pagemeta.Context{})
	if genTag == "" || genID == "" {
		t.Fatal("empty tag should be generated")
	}

	w.OnRemoved(tag)
	if _, ok := w.Resolve(tag); ok {
		t.Fatal("removed tag still resolves")
	}
	w.OnRemoved(tag) // no-op
}
