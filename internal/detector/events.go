package detector

import (
	"context"

	"scrobble/internal/pagemeta"
)

// StartEvent fires once playback has run continuously past the
// minimum play threshold.
type StartEvent struct {
	VideoID  string           `json:"video_id"`
	Page     pagemeta.Context `json:"page"`
	Progress int              `json:"progress"`
	Duration float64          `json:"duration"`
}

// ProgressEvent fires on the progress interval while playback is active.
type ProgressEvent struct {
	VideoID  string `json:"video_id"`
	Progress int    `json:"progress"`
}

// PauseEvent fires when an active video pauses after start was emitted.
type PauseEvent struct {
	VideoID  string `json:"video_id"`
	Progress int    `json:"progress"`
}

// StopEvent fires when an active video ends, is removed, or is
// superseded by another video. Progress is 100 when playback ran to
// the end.
type StopEvent struct {
	VideoID  string `json:"video_id"`
	Progress int    `json:"progress"`
}

// Sink receives detection events. Implementations must tolerate
// being called from timer goroutines.
type Sink interface {
	VideoStart(ctx context.Context, ev StartEvent) error
	VideoProgress(ctx context.Context, ev ProgressEvent) error
	VideoPause(ctx context.Context, ev PauseEvent) error
	VideoStop(ctx context.Context, ev StopEvent) error
}
