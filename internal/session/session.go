// Package session orchestrates the watch pipeline: detection events
// come in, identification and catalog matching run, and scrobbles go
// out. A single goroutine owns the session, so every transition is
// serialized and observers always see a consistent snapshot.
package session

import (
	"time"

	"scrobble/internal/identify"
	"scrobble/internal/pagemeta"
	"scrobble/internal/services/trakt"
)

// State is the lifecycle phase of the current watch session.
type State string

const (
	StateIdle        State = "IDLE"
	StateDetecting   State = "DETECTING"
	StateIdentifying State = "IDENTIFYING"
	StateScrobbling  State = "SCROBBLING"
	StatePaused      State = "PAUSED"
	StateError       State = "ERROR"
)

// WatchSession is the full session snapshot as observers see it.
type WatchSession struct {
	ID              string                   `json:"id,omitempty"`
	State           State                    `json:"state"`
	VideoID         string                   `json:"video_id,omitempty"`
	Page            pagemeta.Context         `json:"page"`
	Identification  *identify.Identification `json:"identification,omitempty"`
	Match           *trakt.SearchResult      `json:"match,omitempty"`
	MediaItem       *trakt.MediaItem         `json:"media_item,omitempty"`
	Progress        int                      `json:"progress"`
	Error           string                   `json:"error,omitempty"`
	ConfirmedByUser bool                     `json:"confirmed_by_user"`
	UpdatedAt       time.Time                `json:"updated_at"`
}

// Active reports whether a scrobble is running or paused.
func (s WatchSession) Active() bool {
	return s.State == StateScrobbling || s.State == StatePaused
}

func idleSession() WatchSession {
	return WatchSession{State: StateIdle, UpdatedAt: time.Now().UTC()}
}
