package ipc

import (
	"time"

	"scrobble/internal/history"
	"scrobble/internal/pagemeta"
	"scrobble/internal/session"
)

// VideoAddedRequest announces a video element found on a page. Tag is
// the caller's identifier for the element; an empty tag gets one
// assigned.
type VideoAddedRequest struct {
	Tag  string           `json:"tag"`
	Page pagemeta.Context `json:"page"`
}

// VideoAddedResponse returns the canonical tag and video id.
type VideoAddedResponse struct {
	Tag     string `json:"tag"`
	VideoID string `json:"video_id"`
}

// VideoRemovedRequest reports a video element leaving the page.
type VideoRemovedRequest struct {
	Tag string `json:"tag"`
}

// VideoRemovedResponse acknowledges removal.
type VideoRemovedResponse struct {
	Removed bool `json:"removed"`
}

// VideoSignalRequest carries a raw playback signal for a tagged
// video.
type VideoSignalRequest struct {
	Tag      string           `json:"tag"`
	Position float64          `json:"position"`
	Duration float64          `json:"duration"`
	Page     pagemeta.Context `json:"page,omitempty"`
}

// VideoSignalResponse reports whether the signal reached a tracked
// video.
type VideoSignalResponse struct {
	Accepted bool `json:"accepted"`
}

// SessionStartRequest delivers a start event from a detector the
// caller runs itself, bypassing the daemon's signal debouncing.
type SessionStartRequest struct {
	VideoID  string           `json:"video_id"`
	Page     pagemeta.Context `json:"page"`
	Progress int              `json:"progress"`
	Duration float64          `json:"duration"`
}

// SessionEventRequest delivers a progress, pause, or stop event from
// an external detector.
type SessionEventRequest struct {
	VideoID  string `json:"video_id"`
	Progress int    `json:"progress"`
}

// SessionEventResponse acknowledges a session event.
type SessionEventResponse struct{}

// StateRequest fetches the current watch session.
type StateRequest struct{}

// StateResponse carries the session snapshot.
type StateResponse struct {
	Session session.WatchSession `json:"session"`
}

// LoginRequest begins the OAuth flow.
type LoginRequest struct{}

// LoginResponse tells the user where to authorize.
type LoginResponse struct {
	AuthorizeURL string `json:"authorize_url"`
}

// CompleteLoginRequest finishes the OAuth flow with the pasted code
// or callback URL.
type CompleteLoginRequest struct {
	Code string `json:"code"`
}

// CompleteLoginResponse reports the authenticated user.
type CompleteLoginResponse struct {
	Username string `json:"username"`
}

// LogoutRequest revokes and clears the stored token.
type LogoutRequest struct{}

// LogoutResponse acknowledges logout.
type LogoutResponse struct {
	LoggedOut bool `json:"logged_out"`
}

// ConfirmMatchRequest approves the current match.
type ConfirmMatchRequest struct{}

// ConfirmMatchResponse carries the session after confirmation.
type ConfirmMatchResponse struct {
	Session session.WatchSession `json:"session"`
}

// CorrectMatchRequest replaces the identification with the user's
// correction.
type CorrectMatchRequest struct {
	Title     string `json:"title"`
	MediaType string `json:"media_type"`
	Season    *int   `json:"season,omitempty"`
	Episode   *int   `json:"episode,omitempty"`
}

// CorrectMatchResponse carries the session after correction.
type CorrectMatchResponse struct {
	Session session.WatchSession `json:"session"`
}

// SkipRequest abandons the current session without scrobbling.
type SkipRequest struct{}

// SkipResponse carries the reset session.
type SkipResponse struct {
	Session session.WatchSession `json:"session"`
}

// SettingsRequest fetches stored settings.
type SettingsRequest struct{}

// SettingsResponse returns the effective settings and auth state.
type SettingsResponse struct {
	GeminiAPIKey      string `json:"gemini_api_key"`
	TraktClientID     string `json:"trakt_client_id"`
	TraktClientSecret string `json:"trakt_client_secret"`
	Authenticated     bool   `json:"authenticated"`
}

// SaveSettingsRequest updates stored settings. Nil fields are left
// untouched.
type SaveSettingsRequest struct {
	GeminiAPIKey      *string `json:"gemini_api_key,omitempty"`
	TraktClientID     *string `json:"trakt_client_id,omitempty"`
	TraktClientSecret *string `json:"trakt_client_secret,omitempty"`
}

// SaveSettingsResponse acknowledges the update.
type SaveSettingsResponse struct {
	Saved bool `json:"saved"`
}

// HistoryRequest lists recent history entries.
type HistoryRequest struct {
	Limit int `json:"limit"`
}

// HistoryResponse carries history entries, newest first.
type HistoryResponse struct {
	Entries []history.Entry `json:"entries"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse describes the daemon process.
type StatusResponse struct {
	Running       bool      `json:"running"`
	PID           int       `json:"pid"`
	StartedAt     time.Time `json:"started_at"`
	SocketPath    string    `json:"socket_path"`
	LockPath      string    `json:"lock_path"`
	HistoryDBPath string    `json:"history_db_path"`
	Authenticated bool      `json:"authenticated"`
}

// StopRequest shuts the daemon down.
type StopRequest struct{}

// StopResponse acknowledges shutdown.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// TestNotificationRequest sends a test notification.
type TestNotificationRequest struct{}

// TestNotificationResponse reports the outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message,omitempty"`
}
