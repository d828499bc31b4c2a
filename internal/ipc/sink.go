package ipc

import (
	"context"

	"scrobble/internal/detector"
)

// EventSink adapts a Client to detector.Sink so an embedder can run
// the detector in its own process and feed events to the daemon's
// session loop over the socket.
type EventSink struct {
	client *Client
}

// NewEventSink wraps the client as a detector sink.
func NewEventSink(client *Client) *EventSink {
	return &EventSink{client: client}
}

func (s *EventSink) VideoStart(_ context.Context, ev detector.StartEvent) error {
	var resp SessionEventResponse
	return s.client.call("SessionStart", SessionStartRequest{
		VideoID:  ev.VideoID,
		Page:     ev.Page,
		Progress: ev.Progress,
		Duration: ev.Duration,
	}, &resp)
}

func (s *EventSink) VideoProgress(_ context.Context, ev detector.ProgressEvent) error {
	var resp SessionEventResponse
	return s.client.call("SessionProgress", SessionEventRequest{VideoID: ev.VideoID, Progress: ev.Progress}, &resp)
}

func (s *EventSink) VideoPause(_ context.Context, ev detector.PauseEvent) error {
	var resp SessionEventResponse
	return s.client.call("SessionPause", SessionEventRequest{VideoID: ev.VideoID, Progress: ev.Progress}, &resp)
}

func (s *EventSink) VideoStop(_ context.Context, ev detector.StopEvent) error {
	var resp SessionEventResponse
	return s.client.call("SessionStop", SessionEventRequest{VideoID: ev.VideoID, Progress: ev.Progress}, &resp)
}

var _ detector.Sink = (*EventSink)(nil)
