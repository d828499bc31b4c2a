// Package ipc exposes daemon control over JSON-RPC on a Unix domain
// socket. Page helpers feed raw playback signals in; the CLI reads
// state and drives auth, corrections, and settings.
package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"

	"log/slog"

	"scrobble/internal/daemon"
	"scrobble/internal/detector"
	"scrobble/internal/logging"
	"scrobble/internal/settings"
)

// ServiceName is the JSON-RPC service prefix.
const ServiceName = "Scrobble"

// Server accepts RPC connections for a daemon.
type Server struct {
	path      string
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
// shutdown, if non-nil, is invoked when a client requests daemon
// stop.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, shutdown func(), logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}
	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	svc := &service{daemon: d, shutdown: shutdown, logger: logging.NewComponentLogger(logger, "ipc"), ctx: ctx}
	if err := rpcServer.RegisterName(ServiceName, svc); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		logger:    logging.NewComponentLogger(logger, "ipc"),
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve accepts connections until the context is cancelled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed", logging.Error(err))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err))
	}
}

type service struct {
	daemon   *daemon.Daemon
	shutdown func()
	logger   *slog.Logger
	ctx      context.Context
}

// VideoAdded registers a video element. Re-announcing a known tag
// returns the existing identity.
func (s *service) VideoAdded(req VideoAddedRequest, resp *VideoAddedResponse) error {
	tag, id := s.daemon.Watcher().OnAdded(req.Tag, req.Page)
	resp.Tag = tag
	resp.VideoID = id
	return nil
}

// VideoRemoved drops a video element from tracking.
func (s *service) VideoRemoved(req VideoRemovedRequest, resp *VideoRemovedResponse) error {
	s.daemon.Watcher().OnRemoved(req.Tag)
	resp.Removed = true
	return nil
}

// VideoPlay reports that a video started or resumed playback.
func (s *service) VideoPlay(req VideoSignalRequest, resp *VideoSignalResponse) error {
	id, ok := s.daemon.Watcher().Resolve(req.Tag)
	if !ok {
		return nil
	}
	s.daemon.Detector().Play(id, req.Position, req.Duration, req.Page)
	resp.Accepted = true
	return nil
}

// VideoTimeUpdate reports the current playback position.
func (s *service) VideoTimeUpdate(req VideoSignalRequest, resp *VideoSignalResponse) error {
	id, ok := s.daemon.Watcher().Resolve(req.Tag)
	if !ok {
		return nil
	}
	s.daemon.Detector().TimeUpdate(id, req.Position, req.Duration)
	resp.Accepted = true
	return nil
}

// VideoPause reports a pause.
func (s *service) VideoPause(req VideoSignalRequest, resp *VideoSignalResponse) error {
	id, ok := s.daemon.Watcher().Resolve(req.Tag)
	if !ok {
		return nil
	}
	s.daemon.Detector().Pause(id, req.Position, req.Duration)
	resp.Accepted = true
	return nil
}

// VideoEnded reports playback reaching the end.
func (s *service) VideoEnded(req VideoSignalRequest, resp *VideoSignalResponse) error {
	id, ok := s.daemon.Watcher().Resolve(req.Tag)
	if !ok {
		return nil
	}
	s.daemon.Detector().Ended(id)
	resp.Accepted = true
	return nil
}

// SessionStart feeds a start event from an external detector straight
// into the session loop.
func (s *service) SessionStart(req SessionStartRequest, _ *SessionEventResponse) error {
	return s.daemon.Sessions().VideoStart(s.ctx, detector.StartEvent{
		VideoID:  req.VideoID,
		Page:     req.Page,
		Progress: req.Progress,
		Duration: req.Duration,
	})
}

// SessionProgress feeds a progress event from an external detector.
func (s *service) SessionProgress(req SessionEventRequest, _ *SessionEventResponse) error {
	return s.daemon.Sessions().VideoProgress(s.ctx, detector.ProgressEvent{
		VideoID:  req.VideoID,
		Progress: req.Progress,
	})
}

// SessionPause feeds a pause event from an external detector.
func (s *service) SessionPause(req SessionEventRequest, _ *SessionEventResponse) error {
	return s.daemon.Sessions().VideoPause(s.ctx, detector.PauseEvent{
		VideoID:  req.VideoID,
		Progress: req.Progress,
	})
}

// SessionStop feeds a stop event from an external detector.
func (s *service) SessionStop(req SessionEventRequest, _ *SessionEventResponse) error {
	return s.daemon.Sessions().VideoStop(s.ctx, detector.StopEvent{
		VideoID:  req.VideoID,
		Progress: req.Progress,
	})
}

// GetState returns the current watch session.
func (s *service) GetState(_ StateRequest, resp *StateResponse) error {
	snap, err := s.daemon.Sessions().Snapshot(s.ctx)
	if err != nil {
		return err
	}
	resp.Session = snap
	return nil
}

// Login starts the OAuth flow and returns the authorize URL.
func (s *service) Login(_ LoginRequest, resp *LoginResponse) error {
	u, err := s.daemon.Auth().AuthorizeURL()
	if err != nil {
		return err
	}
	resp.AuthorizeURL = u
	return nil
}

// CompleteLogin exchanges the pasted code for a token.
func (s *service) CompleteLogin(req CompleteLoginRequest, resp *CompleteLoginResponse) error {
	if _, err := s.daemon.Auth().Exchange(s.ctx, req.Code); err != nil {
		return err
	}
	user, err := s.daemon.Trakt().UsersMe(s.ctx)
	if err != nil {
		s.logger.Warn("profile fetch after login failed", logging.Error(err))
		return nil
	}
	resp.Username = user.Username
	s.logger.Info("logged into Trakt", logging.String("username", user.Username))
	return nil
}

// Logout revokes the token and resets the session.
func (s *service) Logout(_ LogoutRequest, resp *LogoutResponse) error {
	if err := s.daemon.Auth().Logout(s.ctx); err != nil {
		return err
	}
	if err := s.daemon.Sessions().Reset(s.ctx); err != nil {
		s.logger.Warn("session reset after logout failed", logging.Error(err))
	}
	resp.LoggedOut = true
	return nil
}

// ConfirmMatch approves the current match.
func (s *service) ConfirmMatch(_ ConfirmMatchRequest, resp *ConfirmMatchResponse) error {
	snap, err := s.daemon.Sessions().ConfirmMatch(s.ctx)
	if err != nil {
		return err
	}
	resp.Session = snap
	return nil
}

// CorrectMatch re-runs matching with the user's correction.
func (s *service) CorrectMatch(req CorrectMatchRequest, resp *CorrectMatchResponse) error {
	if req.Title == "" {
		return errors.New("corrected title is required")
	}
	snap, err := s.daemon.Sessions().CorrectMatch(s.ctx, req.Title, req.MediaType, req.Season, req.Episode)
	if err != nil {
		return err
	}
	resp.Session = snap
	return nil
}

// SkipScrobble abandons the current session.
func (s *service) SkipScrobble(_ SkipRequest, resp *SkipResponse) error {
	snap, err := s.daemon.Sessions().Skip(s.ctx)
	if err != nil {
		return err
	}
	resp.Session = snap
	return nil
}

// GetSettings returns the effective settings.
func (s *service) GetSettings(_ SettingsRequest, resp *SettingsResponse) error {
	store := s.daemon.Settings()
	resp.GeminiAPIKey = store.GeminiAPIKey()
	resp.TraktClientID = store.TraktClientID()
	resp.TraktClientSecret = store.TraktClientSecret()
	resp.Authenticated = s.daemon.Auth().Authenticated(s.ctx)
	return nil
}

// SaveSettings stores the provided fields. Nil fields keep their
// stored value.
func (s *service) SaveSettings(req SaveSettingsRequest, resp *SaveSettingsResponse) error {
	err := s.daemon.Settings().Update(func(v *settings.Values) {
		if req.GeminiAPIKey != nil {
			v.GeminiAPIKey = *req.GeminiAPIKey
		}
		if req.TraktClientID != nil {
			v.TraktClientID = *req.TraktClientID
		}
		if req.TraktClientSecret != nil {
			v.TraktClientSecret = *req.TraktClientSecret
		}
	})
	if err != nil {
		return err
	}
	resp.Saved = true
	return nil
}

// History lists recent history entries.
func (s *service) History(req HistoryRequest, resp *HistoryResponse) error {
	entries, err := s.daemon.History().List(s.ctx, req.Limit)
	if err != nil {
		return err
	}
	resp.Entries = entries
	return nil
}

// Status reports daemon health.
func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	st := s.daemon.Status(s.ctx)
	resp.Running = st.Running
	resp.PID = st.PID
	resp.StartedAt = st.StartedAt
	resp.SocketPath = st.SocketPath
	resp.LockPath = st.LockPath
	resp.HistoryDBPath = st.HistoryDBPath
	resp.Authenticated = st.Authenticated
	return nil
}

// Stop shuts the daemon down.
func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.logger.Info("daemon stop requested")
	if s.shutdown != nil {
		go s.shutdown()
	}
	resp.Stopped = true
	return nil
}

// TestNotification publishes a test notification.
func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	if err := s.daemon.Notifications().Test(s.ctx); err != nil {
		resp.Sent = false
		resp.Message = err.Error()
		return nil
	}
	resp.Sent = true
	return nil
}
