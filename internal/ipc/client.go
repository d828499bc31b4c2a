package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon socket.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *Client) call(method string, req, resp any) error {
	return c.client.Call(ServiceName+"."+method, req, resp)
}

// VideoAdded announces a video element.
func (c *Client) VideoAdded(req VideoAddedRequest) (*VideoAddedResponse, error) {
	var resp VideoAddedResponse
	if err := c.call("VideoAdded", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// VideoRemoved reports a video element leaving the page.
func (c *Client) VideoRemoved(tag string) error {
	var resp VideoRemovedResponse
	return c.call("VideoRemoved", VideoRemovedRequest{Tag: tag}, &resp)
}

// VideoPlay reports playback starting or resuming.
func (c *Client) VideoPlay(req VideoSignalRequest) error {
	var resp VideoSignalResponse
	return c.call("VideoPlay", req, &resp)
}

// VideoTimeUpdate reports the playback position.
func (c *Client) VideoTimeUpdate(req VideoSignalRequest) error {
	var resp VideoSignalResponse
	return c.call("VideoTimeUpdate", req, &resp)
}

// VideoPause reports a pause.
func (c *Client) VideoPause(req VideoSignalRequest) error {
	var resp VideoSignalResponse
	return c.call("VideoPause", req, &resp)
}

// VideoEnded reports playback reaching the end.
func (c *Client) VideoEnded(tag string) error {
	var resp VideoSignalResponse
	return c.call("VideoEnded", VideoSignalRequest{Tag: tag}, &resp)
}

// GetState fetches the current watch session.
func (c *Client) GetState() (*StateResponse, error) {
	var resp StateResponse
	if err := c.call("GetState", StateRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Login begins the OAuth flow.
func (c *Client) Login() (*LoginResponse, error) {
	var resp LoginResponse
	if err := c.call("Login", LoginRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CompleteLogin finishes the OAuth flow.
func (c *Client) CompleteLogin(code string) (*CompleteLoginResponse, error) {
	var resp CompleteLoginResponse
	if err := c.call("CompleteLogin", CompleteLoginRequest{Code: code}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout revokes the stored token.
func (c *Client) Logout() (*LogoutResponse, error) {
	var resp LogoutResponse
	if err := c.call("Logout", LogoutRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ConfirmMatch approves the current match.
func (c *Client) ConfirmMatch() (*ConfirmMatchResponse, error) {
	var resp ConfirmMatchResponse
	if err := c.call("ConfirmMatch", ConfirmMatchRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CorrectMatch replaces the identification with a correction.
func (c *Client) CorrectMatch(req CorrectMatchRequest) (*CorrectMatchResponse, error) {
	var resp CorrectMatchResponse
	if err := c.call("CorrectMatch", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SkipScrobble abandons the current session.
func (c *Client) SkipScrobble() (*SkipResponse, error) {
	var resp SkipResponse
	if err := c.call("SkipScrobble", SkipRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetSettings fetches effective settings.
func (c *Client) GetSettings() (*SettingsResponse, error) {
	var resp SettingsResponse
	if err := c.call("GetSettings", SettingsRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SaveSettings stores the provided fields.
func (c *Client) SaveSettings(req SaveSettingsRequest) (*SaveSettingsResponse, error) {
	var resp SaveSettingsResponse
	if err := c.call("SaveSettings", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// History lists recent history entries.
func (c *Client) History(limit int) (*HistoryResponse, error) {
	var resp HistoryResponse
	if err := c.call("History", HistoryRequest{Limit: limit}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status fetches daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.call("Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop asks the daemon to shut down.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.call("Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestNotification sends a test notification.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	var resp TestNotificationResponse
	if err := c.call("TestNotification", TestNotificationRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
