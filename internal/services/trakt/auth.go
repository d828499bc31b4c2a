package trakt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"scrobble/internal/logging"
	"scrobble/internal/services"
)

// refreshLeeway is how close to expiry a token may get before a
// refresh is attempted.
const refreshLeeway = 5 * time.Minute

// CredentialSource supplies the OAuth application credentials at call
// time. Users register their own Trakt application, so these live in
// settings rather than in the binary.
type CredentialSource interface {
	TraktClientID() string
	TraktClientSecret() string
}

// Authenticator owns the OAuth token lifecycle: authorization URL,
// code exchange, refresh, and revocation.
type Authenticator struct {
	baseURL     string
	authURL     string
	redirectURI string
	creds       CredentialSource
	store       CredentialStore
	httpClient  *http.Client
	logger      *slog.Logger
	now         func() time.Time

	mu sync.Mutex
}

// AuthOption mutates authenticator construction.
type AuthOption func(*Authenticator)

// WithAuthHTTPClient overrides the HTTP client.
func WithAuthHTTPClient(hc *http.Client) AuthOption {
	return func(a *Authenticator) {
		a.httpClient = hc
	}
}

// WithAuthClock overrides the time source.
func WithAuthClock(now func() time.Time) AuthOption {
	return func(a *Authenticator) {
		a.now = now
	}
}

// NewAuthenticator builds an authenticator against the given API base
// URL (token and revoke endpoints) and authorize URL.
func NewAuthenticator(baseURL, authURL, redirectURI string, creds CredentialSource, store CredentialStore, timeout time.Duration, logger *slog.Logger, opts ...AuthOption) *Authenticator {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	a := &Authenticator{
		baseURL:     strings.TrimRight(baseURL, "/"),
		authURL:     authURL,
		redirectURI: redirectURI,
		creds:       creds,
		store:       store,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      logging.NewComponentLogger(logger, "trakt-auth"),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AuthorizeURL returns the URL the user visits to approve access.
func (a *Authenticator) AuthorizeURL() (string, error) {
	clientID := a.creds.TraktClientID()
	if clientID == "" {
		return "", services.Wrap(services.ErrConfiguration, "trakt", "authorize", "client ID not configured", nil)
	}
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", clientID)
	q.Set("redirect_uri", a.redirectURI)
	return a.authURL + "?" + q.Encode(), nil
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	CreatedAt    int64  `json:"created_at"`
	TokenType    string `json:"token_type"`
}

// Exchange trades an authorization code for a credential and stores
// it. The input may be the bare code or the full callback URL the
// user pasted back.
func (a *Authenticator) Exchange(ctx context.Context, codeOrURL string) (*Credential, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	code := extractCode(codeOrURL)
	if code == "" {
		return nil, services.Wrap(services.ErrAuth, "trakt", "exchange", "no authorization code supplied", nil)
	}
	clientID, clientSecret := a.creds.TraktClientID(), a.creds.TraktClientSecret()
	if clientID == "" || clientSecret == "" {
		return nil, services.Wrap(services.ErrConfiguration, "trakt", "exchange", "client ID and secret are required", nil)
	}

	cred, err := a.requestToken(ctx, map[string]string{
		"code":          code,
		"client_id":     clientID,
		"client_secret": clientSecret,
		"redirect_uri":  a.redirectURI,
		"grant_type":    "authorization_code",
	})
	if err != nil {
		return nil, err
	}
	if err := a.store.Save(cred); err != nil {
		return nil, services.Wrap(services.ErrAuth, "trakt", "exchange", "persist credential", err)
	}
	a.logger.Info("authorization code exchanged")
	return cred, nil
}

// Refresh renews the stored credential with its refresh token.
func (a *Authenticator) Refresh(ctx context.Context) (*Credential, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.refreshLocked(ctx)
}

func (a *Authenticator) refreshLocked(ctx context.Context) (*Credential, error) {
	cred, err := a.store.Load()
	if err != nil {
		return nil, services.Wrap(services.ErrAuth, "trakt", "refresh", "load credential", err)
	}
	if cred == nil || cred.RefreshToken == "" {
		return nil, services.Wrap(services.ErrAuth, "trakt", "refresh", "no refresh token stored", nil)
	}
	clientID, clientSecret := a.creds.TraktClientID(), a.creds.TraktClientSecret()
	if clientID == "" || clientSecret == "" {
		return nil, services.Wrap(services.ErrConfiguration, "trakt", "refresh", "client ID and secret are required", nil)
	}

	renewed, err := a.requestToken(ctx, map[string]string{
		"refresh_token": cred.RefreshToken,
		"client_id":     clientID,
		"client_secret": clientSecret,
		"redirect_uri":  a.redirectURI,
		"grant_type":    "refresh_token",
	})
	if err != nil {
		return nil, err
	}
	if err := a.store.Save(renewed); err != nil {
		return nil, services.Wrap(services.ErrAuth, "trakt", "refresh", "persist credential", err)
	}
	a.logger.Info("access token refreshed")
	return renewed, nil
}

// AccessToken returns a token valid for at least the refresh leeway,
// refreshing the stored credential when necessary.
func (a *Authenticator) AccessToken(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	cred, err := a.store.Load()
	if err != nil {
		return "", services.Wrap(services.ErrAuth, "trakt", "token", "load credential", err)
	}
	if cred == nil {
		return "", services.Wrap(services.ErrAuth, "trakt", "token", "not logged in", nil)
	}
	if cred.ExpiresWithin(a.now(), refreshLeeway) {
		renewed, err := a.refreshLocked(ctx)
		if err != nil {
			return "", err
		}
		return renewed.AccessToken, nil
	}
	return cred.AccessToken, nil
}

// Authenticated reports whether a usable credential exists, refreshing
// it when close to expiry.
func (a *Authenticator) Authenticated(ctx context.Context) bool {
	_, err := a.AccessToken(ctx)
	return err == nil
}

// Logout revokes the token best-effort and clears the stored
// credential. Revocation failures are logged, not returned.
func (a *Authenticator) Logout(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	cred, err := a.store.Load()
	if err == nil && cred != nil {
		if err := a.revoke(ctx, cred.AccessToken); err != nil {
			a.logger.Warn("token revocation failed", logging.Error(err))
		}
	}
	if err := a.store.Clear(); err != nil {
		return services.Wrap(services.ErrAuth, "trakt", "logout", "clear credential", err)
	}
	return nil
}

func (a *Authenticator) revoke(ctx context.Context, token string) error {
	clientID, clientSecret := a.creds.TraktClientID(), a.creds.TraktClientSecret()
	if token == "" || clientID == "" || clientSecret == "" {
		return nil
	}
	body, _ := json.Marshal(map[string]string{
		"token":         token,
		"client_id":     clientID,
		"client_secret": clientSecret,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/oauth/revoke", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 400 {
		return fmt.Errorf("revoke returned status %d", resp.StatusCode)
	}
	return nil
}

func (a *Authenticator) requestToken(ctx context.Context, form map[string]string) (*Credential, error) {
	body, err := json.Marshal(form)
	if err != nil {
		return nil, services.Wrap(services.ErrAuth, "trakt", "token", "encode request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/oauth/token", bytes.NewReader(body))
	if err != nil {
		return nil, services.Wrap(services.ErrNetwork, "trakt", "token", "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrNetwork, "trakt", "token", "request failed", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, services.Wrap(services.ErrNetwork, "trakt", "token", "read response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, services.Wrap(services.ErrAuth, "trakt", "token",
			fmt.Sprintf("token endpoint returned status %d", resp.StatusCode), nil)
	}
	var tok tokenResponse
	if err := json.Unmarshal(raw, &tok); err != nil {
		return nil, services.Wrap(services.ErrParse, "trakt", "token", "decode response", err)
	}
	if tok.AccessToken == "" {
		return nil, services.Wrap(services.ErrAuth, "trakt", "token", "response carried no access token", nil)
	}
	cred := &Credential{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}
	if tok.ExpiresIn > 0 {
		cred.ExpiresAt = a.now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	}
	return cred, nil
}

// extractCode accepts either a bare authorization code or a pasted
// callback URL and returns the code.
func extractCode(input string) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return ""
	}
	if strings.Contains(input, "://") {
		if u, err := url.Parse(input); err == nil {
			if code := u.Query().Get("code"); code != "" {
				return code
			}
			return ""
		}
	}
	return input
}
