package trakt

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"scrobble/internal/services"
)

type staticCreds struct {
	id     string
	secret string
}

func (c staticCreds) TraktClientID() string     { return c.id }
func (c staticCreds) TraktClientSecret() string { return c.secret }

type staticTokens struct {
	token string
	err   error
}

func (t staticTokens) AccessToken(context.Context) (string, error) { return t.token, t.err }

func newTestAPI(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, staticCreds{id: "cid"}, staticTokens{token: "tok"}, 5*time.Second, nil,
		WithClientHTTPClient(srv.Client()))
}

func TestSearchSendsHeadersAndYear(t *testing.T) {
	var gotHeaders http.Header
	var gotQuery string
	client := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		gotQuery = r.URL.RawQuery
		if r.URL.Path != "/search/show" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode([]SearchResult{
			{Type: "show", Show: &Media{Title: "Breaking Bad", Year: 2008, IDs: IDs{Trakt: 1388}}},
		})
	})

	year := 2008
	results, err := client.Search(context.Background(), "show", "Breaking Bad", &year)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Show == nil || results[0].Show.IDs.Trakt != 1388 {
		t.Fatalf("unexpected results %+v", results)
	}
	if gotHeaders.Get("trakt-api-version") != "2" {
		t.Errorf("missing api version header")
	}
	if gotHeaders.Get("trakt-api-key") != "cid" {
		t.Errorf("missing api key header")
	}
	if gotHeaders.Get("Authorization") != "Bearer tok" {
		t.Errorf("missing bearer token")
	}
	if gotQuery != "query=Breaking+Bad&years=2008" {
		t.Errorf("unexpected query %q", gotQuery)
	}
}

func TestSearchRejectsUnknownType(t *testing.T) {
	client := NewClient("https://example.invalid", staticCreds{}, staticTokens{token: "t"}, time.Second, nil)
	if _, err := client.Search(context.Background(), "song", "x", nil); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestSearchUnauthorized(t *testing.T) {
	client := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	_, err := client.Search(context.Background(), "movie", "Dune", nil)
	if !errors.Is(err, services.ErrAuth) {
		t.Fatalf("expected auth error, got %v", err)
	}
}

func TestScrobbleClampsProgress(t *testing.T) {
	var got scrobbleRequest
	client := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/scrobble/start" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		json.NewEncoder(w).Encode(ScrobbleResponse{ID: 7, Action: "start", Progress: 100})
	})

	item := MediaItem{Movie: &Media{Title: "Dune", Year: 2021, IDs: IDs{Trakt: 12601}}}
	resp, err := client.Scrobble(context.Background(), ActionStart, item, 150)
	if err != nil {
		t.Fatalf("Scrobble: %v", err)
	}
	if resp.ID != 7 {
		t.Errorf("unexpected response %+v", resp)
	}
	if got.Progress != 100 {
		t.Errorf("progress not clamped: %v", got.Progress)
	}
	if got.Movie == nil || got.Movie.IDs.Trakt != 12601 {
		t.Errorf("media item not sent: %+v", got)
	}
}

func TestScrobbleRejectsUnknownAction(t *testing.T) {
	client := NewClient("https://example.invalid", staticCreds{}, staticTokens{token: "t"}, time.Second, nil)
	if _, err := client.Scrobble(context.Background(), "resume", MediaItem{}, 0); !errors.Is(err, services.ErrScrobble) {
		t.Fatalf("expected scrobble error, got %v", err)
	}
}

func TestScrobbleEpisodePayload(t *testing.T) {
	var got scrobbleRequest
	client := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(ScrobbleResponse{Action: "stop"})
	})

	item := MediaItem{
		Show:    &Media{Title: "Breaking Bad", IDs: IDs{Trakt: 1388}},
		Episode: &Episode{Season: 5, Number: 14},
	}
	if _, err := client.Scrobble(context.Background(), ActionStop, item, 100); err != nil {
		t.Fatalf("Scrobble: %v", err)
	}
	if got.Show == nil || got.Episode == nil || got.Episode.Season != 5 || got.Episode.Number != 14 {
		t.Errorf("episode payload wrong: %+v", got)
	}
	if got.Movie != nil {
		t.Error("movie must be absent for episode scrobbles")
	}
}

func TestTokenErrorsPropagate(t *testing.T) {
	authErr := services.Wrap(services.ErrAuth, "trakt", "token", "not logged in", nil)
	client := NewClient("https://example.invalid", staticCreds{}, staticTokens{err: authErr}, time.Second, nil)
	if _, err := client.UsersMe(context.Background()); !errors.Is(err, services.ErrAuth) {
		t.Fatalf("expected auth error, got %v", err)
	}
}

func TestUsersMe(t *testing.T) {
	client := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/me" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(User{Username: "sam", VIP: true})
	})
	user, err := client.UsersMe(context.Background())
	if err != nil {
		t.Fatalf("UsersMe: %v", err)
	}
	if user.Username != "sam" || !user.VIP {
		t.Errorf("unexpected user %+v", user)
	}
}
