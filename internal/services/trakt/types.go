// Package trakt implements the Trakt.tv API surface the scrobbler
// needs: OAuth device-less login, search, and the scrobble endpoints.
package trakt

import "time"

// IDs carries the identifiers Trakt knows a title by.
type IDs struct {
	Trakt int    `json:"trakt,omitempty"`
	Slug  string `json:"slug,omitempty"`
	IMDB  string `json:"imdb,omitempty"`
	TMDB  int    `json:"tmdb,omitempty"`
	TVDB  int    `json:"tvdb,omitempty"`
}

// Media is a movie or show as returned by search.
type Media struct {
	Title string `json:"title"`
	Year  int    `json:"year,omitempty"`
	IDs   IDs    `json:"ids"`
}

// Episode addresses a single episode within a show.
type Episode struct {
	Season int `json:"season"`
	Number int `json:"number"`
}

// SearchResult is one entry from /search.
type SearchResult struct {
	Type  string  `json:"type"`
	Score float64 `json:"score"`
	Movie *Media  `json:"movie,omitempty"`
	Show  *Media  `json:"show,omitempty"`
}

// Media returns whichever of Movie or Show the result carries.
func (r SearchResult) Media() *Media {
	if r.Movie != nil {
		return r.Movie
	}
	return r.Show
}

// MediaItem is the scrobble payload: exactly one of the movie form or
// the show+episode form.
type MediaItem struct {
	Movie   *Media   `json:"movie,omitempty"`
	Show    *Media   `json:"show,omitempty"`
	Episode *Episode `json:"episode,omitempty"`
}

// Title returns a display name for the item.
func (m MediaItem) Title() string {
	switch {
	case m.Movie != nil:
		return m.Movie.Title
	case m.Show != nil:
		return m.Show.Title
	default:
		return ""
	}
}

// ScrobbleResponse is Trakt's acknowledgement of a scrobble call.
type ScrobbleResponse struct {
	ID       int64   `json:"id"`
	Action   string  `json:"action"`
	Progress float64 `json:"progress"`
	Movie    *Media  `json:"movie,omitempty"`
	Show     *Media  `json:"show,omitempty"`
}

// User is the authenticated Trakt profile.
type User struct {
	Username string `json:"username"`
	Name     string `json:"name,omitempty"`
	VIP      bool   `json:"vip,omitempty"`
}

// Credential is a stored OAuth token pair.
type Credential struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// ExpiresWithin reports whether the credential expires before now+d.
// Credentials without an expiry never expire.
func (c *Credential) ExpiresWithin(now time.Time, d time.Duration) bool {
	if c.ExpiresAt.IsZero() {
		return false
	}
	return now.Add(d).After(c.ExpiresAt)
}
