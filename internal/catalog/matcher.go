// Package catalog resolves an identification against the Trakt
// catalog.
package catalog

import (
	"context"
	"log/slog"

	"scrobble/internal/identify"
	"scrobble/internal/logging"
	"scrobble/internal/services/trakt"
)

// Searcher performs catalog searches. *trakt.Client satisfies it.
type Searcher interface {
	Search(ctx context.Context, mediaType, query string, year *int) ([]trakt.SearchResult, error)
}

// Matcher turns identifications into concrete catalog entries.
type Matcher struct {
	searcher Searcher
	logger   *slog.Logger
}

// NewMatcher builds a matcher. A nil logger discards output.
func NewMatcher(searcher Searcher, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Matcher{
		searcher: searcher,
		logger:   logging.NewComponentLogger(logger, "catalog"),
	}
}

// Match searches the catalog for the identified title and returns the
// top result. A clean search with no hits returns (nil, nil); search
// failures, including expired authentication, return the error so the
// caller can tell "not in the catalog" apart from "could not ask".
func (m *Matcher) Match(ctx context.Context, id identify.Identification) (*trakt.SearchResult, error) {
	if id.Title == "" {
		return nil, nil
	}

	mediaType := "movie"
	if id.Type == identify.TypeShow {
		mediaType = "show"
	}

	results, err := m.searcher.Search(ctx, mediaType, id.Title, id.Year)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		m.logger.Info("no catalog match",
			logging.String("title", id.Title),
			logging.String("type", mediaType))
		return nil, nil
	}

	top := results[0]
	if top.Media() == nil {
		return nil, nil
	}
	m.logger.Info("catalog match",
		logging.String("title", top.Media().Title),
		logging.Int("trakt_id", top.Media().IDs.Trakt),
		logging.Float64("score", top.Score))
	return &top, nil
}

// BuildMediaItem shapes a match into a scrobble payload. Episodes
// missing a season or episode number default to 1.
func BuildMediaItem(match *trakt.SearchResult, id identify.Identification) trakt.MediaItem {
	if match == nil {
		return trakt.MediaItem{}
	}
	if match.Show != nil {
		season, episode := 1, 1
		if id.Season != nil && *id.Season > 0 {
			season = *id.Season
		}
		if id.Episode != nil && *id.Episode > 0 {
			episode = *id.Episode
		}
		return trakt.MediaItem{
			Show:    match.Show,
			Episode: &trakt.Episode{Season: season, Number: episode},
		}
	}
	return trakt.MediaItem{Movie: match.Movie}
}
