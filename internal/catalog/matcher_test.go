package catalog

import (
	"context"
	"errors"
	"testing"

	"scrobble/internal/identify"
	"scrobble/internal/services"
	"scrobble/internal/services/trakt"
)

type stubSearcher struct {
	results []trakt.SearchResult
	err     error

	gotType  string
	gotQuery string
	gotYear  *int
}

func (s *stubSearcher) Search(_ context.Context, mediaType, query string, year *int) ([]trakt.SearchResult, error) {
	s.gotType = mediaType
	s.gotQuery = query
	s.gotYear = year
	return s.results, s.err
}

func intPtr(n int) *int { return &n }

func TestMatchReturnsTopResult(t *testing.T) {
	searcher := &stubSearcher{results: []trakt.SearchResult{
		{Type: "movie", Score: 900, Movie: &trakt.Media{Title: "Dune", Year: 2021, IDs: trakt.IDs{Trakt: 12601}}},
		{Type: "movie", Score: 400, Movie: &trakt.Media{Title: "Dune", Year: 1984}},
	}}
	m := NewMatcher(searcher, nil)

	match, err := m.Match(context.Background(), identify.Identification{
		Title: "Dune", Type: identify.TypeMovie, Year: intPtr(2021), Confidence: 90,
	})
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if match == nil || match.Movie.IDs.Trakt != 12601 {
		t.Fatalf("unexpected match %+v", match)
	}
	if searcher.gotType != "movie" || searcher.gotQuery != "Dune" {
		t.Errorf("unexpected search %s %q", searcher.gotType, searcher.gotQuery)
	}
	if searcher.gotYear == nil || *searcher.gotYear != 2021 {
		t.Errorf("year not forwarded: %v", searcher.gotYear)
	}
}

func TestMatchUnknownTypeSearchesMovies(t *testing.T) {
	searcher := &stubSearcher{}
	m := NewMatcher(searcher, nil)

	if _, err := m.Match(context.Background(), identify.Identification{Title: "Something", Type: identify.TypeUnknown}); err != nil {
		t.Fatalf("Match: %v", err)
	}
	if searcher.gotType != "movie" {
		t.Errorf("unknown type should search movies, got %q", searcher.gotType)
	}
}

func TestMatchNoResults(t *testing.T) {
	m := NewMatcher(&stubSearcher{}, nil)
	match, err := m.Match(context.Background(), identify.Identification{Title: "Obscure", Type: identify.TypeMovie})
	if err != nil || match != nil {
		t.Fatalf("expected clean miss, got %+v, %v", match, err)
	}
}

func TestMatchEmptyTitleSkipsSearch(t *testing.T) {
	searcher := &stubSearcher{}
	m := NewMatcher(searcher, nil)
	match, err := m.Match(context.Background(), identify.Identification{Type: identify.TypeMovie})
	if err != nil || match != nil {
		t.Fatalf("expected nil match, got %+v, %v", match, err)
	}
	if searcher.gotQuery != "" {
		t.Error("search should not run without a title")
	}
}

func TestMatchPropagatesAuthError(t *testing.T) {
	authErr := services.Wrap(services.ErrAuth, "trakt", "search", "unauthorized", nil)
	m := NewMatcher(&stubSearcher{err: authErr}, nil)
	_, err := m.Match(context.Background(), identify.Identification{Title: "Dune", Type: identify.TypeMovie})
	if !errors.Is(err, services.ErrAuth) {
		t.Fatalf("expected auth error, got %v", err)
	}
}

func TestBuildMediaItemMovie(t *testing.T) {
	match := &trakt.SearchResult{Movie: &trakt.Media{Title: "Dune", IDs: trakt.IDs{Trakt: 12601}}}
	item := BuildMediaItem(match, identify.Identification{Type: identify.TypeMovie})
	if item.Movie == nil || item.Show != nil || item.Episode != nil {
		t.Fatalf("unexpected item %+v", item)
	}
}

func TestBuildMediaItemEpisodeDefaults(t *testing.T) {
	match := &trakt.SearchResult{Show: &trakt.Media{Title: "Breaking Bad", IDs: trakt.IDs{Trakt: 1388}}}

	item := BuildMediaItem(match, identify.Identification{Type: identify.TypeShow})
	if item.Episode == nil || item.Episode.Season != 1 || item.Episode.Number != 1 {
		t.Fatalf("missing numbers should default to 1: %+v", item.Episode)
	}

	item = BuildMediaItem(match, identify.Identification{
		Type: identify.TypeShow, Season: intPtr(5), Episode: intPtr(14),
	})
	if item.Episode.Season != 5 || item.Episode.Number != 14 {
		t.Fatalf("numbers not forwarded: %+v", item.Episode)
	}
}

func TestBuildMediaItemNilMatch(t *testing.T) {
	item := BuildMediaItem(nil, identify.Identification{})
	if item.Movie != nil || item.Show != nil {
		t.Fatalf("expected empty item, got %+v", item)
	}
}
