// Package identify names the movie or show a page is playing.
//
// Identification runs through a language model: the page metadata goes
// in as a prompt and a structured guess with a confidence score comes
// back. Failures never surface as errors here; they come back as a
// zero-confidence identification carrying the reason, so callers treat
// "could not identify" and "model said unknown" the same way.
package identify

import "encoding/json"

// MediaType classifies an identification.
type MediaType string

const (
	TypeMovie   MediaType = "movie"
	TypeShow    MediaType = "show"
	TypeUnknown MediaType = "unknown"
)

// Identification is the structured result of identifying page content.
type Identification struct {
	Title      string    `json:"title"`
	Type       MediaType `json:"type"`
	Year       *int      `json:"year"`
	Season     *int      `json:"season"`
	Episode    *int      `json:"episode"`
	Confidence int       `json:"confidence"`
	Error      string    `json:"error,omitempty"`
}

// Failed reports whether the identification carries a failure reason.
func (id Identification) Failed() bool {
	return id.Error != ""
}

// IsEpisode reports whether the identification names a show.
func (id Identification) IsEpisode() bool {
	return id.Type == TypeShow
}

// Failure returns a zero-confidence identification for the given
// reason.
func Failure(reason string) Identification {
	return Identification{Type: TypeUnknown, Confidence: 0, Error: reason}
}

type rawIdentification struct {
	Title      any `json:"title"`
	Type       any `json:"type"`
	Year       any `json:"year"`
	Season     any `json:"season"`
	Episode    any `json:"episode"`
	Confidence any `json:"confidence"`
}

// decode parses model JSON into a normalized identification. Unknown
// media types collapse to TypeUnknown, non-numeric fields to null,
// and confidence clamps to 0..100.
func decode(data []byte) (Identification, bool) {
	var raw rawIdentification
	if err := json.Unmarshal(data, &raw); err != nil {
		return Identification{}, false
	}
	return normalize(raw), true
}

func normalize(raw rawIdentification) Identification {
	id := Identification{Type: TypeUnknown}
	if s, ok := raw.Title.(string); ok {
		id.Title = s
	}
	if s, ok := raw.Type.(string); ok && (MediaType(s) == TypeMovie || MediaType(s) == TypeShow) {
		id.Type = MediaType(s)
	}
	id.Year = toInt(raw.Year)
	id.Season = toInt(raw.Season)
	id.Episode = toInt(raw.Episode)
	if n := toInt(raw.Confidence); n != nil {
		c := *n
		if c < 0 {
			c = 0
		}
		if c > 100 {
			c = 100
		}
		id.Confidence = c
	}
	return id
}

func toInt(v any) *int {
	f, ok := v.(float64)
	if !ok {
		return nil
	}
	n := int(f)
	return &n
}
