package identify

import (
	"context"
	"log/slog"

	"scrobble/internal/logging"
	"scrobble/internal/pagemeta"
	"scrobble/internal/services/gemini"
)

// KeySource supplies the Gemini API key at call time, so a key saved
// mid-session takes effect without restarting anything.
type KeySource interface {
	GeminiAPIKey() string
}

// ContentGenerator produces model output for a prompt. *gemini.Client
// satisfies it.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, apiKey, systemPrompt, userPrompt string) (string, error)
}

// Identifier asks the model what media a page is playing.
type Identifier struct {
	gen    ContentGenerator
	keys   KeySource
	logger *slog.Logger
}

// New creates an identifier. A nil logger discards output.
func New(gen ContentGenerator, keys KeySource, logger *slog.Logger) *Identifier {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Identifier{
		gen:    gen,
		keys:   keys,
		logger: logging.NewComponentLogger(logger, "identify"),
	}
}

// Identify returns the model's best guess for the page. It never
// returns an error: every failure mode produces a zero-confidence
// identification describing what went wrong.
func (i *Identifier) Identify(ctx context.Context, page pagemeta.Context) Identification {
	apiKey := i.keys.GeminiAPIKey()
	if apiKey == "" {
		return Failure("Gemini API key not configured")
	}

	text, err := i.gen.GenerateContent(ctx, apiKey, mediaIdentificationPrompt, BuildUserPrompt(page))
	if err != nil {
		i.logger.Warn("model request failed", logging.Error(err))
		return Failure(err.Error())
	}

	data, err := gemini.ExtractJSON(text)
	if err != nil {
		i.logger.Warn("model output was not JSON", logging.String("output", truncate(text, 200)))
		return Failure("could not parse model response")
	}
	id, ok := decode(data)
	if !ok {
		return Failure("could not parse model response")
	}

	i.logger.Info("identified content",
		logging.String("title", id.Title),
		logging.String("type", string(id.Type)),
		logging.Int("confidence", id.Confidence))
	return id
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
