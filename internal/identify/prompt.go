package identify

import (
	"strings"

	"scrobble/internal/pagemeta"
)

// mediaIdentificationPrompt instructs the model to parse page metadata
// into the strict JSON shape decode expects.
const mediaIdentificationPrompt = `You are a media metadata expert. Your task is to identify the Movie or TV Show from the given browsing context.

RULES:
1. Analyze the URL, page title, headings, and description to determine what media content is being watched.
2. Ignore clutter words like "Watch Online", "Free", "HD", "1080p", "720p", "123Movies", "Putlocker", streaming site names, etc.
3. Determine if it's a Movie or TV Show (with Season and Episode numbers if applicable).
4. Provide a confidence score (0-100) based on how certain you are about the identification.
5. Return ONLY valid JSON, no other text.

OUTPUT FORMAT (strict JSON):
{
  "title": "The exact title of the movie or TV show",
  "type": "movie" or "show",
  "year": 2024 or null,
  "season": 5 or null,
  "episode": 14 or null,
  "confidence": 95
}

If you cannot identify any media content, return:
{
  "title": null,
  "type": "unknown",
  "year": null,
  "season": null,
  "episode": null,
  "confidence": 0
}`

// BuildUserPrompt renders page metadata into the prompt lines the
// model analyzes.
func BuildUserPrompt(page pagemeta.Context) string {
	return strings.Join(page.PromptLines(), "\n")
}
