package pagemeta

import (
	"strings"
	"testing"
)

const samplePage = `<!DOCTYPE html>
<html>
<head>
<title>Watch Dune (2021) Online Free</title>
<meta property="og:title" content="Dune (2021)">
<meta name="description" content="Paul Atreides leads nomadic tribes in a battle for Arrakis.">
<meta property="og:description" content="Fallback description">
</head>
<body>
<h1>Dune</h1>
<h2>2021 &middot; Sci-Fi</h2>
<video src="stream.m3u8"></video>
</body>
</html>`

func TestExtract(t *testing.T) {
	ctx, err := Extract(strings.NewReader(samplePage), "https://example.com/watch/dune")
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if ctx.URL != "https://example.com/watch/dune" {
		t.Errorf("unexpected URL %q", ctx.URL)
	}
	if ctx.Title != "Watch Dune (2021) Online Free" {
		t.Errorf("unexpected title %q", ctx.Title)
	}
	if ctx.OGTitle != "Dune (2021)" {
		t.Errorf("unexpected og title %q", ctx.OGTitle)
	}
	if ctx.Description != "Paul Atreides leads nomadic tribes in a battle for Arrakis." {
		t.Errorf("unexpected description %q", ctx.Description)
	}
	if ctx.Heading != "Dune" {
		t.Errorf("unexpected heading %q", ctx.Heading)
	}
	if !strings.HasPrefix(ctx.Subheading, "2021") {
		t.Errorf("unexpected subheading %q", ctx.Subheading)
	}
}

func TestExtractDescriptionFallsBackToOpenGraph(t *testing.T) {
	page := `<html><head><meta property="og:description" content="OG only"></head></html>`
	ctx, err := Extract(strings.NewReader(page), "https://example.com")
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if ctx.Description != "OG only" {
		t.Errorf("expected og:description fallback, got %q", ctx.Description)
	}
}

func TestExtractEmptyDocument(t *testing.T) {
	ctx, err := Extract(strings.NewReader(""), "")
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if !ctx.IsZero() {
		t.Errorf("expected zero context, got %+v", ctx)
	}
}

func TestPromptLinesOmitsEmptyFields(t *testing.T) {
	ctx := Context{URL: "https://example.com", Heading: "Dune"}
	lines := ctx.PromptLines()
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %v", len(lines), lines)
	}
	if lines[0] != "URL: https://example.com" {
		t.Errorf("unexpected first line %q", lines[0])
	}
	if lines[1] != "H1 Heading: Dune" {
		t.Errorf("unexpected second line %q", lines[1])
	}
}

type staticDocument struct {
	url, title, og, desc, h1, h2 string
}

func (d staticDocument) PageURL() string            { return d.url }
func (d staticDocument) PageTitle() string          { return d.title }
func (d staticDocument) OpenGraphTitle() string     { return d.og }
func (d staticDocument) MetaDescription() string    { return d.desc }
func (d staticDocument) Headings() (string, string) { return d.h1, d.h2 }

func TestFromDocument(t *testing.T) {
	got := FromDocument(staticDocument{
		url:   "https://example.com/watch/42",
		title: "Some Film (2021)",
		og:    "Some Film",
		desc:  "A film about things.",
		h1:    "Some Film",
		h2:    "Part One",
	})
	want := Context{
		URL:         "https://example.com/watch/42",
		Title:       "Some Film (2021)",
		OGTitle:     "Some Film",
		Description: "A film about things.",
		Heading:     "Some Film",
		Subheading:  "Part One",
	}
	if got != want {
		t.Errorf("FromDocument = %+v, want %+v", got, want)
	}
}
