// Package pagemeta captures the page-level metadata a viewing session is
// identified from: the URL, document title, Open Graph fields, and the leading
// headings. A Context is an immutable snapshot taken once per detected play.
package pagemeta

import "strings"

// Context is the metadata snapshot for a single page.
type Context struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	OGTitle     string `json:"og_title"`
	Description string `json:"description"`
	Heading     string `json:"heading"`
	Subheading  string `json:"subheading"`
}

// Document is implemented by hosts that already expose structured
// page metadata and do not need HTML extraction.
type Document interface {
	PageURL() string
	PageTitle() string
	OpenGraphTitle() string
	MetaDescription() string
	Headings() (h1, h2 string)
}

// FromDocument snapshots a structured document into a Context.
func FromDocument(d Document) Context {
	h1, h2 := d.Headings()
	return Context{
		URL:         d.PageURL(),
		Title:       d.PageTitle(),
		OGTitle:     d.OpenGraphTitle(),
		Description: d.MetaDescription(),
		Heading:     h1,
		Subheading:  h2,
	}
}

// IsZero reports whether the context carries no usable metadata.
func (c Context) IsZero() bool {
	return c.URL == "" && c.Title == "" && c.OGTitle == "" &&
		c.Description == "" && c.Heading == "" && c.Subheading == ""
}

// PromptLines renders the non-empty fields as labeled lines for the
// identification prompt. Empty fields are omitted.
func (c Context) PromptLines() []string {
	lines := make([]string, 0, 6)
	add := func(label, value string) {
		value = strings.TrimSpace(value)
		if value != "" {
			lines = append(lines, label+": "+value)
		}
	}
	add("URL", c.URL)
	add("Page Title", c.Title)
	add("OG Title", c.OGTitle)
	add("H1 Heading", c.Heading)
	add("H2 Heading", c.Subheading)
	add("Description", c.Description)
	return lines
}
