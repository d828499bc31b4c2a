package pagemeta

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// Extract parses an HTML document and builds the metadata Context used for
// identification. pageURL is recorded verbatim; parse errors on malformed
// markup are tolerated by the underlying parser, so Extract only fails on
// reader errors.
func Extract(r io.Reader, pageURL string) (Context, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return Context{URL: pageURL}, err
	}

	ctx := Context{URL: pageURL}
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if ctx.Title == "" {
					ctx.Title = textContent(n)
				}
			case "meta":
				applyMeta(&ctx, n)
			case "h1":
				if ctx.Heading == "" {
					ctx.Heading = textContent(n)
				}
			case "h2":
				if ctx.Subheading == "" {
					ctx.Subheading = textContent(n)
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return ctx, nil
}

func applyMeta(ctx *Context, n *html.Node) {
	var name, property, content string
	for _, attr := range n.Attr {
		switch strings.ToLower(attr.Key) {
		case "name":
			name = strings.ToLower(attr.Val)
		case "property":
			property = strings.ToLower(attr.Val)
		case "content":
			content = attr.Val
		}
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return
	}
	switch {
	case property == "og:title" && ctx.OGTitle == "":
		ctx.OGTitle = content
	case name == "description" && ctx.Description == "":
		ctx.Description = content
	case property == "og:description" && ctx.Description == "":
		// og:description is the fallback when no meta description exists.
		ctx.Description = content
	}
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}
