package parser

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/IshaanNene/ShelfScout/internal/types"
)

// Page is a parsed HTML document plus the URL it was served from.
// It offers CSS lookups through goquery, XPath lookups through htmlquery
// and a flattened visible-text view for pattern scanning.
type Page struct {
	// URL is the resolved (post-redirect) page URL.
	URL string

	Doc *goquery.Document

	base        *url.URL
	visibleText *string
}

// NewPage builds a Page from a fetched response.
func NewPage(resp *types.Response) (*Page, error) {
	doc, err := resp.Document()
	if err != nil {
		return nil, err
	}
	pageURL := resp.FinalURL
	if pageURL == "" && resp.Request != nil {
		pageURL = resp.Request.URLString()
	}
	return newPage(doc, pageURL), nil
}

// ParseHTML builds a Page from raw markup. Used by tests and offline tooling.
func ParseHTML(body, pageURL string) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, &types.ParseError{URL: pageURL, Err: err}
	}
	return newPage(doc, pageURL), nil
}

func newPage(doc *goquery.Document, pageURL string) *Page {
	p := &Page{URL: pageURL, Doc: doc}
	if u, err := url.Parse(pageURL); err == nil {
		p.base = u
	}
	return p
}

// Find runs a CSS selector over the whole document.
func (p *Page) Find(selector string) *goquery.Selection {
	return p.Doc.Find(selector)
}

// Root returns the document node.
func (p *Page) Root() *html.Node {
	if len(p.Doc.Nodes) == 0 {
		return nil
	}
	return p.Doc.Nodes[0]
}

// XPathAll evaluates an XPath expression. Invalid expressions yield no nodes.
func (p *Page) XPathAll(expr string) []*html.Node {
	root := p.Root()
	if root == nil {
		return nil
	}
	nodes, err := htmlquery.QueryAll(root, expr)
	if err != nil {
		return nil
	}
	return nodes
}

// XPathAttr returns the first non-empty value of attr among the nodes matching expr.
func (p *Page) XPathAttr(expr, attr string) string {
	for _, n := range p.XPathAll(expr) {
		if v := strings.TrimSpace(htmlquery.SelectAttr(n, attr)); v != "" {
			return v
		}
	}
	return ""
}

// XPathText returns the collapsed inner text of the first node matching expr that has any.
func (p *Page) XPathText(expr string) string {
	for _, n := range p.XPathAll(expr) {
		if v := CollapseSpace(htmlquery.InnerText(n)); v != "" {
			return v
		}
	}
	return ""
}

// Meta returns the content of <meta property=key> or <meta name=key>.
func (p *Page) Meta(key string) string {
	var out string
	p.Doc.Find(`meta[property="` + key + `"], meta[name="` + key + `"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if c, ok := s.Attr("content"); ok && strings.TrimSpace(c) != "" {
			out = strings.TrimSpace(c)
			return false
		}
		return true
	})
	return out
}

// Resolve makes href absolute against the page URL.
func (p *Page) Resolve(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if p.base == nil {
		return ref.String()
	}
	resolved := p.base.ResolveReference(ref)
	resolved.Fragment = ""
	return resolved.String()
}

// VisibleText returns the whitespace-collapsed text of the body, skipping
// script, style, noscript and template content. Computed once per page.
func (p *Page) VisibleText() string {
	if p.visibleText != nil {
		return *p.visibleText
	}
	var sb strings.Builder
	if root := p.Root(); root != nil {
		appendVisible(&sb, root)
	}
	text := CollapseSpace(sb.String())
	p.visibleText = &text
	return text
}

// SelectionVisibleText is VisibleText scoped to a selection.
func SelectionVisibleText(sel *goquery.Selection) string {
	var sb strings.Builder
	for _, n := range sel.Nodes {
		appendVisible(&sb, n)
	}
	return CollapseSpace(sb.String())
}

func appendVisible(sb *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(n.Data)
		sb.WriteByte(' ')
		return
	case html.ElementNode:
		switch n.Data {
		case "script", "style", "noscript", "template", "head":
			return
		}
	case html.CommentNode:
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		appendVisible(sb, c)
	}
}

// TextNodes calls fn with the collapsed text of every non-empty text node under sel, in document order.
// Returning false stops the walk.
func TextNodes(sel *goquery.Selection, fn func(text string) bool) {
	var walk func(n *html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return true
		}
		if n.Type == html.TextNode {
			if t := CollapseSpace(n.Data); t != "" {
				return fn(t)
			}
			return true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if !walk(c) {
				return false
			}
		}
		return true
	}
	for _, n := range sel.Nodes {
		if !walk(n) {
			return
		}
	}
}
