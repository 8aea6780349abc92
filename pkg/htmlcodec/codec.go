package htmlcodec

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
	"golang.org/x/net/html"
)

// TextNode is a single translatable text run extracted from markup.
type TextNode struct {
	Text        string
	ParentTag   string
	ParentAttrs map[string]string
}

// Decode extracts the ordered text runs of an HTML fragment. Whitespace-only
// runs and script/style contents are skipped.
func Decode(fragment string) ([]TextNode, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return nil, errors.Wrap(err, "parse html fragment")
	}

	var nodes []TextNode
	for _, root := range doc.Selection.Nodes {
		walkText(root, func(n *html.Node) {
			text := strings.TrimSpace(n.Data)
			if text == "" {
				return
			}
			tn := TextNode{Text: text}
			if n.Parent != nil && n.Parent.Type == html.ElementNode {
				tn.ParentTag = n.Parent.Data
				tn.ParentAttrs = attrMap(n.Parent)
			}
			nodes = append(nodes, tn)
		})
	}
	return nodes, nil
}

// Encode replaces text runs of the original fragment with their translations,
// leaving tags and attributes untouched. Matching is by exact trimmed text
// content in node-iteration order, so byte-identical runs in different
// positions receive the same translation.
func Encode(fragment string, translations map[string]string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return "", errors.Wrap(err, "parse html fragment")
	}

	for _, root := range doc.Selection.Nodes {
		walkText(root, func(n *html.Node) {
			text := strings.TrimSpace(n.Data)
			if text == "" {
				return
			}
			if translated, ok := translations[text]; ok && translated != text {
				// Splice into the trimmed span so the node's own
				// leading/trailing whitespace survives; it separates
				// adjacent inline elements.
				prefix := n.Data[:strings.Index(n.Data, text)]
				suffix := n.Data[len(prefix)+len(text):]
				n.Data = prefix + translated + suffix
			}
		})
	}

	return renderFragment(doc)
}

// Structure lists the element tags of a fragment in document order,
// preserved as extraction metadata for rich-text fields.
func Structure(fragment string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return nil
	}

	var tags []string
	doc.Find("body *").Each(func(_ int, s *goquery.Selection) {
		if len(s.Nodes) > 0 {
			tags = append(tags, s.Nodes[0].Data)
		}
	})
	return tags
}

// Sanitize strips script and style elements from markup and truncates the
// result. Non-HTML text is truncated only. A zero maxLen disables
// truncation.
func Sanitize(text string, maxLen int) string {
	if strings.Contains(text, "<") {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(text)); err == nil {
			doc.Find("script, style").Remove()
			if rendered, err := renderFragment(doc); err == nil {
				text = rendered
			}
		}
	}
	if maxLen > 0 && len(text) > maxLen {
		text = text[:maxLen]
	}
	return text
}

func walkText(n *html.Node, visit func(*html.Node)) {
	if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
		return
	}
	if n.Type == html.TextNode {
		visit(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkText(c, visit)
	}
}

// renderFragment returns the inner HTML of the parsed document body, undoing
// the html/head/body envelope the parser adds around fragments.
func renderFragment(doc *goquery.Document) (string, error) {
	body := doc.Find("body")
	if len(body.Nodes) == 0 {
		return "", errors.New("fragment has no body")
	}

	var buf bytes.Buffer
	for c := body.Nodes[0].FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", errors.Wrap(err, "render html fragment")
		}
	}
	return buf.String(), nil
}

func attrMap(n *html.Node) map[string]string {
	if len(n.Attr) == 0 {
		return nil
	}
	attrs := make(map[string]string, len(n.Attr))
	for _, a := range n.Attr {
		attrs[a.Key] = a.Val
	}
	return attrs
}
