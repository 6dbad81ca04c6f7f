package browser

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// ExtractFields parses an HTML document and lists its form controls and
// clickable entries in document order. Hidden inputs are left out.
func ExtractFields(rawHTML string) ([]Field, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	labels := make(map[string]string)
	collectLabels(doc, labels)

	var fields []Field
	walkFields(doc, labels, &fields)
	return fields, nil
}

// collectLabels maps label[for] targets to the label text
func collectLabels(n *html.Node, labels map[string]string) {
	if n.Type == html.ElementNode && n.Data == "label" {
		if target := attr(n, "for"); target != "" {
			labels[target] = textOf(n)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectLabels(c, labels)
	}
}

func walkFields(n *html.Node, labels map[string]string, fields *[]Field) {
	if n.Type == html.ElementNode {
		tag := strings.ToLower(n.Data)
		if isSkippedElement(tag) {
			return
		}
		if f, ok := fieldOf(n, tag, labels); ok {
			*fields = append(*fields, f)
			// Nested controls inside a button or select are not separate fields
			if tag == "button" || tag == "select" {
				return
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkFields(c, labels, fields)
	}
}

func fieldOf(n *html.Node, tag string, labels map[string]string) (Field, bool) {
	f := Field{
		Tag:     tag,
		ID:      attr(n, "id"),
		Name:    attr(n, "name"),
		Type:    strings.ToLower(attr(n, "type")),
		BtnName: attr(n, "btnname"),
		OnClick: attr(n, "onclick"),
	}

	switch tag {
	case "input":
		if f.Type == "hidden" {
			return Field{}, false
		}
		f.Label = firstNonEmpty(labels[f.ID], attr(n, "placeholder"), attr(n, "title"), attr(n, "aria-label"))
		if f.Type == "button" || f.Type == "submit" {
			f.Label = firstNonEmpty(attr(n, "value"), f.Label)
		}
	case "textarea":
		f.Label = firstNonEmpty(labels[f.ID], attr(n, "placeholder"), attr(n, "title"))
	case "select":
		f.Label = firstNonEmpty(labels[f.ID], attr(n, "title"))
		f.Options = optionsOf(n)
	case "button":
		f.Label = firstNonEmpty(textOf(n), attr(n, "title"))
	default:
		if f.OnClick == "" {
			return Field{}, false
		}
		f.Label = firstNonEmpty(textOf(n), attr(n, "title"))
	}
	return f, true
}

func optionsOf(n *html.Node) []Option {
	var options []Option
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		if c.Type == html.ElementNode && c.Data == "option" {
			label := textOf(c)
			value, ok := attrOK(c, "value")
			if !ok {
				value = label
			}
			options = append(options, Option{Value: value, Label: label})
			return
		}
		for gc := c.FirstChild; gc != nil; gc = gc.NextSibling {
			walk(gc)
		}
	}
	walk(n)
	return options
}

// isSkippedElement returns true for elements whose subtree never holds fields
func isSkippedElement(tagName string) bool {
	skipped := map[string]bool{
		"script":   true,
		"style":    true,
		"noscript": true,
		"template": true,
		"svg":      true,
	}
	return skipped[tagName]
}

func attr(n *html.Node, key string) string {
	v, _ := attrOK(n, key)
	return v
}

func attrOK(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return strings.TrimSpace(a.Val), true
		}
	}
	return "", false
}

// textOf returns the whitespace-collapsed text of n's subtree
func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
			b.WriteString(" ")
		}
		if c.Type == html.ElementNode && isSkippedElement(c.Data) {
			return
		}
		for gc := c.FirstChild; gc != nil; gc = gc.NextSibling {
			walk(gc)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
