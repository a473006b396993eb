package htmldoc

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// Fragment is one addressable text node: the path of its parent
// element and the trimmed text content.
type Fragment struct {
	Path string `json:"path"`
	Text string `json:"text"`
}

// Replacement swaps the text node at Path whose trimmed content equals
// Original for the new text, preserving surrounding whitespace.
type Replacement struct {
	Path     string
	Original string
	Text     string
}

// nodePath builds the address of an element, walking towards the root
// and stopping below the html element. Segments are `tag` or
// `tag:nth-child(k)` joined by " > ", with k counted among same-tag
// element siblings (1-based) and only added when there is ambiguity.
func nodePath(n *html.Node) string {
	var segments []string
	for cur := n; cur != nil && cur.Type == html.ElementNode && cur.Data != "html"; cur = cur.Parent {
		segments = append([]string{segment(cur)}, segments...)
	}
	return strings.Join(segments, " > ")
}

func segment(n *html.Node) string {
	index, total := 0, 0
	for sib := n.Parent.FirstChild; sib != nil; sib = sib.NextSibling {
		if sib.Type != html.ElementNode || sib.Data != n.Data {
			continue
		}
		total++
		if sib == n {
			index = total
		}
	}
	if total > 1 {
		return fmt.Sprintf("%s:nth-child(%d)", n.Data, index)
	}
	return n.Data
}

// ExtractTexts parses the document and returns a fragment for every
// direct child text node with non-empty trimmed content, in document
// order.
func ExtractTexts(doc string) ([]Fragment, error) {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}

	var fragments []Fragment
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		var path string
		if n.Type == html.ElementNode {
			path = nodePath(n)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			if child.Type == html.TextNode && n.Type == html.ElementNode {
				if text := strings.TrimSpace(child.Data); text != "" {
					fragments = append(fragments, Fragment{Path: path, Text: text})
				}
				continue
			}
			walk(child)
		}
	}
	walk(root)

	return fragments, nil
}

// ApplyReplacements parses the document once, resolves every path
// against that single parse, applies all replacements, and returns the
// body's inner HTML. A replacement only fires on the text node whose
// trimmed content equals Original exactly; surrounding whitespace in
// the node is preserved. Paths or originals that resolve to nothing
// are skipped.
func ApplyReplacements(doc string, replacements []Replacement) (string, error) {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return "", fmt.Errorf("failed to parse document: %w", err)
	}

	index := make(map[string]*html.Node)
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data != "html" {
			path := nodePath(n)
			if _, seen := index[path]; !seen {
				index[path] = n
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(root)

	for _, rep := range replacements {
		parent, ok := index[rep.Path]
		if !ok {
			continue
		}
		for child := parent.FirstChild; child != nil; child = child.NextSibling {
			if child.Type != html.TextNode {
				continue
			}
			if strings.TrimSpace(child.Data) != rep.Original {
				continue
			}
			child.Data = replaceTrimmed(child.Data, rep.Text)
			break
		}
	}

	return BodyHTML(root)
}

// replaceTrimmed swaps the trimmed core of a text node, keeping the
// leading and trailing whitespace as-is.
func replaceTrimmed(data, text string) string {
	trimmed := strings.TrimSpace(data)
	start := strings.Index(data, trimmed)
	return data[:start] + text + data[start+len(trimmed):]
}

// BodyHTML renders the inner HTML of the document's body element.
func BodyHTML(root *html.Node) (string, error) {
	body := findElement(root, "body")
	if body == nil {
		return "", fmt.Errorf("document has no body")
	}

	var buf bytes.Buffer
	for child := body.FirstChild; child != nil; child = child.NextSibling {
		if err := html.Render(&buf, child); err != nil {
			return "", fmt.Errorf("failed to render document: %w", err)
		}
	}
	return buf.String(), nil
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if found := findElement(child, tag); found != nil {
			return found
		}
	}
	return nil
}

// StripTags parses the document and returns its visible text with
// fragments joined by single spaces. Used to draw language-detection
// samples from extracted content.
func StripTags(doc string) (string, error) {
	fragments, err := ExtractTexts(doc)
	if err != nil {
		return "", err
	}
	parts := make([]string, len(fragments))
	for i, f := range fragments {
		parts[i] = f.Text
	}
	return strings.Join(parts, " "), nil
}

// ReplaceWholeWord substitutes every case-insensitive whole-word
// occurrence of word in text. Substrings inside longer words are left
// alone.
func ReplaceWholeWord(text, word, replacement string) string {
	if word == "" {
		return text
	}
	re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(word) + `\b`)
	return re.ReplaceAllString(text, replacement)
}
