package html

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles HTML documents.
type Normaliser struct{}

// New creates a new HTML normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/html", "application/xhtml+xml"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50 // Generic MIME normaliser, higher than plaintext
}

// Normalise converts an HTML document to plain text.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*domain.Document, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	root, err := html.Parse(bytes.NewReader(raw.Content))
	if err != nil {
		return nil, fmt.Errorf("%w: parse html %s: %w", domain.ErrInvalidInput, raw.URI, err)
	}

	title := raw.Metadata[domain.MetaTitle]
	if title == "" {
		title = extractHTMLTitle(root, raw.URI)
	}

	doc := &domain.Document{
		ID:       uuid.New().String(),
		Source:   raw.URI,
		Title:    title,
		Content:  extractText(root),
		Metadata: raw.Metadata.Clone(),
	}
	doc.Metadata[domain.MetaSource] = raw.URI
	doc.Metadata[domain.MetaTitle] = title
	doc.Metadata[domain.MetaMIMEType] = raw.MIMEType
	doc.Metadata[domain.MetaDocumentID] = doc.ID
	doc.Metadata["format"] = "html"

	return doc, nil
}

// stripHTML parses content and returns its readable text.
func stripHTML(content string) string {
	root, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return ""
	}
	return extractText(root)
}

// skipped elements contribute no text.
var skipped = map[atom.Atom]bool{
	atom.Head:     true,
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Svg:      true,
	atom.Template: true,
	atom.Iframe:   true,
	atom.Object:   true,
}

// paragraphs start and end with a blank line.
var paragraphs = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Section: true, atom.Article: true,
	atom.Header: true, atom.Footer: true, atom.Main: true, atom.Nav: true, atom.Aside: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Ul: true, atom.Ol: true, atom.Dl: true, atom.Table: true, atom.Pre: true,
	atom.Blockquote: true, atom.Figure: true, atom.Form: true, atom.Hr: true,
}

// lines start and end on their own line.
var lines = map[atom.Atom]bool{
	atom.Li: true, atom.Tr: true, atom.Dt: true, atom.Dd: true,
	atom.Figcaption: true, atom.Caption: true,
}

// textWriter tracks trailing newlines so nested blocks do not stack breaks.
type textWriter struct {
	b        strings.Builder
	newlines int
}

func (w *textWriter) text(s string) {
	if strings.TrimSpace(s) == "" {
		if w.newlines == 0 && w.b.Len() > 0 {
			w.b.WriteByte(' ')
		}
		return
	}
	w.b.WriteString(s)
	w.newlines = 0
}

func (w *textWriter) breakTo(n int) {
	if w.b.Len() == 0 {
		return
	}
	for w.newlines < n {
		w.b.WriteByte('\n')
		w.newlines++
	}
}

func (w *textWriter) lineBreak() {
	w.b.WriteByte('\n')
	w.newlines++
}

// extractText walks the parse tree collecting text with paragraph and line
// breaks for block elements.
func extractText(root *html.Node) string {
	w := &textWriter{}
	var walk func(n *html.Node, pre bool)
	walk = func(n *html.Node, pre bool) {
		switch n.Type {
		case html.TextNode:
			if pre {
				w.text(n.Data)
			} else {
				w.text(strings.Map(spaceOut, n.Data))
			}
			return
		case html.CommentNode, html.DoctypeNode:
			return
		case html.ElementNode:
			if skipped[n.DataAtom] {
				return
			}
			switch {
			case n.DataAtom == atom.Br:
				w.lineBreak()
				return
			case n.DataAtom == atom.Td || n.DataAtom == atom.Th:
				w.text(" ")
			case paragraphs[n.DataAtom]:
				w.breakTo(2)
			case lines[n.DataAtom]:
				w.breakTo(1)
			}
			pre = pre || n.DataAtom == atom.Pre
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, pre)
		}

		if n.Type == html.ElementNode {
			switch {
			case paragraphs[n.DataAtom]:
				w.breakTo(2)
			case lines[n.DataAtom]:
				w.breakTo(1)
			}
		}
	}
	walk(root, false)

	return tidy(w.b.String())
}

// spaceOut turns source line breaks into spaces outside <pre>.
func spaceOut(r rune) rune {
	if unicode.IsSpace(r) {
		return ' '
	}
	return r
}

// tidy collapses spaces within lines and runs of blank lines.
func tidy(s string) string {
	var out []string
	blank := false
	for _, line := range strings.Split(s, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			blank = len(out) > 0
			continue
		}
		if blank {
			out = append(out, "")
			blank = false
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// extractHTMLTitle returns the <title> text or a title from the filename.
func extractHTMLTitle(root *html.Node, uri string) string {
	if n := findFirst(root, atom.Title); n != nil {
		var b strings.Builder
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				b.WriteString(c.Data)
			}
		}
		if title := strings.Join(strings.Fields(b.String()), " "); title != "" {
			return title
		}
	}

	// Fall back to filename
	filename := filepath.Base(uri)
	filename = strings.TrimSuffix(filename, filepath.Ext(filename))
	filename = strings.ReplaceAll(filename, "_", " ")
	filename = strings.ReplaceAll(filename, "-", " ")
	return filename
}

func findFirst(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, a); found != nil {
			return found
		}
	}
	return nil
}
