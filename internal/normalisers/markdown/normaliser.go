// Package markdown provides a Normaliser for Markdown documents. Formatting
// is stripped while paragraph breaks and code contents are kept, so the
// chunker can still split on blank lines.
package markdown

import (
	"bufio"
	"context"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles Markdown documents.
type Normaliser struct{}

// New creates a new Markdown normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/markdown", "text/x-markdown"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50 // Generic MIME normaliser, higher than plaintext
}

// Normalise converts a markdown document to plain text. Front matter is
// dropped and its title, if any, becomes the document title.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*domain.Document, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	body, frontTitle := splitFrontMatter(strings.ReplaceAll(string(raw.Content), "\r\n", "\n"))

	title := raw.Metadata[domain.MetaTitle]
	if title == "" {
		title = frontTitle
	}
	if title == "" {
		title = extractMarkdownTitle(body, raw.URI)
	}

	doc := &domain.Document{
		ID:       uuid.New().String(),
		Source:   raw.URI,
		Title:    title,
		Content:  stripMarkdown(body),
		Metadata: raw.Metadata.Clone(),
	}
	doc.Metadata[domain.MetaSource] = raw.URI
	doc.Metadata[domain.MetaTitle] = title
	doc.Metadata[domain.MetaMIMEType] = raw.MIMEType
	doc.Metadata[domain.MetaDocumentID] = doc.ID
	doc.Metadata["format"] = "markdown"

	return doc, nil
}

// splitFrontMatter removes a leading "---" delimited YAML block and returns
// its title value.
func splitFrontMatter(content string) (body, title string) {
	if !strings.HasPrefix(content, "---\n") {
		return content, ""
	}
	rest := content[len("---\n"):]
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return content, ""
	}

	scanner := bufio.NewScanner(strings.NewReader(rest[:end]))
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), ":")
		if ok && strings.TrimSpace(key) == "title" {
			title = strings.Trim(strings.TrimSpace(value), `"'`)
			break
		}
	}

	body = rest[end+len("\n---"):]
	body = strings.TrimPrefix(body, "\n")
	return body, title
}

// extractMarkdownTitle returns the first H1 heading or a title from the filename.
func extractMarkdownTitle(content, uri string) string {
	inFence := false
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "```") {
			inFence = !inFence
			continue
		}
		if !inFence && strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "#"))
		}
	}

	filename := filepath.Base(uri)
	filename = strings.TrimSuffix(filename, filepath.Ext(filename))
	filename = strings.ReplaceAll(filename, "_", " ")
	filename = strings.ReplaceAll(filename, "-", " ")
	return filename
}

var (
	fenceLine    = regexp.MustCompile("(?m)^[ \t]*(```|~~~).*$")
	inlineCode   = regexp.MustCompile("`([^`]+)`")
	images       = regexp.MustCompile(`!\[([^\]]*)\]\([^)]+\)`)
	links        = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	refLinks     = regexp.MustCompile(`\[([^\]]+)\]\[[^\]]*\]`)
	refDefs      = regexp.MustCompile(`(?m)^[ \t]*\[[^\]]+\]:[ \t]+\S+.*$`)
	headings     = regexp.MustCompile(`(?m)^#{1,6}[ \t]+`)
	emphasis     = regexp.MustCompile(`(\*\*|__|\*|~~)([^*_~\n]+)(\*\*|__|\*|~~)`)
	underscoreEm = regexp.MustCompile(`\b_([^_\n]+)_\b`)
	blockquote   = regexp.MustCompile(`(?m)^>[ \t]?`)
	hr           = regexp.MustCompile(`(?m)^[ \t]*([-*_][ \t]*){3,}$`)
	listMarkers  = regexp.MustCompile(`(?m)^([ \t]*)[-*+][ \t]+(\[[ xX]\][ \t]+)?`)
	numberedList = regexp.MustCompile(`(?m)^([ \t]*)\d+[.)][ \t]+`)
	tableRule    = regexp.MustCompile(`(?m)^[ \t]*\|?[ \t]*:?-{3,}:?[ \t]*(\|[ \t]*:?-{3,}:?[ \t]*)*\|?[ \t]*\n`)
	htmlTags     = regexp.MustCompile(`</?[a-zA-Z][^>]*>`)
	trailingWS   = regexp.MustCompile(`(?m)[ \t]+$`)
	multiNewline = regexp.MustCompile(`\n{3,}`)
)

// stripMarkdown removes markdown syntax and keeps the text it decorates.
// Fenced code keeps its contents, only the fence lines go.
func stripMarkdown(content string) string {
	content = fenceLine.ReplaceAllString(content, "")
	content = inlineCode.ReplaceAllString(content, "$1")
	content = images.ReplaceAllString(content, "$1")
	content = links.ReplaceAllString(content, "$1")
	content = refLinks.ReplaceAllString(content, "$1")
	content = refDefs.ReplaceAllString(content, "")
	content = headings.ReplaceAllString(content, "")
	content = hr.ReplaceAllString(content, "")
	content = emphasis.ReplaceAllString(content, "$2")
	content = underscoreEm.ReplaceAllString(content, "$1")
	content = blockquote.ReplaceAllString(content, "")
	content = listMarkers.ReplaceAllString(content, "$1")
	content = numberedList.ReplaceAllString(content, "$1")
	content = tableRule.ReplaceAllString(content, "")
	content = htmlTags.ReplaceAllString(content, "")
	content = trailingWS.ReplaceAllString(content, "")
	content = multiNewline.ReplaceAllString(content, "\n\n")

	return strings.TrimSpace(content)
}
