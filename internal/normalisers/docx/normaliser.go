// Package docx provides a Normaliser for Word documents. A .docx file is a
// zip archive; body text lives in word/document.xml and the title, when
// set, in docProps/core.xml.
package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// MIMEType is the Office Open XML word processing type.
const MIMEType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// maxPartSize caps how much of one archive part is read.
const maxPartSize = 64 << 20

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles DOCX documents.
type Normaliser struct{}

// New creates a new DOCX normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{MIMEType}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise extracts paragraph text, one paragraph per line.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*domain.Document, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	archive, err := zip.NewReader(bytes.NewReader(raw.Content), int64(len(raw.Content)))
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not a docx archive", domain.ErrInvalidInput, raw.URI)
	}

	body, err := readPart(archive, "word/document.xml")
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrInvalidInput, raw.URI, err)
	}
	content, err := paragraphText(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrInvalidInput, raw.URI, err)
	}

	title := raw.Metadata[domain.MetaTitle]
	if title == "" {
		title = coreTitle(archive)
	}
	if title == "" {
		title = titleFromPath(raw.URI)
	}

	doc := &domain.Document{
		ID:       uuid.New().String(),
		Source:   raw.URI,
		Title:    title,
		Content:  content,
		Metadata: raw.Metadata.Clone(),
	}
	doc.Metadata[domain.MetaSource] = raw.URI
	doc.Metadata[domain.MetaTitle] = title
	doc.Metadata[domain.MetaMIMEType] = raw.MIMEType
	doc.Metadata[domain.MetaDocumentID] = doc.ID

	return doc, nil
}

// readPart returns the bytes of the named archive member.
func readPart(archive *zip.Reader, name string) ([]byte, error) {
	for _, f := range archive.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(io.LimitReader(rc, maxPartSize))
	}
	return nil, fmt.Errorf("missing %s", name)
}

type documentXML struct {
	Body struct {
		Paragraphs []paragraph `xml:"p"`
	} `xml:"body"`
}

type paragraph struct {
	Runs []run `xml:"r"`
}

type run struct {
	Text []string   `xml:"t"`
	Tabs []struct{} `xml:"tab"`
}

// paragraphText joins the runs of each paragraph and drops empty paragraphs.
func paragraphText(body []byte) (string, error) {
	var doc documentXML
	if err := xml.Unmarshal(body, &doc); err != nil {
		return "", err
	}

	lines := make([]string, 0, len(doc.Body.Paragraphs))
	for _, p := range doc.Body.Paragraphs {
		var b strings.Builder
		for _, r := range p.Runs {
			for range r.Tabs {
				b.WriteByte('\t')
			}
			for _, t := range r.Text {
				b.WriteString(t)
			}
		}
		if line := strings.TrimSpace(b.String()); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n"), nil
}

// coreTitle reads dc:title from docProps/core.xml, or returns "".
func coreTitle(archive *zip.Reader) string {
	data, err := readPart(archive, "docProps/core.xml")
	if err != nil {
		return ""
	}
	var core struct {
		Title string `xml:"title"`
	}
	if err := xml.Unmarshal(data, &core); err != nil {
		return ""
	}
	return strings.TrimSpace(core.Title)
}

func titleFromPath(uri string) string {
	name := strings.TrimSuffix(filepath.Base(uri), filepath.Ext(uri))
	return strings.NewReplacer("_", " ", "-", " ").Replace(name)
}
