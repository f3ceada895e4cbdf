package normalisers

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/normalisers/docx"
	"github.com/custodia-labs/sercha-rag/internal/normalisers/html"
	"github.com/custodia-labs/sercha-rag/internal/normalisers/markdown"
	"github.com/custodia-labs/sercha-rag/internal/normalisers/pdf"
	"github.com/custodia-labs/sercha-rag/internal/normalisers/plaintext"
)

// Ensure Registry implements the interface.
var _ driven.NormaliserRegistry = (*Registry)(nil)

// extensionTypes maps lower-case file extensions to MIME types.
var extensionTypes = map[string]string{
	".txt":      "text/plain",
	".text":     "text/plain",
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".html":     "text/html",
	".htm":      "text/html",
	".xhtml":    "application/xhtml+xml",
	".pdf":      "application/pdf",
	".docx":     docx.MIMEType,
}

// Registry selects a normaliser by MIME type, preferring higher priority.
type Registry struct {
	mu          sync.RWMutex
	normalisers map[string][]driven.Normaliser
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{normalisers: make(map[string][]driven.Normaliser)}
}

// Default returns a registry with every built-in normaliser. The PDF
// normaliser is registered even when pdftotext is missing, it reports the
// missing tool when used.
func Default() *Registry {
	r := NewRegistry()
	r.Register(plaintext.New())
	r.Register(markdown.New())
	r.Register(html.New())
	r.Register(pdf.New())
	r.Register(docx.New())
	return r
}

// Register adds n under each MIME type it supports.
func (r *Registry) Register(n driven.Normaliser) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, mimeType := range n.SupportedMIMETypes() {
		list := append(r.normalisers[mimeType], n)
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Priority() > list[j].Priority()
		})
		r.normalisers[mimeType] = list
	}
}

// Get returns the highest priority normaliser for mimeType.
func (r *Registry) Get(mimeType string) (driven.Normaliser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := r.normalisers[mimeType]
	if len(list) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, mimeType)
	}
	return list[0], nil
}

// DetectMIMEType maps a path's extension to a MIME type with a registered
// normaliser, or returns "".
func (r *Registry) DetectMIMEType(path string) string {
	mimeType, ok := extensionTypes[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return ""
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.normalisers[mimeType]) == 0 {
		return ""
	}
	return mimeType
}

// MIMETypes returns every MIME type with a registered normaliser, sorted.
func (r *Registry) MIMETypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.normalisers))
	for t := range r.normalisers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
