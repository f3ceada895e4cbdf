package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// createTestDOCX builds a minimal docx archive in memory. Empty parts are omitted.
func createTestDOCX(t *testing.T, documentXML, coreXML string) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)

	parts := map[string]string{
		"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"/>`,
		"word/document.xml":   documentXML,
		"docProps/core.xml":   coreXML,
	}
	for name, body := range parts {
		if body == "" {
			continue
		}
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

const twoParagraphs = `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>Hybrid </w:t></w:r><w:r><w:t>retrieval</w:t></w:r></w:p>
<w:p></w:p>
<w:p><w:r><w:t>fuses two lists.</w:t></w:r></w:p>
</w:body>
</w:document>`

func TestSupportedMIMETypes(t *testing.T) {
	assert.Equal(t, []string{MIMEType}, New().SupportedMIMETypes())
	assert.Equal(t, 50, New().Priority())
}

func TestNormalise_Success(t *testing.T) {
	core := `<?xml version="1.0" encoding="UTF-8"?>
<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/">
<dc:title>Design Notes</dc:title>
</cp:coreProperties>`
	raw := &domain.RawDocument{
		URI:      "/docs/design_notes.docx",
		MIMEType: MIMEType,
		Content:  createTestDOCX(t, twoParagraphs, core),
		Metadata: domain.Metadata{"team": "search"},
	}

	doc, err := New().Normalise(context.Background(), raw)
	require.NoError(t, err)

	assert.Equal(t, "Hybrid retrieval\nfuses two lists.", doc.Content)
	assert.Equal(t, "Design Notes", doc.Title)
	assert.Equal(t, "/docs/design_notes.docx", doc.Source)
	assert.Equal(t, "search", doc.Metadata["team"])
	assert.Equal(t, MIMEType, doc.Metadata[domain.MetaMIMEType])
	assert.Equal(t, doc.ID, doc.Metadata[domain.MetaDocumentID])
	assert.NotContains(t, raw.Metadata, domain.MetaSource)
}

func TestNormalise_TitleFallsBackToFilename(t *testing.T) {
	raw := &domain.RawDocument{
		URI:      "/docs/release-plan_v2.docx",
		MIMEType: MIMEType,
		Content:  createTestDOCX(t, twoParagraphs, ""),
	}

	doc, err := New().Normalise(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, "release plan v2", doc.Title)
}

func TestNormalise_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
	}{
		{"not a zip", []byte("plain text")},
		{"missing body", createTestDOCX(t, "", "")},
		{"malformed xml", createTestDOCX(t, "<w:document><w:body>", "")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New().Normalise(context.Background(), &domain.RawDocument{
				URI: "/docs/bad.docx", MIMEType: MIMEType, Content: tt.content,
			})
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestNormalise_Nil(t *testing.T) {
	_, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
