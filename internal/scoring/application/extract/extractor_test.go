package extract

import (
	"archive/zip"
	"bytes"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talentforge/hirespark/internal/scoring/domain"
)

func newTestExtractor() *Extractor {
	return NewExtractor(slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelError,
	})))
}

func TestExtractor_Extract(t *testing.T) {
	e := newTestExtractor()

	t.Run("plain text passes through sanitized", func(t *testing.T) {
		text, err := e.Extract("resume.txt", "text/plain", []byte("  Go engineer.\t\tFive years.  "))

		require.NoError(t, err)
		assert.Equal(t, "Go engineer. Five years.", text)
	})

	t.Run("empty upload yields empty text without error", func(t *testing.T) {
		text, err := e.Extract("resume.txt", "text/plain", nil)
		require.NoError(t, err)
		assert.Empty(t, text)
	})

	t.Run("collapses excessive blank lines", func(t *testing.T) {
		text, err := e.Extract("resume.md", "text/markdown", []byte("Summary\n\n\n\n\nSkills"))
		require.NoError(t, err)
		assert.Equal(t, "Summary\n\nSkills", text)
	})

	t.Run("caps oversized documents", func(t *testing.T) {
		text, err := e.Extract("resume.txt", "text/plain", []byte(strings.Repeat("a", MaxExtractedChars+5000)))
		require.NoError(t, err)
		assert.Len(t, text, MaxExtractedChars)
	})

	t.Run("decodes latin-1 bytes that are not valid utf-8", func(t *testing.T) {
		// "résumé" in ISO 8859-1
		data := []byte{'r', 0xE9, 's', 'u', 'm', 0xE9}
		text, err := e.Extract("resume.txt", "text/plain", data)

		require.NoError(t, err)
		assert.Equal(t, "résumé", text)
	})

	t.Run("docx paragraphs become line broken text", func(t *testing.T) {
		docx := buildDOCX(t, `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Jordan Doe</w:t></w:r></w:p>
    <w:p><w:r><w:t>Platform engineer,</w:t></w:r><w:r><w:t xml:space="preserve"> six years.</w:t></w:r></w:p>
  </w:body>
</w:document>`)

		text, err := e.Extract("resume.docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", docx)

		require.NoError(t, err)
		assert.Contains(t, text, "Jordan Doe")
		assert.Contains(t, text, "Platform engineer, six years.")
		lines := strings.Split(text, "\n")
		assert.GreaterOrEqual(t, len(lines), 2)
	})

	t.Run("a zip without a document part falls back to direct decode", func(t *testing.T) {
		var buf bytes.Buffer
		zw := zip.NewWriter(&buf)
		w, err := zw.Create("unrelated.txt")
		require.NoError(t, err)
		_, err = w.Write([]byte("nothing here"))
		require.NoError(t, err)
		require.NoError(t, zw.Close())

		text, err := e.Extract("resume.docx", "", buf.Bytes())
		require.NoError(t, err)
		assert.NotEmpty(t, text, "zip bytes still decode as latin-1 text")
	})

	t.Run("content yielding no text at all is unreadable", func(t *testing.T) {
		_, err := e.Extract("blank.bin", "application/octet-stream", []byte{0x00, 0x00, 0x00, 0x00})
		assert.ErrorIs(t, err, domain.ErrUnreadableDocument)
	})

	t.Run("a corrupt pdf falls back to direct decode", func(t *testing.T) {
		data := []byte("%PDF-1.7 this is not really a pdf body")
		text, err := e.Extract("resume.pdf", "application/pdf", data)

		require.NoError(t, err)
		assert.Contains(t, text, "not really a pdf")
	})
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, formatPDF, detectFormat("resume.pdf", "", nil))
	assert.Equal(t, formatPDF, detectFormat("upload", "application/pdf", nil))
	assert.Equal(t, formatPDF, detectFormat("upload", "", []byte("%PDF-1.4")))
	assert.Equal(t, formatDOCX, detectFormat("resume.docx", "", nil))
	assert.Equal(t, formatDOCX, detectFormat("upload", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", nil))
	assert.Equal(t, formatDOCX, detectFormat("upload", "", []byte("PK\x03\x04")))
	assert.Equal(t, formatUnknown, detectFormat("resume.txt", "text/plain", []byte("hello")))
}

func TestLooksTextLike(t *testing.T) {
	assert.True(t, looksTextLike("resume.txt", ""))
	assert.True(t, looksTextLike("notes.md", ""))
	assert.True(t, looksTextLike("upload", "text/plain; charset=utf-8"))
	assert.True(t, looksTextLike("upload", "application/json"))
	assert.False(t, looksTextLike("resume.pdf", "application/pdf"))
	assert.False(t, looksTextLike("upload", ""))
}

func buildDOCX(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(documentXML))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}
