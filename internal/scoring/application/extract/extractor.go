// Package extract converts uploaded resume bytes into sanitized plain text.
package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/talentforge/hirespark/internal/scoring/domain"
)

// MaxExtractedChars bounds the text handed to the scoring pipeline.
const MaxExtractedChars = 20000

var (
	horizontalWS = regexp.MustCompile(`[\t\v\f\r]+`)
	doubleSpaces = regexp.MustCompile(` {2,}`)
	excessBreaks = regexp.MustCompile(`\n{3,}`)
)

// Extractor produces plain text from heterogeneous resume uploads. It is a
// pure transformation: the same bytes always yield the same text.
type Extractor struct {
	logger *slog.Logger
}

// NewExtractor creates a text extractor.
func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger}
}

// Extract returns sanitized text for the upload, or an empty string when no
// bytes are present. Strategies are tried in order: direct decode for
// text-like uploads, rich-document parse, then direct decode regardless of
// the format hint. Only the exhaustion of every strategy is an error.
func (e *Extractor) Extract(fileName, contentType string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}

	if looksTextLike(fileName, contentType) {
		if text := decodeDirect(data); text != "" {
			return capChars(text, MaxExtractedChars), nil
		}
	}

	parsed, err := e.parseDocument(fileName, contentType, data)
	if err == nil && parsed != "" {
		return capChars(parsed, MaxExtractedChars), nil
	}
	if err != nil {
		e.logger.Debug("rich document parse failed", "file_name", fileName, "error", err)
	}

	// Last resort: decode as text even when the hint said otherwise.
	if text := decodeDirect(data); text != "" {
		return capChars(text, MaxExtractedChars), nil
	}

	return "", fmt.Errorf("extract %q: %w", fileName, domain.ErrUnreadableDocument)
}

// parseDocument runs the format-aware parsers. Parser panics are treated the
// same as parser errors: the strategy produced nothing.
func (e *Extractor) parseDocument(fileName, contentType string, data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("document parser panic: %v", r)
		}
	}()

	switch detectFormat(fileName, contentType, data) {
	case formatPDF:
		return extractPDF(data)
	case formatDOCX:
		return extractDOCX(data)
	default:
		return "", fmt.Errorf("no parser for %q (%s)", fileName, contentType)
	}
}

type documentFormat int

const (
	formatUnknown documentFormat = iota
	formatPDF
	formatDOCX
)

func detectFormat(fileName, contentType string, data []byte) documentFormat {
	ext := strings.ToLower(filepath.Ext(fileName))
	ct := strings.ToLower(contentType)

	switch {
	case ext == ".pdf" || strings.Contains(ct, "pdf"):
		return formatPDF
	case ext == ".docx" || strings.Contains(ct, "officedocument.wordprocessingml"):
		return formatDOCX
	case bytes.HasPrefix(data, []byte("%PDF")):
		return formatPDF
	case bytes.HasPrefix(data, []byte("PK")):
		// DOCX is a zip container; worst case the zip has no document part.
		return formatDOCX
	default:
		return formatUnknown
	}
}

func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return sanitize(buf.String()), nil
}

// extractDOCX pulls paragraph text out of the word/document.xml part.
func extractDOCX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx container: %w", err)
	}

	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return "", fmt.Errorf("docx container has no document part")
	}

	rc, err := doc.Open()
	if err != nil {
		return "", fmt.Errorf("open document part: %w", err)
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("read document part: %w", err)
	}

	return sanitize(wordMLToText(raw)), nil
}

// wordMLToText flattens WordprocessingML into line-broken plain text. Text
// lives in <w:t> runs; paragraph ends and explicit breaks become newlines.
func wordMLToText(raw []byte) string {
	dec := xml.NewDecoder(bytes.NewReader(raw))
	var b strings.Builder
	inText := false

	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				b.WriteByte(' ')
			case "br":
				b.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				b.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}
	return b.String()
}

// looksTextLike reports whether the upload strongly suggests a plain-text
// format, so the heavyweight parsers can be skipped.
func looksTextLike(fileName, contentType string) bool {
	if ct := strings.ToLower(strings.TrimSpace(contentType)); ct != "" {
		if strings.HasPrefix(ct, "text/") {
			return true
		}
		if strings.Contains(ct, "json") || strings.Contains(ct, "xml") {
			return true
		}
	}

	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".txt", ".md", ".markdown", ".csv", ".rtf":
		return true
	}
	return false
}

// decodeDirect tries UTF-8 first, then a Latin-1 reinterpretation.
func decodeDirect(data []byte) string {
	if len(data) == 0 {
		return ""
	}

	if utf8.Valid(data) {
		if text := sanitize(string(data)); text != "" {
			return text
		}
	}

	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}
	return sanitize(string(runes))
}

// sanitize strips NUL bytes, collapses horizontal whitespace runs and 3+
// newlines, and trims the result.
func sanitize(value string) string {
	if value == "" {
		return ""
	}
	value = strings.ReplaceAll(value, "\x00", " ")
	value = horizontalWS.ReplaceAllString(value, " ")
	value = doubleSpaces.ReplaceAllString(value, " ")
	value = excessBreaks.ReplaceAllString(value, "\n\n")
	return strings.TrimSpace(value)
}

func capChars(value string, maxChars int) string {
	if len(value) <= maxChars {
		return value
	}
	return value[:maxChars]
}
