// Package textract pulls plain text out of documents so templates can
// inline them.
package textract

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
)

// Extractor converts raw document bytes into plain text. Blocks such as
// paragraphs and headings are separated by blank lines.
type Extractor interface {
	Extract(r io.Reader) (string, error)
}

// extractors maps a lowercase file extension to its extractor.
var extractors = map[string]func() Extractor{
	".txt":      func() Extractor { return &TextExtractor{} },
	".md":       func() Extractor { return &MarkdownExtractor{} },
	".markdown": func() Extractor { return &MarkdownExtractor{} },
	".csv":      func() Extractor { return &CSVExtractor{} },
	".html":     func() Extractor { return &HTMLExtractor{} },
	".htm":      func() Extractor { return &HTMLExtractor{} },
	".pdf":      func() Extractor { return &PDFExtractor{FallbackPdftotext: true} },
	".docx":     func() Extractor { return &DOCXExtractor{} },
}

// SupportedExtensions returns the extensions ForFile handles, sorted.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(extractors))
	for ext := range extractors {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// ForFile returns the extractor for a filename's extension.
func ForFile(filename string) (Extractor, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	newExtractor, ok := extractors[ext]
	if !ok {
		return nil, fmt.Errorf("unsupported file extension %q (supported: %s)", ext, strings.Join(SupportedExtensions(), ", "))
	}
	return newExtractor(), nil
}

// blocks joins non-empty trimmed blocks with blank lines.
type blocks struct {
	b strings.Builder
}

func (bl *blocks) add(s string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return
	}
	if bl.b.Len() > 0 {
		bl.b.WriteString("\n\n")
	}
	bl.b.WriteString(s)
}

func (bl *blocks) String() string {
	return bl.b.String()
}
