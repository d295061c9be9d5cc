// Package extract turns party program files into plain text for indexing.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

var (
	// ErrUnsupportedFormat is returned for file types that cannot be extracted
	ErrUnsupportedFormat = errors.New("unsupported document format")
	// ErrInvalidEncoding is returned when a text file is not valid UTF-8
	ErrInvalidEncoding = errors.New("text is not valid UTF-8")
)

// Supported reports whether name has an extension Extract can handle.
func Supported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf", ".txt", ".md":
		return true
	}
	return false
}

// Extractor picks a parser by file extension.
type Extractor struct{}

func New() Extractor {
	return Extractor{}
}

// Extract returns the text of data with line breaks collapsed to spaces.
func (Extractor) Extract(name string, data []byte) (string, error) {
	var (
		text string
		err  error
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		text, err = pdfText(data)
	case ".txt", ".md":
		if !utf8.Valid(data) {
			return "", fmt.Errorf("%s: %w", name, ErrInvalidEncoding)
		}
		text = string(data)
	default:
		return "", fmt.Errorf("%s: %w", name, ErrUnsupportedFormat)
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return Normalize(text), nil
}

func pdfText(data []byte) (string, error) {
	doc, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	plain, err := doc.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}

	buf := &bytes.Buffer{}
	if _, err := io.Copy(buf, plain); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return buf.String(), nil
}

// Normalize replaces every line break with a space and trims the result.
func Normalize(content string) string {
	content = strings.ReplaceAll(content, "\r\n", " ")
	content = strings.ReplaceAll(content, "\r", " ")
	content = strings.ReplaceAll(content, "\n", " ")
	return strings.TrimSpace(content)
}
