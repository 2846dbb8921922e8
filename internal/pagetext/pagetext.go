// Package pagetext turns uploaded documents into the plain text the UI sends
// as a page's textContent.
package pagetext

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Supported content types.
const (
	TypePDF   = "application/pdf"
	TypePlain = "text/plain"
)

var ErrUnsupportedType = errors.New("unsupported file type (only PDF and TXT allowed)")

// DetectType resolves the content type, falling back to the file extension
// when the client sent none.
func DetectType(filename, contentType string) (string, error) {
	if contentType == "" {
		switch strings.ToLower(filepath.Ext(filename)) {
		case ".pdf":
			contentType = TypePDF
		case ".txt":
			contentType = TypePlain
		}
	}
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}
	switch contentType {
	case TypePDF, TypePlain:
		return contentType, nil
	default:
		return "", ErrUnsupportedType
	}
}

// Extract returns the text of content.
func Extract(filename, contentType string, content []byte) (string, error) {
	kind, err := DetectType(filename, contentType)
	if err != nil {
		return "", err
	}
	if kind == TypePlain {
		return string(content), nil
	}
	return ExtractPDF(content)
}

// ExtractPDF concatenates the plain text of every page. Pages without
// content or that fail to decode are skipped.
func ExtractPDF(content []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}

	var b strings.Builder
	for n := 1; n <= reader.NumPage(); n++ {
		page := reader.Page(n)
		if page.V.IsNull() || page.V.Key("Contents").Kind() == pdf.Null {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String()), nil
}
