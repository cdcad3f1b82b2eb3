package docreader

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"finlens/internal/services"
)

// SupportedExtensions lists the document formats the pipeline accepts.
var SupportedExtensions = map[string]struct{}{
	"pdf": {},
	"txt": {},
}

var pdfSignature = []byte("%PDF-")

// Supported reports whether a declared extension is an accepted format.
func Supported(ext string) bool {
	_, ok := SupportedExtensions[NormalizeExt(ext)]
	return ok
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// CheckSignature verifies that the document's byte signature matches the
// declared extension. The declared name is user input; the bytes decide.
func CheckSignature(content []byte, declaredExt string) error {
	ext := NormalizeExt(declaredExt)
	switch ext {
	case "pdf":
		if !bytes.HasPrefix(content, pdfSignature) {
			return services.Wrap(services.ErrValidation, "docreader", "sniff",
				"document does not look like a PDF", nil)
		}
		return nil
	case "txt":
		if !utf8.Valid(content) {
			return services.Wrap(services.ErrValidation, "docreader", "sniff",
				"document is not valid UTF-8 text", nil)
		}
		return nil
	default:
		return services.Wrap(services.ErrValidation, "docreader", "sniff",
			fmt.Sprintf("unsupported document type %q", ext), nil)
	}
}

// ExtractText pulls plain text out of a staged document for prompt assembly.
func ExtractText(content []byte, declaredExt string) (string, error) {
	if err := CheckSignature(content, declaredExt); err != nil {
		return "", err
	}
	switch NormalizeExt(declaredExt) {
	case "pdf":
		return extractPDFText(content)
	default:
		return string(content), nil
	}
}

func extractPDFText(content []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	textReader, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, textReader); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return buf.String(), nil
}
